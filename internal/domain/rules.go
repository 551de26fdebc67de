package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Thresholds tune the surface-condition rules.
type Thresholds struct {
	MinSnowpackIn      float64 // end-of-day depth that counts as an active snowpack
	RainOnSnowIn       float64 // daily raw rain that flags rain-on-snow
	CrustMaxTempF      float64 // max temperature above which rain-on-snow may crust
	FreezeMinTempF     float64 // daily low at or below for a freeze-thaw cycle
	ThawMaxTempF       float64 // daily high at or above for a freeze-thaw cycle
	SlabWindMph        float64 // daily max wind that opens a wind-slab window
	WindRecentSnowDays int     // trailing window, today inclusive, for slab snowfall
	SlabSnowfallIn     float64 // daily snowfall that alone counts as an active snowpack
	StrongSunBake      int     // sun-bake index that flags a strong sun-bake signal
}

// DefaultThresholds returns the standard rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSnowpackIn:      2,
		RainOnSnowIn:       0.1,
		CrustMaxTempF:      34,
		FreezeMinTempF:     31,
		ThawMaxTempF:       33,
		SlabWindMph:        25,
		WindRecentSnowDays: 7,
		SlabSnowfallIn:     2,
		StrongSunBake:      55,
	}
}

// RuleMatches lists, per rule, the dates it fired on in ascending order.
type RuleMatches map[EventType][]string

// LastQualified returns the most recent date the rule fired, or "".
func (m RuleMatches) LastQualified(t EventType) string {
	dates := m[t]
	if len(dates) == 0 {
		return ""
	}
	return dates[len(dates)-1]
}

// Between returns the matches restricted to dates in [start, end].
func (m RuleMatches) Between(start, end string) RuleMatches {
	out := make(RuleMatches, len(m))
	for t, dates := range m {
		kept := make([]string, 0, len(dates))
		for _, d := range dates {
			if d >= start && d <= end {
				kept = append(kept, d)
			}
		}
		out[t] = kept
	}
	return out
}

// RuleAnalysis is the RuleEngine output for one run.
type RuleAnalysis struct {
	Events  []Event     `json:"events"`
	Matches RuleMatches `json:"rule_matches"`
}

// AnalyzeRules evaluates the freeze, rain, wind and sun rules for each day.
// Rules are independent; a day may produce zero to four events.
func AnalyzeRules(days []PowderScoreRecord, th Thresholds) RuleAnalysis {
	out := RuleAnalysis{
		Events: []Event{},
		Matches: RuleMatches{
			EventFreeze: {},
			EventRain:   {},
			EventWind:   {},
			EventSun:    {},
		},
	}
	emit := func(e Event) {
		out.Events = append(out.Events, e)
		out.Matches[e.Type] = append(out.Matches[e.Type], e.Date)
	}

	for i, d := range days {
		active := activeSnowpack(days, i, th)

		if active && d.TempMinF != nil && d.TempMaxF != nil &&
			*d.TempMinF <= th.FreezeMinTempF && *d.TempMaxF >= th.ThawMaxTempF {
			emit(Event{
				Date:   d.Date,
				Type:   EventFreeze,
				Title:  "Freeze-thaw cycle",
				Detail: fmt.Sprintf("Min %sF, max %sF, thaw hours %d.", formatNum(*d.TempMinF), formatNum(*d.TempMaxF), d.ThawHours),
			})
		}

		if active && d.RainRawInSum >= th.RainOnSnowIn {
			title := "Rain-on-snow"
			if d.TempMaxF != nil && *d.TempMaxF > th.CrustMaxTempF {
				title = "Rain-on-snow with crust potential"
			}
			emit(Event{
				Date:   d.Date,
				Type:   EventRain,
				Title:  title,
				Detail: fmt.Sprintf("Daily rain %.2f in from hourly rain.", d.RainRawInSum),
			})
		}

		if recent := trailingSnowfall(days, i, th.WindRecentSnowDays); d.WindMaxMph != nil &&
			*d.WindMaxMph >= th.SlabWindMph && recent > 0 {
			emit(Event{
				Date:  d.Date,
				Type:  EventWind,
				Title: "Wind slab risk window",
				Detail: fmt.Sprintf("Max wind %s mph with %.1f in snowfall in the last %d days.",
					formatNum(*d.WindMaxMph), recent, th.WindRecentSnowDays),
			})
		}

		if active && d.SunBakeIndex >= th.StrongSunBake {
			emit(Event{
				Date:   d.Date,
				Type:   EventSun,
				Title:  "Strong sun-bake signal",
				Detail: fmt.Sprintf("Sun-bake index %d, shortwave %.1f MJ/m^2.", d.SunBakeIndex, d.ShortwaveMJM2Sum),
			})
		}
	}
	return out
}

// activeSnowpack is true when today's or yesterday's end-of-day depth reaches
// the snowpack minimum, or today's snowfall alone does.
func activeSnowpack(days []PowderScoreRecord, i int, th Thresholds) bool {
	d := days[i]
	if d.SnowDepthEndIn != nil && *d.SnowDepthEndIn >= th.MinSnowpackIn {
		return true
	}
	if i > 0 {
		if prev := days[i-1].SnowDepthEndIn; prev != nil && *prev >= th.MinSnowpackIn {
			return true
		}
	}
	return d.SnowfallInSum >= th.SlabSnowfallIn
}

func trailingSnowfall(days []PowderScoreRecord, i, window int) float64 {
	start := max(0, i-(window-1))
	var total float64
	for _, d := range days[start : i+1] {
		total += math.Max(0, d.SnowfallInSum)
	}
	return total
}

// formatNum prints a value without trailing zeros, "28" rather than "28.0".
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
