package domain

import "time"

// PeakDepth is the season's deepest daily snow depth.
type PeakDepth struct {
	DepthIn float64 `json:"depth_in"`
	Date    string  `json:"date"`
}

// Summary holds the headline numbers of a season report.
type Summary struct {
	LatestSnowDepthIn   *float64             `json:"latest_snow_depth_in"`
	PeakSnowDepth       *PeakDepth           `json:"peak_snow_depth"`
	SnowDepthChange7dIn *float64             `json:"snow_depth_change_7d_in"`
	Snow24hIn           *float64             `json:"snow_24h_in"`
	LatestPowderScore   *int                 `json:"latest_powder_score"`
	LatestPowderBand    string               `json:"latest_powder_band,omitempty"`
	LatestPowderDate    string               `json:"latest_powder_date,omitempty"`
	LastQualified       map[EventType]string `json:"last_qualified"`
	Forward             *ForwardSummary      `json:"forward,omitempty"`
}

// BuildSummary derives the headline numbers from the final series.
func BuildSummary(hourly []HourlyRecord, daily []PowderScoreRecord, matches RuleMatches, forward *ForwardSummary) Summary {
	s := Summary{
		LatestSnowDepthIn:   LatestSnowDepth(hourly),
		PeakSnowDepth:       PeakSnowDepth(daily),
		SnowDepthChange7dIn: SnowDepthChange7d(daily),
		Snow24hIn:           SnowLast24h(hourly),
		LastQualified:       make(map[EventType]string, len(EventTypes)),
		Forward:             forward,
	}
	if n := len(daily); n > 0 {
		last := daily[n-1]
		score := last.PowderScore
		s.LatestPowderScore = &score
		s.LatestPowderBand = PowderBand(score)
		s.LatestPowderDate = last.Date
	}
	for _, t := range EventTypes {
		s.LastQualified[t] = matches.LastQualified(t)
	}
	return s
}

// LatestSnowDepth is the newest non-null hourly depth.
func LatestSnowDepth(hourly []HourlyRecord) *float64 {
	for i := len(hourly) - 1; i >= 0; i-- {
		if hourly[i].SnowDepthIn != nil {
			return roundPtr(hourly[i].SnowDepthIn, 2)
		}
	}
	return nil
}

// PeakSnowDepth returns the first day reaching the maximum daily depth.
func PeakSnowDepth(daily []PowderScoreRecord) *PeakDepth {
	var peak *PeakDepth
	for _, d := range daily {
		if d.SnowDepthMaxIn == nil {
			continue
		}
		if peak == nil || *d.SnowDepthMaxIn > peak.DepthIn {
			peak = &PeakDepth{DepthIn: *d.SnowDepthMaxIn, Date: d.Date}
		}
	}
	return peak
}

// SnowDepthChange7d compares the latest end-of-day depth with the newest
// earlier day at least seven days before it.
func SnowDepthChange7d(daily []PowderScoreRecord) *float64 {
	valid := make([]PowderScoreRecord, 0, len(daily))
	for _, d := range daily {
		if d.SnowDepthEndIn != nil {
			valid = append(valid, d)
		}
	}
	if len(valid) < 2 {
		return nil
	}
	latest := valid[len(valid)-1]
	for i := len(valid) - 2; i >= 0; i-- {
		if DaysBetween(valid[i].Date, latest.Date) >= 7 {
			return Float(round(*latest.SnowDepthEndIn-*valid[i].SnowDepthEndIn, 2))
		}
	}
	return nil
}

// SnowLast24h sums snowfall over the 24 hours ending at the last record.
// Returns nil when no hour in the window reports snowfall.
func SnowLast24h(hourly []HourlyRecord) *float64 {
	if len(hourly) == 0 {
		return nil
	}
	end, err := time.Parse(HourKeyLayout, hourly[len(hourly)-1].Time)
	if err != nil {
		return nil
	}
	start := end.Add(-24 * time.Hour)

	var sum float64
	seen := 0
	for _, r := range hourly {
		t, err := time.Parse(HourKeyLayout, r.Time)
		if err != nil || !t.After(start) || t.After(end) {
			continue
		}
		if r.SnowfallIn != nil {
			sum += nonNegative(r.SnowfallIn)
			seen++
		}
	}
	if seen == 0 {
		return nil
	}
	return Float(round(sum, 2))
}
