package domain

import "time"

// ForwardWindowHours caps the forward forecast window at seven days.
const ForwardWindowHours = 168

// ForwardWindow is the forward forecast series plus the model's "now".
type ForwardWindow struct {
	Hourly   []HourlyRecord `json:"hourly"`
	ModelNow *ModelSnapshot `json:"model_now"`
}

// DeriveForwardWindow maps a forward forecast payload into at most
// ForwardWindowHours records starting at the current-conditions time (or the
// first hour). ModelNow is the current block, else the first window hour.
func DeriveForwardWindow(p ModelPayload) ForwardWindow {
	records := MapHourlyPayload(p.Hourly, p.HourlyUnits)
	if len(records) == 0 {
		return ForwardWindow{Hourly: []HourlyRecord{}}
	}

	now := MapCurrentReading(p.Current, p.CurrentUnits)
	start := records[0].Time
	if now != nil && now.Time != "" {
		start = now.Time
	}

	window := make([]HourlyRecord, 0, ForwardWindowHours)
	for _, r := range records {
		if r.Time < start {
			continue
		}
		if len(window) == ForwardWindowHours {
			break
		}
		window = append(window, r)
	}

	if now == nil && len(window) > 0 {
		now = snapshotOf(window[0])
	}
	return ForwardWindow{Hourly: window, ModelNow: now}
}

// ScoreForecastDays aggregates the forward hours that fall after the last
// history day and scores them as a continuation of history, so recency
// weights and days-since-snow carry into the forecast. Rules are evaluated
// over the same continued series; only forecast-day events are returned.
func ScoreForecastDays(history []DailyRecord, forward []HourlyRecord, th Thresholds) ([]PowderScoreRecord, []Event) {
	var lastDay string
	if n := len(history); n > 0 {
		lastDay = history[n-1].Date
	}
	ahead := make([]HourlyRecord, 0, len(forward))
	for _, r := range forward {
		if r.Day() > lastDay {
			ahead = append(ahead, r)
		}
	}
	if len(ahead) == 0 {
		return []PowderScoreRecord{}, []Event{}
	}

	days := append(append(make([]DailyRecord, 0, len(history)+8), history...), AggregateDaily(ahead)...)
	scored := DerivePowderScores(days)
	analysis := AnalyzeRules(scored, th)

	events := []Event{}
	for _, e := range analysis.Events {
		if e.Date > lastDay {
			events = append(events, e)
		}
	}
	return scored[len(history):], events
}

// ForwardSummary totals the forward window.
type ForwardSummary struct {
	SnowTotalIn float64  `json:"snow_total_in"`
	RainTotalIn float64  `json:"rain_total_in"`
	FreezeHours int      `json:"freeze_hours"`
	MaxWindMph  *float64 `json:"max_wind_mph"`
	MaxTempF    *float64 `json:"max_temp_f"`
	MinTempF    *float64 `json:"min_temp_f"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
}

// SummarizeForwardWindow returns nil for an empty window.
func SummarizeForwardWindow(records []HourlyRecord) *ForwardSummary {
	if len(records) == 0 {
		return nil
	}
	s := &ForwardSummary{
		StartTime: records[0].Time,
		EndTime:   records[len(records)-1].Time,
	}
	for _, r := range records {
		s.SnowTotalIn += nonNegative(r.SnowfallIn)
		s.RainTotalIn += nonNegative(r.RainIn)
		if t := r.TemperatureF; t != nil {
			s.MaxTempF = maxPtr(s.MaxTempF, *t)
			s.MinTempF = minPtr(s.MinTempF, *t)
			if *t <= FreezeF {
				s.FreezeHours++
			}
		}
		if r.WindMph != nil {
			s.MaxWindMph = maxPtr(s.MaxWindMph, *r.WindMph)
		}
	}
	s.SnowTotalIn = round(s.SnowTotalIn, 2)
	s.RainTotalIn = round(s.RainTotalIn, 2)
	s.MaxWindMph = roundPtr(s.MaxWindMph, 1)
	s.MaxTempF = roundPtr(s.MaxTempF, 1)
	s.MinTempF = roundPtr(s.MinTempF, 1)
	return s
}

// LatestHourlySnapshot returns the newest record, interpreted in loc, that is
// no older than maxAge, no more than two hours ahead of now, and carries at
// least one of temperature, wind, rain or snowfall.
func LatestHourlySnapshot(records []HourlyRecord, loc *time.Location, maxAge time.Duration) *ModelSnapshot {
	if loc == nil {
		loc = time.UTC
	}
	now := clock.Now()
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if t, err := time.ParseInLocation(HourKeyLayout, r.Time, loc); err == nil {
			if t.Before(now.Add(-maxAge)) {
				break
			}
			if t.After(now.Add(2 * time.Hour)) {
				continue
			}
		}
		if r.TemperatureF == nil && r.WindMph == nil && r.RainIn == nil && r.SnowfallIn == nil {
			continue
		}
		return snapshotOf(r)
	}
	return nil
}
