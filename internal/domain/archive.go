package domain

// ArchiveSnowHistory is the archive product's snowfall history: daily sums by
// date and the hourly series used for today's partial sum.
type ArchiveSnowHistory struct {
	DailyByDay     map[string]float64
	Hourly         []HourlyRecord
	DailyUnit      string
	HourlyUnit     string
	LastDailyDate  string
	LastHourlyTime string
}

// MapArchiveSnowHistory normalizes an archive snowfall payload. The daily
// and hourly units fall back to each other.
func MapArchiveSnowHistory(p ModelPayload) ArchiveSnowHistory {
	dailyUnit := unitOr(p.DailyUnits["snowfall_sum"], p.HourlyUnits["snowfall"])
	hourlyUnit := unitOr(p.HourlyUnits["snowfall"], p.DailyUnits["snowfall_sum"])

	h := ArchiveSnowHistory{
		DailyByDay: make(map[string]float64, len(p.Daily.Time)),
		Hourly:     make([]HourlyRecord, 0, len(p.Hourly.Time)),
		DailyUnit:  dailyUnit,
		HourlyUnit: hourlyUnit,
	}
	for i, day := range p.Daily.Time {
		if v := LengthToIn(at(p.Daily.SnowfallSum, i), dailyUnit); v != nil && day != "" {
			h.DailyByDay[day] = *v
		}
	}
	for i, t := range p.Hourly.Time {
		if t == "" {
			continue
		}
		h.Hourly = append(h.Hourly, HourlyRecord{Time: t, SnowfallIn: LengthToIn(at(p.Hourly.Snowfall, i), hourlyUnit)})
	}
	if n := len(p.Daily.Time); n > 0 {
		h.LastDailyDate = p.Daily.Time[n-1]
	}
	if n := len(p.Hourly.Time); n > 0 {
		h.LastHourlyTime = p.Hourly.Time[n-1]
	}
	return h
}

// ArchiveSnowApplied reports the override result.
type ArchiveSnowApplied struct {
	Daily            []DailyRecord
	TodaySnowSumIn   *float64
	TodaySnowThrough string
	TodayDay         string
}

// ApplyArchiveSnowfall overrides daily snowfall sums with the archive
// product's values. Today's sum is the archive hourly snowfall through
// currentHourKey (zero without samples); days missing from the archive keep
// their own sum.
func ApplyArchiveSnowfall(daily []DailyRecord, archive ArchiveSnowHistory, currentHourKey string) ArchiveSnowApplied {
	out := ArchiveSnowApplied{Daily: make([]DailyRecord, len(daily))}
	if len(currentHourKey) >= 10 {
		out.TodayDay = currentHourKey[:10]
	}

	if out.TodayDay != "" {
		var sum float64
		seen := false
		for _, r := range archive.Hourly {
			if r.Day() != out.TodayDay || r.Time > currentHourKey {
				continue
			}
			sum += nonNegative(r.SnowfallIn)
			out.TodaySnowThrough = r.Time
			seen = true
		}
		if seen {
			out.TodaySnowSumIn = Float(round(sum, 3))
		}
	}

	for i, d := range daily {
		snow := d.SnowfallInSum
		if v, ok := archive.DailyByDay[d.Date]; ok {
			snow = v
		}
		if out.TodayDay != "" && d.Date == out.TodayDay {
			snow = valueOr(out.TodaySnowSumIn, 0)
		}
		d.SnowfallInSum = round(snow, 3)
		out.Daily[i] = d
	}
	return out
}
