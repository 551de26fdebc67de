package domain

import "time"

// HistoryRange selects how much of the season a report displays.
type HistoryRange string

const (
	HistoryRange14d    HistoryRange = "14d"
	HistoryRangeSeason HistoryRange = "season"
)

// SeasonStart returns Nov 1 of the season containing day.
func SeasonStart(day time.Time) string {
	year := day.Year()
	if day.Month() < time.November {
		year--
	}
	return time.Date(year, time.November, 1, 0, 0, 0, 0, time.UTC).Format(DayKeyLayout)
}

// HistoryEndDate is yesterday, but never earlier than the season start.
func HistoryEndDate(today, seasonStart string) string {
	yesterday := AddDays(today, -1)
	if yesterday < seasonStart {
		return seasonStart
	}
	return yesterday
}

// AddDays shifts a day key. Invalid keys are returned unchanged.
func AddDays(day string, n int) string {
	t, err := time.Parse(DayKeyLayout, day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, n).Format(DayKeyLayout)
}

// DaysBetween returns the whole days from a to b, 0 on invalid keys.
func DaysBetween(a, b string) int {
	ta, errA := time.Parse(DayKeyLayout, a)
	tb, errB := time.Parse(DayKeyLayout, b)
	if errA != nil || errB != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}

// DisplayStart picks the first displayed day. The season range starts the
// day before the first snowfall (or at the season start); the 14-day range
// covers the last 14 days, clipped to the season start.
func DisplayStart(daily []PowderScoreRecord, seasonStart string, rng HistoryRange) string {
	if len(daily) == 0 {
		return seasonStart
	}
	if rng == HistoryRangeSeason {
		for _, d := range daily {
			if d.SnowfallInSum > 0 {
				return AddDays(d.Date, -1)
			}
		}
		return seasonStart
	}
	start := AddDays(daily[len(daily)-1].Date, -13)
	if start < seasonStart {
		return seasonStart
	}
	return start
}

// DisplayWindow is a report's visible slice of the season.
type DisplayWindow struct {
	Start   string
	End     string
	Hourly  []HourlyRecord
	Daily   []PowderScoreRecord
	Events  []Event
	Matches RuleMatches
}

// ApplyDisplayWindow restricts the season series to [start, latest day]. An
// empty daily slice falls back to the full season.
func ApplyDisplayWindow(hourly []HourlyRecord, daily []PowderScoreRecord, analysis RuleAnalysis, start string) DisplayWindow {
	w := DisplayWindow{Start: start}
	if len(daily) > 0 {
		w.End = daily[len(daily)-1].Date
	}

	for _, d := range daily {
		if d.Date >= start && d.Date <= w.End {
			w.Daily = append(w.Daily, d)
		}
	}
	if len(w.Daily) == 0 {
		w.Daily = daily
	}
	for _, r := range hourly {
		if r.Time >= start+"T00:00" && r.Day() <= w.End {
			w.Hourly = append(w.Hourly, r)
		}
	}
	w.Events = []Event{}
	for _, e := range analysis.Events {
		if e.Date >= start && e.Date <= w.End {
			w.Events = append(w.Events, e)
		}
	}
	w.Matches = analysis.Matches.Between(start, w.End)
	return w
}

// SeasonWindow is the date range a season load requests from the archive.
type SeasonWindow struct {
	Start      string
	Today      string
	HistoryEnd string
}

// NewSeasonWindow derives the season window for now, evaluated in UTC.
func NewSeasonWindow(now time.Time) SeasonWindow {
	utc := now.UTC()
	start := SeasonStart(utc)
	today := utc.Format(DayKeyLayout)
	return SeasonWindow{Start: start, Today: today, HistoryEnd: HistoryEndDate(today, start)}
}
