package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// hourKeys returns n consecutive UTC hour keys starting at start.
func hourKeys(start time.Time, n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = start.Add(time.Duration(i) * time.Hour).Format(HourKeyLayout)
	}
	return keys
}

// repeat returns n copies of v as nullable values.
func repeat(v float64, n int) []*float64 {
	out := make([]*float64, n)
	for i := range out {
		out[i] = Float(v)
	}
	return out
}

// useFakeClock installs a fake package clock for the duration of the test.
func useFakeClock(t *testing.T, now time.Time) *clockwork.FakeClock {
	t.Helper()
	fc := clockwork.NewFakeClockAt(now)
	SetClock(fc)
	t.Cleanup(func() { SetClock(nil) })
	return fc
}

func scoredDays(days ...DailyRecord) []PowderScoreRecord {
	out := make([]PowderScoreRecord, len(days))
	for i, d := range days {
		out[i] = PowderScoreRecord{DailyRecord: d}
	}
	return out
}
