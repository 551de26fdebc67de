package domain

import "math"

// ThermochronPoint is the coldest k-day stretch of the season: the lowest
// value, over all k-day windows, of the warmest daily high in the window.
type ThermochronPoint struct {
	Days  int     `json:"days"`
	TempF float64 `json:"temp_f"`
}

// Thermochron computes the curve for k = 1..n over runs of consecutive daily
// highs in chronological order, where n is the longest run. Windows never
// span two runs.
func Thermochron(runs ...[]float64) []ThermochronPoint {
	n := 0
	for _, r := range runs {
		n = max(n, len(r))
	}
	if n == 0 {
		return []ThermochronPoint{}
	}
	best := make([]float64, n+1)
	for k := range best {
		best[k] = math.Inf(1)
	}
	for _, highs := range runs {
		for i := range highs {
			windowMax := math.Inf(-1)
			for j := i; j < len(highs); j++ {
				windowMax = math.Max(windowMax, highs[j])
				if k := j - i + 1; windowMax < best[k] {
					best[k] = windowMax
				}
			}
		}
	}
	out := make([]ThermochronPoint, n)
	for k := 1; k <= n; k++ {
		out[k-1] = ThermochronPoint{Days: k, TempF: round(best[k], 1)}
	}
	return out
}

// SeasonHighs splits a daily series into runs of consecutive days with a
// known high. A day without a high or a missing date ends the current run.
func SeasonHighs(daily []PowderScoreRecord) [][]float64 {
	var runs [][]float64
	var cur []float64
	prevDate := ""
	for _, d := range daily {
		adjacent := prevDate == "" || d.Date == "" || d.Date == AddDays(prevDate, 1)
		if d.TempMaxF == nil || !adjacent {
			if len(cur) > 0 {
				runs = append(runs, cur)
			}
			cur = nil
		}
		if d.TempMaxF != nil {
			cur = append(cur, *d.TempMaxF)
		}
		prevDate = d.Date
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}
