package domain

import "sort"

const (
	// FreezeF is the freeze/thaw split: hours at or below count as freeze.
	FreezeF = 32.0

	// SnowToLiquidFallbackRatio infers snow liquid from snowfall depth when no
	// precipitation total is reported.
	SnowToLiquidFallbackRatio = 7.0

	// wm2HourToMJ converts one hourly-mean W/m² sample to MJ/m².
	wm2HourToMJ = 0.0036

	fluffSnowFloorIn = 0.05
	fluffLWEFloorIn  = 0.01
)

// PhaseSplit is an hour's liquid-equivalent precipitation split by phase.
// RainLWEIn + SnowLWEIn always equals TotalLWEIn.
type PhaseSplit struct {
	RainLWEIn  float64
	SnowLWEIn  float64
	TotalLWEIn float64
}

// SplitPrecipPhase splits an hour's liquid equivalent into rain and snow.
//
// With a reported precipitation total, rain is clamped to the total and the
// remainder is snow. With rain alone, everything is rain. With only snowfall
// depth, snow liquid is depth / 7. Otherwise all parts are zero. No
// temperature-based phase override is applied.
func SplitPrecipPhase(r HourlyRecord) PhaseSplit {
	rain := nonNegative(r.RainIn)
	precip := nonNegative(r.PrecipLWEIn)

	if precip > 0 {
		rainLWE := clamp(rain, 0, precip)
		return PhaseSplit{RainLWEIn: rainLWE, SnowLWEIn: precip - rainLWE, TotalLWEIn: precip}
	}
	if rain > 0 {
		return PhaseSplit{RainLWEIn: rain, TotalLWEIn: rain}
	}
	if depth := nonNegative(r.SnowfallIn); depth > 0 {
		snowLWE := depth / SnowToLiquidFallbackRatio
		return PhaseSplit{SnowLWEIn: snowLWE, TotalLWEIn: snowLWE}
	}
	return PhaseSplit{}
}

// SunBakeIndex scores surface solar heating 0-100 from the day's shortwave
// total, max temperature and thaw hours. Unknown max temperature scores 0.
func SunBakeIndex(shortwaveMJ float64, tempMaxF *float64, thawHours int) int {
	if tempMaxF == nil {
		return 0
	}
	sun := clamp01(shortwaveMJ / 18)
	temp := clamp01((*tempMaxF - 28) / 12)
	thaw := clamp01(float64(thawHours) / 8)
	return int(round(100*sun*(0.65*temp+0.35*thaw), 0))
}

// FluffFactor is snowfall depth over snow liquid, nil on trace amounts.
func FluffFactor(snowfallIn, snowLWEIn float64) *float64 {
	if snowfallIn <= fluffSnowFloorIn || snowLWEIn <= fluffLWEFloorIn {
		return nil
	}
	return Float(snowfallIn / snowLWEIn)
}

type dayAccumulator struct {
	DailyRecord
	windSum   float64
	windCount int
}

// AggregateDaily folds an hourly series into one record per calendar day in
// ascending date order.
func AggregateDaily(hourly []HourlyRecord) []DailyRecord {
	byDay := make(map[string]*dayAccumulator)

	for _, r := range hourly {
		day := r.Day()
		d, ok := byDay[day]
		if !ok {
			d = &dayAccumulator{DailyRecord: DailyRecord{Date: day}}
			byDay[day] = d
		}
		d.add(r)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([]DailyRecord, 0, len(days))
	for _, day := range days {
		out = append(out, byDay[day].finish())
	}
	return out
}

func (d *dayAccumulator) add(r HourlyRecord) {
	if r.SnowfallIn != nil {
		d.SnowfallInSum += *r.SnowfallIn
	}
	if r.RainIn != nil {
		d.RainRawInSum += *r.RainIn
		d.RainInSum += *r.RainIn
	}

	phase := SplitPrecipPhase(r)
	d.SnowLWEInSum += phase.SnowLWEIn
	d.LWEInSum += phase.TotalLWEIn

	if r.WindMph != nil {
		d.windSum += *r.WindMph
		d.windCount++
		d.WindMaxMph = maxPtr(d.WindMaxMph, *r.WindMph)
	}

	if t := r.TemperatureF; t != nil {
		d.TempMinF = minPtr(d.TempMinF, *t)
		d.TempMaxF = maxPtr(d.TempMaxF, *t)
		if *t <= FreezeF {
			d.FreezeHours++
		} else {
			d.ThawHours++
		}
	}

	if r.ShortwaveWm2 != nil {
		d.ShortwaveMJM2Sum += *r.ShortwaveWm2 * wm2HourToMJ
	}

	if r.SnowDepthIn != nil {
		d.SnowDepthEndIn = Float(*r.SnowDepthIn)
		d.SnowDepthMaxIn = maxPtr(d.SnowDepthMaxIn, *r.SnowDepthIn)
	}
}

func (d *dayAccumulator) finish() DailyRecord {
	out := d.DailyRecord
	out.SunBakeIndex = SunBakeIndex(d.ShortwaveMJM2Sum, d.TempMaxF, d.ThawHours)
	out.FluffFactor = roundPtr(FluffFactor(d.SnowfallInSum, d.SnowLWEInSum), 2)

	out.SnowfallInSum = round(d.SnowfallInSum, 3)
	out.RainRawInSum = round(d.RainRawInSum, 3)
	out.RainInSum = round(d.RainInSum, 3)
	out.SnowLWEInSum = round(d.SnowLWEInSum, 3)
	out.LWEInSum = round(d.LWEInSum, 3)
	if d.windCount > 0 {
		out.WindAvgMph = Float(round(d.windSum/float64(d.windCount), 2))
	}
	out.WindMaxMph = roundPtr(d.WindMaxMph, 2)
	out.TempMinF = roundPtr(d.TempMinF, 1)
	out.TempMaxF = roundPtr(d.TempMaxF, 1)
	out.ShortwaveMJM2Sum = round(d.ShortwaveMJM2Sum, 2)
	out.SnowDepthEndIn = roundPtr(d.SnowDepthEndIn, 2)
	out.SnowDepthMaxIn = roundPtr(d.SnowDepthMaxIn, 2)
	return out
}

func maxPtr(cur *float64, v float64) *float64 {
	if cur == nil || v > *cur {
		return Float(v)
	}
	return cur
}

func minPtr(cur *float64, v float64) *float64 {
	if cur == nil || v < *cur {
		return Float(v)
	}
	return cur
}
