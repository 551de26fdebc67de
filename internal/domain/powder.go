package domain

import "math"

const (
	// NoRecentSnowDays is the days-since-snow value reported before any day
	// with measurable snowfall has been seen. It means "no recent snow
	// observed", not a literal count.
	NoRecentSnowDays = 30

	// MeasurableSnowIn is the daily snowfall that resets days-since-snow.
	MeasurableSnowIn = 0.1

	powderBaseline = 32.0
)

// recency weights for today, yesterday, two and three days ago.
var snowRecencyWeights = [4]float64{1, 0.65, 0.4, 0.2}

// DerivePowderScores scores every day of an ascending daily series.
func DerivePowderScores(daily []DailyRecord) []PowderScoreRecord {
	out := make([]PowderScoreRecord, len(daily))
	lastSnowIdx := -1

	for i, d := range daily {
		if math.Max(0, d.SnowfallInSum) >= MeasurableSnowIn {
			lastSnowIdx = i
		}
		daysSinceSnow := NoRecentSnowDays
		if lastSnowIdx >= 0 {
			daysSinceSnow = i - lastSnowIdx
		}

		terms := powderTerms(daily, i, daysSinceSnow)
		raw := powderBaseline +
			terms.FreshBoost +
			terms.QualityBonus -
			terms.AgePenalty -
			terms.ThawPenalty -
			terms.RainPenalty -
			terms.SunPenalty -
			terms.WindPenalty +
			terms.DensityAdjustment -
			terms.CoveragePenalty

		out[i] = PowderScoreRecord{
			DailyRecord: d,
			PowderScore: int(math.Round(clamp(raw, 0, 100))),
			PowderTerms: terms.rounded(),
		}
	}
	return out
}

// dayAt returns the record i days before idx, or nil before the series start.
func dayAt(daily []DailyRecord, idx, back int) *DailyRecord {
	if idx-back < 0 {
		return nil
	}
	return &daily[idx-back]
}

func powderTerms(daily []DailyRecord, i, daysSinceSnow int) PowderTerms {
	d := daily[i]
	prev1 := dayAt(daily, i, 1)
	prev2 := dayAt(daily, i, 2)

	var recentSnow, recentLWE float64
	for back, w := range snowRecencyWeights {
		if p := dayAt(daily, i, back); p != nil {
			recentSnow += math.Max(0, p.SnowfallInSum) * w
			recentLWE += math.Max(0, p.SnowLWEInSum) * w
		}
	}
	t := PowderTerms{
		RecentSnowIn:    recentSnow,
		RecentSnowLWEIn: recentLWE,
		DaysSinceSnow:   daysSinceSnow,
		FreshBoost:      clamp01(recentSnow/9) * 58,
	}

	// Warmth: missing highs inherit the next-newer day, today defaults to 28F.
	tmax0 := valueOr(d.TempMaxF, 28)
	tmax1 := tmax0
	if prev1 != nil && prev1.TempMaxF != nil {
		tmax1 = *prev1.TempMaxF
	}
	tmax2 := tmax1
	if prev2 != nil && prev2.TempMaxF != nil {
		tmax2 = *prev2.TempMaxF
	}
	warm := tmax0*0.55 + tmax1*0.3 + tmax2*0.15
	thawW := float64(d.ThawHours) + float64(thawHoursOf(prev1))*0.45 + float64(thawHoursOf(prev2))*0.2
	t.ThawPenalty = (0.6*clamp01((warm-32)/14) + 0.4*clamp01(thawW/12)) * 24

	rainW := math.Max(0, d.RainRawInSum) + rainOf(prev1)*0.65 + rainOf(prev2)*0.35
	t.RainPenalty = clamp01(rainW/0.45) * 56

	sunW := math.Max(0, d.ShortwaveMJM2Sum) + sunOf(prev1)*0.55
	t.SunPenalty = clamp01(sunW/24) * (0.4 + 0.6*clamp01((warm-30)/10)) * 18

	windW := nonNegative(d.WindMaxMph) + windOf(prev1)*0.5
	t.WindPenalty = clamp01((windW-15)/35) * 14
	if recentSnow > 2 {
		t.WindPenalty *= 1.25
	}

	if recentSnow >= 0.25 && recentLWE > 0 {
		t.DensityLWEPerIn = Float(recentLWE / recentSnow)
	}
	t.FluffRatio = d.FluffFactor
	if t.FluffRatio == nil && t.DensityLWEPerIn != nil {
		t.FluffRatio = Float(1 / *t.DensityLWEPerIn)
	}
	t.DensityPenalty = densityPenalty(t.FluffRatio)
	if recentSnow >= 0.5 {
		t.FluffBonus = fluffBonus(t.FluffRatio)
	}
	t.DensityAdjustment = t.FluffBonus - t.DensityPenalty

	t.AgePenalty = clamp01(float64(daysSinceSnow-1)/6) * 22

	if recentSnow >= 0.5 {
		fluffQ := 0.5
		if t.FluffRatio != nil {
			fluffQ = clamp01((*t.FluffRatio - 7) / 10)
		}
		t.QualityBonus = (0.34*clamp01(recentSnow/8) +
			0.24*clamp01((35-warm)/10) +
			0.16*clamp01(1-rainW/0.12) +
			0.1*clamp01(1-sunW/20) +
			0.08*clamp01(1-math.Max(0, windW-10)/25) +
			0.08*fluffQ) * 14
	}

	t.CoveragePenalty = coveragePenalty(valueOr(firstNonNil(d.SnowDepthEndIn, d.SnowDepthMaxIn), 0))
	return t
}

// densityPenalty penalizes dense snow: ratios of 6:1 and above are neutral,
// below that the penalty ramps from 0 to 20 at 3:1.
func densityPenalty(ratio *float64) float64 {
	if ratio == nil || *ratio >= 6 {
		return 0
	}
	return clamp01((6-*ratio)/3) * 20
}

// fluffBonus rewards light snow above 10:1, reaching 20 at 28:1.
func fluffBonus(ratio *float64) float64 {
	if ratio == nil {
		return 0
	}
	r := *ratio
	switch {
	case r <= 10:
		return 0
	case r <= 15:
		return clamp01((r-10)/5) * 8
	case r <= 20:
		return 8 + clamp01((r-15)/5)*8
	default:
		return 16 + clamp01((r-20)/8)*4
	}
}

func coveragePenalty(depthIn float64) float64 {
	switch {
	case depthIn >= 8:
		return 0
	case depthIn >= 4:
		return 8
	case depthIn >= 2:
		return 16
	default:
		return 24
	}
}

func thawHoursOf(d *DailyRecord) int {
	if d == nil {
		return 0
	}
	return d.ThawHours
}

func rainOf(d *DailyRecord) float64 {
	if d == nil {
		return 0
	}
	return math.Max(0, d.RainRawInSum)
}

func sunOf(d *DailyRecord) float64 {
	if d == nil {
		return 0
	}
	return math.Max(0, d.ShortwaveMJM2Sum)
}

func windOf(d *DailyRecord) float64 {
	if d == nil {
		return 0
	}
	return nonNegative(d.WindMaxMph)
}

// rounded returns the terms at display precision.
func (t PowderTerms) rounded() PowderTerms {
	t.RecentSnowIn = round(t.RecentSnowIn, 2)
	t.RecentSnowLWEIn = round(t.RecentSnowLWEIn, 3)
	t.FreshBoost = round(t.FreshBoost, 1)
	t.AgePenalty = round(t.AgePenalty, 1)
	t.ThawPenalty = round(t.ThawPenalty, 1)
	t.RainPenalty = round(t.RainPenalty, 1)
	t.SunPenalty = round(t.SunPenalty, 1)
	t.WindPenalty = round(t.WindPenalty, 1)
	t.DensityLWEPerIn = roundPtr(t.DensityLWEPerIn, 3)
	t.FluffRatio = roundPtr(t.FluffRatio, 1)
	t.DensityPenalty = round(t.DensityPenalty, 1)
	t.FluffBonus = round(t.FluffBonus, 1)
	t.DensityAdjustment = round(t.DensityAdjustment, 1)
	t.QualityBonus = round(t.QualityBonus, 1)
	return t
}

// PowderBand names a powder score range.
func PowderBand(score int) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	case score >= 40:
		return "Variable"
	case score >= 20:
		return "Poor"
	default:
		return "Very Poor"
	}
}
