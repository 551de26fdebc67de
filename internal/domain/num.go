package domain

import "math"

// Float returns a pointer to v. It keeps literal nullable values readable.
func Float(v float64) *float64 {
	return &v
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

// round rounds half away from zero to the given number of decimal places.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	return Float(round(*v, places))
}

// valueOr dereferences v, returning def when v is nil.
func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// nonNegative treats nil as zero and clips negatives, the convention for
// accumulated amounts such as snowfall and rain.
func nonNegative(v *float64) float64 {
	if v == nil {
		return 0
	}
	return math.Max(0, *v)
}

func scaled(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v * factor)
}

func firstNonNil(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}
