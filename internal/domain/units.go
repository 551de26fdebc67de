package domain

import "strings"

// Conversion factors shared by the model and station normalizers.
const (
	mmPerInch        = 25.4
	cmPerInch        = 2.54
	inchesPerMeter   = 39.37007874
	feetPerMeter     = 3.280839895
	mphPerKmh        = 0.621371192
	mphPerMetersSec  = 2.23693629
	mphPerKnot       = 1.15077945
	mphPerFeetSecond = 0.681818182
)

// normalizeUnit lower-cases and trims a unit string and strips a namespace
// prefix such as "wmoUnit:" so NWS unit codes and Open-Meteo unit labels share
// one vocabulary ("wmoUnit:degC" -> "degc", "km/h" -> "km/h").
func normalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if i := strings.LastIndexByte(u, ':'); i >= 0 {
		u = u[i+1:]
	}
	return u
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// TemperatureToF converts a temperature to °F. Units mentioning "f" are
// already Fahrenheit, "k"/"kelvin" are Kelvin, anything else mentioning "c" is
// Celsius. Empty or unrecognized units are assumed to be °F.
func TemperatureToF(v *float64, unit string) *float64 {
	if v == nil {
		return nil
	}
	u := normalizeUnit(unit)
	switch {
	case u == "":
		return Float(*v)
	case strings.Contains(u, "f"):
		return Float(*v)
	case u == "k" || strings.Contains(u, "kelvin") || u == "degk":
		return Float((*v-273.15)*9/5 + 32)
	case strings.Contains(u, "c"):
		return Float(*v*9/5 + 32)
	default:
		return Float(*v)
	}
}

// LengthToIn converts a length to inches. Empty or unrecognized units are
// assumed to be inches already.
func LengthToIn(v *float64, unit string) *float64 {
	if v == nil {
		return nil
	}
	u := normalizeUnit(unit)
	switch {
	case u == "" || u == "in" || strings.Contains(u, "inch"):
		return Float(*v)
	case u == "mm" || strings.Contains(u, "millimet"):
		return Float(*v / mmPerInch)
	case u == "cm" || strings.Contains(u, "centimet"):
		return Float(*v / cmPerInch)
	case u == "m" || containsAny(u, "meter", "metre"):
		return Float(*v * inchesPerMeter)
	case u == "ft" || containsAny(u, "foot", "feet"):
		return Float(*v * 12)
	default:
		return Float(*v)
	}
}

// LengthToFt converts a length to feet. An empty unit is assumed to be
// meters: freezing-level heights usually arrive without a unit.
func LengthToFt(v *float64, unit string) *float64 {
	if v == nil {
		return nil
	}
	u := normalizeUnit(unit)
	switch {
	case u == "":
		return Float(*v * feetPerMeter)
	case u == "ft" || containsAny(u, "foot", "feet"):
		return Float(*v)
	case u == "mm" || strings.Contains(u, "millimet"):
		return Float(*v / (mmPerInch * 12))
	case u == "cm" || strings.Contains(u, "centimet"):
		return Float(*v / (cmPerInch * 12))
	case u == "m" || containsAny(u, "meter", "metre"):
		return Float(*v * feetPerMeter)
	case u == "in" || strings.Contains(u, "inch"):
		return Float(*v / 12)
	default:
		return Float(*v)
	}
}

// SpeedToMph converts a speed to mph. Empty or unrecognized units are assumed
// to be mph already.
func SpeedToMph(v *float64, unit string) *float64 {
	if v == nil {
		return nil
	}
	u := normalizeUnit(unit)
	switch {
	case u == "" || u == "mph" || strings.Contains(u, "mile"):
		return Float(*v)
	case containsAny(u, "km/h", "kmh", "km_h", "kph"):
		return Float(*v * mphPerKmh)
	case containsAny(u, "m/s", "m_s", "ms-1"):
		return Float(*v * mphPerMetersSec)
	case containsAny(u, "ft/s", "ft_s", "fps"):
		return Float(*v * mphPerFeetSecond)
	case u == "kn" || u == "kt" || containsAny(u, "knot"):
		return Float(*v * mphPerKnot)
	default:
		return Float(*v)
	}
}
