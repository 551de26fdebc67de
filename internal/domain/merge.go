package domain

import "strings"

// Metric names tracked by MetricSourceStats.
const (
	MetricTemperature   = "temperature"
	MetricSnowfall      = "snowfall"
	MetricRain          = "rain"
	MetricPrecip        = "precip"
	MetricWind          = "wind"
	MetricShortwave     = "shortwave"
	MetricSnowDepth     = "snow_depth"
	MetricFreezingLevel = "freezing_level"
)

// Source labels for per-metric and per-chart attribution.
const (
	SourceModel   = "model"
	SourceStation = "station"
	SourceMixed   = "mixed"
)

// SourceCounts counts how many merged hours took a metric from each side.
type SourceCounts struct {
	Station int `json:"station"`
	Model   int `json:"model"`
}

// MetricSourceStats maps a metric name to its provenance counts. It is used
// for reporting only.
type MetricSourceStats map[string]SourceCounts

// NewMetricSourceStats returns stats with every tracked metric at zero.
func NewMetricSourceStats() MetricSourceStats {
	return MetricSourceStats{
		MetricTemperature:   {},
		MetricSnowfall:      {},
		MetricRain:          {},
		MetricPrecip:        {},
		MetricWind:          {},
		MetricShortwave:     {},
		MetricSnowDepth:     {},
		MetricFreezingLevel: {},
	}
}

// ModelOnlyStats is the attribution of a run that merged no station data:
// every count is zero except a single model snowfall.
func ModelOnlyStats() MetricSourceStats {
	s := NewMetricSourceStats()
	s.attributeSnowfallToModel()
	return s
}

// choose returns the station value when present, else the model value, and
// counts the side that supplied it.
func (s MetricSourceStats) choose(metric string, station, model *float64) *float64 {
	c := s[metric]
	var v *float64
	switch {
	case station != nil:
		c.Station++
		v = station
	case model != nil:
		c.Model++
		v = model
	}
	s[metric] = c
	return v
}

// attributeSnowfallToModel moves every snowfall count to the model side,
// keeping the model count at least 1.
func (s MetricSourceStats) attributeSnowfallToModel() {
	c := s[MetricSnowfall]
	total := c.Station + c.Model
	s[MetricSnowfall] = SourceCounts{Station: 0, Model: max(total, 1)}
}

// Source labels a group of metrics as model, station or mixed.
func (s MetricSourceStats) Source(metrics ...string) string {
	var station, model int
	for _, m := range metrics {
		c, ok := s[m]
		if !ok {
			continue
		}
		station += c.Station
		model += c.Model
	}
	switch {
	case station <= 0:
		return SourceModel
	case model <= 0:
		return SourceStation
	default:
		return SourceMixed
	}
}

// ChartMetrics lists the metrics behind each output chart group.
var ChartMetrics = map[string][]string{
	"events":         {MetricTemperature, MetricWind, MetricSnowfall, MetricRain, MetricSnowDepth, MetricShortwave},
	"temperature":    {MetricTemperature},
	"freezing_level": {MetricFreezingLevel},
	"precip":         {MetricSnowfall, MetricRain},
	"fluff":          {MetricSnowfall, MetricPrecip, MetricRain},
	"powder":         {MetricTemperature, MetricWind, MetricSnowfall, MetricRain, MetricPrecip, MetricSnowDepth, MetricShortwave},
	"snowpack":       {MetricSnowDepth},
	"wind":           {MetricWind},
	"sun":            {MetricShortwave},
}

// ChartSources labels every chart group. Model-mode runs are always "model".
func ChartSources(mode DataMode, stats MetricSourceStats) map[string]string {
	out := make(map[string]string, len(ChartMetrics))
	for chart, metrics := range ChartMetrics {
		if mode != DataModeStation {
			out[chart] = SourceModel
			continue
		}
		out[chart] = stats.Source(metrics...)
	}
	return out
}

// MergeModelAndStation walks the model series and, per hour and per metric,
// prefers the station value for the same hour key. Station-only hours are not
// added. Gusts follow the same precedence but are not counted. Snowfall counts
// are finally attributed to the model side for reporting.
func MergeModelAndStation(model, station []HourlyRecord) ([]HourlyRecord, MetricSourceStats) {
	stats := NewMetricSourceStats()
	byHour := make(map[string]HourlyRecord, len(station))
	for _, r := range station {
		if r.Time != "" {
			byHour[r.Time] = r
		}
	}

	merged := make([]HourlyRecord, len(model))
	for i, m := range model {
		s := byHour[m.Time]
		merged[i] = HourlyRecord{
			Time:            m.Time,
			TemperatureF:    stats.choose(MetricTemperature, s.TemperatureF, m.TemperatureF),
			SnowfallIn:      stats.choose(MetricSnowfall, s.SnowfallIn, m.SnowfallIn),
			RainIn:          stats.choose(MetricRain, s.RainIn, m.RainIn),
			PrecipLWEIn:     stats.choose(MetricPrecip, s.PrecipLWEIn, m.PrecipLWEIn),
			WindMph:         stats.choose(MetricWind, s.WindMph, m.WindMph),
			GustMph:         firstNonNil(s.GustMph, m.GustMph),
			ShortwaveWm2:    stats.choose(MetricShortwave, s.ShortwaveWm2, m.ShortwaveWm2),
			SnowDepthIn:     stats.choose(MetricSnowDepth, s.SnowDepthIn, m.SnowDepthIn),
			FreezingLevelFt: stats.choose(MetricFreezingLevel, s.FreezingLevelFt, m.FreezingLevelFt),
		}
	}
	stats.attributeSnowfallToModel()
	return merged, stats
}

var (
	snowSignals = []string{"snow", "flurr", "sleet", "ice pellet", "graupel"}
	rainSignals = []string{"rain", "drizzle", "showers", "shower"}
)

// IsRainCertain reports whether an observation's weather text names a
// rain-type phenomenon and no snow-type phenomenon.
func IsRainCertain(present []PresentWeather, description string) bool {
	var chunks []string
	for _, pw := range present {
		for _, s := range []string{pw.Weather, pw.RawString, pw.Intensity, pw.Modifier, pw.Coverage} {
			if s != "" {
				chunks = append(chunks, strings.ToLower(s))
			}
		}
	}
	if description != "" {
		chunks = append(chunks, strings.ToLower(description))
	}
	text := strings.Join(chunks, " ")
	if text == "" || containsAny(text, snowSignals...) {
		return false
	}
	return containsAny(text, rainSignals...)
}
