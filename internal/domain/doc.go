// Package domain models the snowpack analytics pipeline: canonical hourly
// weather records, daily aggregates, the powder score, surface-condition
// rules, and the station cross-check.
//
// # Data Sources
//
// Gridded model data comes from Open-Meteo. Season history is read from the
// historical-forecast product, falling back to the older archive product when
// the richer endpoint is unavailable or omits fields such as snow depth. A
// short "today" series and an 8-day forward forecast come from the forecast
// endpoint. Ground truth comes from National Weather Service (NWS) observation
// stations (api.weather.gov GeoJSON).
//
// # Canonical Units
//
// Every record is normalized before analysis:
//
//	temperature        °F
//	snowfall, rain     inches
//	precipitation      inches of liquid water equivalent (LWE)
//	wind, gust         mph
//	shortwave          W/m² (hourly mean, never converted)
//	snow depth         inches
//	freezing level     feet
//
// Unit strings are free text ("°C", "mm", "km/h", "wmoUnit:degC"). Empty or
// unknown units keep the value as-is, except freezing-level height which is
// assumed to be meters. See [TemperatureToF], [LengthToIn], [LengthToFt] and
// [SpeedToMph].
//
// # Time Keys
//
// Hourly records are keyed by a timezone-local hour string of the form
// "2006-01-02T15:00". Station observations carry absolute timestamps and are
// bucketed into the target timezone's local hour. Day keys are the first ten
// characters of an hour key.
//
// # Nullability
//
// Every numeric field is a *float64. A nil value means "not reported" and is
// never treated as zero by aggregation, except where a formula explicitly
// defaults it (rain, snowfall and shortwave sums).
//
// # Scores
//
// The powder score (0-100) and sun-bake index (0-100) are heuristic comparative
// indices, not stability or avalanche assessments. Every contributing term of
// the powder score is kept on [PowderScoreRecord] for explainability.
package domain
