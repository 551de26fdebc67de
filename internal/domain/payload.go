package domain

// ModelPayload is an Open-Meteo forecast or archive response. Hourly and
// daily series are parallel arrays keyed by their Time slice; JSON nulls
// decode to nil entries.
type ModelPayload struct {
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	Elevation    *float64          `json:"elevation"`
	Timezone     string            `json:"timezone"`
	Hourly       HourlySeries      `json:"hourly"`
	HourlyUnits  map[string]string `json:"hourly_units"`
	Daily        DailySeries       `json:"daily"`
	DailyUnits   map[string]string `json:"daily_units"`
	Current      *CurrentReading   `json:"current"`
	CurrentUnits map[string]string `json:"current_units"`
}

// HasHourly reports whether the payload carries a non-empty hourly time axis.
func (p ModelPayload) HasHourly() bool {
	return len(p.Hourly.Time) > 0
}

// HourlySeries holds the hourly parallel arrays.
type HourlySeries struct {
	Time                []string   `json:"time"`
	Temperature2m       []*float64 `json:"temperature_2m"`
	Snowfall            []*float64 `json:"snowfall"`
	Rain                []*float64 `json:"rain"`
	Precipitation       []*float64 `json:"precipitation"`
	WindSpeed10m        []*float64 `json:"wind_speed_10m"`
	WindGusts10m        []*float64 `json:"wind_gusts_10m"`
	ShortwaveRadiation  []*float64 `json:"shortwave_radiation"`
	SnowDepth           []*float64 `json:"snow_depth"`
	FreezingLevelHeight []*float64 `json:"freezing_level_height"`
}

// DailySeries holds the daily parallel arrays.
type DailySeries struct {
	Time        []string   `json:"time"`
	SnowfallSum []*float64 `json:"snowfall_sum"`
}

// CurrentReading is the forecast endpoint's current-conditions block.
type CurrentReading struct {
	Time          string   `json:"time"`
	Temperature2m *float64 `json:"temperature_2m"`
	WindSpeed10m  *float64 `json:"wind_speed_10m"`
	Rain          *float64 `json:"rain"`
	Snowfall      *float64 `json:"snowfall"`
	Precipitation *float64 `json:"precipitation"`
}

// at returns the i-th element of a parallel array, nil when out of range.
func at(values []*float64, i int) *float64 {
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}

// Quantity is an NWS value with its WMO unit code.
type Quantity struct {
	Value    *float64 `json:"value"`
	UnitCode string   `json:"unitCode"`
}

func (q *Quantity) value() (*float64, string) {
	if q == nil {
		return nil, ""
	}
	return q.Value, q.UnitCode
}

// PointGeometry is a GeoJSON point; coordinates are [lon, lat].
type PointGeometry struct {
	Coordinates []float64 `json:"coordinates"`
}

// LatLon returns the point's latitude and longitude.
func (g *PointGeometry) LatLon() (lat, lon float64, ok bool) {
	if g == nil || len(g.Coordinates) < 2 {
		return 0, 0, false
	}
	return g.Coordinates[1], g.Coordinates[0], true
}

// PresentWeather is one entry of an observation's presentWeather list.
type PresentWeather struct {
	Weather   string `json:"weather"`
	RawString string `json:"rawString"`
	Intensity string `json:"intensity"`
	Modifier  string `json:"modifier"`
	Coverage  string `json:"coverage"`
}

// ObservationProperties are the fields of an NWS observation feature.
type ObservationProperties struct {
	Timestamp                 string           `json:"timestamp"`
	TextDescription           string           `json:"textDescription"`
	Temperature               *Quantity        `json:"temperature"`
	WindSpeed                 *Quantity        `json:"windSpeed"`
	WindGust                  *Quantity        `json:"windGust"`
	PrecipitationLastHour     *Quantity        `json:"precipitationLastHour"`
	QuantitativePrecipitation *Quantity        `json:"quantitativePrecipitation"`
	SnowfallLastHour          *Quantity        `json:"snowfallLastHour"`
	SnowDepth                 *Quantity        `json:"snowDepth"`
	PresentWeather            []PresentWeather `json:"presentWeather"`
}

// ObservationFeature is one NWS station observation.
type ObservationFeature struct {
	ID         string                `json:"id"`
	Geometry   *PointGeometry        `json:"geometry"`
	Properties ObservationProperties `json:"properties"`
}

// StationProperties describe an NWS observation station.
type StationProperties struct {
	ID                string    `json:"@id"`
	StationIdentifier string    `json:"stationIdentifier"`
	Name              string    `json:"name"`
	Elevation         *Quantity `json:"elevation"`
}

// StationFeature is one entry of an NWS station collection.
type StationFeature struct {
	ID         string            `json:"id"`
	Geometry   *PointGeometry    `json:"geometry"`
	Properties StationProperties `json:"properties"`
}
