package domain

// HourKeyLayout is the layout of a timezone-local hour key.
const HourKeyLayout = "2006-01-02T15:04"

// DayKeyLayout is the layout of a calendar day key.
const DayKeyLayout = "2006-01-02"

// HourlyRecord is one canonical hour. Every metric is independently nullable.
type HourlyRecord struct {
	Time            string   `json:"time"`
	TemperatureF    *float64 `json:"temperature_f"`
	SnowfallIn      *float64 `json:"snowfall_in"`
	RainIn          *float64 `json:"rain_in"`
	PrecipLWEIn     *float64 `json:"precip_lwe_in"`
	WindMph         *float64 `json:"wind_mph"`
	GustMph         *float64 `json:"gust_mph"`
	ShortwaveWm2    *float64 `json:"shortwave_wm2"`
	SnowDepthIn     *float64 `json:"snow_depth_in"`
	FreezingLevelFt *float64 `json:"freezing_level_ft"`
}

// Day returns the calendar day portion of the hour key.
func (r HourlyRecord) Day() string {
	if len(r.Time) < 10 {
		return r.Time
	}
	return r.Time[:10]
}

// DailyRecord is the fold of all hourly records sharing a calendar day.
type DailyRecord struct {
	Date             string   `json:"date"`
	SnowfallInSum    float64  `json:"snowfall_in_sum"`
	RainRawInSum     float64  `json:"rain_raw_in_sum"`
	RainInSum        float64  `json:"rain_in_sum"`
	SnowLWEInSum     float64  `json:"snow_lwe_in_sum"`
	LWEInSum         float64  `json:"lwe_in_sum"`
	WindAvgMph       *float64 `json:"wind_avg_mph"`
	WindMaxMph       *float64 `json:"wind_max_mph"`
	TempMinF         *float64 `json:"temp_min_f"`
	TempMaxF         *float64 `json:"temp_max_f"`
	FreezeHours      int      `json:"freeze_hours"`
	ThawHours        int      `json:"thaw_hours"`
	ShortwaveMJM2Sum float64  `json:"shortwave_mj_m2_sum"`
	SnowDepthEndIn   *float64 `json:"snow_depth_end_in"`
	SnowDepthMaxIn   *float64 `json:"snow_depth_max_in"`
	SunBakeIndex     int      `json:"sun_bake_index"`
	FluffFactor      *float64 `json:"fluff_factor"`
}

// PowderTerms are the retained contributions to a day's powder score.
type PowderTerms struct {
	RecentSnowIn      float64  `json:"powder_recent_snow_in"`
	RecentSnowLWEIn   float64  `json:"powder_recent_snow_lwe_in"`
	DaysSinceSnow     int      `json:"powder_days_since_snow"`
	FreshBoost        float64  `json:"powder_fresh_boost"`
	AgePenalty        float64  `json:"powder_age_penalty"`
	ThawPenalty       float64  `json:"powder_thaw_penalty"`
	RainPenalty       float64  `json:"powder_rain_penalty"`
	SunPenalty        float64  `json:"powder_sun_penalty"`
	WindPenalty       float64  `json:"powder_wind_penalty"`
	DensityLWEPerIn   *float64 `json:"powder_density_lwe_per_in"`
	FluffRatio        *float64 `json:"powder_fluff_ratio"`
	DensityPenalty    float64  `json:"powder_density_penalty"`
	FluffBonus        float64  `json:"powder_fluff_bonus"`
	DensityAdjustment float64  `json:"powder_density_adjustment"`
	QualityBonus      float64  `json:"powder_quality_bonus"`
	CoveragePenalty   float64  `json:"powder_coverage_penalty"`
}

// PowderScoreRecord is a DailyRecord extended with its powder score.
type PowderScoreRecord struct {
	DailyRecord
	PowderScore int `json:"powder_score"`
	PowderTerms
}

// EventType names one of the four surface-condition rules.
type EventType string

const (
	EventFreeze EventType = "freeze"
	EventRain   EventType = "rain"
	EventWind   EventType = "wind"
	EventSun    EventType = "sun"
)

// EventTypes lists the rules in evaluation order.
var EventTypes = []EventType{EventFreeze, EventRain, EventWind, EventSun}

// Event is a dated rule hit.
type Event struct {
	Date   string    `json:"date"`
	Type   EventType `json:"type"`
	Title  string    `json:"title"`
	Detail string    `json:"detail"`
}

// ModelSnapshot is the model's "now" reading used by the station cross-check.
type ModelSnapshot struct {
	Time         string   `json:"time"`
	TemperatureF *float64 `json:"temperature_f"`
	WindMph      *float64 `json:"wind_mph"`
	RainIn       *float64 `json:"rain_in"`
	SnowfallIn   *float64 `json:"snowfall_in"`
	PrecipLWEIn  *float64 `json:"precip_lwe_in"`
}

func snapshotOf(r HourlyRecord) *ModelSnapshot {
	return &ModelSnapshot{
		Time:         r.Time,
		TemperatureF: r.TemperatureF,
		WindMph:      r.WindMph,
		RainIn:       r.RainIn,
		SnowfallIn:   r.SnowfallIn,
		PrecipLWEIn:  r.PrecipLWEIn,
	}
}
