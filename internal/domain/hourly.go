package domain

import (
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // zone names resolve without system tzdata
)

// HourKey formats an absolute time as the local hour key in loc.
func HourKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02T15") + ":00"
}

// LoadLocation resolves an IANA timezone name, falling back to UTC for empty
// or unknown names (Open-Meteo's minimal candidates omit the timezone).
func LoadLocation(name string) *time.Location {
	if name == "" || strings.EqualFold(name, "auto") {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MapHourlyPayload converts a model payload's hourly arrays into canonical
// records, normalizing each field by its declared unit. Snowfall and rain fall
// back to the precipitation unit; gusts fall back to the wind unit.
func MapHourlyPayload(h HourlySeries, units map[string]string) []HourlyRecord {
	if len(h.Time) == 0 {
		return []HourlyRecord{}
	}

	precipUnit := units["precipitation"]
	snowfallUnit := unitOr(units["snowfall"], precipUnit)
	rainUnit := unitOr(units["rain"], precipUnit)
	windUnit := units["wind_speed_10m"]
	gustUnit := unitOr(units["wind_gusts_10m"], windUnit)

	records := make([]HourlyRecord, len(h.Time))
	for i, t := range h.Time {
		records[i] = HourlyRecord{
			Time:            t,
			TemperatureF:    TemperatureToF(at(h.Temperature2m, i), units["temperature_2m"]),
			SnowfallIn:      LengthToIn(at(h.Snowfall, i), snowfallUnit),
			RainIn:          LengthToIn(at(h.Rain, i), rainUnit),
			PrecipLWEIn:     LengthToIn(at(h.Precipitation, i), precipUnit),
			WindMph:         SpeedToMph(at(h.WindSpeed10m, i), windUnit),
			GustMph:         SpeedToMph(at(h.WindGusts10m, i), gustUnit),
			ShortwaveWm2:    at(h.ShortwaveRadiation, i),
			SnowDepthIn:     LengthToIn(at(h.SnowDepth, i), units["snow_depth"]),
			FreezingLevelFt: LengthToFt(at(h.FreezingLevelHeight, i), units["freezing_level_height"]),
		}
	}
	return records
}

// MapCurrentReading converts the forecast endpoint's current block into a
// model snapshot. Returns nil when the block is absent.
func MapCurrentReading(c *CurrentReading, units map[string]string) *ModelSnapshot {
	if c == nil {
		return nil
	}
	precipUnit := units["precipitation"]
	return &ModelSnapshot{
		Time:         c.Time,
		TemperatureF: TemperatureToF(c.Temperature2m, units["temperature_2m"]),
		WindMph:      SpeedToMph(c.WindSpeed10m, units["wind_speed_10m"]),
		RainIn:       LengthToIn(c.Rain, unitOr(units["rain"], precipUnit)),
		SnowfallIn:   LengthToIn(c.Snowfall, unitOr(units["snowfall"], precipUnit)),
		PrecipLWEIn:  LengthToIn(c.Precipitation, precipUnit),
	}
}

func unitOr(unit, fallback string) string {
	if unit == "" {
		return fallback
	}
	return unit
}

// MergeHourlyRecords overlays today's records onto the archive series. Today's
// records overwrite the archive only on todayDate and only up to maxHourKey
// (empty means no cutoff), so same-day forecast hours never enter history.
func MergeHourlyRecords(archive, today []HourlyRecord, todayDate, maxHourKey string) []HourlyRecord {
	byHour := make(map[string]HourlyRecord, len(archive)+len(today))
	for _, r := range archive {
		byHour[r.Time] = r
	}
	for _, r := range today {
		if r.Day() != todayDate {
			continue
		}
		if maxHourKey != "" && r.Time > maxHourKey {
			continue
		}
		byHour[r.Time] = r
	}
	return sortedRecords(byHour)
}

// ClipThroughHour keeps records at or before maxHourKey.
func ClipThroughHour(records []HourlyRecord, maxHourKey string) []HourlyRecord {
	if maxHourKey == "" {
		return append([]HourlyRecord(nil), records...)
	}
	out := make([]HourlyRecord, 0, len(records))
	for _, r := range records {
		if r.Time <= maxHourKey {
			out = append(out, r)
		}
	}
	return out
}

func sortedRecords(byHour map[string]HourlyRecord) []HourlyRecord {
	out := make([]HourlyRecord, 0, len(byHour))
	for _, r := range byHour {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// stationBin is a candidate hour record with its observation timestamp.
type stationBin struct {
	record   HourlyRecord
	observed time.Time
}

// MapStationObservations buckets station observations into local hours in loc.
// When two observations share a bucket the one with more non-null fields wins,
// ties going to the later observation.
func MapStationObservations(features []ObservationFeature, loc *time.Location) []HourlyRecord {
	bins := make(map[string]stationBin)

	for _, f := range features {
		p := f.Properties
		ts, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			continue
		}
		key := HourKey(ts, loc)

		precip := firstNonNil(quantityToIn(p.PrecipitationLastHour), quantityToIn(p.QuantitativePrecipitation))
		var rain *float64
		if precip != nil && IsRainCertain(p.PresentWeather, p.TextDescription) {
			rain = Float(*precip)
		}

		next := stationBin{
			record: HourlyRecord{
				Time:         key,
				TemperatureF: quantityToF(p.Temperature),
				SnowfallIn:   quantityToIn(p.SnowfallLastHour),
				RainIn:       rain,
				PrecipLWEIn:  precip,
				WindMph:      quantityToMph(p.WindSpeed),
				GustMph:      quantityToMph(p.WindGust),
				SnowDepthIn:  quantityToIn(p.SnowDepth),
			},
			observed: ts,
		}

		prev, ok := bins[key]
		if !ok || stationBinWins(next, prev) {
			bins[key] = next
		}
	}

	byHour := make(map[string]HourlyRecord, len(bins))
	for k, b := range bins {
		byHour[k] = b.record
	}
	return sortedRecords(byHour)
}

func stationBinWins(next, prev stationBin) bool {
	ns, ps := stationDensity(next.record), stationDensity(prev.record)
	if ns != ps {
		return ns > ps
	}
	return next.observed.After(prev.observed)
}

// stationDensity counts the populated fields a station can report.
func stationDensity(r HourlyRecord) int {
	n := 0
	for _, v := range []*float64{r.TemperatureF, r.SnowfallIn, r.RainIn, r.PrecipLWEIn, r.WindMph, r.GustMph, r.SnowDepthIn} {
		if v != nil {
			n++
		}
	}
	return n
}

func quantityToF(q *Quantity) *float64   { return TemperatureToF(q.value()) }
func quantityToIn(q *Quantity) *float64  { return LengthToIn(q.value()) }
func quantityToFt(q *Quantity) *float64  { return LengthToFt(q.value()) }
func quantityToMph(q *Quantity) *float64 { return SpeedToMph(q.value()) }
