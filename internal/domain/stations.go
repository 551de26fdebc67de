package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	earthRadiusMiles = 3958.7613
	feetPerMile      = 5280.0
)

// HaversineMiles is the great-circle distance between two points.
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// MetersToFeet converts an optional elevation.
func MetersToFeet(m *float64) *float64 {
	return scaled(m, feetPerMeter)
}

// selectionScoreFt combines horizontal and vertical separation. A missing
// distance ranks last; a missing elevation contributes no vertical offset.
func selectionScoreFt(distanceMi, elevationFt, modelElevationFt *float64) float64 {
	if distanceMi == nil {
		return math.Inf(1)
	}
	var vertical float64
	if elevationFt != nil && modelElevationFt != nil {
		vertical = math.Abs(*elevationFt - *modelElevationFt)
	}
	return math.Hypot(*distanceMi*feetPerMile, vertical)
}

// StationCandidate is a nearby station ranked for the cross-check.
type StationCandidate struct {
	Feature          StationFeature
	DistanceMi       *float64
	ElevationFt      *float64
	SelectionScoreFt float64
}

// RankStations orders stations by combined horizontal and vertical distance
// from the point, ties broken by horizontal distance.
func RankStations(lat, lon float64, features []StationFeature, modelElevationFt *float64) []StationCandidate {
	out := make([]StationCandidate, 0, len(features))
	for _, f := range features {
		c := StationCandidate{Feature: f, ElevationFt: quantityToFt(f.Properties.Elevation)}
		if sLat, sLon, ok := f.Geometry.LatLon(); ok {
			c.DistanceMi = Float(HaversineMiles(lat, lon, sLat, sLon))
		}
		c.SelectionScoreFt = selectionScoreFt(c.DistanceMi, c.ElevationFt, modelElevationFt)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SelectionScoreFt != out[j].SelectionScoreFt {
			return out[i].SelectionScoreFt < out[j].SelectionScoreFt
		}
		return valueOr(out[i].DistanceMi, 1e9) < valueOr(out[j].DistanceMi, 1e9)
	})
	return out
}

// ToHTTPS upgrades an http:// URL; NWS sometimes returns plain-http links.
func ToHTTPS(raw string) string {
	if strings.HasPrefix(raw, "http://") {
		return "https://" + raw[len("http://"):]
	}
	return raw
}

// StationURL resolves a station feature's base URL: its id, its @id, or
// apiRoot/stations/<identifier>. Returns "" when none is available.
func StationURL(f StationFeature, apiRoot string) string {
	u := ToHTTPS(f.ID)
	if u == "" {
		u = ToHTTPS(f.Properties.ID)
	}
	if u == "" && f.Properties.StationIdentifier != "" {
		u = strings.TrimRight(apiRoot, "/") + "/stations/" + f.Properties.StationIdentifier
	}
	return strings.TrimRight(u, "/")
}

// StationObservation is the latest reading of one station relative to the
// requested point.
type StationObservation struct {
	StationID       string   `json:"station_id"`
	StationName     string   `json:"station_name"`
	StationURL      string   `json:"station_url"`
	StationLat      *float64 `json:"station_lat"`
	StationLon      *float64 `json:"station_lon"`
	DistanceMi      *float64 `json:"distance_mi"`
	ElevationFt     *float64 `json:"elevation_ft"`
	TemperatureF    *float64 `json:"temperature_f"`
	WindMph         *float64 `json:"wind_mph"`
	PrecipIn        *float64 `json:"precip_in"`
	ObsTime         string   `json:"obs_time_iso"`
	ObsAgeMin       *float64 `json:"obs_age_min"`
	TextDescription string   `json:"text_description"`
}

// Usable reports whether the observation carries any comparable metric.
func (o StationObservation) Usable() bool {
	return o.TemperatureF != nil || o.WindMph != nil || o.PrecipIn != nil
}

// NewStationObservation builds a StationObservation from a candidate and its
// latest observation feature. Distance is recomputed from the observation's
// own point when present.
func NewStationObservation(lat, lon float64, c StationCandidate, stationURL string, latest ObservationFeature) StationObservation {
	p := latest.Properties

	id := c.Feature.Properties.StationIdentifier
	if id == "" {
		id = stationURL[strings.LastIndexByte(stationURL, '/')+1:]
	}
	if id == "" {
		id = "station"
	}
	name := c.Feature.Properties.Name
	if name == "" {
		name = id
	}

	obs := StationObservation{
		StationID:       id,
		StationName:     name,
		StationURL:      stationURL,
		DistanceMi:      c.DistanceMi,
		ElevationFt:     roundPtr(c.ElevationFt, 0),
		TemperatureF:    quantityToF(p.Temperature),
		WindMph:         quantityToMph(p.WindSpeed),
		PrecipIn:        firstNonNil(quantityToIn(p.PrecipitationLastHour), quantityToIn(p.QuantitativePrecipitation)),
		ObsTime:         p.Timestamp,
		TextDescription: p.TextDescription,
	}
	if oLat, oLon, ok := latest.Geometry.LatLon(); ok {
		obs.StationLat, obs.StationLon = Float(oLat), Float(oLon)
		obs.DistanceMi = Float(HaversineMiles(lat, lon, oLat, oLon))
	}
	obs.DistanceMi = roundPtr(obs.DistanceMi, 2)

	if ts, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
		age := math.Max(0, clock.Since(ts).Minutes())
		obs.ObsAgeMin = Float(round(age, 1))
	}
	return obs
}

// SelectBestObservation drops unusable observations and returns the closest
// remaining one by combined distance.
func SelectBestObservation(observations []StationObservation, modelElevationFt *float64) (StationObservation, bool) {
	usable := make([]StationObservation, 0, len(observations))
	for _, o := range observations {
		if o.Usable() {
			usable = append(usable, o)
		}
	}
	if len(usable) == 0 {
		return StationObservation{}, false
	}
	vertical := func(o StationObservation) float64 {
		if o.ElevationFt == nil || modelElevationFt == nil {
			return 0
		}
		return math.Abs(*o.ElevationFt - *modelElevationFt)
	}
	sort.SliceStable(usable, func(i, j int) bool {
		a, b := usable[i], usable[j]
		sa := selectionScoreFt(a.DistanceMi, a.ElevationFt, modelElevationFt)
		sb := selectionScoreFt(b.DistanceMi, b.ElevationFt, modelElevationFt)
		if sa != sb {
			return sa < sb
		}
		da, db := valueOr(a.DistanceMi, math.Inf(1)), valueOr(b.DistanceMi, math.Inf(1))
		if da != db {
			return da < db
		}
		return vertical(a) < vertical(b)
	})
	return usable[0], true
}
