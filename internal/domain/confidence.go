package domain

import "math"

// Confidence labels.
const (
	ConfidenceHigh    = "High"
	ConfidenceMedium  = "Medium"
	ConfidenceLow     = "Low"
	ConfidenceUnknown = "Unknown"
)

// StationConfidencePayload compares a station reading against the model's
// "now" snapshot. Deltas are model minus station.
type StationConfidencePayload struct {
	StationObs       StationObservation `json:"station_obs"`
	ConfidenceScore  *int               `json:"confidence_score"`
	ConfidenceLabel  string             `json:"confidence_label"`
	TempDelta        *float64           `json:"temp_delta"`
	WindDelta        *float64           `json:"wind_delta"`
	PrecipDelta      *float64           `json:"precip_delta"`
	ElevationDeltaFt *float64           `json:"elevation_delta_ft"`
}

// StationCheck is either a confidence payload or a failure message.
type StationCheck struct {
	Payload *StationConfidencePayload `json:"payload,omitempty"`
	Message string                    `json:"message,omitempty"`
}

// StationCheckFailed wraps a failure message.
func StationCheckFailed(msg string) StationCheck {
	return StationCheck{Message: msg}
}

// step maps inputs up to limit onto score.
type step struct {
	limit float64
	score float64
}

var (
	distanceSteps  = []step{{5, 100}, {15, 88}, {30, 72}, {50, 55}, {80, 38}}
	elevationSteps = []step{{500, 95}, {1000, 82}, {2000, 65}, {3000, 45}}
	ageSteps       = []step{{30, 100}, {90, 85}, {180, 68}, {360, 52}, {720, 32}}
	tempSteps      = []step{{2, 100}, {4, 86}, {7, 68}, {10, 48}}
	windSteps      = []step{{3, 100}, {6, 84}, {10, 66}, {15, 46}}
	precipSteps    = []step{{0.03, 100}, {0.08, 80}, {0.15, 60}, {0.25, 40}}
)

// stepScore returns nil for a nil input, otherwise the first step whose limit
// covers |v|, else floor.
func stepScore(v *float64, steps []step, floor float64) *float64 {
	if v == nil {
		return nil
	}
	a := math.Abs(*v)
	for _, s := range steps {
		if a <= s.limit {
			return Float(s.score)
		}
	}
	return Float(floor)
}

func delta(model, station *float64) *float64 {
	if model == nil || station == nil {
		return nil
	}
	return Float(*model - *station)
}

// ScoreStationConfidence weights six sub-scores (distance, elevation delta,
// observation age, temperature, wind and precipitation deltas). Sub-scores
// without inputs are left out of both the numerator and the denominator.
func ScoreStationConfidence(obs StationObservation, modelNow *ModelSnapshot, modelElevationM *float64) StationConfidencePayload {
	var now ModelSnapshot
	if modelNow != nil {
		now = *modelNow
	}
	p := StationConfidencePayload{
		StationObs:       obs,
		TempDelta:        delta(now.TemperatureF, obs.TemperatureF),
		WindDelta:        delta(now.WindMph, obs.WindMph),
		PrecipDelta:      delta(now.PrecipLWEIn, obs.PrecipIn),
		ElevationDeltaFt: delta(MetersToFeet(modelElevationM), obs.ElevationFt),
	}

	parts := []struct {
		score  *float64
		weight float64
	}{
		{stepScore(obs.DistanceMi, distanceSteps, 22), 1.4},
		{stepScore(p.ElevationDeltaFt, elevationSteps, 30), 1.0},
		{stepScore(obs.ObsAgeMin, ageSteps, 18), 1.2},
		{stepScore(p.TempDelta, tempSteps, 28), 1.2},
		{stepScore(p.WindDelta, windSteps, 25), 0.9},
		{stepScore(p.PrecipDelta, precipSteps, 25), 0.6},
	}
	var weighted, total float64
	for _, part := range parts {
		if part.score == nil {
			continue
		}
		weighted += *part.score * part.weight
		total += part.weight
	}
	if total > 0 {
		score := int(math.Round(weighted / total))
		p.ConfidenceScore = &score
	}
	p.ConfidenceLabel = ConfidenceLabel(p.ConfidenceScore)
	return p
}

// ConfidenceLabel buckets a confidence score.
func ConfidenceLabel(score *int) string {
	switch {
	case score == nil:
		return ConfidenceUnknown
	case *score >= 78:
		return ConfidenceHigh
	case *score >= 58:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
