package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreStationConfidence(t *testing.T) {
	t.Run("close agreement scores high", func(t *testing.T) {
		obs := StationObservation{
			StationID:    "KTEST",
			DistanceMi:   Float(2),
			ElevationFt:  Float(3280.839895),
			ObsAgeMin:    Float(10),
			TemperatureF: Float(24),
			WindMph:      Float(8),
			PrecipIn:     Float(0),
		}
		now := &ModelSnapshot{TemperatureF: Float(25), WindMph: Float(9), PrecipLWEIn: Float(0.01)}

		got := ScoreStationConfidence(obs, now, Float(1000))

		require.NotNil(t, got.ConfidenceScore)
		// Every input scores 100 except the equal elevation step at 95.
		assert.Equal(t, 99, *got.ConfidenceScore)
		assert.Equal(t, ConfidenceHigh, got.ConfidenceLabel)
		assert.InDelta(t, 1, *got.TempDelta, 1e-9)
		assert.InDelta(t, 1, *got.WindDelta, 1e-9)
		assert.InDelta(t, 0.01, *got.PrecipDelta, 1e-9)
		assert.InDelta(t, 0, *got.ElevationDeltaFt, 1e-6)
		assert.Equal(t, "KTEST", got.StationObs.StationID)
	})

	t.Run("missing sub-scores are excluded from the weights", func(t *testing.T) {
		obs := StationObservation{DistanceMi: Float(10), ObsAgeMin: Float(100)}

		got := ScoreStationConfidence(obs, nil, nil)

		require.NotNil(t, got.ConfidenceScore)
		// (88*1.4 + 68*1.2) / 2.6
		assert.Equal(t, 79, *got.ConfidenceScore)
		assert.Nil(t, got.TempDelta)
		assert.Nil(t, got.ElevationDeltaFt)
	})

	t.Run("far and stale falls to the floors", func(t *testing.T) {
		obs := StationObservation{DistanceMi: Float(200), ObsAgeMin: Float(5000)}

		got := ScoreStationConfidence(obs, nil, nil)

		require.NotNil(t, got.ConfidenceScore)
		assert.Equal(t, 20, *got.ConfidenceScore)
		assert.Equal(t, ConfidenceLow, got.ConfidenceLabel)
	})

	t.Run("no inputs is unknown", func(t *testing.T) {
		got := ScoreStationConfidence(StationObservation{}, nil, nil)

		assert.Nil(t, got.ConfidenceScore)
		assert.Equal(t, ConfidenceUnknown, got.ConfidenceLabel)
	})
}

func TestConfidenceLabel(t *testing.T) {
	score := func(v int) *int { return &v }

	assert.Equal(t, ConfidenceHigh, ConfidenceLabel(score(78)))
	assert.Equal(t, ConfidenceMedium, ConfidenceLabel(score(77)))
	assert.Equal(t, ConfidenceMedium, ConfidenceLabel(score(58)))
	assert.Equal(t, ConfidenceLow, ConfidenceLabel(score(57)))
	assert.Equal(t, ConfidenceUnknown, ConfidenceLabel(nil))
}

func TestStepScore(t *testing.T) {
	assert.Nil(t, stepScore(nil, tempSteps, 28))
	assert.InDelta(t, 100, *stepScore(Float(-2), tempSteps, 28), 1e-9, "absolute value is scored")
	assert.InDelta(t, 86, *stepScore(Float(2.5), tempSteps, 28), 1e-9)
	assert.InDelta(t, 28, *stepScore(Float(11), tempSteps, 28), 1e-9)
}
