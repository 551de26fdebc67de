package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPrecipPhase(t *testing.T) {
	tests := []struct {
		name  string
		rec   HourlyRecord
		rain  float64
		snow  float64
		total float64
	}{
		{"precip with rain", HourlyRecord{PrecipLWEIn: Float(0.3), RainIn: Float(0.1)}, 0.1, 0.2, 0.3},
		{"rain clamped to precip", HourlyRecord{PrecipLWEIn: Float(0.3), RainIn: Float(0.5)}, 0.3, 0, 0.3},
		{"precip without rain is snow", HourlyRecord{PrecipLWEIn: Float(0.2), SnowfallIn: Float(3)}, 0, 0.2, 0.2},
		{"rain only", HourlyRecord{RainIn: Float(0.2)}, 0.2, 0, 0.2},
		{"snowfall depth fallback", HourlyRecord{SnowfallIn: Float(0.7)}, 0, 0.1, 0.1},
		{"negative values clip", HourlyRecord{PrecipLWEIn: Float(-1), RainIn: Float(-1)}, 0, 0, 0},
		{"nothing", HourlyRecord{}, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPrecipPhase(tt.rec)
			assert.InDelta(t, tt.rain, got.RainLWEIn, 1e-9)
			assert.InDelta(t, tt.snow, got.SnowLWEIn, 1e-9)
			assert.InDelta(t, tt.total, got.TotalLWEIn, 1e-9)
			assert.InDelta(t, got.TotalLWEIn, got.RainLWEIn+got.SnowLWEIn, 1e-9)
		})
	}
}

func TestAggregateDaily(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var hourly []HourlyRecord
	for i, key := range hourKeys(start, 24) {
		r := HourlyRecord{
			Time:         key,
			TemperatureF: Float(20 + float64(i)),
			SnowfallIn:   Float(0.1),
			WindMph:      Float(float64(i)),
			SnowDepthIn:  Float(10 + float64(i)*0.1),
		}
		if i >= 8 && i < 18 {
			r.ShortwaveWm2 = Float(500)
		}
		hourly = append(hourly, r)
	}
	for _, key := range hourKeys(start.Add(24*time.Hour), 2) {
		hourly = append(hourly, HourlyRecord{Time: key})
	}

	daily := AggregateDaily(hourly)
	require.Len(t, daily, 2)

	d := daily[0]
	assert.Equal(t, "2024-01-01", d.Date)
	assert.InDelta(t, 2.4, d.SnowfallInSum, 1e-9)
	assert.InDelta(t, 0.343, d.SnowLWEInSum, 1e-9)
	assert.InDelta(t, 0.343, d.LWEInSum, 1e-9)
	assert.Zero(t, d.RainInSum)
	assert.InDelta(t, 11.5, *d.WindAvgMph, 1e-9)
	assert.InDelta(t, 23, *d.WindMaxMph, 1e-9)
	assert.InDelta(t, 20, *d.TempMinF, 1e-9)
	assert.InDelta(t, 43, *d.TempMaxF, 1e-9)
	assert.Equal(t, 13, d.FreezeHours)
	assert.Equal(t, 11, d.ThawHours)
	assert.InDelta(t, 18, d.ShortwaveMJM2Sum, 1e-9)
	assert.InDelta(t, 12.3, *d.SnowDepthEndIn, 1e-9)
	assert.InDelta(t, 12.3, *d.SnowDepthMaxIn, 1e-9)
	assert.Equal(t, 100, d.SunBakeIndex)
	require.NotNil(t, d.FluffFactor)
	assert.InDelta(t, 7, *d.FluffFactor, 1e-9)

	empty := daily[1]
	assert.Equal(t, "2024-01-02", empty.Date)
	assert.Nil(t, empty.TempMinF)
	assert.Nil(t, empty.WindAvgMph)
	assert.Nil(t, empty.SnowDepthEndIn)
	assert.Nil(t, empty.FluffFactor)
	assert.Zero(t, empty.FreezeHours+empty.ThawHours)
	assert.Zero(t, empty.SunBakeIndex)
}

func TestAggregateDailyConservesTotals(t *testing.T) {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	keys := hourKeys(start, 72)
	hourly := make([]HourlyRecord, len(keys))
	var snow, lwe float64
	for i, key := range keys {
		r := HourlyRecord{Time: key, SnowfallIn: Float(float64(i%5) * 0.13)}
		if i%3 == 0 {
			r.PrecipLWEIn = Float(0.021)
			r.RainIn = Float(0.007)
		}
		if i%4 == 0 {
			r.TemperatureF = Float(float64(i % 40))
		}
		hourly[i] = r
		snow += *r.SnowfallIn
		lwe += SplitPrecipPhase(r).TotalLWEIn
	}

	daily := AggregateDaily(hourly)
	require.Len(t, daily, 3)

	var gotSnow, gotLWE float64
	for _, d := range daily {
		gotSnow += d.SnowfallInSum
		gotLWE += d.LWEInSum
		assert.LessOrEqual(t, d.FreezeHours+d.ThawHours, 24)
		assert.InDelta(t, d.LWEInSum, d.RainInSum+d.SnowLWEInSum, 0.002)
	}
	assert.InDelta(t, snow, gotSnow, 0.003)
	assert.InDelta(t, lwe, gotLWE, 0.003)
}

func TestSunBakeIndex(t *testing.T) {
	assert.Zero(t, SunBakeIndex(30, nil, 10))
	assert.Equal(t, 100, SunBakeIndex(18, Float(40), 8))
	assert.Equal(t, 65, SunBakeIndex(18, Float(40), 0))
	assert.Zero(t, SunBakeIndex(0, Float(40), 8))
}

func TestFluffFactor(t *testing.T) {
	assert.Nil(t, FluffFactor(0.05, 0.5))
	assert.Nil(t, FluffFactor(2, 0.01))
	require.NotNil(t, FluffFactor(3, 0.2))
	assert.InDelta(t, 15, *FluffFactor(3, 0.2), 1e-9)
}
