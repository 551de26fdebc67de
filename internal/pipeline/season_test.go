package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/couchcryptid/snowpack-etl/internal/observability"
	"github.com/couchcryptid/snowpack-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loadNow = time.Date(2024, time.December, 10, 18, 0, 0, 0, time.UTC)

func useFakeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(loadNow))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func f(v float64) *float64 { return &v }

// hourlyPayload builds n hours from start with constant conditions.
func hourlyPayload(start time.Time, n int, tempF, snowIn float64) domain.ModelPayload {
	h := domain.HourlySeries{}
	for i := range n {
		h.Time = append(h.Time, start.Add(time.Duration(i)*time.Hour).Format(domain.HourKeyLayout))
		h.Temperature2m = append(h.Temperature2m, f(tempF))
		h.Snowfall = append(h.Snowfall, f(snowIn))
		h.WindSpeed10m = append(h.WindSpeed10m, f(12))
		h.SnowDepth = append(h.SnowDepth, f(0.5))
	}
	return domain.ModelPayload{
		Timezone:    "UTC",
		Elevation:   f(3000),
		Hourly:      h,
		HourlyUnits: map[string]string{"temperature_2m": "°F", "snowfall": "inch", "wind_speed_10m": "mp/h", "snow_depth": "m"},
	}
}

type fakeModel struct {
	historyErr error
	archiveErr error
	todayErr   error
	forwardErr error

	// blockFirst makes the first history fetch wait for cancellation.
	blockFirst bool
	entered    chan struct{}
	calls      atomic.Int32
}

func (m *fakeModel) HistoryCandidates(_, _ float64, start, end string) []domain.Candidate {
	return []domain.Candidate{
		{Source: "historical-forecast", URL: "hist?" + start + "&" + end, IncludesSnowDepth: true},
		{Source: "archive", URL: "archive?" + start + "&" + end},
	}
}

func (m *fakeModel) FetchPayload(ctx context.Context, _ string) (domain.ModelPayload, error) {
	if m.blockFirst && m.calls.Add(1) == 1 {
		close(m.entered)
		<-ctx.Done()
		return domain.ModelPayload{}, ctx.Err()
	}
	if m.historyErr != nil {
		return domain.ModelPayload{}, m.historyErr
	}
	return hourlyPayload(time.Date(2024, time.December, 7, 0, 0, 0, 0, time.UTC), 72, 24, 0.2), nil
}

func (m *fakeModel) FetchToday(_ context.Context, _, _ float64) (domain.ModelPayload, error) {
	if m.todayErr != nil {
		return domain.ModelPayload{}, m.todayErr
	}
	return hourlyPayload(time.Date(2024, time.December, 10, 0, 0, 0, 0, time.UTC), 24, 28, 0.1), nil
}

func (m *fakeModel) FetchForward(_ context.Context, _, _ float64) (domain.ModelPayload, error) {
	if m.forwardErr != nil {
		return domain.ModelPayload{}, m.forwardErr
	}
	p := hourlyPayload(time.Date(2024, time.December, 10, 0, 0, 0, 0, time.UTC), 48, 22, 0.3)
	p.Current = &domain.CurrentReading{Time: "2024-12-10T18:00", Temperature2m: f(27), WindSpeed10m: f(9)}
	p.CurrentUnits = map[string]string{"temperature_2m": "°F", "wind_speed_10m": "mp/h"}
	return p, nil
}

func (m *fakeModel) FetchArchiveSnow(_ context.Context, _, _ float64, _, _ string) (domain.ArchiveSnowHistory, error) {
	if m.archiveErr != nil {
		return domain.ArchiveSnowHistory{}, m.archiveErr
	}
	return domain.ArchiveSnowHistory{DailyByDay: map[string]float64{"2024-12-08": 3.5}}, nil
}

type fakeStations struct {
	findErr    error
	historyErr error
	historyURL string
}

func (s *fakeStations) BaseURL() string { return "https://api.weather.gov" }

func (s *fakeStations) FindStations(_ context.Context, _, _ float64) ([]domain.StationFeature, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return []domain.StationFeature{
		{
			ID:       "https://api.weather.gov/stations/KCOP",
			Geometry: &domain.PointGeometry{Coordinates: []float64{-105.95, 39.62}},
			Properties: domain.StationProperties{
				StationIdentifier: "KCOP",
				Name:              "Copper Mountain",
				Elevation:         &domain.Quantity{Value: f(2950), UnitCode: "wmoUnit:m"},
			},
		},
		{
			ID:         "https://api.weather.gov/stations/KDEAD",
			Properties: domain.StationProperties{StationIdentifier: "KDEAD"},
		},
	}, nil
}

func (s *fakeStations) LatestObservation(_ context.Context, stationURL string) (domain.ObservationFeature, error) {
	if strings.HasSuffix(stationURL, "KDEAD") {
		return domain.ObservationFeature{}, errors.New("503 unavailable")
	}
	return domain.ObservationFeature{Properties: domain.ObservationProperties{
		Timestamp:   "2024-12-10T17:30:00+00:00",
		Temperature: &domain.Quantity{Value: f(-3), UnitCode: "wmoUnit:degC"},
		WindSpeed:   &domain.Quantity{Value: f(16), UnitCode: "wmoUnit:km_h-1"},
	}}, nil
}

func (s *fakeStations) ObservationHistory(_ context.Context, stationURL string, _, _ time.Time) ([]domain.ObservationFeature, error) {
	s.historyURL = stationURL
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	obs := func(ts string, c float64) domain.ObservationFeature {
		return domain.ObservationFeature{Properties: domain.ObservationProperties{
			Timestamp:   ts,
			Temperature: &domain.Quantity{Value: f(c), UnitCode: "wmoUnit:degC"},
		}}
	}
	return []domain.ObservationFeature{
		obs("2024-12-09T10:00:00+00:00", -6),
		obs("2024-12-09T11:00:00+00:00", -5),
		obs("2024-12-09T11:40:00+00:00", -4),
	}, nil
}

func newLoader(model *fakeModel, stations *fakeStations, metrics *observability.Metrics) *pipeline.SeasonLoader {
	return pipeline.NewSeasonLoader(model, stations, stations, domain.DefaultThresholds(), discardLogger(), metrics)
}

func modelRequest() domain.LoadRequest {
	return domain.LoadRequest{Lat: 39.6, Lon: -105.9, DataMode: domain.DataModeModel, HistoryRange: domain.HistoryRangeSeason}
}

func TestSeasonLoader_Load_ModelMode(t *testing.T) {
	useFakeClock(t)
	metrics := observability.NewMetricsForTesting()

	report, err := newLoader(&fakeModel{}, &fakeStations{}, metrics).Load(context.Background(), modelRequest())

	require.NoError(t, err)
	assert.Len(t, report.RunID, 36)
	assert.Equal(t, uint64(1), report.Token)
	assert.Equal(t, "39.6000,-105.9000", report.LocationKey)
	assert.Equal(t, "historical-forecast", report.Meta.HistorySource)
	assert.True(t, report.Meta.HistoryIncludesSnowDepth)
	assert.Equal(t, "2024-11-01", report.Meta.SeasonStart)
	assert.Empty(t, report.Meta.Degradations)

	require.NotEmpty(t, report.Daily)
	assert.Equal(t, "2024-12-10", report.Daily[len(report.Daily)-1].Date)
	for _, d := range report.Daily {
		if d.Date == "2024-12-08" {
			assert.InDelta(t, 3.5, d.SnowfallInSum, 1e-9, "archive daily sum overrides")
		}
	}
	assert.Equal(t, "2024-12-10T18:00", report.Hourly[len(report.Hourly)-1].Time, "history clipped at the current hour")

	require.NotNil(t, report.StationCheck.Payload)
	assert.Equal(t, "KCOP", report.StationCheck.Payload.StationObs.StationID)
	assert.NotNil(t, report.StationCheck.Payload.ConfidenceScore)

	require.NotNil(t, report.Forecast)
	assert.NotEmpty(t, report.Forecast.Hourly)
}

func TestSeasonLoader_Load_OptionalFailuresDegrade(t *testing.T) {
	useFakeClock(t)
	metrics := observability.NewMetricsForTesting()
	model := &fakeModel{todayErr: errors.New("boom"), forwardErr: errors.New("429 quota")}
	stations := &fakeStations{findErr: errors.New("nws points: 404")}

	report, err := newLoader(model, stations, metrics).Load(context.Background(), modelRequest())

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"Today snapshot unavailable: boom",
		"Forecast unavailable: 429 quota",
		"Station check unavailable: nws points: 404",
	}, report.Meta.Degradations)
	assert.Nil(t, report.Forecast)
	assert.Nil(t, report.StationCheck.Payload)
	assert.Equal(t, "nws points: 404", report.StationCheck.Message)
	assert.Equal(t, "2024-12-09T23:00", report.Hourly[len(report.Hourly)-1].Time, "no today snapshot to extend history")

	assert.InDelta(t, 1, counterValue(t, metrics.Degradations.WithLabelValues(pipeline.BranchToday)), 1e-9)
	assert.InDelta(t, 1, counterValue(t, metrics.Degradations.WithLabelValues(pipeline.BranchForward)), 1e-9)
	assert.InDelta(t, 1, counterValue(t, metrics.SourceAttempts.WithLabelValues(pipeline.BranchHistory, "success")), 1e-9)
}

func TestSeasonLoader_Load_HistoryExhausted(t *testing.T) {
	useFakeClock(t)
	metrics := observability.NewMetricsForTesting()

	_, err := newLoader(&fakeModel{historyErr: errors.New("500 upstream")}, &fakeStations{}, metrics).
		Load(context.Background(), modelRequest())

	var exhausted *domain.SourceExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, pipeline.BranchHistory, exhausted.Branch)
	assert.Equal(t, "History request failed. historical-forecast: 500 upstream | archive: 500 upstream", err.Error())
	assert.InDelta(t, 2, counterValue(t, metrics.SourceAttempts.WithLabelValues(pipeline.BranchHistory, "failure")), 1e-9)
}

func TestSeasonLoader_Load_ArchiveIsMandatory(t *testing.T) {
	useFakeClock(t)

	_, err := newLoader(&fakeModel{archiveErr: domain.ErrMalformedPayload}, &fakeStations{}, observability.NewMetricsForTesting()).
		Load(context.Background(), modelRequest())

	var exhausted *domain.SourceExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, pipeline.BranchArchive, exhausted.Branch)
	assert.False(t, domain.IsCancelled(err))
}

func TestSeasonLoader_Load_NewerRunSupersedes(t *testing.T) {
	useFakeClock(t)
	model := &fakeModel{blockFirst: true, entered: make(chan struct{})}
	loader := newLoader(model, &fakeStations{}, observability.NewMetricsForTesting())

	errCh := make(chan error, 1)
	go func() {
		_, err := loader.Load(context.Background(), modelRequest())
		errCh <- err
	}()
	<-model.entered

	report, err := loader.Load(context.Background(), modelRequest())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), report.Token)

	oldErr := <-errCh
	require.ErrorIs(t, oldErr, domain.ErrCancelled)
	assert.Contains(t, oldErr.Error(), "superseded")
}

func TestSeasonLoader_Load_StationMode(t *testing.T) {
	useFakeClock(t)
	stations := &fakeStations{}
	req := modelRequest()
	req.DataMode = domain.DataModeStation

	report, err := newLoader(&fakeModel{}, stations, observability.NewMetricsForTesting()).Load(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "https://api.weather.gov/stations/KCOP", stations.historyURL, "best cross-check station is used")
	assert.Equal(t, "2 station hourly bins from 3 obs", report.Meta.StationNote)
	assert.Equal(t, 2, report.MetricSources["temperature"].Station)
	assert.Equal(t, "mixed", report.ChartSources["temperature"])
}

func TestSeasonLoader_Load_StationModeRequestedID(t *testing.T) {
	useFakeClock(t)

	t.Run("builds the station URL from the id", func(t *testing.T) {
		stations := &fakeStations{}
		req := modelRequest()
		req.DataMode = domain.DataModeStation
		req.StationID = "KLXV"

		report, err := newLoader(&fakeModel{}, stations, observability.NewMetricsForTesting()).Load(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "https://api.weather.gov/stations/KLXV", stations.historyURL)
		assert.Equal(t, "2 station hourly bins from 3 obs", report.Meta.StationNote)
	})

	t.Run("no nearby stations", func(t *testing.T) {
		stations := &fakeStations{findErr: errors.New("404 not found")}
		req := modelRequest()
		req.DataMode = domain.DataModeStation
		req.StationID = "KLXV"

		report, err := newLoader(&fakeModel{}, stations, observability.NewMetricsForTesting()).Load(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "https://api.weather.gov/stations/KLXV", stations.historyURL, "history does not depend on the cross-check")
		assert.Equal(t, 2, report.MetricSources["temperature"].Station)
	})
}

func TestSeasonLoader_Load_StationModeFallsBack(t *testing.T) {
	useFakeClock(t)
	req := modelRequest()
	req.DataMode = domain.DataModeStation
	req.StationURL = "https://api.weather.gov/stations/KLXV"

	stations := &fakeStations{historyErr: errors.New("503 unavailable")}
	report, err := newLoader(&fakeModel{}, stations, observability.NewMetricsForTesting()).Load(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "https://api.weather.gov/stations/KLXV", stations.historyURL, "requested station wins")
	assert.Equal(t, "fallback to model (503 unavailable)", report.Meta.StationNote)
	assert.Contains(t, report.Meta.Degradations, "Station history unavailable: 503 unavailable")
	assert.Zero(t, report.MetricSources["temperature"].Station)
}

func TestSeasonLoader_Transform_InvalidRequest(t *testing.T) {
	useFakeClock(t)
	loader := newLoader(&fakeModel{}, &fakeStations{}, observability.NewMetricsForTesting())

	_, err := loader.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"lat": 120, "lon": 0}`)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate load request")
}
