//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/snowpack-etl/internal/adapter/nws"
	"github.com/couchcryptid/snowpack-etl/internal/adapter/openmeteo"
	"github.com/couchcryptid/snowpack-etl/internal/adapter/upstream"
	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/couchcryptid/snowpack-etl/internal/observability"
	"github.com/couchcryptid/snowpack-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

var loadNow = time.Date(2024, time.December, 10, 18, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func useFakeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(loadNow))
	t.Cleanup(func() { domain.SetClock(nil) })
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("snowpack-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func f(v float64) *float64 { return &v }

func hourlyPayload(start time.Time, n int, tempF, snowIn float64) domain.ModelPayload {
	h := domain.HourlySeries{}
	for i := range n {
		h.Time = append(h.Time, start.Add(time.Duration(i)*time.Hour).Format(domain.HourKeyLayout))
		h.Temperature2m = append(h.Temperature2m, f(tempF))
		h.Snowfall = append(h.Snowfall, f(snowIn))
		h.WindSpeed10m = append(h.WindSpeed10m, f(10))
		h.SnowDepth = append(h.SnowDepth, f(0.6))
	}
	return domain.ModelPayload{
		Timezone:    "UTC",
		Elevation:   f(3100),
		Hourly:      h,
		HourlyUnits: map[string]string{"temperature_2m": "°F", "snowfall": "inch", "wind_speed_10m": "mp/h", "snow_depth": "m"},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// startOpenMeteo serves history, archive snowfall, today and forward payloads.
func startOpenMeteo(t *testing.T) openmeteo.Endpoints {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/archive") && q.Get("daily") != "":
			writeJSON(w, domain.ModelPayload{
				Timezone:   "UTC",
				Daily:      domain.DailySeries{Time: []string{"2024-12-08", "2024-12-09"}, SnowfallSum: []*float64{f(4), f(1.5)}},
				DailyUnits: map[string]string{"snowfall_sum": "inch"},
			})
		case strings.HasPrefix(r.URL.Path, "/historical"):
			writeJSON(w, hourlyPayload(time.Date(2024, time.December, 7, 0, 0, 0, 0, time.UTC), 96, 23, 0.15))
		case q.Get("current") != "":
			p := hourlyPayload(time.Date(2024, time.December, 10, 0, 0, 0, 0, time.UTC), 8*24, 21, 0.05)
			p.Current = &domain.CurrentReading{Time: "2024-12-10T18:00", Temperature2m: f(22), WindSpeed10m: f(8)}
			p.CurrentUnits = map[string]string{"temperature_2m": "°F", "wind_speed_10m": "mp/h"}
			writeJSON(w, p)
		case strings.HasPrefix(r.URL.Path, "/v1/forecast"):
			writeJSON(w, hourlyPayload(time.Date(2024, time.December, 8, 0, 0, 0, 0, time.UTC), 72, 25, 0.1))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return openmeteo.Endpoints{
		Forecast:           srv.URL + "/v1/forecast",
		HistoricalForecast: srv.URL + "/historical/v1/forecast",
		Archive:            srv.URL + "/v1/archive",
	}
}

// startNWS serves one station with a recent observation. The feature has no
// id so its URL resolves against the plain-http stub root.
func startNWS(t *testing.T) string {
	t.Helper()

	var base string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/points/"):
			_, _ = io.WriteString(w, `{"properties":{"observationStations":"`+base+`/gridpoints/BOU/1,1/stations"}}`)
		case strings.HasSuffix(r.URL.Path, "/stations"):
			_, _ = io.WriteString(w, `{"features":[{"geometry":{"coordinates":[-105.95,39.62]},
				"properties":{"stationIdentifier":"KCOP","name":"Copper Mountain","elevation":{"value":3000,"unitCode":"wmoUnit:m"}}}]}`)
		case strings.HasSuffix(r.URL.Path, "/observations/latest"):
			_, _ = io.WriteString(w, `{"properties":{"timestamp":"2024-12-10T17:45:00+00:00",
				"temperature":{"value":-5,"unitCode":"wmoUnit:degC"},"windSpeed":{"value":14,"unitCode":"wmoUnit:km_h-1"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	base = srv.URL
	t.Cleanup(srv.Close)
	return base
}

// newSeasonLoader wires the real upstream adapters against the stub servers.
func newSeasonLoader(t *testing.T, metrics *observability.Metrics) *pipeline.SeasonLoader {
	t.Helper()

	model := openmeteo.NewClient(upstream.NewClient(upstream.Settings{Name: "open-meteo", Timeout: 5 * time.Second}, metrics), startOpenMeteo(t))
	stations := nws.NewClient(upstream.NewClient(upstream.Settings{
		Name:      "nws",
		Timeout:   5 * time.Second,
		UserAgent: "snowpack-etl-test",
		Accept:    "application/geo+json",
	}, metrics), startNWS(t))

	return pipeline.NewSeasonLoader(model, nws.NewCachedLocator(stations, 16, metrics), stations, domain.DefaultThresholds(), discardLogger(), metrics)
}
