// Package openmeteo fetches gridded model history, the same-day snapshot,
// the forward forecast and archive snowfall from Open-Meteo.
package openmeteo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/snowpack-etl/internal/adapter/upstream"
	"github.com/couchcryptid/snowpack-etl/internal/domain"
)

// Endpoints are the Open-Meteo API base URLs.
type Endpoints struct {
	Forecast           string
	HistoricalForecast string
	Archive            string
}

// DefaultEndpoints returns the public Open-Meteo endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Forecast:           "https://api.open-meteo.com/v1/forecast",
		HistoricalForecast: "https://historical-forecast-api.open-meteo.com/v1/forecast",
		Archive:            "https://archive-api.open-meteo.com/v1/archive",
	}
}

// Candidate source names.
const (
	SourceHistoricalForecast        = "historical-forecast"
	SourceArchive                   = "archive"
	SourceHistoricalForecastMinimal = "historical-forecast-minimal"
	SourceArchiveMinimal            = "archive-minimal"
)

// forwardForecastDays covers the seven-day window plus today.
const forwardForecastDays = 8

var (
	coreFields = []string{
		"temperature_2m",
		"snowfall",
		"rain",
		"precipitation",
		"wind_speed_10m",
		"shortwave_radiation",
		"freezing_level_height",
	}
	snowDepthFields = append(append([]string{}, coreFields...), "snow_depth")
	currentFields   = []string{"temperature_2m", "snowfall", "rain", "precipitation", "wind_speed_10m"}
)

// Client implements the model side of a season load.
type Client struct {
	http      *upstream.Client
	endpoints Endpoints
}

// NewClient creates an Open-Meteo client on top of an upstream transport.
func NewClient(http *upstream.Client, endpoints Endpoints) *Client {
	return &Client{http: http, endpoints: endpoints}
}

// FetchPayload implements domain.PayloadFetcher.
func (c *Client) FetchPayload(ctx context.Context, rawURL string) (domain.ModelPayload, error) {
	var p domain.ModelPayload
	if err := c.http.GetJSON(ctx, rawURL, &p); err != nil {
		return domain.ModelPayload{}, err
	}
	return p, nil
}

// HistoryCandidates lists the season history requests in fallback order:
// historical forecast then archive, each with and without snow depth, then
// minimal variants without a timezone.
func (c *Client) HistoryCandidates(lat, lon float64, start, end string) []domain.Candidate {
	hist, arch := c.endpoints.HistoricalForecast, c.endpoints.Archive
	return []domain.Candidate{
		{Source: SourceHistoricalForecast, URL: historyURL(hist, lat, lon, start, end, snowDepthFields, true), IncludesSnowDepth: true},
		{Source: SourceHistoricalForecast, URL: historyURL(hist, lat, lon, start, end, coreFields, true)},
		{Source: SourceArchive, URL: historyURL(arch, lat, lon, start, end, snowDepthFields, true), IncludesSnowDepth: true},
		{Source: SourceArchive, URL: historyURL(arch, lat, lon, start, end, coreFields, true)},
		{Source: SourceHistoricalForecastMinimal, URL: historyURL(hist, lat, lon, start, end, coreFields, false)},
		{Source: SourceArchiveMinimal, URL: historyURL(arch, lat, lon, start, end, coreFields, false)},
	}
}

// FetchToday fetches the same-day snapshot (two past days plus today).
func (c *Client) FetchToday(ctx context.Context, lat, lon float64) (domain.ModelPayload, error) {
	q := pointQuery(lat, lon)
	q.Set("past_days", "2")
	q.Set("forecast_days", "1")
	q.Set("hourly", strings.Join(snowDepthFields, ","))
	withImperialUnits(q)
	q.Set("timezone", "auto")
	return c.fetchHourly(ctx, c.endpoints.Forecast+"?"+q.Encode(), "today")
}

// FetchForward fetches the forward forecast with its current-conditions block.
func (c *Client) FetchForward(ctx context.Context, lat, lon float64) (domain.ModelPayload, error) {
	q := pointQuery(lat, lon)
	q.Set("forecast_days", strconv.Itoa(forwardForecastDays))
	q.Set("hourly", strings.Join(snowDepthFields, ","))
	q.Set("current", strings.Join(currentFields, ","))
	withImperialUnits(q)
	q.Set("timezone", "auto")
	return c.fetchHourly(ctx, c.endpoints.Forecast+"?"+q.Encode(), "forecast")
}

// FetchArchiveSnow fetches the archive product's daily and hourly snowfall.
// A response with neither axis is malformed.
func (c *Client) FetchArchiveSnow(ctx context.Context, lat, lon float64, start, end string) (domain.ArchiveSnowHistory, error) {
	q := pointQuery(lat, lon)
	q.Set("start_date", start)
	q.Set("end_date", end)
	q.Set("daily", "snowfall_sum")
	q.Set("hourly", "snowfall")
	q.Set("precipitation_unit", "inch")
	q.Set("timezone", "auto")

	p, err := c.FetchPayload(ctx, c.endpoints.Archive+"?"+q.Encode())
	if err != nil {
		return domain.ArchiveSnowHistory{}, err
	}
	if len(p.Daily.Time) == 0 && len(p.Hourly.Time) == 0 {
		return domain.ArchiveSnowHistory{}, fmt.Errorf("archive snowfall: %w", domain.ErrMalformedPayload)
	}
	return domain.MapArchiveSnowHistory(p), nil
}

func (c *Client) fetchHourly(ctx context.Context, rawURL, what string) (domain.ModelPayload, error) {
	p, err := c.FetchPayload(ctx, rawURL)
	if err != nil {
		return domain.ModelPayload{}, err
	}
	if !p.HasHourly() {
		return domain.ModelPayload{}, fmt.Errorf("%s: %w", what, domain.ErrMalformedPayload)
	}
	return p, nil
}

func historyURL(base string, lat, lon float64, start, end string, fields []string, withTimezone bool) string {
	q := pointQuery(lat, lon)
	q.Set("start_date", start)
	q.Set("end_date", end)
	q.Set("hourly", strings.Join(fields, ","))
	withImperialUnits(q)
	if withTimezone {
		q.Set("timezone", "auto")
	}
	return base + "?" + q.Encode()
}

func pointQuery(lat, lon float64) url.Values {
	return url.Values{
		"latitude":  {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
}

func withImperialUnits(q url.Values) {
	q.Set("temperature_unit", "fahrenheit")
	q.Set("wind_speed_unit", "mph")
	q.Set("precipitation_unit", "inch")
}
