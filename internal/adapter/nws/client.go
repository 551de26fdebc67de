// Package nws reads observation stations and their observations from the
// National Weather Service API.
package nws

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/snowpack-etl/internal/adapter/upstream"
	"github.com/couchcryptid/snowpack-etl/internal/domain"
)

// DefaultBaseURL is the public NWS API root.
const DefaultBaseURL = "https://api.weather.gov"

const (
	stationLimit     = 8
	observationLimit = 500
	maxHistoryPages  = 40
)

// Client implements the station side of a season load.
type Client struct {
	http    *upstream.Client
	baseURL string
}

// NewClient creates an NWS client. baseURL defaults to DefaultBaseURL.
func NewClient(http *upstream.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/")}
}

// link upgrades a returned plain-http link when the API root is https.
func (c *Client) link(raw string) string {
	if strings.HasPrefix(c.baseURL, "https://") {
		return domain.ToHTTPS(raw)
	}
	return raw
}

// BaseURL returns the API root used to resolve bare station identifiers.
func (c *Client) BaseURL() string { return c.baseURL }

type pointResponse struct {
	Properties struct {
		ObservationStations string `json:"observationStations"`
	} `json:"properties"`
}

type stationCollection struct {
	Features []domain.StationFeature `json:"features"`
}

type nextLink struct {
	Next string `json:"next"`
}

type observationPage struct {
	Features   []domain.ObservationFeature `json:"features"`
	Pagination *nextLink                   `json:"pagination"`
	NextPage   string                      `json:"nextPage"`
	Next       string                      `json:"next"`
	Links      *nextLink                   `json:"links"`
}

// nextURL returns the first pagination link the page carries.
func (p observationPage) nextURL() string {
	switch {
	case p.Pagination != nil && p.Pagination.Next != "":
		return p.Pagination.Next
	case p.NextPage != "":
		return p.NextPage
	case p.Next != "":
		return p.Next
	case p.Links != nil:
		return p.Links.Next
	}
	return ""
}

// FindStations resolves the point's observation station collection and
// returns up to eight stations in API order.
func (c *Client) FindStations(ctx context.Context, lat, lon float64) ([]domain.StationFeature, error) {
	var point pointResponse
	pointURL := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)
	if err := c.http.GetJSON(ctx, pointURL, &point); err != nil {
		return nil, fmt.Errorf("nws points: %w", err)
	}
	stationsURL := c.link(point.Properties.ObservationStations)
	if stationsURL == "" {
		return nil, fmt.Errorf("nws points: no observation stations: %w", domain.ErrMalformedPayload)
	}

	u, err := url.Parse(stationsURL)
	if err != nil {
		return nil, fmt.Errorf("parse stations url: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(stationLimit))
	u.RawQuery = q.Encode()

	var stations stationCollection
	if err := c.http.GetJSON(ctx, u.String(), &stations); err != nil {
		return nil, fmt.Errorf("nws stations: %w", err)
	}
	if len(stations.Features) > stationLimit {
		stations.Features = stations.Features[:stationLimit]
	}
	return stations.Features, nil
}

// LatestObservation fetches the newest observation of a station.
func (c *Client) LatestObservation(ctx context.Context, stationURL string) (domain.ObservationFeature, error) {
	var obs domain.ObservationFeature
	if err := c.http.GetJSON(ctx, stationURL+"/observations/latest", &obs); err != nil {
		return domain.ObservationFeature{}, fmt.Errorf("nws latest observation: %w", err)
	}
	return obs, nil
}

// ObservationHistory fetches a station's observations between start and end,
// following pagination links for at most forty pages. A link that was
// already visited ends the walk.
func (c *Client) ObservationHistory(ctx context.Context, stationURL string, start, end time.Time) ([]domain.ObservationFeature, error) {
	q := url.Values{
		"start": {start.UTC().Format(time.RFC3339)},
		"end":   {end.UTC().Format(time.RFC3339)},
		"limit": {strconv.Itoa(observationLimit)},
	}
	next := stationURL + "/observations?" + q.Encode()
	seen := make(map[string]bool)

	var out []domain.ObservationFeature
	for page := 0; page < maxHistoryPages && next != "" && !seen[next]; page++ {
		seen[next] = true

		var p observationPage
		if err := c.http.GetJSON(ctx, next, &p); err != nil {
			return nil, fmt.Errorf("nws observation history page %d: %w", page+1, err)
		}
		out = append(out, p.Features...)
		next = c.link(p.nextURL())
	}
	return out, nil
}
