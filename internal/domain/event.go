package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// DataMode selects whether station observations are merged into the series.
type DataMode string

const (
	DataModeModel   DataMode = "model"
	DataModeStation DataMode = "station"
)

// LoadRequest asks for one season load at a point.
type LoadRequest struct {
	RequestID    string       `json:"request_id,omitempty"`
	Lat          float64      `json:"lat" validate:"gte=-90,lte=90"`
	Lon          float64      `json:"lon" validate:"gte=-180,lte=180"`
	DataMode     DataMode     `json:"data_mode,omitempty" validate:"omitempty,oneof=model station"`
	HistoryRange HistoryRange `json:"history_range,omitempty" validate:"omitempty,oneof=14d season"`
	ShowForecast *bool        `json:"show_forecast,omitempty"`
	StationID    string       `json:"station_id,omitempty" validate:"omitempty,alphanum,max=16"`
	StationName  string       `json:"station_name,omitempty"`
	StationURL   string       `json:"station_url,omitempty" validate:"omitempty,url"`
}

// LocationKey identifies the point a request targets. A newer run for the
// same key supersedes an older one.
func (r LoadRequest) LocationKey() string {
	return fmt.Sprintf("%.4f,%.4f", r.Lat, r.Lon)
}

// WantsForecast reports whether the forward forecast block is emitted.
// It defaults to true.
func (r LoadRequest) WantsForecast() bool {
	return r.ShowForecast == nil || *r.ShowForecast
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseLoadRequest decodes and validates a request, applying defaults for
// omitted modes.
func ParseLoadRequest(raw RawEvent) (LoadRequest, error) {
	var req LoadRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return LoadRequest{}, fmt.Errorf("parse load request: %w", err)
	}
	req.DataMode = DataMode(strings.ToLower(string(req.DataMode)))
	req.HistoryRange = HistoryRange(strings.ToLower(string(req.HistoryRange)))
	if err := validate.Struct(req); err != nil {
		return LoadRequest{}, fmt.Errorf("validate load request: %w", err)
	}
	if req.DataMode == "" {
		req.DataMode = DataModeModel
	}
	if req.HistoryRange == "" {
		req.HistoryRange = HistoryRange14d
	}
	req.StationURL = ToHTTPS(strings.TrimRight(req.StationURL, "/"))
	if req.RequestID == "" && len(raw.Key) > 0 {
		req.RequestID = string(raw.Key)
	}
	return req, nil
}
