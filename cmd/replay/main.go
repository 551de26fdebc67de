// Command replay runs the season analytics over saved Open-Meteo responses
// with a fixed clock and prints the resulting report. It is used to
// reproduce powder scores and rule events offline.
//
// Usage:
//
//	go run ./cmd/replay \
//	  -history testdata/history.json,testdata/history-core.json \
//	  -archive testdata/archive.json \
//	  -forward testdata/forward.json \
//	  -now 2024-12-10T18:00:00Z -lat 39.6 -lon -105.9 -range season
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/snowpack-etl/internal/config"
	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
)

var errNoStationCheck = errors.New("station check is not run in replay")

// fileFetcher reads payloads from local files; the candidate URL is a path.
type fileFetcher struct{}

func (fileFetcher) FetchPayload(_ context.Context, path string) (domain.ModelPayload, error) {
	return readPayload(path)
}

func main() {
	if err := run(os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(stdout io.Writer) error {
	_ = godotenv.Load()

	history := flag.String("history", "", "comma-separated history payload files, tried in order")
	archive := flag.String("archive", "", "archive snowfall payload file")
	today := flag.String("today", "", "optional same-day snapshot payload file")
	forward := flag.String("forward", "", "optional forward forecast payload file")
	nowFlag := flag.String("now", "", "fixed current time (RFC3339)")
	lat := flag.Float64("lat", 0, "latitude")
	lon := flag.Float64("lon", 0, "longitude")
	rng := flag.String("range", string(domain.HistoryRange14d), "display range: 14d or season")
	rules := flag.String("rules", os.Getenv("RULES_CONFIG"), "optional rule thresholds YAML")
	out := flag.String("out", "", "output file (default stdout)")
	flag.Parse()

	if *history == "" || *archive == "" || *nowFlag == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -history, -archive, -now")
	}
	now, err := time.Parse(time.RFC3339, *nowFlag)
	if err != nil {
		return fmt.Errorf("parse -now: %w", err)
	}

	// Fixed clock for reproducible hour keys and observation ages.
	domain.SetClock(clockwork.NewFakeClockAt(now))
	defer domain.SetClock(nil)

	thresholds, err := config.LoadRuleThresholds(*rules)
	if err != nil {
		return err
	}

	var candidates []domain.Candidate
	for _, path := range strings.Split(*history, ",") {
		if path = strings.TrimSpace(path); path != "" {
			candidates = append(candidates, domain.Candidate{Source: path, URL: path, IncludesSnowDepth: true})
		}
	}
	acquired, err := domain.AcquireFirst(context.Background(), fileFetcher{}, "History", candidates)
	if err != nil {
		return err
	}
	acquired.IncludesSnowDepth = len(acquired.Payload.Hourly.SnowDepth) > 0
	for _, f := range acquired.Failures {
		log.Printf("history candidate skipped: %s", f)
	}

	archivePayload, err := readPayload(*archive)
	if err != nil {
		return err
	}

	req := domain.LoadRequest{
		RequestID:    "replay",
		Lat:          *lat,
		Lon:          *lon,
		DataMode:     domain.DataModeModel,
		HistoryRange: domain.HistoryRange(*rng),
	}
	in := domain.SeasonInputs{
		Request:       req,
		RunID:         "replay",
		Now:           now,
		Window:        domain.NewSeasonWindow(now),
		Thresholds:    thresholds,
		History:       acquired,
		Archive:       domain.MapArchiveSnowHistory(archivePayload),
		StationObsErr: errNoStationCheck,
	}
	if in.Today, err = optionalPayload(*today); err != nil {
		return err
	}
	if in.Forward, err = optionalPayload(*forward); err != nil {
		return err
	}

	report := domain.BuildSeasonReport(in)
	log.Printf("%s: %d days, %d events", acquired.Source, len(report.Daily), len(report.Events))

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func readPayload(path string) (domain.ModelPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ModelPayload{}, fmt.Errorf("read %s: %w", path, err)
	}
	var p domain.ModelPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.ModelPayload{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return p, nil
}

func optionalPayload(path string) (*domain.ModelPayload, error) {
	if path == "" {
		return nil, nil
	}
	p, err := readPayload(path)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
