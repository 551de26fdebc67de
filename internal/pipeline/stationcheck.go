package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"golang.org/x/sync/errgroup"
)

// latestObservationConcurrency bounds concurrent latest-observation fetches.
const latestObservationConcurrency = 4

var (
	errNoStations          = errors.New("no nearby observation stations")
	errNoUsableObservation = errors.New("no usable station observation")
	errNoStationSelected   = errors.New("no station selected")
)

// stationBranches runs the station cross-check and, in station mode, the
// station history fetch. Both are optional. Station ranking waits for the
// history branch so model elevation is known.
func (l *SeasonLoader) stationBranches(ctx context.Context, req domain.LoadRequest, window domain.SeasonWindow, now time.Time, historyReady <-chan struct{}, st *loadState, log *slog.Logger) {
	features, err := l.locator.FindStations(ctx, req.Lat, req.Lon)
	if err == nil && len(features) == 0 {
		err = errNoStations
	}

	var best *domain.StationObservation
	if err == nil {
		select {
		case <-historyReady:
		case <-ctx.Done():
			return
		}
		best, err = l.crossCheck(ctx, req, features, domain.MetersToFeet(st.history.Payload.Elevation))
	}
	if l.optional(ctx, st, log, BranchStationCheck, err) {
		st.stationObs = best
	} else if ctx.Err() == nil {
		st.stationObsErr = err
	}

	if req.DataMode != domain.DataModeStation {
		return
	}

	stationURL, stationID := req.StationURL, req.StationID
	if stationURL == "" && stationID != "" {
		stationURL = strings.TrimRight(l.stations.BaseURL(), "/") + "/stations/" + stationID
	}
	if stationURL == "" && best != nil {
		stationURL, stationID = best.StationURL, best.StationID
	}
	if stationID == "" {
		stationID = req.StationName
	}

	var hist []domain.ObservationFeature
	if stationURL == "" {
		err = errNoStationSelected
	} else {
		start, _ := time.ParseInLocation(domain.DayKeyLayout, window.Start, time.UTC)
		// One day of margin covers local midnights west of UTC.
		hist, err = l.stations.ObservationHistory(ctx, stationURL, start.Add(-24*time.Hour), now)
	}
	if l.optional(ctx, st, log, BranchStationHistory, err) {
		st.stationHistory = &domain.StationHistory{StationID: stationID, Features: hist}
	} else if ctx.Err() == nil {
		st.stationHistoryErr = err
	}
}

// crossCheck fetches the latest observation of every ranked station
// concurrently and selects the best usable one.
func (l *SeasonLoader) crossCheck(ctx context.Context, req domain.LoadRequest, features []domain.StationFeature, modelElevationFt *float64) (*domain.StationObservation, error) {
	ranked := domain.RankStations(req.Lat, req.Lon, features, modelElevationFt)
	results := make([]*domain.StationObservation, len(ranked))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(latestObservationConcurrency)
	for i, c := range ranked {
		stationURL := domain.StationURL(c.Feature, l.stations.BaseURL())
		if stationURL == "" {
			continue
		}
		g.Go(func() error {
			latest, err := l.stations.LatestObservation(gctx, stationURL)
			if err != nil {
				if domain.IsCancelled(err) || gctx.Err() != nil {
					return err
				}
				// A single station failing does not fail the cross-check.
				l.logger.Debug("latest observation failed", "station", stationURL, "error", err)
				return nil
			}
			obs := domain.NewStationObservation(req.Lat, req.Lon, c, stationURL, latest)
			results[i] = &obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	observations := make([]domain.StationObservation, 0, len(results))
	for _, o := range results {
		if o != nil {
			observations = append(observations, *o)
		}
	}
	best, ok := domain.SelectBestObservation(observations, modelElevationFt)
	if !ok {
		return nil, errNoUsableObservation
	}
	return &best, nil
}
