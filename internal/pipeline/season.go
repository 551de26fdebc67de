package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/couchcryptid/snowpack-etl/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Branch names used in errors, degradations and metrics.
const (
	BranchHistory        = "History"
	BranchArchive        = "Archive snowfall"
	BranchToday          = "Today snapshot"
	BranchForward        = "Forecast"
	BranchStationCheck   = "Station check"
	BranchStationHistory = "Station history"
)

// ModelSource serves the gridded model branches of a season load.
type ModelSource interface {
	domain.PayloadFetcher
	HistoryCandidates(lat, lon float64, start, end string) []domain.Candidate
	FetchToday(ctx context.Context, lat, lon float64) (domain.ModelPayload, error)
	FetchForward(ctx context.Context, lat, lon float64) (domain.ModelPayload, error)
	FetchArchiveSnow(ctx context.Context, lat, lon float64, start, end string) (domain.ArchiveSnowHistory, error)
}

// StationSource serves station observations.
type StationSource interface {
	BaseURL() string
	LatestObservation(ctx context.Context, stationURL string) (domain.ObservationFeature, error)
	ObservationHistory(ctx context.Context, stationURL string, start, end time.Time) ([]domain.ObservationFeature, error)
}

// SeasonLoader runs one full season load per request. It implements
// Transformer.
type SeasonLoader struct {
	model      ModelSource
	locator    domain.StationLocator
	stations   StationSource
	thresholds domain.Thresholds
	runs       *RunTracker
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewSeasonLoader wires a loader. locator may be a caching decorator around
// the station source.
func NewSeasonLoader(model ModelSource, locator domain.StationLocator, stations StationSource, th domain.Thresholds, logger *slog.Logger, metrics *observability.Metrics) *SeasonLoader {
	return &SeasonLoader{
		model:      model,
		locator:    locator,
		stations:   stations,
		thresholds: th,
		runs:       NewRunTracker(),
		logger:     logger,
		metrics:    metrics,
	}
}

// Transform parses a load request and runs it.
func (l *SeasonLoader) Transform(ctx context.Context, raw domain.RawEvent) (domain.SeasonReport, error) {
	req, err := domain.ParseLoadRequest(raw)
	if err != nil {
		return domain.SeasonReport{}, err
	}
	return l.Load(ctx, req)
}

// loadState collects branch results. Each field has a single writer;
// degradations are appended under mu.
type loadState struct {
	mu sync.Mutex

	history domain.Acquired
	archive domain.ArchiveSnowHistory
	today   *domain.ModelPayload
	forward *domain.ModelPayload

	stationObs        *domain.StationObservation
	stationObsErr     error
	stationHistory    *domain.StationHistory
	stationHistoryErr error

	degradations []string
}

// Load runs a season load for req. Starting a load for a location cancels
// the in-flight load for the same location; the cancelled load returns an
// error matching domain.ErrCancelled.
func (l *SeasonLoader) Load(ctx context.Context, req domain.LoadRequest) (domain.SeasonReport, error) {
	runCtx, rc := l.runs.Begin(ctx, req.LocationKey())
	now := domain.Now()
	window := domain.NewSeasonWindow(now)
	log := l.logger.With("run_id", rc.ID, "location", rc.Key, "data_mode", req.DataMode)

	st := &loadState{}
	historyReady := make(chan struct{})

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer close(historyReady)
		acquired, err := domain.AcquireFirst(gctx, l.model, BranchHistory,
			l.model.HistoryCandidates(req.Lat, req.Lon, window.Start, window.HistoryEnd))
		l.recordAttempts(BranchHistory, acquired.Failures, err)
		if err != nil {
			return err
		}
		st.history = acquired
		return nil
	})

	g.Go(func() error {
		archive, err := l.model.FetchArchiveSnow(gctx, req.Lat, req.Lon, window.Start, window.Today)
		if err != nil {
			if domain.IsCancelled(err) || gctx.Err() != nil {
				return err
			}
			l.attempt(BranchArchive, "failure")
			return &domain.SourceExhaustedError{Branch: BranchArchive, Failures: []string{"archive: " + err.Error()}}
		}
		l.attempt(BranchArchive, "success")
		st.archive = archive
		return nil
	})

	g.Go(func() error {
		p, err := l.model.FetchToday(gctx, req.Lat, req.Lon)
		if l.optional(gctx, st, log, BranchToday, err) {
			st.today = &p
		}
		return nil
	})

	g.Go(func() error {
		p, err := l.model.FetchForward(gctx, req.Lat, req.Lon)
		if l.optional(gctx, st, log, BranchForward, err) {
			st.forward = &p
		}
		return nil
	})

	g.Go(func() error {
		l.stationBranches(gctx, req, window, now, historyReady, st, log)
		return nil
	})

	// Finish cancels runCtx, so the cause is read first.
	if err := g.Wait(); err != nil {
		cause := runCause(runCtx)
		l.runs.Finish(rc)
		if cause != nil {
			return domain.SeasonReport{}, cause
		}
		return domain.SeasonReport{}, err
	}

	report := domain.BuildSeasonReport(domain.SeasonInputs{
		Request:           req,
		RunID:             rc.ID,
		Token:             rc.Token,
		Now:               now,
		Window:            window,
		Thresholds:        l.thresholds,
		History:           st.history,
		Archive:           st.archive,
		Today:             st.today,
		Forward:           st.forward,
		Station:           st.stationHistory,
		StationHistoryErr: st.stationHistoryErr,
		StationObs:        st.stationObs,
		StationObsErr:     st.stationObsErr,
		Degradations:      st.degradations,
	})

	cause := runCause(runCtx)
	if !l.runs.Finish(rc) {
		return domain.SeasonReport{}, fmt.Errorf("%w: %w", domain.ErrCancelled, errSuperseded)
	}
	if cause != nil {
		return domain.SeasonReport{}, cause
	}
	log.Info("season load complete",
		"history_source", report.Meta.HistorySource,
		"days", len(report.Daily),
		"degradations", len(report.Meta.Degradations),
		"duration", time.Since(rc.StartedAt),
	)
	return report, nil
}

// runCause returns an ErrCancelled error when the run context was cancelled,
// carrying the cancellation cause.
func runCause(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(ctx)
	if errors.Is(cause, errSuperseded) {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, errSuperseded)
	}
	return fmt.Errorf("%w: %w", domain.ErrCancelled, cause)
}

// optional records the outcome of an optional branch and reports whether it
// succeeded. Failures become degradations; cancellation is not recorded.
func (l *SeasonLoader) optional(ctx context.Context, st *loadState, log *slog.Logger, branch string, err error) bool {
	if err == nil {
		l.attempt(branch, "success")
		return true
	}
	if domain.IsCancelled(err) || ctx.Err() != nil {
		l.attempt(branch, "cancelled")
		return false
	}
	l.attempt(branch, "failure")
	l.degrade(st, log, &domain.OptionalSourceError{Branch: branch, Err: err})
	return false
}

func (l *SeasonLoader) degrade(st *loadState, log *slog.Logger, err *domain.OptionalSourceError) {
	log.Warn("optional source unavailable", "branch", err.Branch, "error", err.Err)
	l.metrics.Degradations.WithLabelValues(err.Branch).Inc()

	st.mu.Lock()
	st.degradations = append(st.degradations, err.Error())
	st.mu.Unlock()
}

func (l *SeasonLoader) attempt(branch, outcome string) {
	l.metrics.SourceAttempts.WithLabelValues(branch, outcome).Inc()
}

// recordAttempts counts every candidate tried by a multi-candidate branch.
func (l *SeasonLoader) recordAttempts(branch string, failures []string, err error) {
	var exhausted *domain.SourceExhaustedError
	switch {
	case errors.As(err, &exhausted):
		failures = exhausted.Failures
	case err != nil:
		l.attempt(branch, "cancelled")
	default:
		l.attempt(branch, "success")
	}
	for range failures {
		l.attempt(branch, "failure")
	}
}
