package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/couchcryptid/snowpack-etl/internal/observability"
	"github.com/couchcryptid/snowpack-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// mockExtractor returns its events as one batch, then blocks until the
// context is cancelled.
type mockExtractor struct {
	events []domain.RawEvent
	served atomic.Bool
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	if len(m.events) > 0 && !m.served.Swap(true) {
		return m.events[:min(batchSize, len(m.events))], nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	fn func(ctx context.Context, raw domain.RawEvent) (domain.SeasonReport, error)
}

func (m *mockTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.SeasonReport, error) {
	if m.fn != nil {
		return m.fn(ctx, raw)
	}
	return domain.SeasonReport{LocationKey: string(raw.Key)}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.SeasonReport
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, reports []domain.SeasonReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, reports...)
	return nil
}

func (m *mockLoader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

// rawEvent builds a request message whose Commit records into commits.
func rawEvent(key string, offset int64, commits *sync.Map) domain.RawEvent {
	return domain.RawEvent{
		Key:    []byte(key),
		Value:  []byte(`{"lat":39.6,"lon":-105.9}`),
		Topic:  "season-load-requests",
		Offset: offset,
		Commit: func(_ context.Context) error {
			commits.Store(offset, true)
			return nil
		},
	}
}

func committed(commits *sync.Map) int {
	n := 0
	commits.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var commits sync.Map
	ext := &mockExtractor{events: []domain.RawEvent{rawEvent("a", 1, &commits), rawEvent("b", 2, &commits)}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 50, 2)
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, 2, ldr.count())
	assert.Equal(t, 2, committed(&commits))
	assert.InDelta(t, 2, counterValue(t, metrics.MessagesConsumed), 1e-9)
	assert.InDelta(t, 2, counterValue(t, metrics.MessagesProduced), 1e-9)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 50, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, ldr.count())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorCommitsPoison(t *testing.T) {
	var commits sync.Map
	ext := &mockExtractor{events: []domain.RawEvent{rawEvent("bad", 1, &commits)}}
	tfm := &mockTransformer{fn: func(context.Context, domain.RawEvent) (domain.SeasonReport, error) {
		return domain.SeasonReport{}, &domain.SourceExhaustedError{Branch: "History", Failures: []string{"archive: 500"}}
	}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, tfm, ldr, discardLogger(), metrics, 50, 1)
	runFor(t, p, 300*time.Millisecond)

	assert.Zero(t, ldr.count())
	assert.Equal(t, 1, committed(&commits))
	assert.InDelta(t, 1, counterValue(t, metrics.TransformErrors), 1e-9)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_SupersededRunIsNotAnError(t *testing.T) {
	var commits sync.Map
	ext := &mockExtractor{events: []domain.RawEvent{rawEvent("old", 1, &commits), rawEvent("new", 2, &commits)}}
	tfm := &mockTransformer{fn: func(_ context.Context, raw domain.RawEvent) (domain.SeasonReport, error) {
		if string(raw.Key) == "old" {
			return domain.SeasonReport{}, fmt.Errorf("%w: superseded", domain.ErrCancelled)
		}
		return domain.SeasonReport{LocationKey: "new"}, nil
	}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, tfm, ldr, discardLogger(), metrics, 50, 2)
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, 1, ldr.count())
	assert.Equal(t, 2, committed(&commits))
	assert.InDelta(t, 1, counterValue(t, metrics.RunsSuperseded), 1e-9)
	assert.Zero(t, counterValue(t, metrics.TransformErrors))
}

func TestPipeline_Run_BoundedConcurrency(t *testing.T) {
	var commits sync.Map
	events := make([]domain.RawEvent, 6)
	for i := range events {
		events[i] = rawEvent(fmt.Sprintf("k%d", i), int64(i), &commits)
	}
	var inFlight, peak atomic.Int32
	tfm := &mockTransformer{fn: func(_ context.Context, raw domain.RawEvent) (domain.SeasonReport, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return domain.SeasonReport{LocationKey: string(raw.Key)}, nil
	}}
	ldr := &mockLoader{}

	p := pipeline.New(&mockExtractor{events: events}, tfm, ldr, discardLogger(), observability.NewMetricsForTesting(), 50, 3)
	runFor(t, p, 500*time.Millisecond)

	assert.Equal(t, 6, ldr.count())
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(1))
}

func TestPipeline_Run_LoadErrorLeavesOffsets(t *testing.T) {
	var commits sync.Map
	ext := &mockExtractor{events: []domain.RawEvent{rawEvent("a", 1, &commits)}}
	ldr := &mockLoader{err: errors.New("broker down")}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 50, 1)
	runFor(t, p, 300*time.Millisecond)

	assert.Zero(t, committed(&commits))
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ShutdownLeavesOffsets(t *testing.T) {
	var commits sync.Map
	ext := &mockExtractor{events: []domain.RawEvent{rawEvent("a", 1, &commits)}}
	started := make(chan struct{})
	tfm := &mockTransformer{fn: func(ctx context.Context, _ domain.RawEvent) (domain.SeasonReport, error) {
		close(started)
		<-ctx.Done()
		return domain.SeasonReport{}, fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
	}}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, tfm, &mockLoader{}, discardLogger(), metrics, 50, 1)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()
	<-started
	cancel()

	require.NoError(t, <-errCh)
	assert.Zero(t, committed(&commits))
	assert.Zero(t, counterValue(t, metrics.RunsSuperseded))
}
