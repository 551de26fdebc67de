package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/google/uuid"
)

// errSuperseded is the cancellation cause of a run replaced by a newer one.
var errSuperseded = errors.New("superseded by a newer run")

// RunContext identifies one season load.
type RunContext struct {
	ID        string
	Token     uint64
	Key       string
	StartedAt time.Time
}

type activeRun struct {
	token  uint64
	cancel context.CancelCauseFunc
}

// RunTracker keeps the current run per location key. Starting a run cancels
// the in-flight run for the same key; tokens increase monotonically across
// all keys.
type RunTracker struct {
	tokens atomic.Uint64

	mu     sync.Mutex
	active map[string]activeRun
}

// NewRunTracker creates an empty tracker.
func NewRunTracker() *RunTracker {
	return &RunTracker{active: make(map[string]activeRun)}
}

// Begin starts a run for key. The returned context is cancelled with
// errSuperseded when a newer run for key begins.
func (t *RunTracker) Begin(ctx context.Context, key string) (context.Context, RunContext) {
	rc := RunContext{
		ID:        uuid.NewString(),
		Token:     t.tokens.Add(1),
		Key:       key,
		StartedAt: domain.Now(),
	}
	runCtx, cancel := context.WithCancelCause(ctx)

	t.mu.Lock()
	if prev, ok := t.active[key]; ok {
		prev.cancel(errSuperseded)
	}
	t.active[key] = activeRun{token: rc.Token, cancel: cancel}
	t.mu.Unlock()

	return runCtx, rc
}

// Finish ends rc and reports whether it was still the current run for its
// key. A false result means the run's output must be discarded.
func (t *RunTracker) Finish(rc RunContext) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.active[rc.Key]
	if !ok || cur.token != rc.Token {
		return false
	}
	delete(t.active, rc.Key)
	cur.cancel(nil)
	return true
}

// Active returns the number of in-flight runs.
func (t *RunTracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}
