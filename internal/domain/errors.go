package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled marks a run that was superseded or cancelled by its caller.
// It is never a user-facing failure.
var ErrCancelled = errors.New("run cancelled")

// ErrMalformedPayload marks a response that parsed but lacks the minimum
// expected shape. It is handled like a fetch failure.
var ErrMalformedPayload = errors.New("malformed payload")

// failureTail is how many candidate failures a SourceExhaustedError reports.
const failureTail = 4

// SourceExhaustedError reports that every candidate of a mandatory branch
// failed. It is fatal for the run.
type SourceExhaustedError struct {
	Branch   string
	Failures []string
}

func (e *SourceExhaustedError) Error() string {
	tail := e.Failures
	if len(tail) > failureTail {
		tail = tail[len(tail)-failureTail:]
	}
	return fmt.Sprintf("%s request failed. %s", e.Branch, strings.Join(tail, " | "))
}

// OptionalSourceError reports a failed optional branch. The run continues
// without it and records the degradation.
type OptionalSourceError struct {
	Branch string
	Err    error
}

func (e *OptionalSourceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Branch, e.Err)
}

func (e *OptionalSourceError) Unwrap() error { return e.Err }

// IsCancelled reports whether err stems from cancellation rather than failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// cancelled wraps err as ErrCancelled when ctx is done or err is a
// cancellation, and returns nil otherwise.
func cancelled(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}
