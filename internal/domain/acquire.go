package domain

import (
	"context"
	"fmt"
)

// Candidate is one endpoint and field-set combination for a source.
type Candidate struct {
	Source            string
	URL               string
	IncludesSnowDepth bool
}

// PayloadFetcher retrieves and decodes one model payload.
type PayloadFetcher interface {
	FetchPayload(ctx context.Context, url string) (ModelPayload, error)
}

// Acquired is the payload of the winning candidate.
type Acquired struct {
	Payload           ModelPayload
	Source            string
	IncludesSnowDepth bool
	// Failures records the candidates tried before the winner.
	Failures []string
}

// AcquireFirst tries candidates in order and returns the first one whose
// response is successful and has a non-empty hourly time axis. Cancellation
// is returned as ErrCancelled immediately. When every candidate fails the
// error is a *SourceExhaustedError naming the branch.
func AcquireFirst(ctx context.Context, f PayloadFetcher, branch string, candidates []Candidate) (Acquired, error) {
	var failures []string

	for _, c := range candidates {
		payload, err := f.FetchPayload(ctx, c.URL)
		if err != nil {
			if cerr := cancelled(ctx, err); cerr != nil {
				return Acquired{}, cerr
			}
			failures = append(failures, fmt.Sprintf("%s: %v", c.Source, err))
			continue
		}
		if !payload.HasHourly() {
			failures = append(failures, c.Source+": empty hourly payload")
			continue
		}
		return Acquired{
			Payload:           payload,
			Source:            c.Source,
			IncludesSnowDepth: c.IncludesSnowDepth,
			Failures:          failures,
		}, nil
	}

	return Acquired{}, &SourceExhaustedError{Branch: branch, Failures: failures}
}

// StationLocator lists the observation stations near a point.
type StationLocator interface {
	FindStations(ctx context.Context, lat, lon float64) ([]StationFeature, error)
}
