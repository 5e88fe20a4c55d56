package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/macrolab/macindex/internal/proxy"
)

// ErrUnavailable reports that a source has no observation for the
// requested (indicator, date) pair. It is the "missing indicator" signal:
// callers skip the indicator, they never fail the run on it.
var ErrUnavailable = errors.New("observation unavailable")

// Observation is one indicator reading with the quality tier of the
// source it came from.
type Observation struct {
	Value float64           `json:"value"`
	Tier  proxy.QualityTier `json:"tier"`
}

// Snapshot maps indicator id to its observation for one date. Indicators
// with no data on the date are simply absent from the map.
type Snapshot map[string]Observation

// Provider supplies the per-date indicator snapshot consumed by the
// scoring pipeline.
type Provider interface {
	GetSnapshot(ctx context.Context, date time.Time) (Snapshot, error)
}

// Source fetches one raw observation from a named upstream series.
// Implementations return ErrUnavailable when the series has no value for
// the date (weekend, holiday, not yet published, discontinued).
type Source interface {
	Fetch(ctx context.Context, seriesName string, date time.Time) (float64, error)
}
