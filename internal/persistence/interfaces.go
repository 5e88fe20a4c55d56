package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/macrolab/macindex/internal/backtest"
	"github.com/macrolab/macindex/internal/composite"
	"github.com/macrolab/macindex/internal/validate"
)

// RunRecord is the stored metadata of one backtest run.
type RunRecord struct {
	ID         uuid.UUID `db:"id"`
	Start      time.Time `db:"start_date"`
	End        time.Time `db:"end_date"`
	Frequency  string    `db:"frequency"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	RowCount   int       `db:"row_count"`
	Degraded   int       `db:"degraded_rows"`
}

// SeriesRepo stores completed MAC series. Persistence owns its own write
// discipline; the pipeline never blocks on it mid-date.
type SeriesRepo interface {
	SaveResult(ctx context.Context, result *backtest.Result) error
	LatestRun(ctx context.Context) (*RunRecord, error)
	RowsForRun(ctx context.Context, runID uuid.UUID) ([]composite.Row, error)
}

// CrisisRepo stores the labeled crisis event table.
type CrisisRepo interface {
	List(ctx context.Context) ([]validate.Event, error)
	Seed(ctx context.Context, events []validate.Event) error
}
