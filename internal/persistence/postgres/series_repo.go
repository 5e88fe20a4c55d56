package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/macrolab/macindex/internal/backtest"
	"github.com/macrolab/macindex/internal/composite"
	"github.com/macrolab/macindex/internal/persistence"
	"github.com/macrolab/macindex/internal/proxy"
)

// seriesRepo implements persistence.SeriesRepo on PostgreSQL.
type seriesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSeriesRepo creates a PostgreSQL series repository.
func NewSeriesRepo(db *sqlx.DB, timeout time.Duration) persistence.SeriesRepo {
	return &seriesRepo{db: db, timeout: timeout}
}

// SaveResult stores the run metadata and all series rows in one
// transaction; rows are upserted on (run_id, date).
func (r *seriesRepo) SaveResult(ctx context.Context, result *backtest.Result) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin series transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mac_runs (id, start_date, end_date, frequency, started_at, finished_at, row_count, degraded_rows)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.RunID, result.Start, result.End, string(result.Frequency),
		result.StartedAt, result.FinishedAt, len(result.Rows), result.DegradedRows)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", result.RunID, err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO mac_series
		(run_id, date, era_id, mac_score, pillar_scores, breach_flags, multiplier,
		 mac_status, interpretation, momentum_1w, momentum_4w, trend_direction,
		 data_quality, crisis_event, degraded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (run_id, date) DO UPDATE SET
			mac_score = EXCLUDED.mac_score,
			pillar_scores = EXCLUDED.pillar_scores,
			breach_flags = EXCLUDED.breach_flags,
			multiplier = EXCLUDED.multiplier,
			mac_status = EXCLUDED.mac_status,
			interpretation = EXCLUDED.interpretation,
			momentum_1w = EXCLUDED.momentum_1w,
			momentum_4w = EXCLUDED.momentum_4w,
			trend_direction = EXCLUDED.trend_direction,
			data_quality = EXCLUDED.data_quality,
			crisis_event = EXCLUDED.crisis_event,
			degraded = EXCLUDED.degraded`)
	if err != nil {
		return fmt.Errorf("failed to prepare series insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range result.Rows {
		pillarsJSON, err := json.Marshal(row.PillarScores)
		if err != nil {
			return fmt.Errorf("failed to marshal pillar scores: %w", err)
		}
		flagsJSON, err := json.Marshal(row.BreachFlags)
		if err != nil {
			return fmt.Errorf("failed to marshal breach flags: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			result.RunID, row.Date, row.EraID, row.MACScore, pillarsJSON, flagsJSON,
			row.Multiplier, row.Status, row.Interpretation, row.Momentum1, row.Momentum4,
			row.TrendDirection, string(row.DataQuality), row.CrisisEvent, row.Degraded)
		if err != nil {
			return fmt.Errorf("failed to insert series row %s: %w", row.Date.Format("2006-01-02"), err)
		}
	}

	return tx.Commit()
}

// LatestRun returns metadata of the most recent run, or nil when none.
func (r *seriesRepo) LatestRun(ctx context.Context) (*persistence.RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rec persistence.RunRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT id, start_date, end_date, frequency, started_at, finished_at, row_count, degraded_rows
		FROM mac_runs
		ORDER BY started_at DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return &rec, nil
}

// RowsForRun loads the full series of a run ordered by date.
func (r *seriesRepo) RowsForRun(ctx context.Context, runID uuid.UUID) ([]composite.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	dbRows, err := r.db.QueryxContext(ctx, `
		SELECT date, era_id, mac_score, pillar_scores, breach_flags, multiplier,
		       mac_status, interpretation, momentum_1w, momentum_4w, trend_direction,
		       data_quality, crisis_event, degraded
		FROM mac_series
		WHERE run_id = $1
		ORDER BY date ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query series rows: %w", err)
	}
	defer dbRows.Close()

	rows := make([]composite.Row, 0)
	for dbRows.Next() {
		var (
			row         composite.Row
			pillarsJSON []byte
			flagsJSON   []byte
			quality     string
		)
		err := dbRows.Scan(&row.Date, &row.EraID, &row.MACScore, &pillarsJSON, &flagsJSON,
			&row.Multiplier, &row.Status, &row.Interpretation, &row.Momentum1, &row.Momentum4,
			&row.TrendDirection, &quality, &row.CrisisEvent, &row.Degraded)
		if err != nil {
			return nil, fmt.Errorf("failed to scan series row: %w", err)
		}
		if err := json.Unmarshal(pillarsJSON, &row.PillarScores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pillar scores: %w", err)
		}
		if err := json.Unmarshal(flagsJSON, &row.BreachFlags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal breach flags: %w", err)
		}
		row.DataQuality = proxy.QualityTier(quality)
		rows = append(rows, row)
	}
	return rows, dbRows.Err()
}
