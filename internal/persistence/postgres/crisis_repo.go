package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/macrolab/macindex/internal/persistence"
	"github.com/macrolab/macindex/internal/validate"
)

// crisisRepo implements persistence.CrisisRepo on PostgreSQL.
type crisisRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewCrisisRepo creates a PostgreSQL crisis event repository.
func NewCrisisRepo(db *sqlx.DB, timeout time.Duration) persistence.CrisisRepo {
	return &crisisRepo{db: db, timeout: timeout}
}

// List returns all crisis events ordered by start date.
func (r *crisisRepo) List(ctx context.Context) ([]validate.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT name, start_date, end_date, severity
		FROM crisis_events
		ORDER BY start_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query crisis events: %w", err)
	}
	defer rows.Close()

	events := make([]validate.Event, 0)
	for rows.Next() {
		var ev validate.Event
		if err := rows.Scan(&ev.Name, &ev.Start, &ev.End, &ev.Severity); err != nil {
			return nil, fmt.Errorf("failed to scan crisis event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Seed upserts the reference table from the shipped YAML data.
func (r *crisisRepo) Seed(ctx context.Context, events []validate.Event) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin crisis seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range events {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO crisis_events (name, start_date, end_date, severity)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE SET
				start_date = EXCLUDED.start_date,
				end_date = EXCLUDED.end_date,
				severity = EXCLUDED.severity`,
			ev.Name, ev.Start, ev.End, ev.Severity)
		if err != nil {
			return fmt.Errorf("failed to seed crisis event %s: %w", ev.Name, err)
		}
	}

	return tx.Commit()
}
