package postgres

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Config holds Postgres connection settings.
type Config struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// DefaultConfig returns conservative pool settings for the given DSN.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:             dsn,
		MaxOpenConns:    8,
		MaxIdleConns:    4,
		ConnMaxLifetime: 30 * time.Minute,
		QueryTimeout:    10 * time.Second,
	}
}

// Connect opens and pings a Postgres connection pool.
func Connect(cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS mac_runs (
	id            UUID PRIMARY KEY,
	start_date    DATE NOT NULL,
	end_date      DATE NOT NULL,
	frequency     TEXT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	row_count     INT NOT NULL,
	degraded_rows INT NOT NULL
);

CREATE TABLE IF NOT EXISTS mac_series (
	run_id          UUID NOT NULL REFERENCES mac_runs(id) ON DELETE CASCADE,
	date            DATE NOT NULL,
	era_id          TEXT NOT NULL,
	mac_score       DOUBLE PRECISION NOT NULL,
	pillar_scores   JSONB NOT NULL,
	breach_flags    JSONB NOT NULL,
	multiplier      DOUBLE PRECISION,
	mac_status      TEXT NOT NULL,
	interpretation  TEXT NOT NULL,
	momentum_1w     DOUBLE PRECISION,
	momentum_4w     DOUBLE PRECISION,
	trend_direction TEXT NOT NULL,
	data_quality    TEXT NOT NULL,
	crisis_event    TEXT NOT NULL DEFAULT '',
	degraded        BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (run_id, date)
);

CREATE TABLE IF NOT EXISTS crisis_events (
	name       TEXT PRIMARY KEY,
	start_date DATE NOT NULL,
	end_date   DATE NOT NULL,
	severity   TEXT NOT NULL
);
`

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
