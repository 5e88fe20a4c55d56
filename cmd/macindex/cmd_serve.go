package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/macrolab/macindex/internal/backtest"
	"github.com/macrolab/macindex/internal/composite"
	"github.com/macrolab/macindex/internal/config"
	"github.com/macrolab/macindex/internal/httpapi"
	"github.com/macrolab/macindex/internal/persistence"
	"github.com/macrolab/macindex/internal/persistence/postgres"
	"github.com/macrolab/macindex/internal/telemetry"
	"github.com/macrolab/macindex/internal/validate"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest MAC series over HTTP",
		Long: `Exposes the most recent backtest read-only: the series and
validation results as JSON, a health endpoint, Prometheus metrics and a
websocket progress feed. Rows come from Postgres when a DSN is configured,
otherwise from the series.jsonl artifact on disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootFlags.configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, cfg config.Run) error {
	store, cleanup, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	validation, err := loadValidation(cfg.OutputDir)
	if err != nil {
		return err
	}
	if validation == nil {
		log.Debug().Msg("no validation artifact found, /v1/validation will 404")
	}

	srvCfg := httpapi.DefaultServerConfig()
	srvCfg.Addr = cfg.HTTPAddr

	hub := httpapi.NewProgressHub()
	defer hub.Close()

	server := httpapi.NewServer(srvCfg, store, validation, telemetry.NewMetrics(), hub)
	return server.Start(ctx)
}

// buildStore picks the series backend: Postgres when configured, the
// on-disk artifact otherwise.
func buildStore(cfg config.Run) (httpapi.SeriesStore, func(), error) {
	if cfg.Postgres.DSN == "" {
		return &fileStore{path: filepath.Join(cfg.OutputDir, "series.jsonl")}, func() {}, nil
	}

	db, err := postgres.Connect(postgres.DefaultConfig(cfg.Postgres.DSN))
	if err != nil {
		return nil, nil, err
	}
	return &pgStore{repo: postgres.NewSeriesRepo(db, 30 * time.Second)},
		func() { db.Close() }, nil
}

// fileStore serves the series from the backtest artifact on disk. The
// file is re-read per request so a fresh backtest shows up without a
// restart.
type fileStore struct {
	path string
}

func (s *fileStore) LatestSeries(_ context.Context) ([]composite.Row, error) {
	return backtest.ReadJSONL(s.path)
}

// pgStore serves the most recently finished run from Postgres.
type pgStore struct {
	repo persistence.SeriesRepo
}

func (s *pgStore) LatestSeries(ctx context.Context) ([]composite.Row, error) {
	run, err := s.repo.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("no completed runs stored")
	}
	return s.repo.RowsForRun(ctx, run.ID)
}

func loadValidation(outputDir string) (*validate.Metrics, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, "validation.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m validate.Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("corrupt validation artifact: %w", err)
	}
	return &m, nil
}
