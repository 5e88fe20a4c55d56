package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/macrolab/macindex/internal/backtest"
	"github.com/macrolab/macindex/internal/config"
	"github.com/macrolab/macindex/internal/httpapi"
	"github.com/macrolab/macindex/internal/persistence/postgres"
	"github.com/macrolab/macindex/internal/progress"
)

func newBacktestCmd() *cobra.Command {
	var (
		start        string
		end          string
		frequency    string
		extendedEras bool
		eraWeights   bool
		outputDir    string
		live         bool
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run the MAC backtest over a date range",
		Long: `Computes the MAC series over the configured date grid and writes
series.csv, series.jsonl and run.json to the output directory. When a
Postgres DSN is configured the run is also persisted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootFlags.configPath)
			if err != nil {
				return err
			}
			if start != "" {
				cfg.Start = start
			}
			if end != "" {
				cfg.End = end
			}
			if frequency != "" {
				cfg.Frequency = frequency
			}
			if cmd.Flags().Changed("extended-eras") {
				cfg.ExtendedEras = extendedEras
			}
			if cmd.Flags().Changed("era-weights") {
				cfg.EraWeights = eraWeights
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runBacktest(cmd, cfg, live)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&start, "start", "", "start date (YYYY-MM-DD, overrides config)")
	fs.StringVar(&end, "end", "", "end date (YYYY-MM-DD, overrides config)")
	fs.StringVar(&frequency, "frequency", "", "date grid: daily|weekly|monthly")
	fs.BoolVar(&extendedEras, "extended-eras", false, "include pre-modern proxy eras")
	fs.BoolVar(&eraWeights, "era-weights", false, "use per-era pillar weights instead of equal weights")
	fs.StringVar(&outputDir, "output", "", "artifact output directory (overrides config)")
	fs.BoolVar(&live, "live", false, "expose metrics and websocket progress on http_addr during the run")

	return cmd
}

func runBacktest(cmd *cobra.Command, cfg config.Run, live bool) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	var hub *httpapi.ProgressHub
	if live {
		hub = httpapi.NewProgressHub()
		defer hub.Close()

		srvCfg := httpapi.DefaultServerConfig()
		srvCfg.Addr = cfg.HTTPAddr
		server := httpapi.NewServer(srvCfg, &fileStore{path: filepath.Join(cfg.OutputDir, "series.jsonl")}, nil, p.metrics, hub)
		go func() {
			if err := server.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("live progress server stopped")
			}
		}()
	}

	startDate, err := cfg.StartDate()
	if err != nil {
		return err
	}
	endDate, err := cfg.EndDate()
	if err != nil {
		return err
	}
	freq, err := backtest.ParseFrequency(cfg.Frequency)
	if err != nil {
		return err
	}

	var bar *progress.Indicator
	onProgress := func(done, total int, date time.Time) {
		if bar == nil {
			bar = progress.NewIndicator("backtest", total)
		}
		bar.Update(done)
		if hub != nil {
			hub.Publish(httpapi.ProgressEvent{Done: done, Total: total, Date: date})
		}
	}

	runner, err := backtest.NewRunner(
		backtest.Config{Start: startDate, End: endDate, Frequency: freq},
		p.provider, p.eras, p.indicators, p.calc, cfg.Momentum, p.events,
		p.metrics, onProgress)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	result.ConfigFingerprint = cfg.Fingerprint()
	if bar != nil {
		bar.Finish()
	}

	writer := backtest.NewWriter(cfg.OutputDir)
	if err := writer.WriteAll(result); err != nil {
		return err
	}
	log.Info().
		Str("run_id", result.RunID.String()).
		Int("rows", len(result.Rows)).
		Int("degraded", result.DegradedRows).
		Str("output", writer.OutputDir()).
		Msg("backtest artifacts written")

	if cfg.Postgres.DSN != "" {
		if err := persistResult(cmd, cfg, result); err != nil {
			return err
		}
	}
	return nil
}

func persistResult(cmd *cobra.Command, cfg config.Run, result *backtest.Result) error {
	db, err := postgres.Connect(postgres.DefaultConfig(cfg.Postgres.DSN))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.EnsureSchema(db); err != nil {
		return err
	}
	repo := postgres.NewSeriesRepo(db, 30*time.Second)
	if err := repo.SaveResult(cmd.Context(), result); err != nil {
		return err
	}
	log.Info().Str("run_id", result.RunID.String()).Msg("run persisted to postgres")
	return nil
}
