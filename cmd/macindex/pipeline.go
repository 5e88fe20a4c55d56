package main

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/macrolab/macindex/internal/composite"
	"github.com/macrolab/macindex/internal/config"
	"github.com/macrolab/macindex/internal/era"
	"github.com/macrolab/macindex/internal/proxy"
	"github.com/macrolab/macindex/internal/scoring"
	"github.com/macrolab/macindex/internal/snapshot"
	"github.com/macrolab/macindex/internal/telemetry"
	"github.com/macrolab/macindex/internal/validate"
)

// pipeline bundles the wired components shared by the backtest and
// validate commands.
type pipeline struct {
	cfg        config.Run
	eras       *era.Resolver
	chains     *proxy.Resolver
	indicators []scoring.IndicatorConfig
	calc       *composite.Calculator
	provider   snapshot.Provider
	events     []validate.Event
	metrics    *telemetry.Metrics
}

// buildPipeline loads the data tables and wires the snapshot provider
// per the run configuration.
func buildPipeline(cfg config.Run) (*pipeline, error) {
	mode := era.WeightModeEqual
	if cfg.EraWeights {
		mode = era.WeightModeEraSpecific
	}

	eras, err := era.LoadTable(cfg.Tables.Eras, mode, cfg.ExtendedEras)
	if err != nil {
		return nil, err
	}
	chains, err := proxy.LoadChains(cfg.Tables.Proxies)
	if err != nil {
		return nil, err
	}
	indicators, err := scoring.LoadIndicators(cfg.Tables.Indicators)
	if err != nil {
		return nil, err
	}
	events, err := validate.LoadEvents(cfg.Tables.Crises)
	if err != nil {
		return nil, err
	}
	calc, err := composite.NewCalculator(cfg.Composite)
	if err != nil {
		return nil, err
	}

	metrics := telemetry.NewMetrics()

	source, err := buildSource(cfg, metrics)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		ids = append(ids, ind.ID)
	}

	provider := snapshot.NewChainedProvider(
		snapshot.ChainedProviderConfig{LookbackDays: cfg.LookbackDays},
		ids, chains, source, buildCache(cfg), metrics)

	return &pipeline{
		cfg:        cfg,
		eras:       eras,
		chains:     chains,
		indicators: indicators,
		calc:       calc,
		provider:   provider,
		events:     events,
		metrics:    metrics,
	}, nil
}

func buildSource(cfg config.Run, metrics *telemetry.Metrics) (snapshot.Source, error) {
	switch cfg.Source.Mode {
	case "csv":
		src := snapshot.NewStaticSource()
		if err := src.LoadCSV(cfg.Source.CSVPath); err != nil {
			return nil, err
		}
		return src, nil
	case "http":
		httpCfg := snapshot.DefaultHTTPSourceConfig(cfg.Source.BaseURL)
		if cfg.Source.RatePS > 0 {
			httpCfg.RatePerSecond = cfg.Source.RatePS
		}
		return snapshot.NewHTTPSource(httpCfg, metrics), nil
	default:
		return nil, fmt.Errorf("unknown source mode %q", cfg.Source.Mode)
	}
}

func buildCache(cfg config.Run) snapshot.Cache {
	if cfg.Redis.Addr == "" {
		return snapshot.NewMemoryCache(0)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis observation cache")
	return snapshot.NewRedisCache(client, cfg.Redis.TTL())
}
