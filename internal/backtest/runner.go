package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/macrolab/macindex/internal/composite"
	"github.com/macrolab/macindex/internal/era"
	"github.com/macrolab/macindex/internal/momentum"
	"github.com/macrolab/macindex/internal/proxy"
	"github.com/macrolab/macindex/internal/scoring"
	"github.com/macrolab/macindex/internal/snapshot"
	"github.com/macrolab/macindex/internal/telemetry"
	"github.com/macrolab/macindex/internal/validate"
)

// Config holds the run-level backtest parameters.
type Config struct {
	Start     time.Time
	End       time.Time
	Frequency Frequency
}

// Result is one completed backtest: the append-only MAC series plus run
// metadata. ConfigFingerprint ties the artifact back to the exact run
// configuration that produced it.
type Result struct {
	RunID             uuid.UUID       `json:"run_id"`
	Start             time.Time       `json:"start"`
	End               time.Time       `json:"end"`
	Frequency         Frequency       `json:"frequency"`
	ConfigFingerprint string          `json:"config_fingerprint,omitempty"`
	StartedAt         time.Time       `json:"started_at"`
	FinishedAt        time.Time       `json:"finished_at"`
	Rows              []composite.Row `json:"rows"`
	DegradedRows      int             `json:"degraded_rows"`
}

// ProgressFunc receives per-date progress callbacks: done out of total,
// and the date just finished.
type ProgressFunc func(done, total int, date time.Time)

// Runner orchestrates the per-date pipeline across the date grid: proxy
// resolution and scoring, pillar aggregation, era lookup, composite
// calculation, momentum tracking.
type Runner struct {
	cfg        Config
	provider   snapshot.Provider
	eras       *era.Resolver
	indicators map[string]scoring.IndicatorConfig
	pillars    map[string][]string
	calc       *composite.Calculator
	momentum   momentum.Config
	events     []validate.Event
	metrics    *telemetry.Metrics
	progress   ProgressFunc
	clock      func() time.Time
}

// NewRunner wires a backtest runner. events, metrics and progress may be
// nil/empty.
func NewRunner(cfg Config, provider snapshot.Provider, eras *era.Resolver, indicators []scoring.IndicatorConfig, calc *composite.Calculator, momCfg momentum.Config, events []validate.Event, metrics *telemetry.Metrics, progress ProgressFunc) (*Runner, error) {
	if cfg.End.Before(cfg.Start) {
		return nil, fmt.Errorf("backtest end %s precedes start %s",
			cfg.End.Format("2006-01-02"), cfg.Start.Format("2006-01-02"))
	}
	if _, err := ParseFrequency(string(cfg.Frequency)); err != nil {
		return nil, err
	}

	byID := make(map[string]scoring.IndicatorConfig, len(indicators))
	for _, ind := range indicators {
		byID[ind.ID] = ind
	}

	return &Runner{
		cfg:        cfg,
		provider:   provider,
		eras:       eras,
		indicators: byID,
		pillars:    scoring.GroupByPillar(indicators),
		calc:       calc,
		momentum:   momCfg,
		events:     events,
		metrics:    metrics,
		progress:   progress,
		clock:      time.Now,
	}, nil
}

// Run executes the backtest. Per-date failures degrade that row and the
// run continues; a ConfigurationError is systemic and aborts. Cancellation
// is honored between dates.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	grid := r.cfg.Frequency.Grid(r.cfg.Start, r.cfg.End)

	result := &Result{
		RunID:     uuid.New(),
		Start:     r.cfg.Start,
		End:       r.cfg.End,
		Frequency: r.cfg.Frequency,
		StartedAt: r.clock(),
		Rows:      make([]composite.Row, 0, len(grid)),
	}

	log.Info().
		Str("run_id", result.RunID.String()).
		Time("start", r.cfg.Start).
		Time("end", r.cfg.End).
		Str("frequency", string(r.cfg.Frequency)).
		Int("dates", len(grid)).
		Msg("backtest starting")

	tracker := momentum.NewTracker(r.momentum)

	for i, date := range grid {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		began := r.clock()
		row, err := r.step(ctx, date, tracker)
		if err != nil {
			var cfgErr *era.ConfigurationError
			if errors.As(err, &cfgErr) {
				r.countRun("configuration_error")
				return nil, err
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			// Anything else is a data defect local to this date: record a
			// maximal-missingness row and move on.
			log.Warn().Err(err).Time("date", date).Msg("date degraded")
			row = r.degradedRow(date)
			result.DegradedRows++
			if r.metrics != nil {
				r.metrics.DegradedRows.Inc()
			}
		}

		result.Rows = append(result.Rows, row)

		if r.metrics != nil {
			r.metrics.DatesProcessed.Inc()
			r.metrics.DateDuration.Observe(r.clock().Sub(began).Seconds())
		}
		if r.progress != nil {
			r.progress(i+1, len(grid), date)
		}
	}

	result.FinishedAt = r.clock()
	r.countRun("completed")

	log.Info().
		Str("run_id", result.RunID.String()).
		Int("rows", len(result.Rows)).
		Int("degraded", result.DegradedRows).
		Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).
		Msg("backtest complete")

	return result, nil
}

// step computes one series row. Everything here is a pure function of the
// date, the configuration, and the snapshot, except the momentum tracker.
func (r *Runner) step(ctx context.Context, date time.Time, tracker *momentum.Tracker) (composite.Row, error) {
	eraCfg, err := r.eras.Resolve(date)
	if err != nil {
		return composite.Row{}, err
	}

	snap, err := r.provider.GetSnapshot(ctx, date)
	if err != nil {
		return composite.Row{}, err
	}

	scores := make(map[string]float64, len(snap))
	worstTier := proxy.TierExcellent
	for id, obs := range snap {
		ind, ok := r.indicators[id]
		if !ok {
			continue // snapshot may carry indicators outside this run's table
		}
		scores[id] = scoring.Score(obs.Value, ind.Rule, ind.Thresholds)
		worstTier = proxy.Worse(worstTier, obs.Tier)
	}

	pillarScores := make(map[string]float64)
	defined := 0
	for _, pillarName := range eraCfg.ActivePillars {
		res := scoring.AggregatePillar(r.pillars[pillarName], scores)
		if !res.Defined {
			continue // active but not computable this date
		}
		pillarScores[pillarName] = res.Score
		defined++
	}

	if defined == 0 {
		return composite.Row{}, fmt.Errorf("no pillar computable for %s", date.Format("2006-01-02"))
	}

	row, err := r.calc.Compute(date, pillarScores, eraCfg)
	if err != nil {
		return composite.Row{}, err
	}

	row.DataQuality = dataQuality(worstTier, defined, len(eraCfg.ActivePillars))
	row.CrisisEvent = validate.LabelFor(r.events, date)

	snapMomentum := tracker.Push(row.MACScore)
	row.Momentum1 = snapMomentum.Short
	row.Momentum4 = snapMomentum.Long
	row.TrendDirection = snapMomentum.Trend

	return row, nil
}

// degradedRow records a date whose computation failed: lowest quality, no
// scores, no momentum. The row is marked Degraded so the zero score never
// reads as a market signal, and the tracker is not fed, so momentum on
// following dates still measures change between real observations.
func (r *Runner) degradedRow(date time.Time) composite.Row {
	row := composite.Row{
		Date:           date,
		PillarScores:   map[string]float64{},
		BreachFlags:    []string{},
		Status:         composite.StatusDegraded,
		Interpretation: "date degraded: no computable pillar data",
		DataQuality:    proxy.TierPoor,
		CrisisEvent:    validate.LabelFor(r.events, date),
		TrendDirection: composite.TrendUnknown,
		Degraded:       true,
	}
	return row
}

// dataQuality combines the worst selected-source tier with pillar
// coverage: fewer computable pillars means a lower tier.
func dataQuality(worstSource proxy.QualityTier, defined, active int) proxy.QualityTier {
	coverage := proxy.TierPoor
	ratio := float64(defined) / float64(active)
	switch {
	case ratio >= 1.0:
		coverage = proxy.TierExcellent
	case ratio >= 0.75:
		coverage = proxy.TierGood
	case ratio >= 0.5:
		coverage = proxy.TierFair
	}
	return proxy.Worse(worstSource, coverage)
}

func (r *Runner) countRun(outcome string) {
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	}
}
