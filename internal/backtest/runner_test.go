package backtest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolab/macindex/internal/composite"
	"github.com/macrolab/macindex/internal/era"
	"github.com/macrolab/macindex/internal/momentum"
	"github.com/macrolab/macindex/internal/proxy"
	"github.com/macrolab/macindex/internal/scoring"
	"github.com/macrolab/macindex/internal/snapshot"
	"github.com/macrolab/macindex/internal/validate"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// stubProvider serves canned snapshots keyed by date.
type stubProvider struct {
	snaps map[string]snapshot.Snapshot
	errs  map[string]error
}

func (s *stubProvider) GetSnapshot(_ context.Context, date time.Time) (snapshot.Snapshot, error) {
	key := date.Format("2006-01-02")
	if err, ok := s.errs[key]; ok {
		return nil, err
	}
	if snap, ok := s.snaps[key]; ok {
		return snap, nil
	}
	return snapshot.Snapshot{}, nil
}

func testIndicators() []scoring.IndicatorConfig {
	return []scoring.IndicatorConfig{
		{ID: "funding_spread", Pillar: "funding", Rule: scoring.RuleOneSided,
			Thresholds: scoring.Thresholds{Ample: 0.25, Thin: 0.75, Breach: 1.5}},
		{ID: "credit_spread", Pillar: "credit", Rule: scoring.RuleOneSided,
			Thresholds: scoring.Thresholds{Ample: 1.0, Thin: 2.5, Breach: 4.0}},
	}
}

func testEras(t *testing.T) *era.Resolver {
	t.Helper()
	r, err := era.NewResolver([]era.Config{{
		ID:                "modern",
		Start:             day(1990, 1, 1),
		ActivePillars:     []string{"funding", "credit"},
		CalibrationFactor: 1.0,
	}}, era.WeightModeEqual)
	require.NoError(t, err)
	return r
}

func ampleSnapshot() snapshot.Snapshot {
	return snapshot.Snapshot{
		"funding_spread": {Value: 0.25, Tier: proxy.TierExcellent},
		"credit_spread":  {Value: 1.0, Tier: proxy.TierExcellent},
	}
}

func newTestRunner(t *testing.T, cfg Config, provider snapshot.Provider, events []validate.Event) *Runner {
	t.Helper()
	calc, err := composite.NewCalculator(composite.DefaultConfig())
	require.NoError(t, err)
	r, err := NewRunner(cfg, provider, testEras(t), testIndicators(), calc,
		momentum.DefaultConfig(), events, nil, nil)
	require.NoError(t, err)
	return r
}

func TestRun_WeeklyGridStrictlyIncreasing(t *testing.T) {
	provider := &stubProvider{snaps: map[string]snapshot.Snapshot{}}
	for d := day(2019, 1, 7); !d.After(day(2019, 3, 4)); d = d.AddDate(0, 0, 7) {
		provider.snaps[d.Format("2006-01-02")] = ampleSnapshot()
	}

	r := newTestRunner(t, Config{Start: day(2019, 1, 7), End: day(2019, 3, 4), Frequency: FrequencyWeekly}, provider, nil)
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Rows, 9)
	for i := 1; i < len(result.Rows); i++ {
		assert.True(t, result.Rows[i].Date.After(result.Rows[i-1].Date),
			"series must be strictly increasing by date")
	}
	assert.Equal(t, 1.0, result.Rows[0].MACScore)
	assert.Equal(t, proxy.TierExcellent, result.Rows[0].DataQuality)
}

func TestRun_MissingPillarRenormalizesAndDegradesQuality(t *testing.T) {
	provider := &stubProvider{snaps: map[string]snapshot.Snapshot{
		"2019-01-07": {
			// credit_spread absent: credit pillar undefined this date.
			"funding_spread": {Value: 0.25, Tier: proxy.TierExcellent},
		},
	}}

	r := newTestRunner(t, Config{Start: day(2019, 1, 7), End: day(2019, 1, 7), Frequency: FrequencyWeekly}, provider, nil)
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, 1.0, row.MACScore, "surviving pillar carries the full renormalized weight")
	assert.NotContains(t, row.PillarScores, "credit")
	assert.Equal(t, proxy.TierFair, row.DataQuality, "half the active pillars missing degrades quality")
}

func TestRun_DateFailureDegradesRowAndContinues(t *testing.T) {
	provider := &stubProvider{
		snaps: map[string]snapshot.Snapshot{
			"2019-01-07": ampleSnapshot(),
			"2019-01-21": ampleSnapshot(),
		},
		errs: map[string]error{
			"2019-01-14": fmt.Errorf("malformed snapshot payload"),
		},
	}

	r := newTestRunner(t, Config{Start: day(2019, 1, 7), End: day(2019, 1, 21), Frequency: FrequencyWeekly}, provider, nil)
	result, err := r.Run(context.Background())
	require.NoError(t, err, "a per-date failure must not abort the run")

	require.Len(t, result.Rows, 3)
	assert.Equal(t, 1, result.DegradedRows)

	degraded := result.Rows[1]
	assert.Equal(t, proxy.TierPoor, degraded.DataQuality)
	assert.Empty(t, degraded.PillarScores)
	assert.Nil(t, degraded.Multiplier)
	assert.True(t, degraded.Degraded)
	assert.Equal(t, composite.StatusDegraded, degraded.Status,
		"a data failure is not a regime break")
}

func TestRun_DegradedRowsDoNotCountAsWarnings(t *testing.T) {
	provider := &stubProvider{
		snaps: map[string]snapshot.Snapshot{
			"2019-01-07": ampleSnapshot(),
			"2019-01-21": ampleSnapshot(),
		},
		errs: map[string]error{
			"2019-01-14": fmt.Errorf("malformed snapshot payload"),
		},
	}

	r := newTestRunner(t, Config{Start: day(2019, 1, 7), End: day(2019, 1, 21), Frequency: FrequencyWeekly}, provider, nil)
	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.DegradedRows)

	v, err := validate.NewValidator(0.35, 90)
	require.NoError(t, err)
	metrics := v.Validate(result.Rows, nil)

	// The failed date's placeholder score is zero, but an all-ample
	// market produced no crisis warnings at all.
	assert.Equal(t, 0, metrics.WarningPoints)
	assert.Equal(t, 0, metrics.FalsePositives)
}

func TestRun_ConfigurationErrorAborts(t *testing.T) {
	provider := &stubProvider{snaps: map[string]snapshot.Snapshot{
		"1985-01-07": ampleSnapshot(), // before the only configured era
	}}

	r := newTestRunner(t, Config{Start: day(1985, 1, 7), End: day(1985, 1, 21), Frequency: FrequencyWeekly}, provider, nil)
	_, err := r.Run(context.Background())
	require.Error(t, err)

	var cfgErr *era.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr), "uncovered era must abort, not default")
}

func TestRun_CrisisLabelsAppliedToRows(t *testing.T) {
	provider := &stubProvider{snaps: map[string]snapshot.Snapshot{
		"2020-03-16": ampleSnapshot(),
	}}
	events := []validate.Event{{Name: "covid", Start: day(2020, 2, 20), End: day(2020, 4, 30)}}

	r := newTestRunner(t, Config{Start: day(2020, 3, 16), End: day(2020, 3, 16), Frequency: FrequencyDaily}, provider, events)
	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "covid", result.Rows[0].CrisisEvent)
}

func TestRun_MomentumAcrossSeries(t *testing.T) {
	provider := &stubProvider{snaps: map[string]snapshot.Snapshot{}}
	// Funding spread widens steadily: scores decline week over week.
	values := []float64{0.25, 0.33, 0.41, 0.49, 0.57, 0.65}
	d := day(2019, 1, 7)
	for _, v := range values {
		provider.snaps[d.Format("2006-01-02")] = snapshot.Snapshot{
			"funding_spread": {Value: v, Tier: proxy.TierExcellent},
			"credit_spread":  {Value: 1.0, Tier: proxy.TierExcellent},
		}
		d = d.AddDate(0, 0, 7)
	}

	r := newTestRunner(t, Config{Start: day(2019, 1, 7), End: day(2019, 2, 11), Frequency: FrequencyWeekly}, provider, nil)
	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Rows, 6)

	first := result.Rows[0]
	assert.Nil(t, first.Momentum1, "momentum undefined at series start, not zero")
	assert.Equal(t, composite.TrendUnknown, first.TrendDirection)

	last := result.Rows[5]
	require.NotNil(t, last.Momentum1)
	require.NotNil(t, last.Momentum4)
	assert.Less(t, *last.Momentum4, 0.0)
	assert.Equal(t, composite.TrendDeclining, last.TrendDirection)
}

func TestRun_Idempotence(t *testing.T) {
	provider := &stubProvider{snaps: map[string]snapshot.Snapshot{}}
	for d := day(2019, 1, 7); !d.After(day(2019, 2, 25)); d = d.AddDate(0, 0, 7) {
		provider.snaps[d.Format("2006-01-02")] = snapshot.Snapshot{
			"funding_spread": {Value: 0.6, Tier: proxy.TierGood},
			"credit_spread":  {Value: 2.2, Tier: proxy.TierExcellent},
		}
	}
	cfg := Config{Start: day(2019, 1, 7), End: day(2019, 2, 25), Frequency: FrequencyWeekly}

	first, err := newTestRunner(t, cfg, provider, nil).Run(context.Background())
	require.NoError(t, err)
	second, err := newTestRunner(t, cfg, provider, nil).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, len(first.Rows), len(second.Rows))
	for i := range first.Rows {
		a, b := first.Rows[i], second.Rows[i]
		assert.Equal(t, a.Date, b.Date)
		assert.Equal(t, a.MACScore, b.MACScore)
		assert.Equal(t, a.PillarScores, b.PillarScores)
		assert.Equal(t, a.BreachFlags, b.BreachFlags)
		assert.Equal(t, a.Status, b.Status)
	}
}

func TestRun_CancellationBetweenDates(t *testing.T) {
	provider := &stubProvider{snaps: map[string]snapshot.Snapshot{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(t, Config{Start: day(2019, 1, 7), End: day(2019, 12, 30), Frequency: FrequencyWeekly}, provider, nil)
	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrequency_Grid(t *testing.T) {
	grid := FrequencyMonthly.Grid(day(2019, 1, 31), day(2019, 6, 30))
	require.NotEmpty(t, grid)
	assert.Equal(t, day(2019, 1, 31), grid[0])
	for i := 1; i < len(grid); i++ {
		assert.True(t, grid[i].After(grid[i-1]))
	}

	daily := FrequencyDaily.Grid(day(2019, 1, 1), day(2019, 1, 10))
	assert.Len(t, daily, 10)

	_, err := ParseFrequency("hourly")
	assert.Error(t, err)
}

func TestWriter_RoundTrip(t *testing.T) {
	provider := &stubProvider{snaps: map[string]snapshot.Snapshot{
		"2019-01-07": ampleSnapshot(),
		"2019-01-14": ampleSnapshot(),
	}}
	r := newTestRunner(t, Config{Start: day(2019, 1, 7), End: day(2019, 1, 14), Frequency: FrequencyWeekly}, provider, nil)
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	dir := t.TempDir()
	w := NewWriter(dir)
	require.NoError(t, w.WriteAll(result))

	rows, err := ReadJSONL(filepath.Join(dir, "series.jsonl"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, result.Rows[0].MACScore, rows[0].MACScore)
	assert.Equal(t, result.Rows[0].Status, rows[0].Status)
	assert.True(t, result.Rows[0].Date.Equal(rows[0].Date))
}
