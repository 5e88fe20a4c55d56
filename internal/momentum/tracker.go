package momentum

import "github.com/macrolab/macindex/internal/composite"

// Config holds the momentum classification thresholds. Momentum is
// measured in native series periods, so the same thresholds apply to
// weekly and monthly backtests.
type Config struct {
	ShortPeriods int `yaml:"short_periods"`
	LongPeriods  int `yaml:"long_periods"`

	// Band on long momentum inside which the trend is "stable".
	StableBand float64 `yaml:"stable_band"`
	// Steeper single-period drop required for "rapidly_declining", to
	// distinguish a sharp break from a steady slide.
	RapidDropThreshold float64 `yaml:"rapid_drop_threshold"`
}

// DefaultConfig returns the standard momentum configuration: 1-period and
// 4-period lookbacks with a +/-0.02 stable band.
func DefaultConfig() Config {
	return Config{
		ShortPeriods:       1,
		LongPeriods:        4,
		StableBand:         0.02,
		RapidDropThreshold: 0.05,
	}
}

// Snapshot is the momentum state after the latest observation. Short and
// Long are nil while the series has fewer prior points than the lookback:
// momentum at the start of a series is undefined, not zero.
type Snapshot struct {
	Short *float64
	Long  *float64
	Trend string
}

// Tracker computes rate-of-change over trailing windows of the composite
// series. It is the only stateful element of the pipeline: it needs read
// access to the immediately preceding LongPeriods entries.
type Tracker struct {
	cfg     Config
	history []float64
}

// NewTracker creates a tracker with the given configuration.
func NewTracker(cfg Config) *Tracker {
	if cfg.ShortPeriods <= 0 {
		cfg.ShortPeriods = 1
	}
	if cfg.LongPeriods <= 0 {
		cfg.LongPeriods = 4
	}
	return &Tracker{cfg: cfg}
}

// Push appends the latest score and returns the momentum snapshot for it.
func (t *Tracker) Push(score float64) Snapshot {
	t.history = append(t.history, score)

	snap := Snapshot{Trend: composite.TrendUnknown}
	if d, ok := t.diff(t.cfg.ShortPeriods); ok {
		snap.Short = &d
	}
	if d, ok := t.diff(t.cfg.LongPeriods); ok {
		snap.Long = &d
	}
	snap.Trend = t.classify(snap)
	return snap
}

// Reset discards accumulated history, for reuse across runs.
func (t *Tracker) Reset() {
	t.history = t.history[:0]
}

// diff returns the signed change versus n periods prior.
func (t *Tracker) diff(n int) (float64, bool) {
	idx := len(t.history) - 1 - n
	if idx < 0 {
		return 0, false
	}
	return t.history[len(t.history)-1] - t.history[idx], true
}

func (t *Tracker) classify(snap Snapshot) string {
	if snap.Long == nil {
		return composite.TrendUnknown
	}
	long := *snap.Long

	switch {
	case long >= t.cfg.StableBand:
		return composite.TrendImproving
	case long > -t.cfg.StableBand:
		return composite.TrendStable
	default:
		if snap.Short != nil && *snap.Short <= -t.cfg.RapidDropThreshold {
			return composite.TrendRapidlyDeclining
		}
		return composite.TrendDeclining
	}
}
