package composite

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/macrolab/macindex/internal/era"
)

// Config holds the calculator's tunables. Breach and regime-break
// thresholds may be overridden per era via the era table.
type Config struct {
	BreachThreshold      float64 `yaml:"breach_threshold"`
	RegimeBreakThreshold float64 `yaml:"regime_break_threshold"`
	MultiplierAlpha      float64 `yaml:"multiplier_alpha"`
	MultiplierBeta       float64 `yaml:"multiplier_beta"`
	Bands                []Band  `yaml:"bands"`
}

// DefaultConfig returns the standard calculator configuration.
func DefaultConfig() Config {
	return Config{
		BreachThreshold:      0.2,
		RegimeBreakThreshold: 0.2,
		MultiplierAlpha:      2.0,
		MultiplierBeta:       2.0,
		Bands:                DefaultBands(),
	}
}

// Calculator combines pillar scores into the calibrated MAC score and
// derives breach flags, the stress multiplier, and the status band.
type Calculator struct {
	cfg Config
}

// NewCalculator validates the configuration and returns a calculator.
func NewCalculator(cfg Config) (*Calculator, error) {
	if len(cfg.Bands) == 0 {
		cfg.Bands = DefaultBands()
	}
	sort.Slice(cfg.Bands, func(i, j int) bool {
		return cfg.Bands[i].Min > cfg.Bands[j].Min
	})
	if cfg.Bands[len(cfg.Bands)-1].Min != 0.0 {
		return nil, fmt.Errorf("lowest band must start at 0.0, got %v", cfg.Bands[len(cfg.Bands)-1].Min)
	}
	if cfg.BreachThreshold < 0 || cfg.BreachThreshold > 1 {
		return nil, fmt.Errorf("breach threshold %v outside [0,1]", cfg.BreachThreshold)
	}
	if cfg.RegimeBreakThreshold < 0 || cfg.RegimeBreakThreshold > 1 {
		return nil, fmt.Errorf("regime-break threshold %v outside [0,1]", cfg.RegimeBreakThreshold)
	}
	return &Calculator{cfg: cfg}, nil
}

// Compute builds the composite row for one date from the pillars that are
// present. Weights come from the era config and are renormalized over the
// present pillars so their relative proportions are preserved; the
// calibration factor is applied after the weighted average so both remain
// independently auditable.
func (c *Calculator) Compute(date time.Time, pillarScores map[string]float64, eraCfg *era.Config) (Row, error) {
	if len(pillarScores) == 0 {
		return Row{}, fmt.Errorf("no pillar scores present for %s", date.Format("2006-01-02"))
	}

	weightSum := 0.0
	for p := range pillarScores {
		weightSum += eraCfg.Weights[p]
	}
	if weightSum <= 0 {
		return Row{}, fmt.Errorf("present pillars carry zero total weight for %s", date.Format("2006-01-02"))
	}

	raw := 0.0
	for p, score := range pillarScores {
		raw += score * (eraCfg.Weights[p] / weightSum)
	}

	mac := raw * eraCfg.CalibrationFactor
	if mac < 0 {
		mac = 0
	}
	if mac > 1 {
		mac = 1
	}

	breachThreshold := c.threshold("breach", c.cfg.BreachThreshold, eraCfg)
	flags := make([]string, 0)
	for p, score := range pillarScores {
		if score < breachThreshold {
			flags = append(flags, p)
		}
	}
	sort.Strings(flags)

	row := Row{
		Date:         date,
		EraID:        eraCfg.ID,
		MACScore:     mac,
		PillarScores: pillarScores,
		BreachFlags:  flags,
	}

	breakThreshold := c.threshold("regime_break", c.cfg.RegimeBreakThreshold, eraCfg)
	if mac >= breakThreshold {
		m := 1.0 + c.cfg.MultiplierAlpha*math.Pow(1.0-mac, c.cfg.MultiplierBeta)
		row.Multiplier = &m
		band := c.band(mac)
		row.Status = band.Name
		row.Interpretation = band.Interpretation
	} else {
		// Nonlinear stress dynamics: the point estimate is no longer
		// trustworthy, so no multiplier is reported at all.
		row.Status = StatusRegimeBreak
		row.Interpretation = c.bandByName(StatusRegimeBreak).Interpretation
	}

	return row, nil
}

func (c *Calculator) threshold(name string, fallback float64, eraCfg *era.Config) float64 {
	if v, ok := eraCfg.ThresholdOverrides[name]; ok {
		return v
	}
	return fallback
}

func (c *Calculator) band(score float64) Band {
	for _, b := range c.cfg.Bands {
		if score >= b.Min {
			return b
		}
	}
	return c.cfg.Bands[len(c.cfg.Bands)-1]
}

func (c *Calculator) bandByName(name string) Band {
	for _, b := range c.cfg.Bands {
		if b.Name == name {
			return b
		}
	}
	return Band{Name: name}
}
