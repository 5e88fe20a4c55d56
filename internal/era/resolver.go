package era

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// WeightMode selects how pillar weights are derived for an era.
type WeightMode string

const (
	// WeightModeEqual assigns 1/N to each active pillar (the default).
	WeightModeEqual WeightMode = "equal"
	// WeightModeEraSpecific uses the explicit per-era weight table.
	WeightModeEraSpecific WeightMode = "era_specific"
)

// Config is the weighting and calibration regime in force over one
// historical date range. Era configs are static input: the table is
// loaded, never computed.
type Config struct {
	ID                 string
	Name               string
	Start              time.Time
	End                time.Time // zero means open-ended
	ActivePillars      []string
	Weights            map[string]float64 // explicit per-era weights, may be nil in equal mode
	CalibrationFactor  float64
	ThresholdOverrides map[string]float64 // e.g. "breach", "regime_break"
}

// Contains reports whether the era covers the given date.
func (c *Config) Contains(date time.Time) bool {
	if date.Before(c.Start) {
		return false
	}
	if c.End.IsZero() {
		return true
	}
	return date.Before(c.End)
}

// ConfigurationError reports a date outside every configured era. Weights
// and calibration are unknowable there, so callers must abort rather than
// default.
type ConfigurationError struct {
	Date time.Time
	Msg  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("era configuration error for %s: %s", e.Date.Format("2006-01-02"), e.Msg)
}

// Resolver answers "which era is in force on this date" over an ordered,
// non-overlapping era table.
type Resolver struct {
	eras []Config
	mode WeightMode
}

// NewResolver validates and sorts the era table. Overlapping eras or a
// gap-introducing open-ended era in the middle of the table are rejected.
func NewResolver(eras []Config, mode WeightMode) (*Resolver, error) {
	if len(eras) == 0 {
		return nil, fmt.Errorf("era table is empty")
	}
	if mode != WeightModeEqual && mode != WeightModeEraSpecific {
		return nil, fmt.Errorf("unknown weight mode %q", mode)
	}

	sorted := make([]Config, len(eras))
	copy(sorted, eras)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	for i, e := range sorted {
		if err := validateEra(e, mode); err != nil {
			return nil, err
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if prev.End.IsZero() || e.Start.Before(prev.End) {
			return nil, fmt.Errorf("era %s overlaps era %s", e.ID, prev.ID)
		}
	}

	return &Resolver{eras: sorted, mode: mode}, nil
}

// Resolve returns the era config in force on the given date, with the
// effective pillar weights already materialized for the configured weight
// mode. A date outside every era is a ConfigurationError, never a silent
// default.
func (r *Resolver) Resolve(date time.Time) (*Config, error) {
	// eras are sorted by start; find the last era starting at or before date.
	i := sort.Search(len(r.eras), func(i int) bool {
		return r.eras[i].Start.After(date)
	})
	if i == 0 {
		return nil, &ConfigurationError{Date: date, Msg: "date precedes all configured eras"}
	}

	e := r.eras[i-1]
	if !e.Contains(date) {
		return nil, &ConfigurationError{Date: date, Msg: "no era covers this date"}
	}

	resolved := e
	resolved.Weights = r.effectiveWeights(&e)
	return &resolved, nil
}

// Mode returns the resolver's weight mode.
func (r *Resolver) Mode() WeightMode {
	return r.mode
}

// Eras returns the sorted era table, for audit output.
func (r *Resolver) Eras() []Config {
	return r.eras
}

func (r *Resolver) effectiveWeights(e *Config) map[string]float64 {
	weights := make(map[string]float64, len(e.ActivePillars))
	if r.mode == WeightModeEqual || len(e.Weights) == 0 {
		n := float64(len(e.ActivePillars))
		for _, p := range e.ActivePillars {
			weights[p] = 1.0 / n
		}
		return weights
	}
	for _, p := range e.ActivePillars {
		weights[p] = e.Weights[p]
	}
	return weights
}

func validateEra(e Config, mode WeightMode) error {
	if e.ID == "" {
		return fmt.Errorf("era with empty id")
	}
	if len(e.ActivePillars) == 0 {
		return fmt.Errorf("era %s: no active pillars", e.ID)
	}
	if !e.End.IsZero() && !e.Start.Before(e.End) {
		return fmt.Errorf("era %s: start is not before end", e.ID)
	}
	if e.CalibrationFactor <= 0 || e.CalibrationFactor > 1.0 {
		return fmt.Errorf("era %s: calibration factor %v outside (0, 1]", e.ID, e.CalibrationFactor)
	}

	if mode == WeightModeEraSpecific && len(e.Weights) > 0 {
		sum := 0.0
		for _, p := range e.ActivePillars {
			w, ok := e.Weights[p]
			if !ok {
				return fmt.Errorf("era %s: active pillar %s has no weight", e.ID, p)
			}
			if w < 0 {
				return fmt.Errorf("era %s: pillar %s has negative weight %v", e.ID, p, w)
			}
			sum += w
		}
		if math.Abs(sum-1.0) > 1e-6 {
			return fmt.Errorf("era %s: weights sum to %.6f, expected 1.0", e.ID, sum)
		}
	}
	return nil
}
