package era

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// eraFile is the on-disk shape of the era table. Base eras cover the
// modern range; extended eras widen coverage into pre-modern history and
// are only loaded when the era-extension toggle is on.
type eraFile struct {
	Eras         []eraEntry `yaml:"eras"`
	ExtendedEras []eraEntry `yaml:"extended_eras"`
}

type eraEntry struct {
	ID                 string             `yaml:"id"`
	Name               string             `yaml:"name"`
	Start              string             `yaml:"start"`
	End                string             `yaml:"end"`
	ActivePillars      []string           `yaml:"active_pillars"`
	Weights            map[string]float64 `yaml:"weights"`
	CalibrationFactor  float64            `yaml:"calibration_factor"`
	ThresholdOverrides map[string]float64 `yaml:"threshold_overrides"`
}

const dateLayout = "2006-01-02"

// LoadTable reads the era table from a YAML file and returns a validated
// resolver. Extended eras are included only when extended is true.
func LoadTable(path string, mode WeightMode, extended bool) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read era file %s: %w", path, err)
	}

	var file eraFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse era file %s: %w", path, err)
	}

	entries := file.Eras
	if extended {
		entries = append(file.ExtendedEras, file.Eras...)
	}

	eras := make([]Config, 0, len(entries))
	for _, e := range entries {
		cfg, err := e.toConfig()
		if err != nil {
			return nil, fmt.Errorf("era file %s: %w", path, err)
		}
		eras = append(eras, cfg)
	}

	resolver, err := NewResolver(eras, mode)
	if err != nil {
		return nil, fmt.Errorf("era file %s: %w", path, err)
	}
	return resolver, nil
}

func (e eraEntry) toConfig() (Config, error) {
	start, err := time.Parse(dateLayout, e.Start)
	if err != nil {
		return Config{}, fmt.Errorf("era %s: invalid start date %q", e.ID, e.Start)
	}

	var end time.Time
	if e.End != "" {
		end, err = time.Parse(dateLayout, e.End)
		if err != nil {
			return Config{}, fmt.Errorf("era %s: invalid end date %q", e.ID, e.End)
		}
	}

	return Config{
		ID:                 e.ID,
		Name:               e.Name,
		Start:              start,
		End:                end,
		ActivePillars:      e.ActivePillars,
		Weights:            e.Weights,
		CalibrationFactor:  e.CalibrationFactor,
		ThresholdOverrides: e.ThresholdOverrides,
	}, nil
}
