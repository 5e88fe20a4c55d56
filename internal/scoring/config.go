package scoring

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"
)

// IndicatorConfig describes one indicator: which pillar it belongs to and
// how its raw value maps to a buffer score.
type IndicatorConfig struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	Pillar     string     `yaml:"pillar"`
	Unit       string     `yaml:"unit"`
	Rule       Rule       `yaml:"rule"`
	Thresholds Thresholds `yaml:"thresholds"`
}

type indicatorFile struct {
	Indicators []IndicatorConfig `yaml:"indicators"`
}

// LoadIndicators reads the indicator table from a YAML file and validates
// threshold ordering per rule.
func LoadIndicators(path string) ([]IndicatorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read indicator file %s: %w", path, err)
	}

	var file indicatorFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse indicator file %s: %w", path, err)
	}

	seen := make(map[string]bool)
	for _, ind := range file.Indicators {
		if err := ind.validate(); err != nil {
			return nil, fmt.Errorf("indicator file %s: %w", path, err)
		}
		if seen[ind.ID] {
			return nil, fmt.Errorf("indicator file %s: duplicate indicator id %q", path, ind.ID)
		}
		seen[ind.ID] = true
	}

	return file.Indicators, nil
}

func (c IndicatorConfig) validate() error {
	if c.ID == "" {
		return fmt.Errorf("indicator with empty id")
	}
	if c.Pillar == "" {
		return fmt.Errorf("indicator %s: no pillar assigned", c.ID)
	}

	th := c.Thresholds
	switch c.Rule {
	case RuleOneSided:
		if !monotone(th.Ample, th.Thin, th.Breach) {
			return fmt.Errorf("indicator %s: thresholds %v/%v/%v are not monotone",
				c.ID, th.Ample, th.Thin, th.Breach)
		}
	case RuleTwoSided:
		// Low side falls away from ample in one direction, high side in the
		// other; both must be monotone and on opposite sides of ample.
		if !monotone(th.Ample, th.Thin, th.Breach) {
			return fmt.Errorf("indicator %s: low-side thresholds are not monotone", c.ID)
		}
		if !monotone(th.Ample, th.ThinHigh, th.BreachHigh) {
			return fmt.Errorf("indicator %s: high-side thresholds are not monotone", c.ID)
		}
		if (th.Breach < th.Ample) == (th.BreachHigh < th.Ample) {
			return fmt.Errorf("indicator %s: two-sided breach thresholds must bracket the ample value", c.ID)
		}
	default:
		return fmt.Errorf("indicator %s: unknown scoring rule %q", c.ID, c.Rule)
	}
	return nil
}

// monotone reports whether b sits between a and c (weakly, either order).
func monotone(a, b, c float64) bool {
	if a <= c {
		return a <= b && b <= c
	}
	return a >= b && b >= c
}

// GroupByPillar returns indicator ids grouped by pillar name, members in
// stable order.
func GroupByPillar(indicators []IndicatorConfig) map[string][]string {
	groups := make(map[string][]string)
	for _, ind := range indicators {
		groups[ind.Pillar] = append(groups[ind.Pillar], ind.ID)
	}
	for p := range groups {
		sort.Strings(groups[p])
	}
	return groups
}
