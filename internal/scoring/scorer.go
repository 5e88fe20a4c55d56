package scoring

// Rule selects how a raw indicator value maps to a buffer score.
type Rule string

const (
	// RuleOneSided scores against a single failure direction: the score
	// falls from 1.0 at the ample threshold to 0.0 at the breach threshold.
	RuleOneSided Rule = "one_sided"
	// RuleTwoSided scores against failure in both directions (e.g. a risk
	// premium that is unhealthy both too tight and too wide) and takes the
	// minimum of the two one-sided scores.
	RuleTwoSided Rule = "two_sided"
)

// Anchor scores for the piecewise-linear mapping.
const (
	scoreAmple  = 1.0
	scoreThin   = 0.5
	scoreBreach = 0.0
)

// Thresholds holds the anchor values for an indicator's scoring rule.
// For one-sided rules only Ample/Thin/Breach are used; the failure
// direction is implied by their ordering. Two-sided rules share Ample as
// the healthy center and add ThinHigh/BreachHigh for the opposite side.
type Thresholds struct {
	Ample      float64 `yaml:"ample"`
	Thin       float64 `yaml:"thin"`
	Breach     float64 `yaml:"breach"`
	ThinHigh   float64 `yaml:"thin_high"`
	BreachHigh float64 `yaml:"breach_high"`
}

// Score maps a raw indicator value to a buffer score in [0,1]. It is a
// pure function of its inputs: no clock, no configuration lookup.
func Score(raw float64, rule Rule, th Thresholds) float64 {
	if rule == RuleTwoSided {
		low := scoreOneSided(raw, th.Ample, th.Thin, th.Breach)
		high := scoreOneSided(raw, th.Ample, th.ThinHigh, th.BreachHigh)
		// Either side failing is a buffer failure.
		if low < high {
			return low
		}
		return high
	}
	return scoreOneSided(raw, th.Ample, th.Thin, th.Breach)
}

// scoreOneSided interpolates piecewise-linearly between the fixed anchors
// ample->1.0, thin->0.5, breach->0.0 and clamps outside the endpoints.
func scoreOneSided(raw, ample, thin, breach float64) float64 {
	// Degenerate configuration: all anchors collapse to one point. Return
	// the boundary score instead of dividing by zero.
	if ample == breach {
		if raw >= ample {
			return scoreAmple
		}
		return scoreBreach
	}

	// Orient so that higher raw values are healthier, then score the
	// mirrored problem for the "lower is healthier" case.
	if ample < breach {
		return scoreOneSided(-raw, -ample, -thin, -breach)
	}

	switch {
	case raw >= ample:
		return scoreAmple
	case raw <= breach:
		return scoreBreach
	case raw >= thin:
		if ample == thin {
			return scoreAmple
		}
		return scoreThin + (scoreAmple-scoreThin)*(raw-thin)/(ample-thin)
	default:
		if thin == breach {
			return scoreThin
		}
		return scoreBreach + (scoreThin-scoreBreach)*(raw-breach)/(thin-breach)
	}
}
