package scoring

// PillarResult is one pillar's aggregate for a single date. Defined is
// false when every member indicator was missing: an undefined pillar is
// excluded from the composite rather than substituted with a default.
type PillarResult struct {
	Score        float64
	Defined      bool
	MissingRatio float64
}

// AggregatePillar averages the member indicator scores that are present
// on this date. Absent members are excluded from the mean, never treated
// as zero or one.
func AggregatePillar(members []string, scores map[string]float64) PillarResult {
	if len(members) == 0 {
		return PillarResult{Defined: false, MissingRatio: 1.0}
	}

	sum := 0.0
	present := 0
	for _, id := range members {
		s, ok := scores[id]
		if !ok {
			continue
		}
		sum += s
		present++
	}

	missing := float64(len(members)-present) / float64(len(members))
	if present == 0 {
		return PillarResult{Defined: false, MissingRatio: 1.0}
	}

	return PillarResult{
		Score:        sum / float64(present),
		Defined:      true,
		MissingRatio: missing,
	}
}
