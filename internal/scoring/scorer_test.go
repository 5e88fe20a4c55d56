package scoring

import (
	"math"
	"testing"
)

func TestScoreOneSided_AnchorExactness(t *testing.T) {
	// TED-spread style: ample when low, breached when high.
	th := Thresholds{Ample: 0.25, Thin: 0.75, Breach: 1.5}

	cases := []struct {
		raw  float64
		want float64
	}{
		{0.25, 1.0},
		{0.75, 0.5},
		{1.5, 0.0},
	}
	for _, tc := range cases {
		got := Score(tc.raw, RuleOneSided, th)
		if got != tc.want {
			t.Errorf("Score(%v) = %v, want exactly %v", tc.raw, got, tc.want)
		}
	}
}

func TestScoreOneSided_ClampsBeyondEndpoints(t *testing.T) {
	th := Thresholds{Ample: 0.25, Thin: 0.75, Breach: 1.5}

	if got := Score(-2.0, RuleOneSided, th); got != 1.0 {
		t.Errorf("value beyond ample should clamp to 1.0, got %v", got)
	}
	if got := Score(10.0, RuleOneSided, th); got != 0.0 {
		t.Errorf("value beyond breach should clamp to 0.0, got %v", got)
	}
}

func TestScoreOneSided_Interpolation(t *testing.T) {
	// Higher-is-healthier direction (e.g. reserve coverage ratio).
	th := Thresholds{Ample: 1.0, Thin: 0.6, Breach: 0.2}

	if got := Score(0.8, RuleOneSided, th); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("midpoint of ample segment: got %v, want 0.75", got)
	}
	if got := Score(0.4, RuleOneSided, th); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("midpoint of breach segment: got %v, want 0.25", got)
	}
}

func TestScoreOneSided_RangeProperty(t *testing.T) {
	th := Thresholds{Ample: 0.25, Thin: 0.75, Breach: 1.5}
	for raw := -5.0; raw <= 5.0; raw += 0.01 {
		got := Score(raw, RuleOneSided, th)
		if got < 0.0 || got > 1.0 {
			t.Fatalf("Score(%v) = %v out of [0,1]", raw, got)
		}
	}
}

func TestScoreOneSided_MonotoneTowardBreach(t *testing.T) {
	th := Thresholds{Ample: 0.25, Thin: 0.75, Breach: 1.5}
	prev := Score(0.0, RuleOneSided, th)
	for raw := 0.1; raw <= 2.0; raw += 0.1 {
		got := Score(raw, RuleOneSided, th)
		if got > prev {
			t.Fatalf("score increased toward breach at raw=%v: %v -> %v", raw, prev, got)
		}
		prev = got
	}
}

func TestScoreTwoSided_Symmetry(t *testing.T) {
	// Credit spread unhealthy both too tight (underpriced risk) and too
	// wide (stress); thresholds mirrored around 2.0.
	th := Thresholds{
		Ample: 2.0,
		Thin:  1.0, Breach: 0.5,
		ThinHigh: 3.0, BreachHigh: 3.5,
	}

	for _, dev := range []float64{0.25, 0.5, 0.75, 1.0, 1.25} {
		lo := Score(2.0-dev, RuleTwoSided, th)
		hi := Score(2.0+dev, RuleTwoSided, th)
		if math.Abs(lo-hi) > 1e-12 {
			t.Errorf("deviation %v: low-side score %v != high-side score %v", dev, lo, hi)
		}
	}

	if got := Score(2.0, RuleTwoSided, th); got != 1.0 {
		t.Errorf("center value should score 1.0, got %v", got)
	}
}

func TestScoreTwoSided_MinOfSides(t *testing.T) {
	th := Thresholds{
		Ample: 2.0,
		Thin:  1.0, Breach: 0.5,
		ThinHigh: 3.0, BreachHigh: 4.0,
	}

	// Past the low breach: low side fails entirely regardless of the
	// comfortable distance to the high breach.
	if got := Score(0.4, RuleTwoSided, th); got != 0.0 {
		t.Errorf("breached low side should score 0.0, got %v", got)
	}
	if got := Score(3.0, RuleTwoSided, th); got != 0.5 {
		t.Errorf("high-side thin anchor should score 0.5, got %v", got)
	}
}

func TestScore_DegenerateThresholds(t *testing.T) {
	th := Thresholds{Ample: 1.0, Thin: 1.0, Breach: 1.0}

	if got := Score(1.5, RuleOneSided, th); got != 1.0 {
		t.Errorf("raw above collapsed anchors should score 1.0, got %v", got)
	}
	if got := Score(1.0, RuleOneSided, th); got != 1.0 {
		t.Errorf("raw at collapsed anchors should score 1.0, got %v", got)
	}
	if got := Score(0.5, RuleOneSided, th); got != 0.0 {
		t.Errorf("raw below collapsed anchors should score 0.0, got %v", got)
	}
}

func TestAggregatePillar_Mean(t *testing.T) {
	res := AggregatePillar([]string{"a", "b"}, map[string]float64{"a": 0.8, "b": 0.6})
	if !res.Defined {
		t.Fatal("expected defined pillar")
	}
	if math.Abs(res.Score-0.7) > 1e-12 {
		t.Errorf("mean of {0.8, 0.6} = %v, want 0.7", res.Score)
	}
	if res.MissingRatio != 0.0 {
		t.Errorf("missing ratio = %v, want 0", res.MissingRatio)
	}
}

func TestAggregatePillar_ExcludesMissingMembers(t *testing.T) {
	res := AggregatePillar([]string{"a", "b", "c", "d"}, map[string]float64{"a": 0.4, "c": 0.8})
	if !res.Defined {
		t.Fatal("expected defined pillar")
	}
	if math.Abs(res.Score-0.6) > 1e-12 {
		t.Errorf("mean over present members = %v, want 0.6", res.Score)
	}
	if math.Abs(res.MissingRatio-0.5) > 1e-12 {
		t.Errorf("missing ratio = %v, want 0.5", res.MissingRatio)
	}
}

func TestAggregatePillar_AllMissingIsUndefined(t *testing.T) {
	res := AggregatePillar([]string{"a", "b"}, map[string]float64{})
	if res.Defined {
		t.Errorf("all-missing pillar must be undefined, got score %v", res.Score)
	}
	if res.MissingRatio != 1.0 {
		t.Errorf("missing ratio = %v, want 1.0", res.MissingRatio)
	}
}
