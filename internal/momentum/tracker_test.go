package momentum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolab/macindex/internal/composite"
)

func TestTracker_UndefinedUntilEnoughHistory(t *testing.T) {
	tr := NewTracker(DefaultConfig())

	snap := tr.Push(0.8)
	assert.Nil(t, snap.Short, "first point has no 1-period momentum")
	assert.Nil(t, snap.Long)
	assert.Equal(t, composite.TrendUnknown, snap.Trend)

	snap = tr.Push(0.75)
	require.NotNil(t, snap.Short)
	assert.InDelta(t, -0.05, *snap.Short, 1e-12)
	assert.Nil(t, snap.Long, "4-period momentum needs 4 prior points")
	assert.Equal(t, composite.TrendUnknown, snap.Trend)
}

func TestTracker_SignedDifferences(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	for _, s := range []float64{0.5, 0.55, 0.6, 0.65} {
		tr.Push(s)
	}
	snap := tr.Push(0.7)

	require.NotNil(t, snap.Short)
	require.NotNil(t, snap.Long)
	assert.InDelta(t, 0.05, *snap.Short, 1e-12)
	assert.InDelta(t, 0.2, *snap.Long, 1e-12)
	assert.Equal(t, composite.TrendImproving, snap.Trend)
}

func TestTracker_StableInsideBand(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	for _, s := range []float64{0.6, 0.61, 0.6, 0.605} {
		tr.Push(s)
	}
	snap := tr.Push(0.61)
	assert.Equal(t, composite.TrendStable, snap.Trend)
}

func TestTracker_SteadyDeclineIsNotRapid(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	// Four periods each easing 2 points: long momentum -0.08, but the
	// final single-period change stays above the rapid-drop threshold.
	for _, s := range []float64{0.7, 0.68, 0.66, 0.64} {
		tr.Push(s)
	}
	snap := tr.Push(0.62)
	assert.Equal(t, composite.TrendDeclining, snap.Trend)
}

func TestTracker_SharpSinglePeriodDropIsRapid(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	for _, s := range []float64{0.7, 0.7, 0.69, 0.68} {
		tr.Push(s)
	}
	snap := tr.Push(0.58) // -0.10 in one period
	require.NotNil(t, snap.Short)
	assert.Equal(t, composite.TrendRapidlyDeclining, snap.Trend)
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	for _, s := range []float64{0.5, 0.5, 0.5, 0.5, 0.5} {
		tr.Push(s)
	}
	tr.Reset()

	snap := tr.Push(0.5)
	assert.Nil(t, snap.Short)
	assert.Nil(t, snap.Long)
}
