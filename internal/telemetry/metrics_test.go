package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegistersAndCounts(t *testing.T) {
	m := NewMetrics()

	m.DatesProcessed.Inc()
	m.DatesProcessed.Inc()
	m.CacheHits.WithLabelValues("memory").Inc()
	m.SourceRequests.WithLabelValues("fred").Inc()

	families, err := m.Gather()
	require.NoError(t, err)

	byName := make(map[string]*MetricFamily)
	for _, f := range families {
		byName[f.GetName()] = f
	}

	dates, ok := byName["macindex_backtest_dates_total"]
	require.True(t, ok, "dates counter must be registered")
	require.Len(t, dates.GetMetric(), 1)
	assert.Equal(t, 2.0, dates.GetMetric()[0].GetCounter().GetValue())

	hits, ok := byName["macindex_snapshot_cache_hits_total"]
	require.True(t, ok)
	require.Len(t, hits.GetMetric(), 1)
	assert.Equal(t, "memory", hits.GetMetric()[0].GetLabel()[0].GetValue())
}

func TestMetrics_HandlerServesRegistry(t *testing.T) {
	m := NewMetrics()
	assert.NotNil(t, m.Handler())
}
