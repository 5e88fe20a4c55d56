package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/macrolab/macindex/internal/proxy"
	"github.com/macrolab/macindex/internal/telemetry"
)

// ChainedProviderConfig tunes the cached, proxy-aware provider.
type ChainedProviderConfig struct {
	// LookbackDays bounds the walk back to the most recent observation
	// when the requested date has none (weekends, holidays).
	LookbackDays int
}

// DefaultChainedProviderConfig returns the standard 10-day lookback.
func DefaultChainedProviderConfig() ChainedProviderConfig {
	return ChainedProviderConfig{LookbackDays: 10}
}

// ChainedProvider assembles per-date snapshots: it resolves each
// indicator's historical proxy source for the date, reads through the
// cache, and falls back to the most recent observation within the
// lookback bound. Exhausting the lookback yields a missing indicator,
// never an error.
type ChainedProvider struct {
	cfg        ChainedProviderConfig
	indicators []string
	chains     *proxy.Resolver
	source     Source
	cache      Cache
	metrics    *telemetry.Metrics
}

// NewChainedProvider wires the provider. cache and metrics may be nil.
func NewChainedProvider(cfg ChainedProviderConfig, indicators []string, chains *proxy.Resolver, source Source, cache Cache, metrics *telemetry.Metrics) *ChainedProvider {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultChainedProviderConfig().LookbackDays
	}
	return &ChainedProvider{
		cfg:        cfg,
		indicators: indicators,
		chains:     chains,
		source:     source,
		cache:      cache,
		metrics:    metrics,
	}
}

// GetSnapshot builds the indicator snapshot for one date. Indicators
// whose proxy chain has no entry for the date, or whose source has no
// observation within the lookback, are absent from the returned map.
func (p *ChainedProvider) GetSnapshot(ctx context.Context, date time.Time) (Snapshot, error) {
	snap := make(Snapshot, len(p.indicators))

	for _, id := range p.indicators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, ok := p.chains.Resolve(id, date); !ok {
			continue // no proxy covers this date: missing indicator
		}

		obs, found, err := p.observe(ctx, id, date)
		if err != nil {
			// An upstream failure degrades this indicator to missing for
			// the date rather than failing the whole snapshot.
			log.Warn().Err(err).Str("indicator", id).
				Time("date", date).Msg("observation fetch failed, treating as missing")
			continue
		}
		if !found {
			continue
		}

		snap[id] = obs
	}

	return snap, nil
}

// observe walks back from the requested date to the lookback bound,
// consulting the cache before the source at each step. The proxy chain is
// re-resolved for every walked-back date, so a walk that crosses a chain
// boundary fetches under the source actually active on that date and
// reports that source's tier.
func (p *ChainedProvider) observe(ctx context.Context, indicator string, date time.Time) (Observation, bool, error) {
	for back := 0; back <= p.cfg.LookbackDays; back++ {
		d := date.AddDate(0, 0, -back)

		src, ok := p.chains.Resolve(indicator, d)
		if !ok {
			continue
		}
		key := CacheKey(src.SourceName, d)

		if p.cache != nil {
			if v, ok := p.cache.Get(ctx, key); ok {
				p.countCache(true)
				return Observation{Value: v, Tier: src.Tier}, true, nil
			}
			p.countCache(false)
		}

		v, err := p.source.Fetch(ctx, src.SourceName, d)
		if errors.Is(err, ErrUnavailable) {
			continue
		}
		if err != nil {
			return Observation{}, false, err
		}

		if p.cache != nil {
			p.cache.Set(ctx, key, v)
		}
		return Observation{Value: v, Tier: src.Tier}, true, nil
	}
	return Observation{}, false, nil
}

func (p *ChainedProvider) countCache(hit bool) {
	if p.metrics == nil {
		return
	}
	if hit {
		p.metrics.CacheHits.WithLabelValues("snapshot").Inc()
	} else {
		p.metrics.CacheMisses.WithLabelValues("snapshot").Inc()
	}
}
