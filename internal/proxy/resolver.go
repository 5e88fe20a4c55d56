package proxy

import (
	"fmt"
	"sort"
	"time"
)

// Source is one entry in an indicator's historical proxy chain: the data
// source that stands in for the indicator over a date range.
type Source struct {
	IndicatorID     string
	SourceName      string
	Start           time.Time
	End             time.Time // zero means open-ended
	NativeFrequency string
	Tier            QualityTier
}

// Contains reports whether the source's date range covers the given date.
func (s Source) Contains(date time.Time) bool {
	if date.Before(s.Start) {
		return false
	}
	if s.End.IsZero() {
		return true
	}
	return date.Before(s.End)
}

// Resolver selects the historical proxy source for an (indicator, date)
// pair. Chains are sorted by start date and validated to be non-overlapping
// at construction, so selection is by date containment only.
type Resolver struct {
	chains map[string][]Source
}

// NewResolver builds a resolver from proxy chain entries. Entries for the
// same indicator with overlapping date ranges are a configuration defect
// and rejected here rather than at query time.
func NewResolver(sources []Source) (*Resolver, error) {
	chains := make(map[string][]Source)
	for _, s := range sources {
		if s.IndicatorID == "" {
			return nil, fmt.Errorf("proxy source %q has no indicator id", s.SourceName)
		}
		if !s.End.IsZero() && !s.Start.Before(s.End) {
			return nil, fmt.Errorf("proxy source %s/%s: start %s is not before end %s",
				s.IndicatorID, s.SourceName, s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"))
		}
		chains[s.IndicatorID] = append(chains[s.IndicatorID], s)
	}

	for id, chain := range chains {
		sort.Slice(chain, func(i, j int) bool {
			return chain[i].Start.Before(chain[j].Start)
		})
		for i := 1; i < len(chain); i++ {
			prev := chain[i-1]
			if prev.End.IsZero() || chain[i].Start.Before(prev.End) {
				return nil, fmt.Errorf("proxy chain for %s: source %s overlaps %s",
					id, chain[i].SourceName, prev.SourceName)
			}
		}
		chains[id] = chain
	}

	return &Resolver{chains: chains}, nil
}

// Resolve returns the proxy source in force for the indicator on the given
// date. The second return is false when no chain entry covers the date;
// callers treat that as a missing indicator, never as an error.
func (r *Resolver) Resolve(indicatorID string, date time.Time) (Source, bool) {
	chain, ok := r.chains[indicatorID]
	if !ok {
		return Source{}, false
	}
	// Chains are short (a handful of eras), linear scan is fine.
	for _, s := range chain {
		if s.Contains(date) {
			return s, true
		}
	}
	return Source{}, false
}

// Chain returns the full ordered chain for an indicator, for audit output.
func (r *Resolver) Chain(indicatorID string) []Source {
	return r.chains[indicatorID]
}

// IndicatorIDs returns all indicators with at least one chain entry.
func (r *Resolver) IndicatorIDs() []string {
	ids := make([]string, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
