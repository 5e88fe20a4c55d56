package composite

import (
	"time"

	"github.com/macrolab/macindex/internal/proxy"
)

// Status labels for the composite score bands.
const (
	StatusAmple       = "ample"
	StatusComfortable = "comfortable"
	StatusThin        = "thin"
	StatusStretched   = "stretched"
	StatusRegimeBreak = "regime_break"
)

// StatusDegraded marks rows recorded after a per-date data failure. It is
// not a score band: the row carries no market signal, only the gap.
const StatusDegraded = "degraded"

// Trend direction buckets reported alongside momentum.
const (
	TrendImproving        = "improving"
	TrendStable           = "stable"
	TrendDeclining        = "declining"
	TrendRapidlyDeclining = "rapidly_declining"
	TrendUnknown          = "unknown"
)

// Row is one period of the MAC series. Rows are created once per backtest
// step and never mutated afterward; the series is append-only.
type Row struct {
	Date           time.Time          `json:"date"`
	EraID          string             `json:"era_id"`
	MACScore       float64            `json:"mac_score"`
	PillarScores   map[string]float64 `json:"pillar_scores"`
	BreachFlags    []string           `json:"breach_flags"`
	Multiplier     *float64           `json:"multiplier"` // nil below the regime-break threshold
	Status         string             `json:"mac_status"`
	Interpretation string             `json:"interpretation"`
	Momentum1      *float64           `json:"momentum_1w"` // nil with insufficient history
	Momentum4      *float64           `json:"momentum_4w"`
	TrendDirection string             `json:"trend_direction"`
	DataQuality    proxy.QualityTier  `json:"data_quality"`
	CrisisEvent    string             `json:"crisis_event,omitempty"`
	// Degraded is set when the date's computation failed and the row is a
	// placeholder: MACScore is not a convex combination of pillar scores
	// and must not enter score-based protocols.
	Degraded bool `json:"degraded,omitempty"`
}

// Band maps a score range to a human-readable status. Bands are ordered
// by descending Min; a score belongs to the first band whose Min it meets.
type Band struct {
	Name           string  `yaml:"name"`
	Min            float64 `yaml:"min"`
	Interpretation string  `yaml:"interpretation"`
}

// DefaultBands returns the standard status bands. Band edges are
// configuration: callers may supply their own table.
func DefaultBands() []Band {
	return []Band{
		{Name: StatusAmple, Min: 0.8, Interpretation: "buffers ample; markets can absorb large shocks"},
		{Name: StatusComfortable, Min: 0.6, Interpretation: "buffers adequate; normal shock absorption"},
		{Name: StatusThin, Min: 0.4, Interpretation: "buffers thin; stress amplification likely"},
		{Name: StatusStretched, Min: 0.2, Interpretation: "buffers stretched; disorderly moves plausible"},
		{Name: StatusRegimeBreak, Min: 0.0, Interpretation: "absorption regime broken; point estimates unreliable"},
	}
}
