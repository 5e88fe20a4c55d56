package proxy

import "fmt"

// QualityTier describes the data quality of a historical source.
type QualityTier string

const (
	TierExcellent QualityTier = "excellent"
	TierGood      QualityTier = "good"
	TierFair      QualityTier = "fair"
	TierPoor      QualityTier = "poor"
)

var tierRank = map[QualityTier]int{
	TierExcellent: 3,
	TierGood:      2,
	TierFair:      1,
	TierPoor:      0,
}

// ParseTier validates a tier string from configuration.
func ParseTier(s string) (QualityTier, error) {
	t := QualityTier(s)
	if _, ok := tierRank[t]; !ok {
		return "", fmt.Errorf("unknown quality tier: %q", s)
	}
	return t, nil
}

// Rank returns the tier's ordinal position, higher is better.
func (t QualityTier) Rank() int {
	return tierRank[t]
}

// Worse returns the lower-quality of two tiers.
func Worse(a, b QualityTier) QualityTier {
	if tierRank[a] <= tierRank[b] {
		return a
	}
	return b
}
