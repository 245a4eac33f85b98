package services

import (
	"math"

	"github.com/truenorth/comex/backend/internal/domain/entities"
)

// SearchRankingService holds the confidence gate and the merge policy that
// combines primary and fallback candidates
type SearchRankingService struct {
	Scoring                entities.ScoringConfig
	Fallback               FallbackWeights
	MinResults             int
	LowConfidenceThreshold float64
	// ProtectedTopK caps fallback scores strictly below the K-th primary
	// score so fallback can never displace the primary top K. 0 disables.
	ProtectedTopK int
}

// NewSearchRankingService returns the production policy
func NewSearchRankingService() *SearchRankingService {
	return &SearchRankingService{
		Scoring:                entities.DefaultScoringConfig(),
		Fallback:               DefaultFallbackWeights(),
		MinResults:             3,
		LowConfidenceThreshold: 3.0,
		ProtectedTopK:          5,
	}
}

// IsLowConfidence reports whether primary results need the fallback.
// Results must already be sorted by score descending.
func (s *SearchRankingService) IsLowConfidence(results []entities.RankedCandidate) bool {
	if len(results) < s.MinResults {
		return true
	}
	return len(results) > 0 && results[0].Score < s.LowConfidenceThreshold
}

// Merge dedupes primary and fallback by code keeping the higher score,
// re-sorts by score descending (ties in insertion order) and truncates to limit.
func (s *SearchRankingService) Merge(primary, fallback []entities.RankedCandidate, limit int) []entities.RankedCandidate {
	sortedPrimary := append([]entities.RankedCandidate(nil), primary...)
	sortCandidates(sortedPrimary)

	ceiling := math.Inf(1)
	if k := s.ProtectedTopK; k > 0 && len(sortedPrimary) > 0 {
		if k > len(sortedPrimary) {
			k = len(sortedPrimary)
		}
		ceiling = math.Nextafter(sortedPrimary[k-1].Score, math.Inf(-1))
	}

	merged := make([]entities.RankedCandidate, 0, len(sortedPrimary)+len(fallback))
	index := make(map[string]int, cap(merged))

	push := func(c entities.RankedCandidate) {
		if i, ok := index[c.Code]; ok {
			if c.Score > merged[i].Score {
				merged[i] = c
			}
			return
		}
		index[c.Code] = len(merged)
		merged = append(merged, c)
	}

	for _, c := range sortedPrimary {
		push(c)
	}
	for _, c := range fallback {
		if c.Score > ceiling {
			c.Score = ceiling
		}
		push(c)
	}

	sortCandidates(merged)
	if limit >= 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
