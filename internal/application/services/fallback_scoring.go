package services

import (
	"sort"
	"strings"

	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
)

// FallbackWeights are the additive points of the substring fallback
type FallbackWeights struct {
	PhraseMatch  float64
	TokenMatch   float64
	SectorMatch  float64
	SpecificCode float64
}

// DefaultFallbackWeights returns the production weights
func DefaultFallbackWeights() FallbackWeights {
	return FallbackWeights{
		PhraseMatch:  100,
		TokenMatch:   20,
		SectorMatch:  30,
		SpecificCode: 10,
	}
}

// ScoreFallback scores substring matches against the normalized query and
// returns them sorted by score descending (stable).
func (w FallbackWeights) ScoreFallback(matches []repositories.SubstringMatch, q NormalizedQuery, sector entities.Sector) []entities.RankedCandidate {
	out := make([]entities.RankedCandidate, 0, len(matches))
	for _, m := range matches {
		desc := strings.ToLower(m.Description)
		score := 0.0
		if q.Literal != "" && strings.Contains(desc, q.Literal) {
			score += w.PhraseMatch
		}
		for _, tok := range q.FallbackTokens {
			if strings.Contains(desc, tok) {
				score += w.TokenMatch
			}
		}
		if !sector.IsGeneral() && m.Sector == sector {
			score += w.SectorMatch
		}
		if !strings.HasSuffix(m.Code, "00") {
			score += w.SpecificCode
		}
		out = append(out, entities.RankedCandidate{
			Code:        m.Code,
			Description: m.Description,
			Sector:      m.Sector,
			Score:       score,
			Origin:      entities.OriginFallback,
		})
	}
	sortCandidates(out)
	return out
}

func sortCandidates(c []entities.RankedCandidate) {
	sort.SliceStable(c, func(i, j int) bool {
		return c[i].Score > c[j].Score
	})
}
