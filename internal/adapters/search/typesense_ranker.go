package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
	tsclient "github.com/truenorth/comex/backend/internal/infrastructure/clients/typesense"
	apperrors "github.com/truenorth/comex/backend/pkg/errors"
	"github.com/truenorth/comex/backend/pkg/textnorm"
)

const (
	// Typesense caps per_page at 250
	maxPerPage = 250

	// DefaultBaseCeiling is the base relevance of a hit covering every query
	// token, in the same band as ts_rank with normalization 32
	DefaultBaseCeiling = 0.1

	// terms match description words on this many leading runes (freio/freios)
	stemRunes = 4
)

// TypesenseRanker is the Typesense alternative to the Postgres full-text ranker.
// text_match is only comparable within one result page, so the base relevance
// is the share of query tokens a hit covers, weighted by its text_match
// relative to the best hit.
type TypesenseRanker struct {
	client  *tsclient.Client
	scoring entities.ScoringConfig

	BaseCeiling float64
}

var _ repositories.PrimaryRanker = (*TypesenseRanker)(nil)

// NewTypesenseRanker creates a new Typesense ranker
func NewTypesenseRanker(client *tsclient.Client, scoring entities.ScoringConfig) *TypesenseRanker {
	return &TypesenseRanker{client: client, scoring: scoring, BaseCeiling: DefaultBaseCeiling}
}

func (r *TypesenseRanker) searchParams(req repositories.RankRequest) *api.SearchCollectionParams {
	perPage := req.Limit
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	terms := req.Terms
	if len(terms) == 0 {
		terms = req.Tokens
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(strings.Join(terms, " ")),
		QueryBy: pointer.String("description"),
		PerPage: pointer.Int(perPage),
		// dropping tokens until one is left gives any-term matching
		DropTokensThreshold: pointer.Int(len(terms)),
	}
	if !req.Sector.IsGeneral() {
		params.FilterBy = pointer.String(fmt.Sprintf("sector:=%s", req.Sector))
	}
	return params
}

// Rank normalizes text_match against the best hit and applies the boosts
func (r *TypesenseRanker) Rank(ctx context.Context, req repositories.RankRequest) ([]entities.RankedCandidate, error) {
	if req.Limit <= 0 || (len(req.Terms) == 0 && len(req.Tokens) == 0) {
		return []entities.RankedCandidate{}, nil
	}

	result, err := r.client.Client().Collection(r.client.Collection()).Documents().Search(ctx, r.searchParams(req))
	if err != nil {
		return nil, apperrors.NewIndexUnavailableError("typesense search failed", err)
	}
	if result.Hits == nil {
		return []entities.RankedCandidate{}, nil
	}

	hits := *result.Hits
	var best int64
	for _, hit := range hits {
		if hit.TextMatch != nil && *hit.TextMatch > best {
			best = *hit.TextMatch
		}
	}

	out := make([]entities.RankedCandidate, 0, len(hits))
	for _, hit := range hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document
		code, _ := doc["code"].(string)
		if code == "" {
			continue
		}
		desc, _ := doc["description"].(string)
		sector := entities.ParseSector(stringField(doc, "sector"))

		relative := 1.0
		if best > 0 && hit.TextMatch != nil {
			relative = float64(*hit.TextMatch) / float64(best)
		}
		base := r.BaseCeiling * relative * termCoverage(desc, req.Terms, req.Tokens)

		out = append(out, entities.RankedCandidate{
			Code:        code,
			Description: desc,
			Sector:      sector,
			Score:       r.scoring.Score(base, code, sector, req.Sector),
			Origin:      entities.OriginPrimary,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Code < out[j].Code
	})
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func stringField(doc map[string]interface{}, key string) string {
	s, _ := doc[key].(string)
	return s
}

func stem(term string) string {
	if r := []rune(term); len(r) > stemRunes {
		return string(r[:stemRunes])
	}
	return term
}

// termCoverage is the share of query tokens (or of terms when there are no
// tokens) whose stem starts a word of the description, capped at 1. Matches
// are counted per distinct term stem, so a synonym hit stands in for its token.
func termCoverage(description string, terms, tokens []string) float64 {
	denom := len(tokens)
	if denom == 0 {
		denom = len(terms)
	}
	if denom == 0 {
		return 0
	}
	candidates := terms
	if len(candidates) == 0 {
		candidates = tokens
	}

	words := strings.FieldsFunc(textnorm.Fold(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := map[string]bool{}
	matched := 0
	for _, term := range candidates {
		st := stem(textnorm.Fold(term))
		if st == "" || seen[st] {
			continue
		}
		seen[st] = true
		for _, w := range words {
			if strings.HasPrefix(w, st) {
				matched++
				break
			}
		}
	}

	cov := float64(matched) / float64(denom)
	if cov > 1 {
		return 1
	}
	return cov
}
