package services

import (
	"context"
	"strings"

	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
)

const (
	maxSuggestions  = 5
	suggestionScore = 50
)

// ValidationService checks whether a code exists and suggests neighbours
// from the same chapter when it does not
type ValidationService struct {
	resolver *TariffResolverService
	repo     repositories.TariffCodeRepository
}

// NewValidationService creates a new validation service
func NewValidationService(resolver *TariffResolverService, repo repositories.TariffCodeRepository) *ValidationService {
	return &ValidationService{resolver: resolver, repo: repo}
}

// Validate never reports a missing code as an error
func (s *ValidationService) Validate(ctx context.Context, code string) (*entities.ValidationResult, error) {
	normalized, ok := NormalizeCode(code)
	if !ok {
		return &entities.ValidationResult{Code: strings.TrimSpace(code)}, nil
	}

	tc, err := s.resolver.Resolve(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if tc != nil {
		return &entities.ValidationResult{Code: normalized, Valid: true, Exists: true, Info: tc}, nil
	}

	neighbours, err := s.repo.ListByChapter(ctx, entities.ChapterOf(normalized), maxSuggestions)
	if err != nil {
		return nil, err
	}
	suggestions := make([]entities.RankedCandidate, 0, len(neighbours))
	for _, n := range neighbours {
		suggestions = append(suggestions, entities.RankedCandidate{
			Code:        n.Code,
			Description: n.Description,
			Sector:      n.Sector,
			Score:       suggestionScore,
		})
	}
	return &entities.ValidationResult{Code: normalized, Suggestions: suggestions}, nil
}
