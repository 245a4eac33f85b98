package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/truenorth/comex/backend/internal/application/loaders"
	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
	"github.com/truenorth/comex/backend/internal/infrastructure/observability"
)

// ClassificationService classifies invoice line items in bulk
type ClassificationService struct {
	search    *NCMSearchService
	validator *ValidationService
	detector  *SectorDetector
	repo      repositories.TariffCodeRepository

	Concurrency   int
	CandidatesPer int
}

// NewClassificationService creates a new classification service
func NewClassificationService(
	search *NCMSearchService,
	validator *ValidationService,
	detector *SectorDetector,
	repo repositories.TariffCodeRepository,
) *ClassificationService {
	return &ClassificationService{
		search:        search,
		validator:     validator,
		detector:      detector,
		repo:          repo,
		Concurrency:   4,
		CandidatesPer: 5,
	}
}

// ClassifyItems returns one classification per item, in input order. An
// item without its own sector gets the detected one.
func (s *ClassificationService) ClassifyItems(ctx context.Context, items []entities.LineItem) ([]entities.ItemClassification, error) {
	if loaders.For(ctx) == nil {
		ctx = loaders.WithLoaders(ctx, loaders.NewLoaders(s.repo))
	}

	out := make([]entities.ItemClassification, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Concurrency, 1))

	for i, item := range items {
		g.Go(func() error {
			c, err := s.classify(gctx, i, item)
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().Int("items", len(items)).Msg("Classified line items")
	return out, nil
}

func (s *ClassificationService) classify(ctx context.Context, index int, item entities.LineItem) (entities.ItemClassification, error) {
	c := entities.ItemClassification{
		Index:       index,
		Description: item.Description,
		Candidates:  []entities.RankedCandidate{},
	}

	sector := entities.ParseSector(item.Sector)
	if strings.TrimSpace(item.Sector) == "" && s.detector != nil {
		sector = s.detector.Detect(item.Description)
	}

	resp, err := s.search.Search(ctx, item.Description, sector, s.CandidatesPer)
	if err != nil {
		return c, err
	}
	c.Candidates = resp.Candidates
	c.LowConfidence = resp.LowConfidence || len(resp.Candidates) == 0

	if strings.TrimSpace(item.SuggestedCode) != "" {
		v, err := s.validator.Validate(ctx, item.SuggestedCode)
		if err != nil {
			return c, err
		}
		c.Suggested = v
	}
	return c, nil
}
