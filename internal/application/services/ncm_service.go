package services

import (
	"context"

	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
)

// NCMService is the single entry point used by the HTTP handlers and the CLI
type NCMService struct {
	search     *NCMSearchService
	resolver   *TariffResolverService
	catalog    *SectorCatalogService
	validator  *ValidationService
	classifier *ClassificationService
	repo       repositories.TariffCodeRepository
	agencies   repositories.AgencyRepository
}

// NewNCMService creates the facade. agencies may be nil.
func NewNCMService(
	search *NCMSearchService,
	resolver *TariffResolverService,
	catalog *SectorCatalogService,
	validator *ValidationService,
	classifier *ClassificationService,
	repo repositories.TariffCodeRepository,
	agencies repositories.AgencyRepository,
) *NCMService {
	return &NCMService{
		search:     search,
		resolver:   resolver,
		catalog:    catalog,
		validator:  validator,
		classifier: classifier,
		repo:       repo,
		agencies:   agencies,
	}
}

// Search ranks codes for a free-text description
func (s *NCMService) Search(ctx context.Context, query string, sector entities.Sector, limit int) (*entities.SearchResponse, error) {
	return s.search.Search(ctx, query, sector, limit)
}

// Resolve returns the record for an exact code, or nil
func (s *NCMService) Resolve(ctx context.Context, code string) (*entities.TariffCode, error) {
	return s.resolver.Resolve(ctx, code)
}

// ResolveDetails is Resolve plus the metadata of the required agencies
func (s *NCMService) ResolveDetails(ctx context.Context, code string) (*entities.TariffCodeDetails, error) {
	tc, err := s.resolver.Resolve(ctx, code)
	if err != nil || tc == nil {
		return nil, err
	}

	details := &entities.TariffCodeDetails{TariffCode: tc, AgencyDetails: []*entities.Agency{}}
	if s.agencies == nil || len(tc.RequiredAgencies) == 0 {
		return details, nil
	}
	agencies, err := s.agencies.GetByCodes(ctx, tc.RequiredAgencies)
	if err != nil {
		return nil, err
	}
	details.AgencyDetails = agencies
	return details, nil
}

// BySector lists the codes of a sector
func (s *NCMService) BySector(ctx context.Context, sector entities.Sector, limit int) ([]*entities.TariffCode, error) {
	return s.catalog.BySector(ctx, sector, limit)
}

// Validate checks a code and suggests alternatives
func (s *NCMService) Validate(ctx context.Context, code string) (*entities.ValidationResult, error) {
	return s.validator.Validate(ctx, code)
}

// Stats summarises the reference table
func (s *NCMService) Stats(ctx context.Context) (*entities.CatalogStats, error) {
	return s.repo.Stats(ctx)
}

// ClassifyItems classifies invoice line items
func (s *NCMService) ClassifyItems(ctx context.Context, items []entities.LineItem) ([]entities.ItemClassification, error) {
	return s.classifier.ClassifyItems(ctx, items)
}
