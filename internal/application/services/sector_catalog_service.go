package services

import (
	"context"

	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
)

// SectorCatalogService lists the codes of one sector
type SectorCatalogService struct {
	repo         repositories.TariffCodeRepository
	DefaultLimit int
	MaxLimit     int
}

// NewSectorCatalogService creates a new sector catalog service
func NewSectorCatalogService(repo repositories.TariffCodeRepository) *SectorCatalogService {
	return &SectorCatalogService{
		repo:         repo,
		DefaultLimit: 100,
		MaxLimit:     1000,
	}
}

// BySector lists codes ordered by code ascending. General is unfiltered.
func (s *SectorCatalogService) BySector(ctx context.Context, sector entities.Sector, limit int) ([]*entities.TariffCode, error) {
	if limit <= 0 {
		limit = s.DefaultLimit
	}
	if limit > s.MaxLimit {
		limit = s.MaxLimit
	}
	if sector == "" {
		sector = entities.SectorGeneral
	}
	return s.repo.ListBySector(ctx, sector, limit)
}
