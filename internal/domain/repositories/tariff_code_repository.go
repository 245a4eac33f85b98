package repositories

import (
	"context"

	"github.com/truenorth/comex/backend/internal/domain/entities"
)

// TariffCodeRepository defines data operations on the NCM reference table
type TariffCodeRepository interface {
	// GetByCode retrieves one code. Absence is an ErrorTypeNotFound AppError.
	GetByCode(ctx context.Context, code string) (*entities.TariffCode, error)

	// GetByCodes retrieves every code that exists; missing ones are omitted
	GetByCodes(ctx context.Context, codes []string) ([]*entities.TariffCode, error)

	// Upsert inserts or replaces a code (last write wins)
	Upsert(ctx context.Context, code *entities.TariffCode) error

	// UpsertBatch upserts many codes in one statement
	UpsertBatch(ctx context.Context, codes []*entities.TariffCode) error

	// ListBySector lists codes ordered by code ascending. General is unfiltered.
	ListBySector(ctx context.Context, sector entities.Sector, limit int) ([]*entities.TariffCode, error)

	// ListByChapter lists codes sharing a two-digit chapter, ordered by code
	ListByChapter(ctx context.Context, chapter string, limit int) ([]*entities.TariffCode, error)

	// ListAll pages through the table ordered by code (index sync, export)
	ListAll(ctx context.Context, afterCode string, limit int) ([]*entities.TariffCode, error)

	// Stats summarises the table
	Stats(ctx context.Context) (*entities.CatalogStats, error)
}

// AgencyRepository reads regulatory agency metadata
type AgencyRepository interface {
	// GetByCodes retrieves agencies by sigla; unknown ones are omitted
	GetByCodes(ctx context.Context, codes []string) ([]*entities.Agency, error)

	// List returns every agency ordered by sigla
	List(ctx context.Context) ([]*entities.Agency, error)
}
