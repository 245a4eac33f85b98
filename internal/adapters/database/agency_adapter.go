package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
	"github.com/truenorth/comex/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/truenorth/comex/backend/pkg/errors"
)

const agencyTable = "anuentes"

// AgencyAdapter implements AgencyRepository
type AgencyAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAgencyAdapter creates a new agency adapter
func NewAgencyAdapter(client *postgres.Client) repositories.AgencyRepository {
	return &AgencyAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByCodes retrieves agencies by sigla
func (a *AgencyAdapter) GetByCodes(ctx context.Context, codes []string) ([]*entities.Agency, error) {
	if len(codes) == 0 {
		return []*entities.Agency{}, nil
	}
	return a.list(ctx, a.agencySelect().Where(goqu.Ex{"sigla": codes}))
}

// List returns every agency
func (a *AgencyAdapter) List(ctx context.Context) ([]*entities.Agency, error) {
	return a.list(ctx, a.agencySelect())
}

func (a *AgencyAdapter) agencySelect() *goqu.SelectDataset {
	return a.db.Select(
		"sigla", "nome_completo", "descricao", "multa_minima", "multa_maxima", "tempo_liberacao_dias",
	).From(agencyTable).Order(goqu.I("sigla").Asc())
}

func (a *AgencyAdapter) list(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.Agency, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query agencies", err)
	}
	defer rows.Close()

	agencies := []*entities.Agency{}
	for rows.Next() {
		ag := &entities.Agency{}
		var description sql.NullString
		var days sql.NullInt64
		if err := rows.Scan(&ag.Code, &ag.Name, &description, &ag.MinFine, &ag.MaxFine, &days); err != nil {
			return nil, apperrors.NewInternalError("failed to scan agency", err)
		}
		ag.Description = description.String
		ag.ClearanceDays = int(days.Int64)
		agencies = append(agencies, ag)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate agencies", err)
	}
	return agencies, nil
}
