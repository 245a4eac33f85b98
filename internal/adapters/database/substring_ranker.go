package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
	"github.com/truenorth/comex/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/truenorth/comex/backend/pkg/errors"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SubstringRanker finds codes whose description contains every token,
// case-insensitively. Scoring happens in the service layer.
type SubstringRanker struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.FallbackRanker = (*SubstringRanker)(nil)

// NewSubstringRanker creates the ILIKE fallback ranker
func NewSubstringRanker(client *postgres.Client) *SubstringRanker {
	return &SubstringRanker{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Match returns up to limit rows containing every token
func (r *SubstringRanker) Match(ctx context.Context, tokens []string, sector entities.Sector, limit int) ([]repositories.SubstringMatch, error) {
	if len(tokens) == 0 || limit <= 0 {
		return []repositories.SubstringMatch{}, nil
	}

	conds := make([]exp.Expression, 0, len(tokens)+1)
	for _, tok := range tokens {
		conds = append(conds, goqu.I("descricao").ILike("%"+likeEscaper.Replace(tok)+"%"))
	}
	if !sector.IsGeneral() {
		conds = append(conds, goqu.Ex{"setor": sector.StorageLabel()})
	}

	query, args, err := r.db.Select("ncm", "descricao", "setor").
		From(ncmTable).
		Where(goqu.And(conds...)).
		Order(goqu.I("ncm").Asc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build substring query", err)
	}

	rows, err := r.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("substring query failed", err)
	}
	defer rows.Close()

	matches := []repositories.SubstringMatch{}
	for rows.Next() {
		var m repositories.SubstringMatch
		var label sql.NullString
		if err := rows.Scan(&m.Code, &m.Description, &label); err != nil {
			return nil, apperrors.NewInternalError("failed to scan substring match", err)
		}
		m.Sector = entities.ParseSector(label.String)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate substring matches", err)
	}
	return matches, nil
}
