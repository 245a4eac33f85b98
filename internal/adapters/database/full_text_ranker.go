package database

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
	"github.com/truenorth/comex/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/truenorth/comex/backend/pkg/errors"
)

// SQLSTATE codes raised when the full-text column, function or dictionary is missing
var indexErrorCodes = map[pq.ErrorCode]bool{
	"42703": true, // undefined_column
	"42883": true, // undefined_function
	"42704": true, // undefined_object (text search configuration)
	"42P01": true, // undefined_table
	"42601": true, // syntax_error in tsquery
}

// FullTextRanker ranks codes with PostgreSQL full-text search over the
// generated descricao_tsvector column.
type FullTextRanker struct {
	client  *postgres.Client
	db      *goqu.Database
	scoring entities.ScoringConfig
}

var _ repositories.PrimaryRanker = (*FullTextRanker)(nil)

// NewFullTextRanker creates a Postgres-backed primary ranker
func NewFullTextRanker(client *postgres.Client, scoring entities.ScoringConfig) *FullTextRanker {
	return &FullTextRanker{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		scoring: scoring,
	}
}

func (r *FullTextRanker) buildQuery(req repositories.RankRequest) (string, []interface{}, error) {
	sectorBoost := 1.0
	if !req.Sector.IsGeneral() {
		sectorBoost = r.scoring.SectorBoost
	}

	score := goqu.L(
		`(CASE WHEN setor = ? THEN ?::float8 ELSE 1.0 END)`+
			` * ts_rank(descricao_tsvector, to_tsquery('portuguese', ?), 32)`+
			` * (CASE WHEN right(ncm, 4) = '0000' THEN ?::float8 WHEN right(ncm, 2) = '00' THEN ?::float8 ELSE ?::float8 END)`+
			` * ?::float8`,
		req.Sector.StorageLabel(), sectorBoost,
		req.Expression,
		r.scoring.GenericBoost, r.scoring.SubheadingBoost, r.scoring.SpecificBoost,
		r.scoring.Scale,
	).As("score")

	ds := r.db.Select("ncm", "descricao", "setor", score).
		From(ncmTable).
		Where(goqu.L(`descricao_tsvector @@ to_tsquery('portuguese', ?)`, req.Expression))

	if !req.Sector.IsGeneral() {
		ds = ds.Where(goqu.Ex{"setor": req.Sector.StorageLabel()})
	}

	return ds.Order(goqu.I("score").Desc(), goqu.I("ncm").Asc()).
		Limit(uint(req.Limit)).
		Prepared(true).
		ToSQL()
}

// Rank runs the ranked full-text query
func (r *FullTextRanker) Rank(ctx context.Context, req repositories.RankRequest) ([]entities.RankedCandidate, error) {
	if req.Expression == "" || req.Limit <= 0 {
		return []entities.RankedCandidate{}, nil
	}

	query, args, err := r.buildQuery(req)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build full-text query", err)
	}

	rows, err := r.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyRankError(err)
	}
	defer rows.Close()

	results := []entities.RankedCandidate{}
	for rows.Next() {
		var c entities.RankedCandidate
		var sector *string
		if err := rows.Scan(&c.Code, &c.Description, &sector, &c.Score); err != nil {
			return nil, apperrors.NewInternalError("failed to scan ranked candidate", err)
		}
		if sector != nil {
			c.Sector = entities.ParseSector(*sector)
		} else {
			c.Sector = entities.SectorGeneral
		}
		c.Origin = entities.OriginPrimary
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyRankError(err)
	}
	return results, nil
}

func classifyRankError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && indexErrorCodes[pqErr.Code] {
		return apperrors.NewIndexUnavailableError("full-text index unavailable", err)
	}
	return apperrors.NewInternalError("full-text query failed", err)
}
