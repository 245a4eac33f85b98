package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
	apperrors "github.com/truenorth/comex/backend/pkg/errors"
)

func TestFullTextRanker_RankBindsExpressionAndSector(t *testing.T) {
	client, mock := setupMockClient(t)
	ranker := NewFullTextRanker(client, entities.DefaultScoringConfig())

	expr := "(pastilhas|guarnições)|freio"
	mock.ExpectQuery(`ts_rank\(descricao_tsvector, to_tsquery\('portuguese', \$3\), 32\).* AS "score" FROM "ncm_database" WHERE .*descricao_tsvector @@ to_tsquery\('portuguese', \$8\).*"setor" = \$9.* ORDER BY "score" DESC, "ncm" ASC LIMIT \$10`).
		WithArgs("Autopecas", 3.0, expr, 1.0, 1.5, 2.0, 100.0, expr, "Autopecas", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"ncm", "descricao", "setor", "score"}).
			AddRow("87083010", "Guarnições de freios montadas", "Autopecas", 42.5).
			AddRow("87083000", "Freios e servofreios", "Autopecas", 21.0))

	results, err := ranker.Rank(context.Background(), repositories.RankRequest{
		Expression: expr,
		Sector:     entities.SectorAutoParts,
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "87083010", results[0].Code)
	assert.Equal(t, entities.SectorAutoParts, results[0].Sector)
	assert.Equal(t, entities.OriginPrimary, results[0].Origin)
	assert.Equal(t, 42.5, results[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFullTextRanker_GeneralSectorDisablesBoostAndFilter(t *testing.T) {
	client, mock := setupMockClient(t)
	ranker := NewFullTextRanker(client, entities.DefaultScoringConfig())

	mock.ExpectQuery(`WHERE .*descricao_tsvector @@ to_tsquery\('portuguese', \$8\).* ORDER BY "score" DESC, "ncm" ASC LIMIT \$9`).
		WithArgs("Geral", 1.0, "disco", 1.0, 1.5, 2.0, 100.0, "disco", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"ncm", "descricao", "setor", "score"}).
			AddRow("87083000", "Discos de freio", nil, 8.1))

	results, err := ranker.Rank(context.Background(), repositories.RankRequest{
		Expression: "disco",
		Sector:     entities.SectorGeneral,
		Limit:      5,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, entities.SectorGeneral, results[0].Sector)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFullTextRanker_EmptyExpressionSkipsStore(t *testing.T) {
	client, mock := setupMockClient(t)
	ranker := NewFullTextRanker(client, entities.DefaultScoringConfig())

	results, err := ranker.Rank(context.Background(), repositories.RankRequest{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFullTextRanker_MissingColumnIsIndexUnavailable(t *testing.T) {
	client, mock := setupMockClient(t)
	ranker := NewFullTextRanker(client, entities.DefaultScoringConfig())

	mock.ExpectQuery(`ts_rank`).WillReturnError(&pq.Error{
		Code:    "42703",
		Message: `column "descricao_tsvector" does not exist`,
	})

	_, err := ranker.Rank(context.Background(), repositories.RankRequest{Expression: "freio", Limit: 10})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeIndexUnavailable))
}

func TestFullTextRanker_OtherFailuresAreInternal(t *testing.T) {
	client, mock := setupMockClient(t)
	ranker := NewFullTextRanker(client, entities.DefaultScoringConfig())

	mock.ExpectQuery(`ts_rank`).WillReturnError(errors.New("connection reset by peer"))

	_, err := ranker.Rank(context.Background(), repositories.RankRequest{Expression: "freio", Limit: 10})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}
