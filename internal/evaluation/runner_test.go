package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/truenorth/comex/backend/internal/domain/entities"
)

type MockSearchProvider struct {
	mock.Mock
}

func (m *MockSearchProvider) Search(ctx context.Context, query string, sector entities.Sector, limit int) (*entities.SearchResponse, error) {
	args := m.Called(ctx, query, sector, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SearchResponse), args.Error(1)
}

func response(codes ...string) *entities.SearchResponse {
	resp := entities.EmptySearchResponse()
	for _, c := range codes {
		resp.Candidates = append(resp.Candidates, entities.RankedCandidate{Code: c})
	}
	return resp
}

func TestRunner_Run(t *testing.T) {
	provider := new(MockSearchProvider)
	provider.On("Search", mock.Anything, "pastilhas de freio", entities.SectorAutoParts, DefaultK).
		Return(response("87083010", "87083090"), nil).Once()
	provider.On("Search", mock.Anything, "disco de freio", entities.SectorAutoParts, DefaultK).
		Return(response("87083090", "87083000"), nil).Once()
	provider.On("Search", mock.Anything, "azeite de oliva", entities.SectorFood, DefaultK).
		Return(response("15079010"), nil).Once()

	queries := []GoldenQuery{
		{ID: "a1", Query: "pastilhas de freio", Sector: "Autopecas", ExpectedCodes: []string{"87083010"}},
		{ID: "a2", Query: "disco de freio", Sector: "Autopecas", ExpectedCodes: []string{"87083000"}},
		{ID: "f1", Query: "azeite de oliva", Sector: "Alimentos", ExpectedCodes: []string{"15090000"}},
	}

	summary, err := NewRunner(provider).Run(context.Background(), queries)

	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalQueries)
	assert.Equal(t, 2, summary.QueriesWithHits)
	assert.InDelta(t, 2.0/3.0, summary.AvgRecall, floatTolerance)
	assert.InDelta(t, (1.0+0.5+0)/3.0, summary.AvgMRR, floatTolerance)
	assert.InDelta(t, 2.0/3.0, summary.HitRate, floatTolerance)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, []string{"87083090", "87083000"}, summary.Results[1].RetrievedCodes)

	auto := summary.BySector[entities.SectorAutoParts]
	require.NotNil(t, auto)
	assert.Equal(t, 2, auto.Count)
	assert.InDelta(t, 0.75, auto.AvgMRR, floatTolerance)
	assert.InDelta(t, 1.0, auto.HitRate, floatTolerance)
	assert.InDelta(t, 0.0, summary.BySector[entities.SectorFood].HitRate, floatTolerance)
	provider.AssertExpectations(t)
}

func TestRunner_FailedQueryScoresZero(t *testing.T) {
	provider := new(MockSearchProvider)
	provider.On("Search", mock.Anything, "fones de ouvido", entities.SectorGeneral, 3).
		Return(nil, errors.New("index down")).Once()

	runner := NewRunner(provider)
	runner.K = 3
	summary, err := runner.Run(context.Background(), []GoldenQuery{
		{ID: "e1", Query: "fones de ouvido", ExpectedCodes: []string{"85183000"}},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 3, summary.K)
	assert.Equal(t, "index down", summary.Results[0].Error)
	assert.Zero(t, summary.AvgRecall)
}

func TestRunner_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(new(MockSearchProvider)).Run(ctx, []GoldenQuery{{ID: "x", Query: "freio"}})
	assert.ErrorIs(t, err, context.Canceled)
}
