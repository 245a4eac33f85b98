package services

import (
	"context"
	"errors"
	"time"

	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
	"github.com/truenorth/comex/backend/internal/infrastructure/observability"
	apperrors "github.com/truenorth/comex/backend/pkg/errors"
)

// Search strategies reported in logs and metrics
const (
	StrategyPrimary  = "primary"
	StrategyMerged   = "merged"
	StrategyFallback = "fallback"
	StrategyRejected = "rejected"
)

// NCMSearchService runs the two-strategy search: the relevance-ranked
// primary, gated by confidence, topped up by the substring fallback.
type NCMSearchService struct {
	normalizer *QueryNormalizer
	expander   *SynonymExpander
	primary    repositories.PrimaryRanker
	fallback   repositories.FallbackRanker
	ranking    *SearchRankingService
	metrics    *observability.Metrics

	DefaultLimit int
	MaxLimit     int
}

// NewNCMSearchService creates the coordinator. metrics may be nil.
func NewNCMSearchService(
	normalizer *QueryNormalizer,
	expander *SynonymExpander,
	primary repositories.PrimaryRanker,
	fallback repositories.FallbackRanker,
	ranking *SearchRankingService,
	metrics *observability.Metrics,
) *NCMSearchService {
	return &NCMSearchService{
		normalizer:   normalizer,
		expander:     expander,
		primary:      primary,
		fallback:     fallback,
		ranking:      ranking,
		metrics:      metrics,
		DefaultLimit: 50,
		MaxLimit:     200,
	}
}

func (s *NCMSearchService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.DefaultLimit
	}
	if s.MaxLimit > 0 && limit > s.MaxLimit {
		return s.MaxLimit
	}
	return limit
}

// Search ranks tariff codes for a free-text description. Rejected input
// yields an empty response. An error is returned only when both strategies
// failed.
func (s *NCMSearchService) Search(ctx context.Context, query string, sector entities.Sector, limit int) (*entities.SearchResponse, error) {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx)
	if sector == "" {
		sector = entities.SectorGeneral
	}

	q, ok := s.normalizer.Normalize(query)
	if !ok {
		logger.Debug().Str("query", query).Msg("Search input rejected")
		s.metrics.RecordSearch(ctx, StrategyRejected, 0, time.Since(start))
		return entities.EmptySearchResponse(), nil
	}
	limit = s.clampLimit(limit)
	exp := s.expander.Expand(q.Tokens)

	ctx, span := observability.StartSpan(ctx, "NCMSearchService.Search")
	defer span.End()

	var (
		primary    []entities.RankedCandidate
		primaryErr error
	)
	if exp.Expression != "" && s.primary != nil {
		primary, primaryErr = s.primary.Rank(ctx, repositories.RankRequest{
			Query:      q.Literal,
			Expression: exp.Expression,
			Terms:      exp.Terms,
			Tokens:     q.FallbackTokens,
			Sector:     sector,
			Limit:      limit,
		})
	}

	resp := &entities.SearchResponse{Candidates: []entities.RankedCandidate{}}

	if primaryErr != nil {
		observability.RecordError(span, primaryErr)
		logger.Warn().
			Err(primaryErr).
			Str("query", q.Literal).
			Str("expanded", exp.Expression).
			Str("sector", string(sector)).
			Bool("index_unavailable", apperrors.IsType(primaryErr, apperrors.ErrorTypeIndexUnavailable)).
			Msg("Primary ranker failed, degrading to substring fallback")

		resp.Degraded = true
		resp.LowConfidence = true
		fallback, err := s.runFallback(ctx, q, sector, 2*limit)
		if err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
		resp.FallbackUsed = true
		s.metrics.RecordFallback(ctx, true)
		if len(fallback) > limit {
			fallback = fallback[:limit]
		}
		resp.Candidates = fallback
		s.finish(ctx, StrategyFallback, q, exp, sector, resp, start)
		return resp, nil
	}

	if primary == nil {
		primary = []entities.RankedCandidate{}
	}
	sortCandidates(primary)
	if len(primary) > limit {
		primary = primary[:limit]
	}
	resp.Candidates = primary

	if !s.ranking.IsLowConfidence(primary) {
		s.finish(ctx, StrategyPrimary, q, exp, sector, resp, start)
		return resp, nil
	}

	resp.LowConfidence = true
	if len(q.FallbackTokens) == 0 {
		s.finish(ctx, StrategyPrimary, q, exp, sector, resp, start)
		return resp, nil
	}

	fallback, err := s.runFallback(ctx, q, sector, 2*limit)
	if err != nil {
		// primary answered, so keep its results
		logger.Warn().Err(err).Str("query", q.Literal).Msg("Substring fallback failed")
		s.finish(ctx, StrategyPrimary, q, exp, sector, resp, start)
		return resp, nil
	}
	resp.FallbackUsed = true
	s.metrics.RecordFallback(ctx, false)
	resp.Candidates = s.ranking.Merge(primary, fallback, limit)
	s.finish(ctx, StrategyMerged, q, exp, sector, resp, start)
	return resp, nil
}

// runFallback fetches and scores substring matches. Without fallback
// tokens there is nothing to match on.
func (s *NCMSearchService) runFallback(ctx context.Context, q NormalizedQuery, sector entities.Sector, limit int) ([]entities.RankedCandidate, error) {
	if s.fallback == nil || len(q.FallbackTokens) == 0 {
		return []entities.RankedCandidate{}, nil
	}
	matches, err := s.fallback.Match(ctx, q.FallbackTokens, sector, limit)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.NewInternalError("substring fallback failed", err)
	}
	return s.ranking.Fallback.ScoreFallback(matches, q, sector), nil
}

func (s *NCMSearchService) finish(ctx context.Context, strategy string, q NormalizedQuery, exp Expansion, sector entities.Sector, resp *entities.SearchResponse, start time.Time) {
	elapsed := time.Since(start)
	s.metrics.RecordSearch(ctx, strategy, len(resp.Candidates), elapsed)

	event := observability.LoggerFromContext(ctx).Debug().
		Str("query", q.Literal).
		Str("expanded", exp.Expression).
		Str("sector", string(sector)).
		Str("strategy", strategy).
		Int("results", len(resp.Candidates)).
		Dur("duration", elapsed)
	if len(resp.Candidates) > 0 {
		event = event.Float64("top_score", resp.Candidates[0].Score)
	}
	event.Msg("Search completed")
}
