package evaluation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/truenorth/comex/backend/internal/domain/entities"
)

// SearchResultProvider is the search operation under evaluation
type SearchResultProvider interface {
	Search(ctx context.Context, query string, sector entities.Sector, limit int) (*entities.SearchResponse, error)
}

// Runner runs evaluation across a set of golden queries.
type Runner struct {
	searchService SearchResultProvider
	K             int
}

func NewRunner(svc SearchResultProvider) *Runner {
	return &Runner{searchService: svc, K: DefaultK}
}

// Run evaluates every query in order. A failed search scores zero and is
// counted in Errors.
func (r *Runner) Run(ctx context.Context, queries []GoldenQuery) (*EvalSummary, error) {
	k := r.K
	if k <= 0 {
		k = DefaultK
	}
	summary := &EvalSummary{
		K:            k,
		TotalQueries: len(queries),
		BySector:     make(map[entities.Sector]*SectorSummary),
		Results:      make([]EvalResult, 0, len(queries)),
	}

	for _, gq := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sector := entities.ParseSector(gq.Sector)

		start := time.Now()
		resp, err := r.searchService.Search(ctx, gq.Query, sector, k)
		duration := time.Since(start)

		result := EvalResult{
			QueryID:        gq.ID,
			Query:          gq.Query,
			Sector:         sector,
			RetrievedCodes: []string{},
			Latency:        duration,
		}
		if err != nil {
			log.Warn().Err(err).Str("query_id", gq.ID).Msg("Golden query failed")
			result.Error = err.Error()
			summary.Errors++
		} else {
			for _, c := range resp.Candidates {
				result.RetrievedCodes = append(result.RetrievedCodes, c.Code)
			}
			result.ResultCount = len(resp.Candidates)
			result.Recall = RecallAtK(gq.ExpectedCodes, result.RetrievedCodes, k)
			result.MRR = MRRAtK(gq.ExpectedCodes, result.RetrievedCodes, k)
			result.Hit = HitAtK(gq.ExpectedCodes, result.RetrievedCodes, k)
			result.FallbackUsed = resp.FallbackUsed
			result.Degraded = resp.Degraded
		}

		r.updateSummary(summary, result)
	}

	r.finalizeSummary(summary)
	return summary, nil
}

func (r *Runner) updateSummary(s *EvalSummary, res EvalResult) {
	s.Results = append(s.Results, res)
	s.AvgRecall += res.Recall
	s.AvgMRR += res.MRR
	s.AvgLatency += res.Latency
	if res.Hit {
		s.QueriesWithHits++
	}

	if _, ok := s.BySector[res.Sector]; !ok {
		s.BySector[res.Sector] = &SectorSummary{}
	}
	ss := s.BySector[res.Sector]
	ss.Count++
	ss.AvgRecall += res.Recall
	ss.AvgMRR += res.MRR
	if res.Hit {
		ss.HitRate++
	}
}

func (r *Runner) finalizeSummary(s *EvalSummary) {
	if s.TotalQueries > 0 {
		n := float64(s.TotalQueries)
		s.AvgRecall /= n
		s.AvgMRR /= n
		s.HitRate = float64(s.QueriesWithHits) / n
		s.AvgLatency /= time.Duration(s.TotalQueries)
	}

	for _, ss := range s.BySector {
		if ss.Count > 0 {
			n := float64(ss.Count)
			ss.AvgRecall /= n
			ss.AvgMRR /= n
			ss.HitRate /= n
		}
	}
}
