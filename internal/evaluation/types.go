package evaluation

import (
	"time"

	"github.com/truenorth/comex/backend/internal/domain/entities"
)

// DefaultK is the cut-off used for Recall@K and MRR@K
const DefaultK = 5

// GoldenQuery represents a labeled query with the codes it must surface.
type GoldenQuery struct {
	ID            string   `json:"id"`
	Query         string   `json:"query"`
	Sector        string   `json:"sector,omitempty"`
	ExpectedCodes []string `json:"expected_codes"`
	Difficulty    string   `json:"difficulty"` // easy, medium, hard
}

// EvalResult holds the evaluation outcome for a single query.
type EvalResult struct {
	QueryID        string          `json:"id"`
	Query          string          `json:"query"`
	Sector         entities.Sector `json:"sector"`
	Recall         float64         `json:"recall"`
	MRR            float64         `json:"mrr"`
	Hit            bool            `json:"hit"`
	ResultCount    int             `json:"result_count"`
	RetrievedCodes []string        `json:"retrieved_codes"`
	FallbackUsed   bool            `json:"fallback_used"`
	Degraded       bool            `json:"degraded"`
	Error          string          `json:"error,omitempty"`
	Latency        time.Duration   `json:"latency_ns"`
}

// EvalSummary holds aggregate metrics across all golden queries.
type EvalSummary struct {
	K               int                                `json:"k"`
	TotalQueries    int                                `json:"total_queries"`
	AvgRecall       float64                            `json:"avg_recall"`
	AvgMRR          float64                            `json:"avg_mrr"`
	HitRate         float64                            `json:"hit_rate"`
	AvgLatency      time.Duration                      `json:"avg_latency_ns"`
	QueriesWithHits int                                `json:"queries_with_hits"`
	Errors          int                                `json:"errors"`
	BySector        map[entities.Sector]*SectorSummary `json:"by_sector"`
	Results         []EvalResult                       `json:"results"`
}

// SectorSummary holds metrics grouped by requested sector.
type SectorSummary struct {
	Count     int     `json:"count"`
	AvgRecall float64 `json:"avg_recall"`
	AvgMRR    float64 `json:"avg_mrr"`
	HitRate   float64 `json:"hit_rate"`
}
