package evaluation

import (
	"fmt"
	"time"
)

// GuardrailConfig holds the minimum quality an evaluation run must reach.
// Zero values disable a check.
type GuardrailConfig struct {
	MinRecall     float64
	MinMRR        float64
	MinHitRate    float64
	MaxAvgLatency time.Duration
	MaxErrors     int
}

type Guardrails struct {
	config GuardrailConfig
}

func NewGuardrails(config GuardrailConfig) *Guardrails {
	if config.MaxErrors < 0 {
		config.MaxErrors = 0
	}
	return &Guardrails{config: config}
}

// Check returns one message per violated threshold
func (g *Guardrails) Check(s *EvalSummary) []string {
	var violations []string
	if g.config.MinRecall > 0 && s.AvgRecall < g.config.MinRecall {
		violations = append(violations, fmt.Sprintf("recall@%d %.3f below %.3f", s.K, s.AvgRecall, g.config.MinRecall))
	}
	if g.config.MinMRR > 0 && s.AvgMRR < g.config.MinMRR {
		violations = append(violations, fmt.Sprintf("mrr@%d %.3f below %.3f", s.K, s.AvgMRR, g.config.MinMRR))
	}
	if g.config.MinHitRate > 0 && s.HitRate < g.config.MinHitRate {
		violations = append(violations, fmt.Sprintf("hit rate %.3f below %.3f", s.HitRate, g.config.MinHitRate))
	}
	if g.config.MaxAvgLatency > 0 && s.AvgLatency > g.config.MaxAvgLatency {
		violations = append(violations, fmt.Sprintf("avg latency %s above %s", s.AvgLatency, g.config.MaxAvgLatency))
	}
	if s.Errors > g.config.MaxErrors {
		violations = append(violations, fmt.Sprintf("%d failed queries (max %d)", s.Errors, g.config.MaxErrors))
	}
	return violations
}

// Passed reports whether the summary satisfies every threshold
func (g *Guardrails) Passed(s *EvalSummary) bool {
	return len(g.Check(s)) == 0
}
