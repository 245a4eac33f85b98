package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/truenorth/comex/backend/internal/bootstrap"
	"github.com/truenorth/comex/backend/internal/evaluation"
)

var (
	evalGoldenPath string
	evalK          int
	evalGuardrails evaluation.GuardrailConfig
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score the engine against the golden query set",
	Long: `Evaluate runs every golden query through the configured search backend,
prints Recall@K, MRR@K, hit rate and latency as JSON, and fails when a
guardrail threshold is missed.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&evalGoldenPath, "golden", "g", "config/golden_queries.json", "golden query file")
	evaluateCmd.Flags().IntVar(&evalK, "k", evaluation.DefaultK, "rank cut-off")
	evaluateCmd.Flags().Float64Var(&evalGuardrails.MinRecall, "min-recall", 0, "fail below this average recall")
	evaluateCmd.Flags().Float64Var(&evalGuardrails.MinMRR, "min-mrr", 0, "fail below this average MRR")
	evaluateCmd.Flags().Float64Var(&evalGuardrails.MinHitRate, "min-hit-rate", 0, "fail below this hit rate")
	evaluateCmd.Flags().DurationVar(&evalGuardrails.MaxAvgLatency, "max-latency", 0, "fail above this average latency")
	evaluateCmd.Flags().IntVar(&evalGuardrails.MaxErrors, "max-errors", 0, "failed queries tolerated")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	queries, err := evaluation.LoadGoldenQueries(evalGoldenPath)
	if err != nil {
		return err
	}
	if err := evaluation.ValidateGoldenQueries(queries); err != nil {
		return err
	}

	engine, err := bootstrap.New(cfg, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	runner := evaluation.NewRunner(engine.Search)
	runner.K = evalK
	summary, err := runner.Run(ctx, queries)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
		return err
	}

	if violations := evaluation.NewGuardrails(evalGuardrails).Check(summary); len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintln(cmd.ErrOrStderr(), "guardrail:", v)
		}
		return fmt.Errorf("%d guardrail(s) violated", len(violations))
	}
	return nil
}
