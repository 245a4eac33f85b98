package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/truenorth/comex/backend/internal/adapters/database"
	"github.com/truenorth/comex/backend/internal/adapters/search"
	"github.com/truenorth/comex/backend/internal/infrastructure/clients/postgres"
	"github.com/truenorth/comex/backend/internal/infrastructure/clients/typesense"
)

var indexBatchSize int

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Copy the reference table into the Typesense collection",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().IntVar(&indexBatchSize, "batch-size", 500, "codes read per page")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	indexer := search.NewTypesenseIndexer(tsClient, database.NewTariffCodeAdapter(pgClient))
	indexer.BatchSize = indexBatchSize

	n, err := indexer.SyncAll(ctx)
	if err != nil {
		return fmt.Errorf("index sync stopped after %d documents: %w", n, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d codes into %s\n", n, tsClient.Collection())
	return nil
}
