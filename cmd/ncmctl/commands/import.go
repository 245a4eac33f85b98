package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/truenorth/comex/backend/internal/adapters/database"
	"github.com/truenorth/comex/backend/internal/application/services"
	"github.com/truenorth/comex/backend/internal/infrastructure/clients/objectstore"
	"github.com/truenorth/comex/backend/internal/infrastructure/clients/postgres"
)

var (
	importSource    string
	importBatchSize int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the NCM reference dataset into PostgreSQL",
	Long: `Import reads the canonical JSON array (ncm_completo.json) from a local
file or an s3://bucket/key object and upserts it in batches.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importSource, "source", "s", "", "dataset path or s3://bucket/key (required)")
	importCmd.Flags().IntVar(&importBatchSize, "batch-size", 500, "records per upsert statement")
	importCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(importCmd)
}

func openSource(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "s3://") {
		store, err := objectstore.NewClient(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		return store.Open(ctx, source)
	}
	return os.Open(source)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer pgClient.Close()

	body, err := openSource(ctx, importSource)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer body.Close()

	importer := services.NewImportService(database.NewTariffCodeAdapter(pgClient))
	importer.BatchSize = importBatchSize

	report, err := importer.Import(ctx, body)
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d records failed to import", report.Failed)
	}
	return nil
}
