package search

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
	tsclient "github.com/truenorth/comex/backend/internal/infrastructure/clients/typesense"
)

// TypesenseIndexer copies the reference table into the Typesense collection
type TypesenseIndexer struct {
	client    *tsclient.Client
	repo      repositories.TariffCodeRepository
	BatchSize int
}

// NewTypesenseIndexer creates a new indexer
func NewTypesenseIndexer(client *tsclient.Client, repo repositories.TariffCodeRepository) *TypesenseIndexer {
	return &TypesenseIndexer{client: client, repo: repo, BatchSize: 500}
}

// Document builds the search document of a code
func Document(tc *entities.TariffCode) map[string]interface{} {
	return map[string]interface{}{
		"id":          tc.Code,
		"code":        tc.Code,
		"description": tc.Description,
		"sector":      string(tc.Sector),
		"chapter":     entities.ChapterOf(tc.Code),
		"specificity": int(entities.CodeSpecificity(tc.Code)),
	}
}

// importPage upserts one page with a single bulk import call
func (i *TypesenseIndexer) importPage(ctx context.Context, page []*entities.TariffCode) error {
	docs := make([]interface{}, 0, len(page))
	for _, tc := range page {
		docs = append(docs, Document(tc))
	}

	results, err := i.client.Client().Collection(i.client.Collection()).Documents().Import(ctx, docs, &api.ImportDocumentsParams{
		Action:    pointer.String("upsert"),
		BatchSize: pointer.Int(len(docs)),
	})
	if err != nil {
		return fmt.Errorf("failed to import page starting at ncm %s: %w", page[0].Code, err)
	}

	for n, res := range results {
		if res != nil && !res.Success {
			code := ""
			if n < len(page) {
				code = page[n].Code
			}
			return fmt.Errorf("failed to index ncm %s: %s", code, res.Error)
		}
	}
	return nil
}

// SyncAll pages through the table and bulk-upserts every page. It returns
// the number of documents written.
func (i *TypesenseIndexer) SyncAll(ctx context.Context) (int, error) {
	if err := i.client.InitSchema(ctx); err != nil {
		return 0, err
	}

	batch := i.BatchSize
	if batch <= 0 {
		batch = 500
	}

	total := 0
	after := ""
	for {
		page, err := i.repo.ListAll(ctx, after, batch)
		if err != nil {
			return total, err
		}
		if len(page) > 0 {
			if err := i.importPage(ctx, page); err != nil {
				return total, err
			}
			total += len(page)
			log.Debug().Int("indexed", total).Msg("Typesense sync progress")
		}

		if len(page) < batch {
			break
		}
		after = page[len(page)-1].Code
	}

	log.Info().Int("documents", total).Str("collection", i.client.Collection()).Msg("Typesense sync completed")
	return total, nil
}
