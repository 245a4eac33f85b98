package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/truenorth/comex/backend/pkg/config"
	"github.com/truenorth/comex/backend/pkg/retry"
)

// DefaultCollection holds one document per NCM code
const DefaultCollection = "ncm_codes"

// Client represents a Typesense client bound to the NCM collection
type Client struct {
	client     *typesense.Client
	collection string
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	err := retry.DoWithLog(
		context.Background(),
		retry.DefaultConfig(),
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("Typesense connection attempt failed")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Successfully connected to Typesense")
	return NewFromClient(client, cfg.Collection), nil
}

// NewFromClient wraps an existing client without a health check
func NewFromClient(client *typesense.Client, collection string) *Client {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Client{client: client, collection: collection}
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// Collection returns the NCM collection name
func (c *Client) Collection() string {
	return c.collection
}

// Schema returns the NCM collection schema
func (c *Client) Schema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: c.collection,
		Fields: []api.Field{
			{Name: "code", Type: "string"},
			{Name: "description", Type: "string", Locale: pointer.String("pt")},
			{Name: "sector", Type: "string", Facet: pointer.True()},
			{Name: "chapter", Type: "string", Facet: pointer.True()},
			{Name: "specificity", Type: "int32"},
		},
		DefaultSortingField: pointer.String("specificity"),
	}
}

// InitSchema ensures the NCM collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == c.collection {
			log.Debug().Str("collection", c.collection).Msg("Typesense collection already exists")
			return nil
		}
	}

	if _, err := c.client.Collections().Create(ctx, c.Schema()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", c.collection).Msg("Created Typesense collection")
	return nil
}
