// Package bootstrap assembles the NCM engine from configuration. It is
// shared by the API server and the ncmctl command.
package bootstrap

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/truenorth/comex/backend/internal/adapters/cache"
	"github.com/truenorth/comex/backend/internal/adapters/database"
	"github.com/truenorth/comex/backend/internal/adapters/search"
	"github.com/truenorth/comex/backend/internal/application/services"
	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/providers"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
	"github.com/truenorth/comex/backend/internal/infrastructure/clients/postgres"
	"github.com/truenorth/comex/backend/internal/infrastructure/clients/redis"
	"github.com/truenorth/comex/backend/internal/infrastructure/clients/siscomex"
	"github.com/truenorth/comex/backend/internal/infrastructure/clients/typesense"
	"github.com/truenorth/comex/backend/internal/infrastructure/observability"
	"github.com/truenorth/comex/backend/pkg/config"
)

const cachePrefix = "comex:"

// Engine holds the wired engine and the clients it owns
type Engine struct {
	Postgres  *postgres.Client
	Redis     *redis.Client
	Typesense *typesense.Client

	// Store is the uncached repository; Repo may add the Redis layer
	Store    repositories.TariffCodeRepository
	Repo     repositories.TariffCodeRepository
	Agencies repositories.AgencyRepository
	Registry providers.RegistryProvider

	Search  *services.NCMSearchService
	Service *services.NCMService
}

// ScoringConfig maps the search settings onto the relevance weights
func ScoringConfig(cfg config.SearchConfig) entities.ScoringConfig {
	return entities.ScoringConfig{
		SectorBoost:     cfg.SectorBoost,
		SpecificBoost:   cfg.SpecificBoost,
		SubheadingBoost: cfg.SubheadingBoost,
		GenericBoost:    cfg.GenericBoost,
		Scale:           cfg.ScoreScale,
	}
}

// RankingPolicy maps the search settings onto the confidence gate and merger
func RankingPolicy(cfg config.SearchConfig) *services.SearchRankingService {
	ranking := services.NewSearchRankingService()
	ranking.Scoring = ScoringConfig(cfg)
	ranking.MinResults = cfg.MinResults
	ranking.LowConfidenceThreshold = cfg.LowConfidenceThreshold
	ranking.ProtectedTopK = cfg.ProtectedTopK
	return ranking
}

// New connects to the stores and builds every service. PostgreSQL is
// required; Redis is optional; Typesense is required only when it is the
// selected search backend.
func New(cfg *config.Config, metrics *observability.Metrics) (*Engine, error) {
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}
	e := &Engine{Postgres: pgClient}

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			// Continue without Redis - lookups go straight to PostgreSQL
			log.Warn().Err(err).Msg("Redis unavailable, running without cache")
		} else {
			e.Redis = redisClient
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}

	if cfg.Search.Backend == config.SearchBackendTypesense {
		tsClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("typesense search backend selected but unavailable: %w", err)
		}
		e.Typesense = tsClient
	}

	if err := e.wire(cfg, metrics); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) wire(cfg *config.Config, metrics *observability.Metrics) error {
	dict, err := services.LoadComexDictionary(cfg.Search.DictionaryPath)
	if err != nil {
		return err
	}
	detector := services.NewSectorDetector(dict)
	scoring := ScoringConfig(cfg.Search)

	e.Store = database.NewTariffCodeAdapter(e.Postgres)
	e.Repo = e.Store
	if e.Redis != nil {
		e.Repo = database.NewCachedTariffCodeAdapter(e.Store, cache.NewRedisAdapter(e.Redis.Client(), cachePrefix), cfg.Redis.CodeTTLSec)
	}
	e.Agencies = database.NewAgencyAdapter(e.Postgres)

	if cfg.Registry.Enabled {
		rc := siscomex.DefaultConfig(cfg.Registry.BaseURL)
		rc.Timeout = cfg.Registry.Timeout
		rc.UserAgent = cfg.Registry.UserAgent
		e.Registry = siscomex.NewClient(rc)
	} else {
		log.Info().Msg("Registry lookups disabled")
	}

	var primary repositories.PrimaryRanker
	if e.Typesense != nil {
		primary = search.NewTypesenseRanker(e.Typesense, scoring)
	} else {
		primary = database.NewFullTextRanker(e.Postgres, scoring)
	}
	log.Info().Str("backend", cfg.Search.Backend).Msg("Primary ranker selected")

	e.Search = services.NewNCMSearchService(
		services.NewQueryNormalizer(),
		services.NewSynonymExpander(dict, cfg.Search.MaxExpansionTerms),
		primary,
		database.NewSubstringRanker(e.Postgres),
		RankingPolicy(cfg.Search),
		metrics,
	)
	e.Search.DefaultLimit = cfg.Search.DefaultLimit
	e.Search.MaxLimit = cfg.Search.MaxLimit

	resolver := services.NewTariffResolverService(e.Repo, e.Registry, detector, metrics)
	validator := services.NewValidationService(resolver, e.Repo)
	classifier := services.NewClassificationService(e.Search, validator, detector, e.Repo)
	if cfg.Search.ClassifyConcurrency > 0 {
		classifier.Concurrency = cfg.Search.ClassifyConcurrency
		resolver.Concurrency = cfg.Search.ClassifyConcurrency
	}

	e.Service = services.NewNCMService(
		e.Search,
		resolver,
		services.NewSectorCatalogService(e.Repo),
		validator,
		classifier,
		e.Repo,
		e.Agencies,
	)
	return nil
}

// Close releases every client the engine opened
func (e *Engine) Close() error {
	var errs []error
	if e.Redis != nil {
		errs = append(errs, e.Redis.Close())
	}
	if e.Postgres != nil {
		errs = append(errs, e.Postgres.Close())
	}
	return errors.Join(errs...)
}
