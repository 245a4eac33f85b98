package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/providers"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
)

// DefaultTariffCodeTTL is how long a single code stays cached (seconds)
const DefaultTariffCodeTTL = 3600

// CachedTariffCodeAdapter wraps a TariffCodeRepository with a read-through cache on GetByCode
type CachedTariffCodeAdapter struct {
	repositories.TariffCodeRepository
	cache providers.CacheProvider
	ttl   int
}

// NewCachedTariffCodeAdapter decorates repo; ttlSeconds <= 0 uses DefaultTariffCodeTTL
func NewCachedTariffCodeAdapter(repo repositories.TariffCodeRepository, cache providers.CacheProvider, ttlSeconds int) repositories.TariffCodeRepository {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultTariffCodeTTL
	}
	return &CachedTariffCodeAdapter{TariffCodeRepository: repo, cache: cache, ttl: ttlSeconds}
}

func tariffCodeCacheKey(code string) string {
	return fmt.Sprintf("ncm:code:%s", code)
}

// GetByCode serves from cache when possible; cache errors degrade to the database
func (a *CachedTariffCodeAdapter) GetByCode(ctx context.Context, code string) (*entities.TariffCode, error) {
	key := tariffCodeCacheKey(code)

	if cached, err := a.cache.Get(ctx, key); err == nil {
		var tc entities.TariffCode
		if err := json.Unmarshal(cached, &tc); err == nil {
			return &tc, nil
		}
		log.Warn().Str("code", code).Msg("discarding undecodable cached tariff code")
	}

	tc, err := a.TariffCodeRepository.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	a.store(ctx, tc)
	return tc, nil
}

// Upsert writes through and refreshes the cached entry
func (a *CachedTariffCodeAdapter) Upsert(ctx context.Context, tc *entities.TariffCode) error {
	if err := a.TariffCodeRepository.Upsert(ctx, tc); err != nil {
		return err
	}
	a.store(ctx, tc)
	return nil
}

// UpsertBatch writes through and drops the affected entries
func (a *CachedTariffCodeAdapter) UpsertBatch(ctx context.Context, codes []*entities.TariffCode) error {
	if err := a.TariffCodeRepository.UpsertBatch(ctx, codes); err != nil {
		return err
	}
	for _, tc := range codes {
		if err := a.cache.Delete(ctx, tariffCodeCacheKey(tc.Code)); err != nil {
			log.Debug().Err(err).Str("code", tc.Code).Msg("cache invalidation failed")
		}
	}
	return nil
}

func (a *CachedTariffCodeAdapter) store(ctx context.Context, tc *entities.TariffCode) {
	data, err := json.Marshal(tc)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, tariffCodeCacheKey(tc.Code), data, a.ttl); err != nil {
		log.Debug().Err(err).Str("code", tc.Code).Msg("failed to cache tariff code")
	}
}
