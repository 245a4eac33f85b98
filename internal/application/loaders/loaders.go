package loaders

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders contains the per-request dataloaders
type Loaders struct {
	// TariffCodes coalesces local code lookups into one GetByCodes call.
	// A missing code loads as nil without error.
	TariffCodes *dataloader.Loader[string, *entities.TariffCode]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(repo repositories.TariffCodeRepository) *Loaders {
	return &Loaders{
		TariffCodes: dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[*entities.TariffCode] {
			results := make([]*dataloader.Result[*entities.TariffCode], len(keys))
			found, err := repo.GetByCodes(ctx, keys)

			byCode := make(map[string]*entities.TariffCode, len(found))
			if err == nil {
				for _, tc := range found {
					byCode[tc.Code] = tc
				}
			}

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.TariffCode]{Error: err}
				} else {
					results[i] = &dataloader.Result[*entities.TariffCode]{Data: byCode[key]}
				}
			}
			return results
		},
			dataloader.WithWait[string, *entities.TariffCode](2*time.Millisecond),
			dataloader.WithBatchCapacity[string, *entities.TariffCode](500),
		),
	}
}

// For returns the loaders attached to ctx, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}
