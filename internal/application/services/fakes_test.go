package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/providers"
	apperrors "github.com/truenorth/comex/backend/pkg/errors"
)

// fakeTariffRepo is an in-memory TariffCodeRepository
type fakeTariffRepo struct {
	mu        sync.Mutex
	rows      map[string]*entities.TariffCode
	getErr    error
	upsertErr error

	getByCodeCalls  int
	getByCodesCalls int
	loadedKeys      int
	upserts         []*entities.TariffCode
}

func newFakeTariffRepo(rows ...*entities.TariffCode) *fakeTariffRepo {
	r := &fakeTariffRepo{rows: make(map[string]*entities.TariffCode)}
	for _, tc := range rows {
		r.rows[tc.Code] = tc
	}
	return r
}

func (r *fakeTariffRepo) GetByCode(ctx context.Context, code string) (*entities.TariffCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getByCodeCalls++
	if r.getErr != nil {
		return nil, r.getErr
	}
	if tc, ok := r.rows[code]; ok {
		return tc, nil
	}
	return nil, apperrors.NewNotFoundError("ncm not found")
}

func (r *fakeTariffRepo) GetByCodes(ctx context.Context, codes []string) ([]*entities.TariffCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getByCodesCalls++
	r.loadedKeys += len(codes)
	if r.getErr != nil {
		return nil, r.getErr
	}
	out := []*entities.TariffCode{}
	for _, c := range codes {
		if tc, ok := r.rows[c]; ok {
			out = append(out, tc)
		}
	}
	return out, nil
}

func (r *fakeTariffRepo) Upsert(ctx context.Context, tc *entities.TariffCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts = append(r.upserts, tc)
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.rows[tc.Code] = tc
	return nil
}

func (r *fakeTariffRepo) UpsertBatch(ctx context.Context, codes []*entities.TariffCode) error {
	for _, tc := range codes {
		if err := r.Upsert(ctx, tc); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeTariffRepo) sorted(keep func(*entities.TariffCode) bool, limit int) []*entities.TariffCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entities.TariffCode{}
	for _, tc := range r.rows {
		if keep(tc) {
			out = append(out, tc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *fakeTariffRepo) ListBySector(ctx context.Context, sector entities.Sector, limit int) ([]*entities.TariffCode, error) {
	return r.sorted(func(tc *entities.TariffCode) bool {
		return sector.IsGeneral() || tc.Sector == sector
	}, limit), nil
}

func (r *fakeTariffRepo) ListByChapter(ctx context.Context, chapter string, limit int) ([]*entities.TariffCode, error) {
	return r.sorted(func(tc *entities.TariffCode) bool {
		return strings.HasPrefix(tc.Code, chapter)
	}, limit), nil
}

func (r *fakeTariffRepo) ListAll(ctx context.Context, afterCode string, limit int) ([]*entities.TariffCode, error) {
	return r.sorted(func(tc *entities.TariffCode) bool { return tc.Code > afterCode }, limit), nil
}

func (r *fakeTariffRepo) Stats(ctx context.Context) (*entities.CatalogStats, error) {
	all := r.sorted(func(*entities.TariffCode) bool { return true }, 0)
	stats := &entities.CatalogStats{Total: len(all), BySector: map[entities.Sector]int{}}
	for _, tc := range all {
		stats.BySector[tc.Sector]++
		if len(tc.RequiredAgencies) > 0 {
			stats.WithAgencies++
		}
	}
	return stats, nil
}

type fakeRegistry struct {
	mu    sync.Mutex
	recs  map[string]*providers.RegistryNomenclature
	err   error
	calls int
}

func (f *fakeRegistry) Lookup(ctx context.Context, code string) (*providers.RegistryNomenclature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.recs[code], nil
}

func tariff(code, desc string, sector entities.Sector, agencies ...string) *entities.TariffCode {
	tc := &entities.TariffCode{
		Code:             code,
		Description:      desc,
		Sector:           sector,
		RequiredAgencies: agencies,
		RequiresLicense:  len(agencies) > 0,
		Source:           entities.SourceDatabase,
	}
	tc.ApplyDefaults()
	return tc
}
