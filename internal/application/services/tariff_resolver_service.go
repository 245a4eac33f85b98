package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/truenorth/comex/backend/internal/application/loaders"
	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/providers"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
	"github.com/truenorth/comex/backend/internal/infrastructure/observability"
	apperrors "github.com/truenorth/comex/backend/pkg/errors"
)

// MaxDescriptionLength bounds stored descriptions, in runes
const MaxDescriptionLength = 1000

// NormalizeCode strips non-digits, right-pads with zeros to 8 and truncates
// to 8. It returns false when the input has no digits at all.
func NormalizeCode(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return "", false
	}
	if len(digits) < entities.NCMLength {
		digits += strings.Repeat("0", entities.NCMLength-len(digits))
	}
	return digits[:entities.NCMLength], true
}

// TariffResolverService resolves exact codes: local store first, then the
// external registry with write-back.
type TariffResolverService struct {
	repo     repositories.TariffCodeRepository
	registry providers.RegistryProvider
	detector *SectorDetector
	metrics  *observability.Metrics

	// Concurrency bounds ResolveMany fan-out
	Concurrency int
}

// NewTariffResolverService creates a resolver. registry and metrics may be nil.
func NewTariffResolverService(
	repo repositories.TariffCodeRepository,
	registry providers.RegistryProvider,
	detector *SectorDetector,
	metrics *observability.Metrics,
) *TariffResolverService {
	return &TariffResolverService{
		repo:        repo,
		registry:    registry,
		detector:    detector,
		metrics:     metrics,
		Concurrency: 4,
	}
}

// Resolve returns the record for code, or nil when neither the store nor
// the registry knows it. Registry failures are treated as not found.
func (s *TariffResolverService) Resolve(ctx context.Context, code string) (*entities.TariffCode, error) {
	normalized, ok := NormalizeCode(code)
	if !ok {
		return nil, nil
	}

	local, err := s.loadLocal(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if local != nil {
		return local, nil
	}

	return s.resolveRemote(ctx, normalized)
}

// ResolveMany resolves codes concurrently; the result is aligned with the
// input and holds nil where a code was not found.
func (s *TariffResolverService) ResolveMany(ctx context.Context, codes []string) ([]*entities.TariffCode, error) {
	if loaders.For(ctx) == nil {
		ctx = loaders.WithLoaders(ctx, loaders.NewLoaders(s.repo))
	}

	out := make([]*entities.TariffCode, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Concurrency, 1))
	for i, code := range codes {
		g.Go(func() error {
			tc, err := s.Resolve(gctx, code)
			if err != nil {
				return err
			}
			out[i] = tc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// loadLocal goes through the request dataloader when one is attached
func (s *TariffResolverService) loadLocal(ctx context.Context, code string) (*entities.TariffCode, error) {
	if l := loaders.For(ctx); l != nil {
		return l.TariffCodes.Load(ctx, code)()
	}

	tc, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return tc, nil
}

func (s *TariffResolverService) resolveRemote(ctx context.Context, code string) (*entities.TariffCode, error) {
	if s.registry == nil {
		return nil, nil
	}
	logger := observability.LoggerFromContext(ctx)

	rec, err := s.registry.Lookup(ctx, code)
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		s.metrics.RecordRegistryFailure(ctx, reason)
		logger.Warn().Err(err).Str("code", code).Str("reason", reason).Msg("Registry lookup failed, treating code as not found")
		return nil, nil
	}
	if rec == nil || strings.TrimSpace(rec.Codigo) == "" {
		return nil, nil
	}

	tc := s.FromRegistry(code, rec)
	if err := s.repo.Upsert(ctx, tc); err != nil {
		s.metrics.RecordCacheWriteFailure(ctx)
		logger.Error().Err(err).Str("code", code).Msg("Failed to store registry record")
	} else {
		logger.Info().Str("code", code).Str("sector", string(tc.Sector)).Msg("Stored registry record")
	}
	return tc, nil
}

// FromRegistry converts a registry record into a TariffCode for code
func (s *TariffResolverService) FromRegistry(code string, rec *providers.RegistryNomenclature) *entities.TariffCode {
	desc := truncateRunes(rec.Text(), MaxDescriptionLength)
	agencies := dedupeAgencies(rec.Anuentes)

	tc := &entities.TariffCode{
		Code:             code,
		Description:      desc,
		Chapter:          entities.ChapterOf(code),
		ImportDutyRate:   flexDecimal(rec.AliquotaII),
		IPIRate:          flexDecimal(rec.AliquotaIPI),
		RequiredAgencies: agencies,
		RequiresLicense:  len(agencies) > 0,
		Sector:           entities.SectorGeneral,
		Source:           entities.SourceRegistry,
		UpdatedAt:        time.Now().UTC(),
	}
	if s.detector != nil {
		tc.Sector = s.detector.Detect(desc)
	}
	tc.ApplyDefaults()
	return tc
}

func flexDecimal(n providers.FlexNumber) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.Value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func dedupeAgencies(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, a := range in {
		a = strings.ToUpper(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
