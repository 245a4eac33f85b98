package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/providers"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
)

// DatasetRecord is one entry of the canonical reference dataset (ncm_completo.json)
type DatasetRecord struct {
	NCM            string               `json:"ncm"`
	Descricao      string               `json:"descricao"`
	Capitulo       string               `json:"capitulo"`
	AliquotaII     providers.FlexNumber `json:"aliquota_ii"`
	AliquotaIPI    providers.FlexNumber `json:"aliquota_ipi"`
	AliquotaPIS    providers.FlexNumber `json:"aliquota_pis"`
	AliquotaCOFINS providers.FlexNumber `json:"aliquota_cofins"`
	Anuentes       []string             `json:"anuentes"`
	RequerLPCO     bool                 `json:"requer_lpco"`
	Setor          string               `json:"setor"`
	FonteNCM       string               `json:"fonte_ncm"`
}

// ImportReport counts what happened to each record
type ImportReport struct {
	Read     int `json:"read"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
	// Replaced counts records superseded by a later record with the same code
	Replaced int `json:"replaced"`
}

// ImportService loads the reference dataset into the store
type ImportService struct {
	repo      repositories.TariffCodeRepository
	BatchSize int
}

// NewImportService creates an importer writing through repo
func NewImportService(repo repositories.TariffCodeRepository) *ImportService {
	return &ImportService{repo: repo, BatchSize: 500}
}

// Import streams a JSON array of DatasetRecord from r. Records without a
// valid code or description are skipped; a failed batch is counted and the
// import carries on with the next one. A code repeated within a batch keeps
// its last record.
func (s *ImportService) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("dataset must be a JSON array")
	}

	size := s.BatchSize
	if size <= 0 {
		size = 500
	}

	report := &ImportReport{}
	batch := make([]*entities.TariffCode, 0, size)
	pos := make(map[string]int, size)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.repo.UpsertBatch(ctx, batch); err != nil {
			log.Error().Err(err).Int("batch", len(batch)).Str("first", batch[0].Code).Msg("Import batch failed")
			report.Failed += len(batch)
		} else {
			report.Imported += len(batch)
		}
		log.Debug().Int("imported", report.Imported).Int("read", report.Read).Msg("Import progress")
		batch = batch[:0]
		clear(pos)
	}

	now := time.Now().UTC()
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		var rec DatasetRecord
		if err := dec.Decode(&rec); err != nil {
			return report, fmt.Errorf("decode record %d: %w", report.Read, err)
		}
		report.Read++

		tc, ok := FromDataset(rec, now)
		if !ok {
			report.Skipped++
			continue
		}
		if i, dup := pos[tc.Code]; dup {
			batch[i] = tc
			report.Replaced++
			continue
		}
		pos[tc.Code] = len(batch)
		batch = append(batch, tc)
		if len(batch) == size {
			flush()
		}
	}
	flush()

	if _, err := dec.Token(); err != nil {
		return report, fmt.Errorf("read dataset end: %w", err)
	}

	log.Info().
		Int("read", report.Read).
		Int("imported", report.Imported).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("replaced", report.Replaced).
		Msg("Dataset import completed")
	return report, nil
}

// FromDataset converts a dataset record. It reports false when the record
// has no usable code or description.
func FromDataset(rec DatasetRecord, updatedAt time.Time) (*entities.TariffCode, bool) {
	code, ok := NormalizeCode(rec.NCM)
	if !ok {
		return nil, false
	}
	desc := strings.TrimSpace(rec.Descricao)
	if desc == "" {
		return nil, false
	}

	agencies := dedupeAgencies(rec.Anuentes)
	chapter := strings.TrimSpace(rec.Capitulo)
	if len(chapter) != 2 {
		chapter = entities.ChapterOf(code)
	}
	source := strings.TrimSpace(rec.FonteNCM)
	if source == "" {
		source = entities.SourceDatabase
	}

	tc := &entities.TariffCode{
		Code:             code,
		Description:      truncateRunes(desc, MaxDescriptionLength),
		Chapter:          chapter,
		ImportDutyRate:   flexDecimal(rec.AliquotaII),
		IPIRate:          flexDecimal(rec.AliquotaIPI),
		PISRate:          flexDecimal(rec.AliquotaPIS),
		COFINSRate:       flexDecimal(rec.AliquotaCOFINS),
		RequiredAgencies: agencies,
		RequiresLicense:  rec.RequerLPCO,
		Sector:           entities.ParseSector(rec.Setor),
		Source:           source,
		UpdatedAt:        updatedAt,
	}
	tc.ApplyDefaults()
	return tc, true
}
