package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
	"github.com/truenorth/comex/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/truenorth/comex/backend/pkg/errors"
)

const ncmTable = "ncm_database"

var tariffCodeColumns = []interface{}{
	"ncm", "descricao", "capitulo", "aliquota_ii", "aliquota_ipi",
	"aliquota_pis", "aliquota_cofins", "anuentes", "requer_lpco",
	"setor", "fonte", "updated_at",
}

// TariffCodeAdapter implements TariffCodeRepository on PostgreSQL
type TariffCodeAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewTariffCodeAdapter creates a new tariff code adapter
func NewTariffCodeAdapter(client *postgres.Client) repositories.TariffCodeRepository {
	return &TariffCodeAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTariffCode(row rowScanner) (*entities.TariffCode, error) {
	tc := &entities.TariffCode{}
	var sector, source sql.NullString
	var updatedAt sql.NullTime
	var duty, ipi, pis, cofins decimal.NullDecimal

	err := row.Scan(
		&tc.Code,
		&tc.Description,
		&tc.Chapter,
		&duty,
		&ipi,
		&pis,
		&cofins,
		pq.Array(&tc.RequiredAgencies),
		&tc.RequiresLicense,
		&sector,
		&source,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	tc.ImportDutyRate = duty.Decimal
	tc.IPIRate = ipi.Decimal
	tc.PISRate = pis.Decimal
	tc.COFINSRate = cofins.Decimal
	tc.Sector = entities.ParseSector(sector.String)
	tc.Source = source.String
	if tc.Source == "" {
		tc.Source = entities.SourceDatabase
	}
	if updatedAt.Valid {
		tc.UpdatedAt = updatedAt.Time
	}
	tc.ApplyDefaults()
	return tc, nil
}

func (a *TariffCodeAdapter) queryList(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.TariffCode, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query tariff codes", err)
	}
	defer rows.Close()

	codes := []*entities.TariffCode{}
	for rows.Next() {
		tc, err := scanTariffCode(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan tariff code", err)
		}
		codes = append(codes, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate tariff codes", err)
	}
	return codes, nil
}

// GetByCode retrieves a tariff code by its 8-digit code
func (a *TariffCodeAdapter) GetByCode(ctx context.Context, code string) (*entities.TariffCode, error) {
	query, args, err := a.db.Select(tariffCodeColumns...).
		From(ncmTable).
		Where(goqu.Ex{"ncm": code}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	tc, err := scanTariffCode(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("ncm %s not found", code))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get tariff code", err)
	}
	return tc, nil
}

// GetByCodes retrieves multiple tariff codes in one round trip
func (a *TariffCodeAdapter) GetByCodes(ctx context.Context, codes []string) ([]*entities.TariffCode, error) {
	if len(codes) == 0 {
		return []*entities.TariffCode{}, nil
	}
	return a.queryList(ctx, a.db.Select(tariffCodeColumns...).
		From(ncmTable).
		Where(goqu.Ex{"ncm": codes}))
}

func tariffCodeRecord(tc *entities.TariffCode, now time.Time) goqu.Record {
	agencies := tc.RequiredAgencies
	if agencies == nil {
		agencies = []string{}
	}
	sector := tc.Sector
	if sector == "" {
		sector = entities.SectorGeneral
	}
	return goqu.Record{
		"ncm":             tc.Code,
		"descricao":       tc.Description,
		"capitulo":        entities.ChapterOf(tc.Code),
		"aliquota_ii":     tc.ImportDutyRate,
		"aliquota_ipi":    tc.IPIRate,
		"aliquota_pis":    tc.PISRate,
		"aliquota_cofins": tc.COFINSRate,
		"anuentes":        pq.Array(agencies),
		"requer_lpco":     tc.RequiresLicense,
		"setor":           sector.StorageLabel(),
		"fonte":           sql.NullString{String: tc.Source, Valid: tc.Source != ""},
		"updated_at":      now,
	}
}

func upsertConflict() exp.ConflictExpression {
	return goqu.DoUpdate("ncm", goqu.Record{
		"descricao":       goqu.L("EXCLUDED.descricao"),
		"capitulo":        goqu.L("EXCLUDED.capitulo"),
		"aliquota_ii":     goqu.L("EXCLUDED.aliquota_ii"),
		"aliquota_ipi":    goqu.L("EXCLUDED.aliquota_ipi"),
		"aliquota_pis":    goqu.L("EXCLUDED.aliquota_pis"),
		"aliquota_cofins": goqu.L("EXCLUDED.aliquota_cofins"),
		"anuentes":        goqu.L("EXCLUDED.anuentes"),
		"requer_lpco":     goqu.L("EXCLUDED.requer_lpco"),
		"setor":           goqu.L("EXCLUDED.setor"),
		"fonte":           goqu.L("EXCLUDED.fonte"),
		"updated_at":      goqu.L("EXCLUDED.updated_at"),
	})
}

// Upsert inserts or replaces one tariff code
func (a *TariffCodeAdapter) Upsert(ctx context.Context, tc *entities.TariffCode) error {
	return a.UpsertBatch(ctx, []*entities.TariffCode{tc})
}

// UpsertBatch inserts or replaces many tariff codes in a single statement
func (a *TariffCodeAdapter) UpsertBatch(ctx context.Context, codes []*entities.TariffCode) error {
	if len(codes) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]interface{}, 0, len(codes))
	pos := make(map[string]int, len(codes))
	for _, tc := range codes {
		if len(tc.Code) != entities.NCMLength {
			return apperrors.NewValidationError(fmt.Sprintf("invalid ncm %q", tc.Code))
		}
		// ON CONFLICT cannot touch the same row twice in one statement
		if i, dup := pos[tc.Code]; dup {
			rows[i] = tariffCodeRecord(tc, now)
			continue
		}
		pos[tc.Code] = len(rows)
		rows = append(rows, tariffCodeRecord(tc, now))
	}

	query, args, err := a.db.Insert(ncmTable).
		Rows(rows...).
		OnConflict(upsertConflict()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert tariff codes", err)
	}
	return nil
}

// ListBySector lists codes of one sector ordered by code
func (a *TariffCodeAdapter) ListBySector(ctx context.Context, sector entities.Sector, limit int) ([]*entities.TariffCode, error) {
	ds := a.db.Select(tariffCodeColumns...).From(ncmTable)
	if !sector.IsGeneral() {
		ds = ds.Where(goqu.Ex{"setor": sector.StorageLabel()})
	}
	return a.queryList(ctx, ds.Order(goqu.I("ncm").Asc()).Limit(uint(limit)))
}

// ListByChapter lists codes of one chapter ordered by code
func (a *TariffCodeAdapter) ListByChapter(ctx context.Context, chapter string, limit int) ([]*entities.TariffCode, error) {
	return a.queryList(ctx, a.db.Select(tariffCodeColumns...).
		From(ncmTable).
		Where(goqu.Ex{"capitulo": chapter}).
		Order(goqu.I("ncm").Asc()).
		Limit(uint(limit)))
}

// ListAll pages through the table with keyset pagination on ncm
func (a *TariffCodeAdapter) ListAll(ctx context.Context, afterCode string, limit int) ([]*entities.TariffCode, error) {
	ds := a.db.Select(tariffCodeColumns...).From(ncmTable)
	if afterCode != "" {
		ds = ds.Where(goqu.I("ncm").Gt(afterCode))
	}
	return a.queryList(ctx, ds.Order(goqu.I("ncm").Asc()).Limit(uint(limit)))
}

// Stats summarises the reference table
func (a *TariffCodeAdapter) Stats(ctx context.Context) (*entities.CatalogStats, error) {
	query, args, err := a.db.Select(
		goqu.I("setor"),
		goqu.COUNT(goqu.Star()).As("total"),
		goqu.L("COUNT(*) FILTER (WHERE cardinality(anuentes) > 0)").As("with_agencies"),
		goqu.MAX("updated_at").As("last_updated"),
	).From(ncmTable).
		GroupBy(goqu.I("setor")).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query stats", err)
	}
	defer rows.Close()

	stats := &entities.CatalogStats{BySector: map[entities.Sector]int{}}
	for rows.Next() {
		var label sql.NullString
		var total, withAgencies int
		var lastUpdated sql.NullTime
		if err := rows.Scan(&label, &total, &withAgencies, &lastUpdated); err != nil {
			return nil, apperrors.NewInternalError("failed to scan stats", err)
		}
		stats.BySector[entities.ParseSector(label.String)] += total
		stats.Total += total
		stats.WithAgencies += withAgencies
		if lastUpdated.Valid && (stats.LastUpdated == nil || lastUpdated.Time.After(*stats.LastUpdated)) {
			t := lastUpdated.Time
			stats.LastUpdated = &t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate stats", err)
	}
	return stats, nil
}
