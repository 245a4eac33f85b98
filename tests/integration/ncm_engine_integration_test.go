//go:build integration

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/truenorth/comex/backend/internal/application/services"
	"github.com/truenorth/comex/backend/internal/bootstrap"
	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/pkg/config"
)

const dataset = `[
  {"ncm": "87083010", "descricao": "Freios e suas partes", "capitulo": "87", "aliquota_ii": 18, "aliquota_ipi": 5, "anuentes": ["INMETRO"], "setor": "Autopecas"},
  {"ncm": "87089990", "descricao": "Outras partes e acessórios de veículos", "capitulo": "87", "aliquota_ii": 18, "aliquota_ipi": 5, "anuentes": ["INMETRO"], "setor": "Autopecas"},
  {"ncm": "84212300", "descricao": "Aparelhos para filtrar óleos minerais nos motores", "capitulo": "84", "aliquota_ii": 14, "aliquota_ipi": 5, "setor": "Autopecas"},
  {"ncm": "85183000", "descricao": "Fones de ouvido e auriculares", "capitulo": "85", "aliquota_ii": 20, "aliquota_ipi": 15, "anuentes": ["ANATEL"], "setor": "Eletronicos"},
  {"ncm": "85076000", "descricao": "Acumuladores de íons de lítio", "capitulo": "85", "aliquota_ii": 16, "aliquota_ipi": 0, "setor": "Eletronicos"},
  {"ncm": "15092000", "descricao": "Azeite de oliva extravirgem", "capitulo": "15", "aliquota_ii": 10, "aliquota_ipi": 0, "setor": "Alimentos"},
  {"ncm": "33049910", "descricao": "Cremes de beleza", "capitulo": "33", "aliquota_ii": 18, "aliquota_ipi": 22, "anuentes": ["ANVISA"], "requer_lpco": true, "setor": "Cosmeticos"},
  {"ncm": "n/a", "descricao": "codigo invalido"},
  {"ncm": "99999999", "descricao": "  "}
]`

type NCMEngineTestSuite struct {
	suite.Suite
	pg     *tcpostgres.PostgresContainer
	redis  *tcredis.RedisContainer
	engine *bootstrap.Engine
}

func TestNCMEngineTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container tests in short mode")
	}
	suite.Run(t, new(NCMEngineTestSuite))
}

func (s *NCMEngineTestSuite) SetupSuite() {
	ctx := context.Background()
	t := s.T()

	pg, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("comex_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.WithInitScripts("../../migrations/001_ncm_database.sql"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	s.pg = pg

	rd, err := tcredis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	s.redis = rd

	cfg := s.config(ctx)
	s.seedAgencies(ctx, cfg)

	engine, err := bootstrap.New(cfg, nil)
	require.NoError(t, err)
	s.engine = engine

	report, err := services.NewImportService(engine.Store).Import(ctx, strings.NewReader(dataset))
	require.NoError(t, err)
	require.Equal(t, 9, report.Read)
	require.Equal(t, 7, report.Imported)
	require.Equal(t, 2, report.Skipped)
}

func (s *NCMEngineTestSuite) TearDownSuite() {
	ctx := context.Background()
	if s.engine != nil {
		_ = s.engine.Close()
	}
	if s.redis != nil {
		if err := s.redis.Terminate(ctx); err != nil {
			s.T().Logf("Failed to terminate redis container: %v", err)
		}
	}
	if s.pg != nil {
		if err := s.pg.Terminate(ctx); err != nil {
			s.T().Logf("Failed to terminate postgres container: %v", err)
		}
	}
}

func (s *NCMEngineTestSuite) config(ctx context.Context) *config.Config {
	t := s.T()
	t.Setenv("REGISTRY_ENABLED", "false")
	t.Setenv("SEARCH_BACKEND", config.SearchBackendPostgres)

	cfg, err := config.Load()
	require.NoError(t, err)

	pgHost, err := s.pg.Host(ctx)
	require.NoError(t, err)
	pgPort, err := s.pg.MappedPort(ctx, "5432")
	require.NoError(t, err)
	cfg.Database.Host = pgHost
	cfg.Database.Port = pgPort.Int()
	cfg.Database.User = "test"
	cfg.Database.Password = "test"
	cfg.Database.Database = "comex_test"
	cfg.Database.SSLMode = "disable"

	redisHost, err := s.redis.Host(ctx)
	require.NoError(t, err)
	redisPort, err := s.redis.MappedPort(ctx, "6379")
	require.NoError(t, err)
	cfg.Redis.Host = redisHost
	cfg.Redis.Port = redisPort.Int()
	cfg.Redis.Enabled = true

	return cfg
}

func (s *NCMEngineTestSuite) seedAgencies(ctx context.Context, cfg *config.Config) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	db, err := sql.Open("postgres", dsn)
	require.NoError(s.T(), err)
	defer db.Close()

	_, err = db.ExecContext(ctx, `
		INSERT INTO anuentes (sigla, nome_completo, descricao, multa_minima, multa_maxima, tempo_liberacao_dias) VALUES
		('INMETRO', 'Instituto Nacional de Metrologia, Qualidade e Tecnologia', 'Certificação de produtos', 500, 50000, 15),
		('ANATEL', 'Agência Nacional de Telecomunicações', 'Homologação de produtos de telecomunicações', 1000, 100000, 30),
		('ANVISA', 'Agência Nacional de Vigilância Sanitária', 'Produtos sujeitos à vigilância sanitária', 2000, 1500000, 45)`)
	require.NoError(s.T(), err)
}

func codesOf(resp *entities.SearchResponse) []string {
	codes := make([]string, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		codes = append(codes, c.Code)
	}
	return codes
}

func (s *NCMEngineTestSuite) TestSearch_FindsExpectedCodes() {
	cases := []struct {
		query    string
		sector   entities.Sector
		expected string
	}{
		{"freios", entities.SectorAutoParts, "87083010"},
		{"fones de ouvido", entities.SectorElectronics, "85183000"},
		{"azeite de oliva", entities.SectorFood, "15092000"},
		{"cremes de beleza", entities.SectorGeneral, "33049910"},
	}

	for _, tc := range cases {
		s.Run(tc.query, func() {
			resp, err := s.engine.Service.Search(context.Background(), tc.query, tc.sector, 5)
			s.Require().NoError(err)
			s.Contains(codesOf(resp), tc.expected)
			s.False(resp.Degraded)
		})
	}
}

func (s *NCMEngineTestSuite) TestSearch_SectorFilterExcludesOtherSectors() {
	resp, err := s.engine.Service.Search(context.Background(), "partes", entities.SectorElectronics, 10)
	s.Require().NoError(err)
	for _, c := range resp.Candidates {
		s.NotEqual(entities.SectorAutoParts, c.Sector)
	}
}

func (s *NCMEngineTestSuite) TestSearch_ShortQueryIsEmpty() {
	resp, err := s.engine.Service.Search(context.Background(), "a", entities.SectorGeneral, 10)
	s.Require().NoError(err)
	s.Empty(resp.Candidates)
}

func (s *NCMEngineTestSuite) TestResolveDetails_IncludesAgencies() {
	ctx := context.Background()

	details, err := s.engine.Service.ResolveDetails(ctx, "8708.30.10")
	s.Require().NoError(err)
	s.Require().NotNil(details)
	s.Equal("87083010", details.Code)
	s.Equal(entities.SectorAutoParts, details.Sector)
	s.Require().Len(details.AgencyDetails, 1)
	s.Equal("INMETRO", details.AgencyDetails[0].Code)
	s.Equal(15, details.AgencyDetails[0].ClearanceDays)

	// second read is served from redis
	again, err := s.engine.Service.Resolve(ctx, "87083010")
	s.Require().NoError(err)
	s.Equal(details.Description, again.Description)
	keys, err := s.engine.Redis.Client().Keys(ctx, "comex:*").Result()
	s.Require().NoError(err)
	s.NotEmpty(keys)
}

func (s *NCMEngineTestSuite) TestResolve_UnknownCodeIsNil() {
	tc, err := s.engine.Service.Resolve(context.Background(), "01019000")
	s.Require().NoError(err)
	s.Nil(tc)
}

func (s *NCMEngineTestSuite) TestValidate_SuggestsChapterNeighbours() {
	result, err := s.engine.Service.Validate(context.Background(), "87083099")
	s.Require().NoError(err)
	s.False(result.Exists)
	s.False(result.Valid)

	codes := []string{}
	for _, c := range result.Suggestions {
		codes = append(codes, c.Code)
	}
	s.Contains(codes, "87083010")
	s.Contains(codes, "87089990")
}

func (s *NCMEngineTestSuite) TestBySectorAndStats() {
	ctx := context.Background()

	codes, err := s.engine.Service.BySector(ctx, entities.SectorAutoParts, 20)
	s.Require().NoError(err)
	s.Len(codes, 3)

	stats, err := s.engine.Service.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(7, stats.Total)
	s.Equal(3, stats.BySector[entities.SectorAutoParts])
	s.Equal(4, stats.WithAgencies)
	s.NotNil(stats.LastUpdated)
}

func (s *NCMEngineTestSuite) TestClassifyItems_PreservesOrder() {
	items := []entities.LineItem{
		{Description: "fones de ouvido", Sector: "Eletronicos"},
		{Description: "freios", Sector: "Autopecas", SuggestedCode: "87083010"},
	}

	out, err := s.engine.Service.ClassifyItems(context.Background(), items)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	assert.Equal(s.T(), 0, out[0].Index)
	assert.Equal(s.T(), 1, out[1].Index)
	s.Require().NotNil(out[1].Suggested)
	s.True(out[1].Suggested.Exists)
}
