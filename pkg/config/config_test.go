package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SearchBackendPostgres, cfg.Search.Backend)
	assert.Equal(t, 3.0, cfg.Search.SectorBoost)
	assert.Equal(t, 2.0, cfg.Search.SpecificBoost)
	assert.Equal(t, 1.5, cfg.Search.SubheadingBoost)
	assert.Equal(t, 1.0, cfg.Search.GenericBoost)
	assert.Equal(t, 3.0, cfg.Search.LowConfidenceThreshold)
	assert.Equal(t, 3, cfg.Search.MinResults)
	assert.Equal(t, 5, cfg.Search.ProtectedTopK)
	assert.Equal(t, 50, cfg.Search.DefaultLimit)
	assert.Equal(t, "https://portalunico.siscomex.gov.br", cfg.Registry.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, "ncm_codes", cfg.Typesense.Collection)
}

func TestLoad_SearchOverrides(t *testing.T) {
	t.Setenv("SEARCH_BACKEND", "typesense")
	t.Setenv("SEARCH_SECTOR_BOOST", "2.5")
	t.Setenv("SEARCH_LOW_CONFIDENCE_THRESHOLD", "7")
	t.Setenv("SEARCH_PROTECTED_TOP_K", "0")
	t.Setenv("REGISTRY_TIMEOUT_SECONDS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SearchBackendTypesense, cfg.Search.Backend)
	assert.Equal(t, 2.5, cfg.Search.SectorBoost)
	assert.Equal(t, 7.0, cfg.Search.LowConfidenceThreshold)
	assert.Equal(t, 0, cfg.Search.ProtectedTopK)
	assert.Equal(t, 2*time.Second, cfg.Registry.Timeout)
}

func TestLoad_InvalidValueFallsBackToDefault(t *testing.T) {
	t.Setenv("SEARCH_SECTOR_BOOST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.Search.SectorBoost)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("SEARCH_BACKEND", "elastic")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsInvertedSpecificityBoosts(t *testing.T) {
	t.Setenv("SEARCH_GENERIC_BOOST", "2.5")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "ncm", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=ncm sslmode=require", c.DatabaseDSN())
}
