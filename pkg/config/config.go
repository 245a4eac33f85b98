package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Search backends understood by SEARCH_BACKEND
const (
	SearchBackendPostgres  = "postgres"
	SearchBackendTypesense = "typesense"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	Registry  RegistryConfig
	Search    SearchConfig
	Storage   StorageConfig
	OTEL      OTELConfig
	Log       LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host       string
	Port       int
	Password   string
	DB         int
	Enabled    bool
	CodeTTLSec int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// RegistryConfig holds configuration for the external NCM registry (Siscomex)
type RegistryConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Enabled   bool
	UserAgent string
}

// SearchConfig holds the tunable ranking and confidence constants
type SearchConfig struct {
	Backend                string
	SectorBoost            float64
	SpecificBoost          float64
	SubheadingBoost        float64
	GenericBoost           float64
	ScoreScale             float64
	LowConfidenceThreshold float64
	MinResults             int
	ProtectedTopK          int
	DefaultLimit           int
	MaxLimit               int
	MaxExpansionTerms      int
	DictionaryPath         string
	ClassifyConcurrency    int
}

// StorageConfig holds object storage settings used by the reference dataset importer
type StorageConfig struct {
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// LogConfig holds logger configuration
type LogConfig struct {
	Env   string
	Level string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real env vars win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "truenorth"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnvAsInt("REDIS_PORT", 6379),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			Enabled:    getEnvAsBool("REDIS_ENABLED", true),
			CodeTTLSec: getEnvAsInt("REDIS_NCM_TTL_SECONDS", 3600),
		},
		Typesense: TypesenseConfig{
			URL:        getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:     getEnv("TYPESENSE_API_KEY", "xyz"),
			Collection: getEnv("TYPESENSE_COLLECTION", "ncm_codes"),
		},
		Registry: RegistryConfig{
			BaseURL:   getEnv("REGISTRY_BASE_URL", "https://portalunico.siscomex.gov.br"),
			Timeout:   time.Duration(getEnvAsInt("REGISTRY_TIMEOUT_SECONDS", 5)) * time.Second,
			Enabled:   getEnvAsBool("REGISTRY_ENABLED", true),
			UserAgent: getEnv("REGISTRY_USER_AGENT", "TrueNorth-API/1.0"),
		},
		Search: SearchConfig{
			Backend:                getEnv("SEARCH_BACKEND", SearchBackendPostgres),
			SectorBoost:            getEnvAsFloat("SEARCH_SECTOR_BOOST", 3.0),
			SpecificBoost:          getEnvAsFloat("SEARCH_SPECIFIC_BOOST", 2.0),
			SubheadingBoost:        getEnvAsFloat("SEARCH_SUBHEADING_BOOST", 1.5),
			GenericBoost:           getEnvAsFloat("SEARCH_GENERIC_BOOST", 1.0),
			ScoreScale:             getEnvAsFloat("SEARCH_SCORE_SCALE", 100),
			LowConfidenceThreshold: getEnvAsFloat("SEARCH_LOW_CONFIDENCE_THRESHOLD", 3.0),
			MinResults:             getEnvAsInt("SEARCH_MIN_RESULTS", 3),
			ProtectedTopK:          getEnvAsInt("SEARCH_PROTECTED_TOP_K", 5),
			DefaultLimit:           getEnvAsInt("SEARCH_DEFAULT_LIMIT", 50),
			MaxLimit:               getEnvAsInt("SEARCH_MAX_LIMIT", 200),
			MaxExpansionTerms:      getEnvAsInt("SEARCH_MAX_EXPANSION_TERMS", 20),
			DictionaryPath:         getEnv("NCM_DICTIONARY_PATH", ""),
			ClassifyConcurrency:    getEnvAsInt("SEARCH_CLASSIFY_CONCURRENCY", 4),
		},
		Storage: StorageConfig{
			S3Region:    getEnv("STORAGE_S3_REGION", "us-east-1"),
			S3Endpoint:  getEnv("STORAGE_S3_ENDPOINT", ""),
			S3AccessKey: getEnv("STORAGE_S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("STORAGE_S3_SECRET_KEY", ""),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "ncm-engine"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Log: LogConfig{
			Env:   getEnv("APP_ENV", "development"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the engine misbehave silently
func (c *Config) Validate() error {
	switch c.Search.Backend {
	case SearchBackendPostgres, SearchBackendTypesense:
	default:
		return fmt.Errorf("invalid SEARCH_BACKEND %q (must be %s or %s)", c.Search.Backend, SearchBackendPostgres, SearchBackendTypesense)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("invalid search limits: default=%d max=%d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Search.SectorBoost < 1 {
		return fmt.Errorf("SEARCH_SECTOR_BOOST must be >= 1, got %v", c.Search.SectorBoost)
	}
	if c.Search.GenericBoost <= 0 || c.Search.SubheadingBoost < c.Search.GenericBoost || c.Search.SpecificBoost < c.Search.SubheadingBoost {
		return fmt.Errorf("specificity boosts must satisfy 0 < generic <= subheading <= specific")
	}
	if c.Registry.Timeout <= 0 {
		return fmt.Errorf("REGISTRY_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
