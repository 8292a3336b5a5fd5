package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Supported table source drivers.
const (
	SourceSheets   = "sheets"
	SourceXLSX     = "xlsx"
	SourcePostgres = "postgres"
	SourceCSV      = "csv"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Source     SourceConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	TableCache TableCacheConfig
	Refresh    RefreshConfig
	RateLimit  RateLimitConfig
	Aggregates AggregatesConfig
	CORS       CORSConfig
	Log        LogConfig
}

// SourceConfig selects and configures the external table source.
type SourceConfig struct {
	Driver   string
	Sheets   SheetsConfig
	XLSXPath string
	CSVDir   string

	FetchTimeout   time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// SheetsConfig points at the Google Sheets values API.
type SheetsConfig struct {
	BaseURL       string
	SpreadsheetID string
	APIKey        string
	RequestsPerS  float64
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	Schema       string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TableCacheConfig governs the last-known-good copy of fetched tables.
type TableCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// RefreshConfig controls snapshot rebuilds.
type RefreshConfig struct {
	Interval   time.Duration
	Timeout    time.Duration
	APIEnabled bool
	MaxRetries int
	RetryDelay time.Duration
}

// RateLimitConfig bounds public query traffic per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// AggregatesConfig describes the fixed historical window the charts cover.
type AggregatesConfig struct {
	Window string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	maxAttempts := v.GetInt("FETCH_MAX_ATTEMPTS")
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	cfg.Source = SourceConfig{
		Driver: strings.ToLower(strings.TrimSpace(v.GetString("TABLE_SOURCE"))),
		Sheets: SheetsConfig{
			BaseURL:       v.GetString("SHEETS_BASE_URL"),
			SpreadsheetID: v.GetString("SHEETS_SPREADSHEET_ID"),
			APIKey:        v.GetString("SHEETS_API_KEY"),
			RequestsPerS:  v.GetFloat64("SHEETS_REQUESTS_PER_SECOND"),
		},
		XLSXPath:       v.GetString("XLSX_PATH"),
		CSVDir:         v.GetString("CSV_DIR"),
		FetchTimeout:   parseDuration(v.GetString("FETCH_TIMEOUT"), 15*time.Second),
		MaxAttempts:    maxAttempts,
		RetryBaseDelay: parseDuration(v.GetString("FETCH_RETRY_BASE_DELAY"), 500*time.Millisecond),
		RetryMaxDelay:  parseDuration(v.GetString("FETCH_RETRY_MAX_DELAY"), 10*time.Second),
	}

	switch cfg.Source.Driver {
	case SourceSheets, SourceXLSX, SourcePostgres, SourceCSV:
	default:
		return nil, errors.New("TABLE_SOURCE must be one of sheets, xlsx, postgres, csv")
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		Schema:       v.GetString("DB_SCHEMA"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.TableCache = TableCacheConfig{
		Enabled: v.GetBool("ENABLE_TABLE_CACHE"),
		TTL:     parseDuration(v.GetString("TABLE_CACHE_TTL"), 7*24*time.Hour),
		Prefix:  v.GetString("TABLE_CACHE_PREFIX"),
	}

	cfg.Refresh = RefreshConfig{
		Interval:   parseDuration(v.GetString("REFRESH_INTERVAL"), 0),
		Timeout:    parseDuration(v.GetString("REFRESH_TIMEOUT"), 2*time.Minute),
		APIEnabled: v.GetBool("ENABLE_REFRESH_API"),
		MaxRetries: v.GetInt("REFRESH_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("REFRESH_RETRY_DELAY"), 30*time.Second),
	}

	cfg.RateLimit = RateLimitConfig{
		RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
		Burst:             v.GetInt("RATE_LIMIT_BURST"),
	}

	cfg.Aggregates = AggregatesConfig{Window: v.GetString("AGGREGATE_WINDOW")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("TABLE_SOURCE", SourceSheets)
	v.SetDefault("SHEETS_BASE_URL", "https://sheets.googleapis.com/v4/spreadsheets")
	v.SetDefault("SHEETS_SPREADSHEET_ID", "")
	v.SetDefault("SHEETS_API_KEY", "")
	v.SetDefault("SHEETS_REQUESTS_PER_SECOND", 1.0)
	v.SetDefault("XLSX_PATH", "./data/emr_database.xlsx")
	v.SetDefault("CSV_DIR", "./data")
	v.SetDefault("FETCH_TIMEOUT", "15s")
	v.SetDefault("FETCH_MAX_ATTEMPTS", 4)
	v.SetDefault("FETCH_RETRY_BASE_DELAY", "500ms")
	v.SetDefault("FETCH_RETRY_MAX_DELAY", "10s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "emr_database")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENABLE_TABLE_CACHE", false)
	v.SetDefault("TABLE_CACHE_TTL", "168h")
	v.SetDefault("TABLE_CACHE_PREFIX", "emr:table")

	v.SetDefault("REFRESH_INTERVAL", "0")
	v.SetDefault("REFRESH_TIMEOUT", "2m")
	v.SetDefault("ENABLE_REFRESH_API", false)
	v.SetDefault("REFRESH_MAX_RETRIES", 3)
	v.SetDefault("REFRESH_RETRY_DELAY", "30s")

	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("AGGREGATE_WINDOW", "2010-2019")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
