package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Backend modes select the collaborator adapter used by the gateway.
const (
	BackendModeHTTP     = "http"
	BackendModePostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Backend      BackendConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	ProfileCache ProfileCacheConfig
	Window       WindowConfig
	Calendar     CalendarConfig
	RateLimit    RateLimitConfig
	Withdrawals  WithdrawalConfig
	Workspace    WorkspaceConfig
	Expiry       ExpiryConfig
}

// BackendConfig points the gateway at the storage-owning backend.
type BackendConfig struct {
	Mode    string
	BaseURL string
	Timeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ProfileCacheConfig governs the Redis-backed staff profile cache.
type ProfileCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// WindowConfig bounds the selectable calendar range in months around today.
type WindowConfig struct {
	LookbackMonths  int
	LookaheadMonths int
}

// CalendarConfig tunes chunked schedule loading.
type CalendarConfig struct {
	ChunkDays   int
	MaxParallel int
	// MaxChunks caps one load; zero derives the cap from a year of ChunkDays.
	MaxChunks          int
	DeterministicMerge bool
}

// RateLimitConfig throttles mutating endpoints per staff member.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// WithdrawalConfig bounds how far from today a withdrawal may target.
type WithdrawalConfig struct {
	Window time.Duration
}

// WorkspaceConfig controls eviction of idle per-user state.
type WorkspaceConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// ExpiryConfig controls the background expiry of stale pending requests.
type ExpiryConfig struct {
	Enabled  bool
	AgeDays  int
	Interval time.Duration
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Backend = BackendConfig{
		Mode:    strings.ToLower(v.GetString("BACKEND_MODE")),
		BaseURL: strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("BACKEND_TIMEOUT"), 10*time.Second),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		TokenTTL: parseDuration(v.GetString("JWT_TOKEN_TTL"), 8*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.ProfileCache = ProfileCacheConfig{
		Enabled: v.GetBool("ENABLE_PROFILE_CACHE"),
		TTL:     parseDuration(v.GetString("PROFILE_CACHE_TTL"), 12*time.Hour),
	}

	cfg.Window = WindowConfig{
		LookbackMonths:  positiveOr(v.GetInt("WFH_LOOKBACK_MONTHS"), 2),
		LookaheadMonths: positiveOr(v.GetInt("WFH_LOOKAHEAD_MONTHS"), 3),
	}

	cfg.Calendar = CalendarConfig{
		ChunkDays:          positiveOr(v.GetInt("CALENDAR_CHUNK_DAYS"), 31),
		MaxParallel:        positiveOr(v.GetInt("CALENDAR_MAX_PARALLEL"), 4),
		MaxChunks:          positiveOr(v.GetInt("CALENDAR_MAX_CHUNKS"), 0),
		DeterministicMerge: v.GetBool("CALENDAR_DETERMINISTIC_MERGE"),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled: v.GetBool("ENABLE_RATE_LIMIT"),
		RPS:     v.GetFloat64("RATE_LIMIT_RPS"),
		Burst:   positiveOr(v.GetInt("RATE_LIMIT_BURST"), 5),
	}

	cfg.Withdrawals = WithdrawalConfig{
		Window: parseDuration(v.GetString("WITHDRAWAL_WINDOW"), 14*24*time.Hour),
	}

	cfg.Workspace = WorkspaceConfig{
		IdleTTL:       parseDuration(v.GetString("WORKSPACE_IDLE_TTL"), 2*time.Hour),
		SweepInterval: parseDuration(v.GetString("WORKSPACE_SWEEP_INTERVAL"), 10*time.Minute),
	}

	cfg.Expiry = ExpiryConfig{
		Enabled:  v.GetBool("ENABLE_REQUEST_EXPIRY"),
		AgeDays:  positiveOr(v.GetInt("REQUEST_EXPIRY_AGE_DAYS"), 60),
		Interval: parseDuration(v.GetString("REQUEST_EXPIRY_INTERVAL"), 24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("BACKEND_MODE", BackendModeHTTP)
	v.SetDefault("BACKEND_BASE_URL", "http://localhost:5000")
	v.SetDefault("BACKEND_TIMEOUT", "10s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "wfh_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "wfh-portal")
	v.SetDefault("JWT_TOKEN_TTL", "8h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_PROFILE_CACHE", false)
	v.SetDefault("PROFILE_CACHE_TTL", "12h")

	v.SetDefault("WFH_LOOKBACK_MONTHS", 2)
	v.SetDefault("WFH_LOOKAHEAD_MONTHS", 3)

	v.SetDefault("CALENDAR_CHUNK_DAYS", 31)
	v.SetDefault("CALENDAR_MAX_PARALLEL", 4)
	v.SetDefault("CALENDAR_MAX_CHUNKS", 0)
	v.SetDefault("CALENDAR_DETERMINISTIC_MERGE", false)

	v.SetDefault("ENABLE_RATE_LIMIT", false)
	v.SetDefault("RATE_LIMIT_RPS", 2)
	v.SetDefault("RATE_LIMIT_BURST", 5)

	v.SetDefault("WITHDRAWAL_WINDOW", "336h")

	v.SetDefault("WORKSPACE_IDLE_TTL", "2h")
	v.SetDefault("WORKSPACE_SWEEP_INTERVAL", "10m")

	v.SetDefault("ENABLE_REQUEST_EXPIRY", true)
	v.SetDefault("REQUEST_EXPIRY_AGE_DAYS", 60)
	v.SetDefault("REQUEST_EXPIRY_INTERVAL", "24h")
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

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
