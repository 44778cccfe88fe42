package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Hierarchy    HierarchyConfig
	Submissions  SubmissionsConfig
	Consolidator ConsolidatorConfig
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
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// HierarchyConfig tunes the cached option lists backing the cascading selects.
type HierarchyConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SubmissionsConfig controls student submission storage and validation.
type SubmissionsConfig struct {
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// ConsolidatorConfig governs the project consolidation endpoints and the
// batch job workers.
type ConsolidatorConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	MaxUploadBytes    int64
	MaxBatchBytes     int64
	WorkerConcurrency int
	WorkerRetries     int
	CleanupInterval   time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Hierarchy = HierarchyConfig{
		CacheEnabled: v.GetBool("HIERARCHY_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("HIERARCHY_CACHE_TTL"), 5*time.Minute),
	}

	maxSubmissionSize := v.GetInt64("SUBMISSIONS_MAX_FILE_SIZE")
	if maxSubmissionSize <= 0 {
		maxSubmissionSize = 100 * 1024 * 1024
	}
	cfg.Submissions = SubmissionsConfig{
		StorageDir:       v.GetString("SUBMISSIONS_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("SUBMISSIONS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("SUBMISSIONS_SIGNED_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxSubmissionSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("SUBMISSIONS_ALLOWED_MIME_TYPES")),
	}

	maxUpload := v.GetInt64("CONSOLIDATOR_MAX_UPLOAD_SIZE")
	if maxUpload <= 0 {
		maxUpload = 100 * 1024 * 1024
	}
	maxBatch := v.GetInt64("CONSOLIDATOR_MAX_BATCH_SIZE")
	if maxBatch <= 0 {
		maxBatch = 500 * 1024 * 1024
	}
	cfg.Consolidator = ConsolidatorConfig{
		StorageDir:        v.GetString("CONSOLIDATOR_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("CONSOLIDATOR_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("CONSOLIDATOR_SIGNED_URL_TTL"), 24*time.Hour),
		MaxUploadBytes:    maxUpload,
		MaxBatchBytes:     maxBatch,
		WorkerConcurrency: v.GetInt("CONSOLIDATOR_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("CONSOLIDATOR_WORKER_RETRIES"),
		CleanupInterval:   parseDuration(v.GetString("CONSOLIDATOR_CLEANUP_INTERVAL"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5000)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "correccion_automatica")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("HIERARCHY_CACHE_ENABLED", true)
	v.SetDefault("HIERARCHY_CACHE_TTL", "5m")

	v.SetDefault("SUBMISSIONS_STORAGE_DIR", "./submissions")
	v.SetDefault("SUBMISSIONS_SIGNED_URL_SECRET", "dev_submissions_secret")
	v.SetDefault("SUBMISSIONS_SIGNED_URL_TTL", "30m")
	v.SetDefault("SUBMISSIONS_MAX_FILE_SIZE", 100*1024*1024)
	v.SetDefault("SUBMISSIONS_ALLOWED_MIME_TYPES", "application/zip,application/x-zip-compressed,application/pdf,text/plain")

	v.SetDefault("CONSOLIDATOR_STORAGE_DIR", "./consolidations")
	v.SetDefault("CONSOLIDATOR_SIGNED_URL_SECRET", "dev_consolidator_secret")
	v.SetDefault("CONSOLIDATOR_SIGNED_URL_TTL", "24h")
	v.SetDefault("CONSOLIDATOR_MAX_UPLOAD_SIZE", 100*1024*1024)
	v.SetDefault("CONSOLIDATOR_MAX_BATCH_SIZE", 500*1024*1024)
	v.SetDefault("CONSOLIDATOR_WORKER_CONCURRENCY", 2)
	v.SetDefault("CONSOLIDATOR_WORKER_RETRIES", 1)
	v.SetDefault("CONSOLIDATOR_CLEANUP_INTERVAL", "1h")
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
