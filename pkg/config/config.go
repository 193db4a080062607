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

	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Log      LogConfig
	Waitlist WaitlistConfig
	Planning PlanningConfig
	Deadline DeadlineConfig
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

// AuthConfig holds the token secret used to resolve the acting operator.
// Token issuance lives in the identity service, not here.
type AuthConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WaitlistConfig tunes the ranked waitlist read model.
type WaitlistConfig struct {
	CacheTTL            time.Duration
	DefaultDeadlineDays int
	MinimumAgeMonths    int
}

// PlanningConfig governs the annual transition planning session.
type PlanningConfig struct {
	DraftKeyPrefix string
	DraftTTL       time.Duration
	CutoffMonth    time.Month
	CutoffDay      int
}

// DeadlineConfig tunes the convocation deadline watcher.
type DeadlineConfig struct {
	TickInterval time.Duration
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

	cfg.Auth = AuthConfig{Secret: v.GetString("AUTH_TOKEN_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Waitlist = WaitlistConfig{
		CacheTTL:            parseDuration(v.GetString("WAITLIST_CACHE_TTL"), time.Minute),
		DefaultDeadlineDays: v.GetInt("CONVOCATION_DEADLINE_DAYS"),
		MinimumAgeMonths:    v.GetInt("MINIMUM_AGE_MONTHS"),
	}

	cfg.Planning = PlanningConfig{
		DraftKeyPrefix: v.GetString("PLANNING_DRAFT_KEY_PREFIX"),
		DraftTTL:       parseDuration(v.GetString("PLANNING_DRAFT_TTL"), 30*24*time.Hour),
		CutoffMonth:    time.Month(v.GetInt("COHORT_CUTOFF_MONTH")),
		CutoffDay:      v.GetInt("COHORT_CUTOFF_DAY"),
	}

	cfg.Deadline = DeadlineConfig{
		TickInterval: parseDuration(v.GetString("DEADLINE_TICK_INTERVAL"), time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "creche")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("WAITLIST_CACHE_TTL", "1m")
	v.SetDefault("CONVOCATION_DEADLINE_DAYS", 7)
	v.SetDefault("MINIMUM_AGE_MONTHS", 6)

	v.SetDefault("PLANNING_DRAFT_KEY_PREFIX", "planning:draft")
	v.SetDefault("PLANNING_DRAFT_TTL", "720h")
	v.SetDefault("COHORT_CUTOFF_MONTH", 3)
	v.SetDefault("COHORT_CUTOFF_DAY", 31)

	v.SetDefault("DEADLINE_TICK_INTERVAL", "1s")
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
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
