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
	Env  string
	Port int

	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Auth     AuthConfig

	Reconcile    ReconcileConfig
	Purge        PurgeConfig
	Notification NotificationConfig
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

type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig guards the administrative trigger endpoints.
type AuthConfig struct {
	JWTSecret string
}

// ReconcileConfig tunes the deadline sweeps and the flag reconciliation
// pass.
type ReconcileConfig struct {
	CronSpec           string
	FlagCronSpec       string
	TimezoneOffsetMins int
	LookbackHours      int
	RunOnStartup       bool
	StepCacheTTL       time.Duration
}

// PurgeConfig tunes the retention sweep.
type PurgeConfig struct {
	CronSpec      string
	RetentionDays int
	RunOnStartup  bool
}

// NotificationConfig sizes the dispatch worker pool.
type NotificationConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
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

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Auth = AuthConfig{
		JWTSecret: v.GetString("JWT_SECRET"),
	}

	cfg.Reconcile = ReconcileConfig{
		CronSpec:           v.GetString("RECONCILE_CRON"),
		FlagCronSpec:       v.GetString("FLAG_RECONCILE_CRON"),
		TimezoneOffsetMins: v.GetInt("REFERENCE_TZ_OFFSET_MINUTES"),
		LookbackHours:      v.GetInt("SWEEP_LOOKBACK_HOURS"),
		RunOnStartup:       v.GetBool("RUN_ON_STARTUP"),
		StepCacheTTL:       parseDuration(v.GetString("STEP_CACHE_TTL"), time.Hour),
	}

	cfg.Purge = PurgeConfig{
		CronSpec:      v.GetString("PURGE_CRON"),
		RetentionDays: v.GetInt("PURGE_RETENTION_DAYS"),
		RunOnStartup:  v.GetBool("PURGE_RUN_ON_STARTUP"),
	}

	cfg.Notification = NotificationConfig{
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		MaxRetries: v.GetInt("NOTIFY_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8081)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "cslogbook")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("RECONCILE_CRON", "*/10 * * * *")
	v.SetDefault("FLAG_RECONCILE_CRON", "0 * * * *")
	// Reference zone is UTC+07:00.
	v.SetDefault("REFERENCE_TZ_OFFSET_MINUTES", 420)
	v.SetDefault("SWEEP_LOOKBACK_HOURS", 24)
	v.SetDefault("RUN_ON_STARTUP", false)
	v.SetDefault("STEP_CACHE_TTL", "1h")

	v.SetDefault("PURGE_CRON", "0 3 * * *")
	v.SetDefault("PURGE_RETENTION_DAYS", 30)
	v.SetDefault("PURGE_RUN_ON_STARTUP", false)

	v.SetDefault("NOTIFY_WORKERS", 1)
	v.SetDefault("NOTIFY_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "1s")
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
