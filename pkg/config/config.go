package config

import (
	"errors"
	"fmt"
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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Timetable TimetableConfig
	Archive   ArchiveConfig
}

type DatabaseConfig struct {
	Enabled        bool
	MigrateOnStart bool
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// TimetableConfig governs the timetable engine endpoints.
type TimetableConfig struct {
	Enabled       bool
	RunTTL        time.Duration
	PeriodMinutes int
	SchoolDays    int
	CacheEnabled  bool
	CacheTTL      time.Duration
}

// ArchiveConfig governs PDF archiving of published timetables.
type ArchiveConfig struct {
	Enabled       bool
	Dir           string
	SigningSecret string
	LinkTTL       time.Duration
	Workers       int
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Enabled:        v.GetBool("DB_ENABLED"),
		MigrateOnStart: v.GetBool("DB_MIGRATE_ON_START"),
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("METRICS_ENABLED"),
	}

	periodMinutes := v.GetInt("TIMETABLE_PERIOD_MINUTES")
	if periodMinutes <= 0 {
		periodMinutes = 40
	}
	schoolDays := v.GetInt("TIMETABLE_SCHOOL_DAYS")
	if schoolDays != 6 {
		schoolDays = 5
	}
	cfg.Timetable = TimetableConfig{
		Enabled:       v.GetBool("ENABLE_TIMETABLE"),
		RunTTL:        parseDuration(v.GetString("TIMETABLE_RUN_TTL"), 30*time.Minute),
		PeriodMinutes: periodMinutes,
		SchoolDays:    schoolDays,
		CacheEnabled:  v.GetBool("TIMETABLE_CACHE_ENABLED"),
		CacheTTL:      parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), time.Hour),
	}

	cfg.Archive = ArchiveConfig{
		Enabled:       v.GetBool("ARCHIVE_ENABLED"),
		Dir:           v.GetString("ARCHIVE_DIR"),
		SigningSecret: v.GetString("ARCHIVE_SIGNING_SECRET"),
		LinkTTL:       parseDuration(v.GetString("ARCHIVE_LINK_TTL"), 24*time.Hour),
		Workers:       v.GetInt("ARCHIVE_WORKERS"),
	}

	return cfg, nil
}

// Validate checks settings that only make sense together.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("API_PREFIX %q must start with /", c.APIPrefix))
	}
	if c.Archive.Enabled {
		if !c.Database.Enabled {
			errs = append(errs, errors.New("ARCHIVE_ENABLED requires DB_ENABLED"))
		}
		if c.Archive.SigningSecret == "" {
			errs = append(errs, errors.New("ARCHIVE_SIGNING_SECRET is required when the archive is enabled"))
		}
		if c.Archive.LinkTTL <= 0 {
			errs = append(errs, errors.New("ARCHIVE_LINK_TTL must be positive"))
		}
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_MIGRATE_ON_START", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("METRICS_ENABLED", true)

	v.SetDefault("ENABLE_TIMETABLE", true)
	v.SetDefault("TIMETABLE_RUN_TTL", "30m")
	v.SetDefault("TIMETABLE_PERIOD_MINUTES", 40)
	v.SetDefault("TIMETABLE_SCHOOL_DAYS", 5)
	v.SetDefault("TIMETABLE_CACHE_ENABLED", false)
	v.SetDefault("TIMETABLE_CACHE_TTL", "1h")

	v.SetDefault("ARCHIVE_ENABLED", false)
	v.SetDefault("ARCHIVE_DIR", "./archive")
	v.SetDefault("ARCHIVE_SIGNING_SECRET", "")
	v.SetDefault("ARCHIVE_LINK_TTL", "24h")
	v.SetDefault("ARCHIVE_WORKERS", 2)
}

// isMissingFile reports the os-level error viper returns for an absent .env
// when SetConfigFile is used instead of a search path.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
