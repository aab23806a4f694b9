package config

import (
	"fmt"
	"log"
	"time"
	_ "time/tzdata" // INGEST_TIMEZONE on hosts without a zoneinfo database

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system,
// such as server settings, Postgres connection details, the optional Redis cache and the
// bulletin ingestion pipeline.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=postgres
//	POSTGRES_PASSWORD=secret
//	POSTGRES_DB=spimexpulse
//	POSTGRES_SSLMODE=disable
//	REDIS_ADDR=localhost:6379
//	BULLETIN_URL_TEMPLATE=https://spimex.com/upload/reports/oil_xls/oil_xls_{date}162000.xls
//	INGEST_TIMEZONE=Europe/Moscow
type Config struct {
	Server    ServerConfig    // HTTP server configuration
	Postgres  PostgresConfig  // PostgreSQL connection settings
	Redis     RedisConfig     // Redis read cache (optional)
	Bulletin  BulletinConfig  // Remote bulletin download settings
	Ingestion IngestionConfig // Ingestion run settings
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// RedisConfig configures the read-through cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// BulletinConfig configures how daily bulletins are downloaded.
//
// URLTemplate must contain the "{date}" placeholder, replaced by the trade date in YYYYMMDD form.
type BulletinConfig struct {
	URLTemplate   string
	Timeout       time.Duration
	MaxParallel   int
	MaxRetries    int
	RetryInterval time.Duration
	TempDir       string
}

// IngestionConfig configures ingestion runs.
type IngestionConfig struct {
	Timezone      string        // IANA zone used to decide what "today" is
	MaxWindowDays int           // upper bound for [target_date, today]
	Timeout       time.Duration // deadline for a whole ingestion run
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing or a value cannot be used, validateConfig()
//     will terminate the app with a descriptive log message.
func LoadConfig() {
	// Default values
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "spimexpulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_TTL", 24*time.Hour)

	viper.SetDefault("BULLETIN_URL_TEMPLATE", "https://spimex.com/upload/reports/oil_xls/oil_xls_{date}162000.xls")
	viper.SetDefault("BULLETIN_TIMEOUT", 30*time.Second)
	viper.SetDefault("BULLETIN_MAX_PARALLEL", 4)
	viper.SetDefault("BULLETIN_MAX_RETRIES", 3)
	viper.SetDefault("BULLETIN_RETRY_INTERVAL", 500*time.Millisecond)
	viper.SetDefault("BULLETIN_TEMP_DIR", "")

	viper.SetDefault("INGEST_TIMEZONE", "Europe/Moscow")
	viper.SetDefault("INGEST_MAX_WINDOW_DAYS", 366)
	viper.SetDefault("INGEST_TIMEOUT", 5*time.Minute)

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically
	viper.AutomaticEnv()

	// Populate global config instance
	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			TTL:      viper.GetDuration("REDIS_TTL"),
		},
		Bulletin: BulletinConfig{
			URLTemplate:   viper.GetString("BULLETIN_URL_TEMPLATE"),
			Timeout:       viper.GetDuration("BULLETIN_TIMEOUT"),
			MaxParallel:   viper.GetInt("BULLETIN_MAX_PARALLEL"),
			MaxRetries:    viper.GetInt("BULLETIN_MAX_RETRIES"),
			RetryInterval: viper.GetDuration("BULLETIN_RETRY_INTERVAL"),
			TempDir:       viper.GetString("BULLETIN_TEMP_DIR"),
		},
		Ingestion: IngestionConfig{
			Timezone:      viper.GetString("INGEST_TIMEZONE"),
			MaxWindowDays: viper.GetInt("INGEST_MAX_WINDOW_DAYS"),
			Timeout:       viper.GetDuration("INGEST_TIMEOUT"),
		},
	}

	// Construct Postgres DSN (used by database/sql)
	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	// Validate critical fields
	validateConfig()
}

// Location resolves the configured ingestion timezone. LoadConfig rejects unknown zones,
// so the UTC fallback only applies to configs built by hand.
func (c IngestionConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// validateConfig ensures required variables are present and usable and terminates
// the application otherwise.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.Bulletin.URLTemplate == "" {
		missing = append(missing, "BULLETIN_URL_TEMPLATE")
	}

	if len(missing) > 0 {
		log.Fatalf("❌ Missing required environment variables: %v\n", missing)
	}
	if invalid := invalidSettings(AppConfig); len(invalid) > 0 {
		log.Fatalf("❌ Invalid environment variables: %v\n", invalid)
	}
}

// invalidSettings lists the set variables whose values cannot be used.
func invalidSettings(cfg Config) []string {
	var invalid []string
	if tz := cfg.Ingestion.Timezone; tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			invalid = append(invalid, fmt.Sprintf("INGEST_TIMEZONE=%q: %v", tz, err))
		}
	}
	return invalid
}
