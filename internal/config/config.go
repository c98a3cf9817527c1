// Package config loads the proxy settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SinkModeDelegated = "delegated"
	SinkModeService   = "service"

	UsageLogDB     = "db"
	UsageLogMongo  = "mongo"
	UsageLogSheets = "sheets"
)

type Config struct {
	ListenAddr string `mapstructure:"LISTEN_ADDR"`

	DBDriver string `mapstructure:"DB_DRIVER"`
	DBDSN    string `mapstructure:"DB_DSN"`

	// SinkMode selects how chat messages are authenticated against the document store:
	// "delegated" forwards the caller's token, "service" uses SinkCredentialsFile.
	SinkMode            string `mapstructure:"SINK_MODE"`
	SinkBaseURL         string `mapstructure:"SINK_BASE_URL"`
	SinkGCPProject      string `mapstructure:"SINK_GCP_PROJECT"`
	SinkCredentialsFile string `mapstructure:"SINK_CREDENTIALS_FILE"`

	UsageLogBackend string `mapstructure:"USAGE_LOG_BACKEND"`

	MongoURI        string `mapstructure:"MONGO_URI"`
	MongoDatabase   string `mapstructure:"MONGO_DATABASE"`
	MongoCollection string `mapstructure:"MONGO_COLLECTION"`

	SheetsCredentialsFile string `mapstructure:"SHEETS_CREDENTIALS_FILE"`
	SheetsSpreadsheetID   string `mapstructure:"SHEETS_SPREADSHEET_ID"`
	SheetsSheetName       string `mapstructure:"SHEETS_SHEET_NAME"`

	// AdminJWTSecret enables bearer-token protection of the admin endpoints when non-empty.
	AdminJWTSecret    string `mapstructure:"ADMIN_JWT_SECRET"`
	AdminUsername     string `mapstructure:"ADMIN_USERNAME"`
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`
	AdminTokenTTL     string `mapstructure:"ADMIN_TOKEN_TTL"`

	// RejectNonPositiveCredits turns on the amount guard for add-credits. Off by default for
	// compatibility with clients that send corrections as negative amounts.
	RejectNonPositiveCredits bool `mapstructure:"REJECT_NON_POSITIVE_CREDITS"`

	SeedLicenseKey     string `mapstructure:"SEED_LICENSE_KEY"`
	SeedLicenseCredits int64  `mapstructure:"SEED_LICENSE_CREDITS"`
}

// Load reads .env (if present), then the environment, and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LISTEN_ADDR", ":3000")
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_DSN", "data/license.db")
	v.SetDefault("SINK_MODE", SinkModeDelegated)
	v.SetDefault("SINK_BASE_URL", "https://firestore.googleapis.com")
	v.SetDefault("SINK_GCP_PROJECT", "gpt-engineer-390607")
	v.SetDefault("SINK_CREDENTIALS_FILE", "")
	v.SetDefault("USAGE_LOG_BACKEND", UsageLogDB)
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "relay")
	v.SetDefault("MONGO_COLLECTION", "usage_logs")
	v.SetDefault("SHEETS_CREDENTIALS_FILE", "")
	v.SetDefault("SHEETS_SPREADSHEET_ID", "")
	v.SetDefault("SHEETS_SHEET_NAME", "usage")
	v.SetDefault("ADMIN_JWT_SECRET", "")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")
	v.SetDefault("ADMIN_TOKEN_TTL", "24h")
	v.SetDefault("REJECT_NON_POSITIVE_CREDITS", false)
	v.SetDefault("SEED_LICENSE_KEY", "")
	v.SetDefault("SEED_LICENSE_CREDITS", 0)
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("config: LISTEN_ADDR must be set")
	}

	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return errors.New("config: DB_DSN must be set")
	}

	switch c.SinkMode {
	case SinkModeDelegated:
	case SinkModeService:
		if c.SinkCredentialsFile == "" {
			return errors.New("config: SINK_CREDENTIALS_FILE is required when SINK_MODE=service")
		}
	default:
		return fmt.Errorf("config: unknown SINK_MODE %q", c.SinkMode)
	}
	if c.SinkGCPProject == "" {
		return errors.New("config: SINK_GCP_PROJECT must be set")
	}

	switch c.UsageLogBackend {
	case UsageLogDB:
	case UsageLogMongo:
		if c.MongoURI == "" {
			return errors.New("config: MONGO_URI is required when USAGE_LOG_BACKEND=mongo")
		}
	case UsageLogSheets:
		if c.SheetsSpreadsheetID == "" || c.SheetsCredentialsFile == "" {
			return errors.New("config: SHEETS_SPREADSHEET_ID and SHEETS_CREDENTIALS_FILE are required when USAGE_LOG_BACKEND=sheets")
		}
	default:
		return fmt.Errorf("config: unknown USAGE_LOG_BACKEND %q", c.UsageLogBackend)
	}

	return nil
}

// TokenTTL parses AdminTokenTTL. Returns 24h if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.AdminTokenTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// AdminAuthEnabled reports whether admin endpoints require a bearer token.
func (c *Config) AdminAuthEnabled() bool {
	return c.AdminJWTSecret != ""
}
