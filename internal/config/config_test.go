package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		ListenAddr:      ":3000",
		DBDriver:        DriverSQLite,
		DBDSN:           "data/license.db",
		SinkMode:        SinkModeDelegated,
		SinkGCPProject:  "proj",
		UsageLogBackend: UsageLogDB,
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, SinkModeDelegated, cfg.SinkMode)
	assert.Equal(t, "gpt-engineer-390607", cfg.SinkGCPProject)
	assert.Equal(t, UsageLogDB, cfg.UsageLogBackend)
	assert.False(t, cfg.RejectNonPositiveCredits)
	assert.False(t, cfg.AdminAuthEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":8080")
	t.Setenv("REJECT_NON_POSITIVE_CREDITS", "true")
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")
	t.Setenv("ADMIN_TOKEN_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.True(t, cfg.RejectNonPositiveCredits)
	assert.True(t, cfg.AdminAuthEnabled())
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown_driver", mutate: func(c *Config) { c.DBDriver = "mysql" }, wantErr: true},
		{name: "postgres", mutate: func(c *Config) { c.DBDriver = DriverPostgres }},
		{name: "service_without_credentials", mutate: func(c *Config) { c.SinkMode = SinkModeService }, wantErr: true},
		{name: "service_with_credentials", mutate: func(c *Config) {
			c.SinkMode = SinkModeService
			c.SinkCredentialsFile = "sa.json"
		}},
		{name: "unknown_sink_mode", mutate: func(c *Config) { c.SinkMode = "proxy" }, wantErr: true},
		{name: "mongo_without_uri", mutate: func(c *Config) { c.UsageLogBackend = UsageLogMongo }, wantErr: true},
		{name: "mongo_with_uri", mutate: func(c *Config) {
			c.UsageLogBackend = UsageLogMongo
			c.MongoURI = "mongodb://localhost:27017"
		}},
		{name: "sheets_without_id", mutate: func(c *Config) { c.UsageLogBackend = UsageLogSheets }, wantErr: true},
		{name: "unknown_usage_backend", mutate: func(c *Config) { c.UsageLogBackend = "kafka" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenTTLFallback(t *testing.T) {
	cfg := validConfig()
	cfg.AdminTokenTTL = "soon"
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
}
