package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "test-app",
			Mode:     "development",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Driver:         "sqlite",
			Path:           "test.db",
			MaxConnections: 5,
		},
		Models: ModelsConfig{
			Store:            "file",
			Dir:              "models",
			KmerSize:         4,
			SusceptibleLabel: 1,
		},
		Scoring: ScoringConfig{
			FallbackMin:  40,
			FallbackMax:  95,
			MDRThreshold: 40,
			MDRMinCount:  3,
			TopN:         3,
			MaxGenes:     2,
		},
		API: APIConfig{
			Port:           8000,
			MaxUploadBytes: 1 << 20,
			DefaultLimit:   25,
			MaxLimit:       200,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectErr   bool
		errContains string
	}{
		{
			name:       "valid config",
			modifyFunc: func(c *Config) {},
		},
		{
			name:        "unknown driver",
			modifyFunc:  func(c *Config) { c.Database.Driver = "mysql" },
			expectErr:   true,
			errContains: "database.driver must be one of",
		},
		{
			name: "postgres without host",
			modifyFunc: func(c *Config) {
				c.Database.Driver = "postgres"
				c.Database.Port = 5432
				c.Database.Name = "db"
			},
			expectErr:   true,
			errContains: "database.host is required",
		},
		{
			name:        "redis store without addr",
			modifyFunc:  func(c *Config) { c.Models.Store = "redis" },
			expectErr:   true,
			errContains: "redis.addr is required",
		},
		{
			name:        "kmer size out of range",
			modifyFunc:  func(c *Config) { c.Models.KmerSize = 0 },
			expectErr:   true,
			errContains: "k must be between",
		},
		{
			name:        "inverted fallback range",
			modifyFunc:  func(c *Config) { c.Scoring.FallbackMin = 96 },
			expectErr:   true,
			errContains: "fallback range",
		},
		{
			name:        "history limits",
			modifyFunc:  func(c *Config) { c.API.MaxLimit = 10 },
			expectErr:   true,
			errContains: "api.default_limit",
		},
		{
			name: "default jwt secret in production",
			modifyFunc: func(c *Config) {
				c.App.Mode = "production"
				c.API.JWTSecret = DefaultJWTSecret
			},
			expectErr:   true,
			errContains: "jwt_secret must be changed",
		},
		{
			name:        "bad log level",
			modifyFunc:  func(c *Config) { c.App.LogLevel = "verbose" },
			expectErr:   true,
			errContains: "app.log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)

			err := cfg.Validate()
			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "genomerx", cfg.App.Name)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 4, cfg.Models.KmerSize)
	assert.Equal(t, 1, cfg.Models.SusceptibleLabel)
	assert.Equal(t, 40, cfg.Scoring.FallbackMin)
	assert.Equal(t, 95, cfg.Scoring.FallbackMax)
	assert.Len(t, cfg.Catalog.Antibiotics, 7)
	assert.Equal(t, 30*time.Second, cfg.Redis.CircuitBreaker.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  mode: test
models:
  kmer_size: 3
catalog:
  antibiotics: [Meropenem, Colistin]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("GENOMERX_API_PORT", "9999")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Mode)
	assert.Equal(t, 3, cfg.Models.KmerSize)
	assert.Equal(t, []string{"Meropenem", "Colistin"}, cfg.Catalog.Antibiotics)
	assert.Equal(t, 9999, cfg.API.Port)

	pc := cfg.ToPredictorConfig()
	assert.Equal(t, 3, pc.K)
	assert.Equal(t, []string{"Meropenem", "Colistin"}, pc.Antibiotics)
	assert.NoError(t, pc.Validate())
}
