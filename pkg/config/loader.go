package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/OldStager01/genomerx/internal/predictor"
)

const DefaultJWTSecret = "change-me-in-production"

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/genomerx")
	}

	v.SetEnvPrefix("GENOMERX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "genomerx")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "15s")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/genomerx.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "genomerx")
	v.SetDefault("database.user", "genomerx")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.ping_timeout", "10s")

	// Model defaults
	v.SetDefault("models.store", "file")
	v.SetDefault("models.dir", "models")
	v.SetDefault("models.extension", ".json")
	v.SetDefault("models.kmer_size", 4)
	v.SetDefault("models.susceptible_label", 1)

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "genomerx:model:")
	v.SetDefault("redis.circuit_breaker.max_failures", 5)
	v.SetDefault("redis.circuit_breaker.timeout", "30s")

	// Catalog defaults
	v.SetDefault("catalog.antibiotics", predictor.DefaultAntibiotics)
	v.SetDefault("catalog.pathogens", predictor.DefaultPathogens)
	v.SetDefault("catalog.genes", predictor.DefaultGenes)

	// Scoring defaults
	v.SetDefault("scoring.fallback_min", 40)
	v.SetDefault("scoring.fallback_max", 95)
	v.SetDefault("scoring.mdr_threshold", 40)
	v.SetDefault("scoring.mdr_min_count", 3)
	v.SetDefault("scoring.top_n", 3)
	v.SetDefault("scoring.max_genes", 2)

	// API defaults
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "30s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.predict_rate_limit", 20)
	v.SetDefault("api.max_upload_bytes", 20<<20)
	v.SetDefault("api.predict_timeout", "30s")
	v.SetDefault("api.auth_enabled", false)
	v.SetDefault("api.jwt_secret", DefaultJWTSecret)
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.default_limit", 25)
	v.SetDefault("api.max_limit", 200)
	v.SetDefault("api.cors.allowed_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization", "X-Trace-ID"})
	v.SetDefault("api.cors.exposed_headers", []string{"X-Trace-ID"})
	v.SetDefault("api.cors.allow_credentials", true)

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.broadcast_buffer", 256)
	v.SetDefault("websocket.client_buffer", 64)

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9090)

	v.SetDefault("events.buffer_size", 100)
}
