package config

import (
	"time"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Models     ModelsConfig     `mapstructure:"models"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

// ModelsConfig locates the per-antibiotic artifacts.
type ModelsConfig struct {
	Store            string `mapstructure:"store"`
	Dir              string `mapstructure:"dir"`
	Extension        string `mapstructure:"extension"`
	KmerSize         int    `mapstructure:"kmer_size"`
	SusceptibleLabel int    `mapstructure:"susceptible_label"`
}

type RedisConfig struct {
	Addr           string               `mapstructure:"addr"`
	Password       string               `mapstructure:"password"`
	DB             int                  `mapstructure:"db"`
	KeyPrefix      string               `mapstructure:"key_prefix"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type CatalogConfig struct {
	Antibiotics []string `mapstructure:"antibiotics"`
	Pathogens   []string `mapstructure:"pathogens"`
	Genes       []string `mapstructure:"genes"`
}

type ScoringConfig struct {
	FallbackMin  int `mapstructure:"fallback_min"`
	FallbackMax  int `mapstructure:"fallback_max"`
	MDRThreshold int `mapstructure:"mdr_threshold"`
	MDRMinCount  int `mapstructure:"mdr_min_count"`
	TopN         int `mapstructure:"top_n"`
	MaxGenes     int `mapstructure:"max_genes"`
}

type APIConfig struct {
	Port             int           `mapstructure:"port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	RateLimit        int           `mapstructure:"rate_limit"`
	PredictRateLimit int           `mapstructure:"predict_rate_limit"`
	MaxUploadBytes   int64         `mapstructure:"max_upload_bytes"`
	PredictTimeout   time.Duration `mapstructure:"predict_timeout"`
	AuthEnabled      bool          `mapstructure:"auth_enabled"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	JWTDuration      time.Duration `mapstructure:"jwt_duration"`
	CookieSecure     bool          `mapstructure:"cookie_secure"`
	DefaultLimit     int           `mapstructure:"default_limit"`
	MaxLimit         int           `mapstructure:"max_limit"`
	CORS             CORSConfig    `mapstructure:"cors"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
