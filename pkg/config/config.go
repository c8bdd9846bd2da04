package config

import (
	"context"
	"time"
)

// Config represents the complete configuration for the API and the worker.
// Both processes load the same structure; each reads the sections it needs.
type Config struct {
	Server     ServerConfig     `koanf:"server"     validate:"required"`
	Redis      RedisConfig      `koanf:"redis"      validate:"required"`
	Queue      QueueConfig      `koanf:"queue"      validate:"required"`
	Worker     WorkerConfig     `koanf:"worker"     validate:"required"`
	Export     ExportConfig     `koanf:"export"     validate:"required"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	Runtime    RuntimeConfig    `koanf:"runtime"    validate:"required"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host           string        `koanf:"host"             validate:"required"        env:"API_HOST"`
	Port           int           `koanf:"port"             validate:"min=1,max=65535" env:"API_PORT"`
	Timeout        time.Duration `koanf:"timeout"                                     env:"SERVER_TIMEOUT"`
	MaxUploadBytes int64         `koanf:"max_upload_bytes" validate:"min=1"           env:"SERVER_MAX_UPLOAD_BYTES"`
	IngestRate     RateConfig    `koanf:"ingest_rate"`
}

// RateConfig represents a single rate limit configuration.
type RateConfig struct {
	Limit  int64         `koanf:"limit"  validate:"min=0" env:"SERVER_INGEST_RATE_LIMIT"`
	Period time.Duration `koanf:"period"                  env:"SERVER_INGEST_RATE_PERIOD"`
	// Store selects the limiter backend: "memory" or "redis".
	Store string `koanf:"store" validate:"oneof=memory redis" env:"SERVER_INGEST_RATE_STORE"`
}

// RedisConfig contains the connection settings for the job queue store.
type RedisConfig struct {
	URL          string          `koanf:"url"           env:"REDIS_URL"`
	Host         string          `koanf:"host"          env:"REDIS_HOST"`
	Port         string          `koanf:"port"          env:"REDIS_PORT"`
	DB           int             `koanf:"db"            env:"REDIS_DB"            validate:"min=0"`
	Password     SensitiveString `koanf:"password"      env:"REDIS_PASSWORD"      sensitive:"true"`
	PoolSize     int             `koanf:"pool_size"     env:"REDIS_POOL_SIZE"     validate:"min=0"`
	MaxRetries   int             `koanf:"max_retries"   env:"REDIS_MAX_RETRIES"`
	DialTimeout  time.Duration   `koanf:"dial_timeout"  env:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration   `koanf:"read_timeout"  env:"REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration   `koanf:"write_timeout" env:"REDIS_WRITE_TIMEOUT"`
	PingTimeout  time.Duration   `koanf:"ping_timeout"  env:"REDIS_PING_TIMEOUT"`
}

// QueueConfig names the Redis list shared by producers and consumers.
type QueueConfig struct {
	Name        string        `koanf:"name"         validate:"required,queue_name" env:"QUEUE_NAME"`
	PollTimeout time.Duration `koanf:"poll_timeout"                                env:"QUEUE_POLL_TIMEOUT"`
}

// WorkerConfig controls the connect and reconnect policy of the conversion worker.
type WorkerConfig struct {
	ConnectAttempts int           `koanf:"connect_attempts" validate:"min=1" env:"WORKER_CONNECT_ATTEMPTS"`
	ConnectDelay    time.Duration `koanf:"connect_delay"                     env:"WORKER_CONNECT_DELAY"`
	ReconnectDelay  time.Duration `koanf:"reconnect_delay"                   env:"WORKER_RECONNECT_DELAY"`
	ErrorDelay      time.Duration `koanf:"error_delay"                       env:"WORKER_ERROR_DELAY"`
	MetricsAddr     string        `koanf:"metrics_addr"                      env:"WORKER_METRICS_ADDR"`
}

// ExportConfig controls where and how dialer lists are written.
type ExportConfig struct {
	Dir    string `koanf:"dir"     validate:"required" env:"EXPORT_DIR"`
	ListID string `koanf:"list_id" validate:"required" env:"EXPORT_LIST_ID"`
}

// MonitoringConfig toggles the Prometheus exporter.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"MONITORING_PATH"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production" env:"RUNTIME_ENVIRONMENT"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error"          env:"LOG_LEVEL"`
	LogJSON     bool   `koanf:"log_json"                                                    env:"LOG_JSON"`
	LogSource   bool   `koanf:"log_source"                                                  env:"LOG_SOURCE"`
}

// Service defines the configuration management service interface.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration from defaults and the environment.
func Load() (*Config, error) {
	return NewService().Load(context.Background())
}

// Default returns a Config with the documented defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			Timeout:        30 * time.Second,
			MaxUploadBytes: 32 << 20,
			IngestRate: RateConfig{
				Limit:  60,
				Period: time.Minute,
				Store:  "memory",
			},
		},
		Redis: RedisConfig{
			Host:         "redis",
			Port:         "6379",
			DB:           0,
			PoolSize:     10,
			DialTimeout:  10 * time.Second,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			PingTimeout:  5 * time.Second,
		},
		Queue: QueueConfig{
			Name:        "lead_jobs",
			PollTimeout: 5 * time.Second,
		},
		Worker: WorkerConfig{
			ConnectAttempts: 5,
			ConnectDelay:    5 * time.Second,
			ReconnectDelay:  10 * time.Second,
			ErrorDelay:      5 * time.Second,
		},
		Export: ExportConfig{
			Dir:    "/data/exports",
			ListID: "999",
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
	}
}
