package redis

import (
	"time"

	"github.com/refacekit/leadops/pkg/config"
)

type Config struct {
	URL          string        `json:"url,omitempty"           mapstructure:"url"`
	Host         string        `json:"host,omitempty"          mapstructure:"host"`
	Port         string        `json:"port,omitempty"          mapstructure:"port"`
	Password     string        `json:"-"                       mapstructure:"password"`
	DB           int           `json:"db,omitempty"            mapstructure:"db"`
	PoolSize     int           `json:"pool_size,omitempty"     mapstructure:"pool_size"`
	MaxRetries   int           `json:"max_retries,omitempty"   mapstructure:"max_retries"`
	DialTimeout  time.Duration `json:"dial_timeout,omitempty"  mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout,omitempty"  mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout,omitempty" mapstructure:"write_timeout"`
	PingTimeout  time.Duration `json:"ping_timeout,omitempty"  mapstructure:"ping_timeout"`
}

// FromAppConfig copies the application's redis section into a Config.
func FromAppConfig(cfg *config.RedisConfig) *Config {
	return &Config{
		URL:          cfg.URL,
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PingTimeout:  cfg.PingTimeout,
	}
}
