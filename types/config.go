package types

import (
	"time"
)

type ConfigManager interface {
	Load() error
	GetConfig() *ServiceConfig
	GetValue(path string, defaultValue interface{}) interface{}
	GetAs(path string, target interface{}) error
}

type ServiceConfig struct {
	Name        string             `yaml:"name" json:"name" validate:"required"`
	Version     string             `yaml:"version" json:"version" validate:"required"`
	Debug       bool               `yaml:"debug" json:"debug" env:"CAMPAIGNS_DEBUG"`
	Server      *ServerConfig      `yaml:"server" json:"server" validate:"required"`
	Logger      *LoggerConfig      `yaml:"logger" json:"logger" validate:"required"`
	Cache       *CacheConfig       `yaml:"cache" json:"cache" validate:"required"`
	Store       *StoreConfig       `yaml:"store" json:"store" validate:"required"`
	Trust       *TrustConfig       `yaml:"trust" json:"trust"`
	Middlewares *MiddlewaresConfig `yaml:"middlewares" json:"middlewares"`
	Metrics     *MetricsConfig     `yaml:"metrics" json:"metrics"`
	Health      *HealthConfig      `yaml:"health" json:"health"`
	Cron        *CronConfig        `yaml:"cron" json:"cron"`
}

type ServerConfig struct {
	HTTP *HTTPConfig `yaml:"http" json:"http" validate:"required"`
}

type HTTPConfig struct {
	Host            string `yaml:"host" json:"host" env:"CAMPAIGNS_HTTP_HOST"`
	Port            int    `yaml:"port" json:"port" env:"CAMPAIGNS_HTTP_PORT" validate:"min=1,max=65535"`
	ReadTimeout     int    `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    int    `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     int    `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout int    `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

type LoggerConfig struct {
	Type   string      `yaml:"type" json:"type"`
	Level  string      `yaml:"level" json:"level" env:"CAMPAIGNS_LOG_LEVEL" validate:"required"`
	Config interface{} `yaml:"config" json:"config"`
}

type CacheConfig struct {
	Type       string        `yaml:"type" json:"type" env:"CAMPAIGNS_CACHE_TYPE" validate:"required"`
	Config     interface{}   `yaml:"config" json:"config"`
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl" validate:"min=0"`
}

type StoreConfig struct {
	Type   string      `yaml:"type" json:"type" env:"CAMPAIGNS_STORE_TYPE" validate:"required"`
	Path   string      `yaml:"path" json:"path" env:"CAMPAIGNS_STORE_PATH"`
	Config interface{} `yaml:"config" json:"config"`
}

// TrustConfig lists referer hosts accepted in addition to the request host.
type TrustConfig struct {
	AllowedHosts []string `yaml:"allowed_hosts" json:"allowed_hosts" env:"CAMPAIGNS_TRUSTED_HOSTS" validate:"dive,min=1"`
}

type MiddlewaresConfig struct {
	Recovery *MiddlewareItemConfig `yaml:"recovery" json:"recovery"`
	Metadata *MiddlewareItemConfig `yaml:"metadata" json:"metadata"`
	Logging  *MiddlewareItemConfig `yaml:"logging" json:"logging"`
}

type MiddlewareItemConfig struct {
	Enabled bool                   `yaml:"enabled" json:"enabled"`
	Weight  int                    `yaml:"weight" json:"weight" validate:"min=0"`
	Params  map[string]interface{} `yaml:"params" json:"params"`
}

type MetricsConfig struct {
	Enabled   bool              `yaml:"enabled" json:"enabled" env:"CAMPAIGNS_METRICS_ENABLED"`
	Type      string            `yaml:"type" json:"type" validate:"required_if=Enabled true"`
	Path      string            `yaml:"path" json:"path"`
	Namespace string            `yaml:"namespace" json:"namespace"`
	Labels    map[string]string `yaml:"labels" json:"labels"`
	GoMetrics bool              `yaml:"go_metrics" json:"go_metrics"`
}

type HealthConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Path    string        `yaml:"path" json:"path"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type CronConfig struct {
	Enabled  bool              `yaml:"enabled" json:"enabled"`
	Timezone string            `yaml:"timezone" json:"timezone" validate:"required_if=Enabled true"`
	Jobs     map[string]string `yaml:"jobs" json:"jobs"`
}
