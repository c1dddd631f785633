package config

import (
	"context"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-campaigns/types"
)

type Loader struct {
	validator *validator.Validate
	lookupEnv func(string) (string, bool)
}

func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
		lookupEnv: os.LookupEnv,
	}
}

// LoadFromFile reads configPath over the defaults, applies CAMPAIGNS_* environment
// overrides and validates the result. It also returns the raw document for
// dotted-path lookups.
func (l *Loader) LoadFromFile(ctx context.Context, configPath string) (*types.ServiceConfig, map[string]interface{}, error) {
	if configPath == "" {
		return nil, nil, types.ErrConfigNotFound
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil, types.WrapError(err, "file not found: "+configPath)
	}

	data, err := l.ReadFileWithTimeout(ctx, configPath)
	if err != nil {
		return nil, nil, types.WrapError(err, "failed to read config file")
	}

	return l.LoadFromBytes(data)
}

func (l *Loader) LoadFromBytes(data []byte) (*types.ServiceConfig, map[string]interface{}, error) {
	config := l.Defaults()

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, nil, types.Errorf(types.ErrConfigParseFailed, "%w", err)
	}

	raw := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, types.Errorf(types.ErrConfigParseFailed, "%w", err)
	}

	if err := env.ParseWithOptions(config, env.Options{Environment: l.environment()}); err != nil {
		return nil, nil, types.WrapError(err, "failed to apply environment overrides")
	}

	if err := l.validator.Struct(config); err != nil {
		return nil, nil, types.Errorf(types.ErrConfigValidateFailed, "%w", err)
	}

	return config, raw, nil
}

func (l *Loader) environment() map[string]string {
	keys := []string{
		"CAMPAIGNS_DEBUG",
		"CAMPAIGNS_HTTP_HOST",
		"CAMPAIGNS_HTTP_PORT",
		"CAMPAIGNS_LOG_LEVEL",
		"CAMPAIGNS_CACHE_TYPE",
		"CAMPAIGNS_STORE_TYPE",
		"CAMPAIGNS_STORE_PATH",
		"CAMPAIGNS_TRUSTED_HOSTS",
		"CAMPAIGNS_METRICS_ENABLED",
	}

	environment := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := l.lookupEnv(key); ok {
			environment[key] = value
		}
	}

	return environment
}

func (l *Loader) ReadFileWithTimeout(ctx context.Context, filepath string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	resultChan := make(chan result, 1)

	go func() {
		data, err := os.ReadFile(filepath)
		resultChan <- result{data: data, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.data, res.err
	case <-ctx.Done():
		return nil, types.WrapError(ctx.Err(), "file read timeout")
	}
}

func (l *Loader) Defaults() *types.ServiceConfig {
	return &types.ServiceConfig{
		Name:    "sai-campaigns",
		Version: "dev",
		Server: &types.ServerConfig{
			HTTP: &types.HTTPConfig{
				Host:            "localhost",
				Port:            8080,
				ReadTimeout:     30,
				WriteTimeout:    30,
				IdleTimeout:     120,
				ShutdownTimeout: 5,
			},
		},
		Logger: &types.LoggerConfig{
			Level: "info",
		},
		Cache: &types.CacheConfig{
			Type:       "memory",
			DefaultTTL: time.Hour,
		},
		Store: &types.StoreConfig{
			Type: "memory",
		},
		Trust: &types.TrustConfig{},
		Middlewares: &types.MiddlewaresConfig{
			Recovery: &types.MiddlewareItemConfig{
				Enabled: true,
				Weight:  10,
				Params: map[string]interface{}{
					"stack_trace": true,
				},
			},
			Metadata: &types.MiddlewareItemConfig{
				Enabled: true,
				Weight:  20,
				Params: map[string]interface{}{
					"generate_request_id": true,
				},
			},
			Logging: &types.MiddlewareItemConfig{
				Enabled: true,
				Weight:  30,
				Params: map[string]interface{}{
					"log_level":   "info",
					"log_headers": false,
				},
			},
		},
		Metrics: &types.MetricsConfig{
			Enabled:   false,
			Type:      "prometheus",
			Path:      "/metrics",
			Namespace: "sai_campaigns",
		},
		Health: &types.HealthConfig{
			Enabled: true,
			Path:    "/health",
			Timeout: 5 * time.Second,
		},
		Cron: &types.CronConfig{
			Enabled:  false,
			Timezone: "UTC",
			Jobs: map[string]string{
				"cache_maintenance": "0 */5 * * * *",
				"store_maintenance": "0 0 * * * *",
			},
		},
	}
}
