package config

import (
	"context"
	"sync"
	"time"

	"github.com/saiset-co/sai-campaigns/types"
)

type ConfigurationManager struct {
	ctx         context.Context
	configPath  string
	loader      *Loader
	config      *types.ServiceConfig
	parser      *Parser
	mu          sync.RWMutex
	loadTimeout time.Duration
}

func NewConfigurationManager(ctx context.Context, configPath string) (*ConfigurationManager, error) {
	cm := &ConfigurationManager{
		ctx:         ctx,
		configPath:  configPath,
		loader:      NewLoader(),
		loadTimeout: 30 * time.Second,
	}

	if err := cm.Load(); err != nil {
		return nil, types.WrapError(err, "failed to load initial configuration")
	}

	return cm, nil
}

// NewStaticManager wraps an already built config; used by tests and the CLI.
func NewStaticManager(config *types.ServiceConfig) *ConfigurationManager {
	return &ConfigurationManager{
		ctx:    context.Background(),
		loader: NewLoader(),
		config: config,
		parser: NewParser(nil),
	}
}

func (cm *ConfigurationManager) Load() error {
	if cm.configPath == "" {
		return types.ErrConfigInvalidPath
	}

	loadCtx, cancel := context.WithTimeout(cm.ctx, cm.loadTimeout)
	defer cancel()

	config, raw, err := cm.loader.LoadFromFile(loadCtx, cm.configPath)
	if err != nil {
		return types.WrapError(err, "failed to load configuration from file")
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.config = config
	cm.parser = NewParser(raw)

	return nil
}

func (cm *ConfigurationManager) GetConfig() *types.ServiceConfig {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

func (cm *ConfigurationManager) GetValue(path string, defaultValue interface{}) interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.parser == nil {
		return defaultValue
	}
	return cm.parser.GetValue(path, defaultValue)
}

func (cm *ConfigurationManager) GetAs(path string, target interface{}) error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.parser == nil {
		return types.ErrConfigIsNil
	}
	return cm.parser.GetAs(path, target)
}
