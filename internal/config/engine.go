package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EngineConfig tunes the cleanup worker and batched persistence writes.
// It is hot-reloadable: a running worker picks up new batch sizes on the
// next poll without a restart.
type EngineConfig struct {
	CleanupBatchSize    int           `mapstructure:"cleanupBatchSize"`
	CleanupWorkers      int           `mapstructure:"cleanupWorkers"`
	CleanupBatchTimeout time.Duration `mapstructure:"cleanupBatchTimeout"`
	CleanupPollInterval time.Duration `mapstructure:"cleanupPollInterval"`
	CleanupLockTTL      time.Duration `mapstructure:"cleanupLockTTL"`
	CleanupMaxAttempts  int           `mapstructure:"cleanupMaxAttempts"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CleanupBatchSize:    250,
		CleanupWorkers:      4,
		CleanupBatchTimeout: 10 * time.Second,
		CleanupPollInterval: 15 * time.Second,
		CleanupLockTTL:      time.Minute,
		CleanupMaxAttempts:  10,
	}
}

// EngineConfigHolder exposes the current EngineConfig and watches the
// config file for changes.
type EngineConfigHolder struct {
	current atomic.Value // holds EngineConfig
}

func NewEngineConfigHolder() (*EngineConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("engine")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/loyalty")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LOYALTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEngineConfig()
	v.SetDefault("engine.cleanupBatchSize", defaults.CleanupBatchSize)
	v.SetDefault("engine.cleanupWorkers", defaults.CleanupWorkers)
	v.SetDefault("engine.cleanupBatchTimeout", defaults.CleanupBatchTimeout)
	v.SetDefault("engine.cleanupPollInterval", defaults.CleanupPollInterval)
	v.SetDefault("engine.cleanupLockTTL", defaults.CleanupLockTTL)
	v.SetDefault("engine.cleanupMaxAttempts", defaults.CleanupMaxAttempts)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg EngineConfig
	if err := v.UnmarshalKey("engine", &cfg); err != nil {
		return nil, err
	}
	if err := validateEngineConfig(cfg); err != nil {
		return nil, err
	}

	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated EngineConfig
		if err := v.UnmarshalKey("engine", &updated); err != nil {
			log.Printf("[engine-config] reload failed: %v", err)
			return
		}
		if err := validateEngineConfig(updated); err != nil {
			log.Printf("[engine-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[engine-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticEngineConfigHolder wraps a fixed config with no file watching,
// for tests and embedded use.
func NewStaticEngineConfigHolder(cfg EngineConfig) *EngineConfigHolder {
	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *EngineConfigHolder) Get() EngineConfig {
	return h.current.Load().(EngineConfig)
}

func validateEngineConfig(cfg EngineConfig) error {
	if cfg.CleanupBatchSize <= 0 {
		return errors.New("engine.cleanupBatchSize must be positive")
	}
	if cfg.CleanupWorkers <= 0 {
		return errors.New("engine.cleanupWorkers must be positive")
	}
	if cfg.CleanupBatchTimeout <= 0 {
		return errors.New("engine.cleanupBatchTimeout must be positive")
	}
	if cfg.CleanupPollInterval <= 0 {
		return errors.New("engine.cleanupPollInterval must be positive")
	}
	return nil
}
