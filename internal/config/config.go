// Package config holds runtime configuration for reqwire.
package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for a reqwire invocation.
// Values are populated from .reqwire.yaml, REQWIRE_* env vars, and CLI flags.
type Config struct {
	Root         string `mapstructure:"root"`
	PageSize     int    `mapstructure:"page_size"`
	AuditEnabled bool   `mapstructure:"audit_enabled"`
	AuditPath    string `mapstructure:"audit_path"`
	Watch        bool   `mapstructure:"watch"`
	Verbose      bool   `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("root", "requirements")
	viper.SetDefault("page_size", 50)
	viper.SetDefault("audit_enabled", false)
	viper.SetDefault("audit_path", "")
	viper.SetDefault("watch", true)
	viper.SetDefault("verbose", false)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	if cfg.AuditEnabled && cfg.AuditPath == "" {
		cfg.AuditPath = filepath.Join(cfg.Root, ".reqwire", "audit.db")
	}
	return cfg
}
