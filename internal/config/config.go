// Package config provides Viper-based configuration for the gcpimg CLI.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pthm/gcpimg/lib/cdn"
)

// Config represents the complete gcpimg configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Image   ImageConfig   `mapstructure:"image"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig contains demo server settings
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	Key         string `mapstructure:"key"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// ImageConfig contains defaults applied to every image
type ImageConfig struct {
	Convention string `mapstructure:"convention"`
	Eager      bool   `mapstructure:"eager"`
	Sensitive  bool   `mapstructure:"sensitive"`
	CacheSize  int    `mapstructure:"cache_size"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// A missing config file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".gcpimg")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/gcpimg")
	}

	// GCPIMG_SERVER_ADDR overrides server.addr
	v.SetEnvPrefix("GCPIMG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.key", "")
	v.SetDefault("server.metrics_path", "/metrics")

	v.SetDefault("image.convention", cdn.Picture.Name)
	v.SetDefault("image.eager", false)
	v.SetDefault("image.sensitive", false)
	v.SetDefault("image.cache_size", 512)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func validate(cfg *Config) error {
	if _, err := cdn.ConventionByName(cfg.Image.Convention); err != nil {
		return fmt.Errorf("image.convention: %w", err)
	}
	if cfg.Image.CacheSize <= 0 {
		return fmt.Errorf("image.cache_size must be positive, got %d", cfg.Image.CacheSize)
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", cfg.Logging.Format)
	}
	return nil
}

// Convention returns the configured CDN convention.
func (c *Config) Convention() cdn.Convention {
	conv, _ := cdn.ConventionByName(c.Image.Convention)
	return conv
}
