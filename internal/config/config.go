// Package config provides configuration structures and loading logic for replaytrace.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure for the replaytrace service.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Tempo    TempoConfig    `mapstructure:"tempo"`
	Timeline TimelineConfig `mapstructure:"timeline"`
}

// AppConfig defines application-level settings such as host and port.
type AppConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout"`
}

// LogConfig selects the slog handler and its minimum level.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig points at the sqlite file holding replays and frames.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// TempoConfig defines connection settings for the Grafana Tempo distributed tracing backend.
type TempoConfig struct {
	URL         string `mapstructure:"url"`
	Timeout     string `mapstructure:"timeout"`
	Enabled     bool   `mapstructure:"enabled"`
	SearchLimit int    `mapstructure:"search_limit"`
	// SearchPadding widens the search window around the replay so traces
	// that started just before or after it are still found.
	SearchPadding string `mapstructure:"search_padding"`
}

// TimelineConfig tunes trace table assembly.
type TimelineConfig struct {
	CacheSize   int    `mapstructure:"cache_size"`
	LiveRefresh string `mapstructure:"live_refresh"`
}

// Addr returns the host:port the HTTP server binds to.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetShutdownTimeoutDuration parses the graceful shutdown budget.
func (c *AppConfig) GetShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetTimeoutDuration parses the configured string timeout into a time.Duration.
func (c *TempoConfig) GetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetSearchPaddingDuration parses the search window padding. Negative values are ignored.
func (c *TempoConfig) GetSearchPaddingDuration() time.Duration {
	d, _ := time.ParseDuration(c.SearchPadding)
	if d < 0 {
		return 0
	}
	return d
}

// GetLiveRefreshDuration parses how often live trace tables are rebuilt.
func (c *TimelineConfig) GetLiveRefreshDuration() time.Duration {
	d, _ := time.ParseDuration(c.LiveRefresh)
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.shutdown_timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.path", "./data/replaytrace.db")
	v.SetDefault("tempo.url", "http://localhost:3200")
	v.SetDefault("tempo.timeout", "30s")
	v.SetDefault("tempo.enabled", true)
	v.SetDefault("tempo.search_limit", 100)
	v.SetDefault("tempo.search_padding", "1m")
	v.SetDefault("timeline.cache_size", 256)
	v.SetDefault("timeline.live_refresh", "5s")
}

// Load loads configuration from config.yaml or environment variables.
// A non-empty path selects an explicit config file.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/replaytrace")
	}

	// Allow environment variables to override config
	v.SetEnvPrefix("REPLAYTRACE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
