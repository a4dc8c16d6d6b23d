package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/opencomp/recordcache/internal/logger"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutDownTimeout    time.Duration
	CORSAllowedOrigins string
}

// DataConfig holds cache and persistence settings.
type DataConfig struct {
	SnapshotPath    string
	RefreshInterval time.Duration
}

// SourceConfig holds the remote record source settings.
type SourceConfig struct {
	URL      string
	Timeout  time.Duration
	RetryMax int
}

// MiscConfig holds everything else.
type MiscConfig struct {
	LogLevel string
	GinMode  string
}

// Config is the full application configuration.
type Config struct {
	Server ServerConfig
	Data   DataConfig
	Source SourceConfig
	Misc   MiscConfig
}

// LoadConfig reads config.yaml from the working directory or ./config,
// applies defaults and environment overrides (RECORDCACHE_ prefix), and
// validates the result.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Defaults to allow running without config file
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "5s")
	viper.SetDefault("server.cors_allowed_origins", "*")
	viper.SetDefault("data.snapshot_path", "./data/records.snapshot.json")
	viper.SetDefault("data.refresh_interval", "1h")
	viper.SetDefault("source.timeout", "15s")
	viper.SetDefault("source.retry_max", 3)
	viper.SetDefault("misc.log_level", "info")
	viper.SetDefault("misc.gin_mode", "release")

	// Environment variables automatically override config file values,
	// e.g. RECORDCACHE_SOURCE_URL overrides source.url
	viper.AutomaticEnv()
	viper.SetEnvPrefix("RECORDCACHE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.WithComponent("config").Info("no config file found, using defaults and env vars")
		} else {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               viper.GetInt("server.port"),
			ReadTimeout:        viper.GetDuration("server.read_timeout"),
			WriteTimeout:       viper.GetDuration("server.write_timeout"),
			IdleTimeout:        viper.GetDuration("server.idle_timeout"),
			ShutDownTimeout:    viper.GetDuration("server.shutdown_timeout"),
			CORSAllowedOrigins: viper.GetString("server.cors_allowed_origins"),
		},
		Data: DataConfig{
			SnapshotPath:    viper.GetString("data.snapshot_path"),
			RefreshInterval: viper.GetDuration("data.refresh_interval"),
		},
		Source: SourceConfig{
			URL:      viper.GetString("source.url"),
			Timeout:  viper.GetDuration("source.timeout"),
			RetryMax: viper.GetInt("source.retry_max"),
		},
		Misc: MiscConfig{
			LogLevel: viper.GetString("misc.log_level"),
			GinMode:  viper.GetString("misc.gin_mode"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WatchLogLevel re-applies misc.log_level when the config file changes on
// disk. Only the log level is hot-reloaded; everything else needs a restart.
func WatchLogLevel() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		level := viper.GetString("misc.log_level")
		logger.WithComponent("config").Infof("config file %s changed, applying log level %q", e.Name, level)
		logger.SetLevel(level)
	})
	viper.WatchConfig()
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}
	if c.Server.ShutDownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Data.SnapshotPath == "" {
		return errors.New("data.snapshot_path is required")
	}
	if c.Data.RefreshInterval <= 0 {
		return errors.New("data.refresh_interval must be positive")
	}
	if strings.TrimSpace(c.Source.URL) == "" {
		return errors.New("source.url is required")
	}
	if c.Source.Timeout <= 0 {
		return errors.New("source.timeout must be positive")
	}
	if c.Source.RetryMax < 0 {
		return errors.New("source.retry_max must not be negative")
	}
	return nil
}
