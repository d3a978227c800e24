// Package config handles configuration loading for the OME-Zarr tile server.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Cache  CacheConfig  `yaml:"cache"`
	Render RenderConfig `yaml:"render"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	// Title names the server in viewer configs and the index page.
	Title string `yaml:"title"`
}

// DataConfig contains data source settings.
type DataConfig struct {
	ImageRoot string `yaml:"image_root"`
	TableDB   string `yaml:"table_db"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	PlaneCacheMB      int `yaml:"plane_cache_mb"`
	PlaneTTLMinutes   int `yaml:"plane_ttl_minutes"`
	DocumentCacheSize int `yaml:"document_cache_size"`
}

// RenderConfig contains rendering settings.
type RenderConfig struct {
	// ThumbnailSize bounds the longest side of rendered PNGs.
	ThumbnailSize int `yaml:"thumbnail_size"`
}

// LogConfig contains log output settings. An empty File logs to stderr.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
			Title:       "OME-Zarr tiles",
		},
		Data: DataConfig{
			ImageRoot: "./data/images",
			TableDB:   "./data/tables.db",
		},
		Cache: CacheConfig{
			PlaneCacheMB:      512,
			PlaneTTLMinutes:   10,
			DocumentCacheSize: 4096,
		},
		Render: RenderConfig{
			ThumbnailSize: 256,
		},
		Log: LogConfig{
			MaxSizeMB:  100,
			MaxAgeDays: 28,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if cfg.Data.ImageRoot == "" {
		cfg.Data.ImageRoot = defaults.Data.ImageRoot
	}
	if cfg.Data.TableDB == "" {
		cfg.Data.TableDB = defaults.Data.TableDB
	}
	if cfg.Cache.PlaneCacheMB == 0 {
		cfg.Cache.PlaneCacheMB = defaults.Cache.PlaneCacheMB
	}
	if cfg.Cache.PlaneTTLMinutes == 0 {
		cfg.Cache.PlaneTTLMinutes = defaults.Cache.PlaneTTLMinutes
	}
	if cfg.Cache.DocumentCacheSize == 0 {
		cfg.Cache.DocumentCacheSize = defaults.Cache.DocumentCacheSize
	}
	if cfg.Render.ThumbnailSize == 0 {
		cfg.Render.ThumbnailSize = defaults.Render.ThumbnailSize
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = defaults.Log.MaxAgeDays
	}
}
