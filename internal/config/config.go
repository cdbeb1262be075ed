package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/timezone"
)

// Output formats understood by the renderer.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatXCal = "xcal"
)

// CacheConfig mirrors recurrence.CacheConfig in YAML-friendly units.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// TTLMinutes is how long a cached result stays valid.
	TTLMinutes int `yaml:"ttl_minutes" json:"ttl_minutes"`
	// MaxEntries bounds the cache before least recently used entries go.
	MaxEntries int `yaml:"max_entries" json:"max_entries"`
}

// Config is the CLI configuration.
type Config struct {
	// Timezone applies to rules whose DTSTART carries no TZID. Accepts an IANA
	// name, "UTC", "local" or a fixed offset such as "+05:30".
	Timezone string `yaml:"timezone" json:"timezone"`

	// Format is one of "text", "json" or "xcal".
	Format string `yaml:"format" json:"format"`

	// LogLevel is one of "debug", "info", "warn" or "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	// MaxIterations caps last/next/any queries.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`

	// HorizonDays is the expansion window used when no explicit end is given.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	Cache CacheConfig `yaml:"cache" json:"cache"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:      "UTC",
		Format:        FormatText,
		LogLevel:      "info",
		MaxIterations: recurrence.DefaultMaxIterations,
		HorizonDays:   30,
		Cache: CacheConfig{
			Enabled:    true,
			TTLMinutes: 15,
			MaxEntries: 1000,
		},
	}
}

// Normalize fills in missing/zero values with defaults so partially filled
// files still behave.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	switch strings.ToLower(c.Format) {
	case FormatText, FormatJSON, FormatXCal:
		c.Format = strings.ToLower(c.Format)
	default:
		c.Format = FormatText
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = recurrence.DefaultMaxIterations
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 30
	}
	if c.Cache.TTLMinutes <= 0 {
		c.Cache.TTLMinutes = 15
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 1000
	}
}

// Load reads the YAML file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Source resolves the configured timezone.
func (c *Config) Source() (timezone.Source, error) {
	return timezone.Parse(c.Timezone)
}

// EngineConfig converts the file settings into engine settings.
func (c *Config) EngineConfig() recurrence.EngineConfig {
	cfg := recurrence.EngineConfig{
		CacheEnabled:  c.Cache.Enabled,
		MaxIterations: c.MaxIterations,
	}
	if c.Cache.Enabled {
		cfg.CacheConfig = recurrence.CacheConfig{
			TTL:             time.Duration(c.Cache.TTLMinutes) * time.Minute,
			MaxEntries:      c.Cache.MaxEntries,
			CleanupInterval: recurrence.DefaultCacheConfig.CleanupInterval,
		}
	}
	return cfg
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Horizon is the default expansion window length.
func (c *Config) Horizon() time.Duration {
	return time.Duration(c.HorizonDays) * 24 * time.Hour
}
