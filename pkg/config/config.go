// Package config loads wiretree settings from TOML or YAML files.
//
// A config file is optional. Missing keys keep their defaults, unknown keys
// are rejected, and ${VAR} references are expanded from the environment
// before decoding:
//
//	[layout]
//	tolerance = 1.0
//	iou_threshold = 0.8
//
//	[cache]
//	backend = "redis"
//	redis_url = "${REDIS_URL}"
//
//	[store]
//	backend = "mongo"
//	uri = "mongodb://localhost:27017"
//
// The format is chosen by file extension: .toml, or .yaml/.yml.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/pipeline"
)

// Backend names.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"

	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Defaults for values without a pipeline counterpart.
const (
	DefaultAddr         = ":8080"
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultDatabase     = "wiretree"
	DefaultCollection   = "layouts"
	DefaultLogLevel     = "info"
)

// Config is the full settings tree.
type Config struct {
	Layout LayoutConfig `toml:"layout" yaml:"layout"`
	Cache  CacheConfig  `toml:"cache" yaml:"cache"`
	Server ServerConfig `toml:"server" yaml:"server"`
	Store  StoreConfig  `toml:"store" yaml:"store"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// LayoutConfig holds build parameters.
type LayoutConfig struct {
	Tolerance    float64 `toml:"tolerance" yaml:"tolerance"`
	IoUThreshold float64 `toml:"iou_threshold" yaml:"iou_threshold"`
	SkipDedup    bool    `toml:"skip_dedup" yaml:"skip_dedup"`
}

// CacheConfig selects and configures the layout cache.
type CacheConfig struct {
	Backend  string `toml:"backend" yaml:"backend"`
	Dir      string `toml:"dir" yaml:"dir"` // file backend; empty means the user cache dir
	RedisURL string `toml:"redis_url" yaml:"redis_url"`
	Prefix   string `toml:"prefix" yaml:"prefix"` // key namespace for shared backends
}

// ServerConfig configures wiretree serve.
type ServerConfig struct {
	Addr         string        `toml:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	Metrics      bool          `toml:"metrics" yaml:"metrics"`
}

// StoreConfig selects where built layouts are archived.
type StoreConfig struct {
	Backend    string `toml:"backend" yaml:"backend"`
	URI        string `toml:"uri" yaml:"uri"`
	Database   string `toml:"database" yaml:"database"`
	Collection string `toml:"collection" yaml:"collection"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Default returns a config with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.Layout.IoUThreshold == 0 {
		c.Layout.IoUThreshold = pipeline.DefaultIoUThreshold
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheFile
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Store.Backend == "" {
		c.Store.Backend = StoreMemory
	}
	if c.Store.Database == "" {
		c.Store.Database = DefaultDatabase
	}
	if c.Store.Collection == "" {
		c.Store.Collection = DefaultCollection
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// Validate checks value ranges and backend names.
func (c *Config) Validate() error {
	if err := errors.ValidateTolerance(c.Layout.Tolerance); err != nil {
		return err
	}
	if err := errors.ValidateThreshold(c.Layout.IoUThreshold); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_url is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend: unknown backend %q", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StoreMongo:
		if c.Store.URI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.uri is required for the mongo backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "store.backend: unknown backend %q", c.Store.Backend)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "log.level")
	}
	return nil
}

// PipelineOptions returns build options seeded from the layout section.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Tolerance:    c.Layout.Tolerance,
		IoUThreshold: c.Layout.IoUThreshold,
		SkipDedup:    c.Layout.SkipDedup,
	}
}

// LogLevel returns the parsed log level, or info if it does not parse.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// =============================================================================
// Loading
// =============================================================================

// Load reads, decodes, defaults and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// LoadOptional behaves like Load but returns defaults when path does not exist.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes config data in the format named by ext (".toml", ".yaml" or ".yml").
func Parse(data []byte, ext string) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	c := &Config{}
	switch strings.ToLower(ext) {
	case ".toml":
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode yaml")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}

	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
