// Package config reads and writes the per-project TOML configuration.
//
// A project directory holds a project.toml next to the stored graph:
//
//	[layout]
//	direction = "TB"
//	auto = true
//	debounce = "500ms"
//	node_width = 280
//	node_height = 160
//	rank_sep = 120
//	node_sep = 60
//	margin = 40
//
//	[store]
//	backend = "file"
//
// Missing keys take the values from [Default].
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/layout"
)

// FileName is the config file name inside a project directory.
const FileName = "project.toml"

// Store backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config is the project configuration.
type Config struct {
	Layout LayoutConfig `toml:"layout"`
	Store  StoreConfig  `toml:"store"`
}

// LayoutConfig controls the layout engine and auto-layout.
type LayoutConfig struct {
	Direction  string   `toml:"direction"`
	Auto       bool     `toml:"auto"`
	Debounce   Duration `toml:"debounce"`
	NodeWidth  float64  `toml:"node_width"`
	NodeHeight float64  `toml:"node_height"`
	RankSep    float64  `toml:"rank_sep"`
	NodeSep    float64  `toml:"node_sep"`
	Margin     float64  `toml:"margin"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend string `toml:"backend"`

	RedisAddr     string `toml:"redis_addr,omitempty"`
	RedisPassword string `toml:"redis_password,omitempty"`
	RedisDB       int    `toml:"redis_db,omitempty"`

	MongoURI      string `toml:"mongo_uri,omitempty"`
	MongoDatabase string `toml:"mongo_database,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("500ms").
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Layout: LayoutConfig{
			Direction:  string(layout.TopToBottom),
			Auto:       true,
			Debounce:   Duration{500 * time.Millisecond},
			NodeWidth:  layout.DefaultNodeWidth,
			NodeHeight: layout.DefaultNodeHeight,
			RankSep:    layout.DefaultRankSep,
			NodeSep:    layout.DefaultNodeSep,
			Margin:     layout.DefaultMargin,
		},
		Store: StoreConfig{
			Backend:       BackendFile,
			RedisAddr:     "localhost:6379",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "metricgraph",
		},
	}
}

// Load reads path on top of the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", filepath.Base(path))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Save validates cfg and writes it to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create config dir")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write config")
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := layout.ParseDirection(c.Layout.Direction); err != nil {
		return errors.New(errors.ErrCodeInvalidConfig, "layout.direction: %v", err)
	}
	sizes := []struct {
		name string
		v    float64
	}{
		{"layout.node_width", c.Layout.NodeWidth},
		{"layout.node_height", c.Layout.NodeHeight},
		{"layout.rank_sep", c.Layout.RankSep},
		{"layout.node_sep", c.Layout.NodeSep},
	}
	for _, s := range sizes {
		if s.v <= 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "%s must be positive, got %v", s.name, s.v)
		}
	}
	if c.Layout.Margin < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout.margin must not be negative, got %v", c.Layout.Margin)
	}
	if c.Layout.Debounce.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout.debounce must not be negative")
	}

	switch c.Store.Backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.redis_addr is required for the redis backend")
		}
	case BackendMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.mongo_uri and store.mongo_database are required for the mongo backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// LayoutOptions converts the layout section into engine options.
// It assumes c has been validated.
func (c Config) LayoutOptions() layout.Options {
	dir, _ := layout.ParseDirection(c.Layout.Direction)
	return layout.Options{
		Direction:  dir,
		NodeWidth:  c.Layout.NodeWidth,
		NodeHeight: c.Layout.NodeHeight,
		RankSep:    c.Layout.RankSep,
		NodeSep:    c.Layout.NodeSep,
		Margin:     c.Layout.Margin,
	}
}

// String renders the config as TOML.
func (c Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<invalid config: %v>", err)
	}
	return buf.String()
}
