// Package config loads cfelect settings from a YAML or TOML file and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tordrt/cfelect/internal/db"
)

type Config struct {
	Catalog struct {
		// URL is a postgres://, mysql://, sqlite:// or file:// catalog URL
		URL         string `yaml:"url" toml:"url"`
		SchemaName  string `yaml:"schema_name" toml:"schema_name"`
		CacheTTL    string `yaml:"cache_ttl" toml:"cache_ttl"`
		Concurrency int    `yaml:"concurrency" toml:"concurrency"`
	} `yaml:"catalog" toml:"catalog"`

	Log struct {
		Env   string `yaml:"env" toml:"env"` // dev | prod
		Level string `yaml:"level" toml:"level"`
	} `yaml:"log" toml:"log"`

	Server struct {
		Addr            string `yaml:"addr" toml:"addr"`
		ReadTimeout     string `yaml:"read_timeout" toml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout" toml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	} `yaml:"server" toml:"server"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path (TOML if it ends in .toml, YAML otherwise), fills in
// defaults and applies CFELECT_* environment overrides. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decode(path, b, c); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()
	return c, nil
}

func decode(path string, b []byte, c *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(b), c)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys: %v", undecoded)
		}
		return nil
	default:
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		// an empty document decodes to io.EOF
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
}

func (c *Config) applyDefaults() {
	if c.Catalog.CacheTTL == "" {
		c.Catalog.CacheTTL = "30s"
	}
	if c.Log.Env == "" {
		c.Log.Env = "prod"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "10s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "15s"
	}
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("CFELECT_CATALOG_URL"); ok {
		c.Catalog.URL = v
	}
	if v, ok := getEnvStr("CFELECT_CATALOG_SCHEMA"); ok {
		c.Catalog.SchemaName = v
	}
	if v, ok := getEnvStr("CFELECT_CACHE_TTL"); ok {
		c.Catalog.CacheTTL = v
	}
	if v, ok := getEnvInt("CFELECT_CONCURRENCY"); ok {
		c.Catalog.Concurrency = v
	}
	if v, ok := getEnvStr("CFELECT_LOG_ENV"); ok {
		c.Log.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("CFELECT_LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := getEnvStr("CFELECT_SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
}

// Validate checks the values that can be checked without connecting anywhere.
// An empty catalog URL is allowed here; see RequireCatalog.
// Log env and level are case-insensitive and lowercased in place.
func (c *Config) Validate() error {
	if c.Catalog.URL != "" {
		if _, _, err := db.ParseCatalogURL(c.Catalog.URL); err != nil {
			return fmt.Errorf("catalog.url: %w", err)
		}
	}
	if ttl, err := time.ParseDuration(c.Catalog.CacheTTL); err != nil {
		return fmt.Errorf("catalog.cache_ttl: %w", err)
	} else if ttl < 0 {
		return fmt.Errorf("catalog.cache_ttl must not be negative")
	}
	if c.Catalog.Concurrency < 0 {
		return fmt.Errorf("catalog.concurrency must not be negative")
	}

	c.Log.Env = strings.ToLower(c.Log.Env)
	c.Log.Level = strings.ToLower(c.Log.Level)
	switch c.Log.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("log.env must be dev or prod, got %q", c.Log.Env)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	for name, v := range map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// RequireCatalog fails when no catalog URL is configured
func (c *Config) RequireCatalog() error {
	if c.Catalog.URL == "" {
		return fmt.Errorf("no catalog configured (set --catalog, catalog.url or CFELECT_CATALOG_URL)")
	}
	return nil
}

// CacheTTL returns the parsed snapshot cache TTL, zero if it does not parse
func (c *Config) CacheTTL() time.Duration {
	return durationOrZero(c.Catalog.CacheTTL)
}

func (c *Config) ReadTimeout() time.Duration     { return durationOrZero(c.Server.ReadTimeout) }
func (c *Config) WriteTimeout() time.Duration    { return durationOrZero(c.Server.WriteTimeout) }
func (c *Config) ShutdownTimeout() time.Duration { return durationOrZero(c.Server.ShutdownTimeout) }

func durationOrZero(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
