package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// State backends for the game and settings documents.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQL      = "sql"
	BackendPostgres = "postgres"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr" env:"ADDR" validate:"required"`
	} `yaml:"server" envPrefix:"SERVER_"`
	Log struct {
		Level string `yaml:"level" env:"LEVEL" validate:"oneof=trace debug info warn warning error fatal panic"`
	} `yaml:"log" envPrefix:"LOG_"`
	State struct {
		Backend string `yaml:"backend" env:"BACKEND" validate:"oneof=memory redis sql postgres"`
	} `yaml:"state" envPrefix:"STATE_"`
	Redis struct {
		Addr     string `yaml:"addr" env:"ADDR"`
		Password string `yaml:"password" env:"PASSWORD"`
		DB       int    `yaml:"db" env:"DB" validate:"gte=0"`
		TTL      string `yaml:"ttl" env:"TTL"`
	} `yaml:"redis" envPrefix:"REDIS_"`
	SQL struct {
		Driver string `yaml:"driver" env:"DRIVER" validate:"oneof=libsql mysql"`
		DSN    string `yaml:"dsn" env:"DSN"`
	} `yaml:"sql" envPrefix:"SQL_"`
	Postgres struct {
		URL string `yaml:"url" env:"URL"`
	} `yaml:"postgres" envPrefix:"POSTGRES_"`
	Catalog struct {
		Source string `yaml:"source" env:"SOURCE" validate:"oneof=embedded database"`
		TTL    string `yaml:"ttl" env:"TTL"`
	} `yaml:"catalog" envPrefix:"CATALOG_"`
}

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "TRIVIA_"

// Default returns a local single-device setup: loopback listener, in-memory
// state and the embedded catalog.
func Default() Config {
	var cfg Config
	cfg.Server.Addr = "127.0.0.1:8080"
	cfg.Log.Level = "info"
	cfg.State.Backend = BackendMemory
	cfg.SQL.Driver = "libsql"
	cfg.SQL.DSN = "trivia.db"
	cfg.Catalog.Source = "embedded"
	cfg.Catalog.TTL = "10m"
	return cfg
}

// Load reads YAML config from path, then applies TRIVIA_* environment
// overrides. A missing file leaves the defaults in place.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("decode %s: %w", path, err)
			}
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks enum fields and backend prerequisites.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.State.Backend {
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("invalid config: redis backend needs redis.addr")
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return errors.New("invalid config: postgres backend needs postgres.url")
		}
	}
	if c.Catalog.Source == "database" && c.Postgres.URL == "" && c.SQL.DSN == "" {
		return errors.New("invalid config: database catalog needs a sql dsn or postgres url")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
