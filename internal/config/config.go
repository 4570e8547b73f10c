// Package config loads the match server configuration from a YAML file and
// MATCHES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MATCHES_DATABASE_URL.
const EnvPrefix = "MATCHES"

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Game      GameConfig      `mapstructure:"game"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	HealthAddress string `mapstructure:"health_address"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	Path            string        `mapstructure:"path"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type CatalogConfig struct {
	Source string `mapstructure:"source"`
	Path   string `mapstructure:"path"`
}

type BroadcastConfig struct {
	Driver           string `mapstructure:"driver"`
	NATSURL          string `mapstructure:"nats_url"`
	WebSocketAddress string `mapstructure:"websocket_address"`
}

type GameConfig struct {
	TurnDuration      time.Duration `mapstructure:"turn_duration"`
	HandSize          int           `mapstructure:"hand_size"`
	ProtectedCard     string        `mapstructure:"protected_card"`
	ConfrontsLookback int           `mapstructure:"confronts_lookback"`
}

type SchedulerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	ArchiveDir   string        `mapstructure:"archive_dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_address", ":9090")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/matches.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("catalog.source", "file")
	v.SetDefault("catalog.path", "config/catalog.yaml")
	v.SetDefault("broadcast.driver", "log")
	v.SetDefault("broadcast.nats_url", "nats://localhost:4222")
	v.SetDefault("broadcast.websocket_address", ":8081")
	v.SetDefault("game.turn_duration", 90*time.Second)
	v.SetDefault("game.hand_size", 6)
	v.SetDefault("game.protected_card", "")
	v.SetDefault("game.confronts_lookback", 50)
	v.SetDefault("scheduler.tick_interval", time.Second)
	v.SetDefault("scheduler.archive_dir", "")
}

// Load reads the file at path, when it exists, and applies the environment.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that would make the server misbehave.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for postgres"))
		}
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	switch c.Catalog.Source {
	case "file":
		if c.Catalog.Path == "" {
			errs = append(errs, errors.New("catalog.path is required for a file catalog"))
		}
	case "postgres":
		if c.Database.Driver != "postgres" {
			errs = append(errs, errors.New("a postgres catalog needs database.driver postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown catalog.source %q", c.Catalog.Source))
	}
	switch c.Broadcast.Driver {
	case "nats", "websocket", "log":
	default:
		errs = append(errs, fmt.Errorf("unknown broadcast.driver %q", c.Broadcast.Driver))
	}
	if c.Game.HandSize <= 0 {
		errs = append(errs, errors.New("game.hand_size must be positive"))
	}
	if c.Game.TurnDuration < 0 {
		errs = append(errs, errors.New("game.turn_duration must not be negative"))
	}
	if c.Game.ConfrontsLookback <= 0 {
		errs = append(errs, errors.New("game.confronts_lookback must be positive"))
	}
	if c.Scheduler.TickInterval <= 0 {
		errs = append(errs, errors.New("scheduler.tick_interval must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
