package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Files     FilesConfig     `mapstructure:"files"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Events    EventsConfig    `mapstructure:"events"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Timezone string `mapstructure:"timezone"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CacheConfig struct {
	Driver       string        `mapstructure:"driver"`
	Size         int           `mapstructure:"size"`
	StatusTTL    time.Duration `mapstructure:"status_ttl"`
	ParameterTTL time.Duration `mapstructure:"parameter_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type FilesConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

type SchedulerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	RefreshSpec string `mapstructure:"refresh_spec"`
}

// EventsConfig selects where committed incident changes are announced.
type EventsConfig struct {
	Driver        string `mapstructure:"driver"`
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// Location resolves app.timezone, UTC when empty or unknown.
func (c AppConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("cache_driver", cfg.Cache.Driver),
	)

	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}

	switch strings.ToLower(c.Cache.Driver) {
	case "memory", "sqlite", "redis", "none":
	default:
		return fmt.Errorf("unsupported cache.driver %q", c.Cache.Driver)
	}
	if strings.EqualFold(c.Cache.Driver, "redis") && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis.addr is required when cache.driver=redis")
	}
	switch strings.ToLower(c.Events.Driver) {
	case "none", "":
	case "nats":
		if strings.TrimSpace(c.Events.NATSURL) == "" {
			return errors.New("events.nats_url is required when events.driver=nats")
		}
	default:
		return fmt.Errorf("unsupported events.driver %q", c.Events.Driver)
	}
	if c.Files.MaxBytes <= 0 {
		return errors.New("files.max_bytes must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "troubledesk")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.timezone", "Asia/Tokyo")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/troubledesk.sqlite")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.size", 4096)
	v.SetDefault("cache.status_ttl", 5*time.Minute)
	v.SetDefault("cache.parameter_ttl", 30*time.Minute)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 60*time.Second)
	v.SetDefault("files.max_bytes", 10<<20)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.refresh_spec", "@every 5m")
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("events.subject_prefix", "troubledesk.incident")
}
