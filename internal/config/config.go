// Package config loads service settings from defaults, an optional config
// file, .env.local and LIBRARIAN_* environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix    = "LIBRARIAN"
	localEnvFile = ".env.local"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Media    MediaConfig    `mapstructure:"media"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver  string        `mapstructure:"driver"`
	Path    string        `mapstructure:"path"`
	DSN     string        `mapstructure:"dsn"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type MetadataConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RPS             float64       `mapstructure:"rps"`
	CoverPreference []string      `mapstructure:"cover_preference"`
	CoverTimeout    time.Duration `mapstructure:"cover_timeout"`
	CoverMaxBytes   int64         `mapstructure:"cover_max_bytes"`
}

type MediaConfig struct {
	MaxWidth   int  `mapstructure:"max_width"`
	MaxHeight  int  `mapstructure:"max_height"`
	Quality    int  `mapstructure:"quality"`
	AutoOrient bool `mapstructure:"auto_orient"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 10.0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/librarian.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.timeout", "5s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("metadata.base_url", "https://openlibrary.org")
	v.SetDefault("metadata.user_agent", "librarian/1.0 (+https://github.com/justyntemme/librarian)")
	v.SetDefault("metadata.timeout", "15s")
	v.SetDefault("metadata.rps", 1.0)
	v.SetDefault("metadata.cover_preference", []string{"large", "medium", "small"})
	v.SetDefault("metadata.cover_timeout", "20s")
	v.SetDefault("metadata.cover_max_bytes", 10<<20)

	v.SetDefault("media.max_width", 800)
	v.SetDefault("media.max_height", 1200)
	v.SetDefault("media.quality", 85)
	v.SetDefault("media.auto_orient", false)

	v.SetDefault("log.level", "info")
}

// Load reads configuration. An empty path looks for librarian.{yaml,toml,json}
// in the working directory and tolerates its absence; an explicit path must
// exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(localEnvFile); err != nil {
		slog.Debug("No local env file loaded", "file", localEnvFile)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("librarian")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret is required (set LIBRARIAN_AUTH_JWT_SECRET)")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	if c.Media.MaxWidth < 0 || c.Media.MaxHeight < 0 {
		return errors.New("media.max_width and media.max_height must not be negative")
	}
	if c.Media.Quality < 0 || c.Media.Quality > 100 {
		return fmt.Errorf("media.quality must be between 1 and 100, got %d", c.Media.Quality)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	for _, size := range c.Metadata.CoverPreference {
		switch size {
		case "small", "medium", "large":
		default:
			return fmt.Errorf("metadata.cover_preference: unknown size %q", size)
		}
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses the configured log level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
