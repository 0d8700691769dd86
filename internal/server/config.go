package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"todoapp/backend"
	"todoapp/backend/postgres"
	"todoapp/backend/sqlite"
	"todoapp/internal/config"
)

// EnvPrefix is prepended to every server environment variable.
const EnvPrefix = "TODOAPP_SERVER"

// DefaultAddr matches the port the client assumes for a local server.
const DefaultAddr = ":5000"

// Config holds the reference server settings.
type Config struct {
	Addr        string `mapstructure:"addr" validate:"required,hostname_port"`
	Database    string `mapstructure:"database" validate:"required"`
	CORSOrigins string `mapstructure:"cors_origins" validate:"required"`
	LogLevel    string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// Origins splits CORSOrigins on commas.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// DefaultDatabase is the SQLite file used when no database is configured.
func DefaultDatabase() string {
	return "sqlite:" + filepath.Join(config.GetDataDir(), "todos.db")
}

// BindFlags registers the serve flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("addr", DefaultAddr, "listen address")
	fs.String("database", "", "sqlite:<path>, a file path, or a postgres:// URL")
	fs.String("cors-origins", "*", "comma-separated allowed origins")
	fs.String("log-level", "info", "debug, info, warn or error")
}

// LoadConfig resolves the server configuration from defaults, environment
// (TODOAPP_SERVER_*) and flags that were explicitly set on fs.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("database", DefaultDatabase())
	v.SetDefault("cors_origins", "*")
	v.SetDefault("log_level", "info")

	if fs != nil {
		var bindErr error
		fs.Visit(func(f *pflag.Flag) {
			if bindErr == nil {
				bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode server config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New()

// OpenStore opens the store named by database. postgres:// and
// postgresql:// URLs select PostgreSQL; anything else is a SQLite path,
// optionally prefixed with "sqlite:".
func OpenStore(ctx context.Context, database string) (backend.Store, error) {
	switch {
	case strings.HasPrefix(database, "postgres://"), strings.HasPrefix(database, "postgresql://"):
		return postgres.New(ctx, database)
	}

	path := config.ExpandPath(strings.TrimPrefix(database, "sqlite:"))
	if path == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return sqlite.New(ctx, path)
}
