package server_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"todoapp/backend/sqlite"
	"todoapp/internal/server"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := server.LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, server.DefaultDatabase(), cfg.Database)
	assert.Equal(t, []string{"*"}, cfg.Origins())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigEnvAndFlags(t *testing.T) {
	t.Setenv("TODOAPP_SERVER_ADDR", "127.0.0.1:8080")
	t.Setenv("TODOAPP_SERVER_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("TODOAPP_SERVER_LOG_LEVEL", "debug")

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	server.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--addr", "127.0.0.1:9090", "--database", ":memory:"}))

	cfg, err := server.LoadConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr, "explicit flag beats env")
	assert.Equal(t, ":memory:", cfg.Database)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"bad log level", "TODOAPP_SERVER_LOG_LEVEL", "loud"},
		{"bad addr", "TODOAPP_SERVER_ADDR", "nowhere"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := server.LoadConfig(nil)
			assert.ErrorContains(t, err, "invalid server config")
		})
	}
}

func TestOpenStoreSQLite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, database := range []string{
		"sqlite:" + filepath.Join(dir, "a", "todos.db"),
		filepath.Join(dir, "b", "todos.db"),
		":memory:",
	} {
		store, err := server.OpenStore(ctx, database)
		require.NoError(t, err, database)
		assert.IsType(t, &sqlite.Store{}, store)
		assert.NoError(t, store.Ping(ctx))
		_ = store.Close()
	}
}

func TestOpenStoreEmptyPath(t *testing.T) {
	_, err := server.OpenStore(context.Background(), "sqlite:")
	assert.Error(t, err)
}
