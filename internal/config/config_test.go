package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, ":memory:", cfg.Store.DSN)
	assert.True(t, cfg.Store.Seed)
	assert.Equal(t, 0, cfg.Translate.MaxDepth)
	assert.True(t, cfg.Translate.StrictReferences)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relplan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  shutdown_timeout: 2s
translate:
  max_depth: 8
  strict_references: false
`), 0o644))

	t.Setenv("RELPLAN_LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "file:test.db")

	v := viper.New()
	SetDefaults(v)
	require.NoError(t, BindEnv(v))
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 8, cfg.Translate.MaxDepth)
	assert.False(t, cfg.Translate.StrictReferences)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "file:test.db", cfg.Store.DSN)
}

func TestLoad_LegacyPort(t *testing.T) {
	t.Setenv("PORT", "9191")

	v := viper.New()
	SetDefaults(v)
	require.NoError(t, BindEnv(v))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Translate.MaxDepth = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Translate.MaxDepth = 0
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Log.Format = "xml"
	assert.Error(t, cfg.Validate())
}
