package viper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverConfig struct {
	Addr         string        `mapstructure:"addr"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	MaxConns     int           `mapstructure:"maxConnections"`
}

func TestDefaultsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: 127.0.0.1:9000\n"), 0o600))

	t.Setenv("VIPERTEST_SERVER_MAXCONNECTIONS", "5")

	c := New("VIPERTEST")
	c.SetDefaults(map[string]any{
		"server.addr":           "0.0.0.0:7878",
		"server.writeTimeout":   "10s",
		"server.maxConnections": 10000,
	})
	require.NoError(t, c.LoadFile(path))

	var cfg struct {
		Server serverConfig `mapstructure:"server"`
	}
	require.NoError(t, c.Unmarshal(&cfg))
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 5, cfg.Server.MaxConns)
	assert.Equal(t, 5, c.GetInt("server.maxConnections"))
	assert.Equal(t, 10*time.Second, c.GetDuration("server.writeTimeout"))
}

func TestLoadOptionalFile(t *testing.T) {
	c := New("")
	assert.NoError(t, c.LoadOptionalFile(""))
	assert.Error(t, c.LoadOptionalFile(filepath.Join(t.TempDir(), "missing.yaml")))

	c.Set("game.rooms", 3)
	assert.Equal(t, 3, c.GetInt("game.rooms"))
	assert.True(t, c.IsSet("game.rooms"))
	assert.False(t, c.GetBool("metrics.enabled"))
	assert.Equal(t, "", c.GetString("server.path"))
}
