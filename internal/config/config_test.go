package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestTickDuration(t *testing.T) {
	cfg := Default().Sim
	assert.Equal(t, time.Second/60, cfg.TickDuration())
	assert.InDelta(t, 1.0/60.0, cfg.Dt(), 1e-12)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	payload := `
server:
  listen_addr: "0.0.0.0:9100"
  log_level: debug
sim:
  tick_rate: 30
  fence_radius: 50
  spawn_radius: 20
  ai_count: 2
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9100", cfg.Server.ListenAddr)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 30, cfg.Sim.TickRate)
	assert.Equal(t, 50.0, cfg.Sim.FenceRadius)
	assert.Equal(t, 2, cfg.Sim.AICount)

	// Untouched values keep their defaults.
	assert.Equal(t, 1.5, cfg.Sim.MaxSpeed)
	assert.Equal(t, 0.9, cfg.Sim.TiltDeathAngle)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"zero tick rate", "sim:\n  tick_rate: 0\n"},
		{"negative fence", "sim:\n  fence_radius: -5\n"},
		{"spawn beyond fence", "sim:\n  spawn_radius: 500\n"},
		{"negative ai count", "sim:\n  ai_count: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.payload), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{{not yaml"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
