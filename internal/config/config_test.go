// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ubxstat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func newFlagSet(t *testing.T) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	fs.Duration("stats-interval", DefaultStatsInterval, "")
	fs.Bool("show-all", false, "")
	fs.Bool("tui", true, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Serial.Port)
	assert.Equal(t, DefaultBaud, cfg.Serial.Baud)
	assert.Equal(t, "admin", cfg.WebSocket.Username)
	assert.Equal(t, DefaultReplaySpeed, cfg.Replay.Speed)
	assert.Equal(t, DefaultMaxPayload, cfg.Decoder.MaxPayload)
	assert.Equal(t, DefaultStatsInterval, cfg.Monitor.StatsInterval)
	assert.True(t, cfg.Monitor.TUI)
	assert.False(t, cfg.Monitor.ShowAll)
	assert.Equal(t, SourceNone, cfg.Source())
}

func TestLoad_File(t *testing.T) {
	path := writeTempConfig(t, `
serial:
  port: /dev/ttyACM0
  baud: 115200
decoder:
  max_payload: 512
monitor:
  stats_interval: 5s
  show_all: true
  tui: false
log:
  level: debug
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 512, cfg.Decoder.MaxPayload)
	assert.Equal(t, 5*time.Second, cfg.Monitor.StatsInterval)
	assert.True(t, cfg.Monitor.ShowAll)
	assert.False(t, cfg.Monitor.TUI)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, SourceSerial, cfg.Source())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeTempConfig(t, "serial:\n  baud: 115200\n")
	t.Setenv("UBXSTAT_SERIAL_BAUD", "38400")
	t.Setenv("UBXSTAT_REPLAY_SPEED", "2.5")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 38400, cfg.Serial.Baud)
	assert.Equal(t, 2.5, cfg.Replay.Speed)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("UBXSTAT_SERIAL_BAUD", "38400")

	fs := newFlagSet(t)
	require.NoError(t, fs.Parse([]string{"--port", "/dev/ttyUSB1", "-b", "230400", "--stats-interval", "2s", "--tui=false"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 230400, cfg.Serial.Baud)
	assert.Equal(t, 2*time.Second, cfg.Monitor.StatsInterval)
	assert.False(t, cfg.Monitor.TUI)
}

func TestLoad_UnsetFlagsKeepLowerLayers(t *testing.T) {
	path := writeTempConfig(t, "replay:\n  path: flight.cbor\n  speed: 4\n")

	fs := newFlagSet(t)
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "flight.cbor", cfg.Replay.Path)
	assert.Equal(t, 4.0, cfg.Replay.Speed)
	assert.Equal(t, SourceReplay, cfg.Source())
}

func TestLoad_RejectsTwoSources(t *testing.T) {
	fs := newFlagSet(t)
	require.NoError(t, fs.Parse([]string{"--port", "/dev/ttyACM0", "--url", "ws://bridge/ubx"}))

	_, err := Load("", fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one of")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Serial:  SerialConfig{Baud: DefaultBaud},
			Replay:  ReplayConfig{Speed: 1},
			Decoder: DecoderConfig{MaxPayload: DefaultMaxPayload},
			Monitor: MonitorConfig{StatsInterval: time.Second},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero baud", func(c *Config) { c.Serial.Baud = 0 }, "serial.baud"},
		{"zero max payload", func(c *Config) { c.Decoder.MaxPayload = 0 }, "decoder.max_payload"},
		{"max payload over u16", func(c *Config) { c.Decoder.MaxPayload = 65536 }, "decoder.max_payload"},
		{"negative speed", func(c *Config) { c.Replay.Speed = -1 }, "replay.speed"},
		{"zero speed", func(c *Config) { c.Replay.Speed = 0 }, ""},
		{"zero interval", func(c *Config) { c.Monitor.StatsInterval = 0 }, "monitor.stats_interval"},
		{"two sources", func(c *Config) {
			c.Serial.Port = "/dev/ttyACM0"
			c.Replay.Path = "x.cbor"
		}, "only one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRequireSource(t *testing.T) {
	c := &Config{}
	_, err := c.RequireSource()
	assert.ErrorIs(t, err, ErrNoSource)

	c.WebSocket.URL = "ws://bridge/ubx"
	s, err := c.RequireSource()
	require.NoError(t, err)
	assert.Equal(t, SourceWebSocket, s)
	assert.Equal(t, "websocket", s.String())
}

func TestYAML_RoundTrip(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, out, "stats_interval: 10s")
	assert.Contains(t, out, "max_payload: 1000")

	// The rendered document loads back to the same config
	path := writeTempConfig(t, out)
	again, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "websocket")
}
