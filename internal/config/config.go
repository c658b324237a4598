// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads ubxstat settings from defaults, an optional YAML file,
// UBXSTAT_* environment variables and command-line flags, in increasing
// priority.
package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the effective ubxstat configuration
type Config struct {
	Serial    SerialConfig    `mapstructure:"serial" yaml:"serial"`
	WebSocket WebSocketConfig `mapstructure:"websocket" yaml:"websocket"`
	Replay    ReplayConfig    `mapstructure:"replay" yaml:"replay"`
	Decoder   DecoderConfig   `mapstructure:"decoder" yaml:"decoder"`
	Monitor   MonitorConfig   `mapstructure:"monitor" yaml:"monitor"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// SerialConfig selects a serial port source
type SerialConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
	Baud int    `mapstructure:"baud" yaml:"baud"`
}

// WebSocketConfig selects a WebSocket bridge source. The password is never
// stored here; it comes from UBXSTAT_PASSWORD or a prompt.
type WebSocketConfig struct {
	URL         string `mapstructure:"url" yaml:"url"`
	Username    string `mapstructure:"username" yaml:"username"`
	NoSSLVerify bool   `mapstructure:"no_ssl_verify" yaml:"no_ssl_verify"`
}

// ReplayConfig selects a capture file source
type ReplayConfig struct {
	Path  string  `mapstructure:"path" yaml:"path"`
	Speed float64 `mapstructure:"speed" yaml:"speed"` // 0 = as fast as possible
}

// DecoderConfig tunes the frame decoder
type DecoderConfig struct {
	MaxPayload int `mapstructure:"max_payload" yaml:"max_payload"`
}

// MonitorConfig tunes the monitor command
type MonitorConfig struct {
	StatsInterval time.Duration `mapstructure:"stats_interval" yaml:"stats_interval"`
	ShowAll       bool          `mapstructure:"show_all" yaml:"show_all"`
	TUI           bool          `mapstructure:"tui" yaml:"tui"`
}

// MarshalYAML renders the interval as a duration string
func (m MonitorConfig) MarshalYAML() (interface{}, error) {
	return struct {
		StatsInterval string `yaml:"stats_interval"`
		ShowAll       bool   `yaml:"show_all"`
		TUI           bool   `yaml:"tui"`
	}{m.StatsInterval.String(), m.ShowAll, m.TUI}, nil
}

// LogConfig sets the diagnostic log level; empty means silent
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Source identifies where bytes are read from
type Source int

const (
	SourceNone Source = iota
	SourceSerial
	SourceWebSocket
	SourceReplay
)

// String returns the source name
func (s Source) String() string {
	switch s {
	case SourceSerial:
		return "serial"
	case SourceWebSocket:
		return "websocket"
	case SourceReplay:
		return "replay"
	default:
		return "none"
	}
}

// ErrNoSource is returned by RequireSource when no transport is configured
var ErrNoSource = errors.New("no source configured: use --port, --url or --replay")

// Source returns the configured byte source. Validate guarantees at most one.
func (c *Config) Source() Source {
	switch {
	case c.Serial.Port != "":
		return SourceSerial
	case c.WebSocket.URL != "":
		return SourceWebSocket
	case c.Replay.Path != "":
		return SourceReplay
	default:
		return SourceNone
	}
}

// RequireSource returns the configured source, or ErrNoSource
func (c *Config) RequireSource() (Source, error) {
	s := c.Source()
	if s == SourceNone {
		return s, ErrNoSource
	}
	return s, nil
}

// Validate checks the configuration for conflicting or out-of-range values
func (c *Config) Validate() error {
	sources := 0
	for _, set := range []bool{c.Serial.Port != "", c.WebSocket.URL != "", c.Replay.Path != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return fmt.Errorf("only one of --port, --url or --replay may be set")
	}

	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Decoder.MaxPayload < 1 || c.Decoder.MaxPayload > 65535 {
		return fmt.Errorf("decoder.max_payload must be in 1..65535, got %d", c.Decoder.MaxPayload)
	}
	if c.Replay.Speed < 0 {
		return fmt.Errorf("replay.speed must not be negative, got %g", c.Replay.Speed)
	}
	if c.Monitor.StatsInterval <= 0 {
		return fmt.Errorf("monitor.stats_interval must be positive, got %s", c.Monitor.StatsInterval)
	}

	return nil
}

// YAML renders the configuration as a YAML document
func (c *Config) YAML() (string, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(b), nil
}
