// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. UBXSTAT_SERIAL_BAUD
const EnvPrefix = "UBXSTAT"

// Defaults
const (
	DefaultBaud          = 9600
	DefaultReplaySpeed   = 1.0
	DefaultMaxPayload    = 1000
	DefaultStatsInterval = 10 * time.Second
)

// flagKeys maps command-line flag names to config keys
var flagKeys = map[string]string{
	"port":           "serial.port",
	"baud":           "serial.baud",
	"url":            "websocket.url",
	"username":       "websocket.username",
	"no-ssl-verify":  "websocket.no_ssl_verify",
	"replay":         "replay.path",
	"speed":          "replay.speed",
	"max-payload":    "decoder.max_payload",
	"stats-interval": "monitor.stats_interval",
	"show-all":       "monitor.show_all",
	"tui":            "monitor.tui",
	"log-level":      "log.level",
}

// RegisterFlags defines the source, decoder and logging flags shared by
// every command
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("port", "p", "", "Serial port (e.g. /dev/ttyACM0)")
	fs.IntP("baud", "b", DefaultBaud, "Baud rate")
	fs.StringP("url", "u", "", "WebSocket bridge URL (e.g. ws://192.168.1.100/ubx)")
	fs.String("username", "admin", "WebSocket username")
	fs.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss://)")
	fs.String("replay", "", "Replay a capture file instead of a live source")
	fs.Float64("speed", DefaultReplaySpeed, "Replay speed multiplier (0 = as fast as possible)")
	fs.Int("max-payload", DefaultMaxPayload, "Largest payload accepted before a frame is rejected")
	fs.String("log-level", "", "Diagnostic log level: debug, info, warn, error (default silent)")
}

// setDefaults sets every key so environment overrides are always seen
func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", DefaultBaud)

	v.SetDefault("websocket.url", "")
	v.SetDefault("websocket.username", "admin")
	v.SetDefault("websocket.no_ssl_verify", false)

	v.SetDefault("replay.path", "")
	v.SetDefault("replay.speed", DefaultReplaySpeed)

	v.SetDefault("decoder.max_payload", DefaultMaxPayload)

	v.SetDefault("monitor.stats_interval", DefaultStatsInterval)
	v.SetDefault("monitor.show_all", false)
	v.SetDefault("monitor.tui", true)

	v.SetDefault("log.level", "")
}

// Load builds the configuration from, in priority order:
// 1. Flags explicitly set in fs
// 2. Environment variables (UBXSTAT_ prefix)
// 3. The YAML file at path, if path is not empty
// 4. Defaults
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Defaults
	setDefaults(v)

	// 2. Config file
	if path != "" {
		if err := loadFile(v, path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 3. Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Flags
	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func loadFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", path)
	}

	v.SetConfigFile(path)
	if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// bindFlags binds every known flag present in fs. Flags a command does not
// define are skipped.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}
