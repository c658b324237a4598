// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prev := logger
	SetLogger(zap.New(core))
	t.Cleanup(func() { logger = prev })
	return logs
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	prev := logger
	t.Cleanup(func() { logger = prev })

	require.NoError(t, Initialize(""))
	assert.False(t, GetLogger().Core().Enabled(zapcore.ErrorLevel))
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	prev := logger
	t.Cleanup(func() { logger = prev })

	require.NoError(t, Initialize(""))
	assert.True(t, GetLogger().Core().Enabled(zapcore.WarnLevel))
	assert.False(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
}

func TestInitialize_ExplicitLevelWins(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "error")
	prev := logger
	t.Cleanup(func() { logger = prev })

	require.NoError(t, Initialize("debug"))
	assert.True(t, GetLogger().Core().Enabled(zapcore.DebugLevel))
}

func TestGetLogger_NeverNil(t *testing.T) {
	prev := logger
	t.Cleanup(func() { logger = prev })

	logger = nil
	assert.NotNil(t, GetLogger())
}

func TestHelpers(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
	LogConnection("serial", "/dev/ttyACM0", "opened")

	entries := logs.All()
	require.Len(t, entries, 5)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "serial", entries[4].ContextMap()["transport"])
	assert.Equal(t, "opened", entries[4].ContextMap()["event"])
}

func TestLogRawBytes(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	LogRawBytes("chunk", []byte{0xB5, 0x62, 'A', 'B'})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(4), fields["length"])
	assert.Equal(t, "b5624142", fields["hex"])
	assert.Equal(t, "..AB", fields["ascii"])
}

func TestLogRawBytes_SkippedAboveDebug(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)
	LogRawBytes("chunk", []byte{0x01})
	assert.Equal(t, 0, logs.Len())
}

func TestDumpsAreCapped(t *testing.T) {
	data := []byte(strings.Repeat("x", maxDumpBytes+10))
	assert.True(t, strings.HasSuffix(hexDump(data), "..."))
	assert.Len(t, asciiDump(data), maxDumpBytes)
	assert.Empty(t, hexDump(nil))
	assert.Empty(t, asciiDump(nil))
}
