// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package logging provides structured diagnostic logging for ubxstat.
//
// It wraps a package-level zap logger. Logging is silent unless a level is
// passed to Initialize or set through UBXSTAT_LOG_LEVEL, so decoded output
// on stdout is never interleaved with log lines by default. When enabled,
// log lines go to stderr.
//
// # Log Levels
//
//   - Debug: discarded frames, raw transport chunks
//   - Info: connections opened and closed, replay progress
//   - Warn: short payloads, reconnects
//   - Error: transport failures
//
// # Usage
//
//	if err := logging.Initialize(cfg.Log.Level); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
//	parser := ubx.NewParser(h, ubx.WithLogger(logging.GetLogger()))
package logging
