// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// ubxstat - UBX GNSS Protocol Analyzer
//
// A CLI tool for decoding, validating and monitoring u-blox UBX navigation
// messages from a serial port, a WebSocket bridge or a recorded capture.

package main

import (
	"os"

	"github.com/Thermoquad/ubxstat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
