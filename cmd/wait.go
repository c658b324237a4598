// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/ubxstat/pkg/ubx"
	"github.com/spf13/cobra"
)

var waitTimeout time.Duration

// errSourceExhausted means the source ended before a valid frame arrived
var errSourceExhausted = errors.New("source ended without a valid frame")

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Test connection by waiting for a valid UBX message",
	Long: `Wait for a valid UBX message on the connection until timeout.

This command connects to the configured source and waits for any frame that
passes its checksum and decodes. Noise and discarded frames are ignored.

Exit codes:
  0 - Message received before timeout
  1 - Timeout reached (or replay ended) without a valid message
  2 - Connection error

Useful in scripts to check a receiver is wired up and talking UBX.`,
	RunE: runWait,
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 10*time.Second, "How long to wait for a message")
}

func runWait(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("ubxstat - Wait\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %s\n", waitTimeout)
	fmt.Printf("Waiting for valid UBX message...\n\n")

	ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
	defer cancel()

	frame, discarded, err := waitForFrame(ctx, conn, cfg.Decoder.MaxPayload)
	switch {
	case err == nil:
		if discarded > 0 {
			fmt.Printf("(discarded %d frames before sync)\n", discarded)
		}
		ckA, ckB := frame.Checksum()
		fmt.Printf("SUCCESS: Received valid message\n")
		fmt.Printf("  Type: %s (0x%02X 0x%02X)\n", ubx.FormatMessageName(frame.Key()), frame.Class(), frame.ID())
		fmt.Printf("  Length: %d bytes\n", frame.Length())
		fmt.Printf("  Checksum: 0x%02X 0x%02X\n", ckA, ckB)
		conn.Close()
		os.Exit(0)

	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid message received within %s\n", waitTimeout)
		conn.Close()
		os.Exit(1)

	case errors.Is(err, errSourceExhausted):
		fmt.Fprintf(os.Stderr, "NO DATA: %v\n", err)
		conn.Close()
		os.Exit(1)

	default:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		conn.Close()
		os.Exit(2)
	}

	return nil
}

// waitForFrame reads r until a frame verifies and decodes, ctx is done, or
// the source fails. It also returns the number of frames discarded first.
//
// The reader goroutine may stay blocked in Read after ctx is done; closing
// the source releases it.
func waitForFrame(ctx context.Context, r io.Reader, maxPayload int) (*ubx.Frame, int, error) {
	type result struct {
		frame     *ubx.Frame
		discarded int
		err       error
	}
	done := make(chan result, 1)

	go func() {
		decoder := ubx.NewDecoderSize(maxPayload)
		buf := make([]byte, 128)
		discarded := 0
		for {
			n, err := r.Read(buf)
			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil {
					discarded++
					continue
				}
				if frame == nil {
					continue
				}
				if _, msgErr := frame.Message(); msgErr != nil {
					discarded++
					continue
				}
				done <- result{frame: frame, discarded: discarded}
				return
			}
			if err != nil {
				if isEndOfStream(err) {
					err = errSourceExhausted
				}
				done <- result{discarded: discarded, err: err}
				return
			}
		}
	}()

	select {
	case res := <-done:
		return res.frame, res.discarded, res.err
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}
