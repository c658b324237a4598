// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/ubxstat/pkg/ubx"
	"github.com/spf13/cobra"
)

var linkTestCmd = &cobra.Command{
	Use:   "link_test",
	Short: "Test raw link stability and throughput",
	Long: `Test the connection to a receiver or bridge for a fixed duration.

This command reads the source and reports every chunk received, plus a
heartbeat each second. Bytes are also run through the frame decoder so the
summary shows how many frames verified and how many were discarded. Useful
for debugging flaky cabling, baud mismatches or bridge disconnects.

Exit codes:
  0 - Test completed normally
  1 - Test failed (link dropped)
  2 - Connection error`,
	RunE: runLinkTest,
}

var (
	linkTestDuration time.Duration
	linkTestHex      bool
)

func init() {
	rootCmd.AddCommand(linkTestCmd)
	linkTestCmd.Flags().DurationVar(&linkTestDuration, "duration", 30*time.Second, "Test duration")
	linkTestCmd.Flags().BoolVar(&linkTestHex, "hex", false, "Print received bytes as hex")
}

// linkCounter tallies raw traffic and the frames found in it
type linkCounter struct {
	decoder   *ubx.Decoder
	chunks    int
	bytes     int
	frames    int
	discarded int
}

func newLinkCounter(maxPayload int) *linkCounter {
	return &linkCounter{decoder: ubx.NewDecoderSize(maxPayload)}
}

func (c *linkCounter) add(data []byte) {
	c.chunks++
	c.bytes += len(data)
	for _, b := range data {
		frame, err := c.decoder.DecodeByte(b)
		if err != nil {
			c.discarded++
		} else if frame != nil {
			c.frames++
		}
	}
}

func (c *linkCounter) summary(elapsed time.Duration) string {
	rate := 0.0
	if elapsed > 0 {
		rate = float64(c.bytes) / elapsed.Seconds()
	}
	return fmt.Sprintf("Duration: %s\nChunks received: %d\nBytes received: %d (%.1f B/s)\nFrames verified: %d\nFrames discarded: %d\n",
		elapsed.Round(time.Millisecond), c.chunks, c.bytes, rate, c.frames, c.discarded)
}

func runLinkTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Link Stability Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %s\n\n", linkTestDuration)

	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				readChan <- data
			}
			if err != nil {
				errChan <- err
				return
			}
		}
	}()

	start := time.Now()
	endTime := start.Add(linkTestDuration)
	counter := newLinkCounter(cfg.Decoder.MaxPayload)
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	fmt.Printf("Listening for data...\n\n")

	for time.Now().Before(endTime) {
		select {
		case data := <-readChan:
			counter.add(data)
			if linkTestHex {
				fmt.Printf("[%s] Received %d bytes: %x\n",
					time.Now().Format("15:04:05.000"), len(data), data)
			}

		case err := <-errChan:
			// Drain what arrived before the error
			for len(readChan) > 0 {
				counter.add(<-readChan)
			}
			fmt.Printf("\n--- Test Results ---\n")
			if errors.Is(err, io.EOF) {
				// Replays end with EOF
				fmt.Print(counter.summary(time.Since(start)))
				fmt.Printf("Result: PASSED (source ended)\n")
				return nil
			}
			fmt.Printf("[%s] Connection error: %v\n",
				time.Now().Format("15:04:05.000"), err)
			fmt.Print(counter.summary(time.Since(start)))
			fmt.Printf("Result: FAILED (link dropped)\n")
			conn.Close()
			os.Exit(1)

		case <-heartbeat.C:
			remaining := time.Until(endTime).Seconds()
			fmt.Printf("[%s] Still connected... %d bytes, %d frames (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), counter.bytes, counter.frames, remaining)
		}
	}

	fmt.Printf("\n--- Test Results ---\n")
	fmt.Print(counter.summary(time.Since(start)))
	fmt.Printf("Result: PASSED (link stable)\n")

	return nil
}
