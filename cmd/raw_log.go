// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"

	"github.com/Thermoquad/ubxstat/internal/logging"
	"github.com/Thermoquad/ubxstat/pkg/ubx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rawLogRecord string

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display UBX frames as they arrive.

Every verified frame is printed with its timestamp, message name, class/id,
length and decoded fields. Frames without a decoder are shown as a hex dump.
Discarded frames (checksum mismatch, oversize) are printed as [ERROR] lines.

Use --record to save the incoming bytes to a capture file that can be played
back later with --replay.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().StringVar(&rawLogRecord, "record", "", "Save incoming bytes to a capture file")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	var src io.Reader = conn
	if rawLogRecord != "" {
		tee, rec, err := recordTo(conn, rawLogRecord)
		if err != nil {
			return err
		}
		defer rec.Close()
		src = tee
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ubxstat - Raw Frame Log\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	if rawLogRecord != "" {
		fmt.Fprintf(out, "Recording: %s\n", rawLogRecord)
	}
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	return logFrames(src, out, cfg.Decoder.MaxPayload)
}

// logFrames prints every frame decoded from r until the source ends
func logFrames(r io.Reader, out io.Writer, maxPayload int) error {
	decoder := ubx.NewDecoderSize(maxPayload)
	buf := make([]byte, 128)

	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			frame, decodeErr := decoder.DecodeByte(buf[i])
			if decodeErr != nil {
				fmt.Fprintf(out, "[ERROR] %v\n", decodeErr)
				continue
			}
			if frame != nil {
				fmt.Fprint(out, ubx.FormatFrame(frame))
			}
		}

		if err != nil {
			if isEndOfStream(err) {
				logging.Info("Source ended", zap.Error(err))
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
	}
}
