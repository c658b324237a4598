// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/ubxstat/internal/logging"
	"github.com/Thermoquad/ubxstat/pkg/ubx"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Validate messages and track framing errors",
	Long: `Track discarded frames and implausible navigation values with statistics.

This command validates each decoded message and detects:
  - Checksum mismatches, oversize frames and truncated payloads
  - Times of week beyond one GPS week
  - Latitude/longitude out of range, horizontal accuracy worse than 10 km
  - Zero DOP values
  - Headings outside 0-360°, speeds above 515 m/s, ground speed above 3-D speed
  - Statistics and trends (message rate, error rate, per-message counts)

By default, only problems are displayed. Use --show-all to display valid
messages too. Errors seen before the first valid frame are counted as sync
noise rather than reported.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().Bool("show-all", false, "Show all messages (not just problems)")
	monitorCmd.Flags().Duration("stats-interval", 10*time.Second, "Statistics summary interval (text mode)")
	monitorCmd.Flags().Bool("tui", true, "Use terminal UI (false for text mode)")
}

// monitorEvents receives what a monitor observes. Implementations run on the
// goroutine feeding the monitor.
type monitorEvents interface {
	synced(discarded int)
	message(m ubx.Message, issues []ubx.ValidationError)
	discarded(err error)
}

// monitor validates every message from a parser and keeps statistics.
// Discarded frames before the first valid message are counted as sync noise.
type monitor struct {
	parser       *ubx.Parser
	stats        *ubx.Statistics
	events       monitorEvents
	synchronized bool
	preSync      int
}

func newMonitor(maxPayload int, events monitorEvents) *monitor {
	m := &monitor{
		stats:  ubx.NewStatistics(),
		events: events,
	}
	m.parser = ubx.NewParser(ubx.HandlerFunc(m.handle),
		ubx.WithMaxPayload(maxPayload),
		ubx.WithLogger(logging.GetLogger()),
		ubx.WithErrorHandler(m.discard),
	)
	return m
}

// Write feeds received bytes
func (m *monitor) Write(p []byte) (int, error) {
	return m.parser.Write(p)
}

func (m *monitor) handle(msg ubx.Message) {
	if !m.synchronized {
		m.synchronized = true
		m.events.synced(m.preSync)
	}

	issues := ubx.ValidateMessage(msg)
	m.stats.Update(msg, nil, issues)
	m.events.message(msg, issues)
}

func (m *monitor) discard(err error) {
	if !m.synchronized {
		m.preSync++
		return
	}
	m.stats.Update(nil, err, nil)
	m.events.discarded(err)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if cfg.Monitor.TUI {
		return runTUIMode(conn, connInfo)
	}
	return runTextMode(cmd.Context(), conn, connInfo, cmd.OutOrStdout())
}

// runTUIMode runs the monitor in a terminal UI. The reader goroutine feeds
// the monitor, which forwards events to the program.
func runTUIMode(conn Connection, connInfo string) error {
	events := &programEvents{}
	mon := newMonitor(cfg.Decoder.MaxPayload, events)

	p := tea.NewProgram(initialModel(connInfo, cfg.Monitor.ShowAll, mon.stats))
	events.p = p

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				mon.Write(buf[:n])
			}
			if err != nil {
				p.Send(sourceEndedMsg{err: err})
				return
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// programEvents forwards monitor events to a bubbletea program
type programEvents struct {
	p *tea.Program
}

func (e *programEvents) synced(discarded int) {
	e.p.Send(syncMsg{discarded: discarded})
}

func (e *programEvents) message(m ubx.Message, issues []ubx.ValidationError) {
	e.p.Send(messageMsg{msg: m, issues: issues})
}

func (e *programEvents) discarded(err error) {
	e.p.Send(discardMsg{err: err})
}

// runTextMode prints problems as they happen and a statistics summary every
// interval, until the source ends or the process is interrupted.
func runTextMode(ctx context.Context, conn Connection, connInfo string, out io.Writer) error {
	fmt.Fprintf(out, "ubxstat - Monitor\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Statistics interval: %s\n", cfg.Monitor.StatsInterval)
	if cfg.Monitor.ShowAll {
		fmt.Fprintf(out, "Mode: All messages\n")
	} else {
		fmt.Fprintf(out, "Mode: Problems only\n")
	}
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon := newMonitor(cfg.Decoder.MaxPayload, &textEvents{out: out, showAll: cfg.Monitor.ShowAll})
	err := monitorStream(ctx, conn, mon, cfg.Monitor.StatsInterval, out)

	fmt.Fprintln(out)
	fmt.Fprint(out, mon.stats.String())
	return err
}

// monitorStream runs the reader and the processing loop. It returns when the
// source ends, ctx is cancelled or the source fails. conn is closed on the
// way out so a blocked Read returns.
func monitorStream(ctx context.Context, conn Connection, mon *monitor, interval time.Duration, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	chunks := make(chan []byte, 16)

	g.Go(func() error {
		defer close(chunks)
		return readChunks(ctx, conn, chunks)
	})

	g.Go(func() error {
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case data, ok := <-chunks:
				if !ok {
					return nil
				}
				mon.Write(data)

			case <-ticker.C:
				fmt.Fprintln(out)
				fmt.Fprint(out, mon.stats.String())
				fmt.Fprintln(out)

			case <-ctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		if err := conn.Close(); err != nil {
			logging.Debug("Close failed", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

// readChunks copies reads from r into out until r ends or ctx is done
func readChunks(ctx context.Context, r io.Reader, out chan<- []byte) error {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case out <- data:
			case <-ctx.Done():
				return nil
			}
		}
		if err != nil {
			if ctx.Err() != nil || isEndOfStream(err) {
				logging.Debug("Reader stopped", zap.Error(err))
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
	}
}

// textEvents prints monitor events with ANSI highlighting
type textEvents struct {
	out     io.Writer
	showAll bool
}

func (t *textEvents) synced(discarded int) {
	if discarded > 0 {
		fmt.Fprintf(t.out, "[SYNC] Synchronized after discarding %d frames\n\n", discarded)
	} else {
		fmt.Fprintf(t.out, "[SYNC] Synchronized\n\n")
	}
}

func (t *textEvents) discarded(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(t.out, "[%s] \033[1;31mFRAME DISCARDED:\033[0m %v\n\n", timestamp, err)
}

func (t *textEvents) message(m ubx.Message, issues []ubx.ValidationError) {
	if len(issues) > 0 {
		printValidationErrors(t.out, m, issues)
		return
	}
	if t.showAll {
		timestamp := time.Now().Format("15:04:05.000")
		key := m.Key()
		fmt.Fprintf(t.out, "[%s] %s (0x%02X 0x%02X)\n", timestamp, ubx.FormatMessageName(key), key.Class, key.ID)
		fmt.Fprint(t.out, ubx.FormatMessage(m))
	}
}

// printValidationErrors prints the issues found in one message
func printValidationErrors(out io.Writer, m ubx.Message, issues []ubx.ValidationError) {
	timestamp := time.Now().Format("15:04:05.000")
	key := m.Key()

	fmt.Fprintf(out, "[%s] \033[1;33mVALIDATION ERROR:\033[0m %s (0x%02X 0x%02X)\n",
		timestamp, ubx.FormatMessageName(key), key.Class, key.ID)
	fmt.Fprintf(out, "  Checksum: \033[1;32mOK\033[0m\n")

	for i, issue := range issues {
		switch issue.Type {
		case ubx.AnomalyInvalidTime, ubx.AnomalyInvalidPosition:
			fmt.Fprintf(out, "  Issue %d: \033[1;31m%s\033[0m\n", i+1, issue.Message)
		default:
			fmt.Fprintf(out, "  Issue %d: \033[1;33m%s\033[0m\n", i+1, issue.Message)
		}
	}

	fmt.Fprint(out, ubx.FormatMessage(m))
	fmt.Fprintf(out, "  >>> MESSAGE FLAGGED <<<\n\n")
}
