// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/ubxstat/pkg/ubx"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for notices
}

// TUI model
type model struct {
	connInfo      string
	showAll       bool
	stats         *ubx.Statistics
	eventLog      []logEntry
	maxLogEntries int
	synchronized  bool
	discarded     int
	sourceEnded   bool
	width         int
	height        int
	quitting      bool
	spinner       spinner.Model

	// Latest navigation solution
	position *ubx.NavPosLLH
	velocity *ubx.NavVelNED
	dop      *ubx.NavDOP
}

// Messages
type tickMsg time.Time
type syncMsg struct {
	discarded int
}
type messageMsg struct {
	msg    ubx.Message
	issues []ubx.ValidationError
}
type discardMsg struct {
	err error
}
type sourceEndedMsg struct {
	err error
}

// formatDuration formats a duration as a human-friendly string, e.g.
// "1 hour, 2 minutes, and 3 seconds"
func formatDuration(d time.Duration) string {
	total := int64(d / time.Second)
	units := []struct {
		name  string
		value int64
	}{
		{"day", total / 86400},
		{"hour", total / 3600 % 24},
		{"minute", total / 60 % 60},
		{"second", total % 60},
	}

	parts := []string{}
	for i, u := range units {
		last := i == len(units)-1
		if u.value == 0 && !(last && len(parts) == 0) {
			continue
		}
		if u.value == 1 {
			parts = append(parts, "1 "+u.name)
		} else {
			parts = append(parts, fmt.Sprintf("%d %ss", u.value, u.name))
		}
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialModel(connInfo string, showAll bool, stats *ubx.Statistics) model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("11"))),
	)
	if stats == nil {
		stats = ubx.NewStatistics()
	}
	return model{
		connInfo:      connInfo,
		showAll:       showAll,
		stats:         stats,
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
		spinner:       s,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.spinner.Tick,
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		// Redraw so rates stay current
		return m, tickCmd()

	case spinner.TickMsg:
		if m.synchronized {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case syncMsg:
		m.synchronized = true
		m.discarded = msg.discarded
		if msg.discarded > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after discarding %d frames", msg.discarded), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case messageMsg:
		m.recordSolution(msg.msg)
		name := ubx.FormatMessageName(msg.msg.Key())
		if _, ok := msg.msg.(*ubx.Unknown); ok {
			name = fmt.Sprintf("0x%02X 0x%02X", msg.msg.Key().Class, msg.msg.Key().ID)
		}

		if len(msg.issues) > 0 {
			for _, issue := range msg.issues {
				m.addLogEntry(fmt.Sprintf("%s: %s", name, issue.Message), true)
			}
		} else if m.showAll {
			m.addLogEntry(fmt.Sprintf("%s (valid)", name), false)
		}

	case discardMsg:
		m.addLogEntry(fmt.Sprintf("DISCARDED: %v", msg.err), true)

	case sourceEndedMsg:
		m.sourceEnded = true
		if isEndOfStream(msg.err) {
			m.addLogEntry("Source ended", false)
		} else {
			m.addLogEntry(fmt.Sprintf("Read error: %v", msg.err), true)
		}
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// recordSolution keeps the latest message of each navigation type
func (m *model) recordSolution(msg ubx.Message) {
	switch msg := msg.(type) {
	case *ubx.NavPosLLH:
		m.position = msg
	case *ubx.NavVelNED:
		m.velocity = msg
	case *ubx.NavDOP:
		m.dop = msg
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("UBXSTAT - MONITOR"))
	s.WriteString("\n")
	mode := "Problems only"
	if m.showAll {
		mode = "All messages"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | 'r' reset, 'q' quit", m.connInfo, mode)))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case !m.synchronized && m.sourceEnded:
		s.WriteString(errorStyle.Render("✗ Source ended before synchronization"))
	case !m.synchronized:
		s.WriteString(m.spinner.View() + " " + warningStyle.Render("Waiting for synchronization..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.discarded > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (discarded %d frames)", m.discarded)))
		}
	}
	s.WriteString("\n\n")

	// Statistics
	snap := m.stats.Snapshot()
	discards := snap.ChecksumErrors + snap.OversizeFrames + snap.ShortPayloads
	var validPercent, errorPercent float64
	if snap.TotalFrames > 0 {
		validPercent = float64(snap.ValidMessages) * 100.0 / float64(snap.TotalFrames)
		errorPercent = float64(discards+snap.Anomalies) * 100.0 / float64(snap.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", snap.ValidMessages, validPercent)),
		statsLabelStyle.Render("Problems:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", discards+snap.Anomalies, errorPercent)),
	))

	if discards > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Checksum:"), errorStyle.Render(fmt.Sprintf("%d", snap.ChecksumErrors)),
			statsLabelStyle.Render("Oversize:"), errorStyle.Render(fmt.Sprintf("%d", snap.OversizeFrames)),
			statsLabelStyle.Render("Short:"), errorStyle.Render(fmt.Sprintf("%d", snap.ShortPayloads)),
		))
	}

	if snap.Anomalies > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s",
			statsLabelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", snap.Anomalies)),
		))
		parts := []string{}
		for t := ubx.AnomalyInvalidTime; t <= ubx.AnomalyInconsistentSpeed; t++ {
			if n := snap.AnomalyCounts[t]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s: %d", headerStyle.Render(strings.ToLower(t.String())), n))
			}
		}
		if len(parts) > 0 {
			statsContent.WriteString(" (" + strings.Join(parts, ", ") + ")")
		}
		statsContent.WriteString("\n")
	}

	if snap.UnknownMessages > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Unknown:"), warningStyle.Render(fmt.Sprintf("%d", snap.UnknownMessages)),
		))
	}

	errorRate := statsValueStyle.Render(fmt.Sprintf("%.1f err/s", snap.ErrorRate))
	if snap.ErrorRate > 0 {
		errorRate = errorStyle.Render(fmt.Sprintf("%.1f err/s", snap.ErrorRate))
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
		statsLabelStyle.Render("Message Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f msg/s", snap.MessageRate)),
		statsLabelStyle.Render("Error Rate:"), errorRate,
	))
	statsContent.WriteString(fmt.Sprintf("%s %s",
		statsLabelStyle.Render("Running:"), statsValueStyle.Render(formatDuration(time.Since(snap.StartTime))),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Navigation section (only shown once a solution arrives)
	if m.position != nil || m.velocity != nil || m.dop != nil {
		s.WriteString(statsLabelStyle.Render("Latest Solution:"))
		s.WriteString("\n")

		navContent := strings.Builder{}
		if p := m.position; p != nil {
			navContent.WriteString(fmt.Sprintf("%s %s\n",
				statsLabelStyle.Render("Time:"), statsValueStyle.Render(ubx.FormatITOW(p.ITOW))))
			navContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
				statsLabelStyle.Render("Lat:"), statsValueStyle.Render(fmt.Sprintf("%.7f°", float64(p.Lat)/1e7)),
				statsLabelStyle.Render("Lon:"), statsValueStyle.Render(fmt.Sprintf("%.7f°", float64(p.Lon)/1e7)),
			))
			navContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
				statsLabelStyle.Render("Height (MSL):"), statsValueStyle.Render(fmt.Sprintf("%.3f m", float64(p.HeightMSL)/1000)),
				statsLabelStyle.Render("hAcc:"), statsValueStyle.Render(fmt.Sprintf("%.3f m", float64(p.HAcc)/1000)),
			))
		}
		if v := m.velocity; v != nil {
			navContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
				statsLabelStyle.Render("Ground Speed:"), statsValueStyle.Render(fmt.Sprintf("%.2f m/s", float64(v.GroundSpeed)/100)),
				statsLabelStyle.Render("Heading:"), statsValueStyle.Render(fmt.Sprintf("%.1f°", float64(v.Heading)/1e5)),
			))
		}
		if d := m.dop; d != nil {
			navContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
				statsLabelStyle.Render("pDOP:"), statsValueStyle.Render(fmt.Sprintf("%.2f", float64(d.PDOP)/100)),
				statsLabelStyle.Render("hDOP:"), statsValueStyle.Render(fmt.Sprintf("%.2f", float64(d.HDOP)/100)),
				statsLabelStyle.Render("vDOP:"), statsValueStyle.Render(fmt.Sprintf("%.2f", float64(d.VDOP)/100)),
			))
		}

		s.WriteString(boxStyle.Render(strings.TrimSuffix(navContent.String(), "\n")))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 20 // Reserve space for header, stats and solution
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
