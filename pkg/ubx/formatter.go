// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import (
	"fmt"
	"math"
	"strings"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")
	name := FormatMessageName(f.Key())

	result := fmt.Sprintf("[%s] %s (0x%02X 0x%02X) len=%d\n", timestamp, name, f.class, f.id, len(f.payload))

	msg, err := f.Message()
	if err != nil {
		return result + fmt.Sprintf("  Decode error: %v\n", err)
	}
	return result + FormatMessage(msg)
}

// FormatMessageName returns the human-readable name for a message key
func FormatMessageName(key MessageKey) string {
	if s, ok := schemas[key]; ok {
		return s.name
	}
	return "UNKNOWN"
}

// FormatMessage formats the decoded fields of a message
func FormatMessage(m Message) string {
	switch m := m.(type) {
	case *NavPosLLH:
		return fmt.Sprintf("  Time: %s\n  Lat: %s, Lon: %s\n  Height: %s (MSL %s)\n  Accuracy: h=%s v=%s\n",
			FormatITOW(m.ITOW),
			formatDegrees(int64(m.Lat), 7), formatDegrees(int64(m.Lon), 7),
			formatMillimetres(int64(m.Height)), formatMillimetres(int64(m.HeightMSL)),
			formatMillimetres(int64(m.HAcc)), formatMillimetres(int64(m.VAcc)))

	case *NavDOP:
		return fmt.Sprintf("  Time: %s\n  DOP: g=%s p=%s t=%s v=%s h=%s n=%s e=%s\n",
			FormatITOW(m.ITOW),
			formatDOP(m.GDOP), formatDOP(m.PDOP), formatDOP(m.TDOP), formatDOP(m.VDOP),
			formatDOP(m.HDOP), formatDOP(m.NDOP), formatDOP(m.EDOP))

	case *NavVelNED:
		return fmt.Sprintf("  Time: %s\n  Velocity: N=%s E=%s D=%s\n  Speed: %s, Ground: %s (±%s)\n  Heading: %s (±%s)\n",
			FormatITOW(m.ITOW),
			formatSpeed(int64(m.VelN)), formatSpeed(int64(m.VelE)), formatSpeed(int64(m.VelD)),
			formatSpeed(int64(m.Speed)), formatSpeed(int64(m.GroundSpeed)), formatSpeed(int64(m.SpeedAcc)),
			formatDegrees(int64(m.Heading), 5), formatDegrees(int64(m.HeadingAcc), 5))

	case *NavSol:
		return fmt.Sprintf("  Time: %s\n", FormatITOW(m.ITOW))

	case *Unknown:
		return formatHexDump(m.Payload)
	}

	return fmt.Sprintf("  %+v\n", m)
}

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// FormatITOW renders a GPS time of week (milliseconds) as weekday and time
func FormatITOW(ms uint32) string {
	day := ms / 86400000
	if int(day) >= len(weekdays) {
		return fmt.Sprintf("%d ms (out of range)", ms)
	}
	rem := ms % 86400000
	hours := rem / 3600000
	minutes := rem / 60000 % 60
	seconds := rem / 1000 % 60
	millis := rem % 1000
	return fmt.Sprintf("%s %02d:%02d:%02d.%03d", weekdays[day], hours, minutes, seconds, millis)
}

// formatDegrees renders v * 10^-decimals degrees
func formatDegrees(v int64, decimals int) string {
	return fmt.Sprintf("%.*f°", decimals, float64(v)/math.Pow10(decimals))
}

func formatMillimetres(mm int64) string {
	return fmt.Sprintf("%.3f m", float64(mm)/1000.0)
}

func formatSpeed(cms int64) string {
	return fmt.Sprintf("%.2f m/s", float64(cms)/100.0)
}

func formatDOP(v uint16) string {
	return fmt.Sprintf("%.2f", float64(v)/100.0)
}

// formatHexDump renders raw payload bytes, 16 per line
func formatHexDump(payload []byte) string {
	if len(payload) == 0 {
		return "  (no payload)\n"
	}
	var sb strings.Builder
	sb.WriteString("  Payload: ")
	for i, b := range payload {
		if i > 0 && i%16 == 0 {
			sb.WriteString("\n           ")
		}
		fmt.Fprintf(&sb, "%02X ", b)
	}
	sb.WriteString("\n")
	return sb.String()
}
