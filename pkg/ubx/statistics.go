// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Counters holds the values tracked by Statistics
type Counters struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	TotalFrames     uint64 // verified frames plus discarded frames
	ValidMessages   uint64 // decoded, no anomalies
	UnknownMessages uint64
	ChecksumErrors  uint64
	OversizeFrames  uint64
	ShortPayloads   uint64
	Anomalies       uint64 // messages with at least one anomaly

	AnomalyCounts map[AnomalyType]uint64
	MessageCounts map[string]uint64

	// Rates (calculated)
	MessageRate float64 // messages/sec
	ErrorRate   float64 // errors/sec
}

// Statistics tracks message statistics and error rates. It is safe for
// concurrent use.
type Statistics struct {
	mu sync.Mutex
	Counters
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{Counters: Counters{
		StartTime:      now,
		LastUpdateTime: now,
		AnomalyCounts:  make(map[AnomalyType]uint64),
		MessageCounts:  make(map[string]uint64),
	}}
}

// Update records one decoded message, or one discarded frame when err is
// non-nil.
func (s *Statistics) Update(msg Message, err error, anomalies []ValidationError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if err != nil {
		switch {
		case errors.Is(err, ErrChecksumMismatch):
			s.ChecksumErrors++
		case errors.Is(err, ErrPayloadTooLarge):
			s.OversizeFrames++
		case errors.Is(err, ErrShortPayload):
			s.ShortPayloads++
		}
		return
	}
	if msg == nil {
		return
	}

	name := FormatMessageName(msg.Key())
	if _, ok := msg.(*Unknown); ok {
		s.UnknownMessages++
		name = fmt.Sprintf("0x%02X-0x%02X", msg.Key().Class, msg.Key().ID)
	}
	s.MessageCounts[name]++

	if len(anomalies) > 0 {
		s.Anomalies++
		for _, a := range anomalies {
			s.AnomalyCounts[a.Type]++
		}
	} else {
		s.ValidMessages++
	}
}

// Errors returns the number of discarded frames
func (s *Statistics) Errors() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors()
}

func (s *Statistics) errors() uint64 {
	return s.ChecksumErrors + s.OversizeFrames + s.ShortPayloads
}

// CalculateRates calculates message and error rates
func (s *Statistics) CalculateRates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
}

func (s *Statistics) calculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		decoded := s.TotalFrames - s.errors()
		s.MessageRate = float64(decoded) / elapsed
		s.ErrorRate = float64(s.errors()) / elapsed
	}
}

// Snapshot returns a copy of the counters, with rates recalculated
func (s *Statistics) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()

	snap := Counters{
		StartTime:       s.StartTime,
		LastUpdateTime:  s.LastUpdateTime,
		TotalFrames:     s.TotalFrames,
		ValidMessages:   s.ValidMessages,
		UnknownMessages: s.UnknownMessages,
		ChecksumErrors:  s.ChecksumErrors,
		OversizeFrames:  s.OversizeFrames,
		ShortPayloads:   s.ShortPayloads,
		Anomalies:       s.Anomalies,
		AnomalyCounts:   make(map[AnomalyType]uint64, len(s.AnomalyCounts)),
		MessageCounts:   make(map[string]uint64, len(s.MessageCounts)),
		MessageRate:     s.MessageRate,
		ErrorRate:       s.ErrorRate,
	}
	for k, v := range s.AnomalyCounts {
		snap.AnomalyCounts[k] = v
	}
	for k, v := range s.MessageCounts {
		snap.MessageCounts[k] = v
	}
	return snap
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	snap := s.Snapshot()

	var validPercent, checksumPercent, anomalyPercent float64
	if snap.TotalFrames > 0 {
		validPercent = float64(snap.ValidMessages) * 100.0 / float64(snap.TotalFrames)
		checksumPercent = float64(snap.ChecksumErrors) * 100.0 / float64(snap.TotalFrames)
		anomalyPercent = float64(snap.Anomalies) * 100.0 / float64(snap.TotalFrames)
	}

	elapsed := time.Since(snap.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", snap.TotalFrames)
	result += fmt.Sprintf("Valid Messages:  %8d (%.1f%%)\n", snap.ValidMessages, validPercent)

	if snap.UnknownMessages > 0 {
		result += fmt.Sprintf("Unknown:         %8d\n", snap.UnknownMessages)
	}
	if snap.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", snap.ChecksumErrors, checksumPercent)
	}
	if snap.OversizeFrames > 0 {
		result += fmt.Sprintf("Oversize Frames: %8d\n", snap.OversizeFrames)
	}
	if snap.ShortPayloads > 0 {
		result += fmt.Sprintf("Short Payloads:  %8d\n", snap.ShortPayloads)
	}
	if snap.Anomalies > 0 {
		result += fmt.Sprintf("Anomalous:       %8d (%.1f%%)\n", snap.Anomalies, anomalyPercent)
		types := make([]AnomalyType, 0, len(snap.AnomalyCounts))
		for t := range snap.AnomalyCounts {
			types = append(types, t)
		}
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
		for _, t := range types {
			result += fmt.Sprintf("  %-18s %5d\n", t.String()+":", snap.AnomalyCounts[t])
		}
	}

	if len(snap.MessageCounts) > 0 {
		names := make([]string, 0, len(snap.MessageCounts))
		for name := range snap.MessageCounts {
			names = append(names, name)
		}
		sort.Strings(names)
		result += "By Message:\n"
		for _, name := range names {
			result += fmt.Sprintf("  %-18s %5d\n", name+":", snap.MessageCounts[name])
		}
	}

	result += fmt.Sprintf("Message Rate:    %8.1f msgs/sec\n", snap.MessageRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", snap.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalFrames = 0
	s.ValidMessages = 0
	s.UnknownMessages = 0
	s.ChecksumErrors = 0
	s.OversizeFrames = 0
	s.ShortPayloads = 0
	s.Anomalies = 0
	s.AnomalyCounts = make(map[AnomalyType]uint64)
	s.MessageCounts = make(map[string]uint64)
	s.MessageRate = 0
	s.ErrorRate = 0
}
