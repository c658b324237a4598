// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

// ErrPlayerClosed is returned by Read once Close has been called
var ErrPlayerClosed = errors.New("read from closed player")

// Sleeper waits between records. Tests substitute a fake.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// PlayerOption configures a Player
type PlayerOption func(*Player)

// WithSleeper replaces time.Sleep for pacing
func WithSleeper(s Sleeper) PlayerOption {
	return func(p *Player) {
		if s != nil {
			p.sleeper = s
		}
	}
}

// Player replays a capture as an io.ReadCloser, releasing each record after
// the gap that preceded it in the original capture.
//
// speed: 1.0 = real time, 2.0 = twice as fast, 0 = no pacing.
type Player struct {
	r       *Reader
	closer  io.Closer
	speed   float64
	sleeper Sleeper

	pending []byte
	lastAt  time.Duration
	started bool
	closed  atomic.Bool
}

// NewPlayer reads the capture header from r. If r is an io.Closer, Close
// closes it.
func NewPlayer(r io.Reader, speed float64, opts ...PlayerOption) (*Player, error) {
	if speed < 0 {
		return nil, fmt.Errorf("replay speed must not be negative, got %g", speed)
	}
	cr, err := NewReader(r)
	if err != nil {
		return nil, err
	}

	p := &Player{r: cr, speed: speed, sleeper: realSleeper{}}
	if c, ok := r.(io.Closer); ok {
		p.closer = c
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Open opens a capture file for replay
func Open(path string, speed float64, opts ...PlayerOption) (*Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	p, err := NewPlayer(f, speed, opts...)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Start returns the wall-clock time the capture was recorded
func (p *Player) Start() time.Time {
	return p.r.Start()
}

// Read returns bytes from the current record, waiting for the next record
// when the current one is used up. It returns io.EOF after the last record.
// Close may be called from another goroutine while Read is pacing; Read then
// returns ErrPlayerClosed.
func (p *Player) Read(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrPlayerClosed
	}
	for len(p.pending) == 0 {
		rec, err := p.r.Next()
		if err != nil {
			if p.closed.Load() {
				return 0, ErrPlayerClosed
			}
			return 0, err
		}
		p.wait(rec.At)
		if p.closed.Load() {
			return 0, ErrPlayerClosed
		}
		p.pending = rec.Data
	}

	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

// wait sleeps for the gap between the previous record and one at offset at
func (p *Player) wait(at time.Duration) {
	defer func() {
		p.lastAt = at
		p.started = true
	}()
	if !p.started || p.speed == 0 {
		return
	}
	gap := at - p.lastAt
	if gap <= 0 {
		return
	}
	if d := time.Duration(float64(gap) / p.speed); d > 0 {
		p.sleeper.Sleep(d)
	}
}

// Close releases the underlying reader
func (p *Player) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
