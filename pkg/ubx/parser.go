// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import (
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Parser feeds bytes through a Decoder and dispatches every verified frame to
// a Handler.
//
// Discarded frames (checksum mismatch, oversize, short payload) are never
// reported to the Handler; they are logged at debug level and passed to the
// optional error hook. Resynchronization on the next sync byte is the only
// recovery.
//
// A Parser is not safe for concurrent use; see LockedParser.
type Parser struct {
	decoder *Decoder
	handler Handler
	logger  *zap.Logger
	onError func(error)
}

// Option configures a Parser
type Option func(*Parser)

// WithMaxPayload sets the largest payload the parser accepts
func WithMaxPayload(n int) Option {
	return func(p *Parser) {
		p.decoder = NewDecoderSize(n)
	}
}

// WithLogger sets the logger used for discarded frames
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithErrorHandler registers a hook called for each discarded frame. It runs
// synchronously, like Handler methods.
func WithErrorHandler(fn func(error)) Option {
	return func(p *Parser) {
		p.onError = fn
	}
}

// NewParser creates a parser dispatching to h. A nil h is treated as
// NopHandler.
func NewParser(h Handler, opts ...Option) *Parser {
	if h == nil {
		h = NopHandler{}
	}
	p := &Parser{
		decoder: NewDecoder(),
		handler: h,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed processes one byte. If it completes a valid frame, the frame is
// decoded and dispatched before Feed returns.
func (p *Parser) Feed(b byte) {
	frame, err := p.decoder.DecodeByte(b)
	if err != nil {
		p.discard(err)
		return
	}
	if frame == nil {
		return
	}

	msg, err := frame.Message()
	if err != nil {
		p.discard(err)
		return
	}
	msg.dispatch(p.handler)
}

// Write feeds every byte of data. It never fails, so the parser can sit
// behind an io.MultiWriter or io.Copy.
func (p *Parser) Write(data []byte) (int, error) {
	for _, b := range data {
		p.Feed(b)
	}
	return len(data), nil
}

// ReadFrom feeds bytes from r until EOF or a read error
func (p *Parser) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, 512)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			p.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// State returns the current decoder state
func (p *Parser) State() State {
	return p.decoder.State()
}

// Reset abandons any frame in progress
func (p *Parser) Reset() {
	p.decoder.Reset()
}

func (p *Parser) discard(err error) {
	if errors.Is(err, ErrShortPayload) {
		p.logger.Warn("frame discarded", zap.Error(err))
	} else {
		p.logger.Debug("frame discarded", zap.Error(err))
	}
	if p.onError != nil {
		p.onError(err)
	}
}

// LockedParser serializes access to a Parser so several goroutines can feed
// the same stream. Handlers run while the lock is held.
type LockedParser struct {
	mu sync.Mutex
	p  *Parser
}

// NewLockedParser wraps p
func NewLockedParser(p *Parser) *LockedParser {
	return &LockedParser{p: p}
}

// Feed processes one byte under the lock
func (l *LockedParser) Feed(b byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.p.Feed(b)
}

// Write feeds data under the lock, so a chunk is never interleaved with
// another writer's bytes.
func (l *LockedParser) Write(data []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.Write(data)
}

// State returns the current decoder state
func (l *LockedParser) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p.State()
}
