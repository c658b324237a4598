// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records raw transport bytes to a file and replays them
// with their original timing.
//
// A capture is a CBOR sequence. The first item is a header map
// {1: "ubxstat-capture", 2: version, 3: start unix nanos}; every following
// item is a record map {1: offset nanos since start, 2: bytes}. Records hold
// transport chunks exactly as read, so replay reproduces framing noise and
// split frames as well as the frames themselves.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Format identification
const (
	Magic   = "ubxstat-capture"
	Version = 1
)

// ErrBadHeader is returned when a file is not a capture this package can read
var ErrBadHeader = errors.New("not a ubxstat capture")

type header struct {
	Magic   string `cbor:"1,keyasint"`
	Version int    `cbor:"2,keyasint"`
	Start   int64  `cbor:"3,keyasint"`
}

type record struct {
	At   int64  `cbor:"1,keyasint"`
	Data []byte `cbor:"2,keyasint"`
}

// Record is one chunk of transport bytes and when it arrived
type Record struct {
	At   time.Duration // since the start of the capture
	Data []byte
}

// ============================================================
// Writer
// ============================================================

// Writer appends records to a capture. It implements io.Writer so it can sit
// behind io.TeeReader; each Write call becomes one record. It is safe for
// concurrent use.
type Writer struct {
	mu     sync.Mutex
	enc    *cbor.Encoder
	buf    *bufio.Writer
	closer io.Closer
	start  time.Time
	now    func() time.Time
	closed bool
}

// NewWriter writes a capture header to w and returns a Writer for records
func NewWriter(w io.Writer) (*Writer, error) {
	cw := &Writer{
		enc:   cbor.NewEncoder(w),
		start: time.Now(),
		now:   time.Now,
	}
	if err := cw.writeHeader(); err != nil {
		return nil, err
	}
	return cw, nil
}

// Create creates (or truncates) a capture file at path
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture: %w", err)
	}
	bw := bufio.NewWriterSize(f, 64*1024)

	cw := &Writer{
		enc:    cbor.NewEncoder(bw),
		buf:    bw,
		closer: f,
		start:  time.Now(),
		now:    time.Now,
	}
	if err := cw.writeHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return cw, nil
}

func (w *Writer) writeHeader() error {
	h := header{Magic: Magic, Version: Version, Start: w.start.UnixNano()}
	if err := w.enc.Encode(h); err != nil {
		return fmt.Errorf("failed to write capture header: %w", err)
	}
	return nil
}

// Write records p as one chunk stamped with the time since the capture
// started. Empty writes are not recorded.
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writeRecord(w.now().Sub(w.start), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteRecord appends a record with an explicit offset
func (w *Writer) WriteRecord(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeRecord(rec.At, rec.Data)
}

func (w *Writer) writeRecord(at time.Duration, data []byte) error {
	if w.closed {
		return errors.New("capture writer is closed")
	}
	if at < 0 {
		at = 0
	}
	if err := w.enc.Encode(record{At: at.Nanoseconds(), Data: data}); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	return nil
}

// Close flushes and closes the file opened by Create. For a Writer made with
// NewWriter it only stops further writes.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if w.buf != nil {
		if err := w.buf.Flush(); err != nil {
			if w.closer != nil {
				_ = w.closer.Close()
			}
			return err
		}
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// ============================================================
// Reader
// ============================================================

// Reader reads records from a capture
type Reader struct {
	dec   *cbor.Decoder
	start time.Time
}

// NewReader reads and checks the capture header
func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(r)

	var h header
	if err := dec.Decode(&h); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrBadHeader)
		}
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if h.Magic != Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadHeader, h.Magic)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadHeader, h.Version)
	}

	return &Reader{dec: dec, start: time.Unix(0, h.Start)}, nil
}

// Start returns the wall-clock time the capture began
func (r *Reader) Start() time.Time {
	return r.start
}

// Next returns the next record, or io.EOF after the last one
func (r *Reader) Next() (Record, error) {
	var rec record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("invalid capture record: %w", err)
	}
	if rec.At < 0 {
		return Record{}, fmt.Errorf("invalid capture record: negative offset %d", rec.At)
	}
	return Record{At: time.Duration(rec.At), Data: rec.Data}, nil
}

// ReadAll returns every remaining record
func (r *Reader) ReadAll() ([]Record, error) {
	var recs []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}
