// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import (
	"fmt"
	"time"
)

// Decoder implements the UBX frame synchronizer state machine.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	state    State
	class    uint8
	id       uint8
	length   uint16
	payload  []byte // len(payload) is the payload index
	checksum Checksum
}

// NewDecoder creates a decoder with the default payload capacity
func NewDecoder() *Decoder {
	return NewDecoderSize(MaxPayloadSize)
}

// NewDecoderSize creates a decoder that rejects frames declaring more than
// maxPayload payload bytes. It panics if maxPayload is not positive.
func NewDecoderSize(maxPayload int) *Decoder {
	if maxPayload <= 0 {
		panic(fmt.Sprintf("ubx: invalid payload capacity %d", maxPayload))
	}
	return &Decoder{
		state:   StateIdle,
		payload: make([]byte, 0, maxPayload),
	}
}

// Reset resets the decoder state to idle
func (d *Decoder) Reset() {
	d.state = StateIdle
	d.class = 0
	d.id = 0
	d.length = 0
	d.payload = d.payload[:0]
	d.checksum.Reset()
}

// State returns the current decoder state
func (d *Decoder) State() State {
	return d.state
}

// Buffered returns the number of payload bytes received for the frame in
// progress
func (d *Decoder) Buffered() int {
	return len(d.payload)
}

// Capacity returns the largest payload the decoder accepts
func (d *Decoder) Capacity() int {
	return cap(d.payload)
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed frame, or nil if no frame completed with this byte.
// A non-nil error means a frame was discarded; the decoder is already back
// in StateIdle and ready to resynchronize.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	// A sync byte restarts framing from any state
	if b == Sync1 {
		d.state = StateSync1
		return nil, nil
	}

	switch d.state {
	case StateSync1:
		if b == Sync2 {
			d.state = StateSync2
			d.checksum.Reset()
		}
		return nil, nil

	case StateSync2:
		d.class = b
		d.checksum.Add(b)
		d.state = StateClass
		return nil, nil

	case StateClass:
		d.id = b
		d.checksum.Add(b)
		d.state = StateID
		return nil, nil

	case StateID:
		d.length = uint16(b)
		d.checksum.Add(b)
		d.state = StateLength1
		return nil, nil

	case StateLength1:
		d.length |= uint16(b) << 8
		d.checksum.Add(b)
		d.payload = d.payload[:0]

		if int(d.length) > cap(d.payload) {
			err := fmt.Errorf("%w: class 0x%02X id 0x%02X declares %d bytes (max %d)",
				ErrPayloadTooLarge, d.class, d.id, d.length, cap(d.payload))
			d.Reset()
			return nil, err
		}
		if d.length == 0 {
			d.state = StatePayload
		} else {
			d.state = StateLength2
		}
		return nil, nil

	case StateLength2:
		d.checksum.Add(b)
		d.payload = append(d.payload, b)
		if len(d.payload) == int(d.length) {
			d.state = StatePayload
		}
		return nil, nil

	case StatePayload:
		if b != d.checksum.A {
			err := fmt.Errorf("%w: class 0x%02X id 0x%02X ck_a expected 0x%02X, got 0x%02X",
				ErrChecksumMismatch, d.class, d.id, d.checksum.A, b)
			d.Reset()
			return nil, err
		}
		d.state = StateChecksumA
		return nil, nil

	case StateChecksumA:
		if b != d.checksum.B {
			err := fmt.Errorf("%w: class 0x%02X id 0x%02X ck_b expected 0x%02X, got 0x%02X",
				ErrChecksumMismatch, d.class, d.id, d.checksum.B, b)
			d.Reset()
			return nil, err
		}

		payload := make([]byte, len(d.payload))
		copy(payload, d.payload)
		frame := &Frame{
			class:     d.class,
			id:        d.id,
			payload:   payload,
			ckA:       d.checksum.A,
			ckB:       d.checksum.B,
			timestamp: time.Now(),
		}

		d.Reset()
		return frame, nil

	default:
		// Idle: wait for a sync byte
		return nil, nil
	}
}
