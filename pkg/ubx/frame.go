// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import "time"

// MessageKey identifies a message type by its class and id.
type MessageKey struct {
	Class uint8
	ID    uint8
}

// Frame represents a complete, checksum-verified UBX frame
type Frame struct {
	class     uint8
	id        uint8
	payload   []byte
	ckA       uint8
	ckB       uint8
	timestamp time.Time

	// Cached decoded message (lazy decoding)
	msg       Message
	decoded   bool
	decodeErr error
}

// NewFrame creates a frame from its fields. The checksum is computed from
// class, id, length and payload.
func NewFrame(class, id uint8, payload []byte) *Frame {
	data := make([]byte, 0, 4+len(payload))
	data = append(data, class, id, byte(len(payload)), byte(len(payload)>>8))
	data = append(data, payload...)
	ckA, ckB := CalculateChecksum(data)

	return &Frame{
		class:     class,
		id:        id,
		payload:   payload,
		ckA:       ckA,
		ckB:       ckB,
		timestamp: time.Now(),
	}
}

// ensureDecoded decodes the payload if not already done
func (f *Frame) ensureDecoded() {
	if f.decoded {
		return
	}
	f.decoded = true
	f.msg, f.decodeErr = Decode(f)
}

// Class returns the frame's message class
func (f *Frame) Class() uint8 {
	return f.class
}

// ID returns the frame's message id
func (f *Frame) ID() uint8 {
	return f.id
}

// Key returns the frame's (class, id) pair
func (f *Frame) Key() MessageKey {
	return MessageKey{Class: f.class, ID: f.id}
}

// Length returns the payload length declared in the header
func (f *Frame) Length() uint16 {
	return uint16(len(f.payload))
}

// Payload returns the raw payload bytes
func (f *Frame) Payload() []byte {
	return f.payload
}

// Checksum returns the two checksum bytes that closed the frame
func (f *Frame) Checksum() (ckA, ckB uint8) {
	return f.ckA, f.ckB
}

// Timestamp returns the time the frame was completed
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Message returns the decoded message (see Decode)
func (f *Frame) Message() (Message, error) {
	f.ensureDecoded()
	return f.msg, f.decodeErr
}
