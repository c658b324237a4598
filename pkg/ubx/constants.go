// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package ubx decodes the u-blox UBX binary protocol from a byte stream.
//
// Bytes are fed one at a time into a Decoder, which finds frame boundaries
// using the two sync bytes, accumulates the 8-bit Fletcher checksum and hands
// back complete, verified frames. A Parser wraps the Decoder, decodes each
// frame into a typed Message and dispatches it to a Handler before Feed
// returns.
//
// Frame layout on the wire:
//
//	0xB5 0x62 <class> <id> <len lo> <len hi> <payload...> <ck_a> <ck_b>
//
// The checksum covers class, id, both length bytes and the payload.
package ubx

// Protocol framing bytes
const (
	Sync1 = 0xB5
	Sync2 = 0x62
)

// Frame size limits
const (
	HeaderSize   = 6 // sync1 + sync2 + class + id + 2 length bytes
	ChecksumSize = 2

	// MaxPayloadSize is the default payload capacity of a Decoder.
	MaxPayloadSize = 1000
)

// Message classes
const (
	ClassNAV = 0x01
)

// Message ids - Navigation (class 0x01)
const (
	IDNavPosLLH = 0x02
	IDNavDOP    = 0x04
	IDNavSol    = 0x06
	IDNavVelNED = 0x12
)

// State is the decoder's progress through one frame.
type State int

// Decoder states
const (
	StateIdle State = iota
	StateSync1
	StateSync2
	StateClass
	StateID
	StateLength1
	StateLength2
	StatePayload
	StateChecksumA
)

var stateNames = [...]string{
	StateIdle:      "IDLE",
	StateSync1:     "SYNC1",
	StateSync2:     "SYNC2",
	StateClass:     "CLASS",
	StateID:        "ID",
	StateLength1:   "LENGTH1",
	StateLength2:   "LENGTH2",
	StatePayload:   "PAYLOAD",
	StateChecksumA: "CHECKSUM_A",
}

// String returns the state name
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}
