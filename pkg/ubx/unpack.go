// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

// Unpack reads a little-endian field of width bytes (1 to 4) at offset,
// accumulating from the most significant byte down. The caller guarantees
// offset+width <= len(payload).
func Unpack(payload []byte, offset, width int) uint32 {
	var v uint32
	for k := width - 1; k >= 0; k-- {
		v = v<<8 | uint32(payload[offset+k])
	}
	return v
}

// Uint16 reads a U2 field
func Uint16(payload []byte, offset int) uint16 {
	return uint16(Unpack(payload, offset, 2))
}

// Uint32 reads a U4 field
func Uint32(payload []byte, offset int) uint32 {
	return Unpack(payload, offset, 4)
}

// Int32 reads an I4 field
func Int32(payload []byte, offset int) int32 {
	return int32(Unpack(payload, offset, 4))
}
