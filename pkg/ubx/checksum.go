// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

// Checksum is the running 8-bit Fletcher checksum used by UBX frames.
type Checksum struct {
	A uint8
	B uint8
}

// Add folds one byte into the checksum. Both sums wrap modulo 256.
func (c *Checksum) Add(b byte) {
	c.A += b
	c.B += c.A
}

// Reset zeroes both accumulators
func (c *Checksum) Reset() {
	c.A = 0
	c.B = 0
}

// CalculateChecksum computes the UBX checksum over data, which must start at
// the class byte (sync bytes excluded).
func CalculateChecksum(data []byte) (ckA, ckB uint8) {
	var c Checksum
	for _, b := range data {
		c.Add(b)
	}
	return c.A, c.B
}
