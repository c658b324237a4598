// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import "errors"

// Errors reported for discarded frames. Decoder and Decode wrap them with
// detail; compare with errors.Is.
var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrShortPayload     = errors.New("payload too short")
)
