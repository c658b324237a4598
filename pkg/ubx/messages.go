// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import "fmt"

// Message is a decoded UBX message. The concrete type is one of *NavPosLLH,
// *NavDOP, *NavVelNED, *NavSol or *Unknown.
type Message interface {
	Key() MessageKey
	dispatch(h Handler)
}

// NavPosLLH is NAV-POSLLH, the geodetic position solution.
type NavPosLLH struct {
	ITOW      uint32 // GPS time of week (ms)
	Lon       int32  // deg * 1e-7
	Lat       int32  // deg * 1e-7
	Height    int32  // above ellipsoid (mm)
	HeightMSL int32  // above mean sea level (mm)
	HAcc      uint32 // horizontal accuracy estimate (mm)
	VAcc      uint32 // vertical accuracy estimate (mm)
}

// NavDOP is NAV-DOP, dilution of precision. All DOP values are scaled by 100.
type NavDOP struct {
	ITOW uint32
	GDOP uint16
	PDOP uint16
	TDOP uint16
	VDOP uint16
	HDOP uint16
	NDOP uint16
	EDOP uint16
}

// NavVelNED is NAV-VELNED, velocity in the north/east/down frame.
type NavVelNED struct {
	ITOW        uint32
	VelN        int32  // cm/s
	VelE        int32  // cm/s
	VelD        int32  // cm/s
	Speed       uint32 // 3-D speed (cm/s)
	GroundSpeed uint32 // 2-D ground speed (cm/s)
	Heading     int32  // heading of motion (deg * 1e-5)
	SpeedAcc    uint32 // cm/s
	HeadingAcc  uint32 // deg * 1e-5
}

// NavSol is NAV-SOL. Only the time of week is decoded.
type NavSol struct {
	ITOW uint32
}

// Unknown is a verified frame whose (class, id) has no schema. No fields are
// decoded.
type Unknown struct {
	Class   uint8
	ID      uint8
	Payload []byte
}

func (*NavPosLLH) Key() MessageKey { return MessageKey{ClassNAV, IDNavPosLLH} }
func (*NavDOP) Key() MessageKey    { return MessageKey{ClassNAV, IDNavDOP} }
func (*NavVelNED) Key() MessageKey { return MessageKey{ClassNAV, IDNavVelNED} }
func (*NavSol) Key() MessageKey    { return MessageKey{ClassNAV, IDNavSol} }
func (m *Unknown) Key() MessageKey { return MessageKey{m.Class, m.ID} }

func (m *NavPosLLH) dispatch(h Handler) { h.HandleNavPosLLH(m) }
func (m *NavDOP) dispatch(h Handler)    { h.HandleNavDOP(m) }
func (m *NavVelNED) dispatch(h Handler) { h.HandleNavVelNED(m) }
func (m *NavSol) dispatch(h Handler)    { h.HandleNavSol(m) }
func (m *Unknown) dispatch(h Handler)   { h.HandleUnknown(m) }

// schema describes how to decode one message type. size is the minimum
// payload length; longer payloads (e.g. the full 52-byte NAV-SOL) are
// accepted and the extra bytes ignored.
type schema struct {
	name   string
	size   int
	decode func(p []byte) Message
}

// To support a new message: add its struct above, a decode function below,
// an entry here and a method on Handler.
var schemas = map[MessageKey]schema{
	{ClassNAV, IDNavPosLLH}: {"NAV-POSLLH", 28, decodeNavPosLLH},
	{ClassNAV, IDNavDOP}:    {"NAV-DOP", 18, decodeNavDOP},
	{ClassNAV, IDNavVelNED}: {"NAV-VELNED", 36, decodeNavVelNED},
	{ClassNAV, IDNavSol}:    {"NAV-SOL", 4, decodeNavSol},
}

// Supported reports whether key has a decoder
func Supported(key MessageKey) bool {
	_, ok := schemas[key]
	return ok
}

// Decode decodes a frame's payload into its typed message. Frames without a
// schema decode to *Unknown. A payload shorter than its schema requires is
// rejected with ErrShortPayload.
func Decode(f *Frame) (Message, error) {
	s, ok := schemas[f.Key()]
	if !ok {
		payload := make([]byte, len(f.payload))
		copy(payload, f.payload)
		return &Unknown{Class: f.class, ID: f.id, Payload: payload}, nil
	}
	if len(f.payload) < s.size {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d",
			ErrShortPayload, s.name, s.size, len(f.payload))
	}
	return s.decode(f.payload), nil
}

func decodeNavPosLLH(p []byte) Message {
	return &NavPosLLH{
		ITOW:      Uint32(p, 0),
		Lon:       Int32(p, 4),
		Lat:       Int32(p, 8),
		Height:    Int32(p, 12),
		HeightMSL: Int32(p, 16),
		HAcc:      Uint32(p, 20),
		VAcc:      Uint32(p, 24),
	}
}

func decodeNavDOP(p []byte) Message {
	return &NavDOP{
		ITOW: Uint32(p, 0),
		GDOP: Uint16(p, 4),
		PDOP: Uint16(p, 6),
		TDOP: Uint16(p, 8),
		VDOP: Uint16(p, 10),
		HDOP: Uint16(p, 12),
		NDOP: Uint16(p, 14),
		EDOP: Uint16(p, 16),
	}
}

func decodeNavVelNED(p []byte) Message {
	return &NavVelNED{
		ITOW:        Uint32(p, 0),
		VelN:        Int32(p, 4),
		VelE:        Int32(p, 8),
		VelD:        Int32(p, 12),
		Speed:       Uint32(p, 16),
		GroundSpeed: Uint32(p, 20),
		Heading:     Int32(p, 24),
		SpeedAcc:    Uint32(p, 28),
		HeadingAcc:  Uint32(p, 32),
	}
}

func decodeNavSol(p []byte) Message {
	return &NavSol{ITOW: Uint32(p, 0)}
}
