// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import "fmt"

// AnomalyType represents different types of message anomalies
type AnomalyType int

const (
	AnomalyInvalidTime AnomalyType = iota
	AnomalyInvalidPosition
	AnomalyLowAccuracy
	AnomalyInvalidDOP
	AnomalyInvalidHeading
	AnomalyHighSpeed
	AnomalyInconsistentSpeed
)

// String returns the anomaly name
func (a AnomalyType) String() string {
	switch a {
	case AnomalyInvalidTime:
		return "INVALID_TIME"
	case AnomalyInvalidPosition:
		return "INVALID_POSITION"
	case AnomalyLowAccuracy:
		return "LOW_ACCURACY"
	case AnomalyInvalidDOP:
		return "INVALID_DOP"
	case AnomalyInvalidHeading:
		return "INVALID_HEADING"
	case AnomalyHighSpeed:
		return "HIGH_SPEED"
	case AnomalyInconsistentSpeed:
		return "INCONSISTENT_SPEED"
	default:
		return "UNKNOWN"
	}
}

// Validation limits
const (
	msPerWeek         = 604800000
	maxLatitude       = 90 * 10000000  // deg * 1e-7
	maxLongitude      = 180 * 10000000 // deg * 1e-7
	maxHeading        = 360 * 100000   // deg * 1e-5
	maxHAccMM         = 10000000       // 10 km
	maxSpeedCMS       = 51500          // 515 m/s
	speedToleranceCMS = 1              // rounding slack between 2-D and 3-D speed
)

// ValidationError represents a message validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateMessage checks decoded fields for physically implausible values.
// Returns a slice of validation errors (empty if the message is plausible).
func ValidateMessage(m Message) []ValidationError {
	errors := []ValidationError{}

	switch m := m.(type) {
	case *NavPosLLH:
		errors = append(errors, validateITOW("NAV-POSLLH", m.ITOW)...)
		errors = append(errors, validateNavPosLLH(m)...)
	case *NavDOP:
		errors = append(errors, validateITOW("NAV-DOP", m.ITOW)...)
		errors = append(errors, validateNavDOP(m)...)
	case *NavVelNED:
		errors = append(errors, validateITOW("NAV-VELNED", m.ITOW)...)
		errors = append(errors, validateNavVelNED(m)...)
	case *NavSol:
		errors = append(errors, validateITOW("NAV-SOL", m.ITOW)...)
	}

	return errors
}

// validateITOW checks the time of week falls inside one GPS week
func validateITOW(name string, itow uint32) []ValidationError {
	if itow < msPerWeek {
		return nil
	}
	return []ValidationError{{
		Type:    AnomalyInvalidTime,
		Message: fmt.Sprintf("%s iTOW=%d beyond one week (max %d)", name, itow, msPerWeek-1),
		Details: map[string]interface{}{"itow": itow, "max": msPerWeek - 1},
	}}
}

// validateNavPosLLH validates NAV-POSLLH fields
func validateNavPosLLH(m *NavPosLLH) []ValidationError {
	errors := []ValidationError{}

	if m.Lat < -maxLatitude || m.Lat > maxLatitude {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidPosition,
			Message: fmt.Sprintf("Latitude out of range (%s)", formatDegrees(int64(m.Lat), 7)),
			Details: map[string]interface{}{"lat": m.Lat, "max": maxLatitude},
		})
	}

	if m.Lon < -maxLongitude || m.Lon > maxLongitude {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidPosition,
			Message: fmt.Sprintf("Longitude out of range (%s)", formatDegrees(int64(m.Lon), 7)),
			Details: map[string]interface{}{"lon": m.Lon, "max": maxLongitude},
		})
	}

	if m.HAcc > maxHAccMM {
		errors = append(errors, ValidationError{
			Type:    AnomalyLowAccuracy,
			Message: fmt.Sprintf("Horizontal accuracy too low (%s, max 10 km)", formatMillimetres(int64(m.HAcc))),
			Details: map[string]interface{}{"h_acc": m.HAcc, "max": maxHAccMM},
		})
	}

	return errors
}

// validateNavDOP validates NAV-DOP fields. A DOP of zero is never produced by
// a real solution.
func validateNavDOP(m *NavDOP) []ValidationError {
	errors := []ValidationError{}

	dops := []struct {
		name  string
		value uint16
	}{
		{"gDOP", m.GDOP}, {"pDOP", m.PDOP}, {"tDOP", m.TDOP}, {"vDOP", m.VDOP},
		{"hDOP", m.HDOP}, {"nDOP", m.NDOP}, {"eDOP", m.EDOP},
	}
	for _, d := range dops {
		if d.value == 0 {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidDOP,
				Message: fmt.Sprintf("%s is zero", d.name),
				Details: map[string]interface{}{"field": d.name},
			})
		}
	}

	return errors
}

// validateNavVelNED validates NAV-VELNED fields
func validateNavVelNED(m *NavVelNED) []ValidationError {
	errors := []ValidationError{}

	if m.Heading < 0 || m.Heading > maxHeading {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidHeading,
			Message: fmt.Sprintf("Heading out of range (%s, valid 0-360°)", formatDegrees(int64(m.Heading), 5)),
			Details: map[string]interface{}{"heading": m.Heading, "max": maxHeading},
		})
	}

	if m.Speed > maxSpeedCMS {
		errors = append(errors, ValidationError{
			Type:    AnomalyHighSpeed,
			Message: fmt.Sprintf("High speed (%s, max 515 m/s)", formatSpeed(int64(m.Speed))),
			Details: map[string]interface{}{"speed": m.Speed, "max": maxSpeedCMS},
		})
	}

	if uint64(m.GroundSpeed) > uint64(m.Speed)+speedToleranceCMS {
		errors = append(errors, ValidationError{
			Type:    AnomalyInconsistentSpeed,
			Message: fmt.Sprintf("Ground speed > 3-D speed (%s > %s)",
				formatSpeed(int64(m.GroundSpeed)), formatSpeed(int64(m.Speed))),
			Details: map[string]interface{}{"ground_speed": m.GroundSpeed, "speed": m.Speed},
		})
	}

	return errors
}
