package ramses

import (
	"fmt"
	"strings"
)

// DeviceID is the canonical identifier for a device on the RF network:
// a two-digit hex type prefix and a six-digit hex serial, colon separated,
// upper case. Example: "18:000730".
type DeviceID string

// Well-known identifiers.
const (
	// NulDeviceID fills unused slots in a command's address triple.
	NulDeviceID DeviceID = "--:------"

	// SentinelGateway is the reserved gateway-announcement identity. Every
	// gateway interface reports this id in its announcements regardless of
	// its real serial; commands sourced from it need the address fix-up in
	// Command.FixSentinelAddrs.
	SentinelGateway DeviceID = "18:000730"
)

// deviceIDLen is the exact length of a canonical device id.
const deviceIDLen = 9

// ParseDeviceID canonicalises and validates a device identifier.
// Input is case-insensitive; the result is upper case. Any string that is
// not exactly two hex digits, a colon and six hex digits fails with
// ErrInvalidDeviceID.
func ParseDeviceID(s string) (DeviceID, error) {
	id := DeviceID(strings.ToUpper(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDeviceID, s)
	}
	return id, nil
}

// Valid reports whether the id is in canonical form. The nul id is not
// considered a valid device identifier.
func (id DeviceID) Valid() bool {
	if len(id) != deviceIDLen || id[2] != ':' {
		return false
	}
	for i, c := range id {
		if i == 2 {
			continue
		}
		if !isUpperHex(byte(c)) {
			return false
		}
	}
	return true
}

// TypePrefix returns the two-digit device type, e.g. "30" for an HVAC unit.
// Returns "" for invalid ids.
func (id DeviceID) TypePrefix() string {
	if !id.Valid() {
		return ""
	}
	return string(id[:2])
}

// Serial returns the six-digit serial portion. Returns "" for invalid ids.
func (id DeviceID) Serial() string {
	if !id.Valid() {
		return ""
	}
	return string(id[3:])
}

// IsNul reports whether the id is the nul filler address.
func (id DeviceID) IsNul() bool {
	return id == NulDeviceID
}

func isUpperHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}
