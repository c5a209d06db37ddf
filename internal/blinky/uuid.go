package blinky

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// LED Button Service identifiers
var (
	ServiceUUID              = uuid.MustParse("00001523-1212-efde-1523-785feabcd123")
	ButtonCharacteristicUUID = uuid.MustParse("00001524-1212-efde-1523-785feabcd123")
	LEDCharacteristicUUID    = uuid.MustParse("00001525-1212-efde-1523-785feabcd123")
)

// sigBaseSuffix is the tail of the Bluetooth SIG base UUID 0000xxxx-0000-1000-8000-00805f9b34fb
const sigBaseSuffix = "00001000800000805f9b34fb"

// ParseUUID parses a GATT UUID.
// Accepts the dashed 128-bit form, the undashed 32 hex digit form used by go-ble,
// an optional 0x prefix, and 16/32-bit short forms which are expanded on the SIG base.
func ParseUUID(s string) (uuid.UUID, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	raw = strings.TrimPrefix(raw, "0x")
	raw = strings.ReplaceAll(raw, "-", "")

	switch len(raw) {
	case 4:
		raw = "0000" + raw + sigBaseSuffix
	case 8:
		raw = raw + sigBaseSuffix
	case 32:
	default:
		return uuid.Nil, fmt.Errorf("invalid UUID %q: unexpected length", s)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID %q: %w", s, err)
	}
	return id, nil
}

// MustParseUUID is like ParseUUID but panics on error. Intended for constants and tests.
func MustParseUUID(s string) uuid.UUID {
	id, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// ShortenUUID returns the first eight hex digits of a UUID for display.
func ShortenUUID(id uuid.UUID) string {
	return id.String()[:8]
}

// knownName returns a display name for the LED Button Service UUIDs.
func knownName(id uuid.UUID) string {
	switch id {
	case ServiceUUID:
		return "LED Button Service"
	case ButtonCharacteristicUUID:
		return "Button"
	case LEDCharacteristicUUID:
		return "LED"
	default:
		return ""
	}
}
