package blinky

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "dashed 128-bit",
			input:    "00001523-1212-efde-1523-785feabcd123",
			expected: "00001523-1212-efde-1523-785feabcd123",
		},
		{
			name:     "undashed 128-bit as printed by go-ble",
			input:    "000015231212efde1523785feabcd123",
			expected: "00001523-1212-efde-1523-785feabcd123",
		},
		{
			name:     "uppercase",
			input:    "00001524-1212-EFDE-1523-785FEABCD123",
			expected: "00001524-1212-efde-1523-785feabcd123",
		},
		{
			name:     "16-bit short form",
			input:    "180F",
			expected: "0000180f-0000-1000-8000-00805f9b34fb",
		},
		{
			name:     "16-bit with 0x prefix",
			input:    "0x2902",
			expected: "00002902-0000-1000-8000-00805f9b34fb",
		},
		{
			name:     "32-bit short form",
			input:    "0000180d",
			expected: "0000180d-0000-1000-8000-00805f9b34fb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseUUID(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id.String())
		})
	}
}

func TestParseUUID_Invalid(t *testing.T) {
	for _, input := range []string{"", "123", "zzzz", "00001523-1212-efde-1523-785feabcd12"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseUUID(input)
			assert.Error(t, err, "input %q MUST be rejected", input)
		})
	}

	assert.Panics(t, func() { MustParseUUID("nope") })
}

func TestWellKnownUUIDs(t *testing.T) {
	assert.Equal(t, "00001523-1212-efde-1523-785feabcd123", ServiceUUID.String())
	assert.Equal(t, "00001524-1212-efde-1523-785feabcd123", ButtonCharacteristicUUID.String())
	assert.Equal(t, "00001525-1212-efde-1523-785feabcd123", LEDCharacteristicUUID.String())

	assert.Equal(t, "00001523", ShortenUUID(ServiceUUID))
	assert.Equal(t, "LED", knownName(LEDCharacteristicUUID))
	assert.Equal(t, "", knownName(MustParseUUID("180F")))
}
