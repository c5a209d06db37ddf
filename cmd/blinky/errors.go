package main

import (
	"errors"
	"fmt"

	"github.com/srg/blinky/internal/blinky"
	"github.com/srg/blinky/internal/transport/goble"
)

// Command-level errors
var (
	// ErrConnectionLost indicates the link went down before the command finished.
	ErrConnectionLost = errors.New("connection lost")

	// ErrUnsupportedDevice indicates the peripheral does not implement the LED Button Service.
	ErrUnsupportedDevice = errors.New("device does not support the LED Button Service")

	// ErrNoLED indicates the peripheral has no usable LED characteristic.
	ErrNoLED = errors.New("device has no LED characteristic")

	// ErrLEDReadOnly indicates the LED characteristic does not accept writes.
	ErrLEDReadOnly = errors.New("LED characteristic is read-only")
)

// FormatUserError turns an error into a message for the terminal.
func FormatUserError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, blinky.ErrBluetoothOff):
		return "Bluetooth is turned off, turn it on and try again"
	case errors.Is(err, goble.ErrNotFound):
		return fmt.Sprintf("%v (is the board powered and advertising?)", err)
	case errors.Is(err, blinky.ErrTimeout):
		return fmt.Sprintf("operation timed out: %v", err)
	case errors.Is(err, blinky.ErrUnsupported):
		return fmt.Sprintf("not supported on this platform: %v", err)
	default:
		return err.Error()
	}
}
