//go:build !darwin && !linux

package goble

import (
	"fmt"
	"runtime"

	"github.com/go-ble/ble"
	"github.com/srg/blinky/internal/blinky"
)

func newPlatformDevice() (ble.Device, error) {
	return nil, fmt.Errorf("BLE not available on %s: %w", runtime.GOOS, blinky.ErrUnsupported)
}
