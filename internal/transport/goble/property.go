package goble

import (
	"github.com/go-ble/ble"
	"github.com/srg/blinky/internal/blinky"
)

// NewProperties converts ble.Property bit flags to the blinky capability set.
// Indicate is not mapped: the transport subscribes in notify mode only.
func NewProperties(p ble.Property) blinky.Properties {
	var props blinky.Properties
	if p&ble.CharRead != 0 {
		props |= blinky.PropRead
	}
	if p&ble.CharWrite != 0 {
		props |= blinky.PropWrite
	}
	if p&ble.CharWriteNR != 0 {
		props |= blinky.PropWriteWithoutResponse
	}
	if p&ble.CharNotify != 0 {
		props |= blinky.PropNotify
	}
	return props
}
