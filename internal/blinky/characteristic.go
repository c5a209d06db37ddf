package blinky

import (
	"strings"

	"github.com/google/uuid"
)

// Properties is the capability set of a characteristic.
type Properties uint8

const (
	PropRead Properties = 1 << iota
	PropWrite
	PropWriteWithoutResponse
	PropNotify
)

// Has reports whether all properties in q are present.
func (p Properties) Has(q Properties) bool {
	return q != 0 && p&q == q
}

func (p Properties) String() string {
	if p == 0 {
		return "none"
	}
	var names []string
	if p.Has(PropRead) {
		names = append(names, "read")
	}
	if p.Has(PropWrite) {
		names = append(names, "write")
	}
	if p.Has(PropWriteWithoutResponse) {
		names = append(names, "write-without-response")
	}
	if p.Has(PropNotify) {
		names = append(names, "notify")
	}
	return strings.Join(names, ",")
}

// Handle identifies a GATT attribute within one connection. Values are
// assigned by the Transport and only need to be comparable.
type Handle uint64

// Service is a discovered GATT service.
type Service struct {
	Handle Handle
	UUID   uuid.UUID
}

// Characteristic is a discovered GATT characteristic.
type Characteristic struct {
	Handle     Handle
	UUID       uuid.UUID
	Properties Properties
}

// binding tracks whether a well-known characteristic has been discovered.
type binding struct {
	char  Characteristic
	bound bool
}

func (b binding) get() (Characteristic, bool) {
	return b.char, b.bound
}

func (b binding) is(h Handle) bool {
	return b.bound && b.char.Handle == h
}

// EncodeBool encodes LED and Button values as the single byte 0x01 or 0x00.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{0x01}
	}
	return []byte{0x00}
}

// DecodeBool interprets the first byte of a payload: 0x01 is true, anything
// else is false. ok is false for an empty payload.
func DecodeBool(value []byte) (v bool, ok bool) {
	if len(value) == 0 {
		return false, false
	}
	return value[0] == 0x01, true
}
