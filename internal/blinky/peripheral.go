package blinky

import (
	"github.com/google/uuid"
)

// UnknownDeviceName is reported when the advertisement carries no local name.
const UnknownDeviceName = "Unknown Device"

// PeripheralID is the platform identifier of a physical peripheral.
// Peripherals are compared by ID only; advertised names are cached by the
// platform and are not a reliable identity.
type PeripheralID string

// Advertisement is the discovery-time payload of a peripheral as reported by a Transport.
type Advertisement interface {
	LocalName() string
	Services() []string
	RSSI() int
	Addr() string
}

// AdvertisedInfo is captured once from an advertisement and never refreshed
// from the live device.
type AdvertisedInfo struct {
	Name       string
	ServiceIDs map[uuid.UUID]struct{}
}

// NewAdvertisedInfo captures name and service identifiers from adv.
// A nil advertisement yields the placeholder name and an empty service set.
// Service strings that do not parse as UUIDs are skipped.
func NewAdvertisedInfo(adv Advertisement) AdvertisedInfo {
	info := AdvertisedInfo{
		Name:       UnknownDeviceName,
		ServiceIDs: make(map[uuid.UUID]struct{}),
	}
	if adv == nil {
		return info
	}
	if name := adv.LocalName(); name != "" {
		info.Name = name
	}
	for _, s := range adv.Services() {
		if id, err := ParseUUID(s); err == nil {
			info.ServiceIDs[id] = struct{}{}
		}
	}
	return info
}

// Advertises reports whether the advertisement listed the given service.
func (i AdvertisedInfo) Advertises(id uuid.UUID) bool {
	_, ok := i.ServiceIDs[id]
	return ok
}

// Peripheral is a discovered peripheral: its identity plus what it advertised.
type Peripheral struct {
	ID   PeripheralID
	Info AdvertisedInfo
	RSSI int
}

// NewPeripheral builds a Peripheral from an advertisement. The advertised
// address is used as the identity.
func NewPeripheral(adv Advertisement) Peripheral {
	p := Peripheral{Info: NewAdvertisedInfo(adv)}
	if adv != nil {
		p.ID = PeripheralID(adv.Addr())
		p.RSSI = adv.RSSI()
	}
	return p
}

// Equal compares peripherals by identity.
func (p Peripheral) Equal(other Peripheral) bool {
	return p.ID == other.ID
}
