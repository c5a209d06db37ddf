package testutils

import (
	"github.com/go-ble/ble"
	"github.com/srg/blinky/internal/blinky"
	"github.com/srg/blinky/internal/testutils/mocks"
)

// Advertisement is a plain blinky.Advertisement for core tests.
type Advertisement struct {
	name     string
	address  string
	rssi     int
	services []string
}

// NewAdvertisement builds an Advertisement.
func NewAdvertisement(name, address string, rssi int, services ...string) *Advertisement {
	return &Advertisement{name: name, address: address, rssi: rssi, services: services}
}

func (a *Advertisement) LocalName() string  { return a.name }
func (a *Advertisement) RSSI() int          { return a.rssi }
func (a *Advertisement) Addr() string       { return a.address }
func (a *Advertisement) Services() []string { return a.services }

var _ blinky.Advertisement = (*Advertisement)(nil)

// AdvertisementBuilder builds mocked BLE advertisements for testing.
// Only explicitly set fields get mock expectations.
type AdvertisementBuilder struct {
	name     string
	address  string
	rssi     int
	services []string

	nameSet     bool
	addressSet  bool
	rssiSet     bool
	servicesSet bool
}

// NewAdvertisementBuilder creates an empty AdvertisementBuilder.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{}
}

// WithName sets the local name for the advertisement.
func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.name = name
	b.nameSet = true
	return b
}

// WithAddress sets the device address for the advertisement.
func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.address = addr
	b.addressSet = true
	return b
}

// WithRSSI sets the signal strength for the advertisement.
func (b *AdvertisementBuilder) WithRSSI(rssi int) *AdvertisementBuilder {
	b.rssi = rssi
	b.rssiSet = true
	return b
}

// WithServices adds service UUIDs to the advertisement.
// UUIDs can be in short form (e.g., "180D") or full form.
func (b *AdvertisementBuilder) WithServices(uuids ...string) *AdvertisementBuilder {
	b.services = append(b.services, uuids...)
	b.servicesSet = true
	return b
}

// Build creates a MockAdvertisement implementing ble.Advertisement.
// Expectations are optional (Maybe) so tests do not depend on which
// accessors a component reads.
func (b *AdvertisementBuilder) Build() *mocks.MockAdvertisement {
	adv := &mocks.MockAdvertisement{}

	if b.addressSet {
		addr := &mocks.MockAddr{}
		addr.On("String").Return(b.address).Maybe()
		adv.On("Addr").Return(addr).Maybe()
	}
	if b.nameSet {
		adv.On("LocalName").Return(b.name).Maybe()
	} else {
		adv.On("LocalName").Return("").Maybe()
	}
	if b.rssiSet {
		adv.On("RSSI").Return(b.rssi).Maybe()
	} else {
		adv.On("RSSI").Return(0).Maybe()
	}

	var bleServices []ble.UUID
	for _, s := range b.services {
		bleServices = append(bleServices, ble.MustParse(s))
	}
	if b.servicesSet {
		adv.On("Services").Return(bleServices).Maybe()
	} else {
		adv.On("Services").Return(nil).Maybe()
	}

	return adv
}

// BuildCore returns the builder's fields as a blinky.Advertisement.
func (b *AdvertisementBuilder) BuildCore() blinky.Advertisement {
	return NewAdvertisement(b.name, b.address, b.rssi, b.services...)
}
