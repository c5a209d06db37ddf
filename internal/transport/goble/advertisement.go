package goble

import (
	"github.com/go-ble/ble"
	"github.com/srg/blinky/internal/blinky"
)

// BLEAdvertisement wraps ble.Advertisement to implement blinky.Advertisement
type BLEAdvertisement struct {
	adv ble.Advertisement
}

// NewBLEAdvertisement creates a new BLEAdvertisement wrapper
func NewBLEAdvertisement(adv ble.Advertisement) *BLEAdvertisement {
	return &BLEAdvertisement{adv: adv}
}

func (a *BLEAdvertisement) LocalName() string { return a.adv.LocalName() }
func (a *BLEAdvertisement) RSSI() int         { return a.adv.RSSI() }
func (a *BLEAdvertisement) Addr() string      { return a.adv.Addr().String() }

func (a *BLEAdvertisement) Services() []string {
	bleServices := a.adv.Services()
	result := make([]string, len(bleServices))
	for i, svc := range bleServices {
		result[i] = svc.String()
	}
	return result
}

// AdvertisesBlinky reports whether the advertisement lists the LED Button Service.
func (a *BLEAdvertisement) AdvertisesBlinky() bool {
	return blinky.NewAdvertisedInfo(a).Advertises(blinky.ServiceUUID)
}

var _ blinky.Advertisement = (*BLEAdvertisement)(nil)
