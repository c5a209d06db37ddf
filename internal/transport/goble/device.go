package goble

import (
	"context"
	"fmt"

	"github.com/go-ble/ble"
)

// DeviceFactory creates the platform ble.Device (can be overridden in tests)
var DeviceFactory = func() (ble.Device, error) {
	return newPlatformDevice()
}

// GATTClient is the subset of ble.Client the transport uses.
type GATTClient interface {
	DiscoverServices(filter []ble.UUID) ([]*ble.Service, error)
	DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error)
	ReadCharacteristic(c *ble.Characteristic) ([]byte, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	CancelConnection() error
}

// Dialer connects to a peripheral address (can be overridden in tests)
var Dialer = func(ctx context.Context, address string) (GATTClient, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", err)
	}
	ble.SetDefaultDevice(dev)

	client, err := ble.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		return nil, err
	}
	return client, nil
}
