package mocks

import (
	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

// MockGATTClient is a testify mock of the transport's GATT client.
// Closing DisconnectedCh simulates the link dropping.
type MockGATTClient struct {
	mock.Mock

	DisconnectedCh chan struct{}
}

// NewMockGATTClient returns a client with an open disconnection channel.
func NewMockGATTClient() *MockGATTClient {
	return &MockGATTClient{DisconnectedCh: make(chan struct{})}
}

func (m *MockGATTClient) DiscoverServices(filter []ble.UUID) ([]*ble.Service, error) {
	args := m.Called(filter)
	var svcs []*ble.Service
	if v := args.Get(0); v != nil {
		svcs = v.([]*ble.Service)
	}
	return svcs, args.Error(1)
}

func (m *MockGATTClient) DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error) {
	args := m.Called(filter, s)
	var chars []*ble.Characteristic
	if v := args.Get(0); v != nil {
		chars = v.([]*ble.Characteristic)
	}
	return chars, args.Error(1)
}

func (m *MockGATTClient) ReadCharacteristic(c *ble.Characteristic) ([]byte, error) {
	args := m.Called(c)
	var data []byte
	if v := args.Get(0); v != nil {
		data = v.([]byte)
	}
	return data, args.Error(1)
}

func (m *MockGATTClient) WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error {
	return m.Called(c, value, noRsp).Error(0)
}

func (m *MockGATTClient) Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	return m.Called(c, ind, h).Error(0)
}

func (m *MockGATTClient) Unsubscribe(c *ble.Characteristic, ind bool) error {
	return m.Called(c, ind).Error(0)
}

func (m *MockGATTClient) CancelConnection() error {
	return m.Called().Error(0)
}

func (m *MockGATTClient) Disconnected() <-chan struct{} {
	return m.DisconnectedCh
}
