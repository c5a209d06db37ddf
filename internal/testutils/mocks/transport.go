package mocks

import (
	"github.com/google/uuid"
	"github.com/srg/blinky/internal/blinky"
	"github.com/stretchr/testify/mock"
)

// MockTransport is a testify mock of blinky.Transport.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect(id blinky.PeripheralID) error {
	return m.Called(id).Error(0)
}

func (m *MockTransport) Disconnect(id blinky.PeripheralID) error {
	return m.Called(id).Error(0)
}

func (m *MockTransport) DiscoverServices(id blinky.PeripheralID, filter []uuid.UUID) error {
	return m.Called(id, filter).Error(0)
}

func (m *MockTransport) DiscoverCharacteristics(id blinky.PeripheralID, svc blinky.Service, filter []uuid.UUID) error {
	return m.Called(id, svc, filter).Error(0)
}

func (m *MockTransport) SetNotify(id blinky.PeripheralID, ch blinky.Characteristic, enabled bool) error {
	return m.Called(id, ch, enabled).Error(0)
}

func (m *MockTransport) Read(id blinky.PeripheralID, ch blinky.Characteristic) error {
	return m.Called(id, ch).Error(0)
}

func (m *MockTransport) Write(id blinky.PeripheralID, ch blinky.Characteristic, value []byte, withAck bool) error {
	return m.Called(id, ch, value, withAck).Error(0)
}

var _ blinky.Transport = (*MockTransport)(nil)
