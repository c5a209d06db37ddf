package mocks

import (
	"context"
	"sync/atomic"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

// MockAddr is a testify mock of ble.Addr.
type MockAddr struct {
	mock.Mock
}

func (m *MockAddr) String() string {
	return m.Called().String(0)
}

// MockAdvertisement is a testify mock of ble.Advertisement.
// Only the accessors the scanner reads are mocked; calling any other method panics.
type MockAdvertisement struct {
	mock.Mock
	ble.Advertisement
}

func (m *MockAdvertisement) LocalName() string {
	return m.Called().String(0)
}

func (m *MockAdvertisement) RSSI() int {
	return m.Called().Int(0)
}

func (m *MockAdvertisement) Addr() ble.Addr {
	return m.Called().Get(0).(ble.Addr)
}

func (m *MockAdvertisement) Services() []ble.UUID {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.([]ble.UUID)
	}
	return nil
}

// MockDevice is a testify mock of ble.Device covering scanning.
// Scan replays Advertisements and then blocks until ctx is done, unless the
// expectation returns an error. Stop only counts calls.
type MockDevice struct {
	mock.Mock
	ble.Device

	Advertisements []ble.Advertisement
	stops          atomic.Int32
}

func (m *MockDevice) Stop() error {
	m.stops.Add(1)
	return nil
}

// Stops returns how many times Stop was called.
func (m *MockDevice) Stops() int {
	return int(m.stops.Load())
}

func (m *MockDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error {
	args := m.Called(ctx, allowDup, h)
	for _, adv := range m.Advertisements {
		if ctx.Err() != nil {
			break
		}
		h(adv)
	}
	if err := args.Error(0); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}
