package testutils

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blinky/internal/blinky"
)

// BlinkyAddress is the address used by mock Blinky advertisements.
const BlinkyAddress = "AA:BB:CC:DD:EE:FF"

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
}

// NewTestHelper creates a test helper with a debug logger.
func NewTestHelper(t *testing.T) *TestHelper {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	return &TestHelper{
		T:      t,
		Logger: logger,
	}
}

// CreateMockAdvertisement starts a builder with name, address and RSSI set.
func CreateMockAdvertisement(name, address string, rssi int) *AdvertisementBuilder {
	return NewAdvertisementBuilder().WithName(name).WithAddress(address).WithRSSI(rssi)
}

// CreateBlinkyAdvertisement starts a builder for a peripheral advertising the LED Button Service.
func CreateBlinkyAdvertisement(address string) *AdvertisementBuilder {
	return CreateMockAdvertisement("Nordic_Blinky", address, -50).WithServices(blinky.ServiceUUID.String())
}

// BlinkyPeripheral returns the Peripheral a scan would produce for a Blinky board.
func BlinkyPeripheral() blinky.Peripheral {
	return blinky.NewPeripheral(NewAdvertisement("Nordic_Blinky", BlinkyAddress, -50, blinky.ServiceUUID.String()))
}

// Eventually polls cond until it holds or timeout expires.
func (h *TestHelper) Eventually(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
