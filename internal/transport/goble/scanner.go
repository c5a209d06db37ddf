package goble

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blinky/internal/blinky"
)

// ErrNotFound is returned by Find when the scan ends before the address advertises.
var ErrNotFound = errors.New("device not found")

// ScanEventType marks if the peripheral was newly discovered or updated
type ScanEventType int

const (
	EventNew ScanEventType = iota
	EventUpdated
)

// ScanHandler receives every Blinky advertisement seen during a scan.
type ScanHandler func(ev ScanEventType, p blinky.Peripheral)

// Scanner discovers peripherals advertising the LED Button Service.
type Scanner struct {
	peripherals *hashmap.Map[blinky.PeripheralID, blinky.Peripheral]
	logger      *logrus.Logger

	// IncludeAll disables the service filter
	IncludeAll bool
}

// NewScanner creates a new BLE scanner
func NewScanner(logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scanner{
		peripherals: hashmap.New[blinky.PeripheralID, blinky.Peripheral](),
		logger:      logger,
	}
}

// Scan runs until ctx is done and returns the peripherals seen, deduplicated
// by identity. The advertised info of the first advertisement is kept; later
// advertisements only refresh RSSI.
func (s *Scanner) Scan(ctx context.Context, handler ScanHandler) ([]blinky.Peripheral, error) {
	if handler == nil {
		handler = func(ScanEventType, blinky.Peripheral) {}
	}
	s.peripherals = hashmap.New[blinky.PeripheralID, blinky.Peripheral]()

	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	// release the HCI socket before a Dialer opens its own device
	defer func() {
		if err := dev.Stop(); err != nil {
			s.logger.WithError(err).Debug("Failed to stop scan device")
		}
	}()

	s.logger.Info("Starting BLE scan...")
	err = dev.Scan(ctx, true, func(adv ble.Advertisement) {
		s.handleAdvertisement(NewBLEAdvertisement(adv), handler)
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("scan failed: %w", NormalizeError(err))
	}

	result := make([]blinky.Peripheral, 0, s.peripherals.Len())
	s.peripherals.Range(func(_ blinky.PeripheralID, p blinky.Peripheral) bool {
		result = append(result, p)
		return true
	})
	s.logger.WithField("device_count", len(result)).Info("BLE scan completed")
	return result, nil
}

// Find scans until address advertises and returns it as a Peripheral.
func (s *Scanner) Find(ctx context.Context, address string) (blinky.Peripheral, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		found blinky.Peripheral
		ok    bool
	)
	target := blinky.PeripheralID(address)
	prev := s.IncludeAll
	s.IncludeAll = true
	defer func() { s.IncludeAll = prev }()

	_, err := s.Scan(ctx, func(_ ScanEventType, p blinky.Peripheral) {
		if !ok && equalFoldID(p.ID, target) {
			found, ok = p, true
			cancel()
		}
	})
	if err != nil {
		return blinky.Peripheral{}, err
	}
	if !ok {
		return blinky.Peripheral{}, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	return found, nil
}

func (s *Scanner) handleAdvertisement(adv *BLEAdvertisement, handler ScanHandler) {
	id := blinky.PeripheralID(adv.Addr())

	p, existing := s.peripherals.Get(id)
	if !existing {
		if !s.IncludeAll && !adv.AdvertisesBlinky() {
			return
		}
		p, existing = s.peripherals.GetOrInsert(id, blinky.NewPeripheral(adv))
	}

	if existing {
		p.RSSI = adv.RSSI()
		s.peripherals.Set(id, p)
		handler(EventUpdated, p)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"device":  p.Info.Name,
		"address": p.ID,
		"rssi":    p.RSSI,
	}).Info("Discovered new device")
	handler(EventNew, p)
}

func equalFoldID(a, b blinky.PeripheralID) bool {
	return strings.EqualFold(string(a), string(b))
}
