package goble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/blinky/internal/blinky"
	"github.com/srg/blinky/internal/groutine"
)

const (
	// DefaultEventBuffer is the default buffer size of the event channel
	DefaultEventBuffer = 128

	// DefaultRequestQueue is the number of requests that may wait for the worker
	DefaultRequestQueue = 32

	// DefaultConnectTimeout bounds dialing a peripheral
	DefaultConnectTimeout = 30 * time.Second

	// DefaultOperationTimeout bounds every other GATT operation
	DefaultOperationTimeout = 5 * time.Second
)

// ErrClosed is returned for requests submitted after Close.
var ErrClosed = errors.New("transport closed")

// Options configures a Transport. Zero values select the defaults.
type Options struct {
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
	EventBuffer      int
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.OperationTimeout <= 0 {
		o.OperationTimeout = DefaultOperationTimeout
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = DefaultEventBuffer
	}
	return o
}

// link is the state of one connection. A new link is created per dial so
// that callbacks of a stale connection can be told apart.
type link struct {
	client    GATTClient
	services  map[blinky.Handle]*ble.Service
	chars     map[blinky.Handle]*ble.Characteristic
	requested atomic.Bool
	ended     atomic.Bool
}

// Transport implements blinky.Transport for one peripheral address.
type Transport struct {
	address string
	opts    Options
	logger  *logrus.Logger

	events   chan blinky.Event
	requests chan func()

	mu         sync.Mutex
	link       *link
	nextHandle blinky.Handle

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// NewTransport creates a transport for address and starts its worker.
// Call Close to release it.
func NewTransport(address string, opts Options, logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	opts = opts.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		address:  address,
		opts:     opts,
		logger:   logger,
		events:   make(chan blinky.Event, opts.EventBuffer),
		requests: make(chan func(), DefaultRequestQueue),
		ctx:      ctx,
		cancel:   cancel,
	}
	groutine.Go(ctx, "ble-transport-worker", t.work)
	return t
}

// Events returns the channel on which all completions are published.
func (t *Transport) Events() <-chan blinky.Event {
	return t.events
}

// Close stops the worker, cancels a live connection and stops publishing events.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.cancel()

	t.mu.Lock()
	l := t.link
	t.link = nil
	t.mu.Unlock()

	if l != nil && l.ended.CompareAndSwap(false, true) {
		if err := l.client.CancelConnection(); err != nil {
			t.logger.WithError(err).Warn("Failed to cancel connection during close")
			return NormalizeError(err)
		}
	}
	return nil
}

func (t *Transport) work(ctx context.Context) {
	t.logger.WithField("goroutine", groutine.Name(ctx)).Debug("Transport worker started")
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-t.requests:
			job()
		}
	}
}

// enqueue hands a job to the worker. It never blocks; a full queue is a
// submission failure.
func (t *Transport) enqueue(op blinky.Op, job func()) error {
	if t.closed.Load() {
		return ErrClosed
	}
	select {
	case t.requests <- job:
		return nil
	default:
		return fmt.Errorf("%s: request queue full", op)
	}
}

func (t *Transport) publish(ev blinky.Event) {
	select {
	case t.events <- ev:
	case <-t.ctx.Done():
	}
}

// fail publishes an operation failure. A failure caused by the radio being
// off is published as a power state change instead.
func (t *Transport) fail(op blinky.Op, h blinky.Handle, err error) {
	err = NormalizeError(err)
	if errors.Is(err, blinky.ErrBluetoothOff) {
		t.logger.WithError(err).Warn("Bluetooth is turned off")
		t.publish(blinky.PowerStateChanged{PoweredOn: false})
		return
	}
	t.logger.WithFields(logrus.Fields{
		"op":      op,
		"address": t.address,
		"error":   err,
	}).Warn("BLE operation failed")
	t.publish(blinky.OperationFailed{Op: op, Characteristic: h, Err: err})
}

func (t *Transport) current() *link {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.link
}

func (t *Transport) checkID(id blinky.PeripheralID) error {
	if string(id) != t.address {
		return fmt.Errorf("transport serves %q, got request for %q", t.address, id)
	}
	return nil
}

// Connect dials the peripheral.
func (t *Transport) Connect(id blinky.PeripheralID) error {
	if err := t.checkID(id); err != nil {
		return err
	}
	if t.current() != nil {
		return blinky.ErrAlreadyConnected
	}
	return t.enqueue(blinky.OpConnect, t.connect)
}

func (t *Transport) connect() {
	t.logger.WithFields(logrus.Fields{
		"address": t.address,
		"timeout": t.opts.ConnectTimeout,
	}).Info("Connecting to BLE device...")

	ctx, cancel := context.WithTimeout(t.ctx, t.opts.ConnectTimeout)
	defer cancel()

	client, err := Dialer(ctx, t.address)
	if err != nil {
		err = NormalizeError(err)
		if errors.Is(err, blinky.ErrBluetoothOff) {
			t.logger.WithError(err).Warn("Bluetooth is turned off")
			t.publish(blinky.PowerStateChanged{PoweredOn: false})
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: connecting to %s after %v", blinky.ErrTimeout, t.address, t.opts.ConnectTimeout)
		}
		t.logger.WithFields(logrus.Fields{
			"address": t.address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		t.publish(blinky.ConnectFailed{Err: fmt.Errorf("failed to connect to device with address %q: %w", t.address, err)})
		return
	}

	l := &link{
		client:   client,
		services: make(map[blinky.Handle]*ble.Service),
		chars:    make(map[blinky.Handle]*ble.Characteristic),
	}
	t.mu.Lock()
	t.link = l
	t.mu.Unlock()

	// CoreBluetooth clients expose a channel closed on disconnection
	if dc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		groutine.Go(t.ctx, "ble-connection-monitor", func(ctx context.Context) {
			select {
			case <-dc.Disconnected():
				err := error(nil)
				if !l.requested.Load() {
					err = blinky.ErrNotConnected
				}
				t.endLink(l, err)
			case <-ctx.Done():
			}
		})
	} else {
		t.logger.Debug("Client does not support Disconnected() channel (non-Darwin platform?)")
	}

	t.logger.WithField("address", t.address).Info("BLE device connected")
	t.publish(blinky.Connected{})
}

// endLink publishes Disconnected once per link.
func (t *Transport) endLink(l *link, err error) {
	if !l.ended.CompareAndSwap(false, true) {
		return
	}
	t.mu.Lock()
	if t.link == l {
		t.link = nil
	}
	t.mu.Unlock()

	if err != nil {
		t.logger.WithError(err).Warn("BLE device disconnected unexpectedly")
	} else {
		t.logger.Info("BLE device disconnected")
	}
	t.publish(blinky.Disconnected{Err: err})
}

// Disconnect cancels the connection. Without a connection the disconnection
// is confirmed right away.
func (t *Transport) Disconnect(id blinky.PeripheralID) error {
	if err := t.checkID(id); err != nil {
		return err
	}
	return t.enqueue(blinky.OpDisconnect, func() {
		l := t.current()
		if l == nil {
			t.publish(blinky.Disconnected{})
			return
		}
		l.requested.Store(true)
		t.logger.WithField("address", t.address).Info("Disconnecting BLE device...")
		if _, err := callWithTimeout(t.opts.OperationTimeout, func() (struct{}, error) {
			return struct{}{}, l.client.CancelConnection()
		}); err != nil {
			t.logger.WithError(err).Warn("BLE device disconnected with errors")
		}
		t.endLink(l, nil)
	})
}

// DiscoverServices discovers services matching filter.
func (t *Transport) DiscoverServices(id blinky.PeripheralID, filter []uuid.UUID) error {
	if err := t.checkID(id); err != nil {
		return err
	}
	return t.enqueue(blinky.OpDiscoverServices, func() {
		l := t.current()
		if l == nil {
			t.fail(blinky.OpDiscoverServices, 0, blinky.ErrNotConnected)
			return
		}
		svcs, err := callWithTimeout(t.opts.OperationTimeout, func() ([]*ble.Service, error) {
			return l.client.DiscoverServices(toBLEUUIDs(filter))
		})
		if err != nil {
			t.fail(blinky.OpDiscoverServices, 0, err)
			return
		}

		result := make([]blinky.Service, 0, len(svcs))
		for _, svc := range svcs {
			id, err := blinky.ParseUUID(svc.UUID.String())
			if err != nil {
				t.logger.WithError(err).Debug("Skipping service with unparsable UUID")
				continue
			}
			h := t.register(func(h blinky.Handle) { l.services[h] = svc })
			t.logger.WithField("service_uuid", id).Debug("Found service UUID")
			result = append(result, blinky.Service{Handle: h, UUID: id})
		}
		t.publish(blinky.ServicesDiscovered{Services: result})
	})
}

// DiscoverCharacteristics discovers characteristics of svc matching filter.
func (t *Transport) DiscoverCharacteristics(id blinky.PeripheralID, svc blinky.Service, filter []uuid.UUID) error {
	if err := t.checkID(id); err != nil {
		return err
	}
	return t.enqueue(blinky.OpDiscoverCharacteristics, func() {
		l := t.current()
		if l == nil {
			t.fail(blinky.OpDiscoverCharacteristics, 0, blinky.ErrNotConnected)
			return
		}
		t.mu.Lock()
		bleSvc, ok := l.services[svc.Handle]
		t.mu.Unlock()
		if !ok {
			t.fail(blinky.OpDiscoverCharacteristics, 0, fmt.Errorf("service %s: %w", svc.UUID, blinky.ErrUnsupported))
			return
		}

		chars, err := callWithTimeout(t.opts.OperationTimeout, func() ([]*ble.Characteristic, error) {
			return l.client.DiscoverCharacteristics(toBLEUUIDs(filter), bleSvc)
		})
		if err != nil {
			t.fail(blinky.OpDiscoverCharacteristics, 0, err)
			return
		}

		result := make([]blinky.Characteristic, 0, len(chars))
		for _, c := range chars {
			id, err := blinky.ParseUUID(c.UUID.String())
			if err != nil {
				t.logger.WithError(err).Debug("Skipping characteristic with unparsable UUID")
				continue
			}
			h := t.register(func(h blinky.Handle) { l.chars[h] = c })
			t.logger.WithFields(logrus.Fields{
				"service_uuid": svc.UUID,
				"char_uuid":    id,
			}).Debug("Found characteristic UUID")
			result = append(result, blinky.Characteristic{Handle: h, UUID: id, Properties: NewProperties(c.Property)})
		}
		t.publish(blinky.CharacteristicsDiscovered{Service: svc, Characteristics: result})
	})
}

// SetNotify subscribes to or unsubscribes from notifications of ch.
func (t *Transport) SetNotify(id blinky.PeripheralID, ch blinky.Characteristic, enabled bool) error {
	if err := t.checkID(id); err != nil {
		return err
	}
	return t.enqueue(blinky.OpSetNotify, func() {
		l, c, err := t.lookup(ch)
		if err != nil {
			t.fail(blinky.OpSetNotify, ch.Handle, err)
			return
		}

		_, err = callWithTimeout(t.opts.OperationTimeout, func() (struct{}, error) {
			if !enabled {
				return struct{}{}, l.client.Unsubscribe(c, false)
			}
			return struct{}{}, l.client.Subscribe(c, false, func(data []byte) {
				if l.ended.Load() {
					return
				}
				value := make([]byte, len(data))
				copy(value, data)
				t.publish(blinky.ValueUpdated{Characteristic: ch.Handle, Value: value})
			})
		})
		if err != nil {
			t.fail(blinky.OpSetNotify, ch.Handle, err)
			return
		}
		t.logger.WithFields(logrus.Fields{
			"char_uuid": ch.UUID,
			"enabled":   enabled,
		}).Info("Notification state updated")
		t.publish(blinky.NotificationStateUpdated{Characteristic: ch.Handle, Enabled: enabled})
	})
}

// Read reads the value of ch.
func (t *Transport) Read(id blinky.PeripheralID, ch blinky.Characteristic) error {
	if err := t.checkID(id); err != nil {
		return err
	}
	return t.enqueue(blinky.OpRead, func() {
		l, c, err := t.lookup(ch)
		if err != nil {
			t.fail(blinky.OpRead, ch.Handle, err)
			return
		}
		data, err := callWithTimeout(t.opts.OperationTimeout, func() ([]byte, error) {
			return l.client.ReadCharacteristic(c)
		})
		if err != nil {
			t.fail(blinky.OpRead, ch.Handle, fmt.Errorf("failed to read characteristic %s: %w", ch.UUID, err))
			return
		}
		t.publish(blinky.ValueUpdated{Characteristic: ch.Handle, Value: data})
	})
}

// Write writes value to ch. Only a write with ack publishes WriteCompleted.
func (t *Transport) Write(id blinky.PeripheralID, ch blinky.Characteristic, value []byte, withAck bool) error {
	if err := t.checkID(id); err != nil {
		return err
	}
	payload := make([]byte, len(value))
	copy(payload, value)

	return t.enqueue(blinky.OpWrite, func() {
		l, c, err := t.lookup(ch)
		if err != nil {
			t.fail(blinky.OpWrite, ch.Handle, err)
			return
		}
		_, err = callWithTimeout(t.opts.OperationTimeout, func() (struct{}, error) {
			return struct{}{}, l.client.WriteCharacteristic(c, payload, !withAck)
		})
		if err != nil {
			t.fail(blinky.OpWrite, ch.Handle, fmt.Errorf("failed to write characteristic %s: %w", ch.UUID, err))
			return
		}
		if withAck {
			t.publish(blinky.WriteCompleted{Characteristic: ch.Handle})
		}
	})
}

func (t *Transport) lookup(ch blinky.Characteristic) (*link, *ble.Characteristic, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.link == nil {
		return nil, nil, blinky.ErrNotConnected
	}
	c, ok := t.link.chars[ch.Handle]
	if !ok {
		return nil, nil, fmt.Errorf("characteristic %s not discovered", ch.UUID)
	}
	return t.link, c, nil
}

// register assigns the next handle under the transport lock.
func (t *Transport) register(store func(h blinky.Handle)) blinky.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextHandle++
	store(t.nextHandle)
	return t.nextHandle
}

// callWithTimeout runs fn and gives up after timeout. The call itself keeps
// running in the background; go-ble offers no way to abort it.
func callWithTimeout[T any](timeout time.Duration, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		v, err := fn()
		resultCh <- result{v: v, err: err}
	}()

	select {
	case r := <-resultCh:
		return r.v, r.err
	case <-time.After(timeout):
		var zero T
		return zero, fmt.Errorf("%w after %v", blinky.ErrTimeout, timeout)
	}
}

func toBLEUUIDs(ids []uuid.UUID) []ble.UUID {
	if len(ids) == 0 {
		return nil
	}
	result := make([]ble.UUID, 0, len(ids))
	for _, id := range ids {
		result = append(result, ble.MustParse(strings.ReplaceAll(id.String(), "-", "")))
	}
	return result
}

var _ blinky.Transport = (*Transport)(nil)
