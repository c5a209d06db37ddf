package blinky

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Session drives one peripheral through the LED Button profile.
//
// A Session holds no locks. All methods, including Handle, must be called from
// a single goroutine; see Loop.
type Session struct {
	peripheral Peripheral
	transport  Transport
	observer   Observer
	machine    *Machine
	logger     *logrus.Entry
}

// NewSession creates an idle session. The advertised information
// in p is kept as is for the lifetime of the session.
func NewSession(p Peripheral, t Transport, o Observer, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	if o == nil {
		o = ObserverFuncs{}
	}
	entry := logger.WithField("peripheral_id", p.ID)
	return &Session{
		peripheral: p,
		transport:  t,
		observer:   o,
		machine:    NewMachine(entry),
		logger:     entry,
	}
}

// ID returns the peripheral identity.
func (s *Session) ID() PeripheralID {
	return s.peripheral.ID
}

// Info returns what the peripheral advertised at discovery time.
func (s *Session) Info() AdvertisedInfo {
	return s.peripheral.Info
}

// Name returns the advertised name or UnknownDeviceName.
func (s *Session) Name() string {
	return s.peripheral.Info.Name
}

// State returns the current session state.
func (s *Session) State() State {
	return s.machine.State()
}

// LEDState returns the last LED value reported in this session.
func (s *Session) LEDState() (on bool, known bool) {
	return s.machine.LEDState()
}

// LEDWritable reports whether the LED characteristic accepts writes.
func (s *Session) LEDWritable() bool {
	return s.machine.LEDWritable()
}

// ButtonState returns the last Button value reported in this session.
func (s *Session) ButtonState() (pressed bool, known bool) {
	return s.machine.ButtonState()
}

// Equal compares sessions by peripheral identity.
func (s *Session) Equal(other *Session) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.peripheral.Equal(other.peripheral)
}

// Connect asks the Transport to connect.
// Returns ErrAlreadyConnected if a connection is in progress or established.
func (s *Session) Connect() error {
	effects, err := s.machine.Connect()
	if err != nil {
		s.logger.WithField("state", s.machine.State()).Warn("Connection attempt while already connected")
		return err
	}
	s.logger.WithField("name", s.Name()).Info("Connecting to Blinky device...")
	s.execute(effects)
	return nil
}

// Disconnect asks the Transport to tear the connection down. OnDisconnected
// fires when the Transport confirms.
func (s *Session) Disconnect() {
	effects := s.machine.Disconnect()
	if len(effects) > 0 {
		s.logger.Info("Cancelling connection...")
	}
	s.execute(effects)
}

// ReadLED requests the LED value.
func (s *Session) ReadLED() {
	s.execute(s.machine.ReadLED())
}

// ReadButton requests the Button value.
func (s *Session) ReadButton() {
	s.execute(s.machine.ReadButton())
}

// TurnOnLED writes 0x01 to the LED characteristic.
func (s *Session) TurnOnLED() {
	s.WriteLED(EncodeBool(true))
}

// TurnOffLED writes 0x00 to the LED characteristic.
func (s *Session) TurnOffLED() {
	s.WriteLED(EncodeBool(false))
}

// WriteLED writes a raw value to the LED characteristic.
func (s *Session) WriteLED(value []byte) {
	s.execute(s.machine.WriteLED(value))
}

// Handle feeds a Transport event into the session.
func (s *Session) Handle(ev Event) {
	_, effects := s.machine.Apply(ev)
	s.execute(effects)
}

// execute carries out effects in order. A rejected request is fed back as an
// OperationFailed event and its optimistic notice is dropped; the rest of the
// batch still runs.
func (s *Session) execute(effects []Effect) {
	for _, eff := range effects {
		switch e := eff.(type) {
		case Request:
			if err := s.submit(e); err != nil {
				if w, ok := e.(WriteRequest); ok && w.Optimistic != nil {
					s.logger.WithField("notice", fmt.Sprintf("%T", w.Optimistic)).Debug("Dropping notice of rejected write")
				}
				s.Handle(OperationFailed{Op: e.op(), Characteristic: requestHandle(e), Err: err})
				continue
			}
			if w, ok := e.(WriteRequest); ok && w.Optimistic != nil {
				s.notify(w.Optimistic)
			}
		case Notice:
			s.notify(e)
		}
	}
}

func (s *Session) submit(req Request) error {
	id := s.peripheral.ID
	switch r := req.(type) {
	case ConnectRequest:
		return s.transport.Connect(id)
	case DisconnectRequest:
		return s.transport.Disconnect(id)
	case DiscoverServicesRequest:
		s.logger.Debug("Discovering LED Button service...")
		return s.transport.DiscoverServices(id, r.Filter)
	case DiscoverCharacteristicsRequest:
		s.logger.Debug("Discovering LED and Button characteristics...")
		return s.transport.DiscoverCharacteristics(id, r.Service, r.Filter)
	case SetNotifyRequest:
		s.logger.WithField("enabled", r.Enabled).Debug("Setting Button notifications...")
		return s.transport.SetNotify(id, r.Characteristic, r.Enabled)
	case ReadRequest:
		s.logger.WithField("char_name", knownName(r.Characteristic.UUID)).Debug("Reading characteristic...")
		return s.transport.Read(id, r.Characteristic)
	case WriteRequest:
		s.logger.WithFields(logrus.Fields{
			"value":    fmt.Sprintf("%x", r.Value),
			"with_ack": r.WithAck,
		}).Debug("Writing LED value...")
		return s.transport.Write(id, r.Characteristic, r.Value, r.WithAck)
	default:
		return fmt.Errorf("unknown request %T", req)
	}
}

func (s *Session) notify(n Notice) {
	s.machine.Record(n)
	switch e := n.(type) {
	case ConnectedNotice:
		s.logger.WithFields(logrus.Fields{
			"led_supported":    e.LEDSupported,
			"button_supported": e.ButtonSupported,
		}).Info("Blinky connected")
		s.observer.OnConnected(e.LEDSupported, e.ButtonSupported)
	case DisconnectedNotice:
		s.logger.Info("Blinky disconnected")
		s.observer.OnDisconnected()
	case ButtonNotice:
		s.logger.WithField("pressed", e.Pressed).Debug("Button state changed")
		s.observer.OnButtonStateChanged(e.Pressed)
	case LEDNotice:
		s.logger.WithField("on", e.On).Debug("LED state changed")
		s.observer.OnLEDStateChanged(e.On)
	case FailureNotice:
		if fo, ok := s.observer.(FailureObserver); ok {
			fo.OnTransportFailure(e.Op, e.Err)
		}
	}
}

func requestHandle(req Request) Handle {
	switch r := req.(type) {
	case SetNotifyRequest:
		return r.Characteristic.Handle
	case ReadRequest:
		return r.Characteristic.Handle
	case WriteRequest:
		return r.Characteristic.Handle
	default:
		return 0
	}
}
