package blinky

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Machine is the LED Button profile state machine. It never talks to a
// Transport or an Observer; every operation returns the effects the caller
// must carry out, in order.
//
// Machine is not safe for concurrent use.
type Machine struct {
	state    State
	tornDown bool

	button binding
	led    binding

	buttonValue, buttonKnown bool
	ledValue, ledKnown       bool

	logger *logrus.Entry
}

// NewMachine returns a machine in the idle state.
func NewMachine(logger *logrus.Entry) *Machine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Machine{state: StateIdle, logger: logger}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// TornDown reports whether the connection has ended and late events are being dropped.
func (m *Machine) TornDown() bool {
	return m.tornDown
}

// LEDSupported reports whether the LED characteristic is bound.
func (m *Machine) LEDSupported() bool {
	return m.led.bound
}

// ButtonSupported reports whether the Button characteristic is bound.
func (m *Machine) ButtonSupported() bool {
	return m.button.bound
}

// LEDWritable reports whether the bound LED characteristic accepts writes.
func (m *Machine) LEDWritable() bool {
	ch, ok := m.led.get()
	return ok && (ch.Properties.Has(PropWrite) || ch.Properties.Has(PropWriteWithoutResponse))
}

// LEDState returns the last LED value delivered to the Observer.
func (m *Machine) LEDState() (on bool, known bool) {
	return m.ledValue, m.ledKnown
}

// ButtonState returns the last Button value delivered to the Observer.
func (m *Machine) ButtonState() (pressed bool, known bool) {
	return m.buttonValue, m.buttonKnown
}

// Connect starts a connection attempt. It fails with ErrAlreadyConnected
// unless the machine is idle, disconnected or unsupported.
func (m *Machine) Connect() ([]Effect, error) {
	if !m.state.canConnect() {
		return nil, &ConnectionError{State: AlreadyConnected, Msg: "session is " + m.state.String()}
	}
	m.reset()
	m.tornDown = false
	m.transition(StateConnecting)
	return []Effect{ConnectRequest{}}, nil
}

// Disconnect requests teardown. The Disconnected state is only reached when
// the Transport reports the disconnection.
func (m *Machine) Disconnect() []Effect {
	if m.tornDown || m.state == StateIdle {
		m.logger.WithField("state", m.state).Debug("Disconnect ignored: no connection")
		return nil
	}
	return []Effect{DisconnectRequest{}}
}

// ReadLED reads the LED characteristic. Unbound: no-op. Not readable: the LED
// is reported off without touching the Transport.
func (m *Machine) ReadLED() []Effect {
	ch, ok := m.led.get()
	if !ok {
		return nil
	}
	if !ch.Properties.Has(PropRead) {
		m.logger.Debug("LED characteristic is not readable, reporting off")
		return []Effect{LEDNotice{On: false}}
	}
	return []Effect{ReadRequest{Characteristic: ch}}
}

// ReadButton reads the Button characteristic. Unbound: no-op. Not readable:
// the button is reported released without touching the Transport.
func (m *Machine) ReadButton() []Effect {
	ch, ok := m.button.get()
	if !ok {
		return nil
	}
	if !ch.Properties.Has(PropRead) {
		m.logger.Debug("Button characteristic is not readable, reporting released")
		return []Effect{ButtonNotice{Pressed: false}}
	}
	return []Effect{ReadRequest{Characteristic: ch}}
}

// WriteLED writes value to the LED characteristic.
//
// Write with response is preferred; its confirmation triggers a re-read. A
// write without response never completes, so the request carries the LED
// notice to deliver once the Transport accepts it.
func (m *Machine) WriteLED(value []byte) []Effect {
	ch, ok := m.led.get()
	if !ok {
		return nil
	}

	switch {
	case ch.Properties.Has(PropWrite):
		return []Effect{WriteRequest{Characteristic: ch, Value: value, WithAck: true}}
	case ch.Properties.Has(PropWriteWithoutResponse):
		req := WriteRequest{Characteristic: ch, Value: value, WithAck: false}
		if on, ok := DecodeBool(value); ok {
			req.Optimistic = LEDNotice{On: on}
		}
		return []Effect{req}
	default:
		m.logger.Debug("LED characteristic is not writable")
		return nil
	}
}

// Apply consumes a Transport event and returns the new state with the
// effects it causes. Events arriving after teardown are dropped.
func (m *Machine) Apply(ev Event) (State, []Effect) {
	if m.tornDown {
		m.logger.WithField("event", EventName(ev)).Debug("Dropping event after teardown")
		return m.state, nil
	}

	if p, ok := ev.(PowerStateChanged); ok {
		if p.PoweredOn {
			return m.state, nil
		}
		m.logger.WithField("state", m.state).Warn("Radio powered off")
		return m.state, m.teardown()
	}

	if d, ok := ev.(Disconnected); ok {
		if d.Err != nil {
			m.logger.WithError(d.Err).Info("Peripheral disconnected")
		}
		return m.state, m.teardown()
	}

	if m.state == StateIdle {
		m.logger.WithField("event", EventName(ev)).Debug("Dropping event before connect")
		return m.state, nil
	}

	var effects []Effect
	switch e := ev.(type) {
	case Connected:
		effects = m.onConnected()
	case ConnectFailed:
		effects = []Effect{FailureNotice{Op: OpConnect, Err: e.Err}}
	case ServicesDiscovered:
		effects = m.onServicesDiscovered(e)
	case CharacteristicsDiscovered:
		effects = m.onCharacteristicsDiscovered(e)
	case NotificationStateUpdated:
		effects = m.onNotificationStateUpdated(e)
	case ValueUpdated:
		effects = m.onValueUpdated(e)
	case WriteCompleted:
		if m.led.is(e.Characteristic) {
			effects = m.ReadLED()
		}
	case OperationFailed:
		m.logger.WithFields(logrus.Fields{
			"op":    e.Op,
			"state": m.state,
			"error": e.Err,
		}).Warn("Transport operation failed")
		effects = []Effect{FailureNotice{Op: e.Op, Err: e.Err}}
	}
	return m.state, effects
}

func (m *Machine) onConnected() []Effect {
	if m.state != StateConnecting {
		m.logger.WithField("state", m.state).Debug("Ignoring connected event")
		return nil
	}
	m.transition(StateDiscoveringServices)
	return []Effect{DiscoverServicesRequest{Filter: []uuid.UUID{ServiceUUID}}}
}

func (m *Machine) onServicesDiscovered(e ServicesDiscovered) []Effect {
	if m.state != StateDiscoveringServices {
		m.logger.WithField("state", m.state).Debug("Ignoring services discovered event")
		return nil
	}
	for _, svc := range e.Services {
		if svc.UUID == ServiceUUID {
			m.logger.Debug("LED Button service found")
			m.transition(StateDiscoveringCharacteristics)
			return []Effect{DiscoverCharacteristicsRequest{
				Service: svc,
				Filter:  []uuid.UUID{ButtonCharacteristicUUID, LEDCharacteristicUUID},
			}}
		}
	}
	m.logger.WithField("services", len(e.Services)).Warn("Device not supported: required service not found")
	m.transition(StateUnsupported)
	return []Effect{ConnectedNotice{}}
}

func (m *Machine) onCharacteristicsDiscovered(e CharacteristicsDiscovered) []Effect {
	if m.state != StateDiscoveringCharacteristics {
		// Handles bound once stay bound for the whole session.
		m.logger.WithField("state", m.state).Warn("Ignoring characteristic discovery outside discovery phase")
		return nil
	}
	if e.Service.UUID != ServiceUUID {
		m.logger.WithField("service_uuid", e.Service.UUID).Debug("Ignoring characteristics of unrelated service")
		return nil
	}

	seen := make(map[uuid.UUID]int)
	for _, ch := range e.Characteristics {
		switch ch.UUID {
		case ButtonCharacteristicUUID:
			m.button = binding{char: ch, bound: true}
		case LEDCharacteristicUUID:
			m.led = binding{char: ch, bound: true}
		default:
			continue
		}
		seen[ch.UUID]++
		m.logger.WithFields(logrus.Fields{
			"char_uuid":  ch.UUID,
			"char_name":  knownName(ch.UUID),
			"properties": ch.Properties,
		}).Debug("Characteristic found")
	}
	for id, n := range seen {
		if n > 1 {
			m.logger.WithError(&ProtocolViolationError{UUID: id, Count: n}).Warn("Duplicate characteristic, using the last one")
		}
	}

	if ch, ok := m.button.get(); ok {
		return m.enableNotifications(ch)
	}
	if m.led.bound {
		m.transition(StateReady)
		return append([]Effect{ConnectedNotice{LEDSupported: true}}, m.ReadLED()...)
	}

	m.logger.Warn("Device not supported: required characteristics not found")
	m.transition(StateUnsupported)
	return []Effect{ConnectedNotice{}}
}

// enableNotifications subscribes to the Button. Without the notify property
// the session is reported connected immediately and seeded by reads.
func (m *Machine) enableNotifications(ch Characteristic) []Effect {
	if ch.Properties.Has(PropNotify) {
		m.transition(StateEnablingNotifications)
		return []Effect{SetNotifyRequest{Characteristic: ch, Enabled: true}}
	}
	m.logger.Debug("Button characteristic has no notify property")
	return m.ready()
}

func (m *Machine) onNotificationStateUpdated(e NotificationStateUpdated) []Effect {
	if m.state != StateEnablingNotifications || !m.button.is(e.Characteristic) {
		m.logger.WithField("state", m.state).Debug("Ignoring notification state update")
		return nil
	}
	if !e.Enabled {
		m.logger.Warn("Button notifications reported disabled")
	} else {
		m.logger.Debug("Button notifications enabled")
	}
	return m.ready()
}

func (m *Machine) ready() []Effect {
	m.transition(StateReady)
	effects := []Effect{ConnectedNotice{LEDSupported: m.led.bound, ButtonSupported: m.button.bound}}
	effects = append(effects, m.ReadButton()...)
	return append(effects, m.ReadLED()...)
}

func (m *Machine) onValueUpdated(e ValueUpdated) []Effect {
	var isButton bool
	switch {
	case m.button.is(e.Characteristic):
		isButton = true
	case m.led.is(e.Characteristic):
	default:
		m.logger.WithField("handle", e.Characteristic).Debug("Value update for unknown characteristic")
		return nil
	}

	v, ok := DecodeBool(e.Value)
	if !ok {
		m.logger.WithField("handle", e.Characteristic).Debug("Empty value update")
		return nil
	}
	if isButton {
		return []Effect{ButtonNotice{Pressed: v}}
	}
	return []Effect{LEDNotice{On: v}}
}

func (m *Machine) teardown() []Effect {
	m.reset()
	m.tornDown = true
	m.transition(StateDisconnected)
	return []Effect{DisconnectedNotice{}}
}

// reset clears everything derived from discovery.
func (m *Machine) reset() {
	m.button = binding{}
	m.led = binding{}
	m.buttonValue, m.buttonKnown = false, false
	m.ledValue, m.ledKnown = false, false
}

func (m *Machine) transition(to State) {
	if m.state == to {
		return
	}
	m.logger.WithFields(logrus.Fields{
		"from": m.state,
		"to":   to,
	}).Debug("State transition")
	m.state = to
}

// Record mirrors a notice that was delivered to the Observer. Notices that
// never reach the Observer must not be recorded.
func (m *Machine) Record(n Notice) {
	switch e := n.(type) {
	case LEDNotice:
		m.ledValue, m.ledKnown = e.On, true
	case ButtonNotice:
		m.buttonValue, m.buttonKnown = e.Pressed, true
	}
}
