package blinky

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

var (
	testService   = Service{Handle: 1, UUID: ServiceUUID}
	testButton    = Characteristic{Handle: 2, UUID: ButtonCharacteristicUUID, Properties: PropRead | PropNotify}
	testLED       = Characteristic{Handle: 3, UUID: LEDCharacteristicUUID, Properties: PropRead | PropWrite}
	testFilterSvc = []uuid.UUID{ServiceUUID}
	testFilterChr = []uuid.UUID{ButtonCharacteristicUUID, LEDCharacteristicUUID}
)

type MachineTestSuite struct {
	suite.Suite
	m *Machine
}

func (s *MachineTestSuite) SetupTest() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	s.m = NewMachine(logrus.NewEntry(logger))
}

// apply feeds ev and records the notices it produces, as a Session does on delivery.
func (s *MachineTestSuite) apply(ev Event) []Effect {
	_, effects := s.m.Apply(ev)
	for _, eff := range effects {
		if n, ok := eff.(Notice); ok {
			s.m.Record(n)
		}
	}
	return effects
}

// discover drives the machine up to characteristic discovery.
func (s *MachineTestSuite) discover(chars ...Characteristic) []Effect {
	_, err := s.m.Connect()
	s.Require().NoError(err)
	s.apply(Connected{})
	s.apply(ServicesDiscovered{Services: []Service{testService}})
	return s.apply(CharacteristicsDiscovered{Service: testService, Characteristics: chars})
}

func (s *MachineTestSuite) ready() {
	s.discover(testButton, testLED)
	s.apply(NotificationStateUpdated{Characteristic: testButton.Handle, Enabled: true})
	s.Require().Equal(StateReady, s.m.State(), "machine MUST be ready")
}

func (s *MachineTestSuite) TestFullDiscoveryFlow() {
	// GOAL: Verify the discovery chain from connect to ready
	//
	// TEST SCENARIO: connect → connected → service found → both characteristics → notifications on → ready with both reads
	effects, err := s.m.Connect()
	s.Require().NoError(err)
	s.Equal([]Effect{ConnectRequest{}}, effects)
	s.Equal(StateConnecting, s.m.State())

	state, effects := s.m.Apply(Connected{})
	s.Equal(StateDiscoveringServices, state)
	s.Equal([]Effect{DiscoverServicesRequest{Filter: testFilterSvc}}, effects, "service discovery MUST be filtered to the LED Button Service")

	state, effects = s.m.Apply(ServicesDiscovered{Services: []Service{{Handle: 9, UUID: MustParseUUID("180F")}, testService}})
	s.Equal(StateDiscoveringCharacteristics, state)
	s.Equal([]Effect{DiscoverCharacteristicsRequest{Service: testService, Filter: testFilterChr}}, effects)

	state, effects = s.m.Apply(CharacteristicsDiscovered{Service: testService, Characteristics: []Characteristic{testButton, testLED}})
	s.Equal(StateEnablingNotifications, state)
	s.Equal([]Effect{SetNotifyRequest{Characteristic: testButton, Enabled: true}}, effects)

	state, effects = s.m.Apply(NotificationStateUpdated{Characteristic: testButton.Handle, Enabled: true})
	s.Equal(StateReady, state)
	s.Equal([]Effect{
		ConnectedNotice{LEDSupported: true, ButtonSupported: true},
		ReadRequest{Characteristic: testButton},
		ReadRequest{Characteristic: testLED},
	}, effects, "ready MUST report support then read button and LED in that order")
}

func (s *MachineTestSuite) TestDiscoveryOutcomes() {
	noNotifyButton := testButton
	noNotifyButton.Properties = PropRead

	tests := []struct {
		name     string
		chars    []Characteristic
		state    State
		expected []Effect
	}{
		{
			name:     "LED only is ready with LED support",
			chars:    []Characteristic{testLED},
			state:    StateReady,
			expected: []Effect{ConnectedNotice{LEDSupported: true}, ReadRequest{Characteristic: testLED}},
		},
		{
			name:     "button only enables notifications",
			chars:    []Characteristic{testButton},
			state:    StateEnablingNotifications,
			expected: []Effect{SetNotifyRequest{Characteristic: testButton, Enabled: true}},
		},
		{
			name:  "button without notify is ready immediately",
			chars: []Characteristic{noNotifyButton, testLED},
			state: StateReady,
			expected: []Effect{
				ConnectedNotice{LEDSupported: true, ButtonSupported: true},
				ReadRequest{Characteristic: noNotifyButton},
				ReadRequest{Characteristic: testLED},
			},
		},
		{
			name:     "no known characteristics is unsupported",
			chars:    []Characteristic{{Handle: 7, UUID: MustParseUUID("2A19"), Properties: PropRead}},
			state:    StateUnsupported,
			expected: []Effect{ConnectedNotice{}},
		},
		{
			name:     "empty discovery is unsupported",
			chars:    nil,
			state:    StateUnsupported,
			expected: []Effect{ConnectedNotice{}},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			effects := s.discover(tt.chars...)
			s.Equal(tt.state, s.m.State())
			s.Equal(tt.expected, effects)
		})
	}
}

func (s *MachineTestSuite) TestServiceMissingIsUnsupported() {
	// GOAL: Verify a peripheral without the LED Button Service reports no support
	//
	// TEST SCENARIO: services discovered without the target → unsupported → connected(false,false)
	_, err := s.m.Connect()
	s.Require().NoError(err)
	s.apply(Connected{})

	state, effects := s.m.Apply(ServicesDiscovered{Services: []Service{{Handle: 4, UUID: MustParseUUID("1800")}}})
	s.Equal(StateUnsupported, state)
	s.Equal([]Effect{ConnectedNotice{}}, effects)

	_, err = s.m.Connect()
	s.NoError(err, "unsupported MUST allow a new connection attempt")
}

func (s *MachineTestSuite) TestDuplicateCharacteristicsLastWins() {
	second := Characteristic{Handle: 30, UUID: LEDCharacteristicUUID, Properties: PropRead | PropWriteWithoutResponse}

	effects := s.discover(testLED, second)

	s.Equal(StateReady, s.m.State())
	s.Equal([]Effect{ConnectedNotice{LEDSupported: true}, ReadRequest{Characteristic: second}}, effects,
		"the last characteristic with a duplicated UUID MUST be bound")
}

func (s *MachineTestSuite) TestCharacteristicsOfOtherServiceIgnored() {
	_, err := s.m.Connect()
	s.Require().NoError(err)
	s.apply(Connected{})
	s.apply(ServicesDiscovered{Services: []Service{testService}})

	other := Service{Handle: 5, UUID: MustParseUUID("180F")}
	effects := s.apply(CharacteristicsDiscovered{Service: other, Characteristics: []Characteristic{testLED}})

	s.Empty(effects)
	s.Equal(StateDiscoveringCharacteristics, s.m.State())
	s.False(s.m.LEDSupported())
}

func (s *MachineTestSuite) TestSecondDiscoveryDoesNotRebind() {
	s.ready()

	other := Characteristic{Handle: 99, UUID: LEDCharacteristicUUID, Properties: PropRead}
	effects := s.apply(CharacteristicsDiscovered{Service: testService, Characteristics: []Characteristic{other}})

	s.Empty(effects)
	s.Equal([]Effect{ReadRequest{Characteristic: testLED}}, s.m.ReadLED(), "bound handles MUST stay bound")
}

func (s *MachineTestSuite) TestNotificationDisabledStillReady() {
	s.discover(testButton)

	state, effects := s.m.Apply(NotificationStateUpdated{Characteristic: testButton.Handle, Enabled: false})

	s.Equal(StateReady, state)
	s.Equal([]Effect{ConnectedNotice{ButtonSupported: true}, ReadRequest{Characteristic: testButton}}, effects)
}

func (s *MachineTestSuite) TestNotificationForOtherHandleIgnored() {
	s.discover(testButton, testLED)

	effects := s.apply(NotificationStateUpdated{Characteristic: testLED.Handle, Enabled: true})

	s.Empty(effects)
	s.Equal(StateEnablingNotifications, s.m.State())
}

func (s *MachineTestSuite) TestValueUpdates() {
	tests := []struct {
		name     string
		event    ValueUpdated
		expected []Effect
	}{
		{"button pressed", ValueUpdated{Characteristic: testButton.Handle, Value: []byte{0x01}}, []Effect{ButtonNotice{Pressed: true}}},
		{"button released", ValueUpdated{Characteristic: testButton.Handle, Value: []byte{0x00}}, []Effect{ButtonNotice{Pressed: false}}},
		{"LED on", ValueUpdated{Characteristic: testLED.Handle, Value: []byte{0x01}}, []Effect{LEDNotice{On: true}}},
		{"non-one byte is false", ValueUpdated{Characteristic: testLED.Handle, Value: []byte{0x02}}, []Effect{LEDNotice{On: false}}},
		{"only first byte counts", ValueUpdated{Characteristic: testLED.Handle, Value: []byte{0x01, 0x00}}, []Effect{LEDNotice{On: true}}},
		{"empty value ignored", ValueUpdated{Characteristic: testLED.Handle, Value: nil}, nil},
		{"unknown handle ignored", ValueUpdated{Characteristic: 42, Value: []byte{0x01}}, nil},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.ready()
			s.Equal(tt.expected, s.apply(tt.event))
		})
	}
}

func (s *MachineTestSuite) TestValueMirrors() {
	s.ready()

	_, known := s.m.LEDState()
	s.False(known, "LED value MUST be unknown before the first report")

	s.apply(ValueUpdated{Characteristic: testLED.Handle, Value: []byte{0x01}})
	s.apply(ValueUpdated{Characteristic: testButton.Handle, Value: []byte{0x01}})

	on, known := s.m.LEDState()
	s.True(on)
	s.True(known)
	pressed, known := s.m.ButtonState()
	s.True(pressed)
	s.True(known)

	s.apply(Disconnected{})
	_, known = s.m.LEDState()
	s.False(known, "teardown MUST clear mirrored values")
}

func (s *MachineTestSuite) TestWriteLED() {
	writeNoRsp := testLED
	writeNoRsp.Properties = PropRead | PropWriteWithoutResponse
	both := testLED
	both.Properties = PropWrite | PropWriteWithoutResponse
	readOnly := testLED
	readOnly.Properties = PropRead

	tests := []struct {
		name     string
		led      Characteristic
		value    []byte
		expected []Effect
	}{
		{
			name:     "write with response",
			led:      testLED,
			value:    EncodeBool(true),
			expected: []Effect{WriteRequest{Characteristic: testLED, Value: []byte{0x01}, WithAck: true}},
		},
		{
			name:  "write without response carries the LED notice",
			led:   writeNoRsp,
			value: EncodeBool(true),
			expected: []Effect{
				WriteRequest{Characteristic: writeNoRsp, Value: []byte{0x01}, WithAck: false, Optimistic: LEDNotice{On: true}},
			},
		},
		{
			name:     "write with response preferred when both are present",
			led:      both,
			value:    EncodeBool(false),
			expected: []Effect{WriteRequest{Characteristic: both, Value: []byte{0x00}, WithAck: true}},
		},
		{
			name:     "not writable is a no-op",
			led:      readOnly,
			value:    EncodeBool(true),
			expected: nil,
		},
		{
			name:     "empty value without response sends no notice",
			led:      writeNoRsp,
			value:    []byte{},
			expected: []Effect{WriteRequest{Characteristic: writeNoRsp, Value: []byte{}, WithAck: false}},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.discover(tt.led)
			s.Equal(tt.expected, s.m.WriteLED(tt.value))
		})
	}
}

func (s *MachineTestSuite) TestMirrorFollowsDeliveredNotices() {
	// GOAL: Verify mirrored values change only when a notice is delivered
	//
	// TEST SCENARIO: write without response built → mirror unchanged → optimistic notice recorded → mirror updated
	led := testLED
	led.Properties = PropRead | PropWriteWithoutResponse
	s.discover(led)

	effects := s.m.WriteLED(EncodeBool(true))
	s.Require().Len(effects, 1)
	_, known := s.m.LEDState()
	s.False(known, "building a write MUST NOT update the LED mirror")

	s.m.Record(effects[0].(WriteRequest).Optimistic)
	on, known := s.m.LEDState()
	s.True(on)
	s.True(known)

	s.m.Record(ButtonNotice{Pressed: true})
	pressed, known := s.m.ButtonState()
	s.True(pressed)
	s.True(known)
}

func (s *MachineTestSuite) TestLEDWritable() {
	s.False(s.m.LEDWritable(), "unbound LED MUST NOT be writable")

	tests := []struct {
		name     string
		props    Properties
		writable bool
	}{
		{"write", PropRead | PropWrite, true},
		{"write without response", PropWriteWithoutResponse, true},
		{"read only", PropRead, false},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			led := testLED
			led.Properties = tt.props
			s.discover(led)
			s.Equal(tt.writable, s.m.LEDWritable())
		})
	}
}

func (s *MachineTestSuite) TestDisconnectedWhileIdle() {
	state, effects := s.m.Apply(Disconnected{})

	s.Equal(StateDisconnected, state)
	s.Equal([]Effect{DisconnectedNotice{}}, effects, "disconnection MUST be reported regardless of prior state")
	s.Empty(s.apply(Disconnected{}), "the teardown guard MUST still hold")

	_, err := s.m.Connect()
	s.NoError(err)
}

func (s *MachineTestSuite) TestWriteCompletedRereadsLED() {
	s.ready()

	s.Equal([]Effect{ReadRequest{Characteristic: testLED}}, s.apply(WriteCompleted{Characteristic: testLED.Handle}))
	s.Empty(s.apply(WriteCompleted{Characteristic: testButton.Handle}), "only LED writes MUST trigger a re-read")
}

func (s *MachineTestSuite) TestUnreadableCharacteristicsDegrade() {
	led := testLED
	led.Properties = PropWrite
	button := testButton
	button.Properties = PropNotify

	s.discover(button, led)
	effects := s.apply(NotificationStateUpdated{Characteristic: button.Handle, Enabled: true})

	s.Equal([]Effect{
		ConnectedNotice{LEDSupported: true, ButtonSupported: true},
		ButtonNotice{Pressed: false},
		LEDNotice{On: false},
	}, effects, "unreadable characteristics MUST report false without a read")
}

func (s *MachineTestSuite) TestOperationsBeforeBindingAreNoOps() {
	s.Empty(s.m.ReadLED())
	s.Empty(s.m.ReadButton())
	s.Empty(s.m.WriteLED(EncodeBool(true)))
	s.Empty(s.m.Disconnect(), "disconnect on an idle machine MUST be a no-op")
	s.Empty(s.apply(ValueUpdated{Characteristic: 2, Value: []byte{1}}), "events before connect MUST be dropped")
}

func (s *MachineTestSuite) TestConnectRejectedWhileActive() {
	for _, step := range []func(){
		func() {},
		func() { s.apply(Connected{}) },
		func() { s.apply(ServicesDiscovered{Services: []Service{testService}}) },
	} {
		s.SetupTest()
		_, err := s.m.Connect()
		s.Require().NoError(err)
		step()

		_, err = s.m.Connect()
		s.True(errors.Is(err, ErrAlreadyConnected), "connect in %s MUST fail with ErrAlreadyConnected", s.m.State())
	}

	s.SetupTest()
	s.ready()
	_, err := s.m.Connect()
	s.ErrorIs(err, ErrAlreadyConnected)
}

func (s *MachineTestSuite) TestTeardownGuard() {
	// GOAL: Verify exactly one disconnect notice and no effects after teardown
	//
	// TEST SCENARIO: ready → disconnected → late events dropped → reconnect clears the guard
	s.ready()

	state, effects := s.m.Apply(Disconnected{Err: errors.New("link lost")})
	s.Equal(StateDisconnected, state)
	s.Equal([]Effect{DisconnectedNotice{}}, effects)
	s.True(s.m.TornDown())
	s.False(s.m.LEDSupported())
	s.False(s.m.ButtonSupported())

	s.Empty(s.apply(Disconnected{}), "a second disconnect MUST NOT notify again")
	s.Empty(s.apply(ValueUpdated{Characteristic: testButton.Handle, Value: []byte{1}}))
	s.Empty(s.apply(PowerStateChanged{PoweredOn: false}))
	s.Empty(s.m.Disconnect())
	s.Empty(s.m.ReadLED())

	effects, err := s.m.Connect()
	s.Require().NoError(err)
	s.Equal([]Effect{ConnectRequest{}}, effects)
	s.False(s.m.TornDown())
}

func (s *MachineTestSuite) TestPowerOffTearsDownInAnyState() {
	tests := []struct {
		name  string
		setup func()
	}{
		{"connecting", func() { _, _ = s.m.Connect() }},
		{"discovering", func() { _, _ = s.m.Connect(); s.apply(Connected{}) }},
		{"ready", func() { s.ready() }},
		{"unsupported", func() {
			_, _ = s.m.Connect()
			s.apply(Connected{})
			s.apply(ServicesDiscovered{})
		}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			tt.setup()

			state, effects := s.m.Apply(PowerStateChanged{PoweredOn: false})
			s.Equal(StateDisconnected, state)
			s.Equal([]Effect{DisconnectedNotice{}}, effects)
		})
	}

	s.Run("power on is ignored", func() {
		s.SetupTest()
		s.ready()
		s.Empty(s.apply(PowerStateChanged{PoweredOn: true}))
		s.Equal(StateReady, s.m.State())
	})
}

func (s *MachineTestSuite) TestFailuresKeepState() {
	connectErr := errors.New("refused")
	_, err := s.m.Connect()
	s.Require().NoError(err)

	state, effects := s.m.Apply(ConnectFailed{Err: connectErr})
	s.Equal(StateConnecting, state, "connect failure MUST NOT change state")
	s.Equal([]Effect{FailureNotice{Op: OpConnect, Err: connectErr}}, effects)

	s.SetupTest()
	s.ready()
	readErr := errors.New("gatt error")
	state, effects = s.m.Apply(OperationFailed{Op: OpRead, Characteristic: testLED.Handle, Err: readErr})
	s.Equal(StateReady, state)
	s.Equal([]Effect{FailureNotice{Op: OpRead, Err: readErr}}, effects)
}

func (s *MachineTestSuite) TestDisconnectRequest() {
	s.ready()
	s.Equal([]Effect{DisconnectRequest{}}, s.m.Disconnect())
	s.Equal(StateReady, s.m.State(), "disconnected state MUST wait for the transport")
}

func TestMachineTestSuite(t *testing.T) {
	suite.Run(t, new(MachineTestSuite))
}
