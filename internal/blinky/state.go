package blinky

// State is the lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateDiscoveringServices
	StateDiscoveringCharacteristics
	StateEnablingNotifications
	StateReady
	StateDisconnected
	// StateUnsupported is terminal: the peripheral does not implement the LED Button profile.
	StateUnsupported
)

var stateNames = map[State]string{
	StateIdle:                       "idle",
	StateConnecting:                 "connecting",
	StateDiscoveringServices:        "discovering_services",
	StateDiscoveringCharacteristics: "discovering_characteristics",
	StateEnablingNotifications:      "enabling_notifications",
	StateReady:                      "ready",
	StateDisconnected:               "disconnected",
	StateUnsupported:                "unsupported",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// canConnect reports whether Connect is accepted from this state.
func (s State) canConnect() bool {
	return s == StateIdle || s == StateDisconnected || s == StateUnsupported
}
