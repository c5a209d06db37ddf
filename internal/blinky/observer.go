package blinky

// Observer receives session events. Calls are made on the goroutine that
// drives the session; marshaling to a UI thread is up to the implementation.
type Observer interface {
	// OnConnected is called once discovery settles. Both flags false means
	// the peripheral does not implement the profile.
	OnConnected(ledSupported, buttonSupported bool)
	OnDisconnected()
	OnButtonStateChanged(pressed bool)
	OnLEDStateChanged(on bool)
}

// FailureObserver is implemented by observers that want Transport failures
// reported. Failures never change the session state.
type FailureObserver interface {
	OnTransportFailure(op Op, err error)
}

// ObserverFuncs adapts optional functions to Observer and FailureObserver.
// Nil fields are skipped.
type ObserverFuncs struct {
	Connected          func(ledSupported, buttonSupported bool)
	Disconnected       func()
	ButtonStateChanged func(pressed bool)
	LEDStateChanged    func(on bool)
	TransportFailure   func(op Op, err error)
}

func (f ObserverFuncs) OnConnected(ledSupported, buttonSupported bool) {
	if f.Connected != nil {
		f.Connected(ledSupported, buttonSupported)
	}
}

func (f ObserverFuncs) OnDisconnected() {
	if f.Disconnected != nil {
		f.Disconnected()
	}
}

func (f ObserverFuncs) OnButtonStateChanged(pressed bool) {
	if f.ButtonStateChanged != nil {
		f.ButtonStateChanged(pressed)
	}
}

func (f ObserverFuncs) OnLEDStateChanged(on bool) {
	if f.LEDStateChanged != nil {
		f.LEDStateChanged(on)
	}
}

func (f ObserverFuncs) OnTransportFailure(op Op, err error) {
	if f.TransportFailure != nil {
		f.TransportFailure(op, err)
	}
}
