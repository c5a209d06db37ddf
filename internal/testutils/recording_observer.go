package testutils

import (
	"fmt"
	"sync"

	"github.com/srg/blinky/internal/blinky"
)

// RecordingObserver records every callback as a short string, in order.
// It implements blinky.FailureObserver.
type RecordingObserver struct {
	mu    sync.Mutex
	calls []string

	// OnConnectedHook, when set, runs after a connected callback is recorded.
	OnConnectedHook func(ledSupported, buttonSupported bool)
}

func (o *RecordingObserver) record(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, fmt.Sprintf(format, args...))
}

func (o *RecordingObserver) OnConnected(ledSupported, buttonSupported bool) {
	o.record("connected(led=%t,button=%t)", ledSupported, buttonSupported)
	if o.OnConnectedHook != nil {
		o.OnConnectedHook(ledSupported, buttonSupported)
	}
}

func (o *RecordingObserver) OnDisconnected() {
	o.record("disconnected")
}

func (o *RecordingObserver) OnButtonStateChanged(pressed bool) {
	o.record("button(%t)", pressed)
}

func (o *RecordingObserver) OnLEDStateChanged(on bool) {
	o.record("led(%t)", on)
}

func (o *RecordingObserver) OnTransportFailure(op blinky.Op, err error) {
	o.record("failure(%s)", op)
}

// Calls returns a copy of the recorded callbacks.
func (o *RecordingObserver) Calls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.calls...)
}

// Count returns how many times call was recorded.
func (o *RecordingObserver) Count(call string) int {
	n := 0
	for _, c := range o.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// Reset forgets recorded callbacks.
func (o *RecordingObserver) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = nil
}

var _ blinky.FailureObserver = (*RecordingObserver)(nil)
