package blinky

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
)

// ConnectionError represents a connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
)

var (
	ErrBluetoothOff = errors.New("bluetooth is turned off")
	ErrTimeout      = errors.New("timeout")
	ErrUnsupported  = errors.New("unsupported")
)

// ProtocolViolationError reports a peripheral that exposes the same
// well-known characteristic more than once.
type ProtocolViolationError struct {
	UUID  uuid.UUID
	Count int
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation: characteristic %s discovered %d times", e.UUID, e.Count)
}

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}
