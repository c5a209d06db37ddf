package blinky

import "fmt"

// Op names a Transport operation in failure reports.
type Op string

const (
	OpConnect                 Op = "connect"
	OpDisconnect              Op = "disconnect"
	OpDiscoverServices        Op = "discover_services"
	OpDiscoverCharacteristics Op = "discover_characteristics"
	OpSetNotify               Op = "set_notify"
	OpRead                    Op = "read"
	OpWrite                   Op = "write"
)

// Event is a completion delivered by a Transport. The set of events is closed.
type Event interface {
	isEvent()
}

// Connected reports an established connection.
type Connected struct{}

// ConnectFailed reports that a connection attempt did not succeed.
type ConnectFailed struct {
	Err error
}

// ServicesDiscovered carries the result of service discovery. Transports may
// return services outside the requested filter.
type ServicesDiscovered struct {
	Services []Service
}

// CharacteristicsDiscovered carries the characteristics found in Service.
type CharacteristicsDiscovered struct {
	Service         Service
	Characteristics []Characteristic
}

// NotificationStateUpdated reports that notifications were switched on or off.
type NotificationStateUpdated struct {
	Characteristic Handle
	Enabled        bool
}

// ValueUpdated carries a read result or a notification.
type ValueUpdated struct {
	Characteristic Handle
	Value          []byte
}

// WriteCompleted acknowledges a write with response.
type WriteCompleted struct {
	Characteristic Handle
}

// Disconnected reports the end of a connection. Err is nil for a requested disconnect.
type Disconnected struct {
	Err error
}

// PowerStateChanged reports the radio power state.
type PowerStateChanged struct {
	PoweredOn bool
}

// OperationFailed reports an asynchronous failure of any Transport operation.
type OperationFailed struct {
	Op             Op
	Characteristic Handle
	Err            error
}

func (Connected) isEvent()                 {}
func (ConnectFailed) isEvent()             {}
func (ServicesDiscovered) isEvent()        {}
func (CharacteristicsDiscovered) isEvent() {}
func (NotificationStateUpdated) isEvent()  {}
func (ValueUpdated) isEvent()              {}
func (WriteCompleted) isEvent()            {}
func (Disconnected) isEvent()              {}
func (PowerStateChanged) isEvent()         {}
func (OperationFailed) isEvent()           {}

// EventName returns a short name of the event kind for logs.
func EventName(ev Event) string {
	switch ev.(type) {
	case Connected:
		return "connected"
	case ConnectFailed:
		return "connect_failed"
	case ServicesDiscovered:
		return "services_discovered"
	case CharacteristicsDiscovered:
		return "characteristics_discovered"
	case NotificationStateUpdated:
		return "notification_state_updated"
	case ValueUpdated:
		return "value_updated"
	case WriteCompleted:
		return "write_completed"
	case Disconnected:
		return "disconnected"
	case PowerStateChanged:
		return "power_state_changed"
	case OperationFailed:
		return "operation_failed"
	default:
		return fmt.Sprintf("%T", ev)
	}
}
