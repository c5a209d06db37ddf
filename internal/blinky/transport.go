package blinky

import "github.com/google/uuid"

// Transport is the BLE stack a Session drives.
//
// Every method submits an asynchronous operation and returns an error only if
// the submission itself is rejected. Completions are delivered as Events,
// serialized per peripheral, to Session.Handle. A write without ack has no
// completion event.
type Transport interface {
	Connect(id PeripheralID) error
	Disconnect(id PeripheralID) error
	DiscoverServices(id PeripheralID, filter []uuid.UUID) error
	DiscoverCharacteristics(id PeripheralID, svc Service, filter []uuid.UUID) error
	SetNotify(id PeripheralID, ch Characteristic, enabled bool) error
	Read(id PeripheralID, ch Characteristic) error
	Write(id PeripheralID, ch Characteristic, value []byte, withAck bool) error
}
