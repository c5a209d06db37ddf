package blinky

import "github.com/google/uuid"

// Effect is an output of the state machine: either a Request for the
// Transport or a Notice for the Observer.
type Effect interface {
	isEffect()
}

// Request is an effect executed by the Transport.
type Request interface {
	Effect
	op() Op
}

// Notice is an effect delivered to the Observer.
type Notice interface {
	Effect
	isNotice()
}

type ConnectRequest struct{}

type DisconnectRequest struct{}

type DiscoverServicesRequest struct {
	Filter []uuid.UUID
}

type DiscoverCharacteristicsRequest struct {
	Service Service
	Filter  []uuid.UUID
}

type SetNotifyRequest struct {
	Characteristic Characteristic
	Enabled        bool
}

type ReadRequest struct {
	Characteristic Characteristic
}

// WriteRequest writes Value. WithAck selects write with response; without
// it the Transport never reports completion, and Optimistic, when set, is
// delivered as soon as the Transport accepts the write.
type WriteRequest struct {
	Characteristic Characteristic
	Value          []byte
	WithAck        bool
	Optimistic     Notice
}

type ConnectedNotice struct {
	LEDSupported    bool
	ButtonSupported bool
}

type DisconnectedNotice struct{}

type ButtonNotice struct {
	Pressed bool
}

type LEDNotice struct {
	On bool
}

type FailureNotice struct {
	Op  Op
	Err error
}

func (ConnectRequest) isEffect()                 {}
func (DisconnectRequest) isEffect()              {}
func (DiscoverServicesRequest) isEffect()        {}
func (DiscoverCharacteristicsRequest) isEffect() {}
func (SetNotifyRequest) isEffect()               {}
func (ReadRequest) isEffect()                    {}
func (WriteRequest) isEffect()                   {}
func (ConnectedNotice) isEffect()                {}
func (DisconnectedNotice) isEffect()             {}
func (ButtonNotice) isEffect()                   {}
func (LEDNotice) isEffect()                      {}
func (FailureNotice) isEffect()                  {}

func (ConnectRequest) op() Op                 { return OpConnect }
func (DisconnectRequest) op() Op              { return OpDisconnect }
func (DiscoverServicesRequest) op() Op        { return OpDiscoverServices }
func (DiscoverCharacteristicsRequest) op() Op { return OpDiscoverCharacteristics }
func (SetNotifyRequest) op() Op               { return OpSetNotify }
func (ReadRequest) op() Op                    { return OpRead }
func (WriteRequest) op() Op                   { return OpWrite }

func (ConnectedNotice) isNotice()    {}
func (DisconnectedNotice) isNotice() {}
func (ButtonNotice) isNotice()       {}
func (LEDNotice) isNotice()          {}
func (FailureNotice) isNotice()      {}
