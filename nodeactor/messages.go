package nodeactor

import (
	"github.com/procflow/engine/actorsys"
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/pin"
)

// Commands accepted by a node actor's mailbox (§4.3). Each is a distinct
// type rather than a variant tag, dispatched with a type switch in Run —
// the same "tagged union over concrete message types" idiom the teacher
// uses for its event/event.go stream.

// ComputeOutputToInput asks the actor to resolve output_id (computing it if
// not cached) and deliver the result to commander as an InputValue command
// addressed to target_input_id on the commander's own pin set.
type ComputeOutputToInput struct {
	Commander        actorsys.Address
	TargetInputID    identifier.ID
	OutputID         identifier.ID
	ExpectedDatatype string
	Parameter        any
}

// ComputeOutput asks the actor to resolve output_id and reply with an
// OutputPinValue response.
type ComputeOutput struct {
	Commander actorsys.Address
	OutputID  identifier.ID
	Parameter any
}

// InputValue sets an input pin's cached value. It doubles as the reply
// message ComputeOutputToInput sends to its commander.
type InputValue struct {
	Commander actorsys.Address
	InputID   identifier.ID
	Datatype  string
	Value     any
}

// ReceiverMessage delivers a push event to one of this actor's receive pins.
type ReceiverMessage struct {
	Commander     actorsys.Address
	ReceiverPinID identifier.ID
	Payload       any
}

// RequestProgress asks the actor to report the current progress of one of
// its output pins.
type RequestProgress struct {
	Requestor actorsys.Address
	OutputRef pin.Ref
}

// UpdateProgress reports new progress for a link. It doubles as the reply
// RequestProgress sends back to its requestor.
type UpdateProgress struct {
	Progressor actorsys.Address
	OutputRef  pin.Ref
	Progress   float64
}

// UpdateDatum sets a key in the instance's datum map.
type UpdateDatum struct {
	Requestor actorsys.Address
	Key       string
	Value     any
}

// RemoveDatum deletes a key from the instance's datum map.
type RemoveDatum struct {
	Requestor actorsys.Address
	Key       string
}

// RefreshPins re-enumerates the behavior's pins and atomically replaces all
// four pin maps.
type RefreshPins struct {
	Requestor actorsys.Address
}

// StopWaitingForNewMessages is forwarded unmodified to the controller as an
// engine shutdown request.
type StopWaitingForNewMessages struct{}

// RouteMessage asks the controller to deliver payload to receiver's receive
// pin as a ReceiverMessage, on behalf of sender. A node behavior reaches
// this only through Ctx.Send; it is never constructed directly by a node's
// own dispatch loop.
type RouteMessage struct {
	Sender   pin.Ref
	Receiver pin.Ref
	Payload  any
}

// Responses. A node actor only ever logs these when it receives one
// addressed to itself (§4.3: "accepted only to be logged") — a live request
// path always owns its own reply channel via the Commander/Requestor fields
// above instead.

// OutputPinValue is ComputeOutput's reply.
type OutputPinValue struct {
	From     actorsys.Address
	OutputID identifier.ID
	Value    any
}

// InputPinSet is InputValue's reply when the commander is the controller.
type InputPinSet struct{}

// Received is ReceiverMessage's immediate acknowledgment, sent before
// handle_receive runs.
type Received struct{}

// DatumUpdated is UpdateDatum's reply.
type DatumUpdated struct{}

// DatumRemoved is RemoveDatum's reply.
type DatumRemoved struct{}

// PinsRefreshed is RefreshPins's reply.
type PinsRefreshed struct{}
