package controller

import (
	"github.com/procflow/engine/actorsys"
	"github.com/procflow/engine/identifier"
)

// Commands accepted by the controller's mailbox (§4.4), from the facade or
// from node actors routing a push message.

// BootGraph resolves and boots graphID at version, under a freshly minted
// instance id. Requestor is who the GraphBooted reply goes to; when absent
// (the zero Address) the reply goes to the controller's facade reply
// channel instead.
type BootGraph struct {
	GraphID   identifier.ID
	Version   uint64
	Requestor actorsys.Address
}

// SetInputPinValue forwards to the named actor as an InputValue command.
type SetInputPinValue struct {
	Actor    actorsys.Address
	Pin      identifier.ID
	Value    any
	Datatype string
}

// ComputeOutputPinValue forwards to the named actor as a ComputeOutput
// command.
type ComputeOutputPinValue struct {
	Actor     actorsys.Address
	Pin       identifier.ID
	Parameter any
}

// SendValue forwards to the named actor as a ReceiverMessage command.
type SendValue struct {
	Actor       actorsys.Address
	ReceiverPin identifier.ID
	Value       any
}

// StopWaitingForNewMessages clears the shutdown-wait flag.
type StopWaitingForNewMessages struct{}

// Responses, delivered to the facade's reply channel (or to Requestor, for
// BootGraph issued on behalf of another caller).

// GraphBooted is BootGraph's reply. Address is the zero Address on failure.
type GraphBooted struct {
	InstanceID identifier.ID
	Address    actorsys.Address
	Booted     bool
}

// OutputValue is ComputeOutputPinValue's reply.
type OutputValue struct {
	Actor actorsys.Address
	Value any
}

// InputPinSet is SetInputPinValue's reply.
type InputPinSet struct{}

// ValueSent is SendValue's reply.
type ValueSent struct{}
