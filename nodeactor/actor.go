// Package nodeactor implements the per-node actor (§4.3): it owns one
// node's pins and cached values, dispatches compute-on-demand requests to
// its behavior, and routes push events.
package nodeactor

import (
	"github.com/procflow/engine/actorsys"
	"github.com/procflow/engine/behavior"
	"github.com/procflow/engine/catalogue"
	"github.com/procflow/engine/log"
	"github.com/procflow/engine/pin"
)

// Actor is one booted node instance's dispatch loop.
type Actor struct {
	self       actorsys.Address
	controller actorsys.Address
	system     *actorsys.System
	catalogue  *catalogue.Catalogue
	behavior   behavior.Behavior
	state      *State
}

// New constructs a node actor by enumerating its behavior's pins against
// the given catalogue and instance record. The actor does not start
// processing until Run is called.
func New(
	self actorsys.Address,
	controller actorsys.Address,
	system *actorsys.System,
	cat *catalogue.Catalogue,
	behv behavior.Behavior,
	instance *pin.Instance,
) *Actor {
	inputs, outputs := behv.EnumerateIO(cat)
	receives, sends := behv.EnumerateRS(cat)
	return &Actor{
		self:       self,
		controller: controller,
		system:     system,
		catalogue:  cat,
		behavior:   behv,
		state:      newState(instance, inputs, outputs, receives, sends),
	}
}

// Address returns the actor's mailbox address.
func (a *Actor) Address() actorsys.Address {
	return a.self
}

// State returns the actor's private state. Exported for tests that need to
// pre-seed link tables or inspect cached values directly.
func (a *Actor) State() *State {
	return a.state
}

func (a *Actor) ctx() actorCtx {
	return actorCtx{selfID: a.state.instance.ID, controller: a.controller, system: a.system}
}

// Run processes the actor's mailbox until it is closed. It is meant to run
// on its own goroutine for the actor's entire lifetime.
func (a *Actor) Run() {
	for msg := range a.self.Mailbox() {
		a.dispatch(msg)
	}
}

func (a *Actor) dispatch(msg any) {
	switch m := msg.(type) {
	case ComputeOutputToInput:
		a.handleComputeOutputToInput(m)
	case ComputeOutput:
		a.handleComputeOutput(m)
	case InputValue:
		a.handleInputValue(m)
	case ReceiverMessage:
		a.handleReceiverMessage(m)
	case RequestProgress:
		a.handleRequestProgress(m)
	case UpdateProgress:
		a.handleUpdateProgress(m)
	case UpdateDatum:
		a.handleUpdateDatum(m)
	case RemoveDatum:
		a.handleRemoveDatum(m)
	case RefreshPins:
		a.handleRefreshPins(m)
	case StopWaitingForNewMessages:
		a.controller.Send(m)
	case OutputPinValue, InputPinSet, Received, DatumUpdated, DatumRemoved, PinsRefreshed:
		// Responses addressed to this actor are diagnostics only (§4.3):
		// no live request path owned by this actor consumes them.
		log.Infof("nodeactor %s: observed response %T", a.self.Name, m)
	default:
		a.behavior.HandleUntyped(a.state, a.ctx(), msg)
	}
}
