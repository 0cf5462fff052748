// Package engine provides the synchronous facade external callers (CLI,
// tests, embeddings) use to drive the engine (§4.5). Each call marshals a
// controller command and blocks on a dedicated reply channel until the
// matching response arrives.
package engine

import (
	"context"
	"time"

	"github.com/procflow/engine/actorsys"
	"github.com/procflow/engine/builtin"
	"github.com/procflow/engine/catalogue"
	"github.com/procflow/engine/controller"
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/log"
	"github.com/procflow/engine/telemetry"
)

// replyBufferSize is 1: the facade's reply channel only ever needs to hold
// the one response to its single outstanding call (§4.5's
// single-outstanding-request invariant).
const replyBufferSize = 1

// Facade is the synchronous API over one controller. Concurrent use of one
// Facade value by multiple goroutines is unsupported (§4.5); construct one
// per caller that needs serialized access.
type Facade struct {
	controller *controller.Controller
	reply      actorsys.Address
}

// New constructs a Facade over ctl. It generates a fresh reply channel and
// binds it as ctl's default reply target.
func New(ctl *controller.Controller) *Facade {
	f := &Facade{
		controller: ctl,
		reply:      actorsys.NewAddress("facade-reply", replyBufferSize),
	}
	ctl.SetFacadeReply(f.reply)
	return f
}

// Controller exposes the underlying controller, e.g. so node
// behaviors' Ctx.Send routing can be wired up externally.
func (f *Facade) Controller() *controller.Controller {
	return f.controller
}

// BootGraph boots an instance of the given graph/version. It returns the
// instance id and the booted actor's address; ok is false if the graph or
// version does not exist, or the boot otherwise failed.
func (f *Facade) BootGraph(graphID identifier.ID, version uint64) (instanceID identifier.ID, addr actorsys.Address, ok bool) {
	_, span := telemetry.StartBootGraph(context.Background(), graphID.String())
	defer span.End()

	f.controller.Address().Send(controller.BootGraph{GraphID: graphID, Version: version})
	resp, ok := (<-f.reply.Mailbox()).(controller.GraphBooted)
	if !ok {
		log.Errorf("engine: boot_graph: unexpected reply shape")
		return identifier.Nil, actorsys.Address{}, false
	}
	return resp.InstanceID, resp.Address, resp.Booted
}

// SetInputPinValue sets an input pin's cached value on the given actor and
// blocks until the node actor confirms.
func (f *Facade) SetInputPinValue(actor actorsys.Address, pinID identifier.ID, value any, datatype string) {
	f.controller.Address().Send(controller.SetInputPinValue{Actor: actor, Pin: pinID, Value: value, Datatype: datatype})
	<-f.reply.Mailbox()
}

// ComputeOutputPinValue resolves an output pin's value, computing it if
// necessary, and blocks until the value comes back.
func (f *Facade) ComputeOutputPinValue(actor actorsys.Address, pinID identifier.ID, parameter any) any {
	_, span := telemetry.StartComputeOutput(context.Background(), actor.Name, pinID.String())
	defer span.End()

	f.controller.Address().Send(controller.ComputeOutputPinValue{Actor: actor, Pin: pinID, Parameter: parameter})
	resp, ok := (<-f.reply.Mailbox()).(controller.OutputValue)
	if !ok {
		log.Errorf("engine: compute_output_pin_value: unexpected reply shape")
		return nil
	}
	return resp.Value
}

// SendValue pushes value to a receive pin and blocks until the node
// acknowledges.
func (f *Facade) SendValue(actor actorsys.Address, receiverPin identifier.ID, value any) {
	_, span := telemetry.StartSendValue(context.Background(), actor.Name, receiverPin.String())
	defer span.End()

	f.controller.Address().Send(controller.SendValue{Actor: actor, ReceiverPin: receiverPin, Value: value})
	<-f.reply.Mailbox()
}

// StopWaiting clears the shutdown-wait flag.
func (f *Facade) StopWaiting() {
	f.controller.Address().Send(controller.StopWaitingForNewMessages{})
}

// Wait blocks until the shutdown-wait flag is cleared. With a positive
// timeout it makes one shutdown attempt and returns whether the flag had
// cleared by the deadline; with a zero timeout it loops, re-triggering
// shutdown until the flag clears.
func (f *Facade) Wait(timeout time.Duration) bool {
	if timeout > 0 {
		deadline := time.Now().Add(timeout)
		for time.Now().Before(deadline) {
			if f.controller.ShutdownWaitCleared() {
				return true
			}
			time.Sleep(time.Millisecond)
		}
		return f.controller.ShutdownWaitCleared()
	}
	for !f.controller.ShutdownWaitCleared() {
		f.StopWaiting()
		time.Sleep(time.Millisecond)
	}
	return true
}

// BootCatalogue is a convenience constructor combining the built-in loader
// with zero or more filesystem loaders, matching §6's environment section
// (process working directory's data/ subtree, a per-user documents
// subtree — composed by the caller, not hardcoded here).
func BootCatalogue(loaders ...catalogue.Loader) *catalogue.Catalogue {
	cat := catalogue.New()
	cat.Load(append([]catalogue.Loader{builtin.CatalogueLoader()}, loaders...)...)
	return cat
}
