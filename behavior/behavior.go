// Package behavior defines the capability surface every node implementation
// provides (§4.2): enumerate its pins, compute an output on demand, and react
// to push events and otherwise-unrouted messages.
//
// Behavior is an interface, not a closed tagged union over the built-in
// node set: this resolves the §9 open question "behavior polymorphism" in
// favor of dynamic dispatch, matching the teacher's agent.Agent interface
// (core/agent/agent.go) — a capability interface any implementation can
// satisfy without the dispatcher recompiling. Built-in behaviors
// (builtin.Log, builtin.Graph) and any future third-party node package share
// this one call surface.
package behavior

import (
	"github.com/procflow/engine/catalogue"
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/pin"
)

// State is the slice of a node actor's state a behavior is allowed to touch
// while computing an output or handling an event: its instance record (the
// mutable datum map) and its live pins. It is a narrow interface, not the
// concrete nodeactor.State, so that this package and nodeactor do not import
// each other.
type State interface {
	// Instance returns the node instance record (id, GraphRef, datum map).
	Instance() *pin.Instance
	// Pin returns the live pin in the given direction with the given id.
	Pin(direction pin.Direction, id identifier.ID) (*pin.LivePin, bool)
}

// Ctx is the side-effect capability a behavior is given while computing an
// output or handling an event: it may emit a push message to another node's
// receive pin, and it may spawn bounded background work. A behavior must
// never reach outside Ctx and State (§4.2: "side-effect-local").
type Ctx interface {
	// Send delivers payload to the receive pin named by target, routed
	// through the controller exactly like any other inter-node push.
	Send(target pin.Ref, payload any) error
	// Spawn submits fn to the engine's bounded helper-work pool. Use this
	// instead of a bare goroutine so a behavior cannot exhaust the process.
	Spawn(fn func()) error
}

// Behavior is the capability surface a node implementation provides.
//
// Implementations must be deterministic in EnumerateIO/EnumerateRS given the
// same instance state, and must be free of external side effects in
// ComputeOutput except for messages sent through Ctx.
type Behavior interface {
	// EnumerateIO returns this node's input and output pin prototypes.
	EnumerateIO(cat *catalogue.Catalogue) (inputs, outputs []pin.Descriptor)
	// EnumerateRS returns this node's receive and send pin prototypes.
	EnumerateRS(cat *catalogue.Catalogue) (receives, sends []pin.Descriptor)
	// ComputeOutput computes the value for the named output, given the
	// caller-supplied parameter. It may read and write cached input values
	// on state.
	ComputeOutput(state State, output pin.Descriptor, ctx Ctx, parameter any) (any, error)
	// HandleReceive reacts to a push event delivered to receiverPinID.
	HandleReceive(state State, ctx Ctx, receiverPinID identifier.ID, payload any)
	// HandleUntyped is the fallback for messages that matched no known
	// command or response shape. The default behavior is to ignore; a
	// behavior implementation may override by embedding NopUntyped or by
	// implementing its own no-op method.
	HandleUntyped(state State, ctx Ctx, raw any)
}

// NopUntyped can be embedded by behaviors that have no use for untyped
// messages, satisfying HandleUntyped with a no-op.
type NopUntyped struct{}

// HandleUntyped ignores raw.
func (NopUntyped) HandleUntyped(State, Ctx, any) {}
