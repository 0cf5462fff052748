package nodeactor

import (
	"github.com/procflow/engine/actorsys"
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/pin"
)

// actorCtx is the Ctx a node actor hands to its behavior while computing an
// output or handling a push event (§4.2). It is rebuilt fresh per call so a
// behavior cannot retain it between messages.
type actorCtx struct {
	selfID     identifier.ID
	controller actorsys.Address
	system     *actorsys.System
}

// Send asks the controller to route payload to target's receive pin. The
// actor never addresses other nodes directly; only the controller's
// instance registry can resolve a node id to a mailbox address. Sender.Pin
// is left zero: the controller's routing only needs the sending node's id
// for diagnostics, not which of its send pins emitted the message.
func (c actorCtx) Send(target pin.Ref, payload any) error {
	c.controller.Send(RouteMessage{
		Sender:   pin.Ref{Node: c.selfID},
		Receiver: target,
		Payload:  payload,
	})
	return nil
}

// Spawn submits fn to the shared bounded helper-work pool.
func (c actorCtx) Spawn(fn func()) error {
	return c.system.Spawn(fn)
}
