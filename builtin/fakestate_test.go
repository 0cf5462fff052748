package builtin

import (
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/pin"
)

// fakeState is a minimal behavior.State double: four pin maps built
// straight from descriptor lists plus a bare instance record. It is just enough to
// exercise ComputeOutput/HandleReceive without booting a real node actor.
type fakeState struct {
	instance                         *pin.Instance
	inputs, outputs, receives, sends map[identifier.ID]*pin.LivePin
}

func newFakeState(inputs, outputs, receives, sends []pin.Descriptor) *fakeState {
	return &fakeState{
		instance: pin.NewInstance(identifier.New(), pin.GraphRef{}),
		inputs:   buildPins(inputs),
		outputs:  buildPins(outputs),
		receives: buildPins(receives),
		sends:    buildPins(sends),
	}
}

func buildPins(descs []pin.Descriptor) map[identifier.ID]*pin.LivePin {
	m := make(map[identifier.ID]*pin.LivePin, len(descs))
	for _, d := range descs {
		m[d.ID] = pin.NewLivePin(d)
	}
	return m
}

func (s *fakeState) Instance() *pin.Instance {
	return s.instance
}

func (s *fakeState) Pin(direction pin.Direction, id identifier.ID) (*pin.LivePin, bool) {
	var m map[identifier.ID]*pin.LivePin
	switch direction {
	case pin.Input:
		m = s.inputs
	case pin.Output:
		m = s.outputs
	case pin.Receive:
		m = s.receives
	case pin.Send:
		m = s.sends
	}
	p, ok := m[id]
	return p, ok
}

// fakeCtx records every Send call for assertions; Spawn runs fn inline.
type fakeCtx struct {
	sent []sentMessage
}

type sentMessage struct {
	target  pin.Ref
	payload any
}

func (c *fakeCtx) Send(target pin.Ref, payload any) error {
	c.sent = append(c.sent, sentMessage{target: target, payload: payload})
	return nil
}

func (c *fakeCtx) Spawn(fn func()) error {
	fn()
	return nil
}
