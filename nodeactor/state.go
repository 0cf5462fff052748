package nodeactor

import (
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/pin"
)

// State is a node actor's private data: its instance record and its four
// pin maps. It is touched only by the actor's own goroutine while
// processing a message, so it carries no internal locking beyond what the
// individual LivePin values already provide — the single-consumer mailbox
// is the synchronization boundary (§5).
//
// State implements behavior.State without importing the behavior package,
// satisfying that package's narrow interface structurally.
type State struct {
	instance *pin.Instance

	inputs   map[identifier.ID]*pin.LivePin
	outputs  map[identifier.ID]*pin.LivePin
	receives map[identifier.ID]*pin.LivePin
	sends    map[identifier.ID]*pin.LivePin
}

func newState(instance *pin.Instance, inputs, outputs, receives, sends []pin.Descriptor) *State {
	return &State{
		instance: instance,
		inputs:   buildPinMap(inputs),
		outputs:  buildPinMap(outputs),
		receives: buildPinMap(receives),
		sends:    buildPinMap(sends),
	}
}

func buildPinMap(descs []pin.Descriptor) map[identifier.ID]*pin.LivePin {
	m := make(map[identifier.ID]*pin.LivePin, len(descs))
	for _, d := range descs {
		m[d.ID] = pin.NewLivePin(d)
	}
	return m
}

// Instance returns the node instance record.
func (s *State) Instance() *pin.Instance {
	return s.instance
}

// Pin returns the live pin in the given direction with the given id.
func (s *State) Pin(direction pin.Direction, id identifier.ID) (*pin.LivePin, bool) {
	p, ok := s.mapFor(direction)[id]
	return p, ok
}

func (s *State) mapFor(direction pin.Direction) map[identifier.ID]*pin.LivePin {
	switch direction {
	case pin.Input:
		return s.inputs
	case pin.Output:
		return s.outputs
	case pin.Receive:
		return s.receives
	case pin.Send:
		return s.sends
	default:
		return nil
	}
}
