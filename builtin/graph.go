package builtin

import (
	"fmt"

	"github.com/procflow/engine/behavior"
	"github.com/procflow/engine/catalogue"
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/pin"
)

// datumKeyPrefix namespaces the keys Graph stores in its instance's datum
// map, one per boundary pin, holding the most recent value pushed or
// computed for it.
const datumKeyPrefix = "graph.boundary."

// Graph is the container node behavior for a user-authored graph: a node
// whose own boundary pins are the target graph's own inputs/outputs/
// receives/sends, resolved from the catalogue against the GraphRef it was
// booted with.
//
// Full recursive execution — booting a child actor per inner node and
// wiring inner connections — remains the same declared extension point as
// controller.bootUserGraph (§9 "user-graph boot path"): EnumerateIO/
// EnumerateRS correctly mirror the target graph's declared boundary pins,
// but ComputeOutput only returns a value once something has explicitly
// populated it via HandleReceive or UpdateDatum — there is no inner
// dispatch, and no forwarding to an inner booted instance via the
// controller, since no inner instance is ever booted.
type Graph struct {
	behavior.NopUntyped
	graph pin.GraphRef
}

// NewGraph constructs a Graph behavior bound to instance's own GraphRef
// (the graph this container was booted to represent), so EnumerateIO/
// EnumerateRS below can resolve its version.
func NewGraph(_ *catalogue.Catalogue, instance *pin.Instance) (behavior.Behavior, error) {
	return &Graph{graph: instance.Graph}, nil
}

// EnumerateIO resolves the instance's target graph version and returns its
// declared boundary inputs/outputs.
func (g *Graph) EnumerateIO(cat *catalogue.Catalogue) ([]pin.Descriptor, []pin.Descriptor) {
	vd, ok := resolveVersion(cat, g.graph)
	if !ok {
		return nil, nil
	}
	return vd.Inputs, vd.Outputs
}

// EnumerateRS resolves the instance's target graph version and returns its
// declared boundary receives/sends.
func (g *Graph) EnumerateRS(cat *catalogue.Catalogue) ([]pin.Descriptor, []pin.Descriptor) {
	vd, ok := resolveVersion(cat, g.graph)
	if !ok {
		return nil, nil
	}
	return vd.Receives, vd.Sends
}

// resolveVersion deserializes ref's version descriptor, or reports false for
// a zero-value ref (e.g. a Graph constructed without a bound instance, as in
// a test double) or an unresolvable one.
func resolveVersion(cat *catalogue.Catalogue, ref pin.GraphRef) (*pin.VersionDescriptor, bool) {
	if cat == nil || ref.Graph.IsZero() {
		return nil, false
	}
	return cat.LoadVersion(ref)
}

func boundaryDatumKey(id identifier.ID) string {
	return datumKeyPrefix + id.String()
}

// ComputeOutput returns whatever value was last pushed into this boundary
// output's datum slot. With nothing wired yet, it errors rather than
// returning a zero value silently.
func (*Graph) ComputeOutput(state behavior.State, output pin.Descriptor, _ behavior.Ctx, _ any) (any, error) {
	v, ok := state.Instance().Datum(boundaryDatumKey(output.ID))
	if !ok {
		return nil, fmt.Errorf("graph: boundary output %s has no inner value wired yet", output.Name)
	}
	return v, nil
}

// HandleReceive records the payload for the matching boundary pin so a
// later ComputeOutput (for an output with the same pin id) or an external
// UpdateDatum probe can observe it. This is the minimal "something happened
// at the boundary" bookkeeping short of real inner dispatch.
func (*Graph) HandleReceive(state behavior.State, _ behavior.Ctx, receiverPinID identifier.ID, payload any) {
	state.Instance().SetDatum(boundaryDatumKey(receiverPinID), payload)
}
