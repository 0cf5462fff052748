// Package pin defines the pin/graph data model: pin descriptors, pin and
// graph references, version descriptors and the live, per-instance pin state
// a node actor owns.
package pin

import "github.com/procflow/engine/identifier"

// Direction distinguishes pull-style (input/output) pins from push-style
// (receive/send) pins.
type Direction int

const (
	// Input is a pull-style pin a node reads from.
	Input Direction = iota
	// Output is a pull-style pin a node computes a value for on demand.
	Output
	// Receive is a push-style pin a node accepts event messages on.
	Receive
	// Send is a push-style pin a node emits event messages from.
	Send
)

// Flags are boolean traits attached to a pin descriptor.
type Flags struct {
	// UserValuable marks a pin whose value is meaningful to a human
	// inspecting the graph (as opposed to plumbing).
	UserValuable bool `json:"userValuable,omitempty"`
	// Dimensions marks a pin that carries an array/dimensioned value.
	Dimensions bool `json:"dimensions,omitempty"`
	// Expandable marks a pin whose arity can grow (e.g. a variadic input).
	Expandable bool `json:"expandable,omitempty"`
}

// Descriptor describes one pin: its name, identifier, declared datatype tag
// and flags. Descriptor identifiers are unique within the graph version that
// declares them.
type Descriptor struct {
	Name     string        `json:"name"`
	ID       identifier.ID `json:"id"`
	Datatype string        `json:"datatype"`
	Flags    Flags         `json:"flags,omitempty"`
}

// Ref references a pin on a specific node within a booted graph instance.
type Ref struct {
	Node identifier.ID `json:"node"`
	Pin  identifier.ID `json:"pin"`
}

// GraphRef names a graph, optionally scoped to a library, at a specific
// version. A zero Library means "resolve against the enclosing context"
// (typically the built-in library).
type GraphRef struct {
	Name    string        `json:"name"`
	Graph   identifier.ID `json:"graph"`
	Library identifier.ID `json:"library,omitempty"`
	Version uint64        `json:"version"`
}

// NodeRecord is the static, version-scoped record of one node placed in a
// graph: which graph/version it instantiates. Layout metadata (canvas
// position) is intentionally omitted; it is GUI-editor concern, out of
// scope per §1.
type NodeRecord struct {
	ID    identifier.ID `json:"id"`
	Graph GraphRef      `json:"graph"`
}

// Connection links two pin references. Exactly one of (Output, Input) or
// (Sends, Receives) is populated: a connection is either a pull wire
// (output feeding an input) or a push wire (a send pin feeding a receive
// pin), never both.
type Connection struct {
	Output   *Ref `json:"output,omitempty"`
	Input    *Ref `json:"input,omitempty"`
	Sends    *Ref `json:"sends,omitempty"`
	Receives *Ref `json:"receives,omitempty"`
}

// VersionDescriptor is one version of a graph definition: its boundary pins
// and its internal node/connection layout.
type VersionDescriptor struct {
	Format      uint16       `json:"format"`
	Inputs      []Descriptor `json:"inputs"`
	Outputs     []Descriptor `json:"outputs"`
	Receives    []Descriptor `json:"receives"`
	Sends       []Descriptor `json:"sends"`
	Nodes       []NodeRecord `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Validate checks that every connection endpoint names a node id declared in
// Nodes or, when its node id is zero, one of the version's own boundary pins
// (graph-level pass-through). For node endpoints only the node id is
// checked; the pin id is not matched against that node's pins.
func (v *VersionDescriptor) Validate() error {
	nodeIDs := make(map[identifier.ID]bool, len(v.Nodes))
	for _, n := range v.Nodes {
		nodeIDs[n.ID] = true
	}
	boundary := make(map[identifier.ID]bool)
	for _, list := range [][]Descriptor{v.Inputs, v.Outputs, v.Receives, v.Sends} {
		for _, d := range list {
			boundary[d.ID] = true
		}
	}
	valid := func(ref *Ref) bool {
		if ref == nil {
			return true
		}
		if ref.Node.IsZero() {
			return boundary[ref.Pin]
		}
		return nodeIDs[ref.Node]
	}
	for _, c := range v.Connections {
		if !valid(c.Output) || !valid(c.Input) || !valid(c.Sends) || !valid(c.Receives) {
			return ErrInvalidConnection
		}
	}
	return nil
}
