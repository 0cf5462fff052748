package builtin

import (
	"github.com/procflow/engine/catalogue"
	"github.com/procflow/engine/controller"
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/pin"
)

// logVersionLoader always returns the Log node's single version descriptor;
// it carries no on-disk state to load (§6: built-ins are "populated by
// code-level registrations, not loaded from disk").
type logVersionLoader struct{}

func (logVersionLoader) LoadVersion(identifier.ID, uint64) (*pin.VersionDescriptor, error) {
	inputs, outputs := Log{}.EnumerateIO(nil)
	receives, sends := Log{}.EnumerateRS(nil)
	return &pin.VersionDescriptor{
		Format:   1,
		Inputs:   inputs,
		Outputs:  outputs,
		Receives: receives,
		Sends:    sends,
	}, nil
}

// CatalogueLoader returns a catalogue.Loader exposing every built-in graph.
func CatalogueLoader() catalogue.Loader {
	lib := &catalogue.Library{
		ID:     catalogue.BuiltinLibraryID,
		Name:   "builtin",
		Author: "procflow",
		Format: 1,
		Graphs: map[identifier.ID]*catalogue.GraphEntry{
			LogGraphID: {
				Descriptor: catalogue.GraphDescriptor{Name: "Log", ID: LogGraphID, Format: 1},
				Versions:   map[uint64]bool{1: true},
				Loader:     logVersionLoader{},
			},
		},
	}
	return catalogue.NewStaticLoader(lib)
}

// RegisterAll registers every built-in factory against ctl, so BootGraph can
// construct their behaviors on demand, and installs Graph as the user-graph
// container factory.
func RegisterAll(ctl *controller.Controller) {
	ctl.RegisterBuiltin(LogGraphID, NewLog)
	ctl.RegisterUserGraphFactory(NewGraph)
}
