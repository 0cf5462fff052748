// Package catalogue implements the process-wide registry mapping a graph
// identifier to a graph descriptor, and a (graph, version) pair to a
// deserialized version descriptor.
//
// The catalogue is read-mostly and shared by the controller and every node
// actor. Mutation only happens through Load, which assembles a brand new
// immutable snapshot and swaps it in atomically (a read-copy-update
// discipline, per the teacher's preference for lock-free snapshot reads —
// see DESIGN.md): readers never block a concurrent Load and vice versa.
package catalogue

import (
	"sync/atomic"

	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/log"
	"github.com/procflow/engine/pin"
)

// BuiltinLibraryID is the fixed, well-known identifier of the built-in
// library. It is never loaded from disk; the controller uses it to decide
// whether to boot a graph via the built-in factory or the registered
// user-graph factory.
var BuiltinLibraryID = identifier.MustParse("b0fa443c-20d0-4c2a-acf9-76c63af3cbed")

// GraphDescriptor is the library-independent description of a graph: its
// name, identifier and on-disk format tag.
type GraphDescriptor struct {
	Name   string        `json:"name"`
	ID     identifier.ID `json:"id"`
	Format uint16        `json:"format"`
}

// VersionLoader deserializes a specific version of a graph on demand. Built-in
// libraries hold their version descriptors in memory; a filesystem library
// reads and decodes version.json lazily (see catalogue/fsloader).
type VersionLoader interface {
	LoadVersion(graph identifier.ID, version uint64) (*pin.VersionDescriptor, error)
}

// GraphEntry is one graph's registration within a Library: its descriptor,
// the set of version numbers known to exist (a structural fact, established
// at load time without deserializing any version's content), and the loader
// used to deserialize a specific version on demand.
type GraphEntry struct {
	Descriptor GraphDescriptor
	Versions   map[uint64]bool
	Loader     VersionLoader
}

// Library is a named collection of graphs, either the built-in library or one
// scanned from a library root on disk.
type Library struct {
	ID     identifier.ID
	Name   string
	Author string
	Format uint64
	Origin string // empty for the built-in library
	Graphs map[identifier.ID]*GraphEntry
}

// Loader produces a flat list of libraries. The catalogue treats loaders as
// opaque; built-in registration and filesystem scanning are both ordinary
// Loaders, composed by the caller. Loader order is preserved in the
// resulting snapshot and determines lookup_graph's first-match tie-break
// (built-ins precede filesystem libraries when the built-in loader runs
// first).
type Loader interface {
	Load() ([]*Library, error)
}

type snapshot struct {
	libraries []*Library
}

// Catalogue resolves (graph id) -> descriptor, (graph id, version) -> version
// descriptor, and reports whether a specific version exists.
type Catalogue struct {
	snap atomic.Pointer[snapshot]
}

// New returns an empty Catalogue. Call Load to populate it.
func New() *Catalogue {
	c := &Catalogue{}
	c.snap.Store(&snapshot{})
	return c
}

// Load assembles a brand new snapshot from the given loaders, in order, and
// atomically replaces the catalogue's contents. A loader that fails is
// logged and skipped (a malformed library root is not fatal to the process);
// partial results from prior loaders are still included.
func (c *Catalogue) Load(loaders ...Loader) {
	var libs []*Library
	for _, l := range loaders {
		ls, err := l.Load()
		if err != nil {
			log.Errorf("catalogue: loader failed, skipping: %v", err)
			continue
		}
		libs = append(libs, ls...)
	}
	c.snap.Store(&snapshot{libraries: libs})
}

func (c *Catalogue) current() *snapshot {
	return c.snap.Load()
}

// LookupGraph scans libraries in insertion order and returns the first
// matching graph descriptor.
func (c *Catalogue) LookupGraph(id identifier.ID) (GraphDescriptor, bool) {
	for _, lib := range c.current().libraries {
		if entry, ok := lib.Graphs[id]; ok {
			return entry.Descriptor, true
		}
	}
	return GraphDescriptor{}, false
}

// ResolveRef returns a GraphRef naming the containing library for the given
// graph id, or false if no library declares that graph.
func (c *Catalogue) ResolveRef(id identifier.ID, version uint64) (pin.GraphRef, bool) {
	for _, lib := range c.current().libraries {
		if entry, ok := lib.Graphs[id]; ok {
			return pin.GraphRef{
				Name:    entry.Descriptor.Name,
				Graph:   id,
				Library: lib.ID,
				Version: version,
			}, true
		}
	}
	return pin.GraphRef{}, false
}

// HasVersion is a structural check only: it reports whether the named
// version is known to exist, without deserializing the version record.
func (c *Catalogue) HasVersion(ref pin.GraphRef) bool {
	lib := c.findLibrary(ref.Library)
	if lib == nil {
		return false
	}
	entry, ok := lib.Graphs[ref.Graph]
	if !ok {
		return false
	}
	return entry.Versions[ref.Version]
}

// LoadVersion deserializes the version's record when needed. Missing graph
// or version, or a malformed on-disk record, returns false; errors are
// logged, never panicked.
func (c *Catalogue) LoadVersion(ref pin.GraphRef) (*pin.VersionDescriptor, bool) {
	lib := c.findLibrary(ref.Library)
	if lib == nil {
		log.Infof("catalogue: library %s does not exist", ref.Library)
		return nil, false
	}
	entry, ok := lib.Graphs[ref.Graph]
	if !ok {
		log.Infof("catalogue: graph %s does not exist in library %s", ref.Graph, lib.Name)
		return nil, false
	}
	if !entry.Versions[ref.Version] {
		log.Infof("catalogue: graph %s does not have version %d", ref.Graph, ref.Version)
		return nil, false
	}
	vd, err := entry.Loader.LoadVersion(ref.Graph, ref.Version)
	if err != nil {
		log.Errorf("catalogue: could not load version %d of graph %s: %v", ref.Version, ref.Graph, err)
		return nil, false
	}
	return vd, true
}

func (c *Catalogue) findLibrary(id identifier.ID) *Library {
	for _, lib := range c.current().libraries {
		if lib.ID == id {
			return lib
		}
	}
	return nil
}
