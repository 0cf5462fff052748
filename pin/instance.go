package pin

import (
	"sync"

	"github.com/procflow/engine/identifier"
)

// Instance is a live occurrence of a node at runtime: its identity, the
// graph/version it was booted from, and its mutable datum map (arbitrary
// key/value state a node behavior keeps alongside its pins — e.g. the Graph
// container node's last value for each boundary pin).
type Instance struct {
	ID    identifier.ID
	Graph GraphRef

	mu     sync.RWMutex
	datums map[string]any
}

// NewInstance creates a NodeInstance record for a freshly booted node.
func NewInstance(id identifier.ID, graph GraphRef) *Instance {
	return &Instance{
		ID:     id,
		Graph:  graph,
		datums: make(map[string]any),
	}
}

// Datum returns the value stored under key, if any.
func (i *Instance) Datum(key string) (any, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v, ok := i.datums[key]
	return v, ok
}

// SetDatum stores a value under key.
func (i *Instance) SetDatum(key string, value any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.datums[key] = value
}

// RemoveDatum deletes the value stored under key, if any.
func (i *Instance) RemoveDatum(key string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.datums, key)
}
