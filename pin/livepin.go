package pin

import "sync"

// Link is one entry in a pin's link table: the remote node/pin this pin is
// wired to, together with the most recently cached value and progress
// reported over that link.
type Link struct {
	Remote   Ref
	Value    any
	HasValue bool
	Progress float64
}

// LivePin is the runtime state of one pin on a booted node instance: its
// static descriptor, its link table (adapted from the teacher's
// graph/channel.go Channel/ChannelManager pub/sub bookkeeping — per-entry
// mutex-guarded value plus a version counter, repurposed here from
// Pregel-style channel values to per-link cached value/progress pairs), and
// its own cached value.
type LivePin struct {
	mu sync.RWMutex

	descriptor Descriptor

	links   map[Ref]*Link
	order   []Ref // preserves link insertion order for deterministic mean computation
	version int64

	hasValue bool
	value    any
	progress float64
}

// NewLivePin builds a LivePin from its static descriptor with no links and
// no cached value.
func NewLivePin(descriptor Descriptor) *LivePin {
	return &LivePin{
		descriptor: descriptor,
		links:      make(map[Ref]*Link),
	}
}

// Descriptor returns the pin's static descriptor.
func (p *LivePin) Descriptor() Descriptor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.descriptor
}

// AddLink registers a link to a remote pin with zero initial progress. It is
// a no-op if the link already exists.
func (p *LivePin) AddLink(remote Ref) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.links[remote]; ok {
		return
	}
	p.links[remote] = &Link{Remote: remote}
	p.order = append(p.order, remote)
	p.version++
}

// Links returns a snapshot of the pin's link table in insertion order.
func (p *LivePin) Links() []Link {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Link, 0, len(p.order))
	for _, ref := range p.order {
		out = append(out, *p.links[ref])
	}
	return out
}

// SetLinkValue overwrites the cached value for a given link.
func (p *LivePin) SetLinkValue(remote Ref, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	link, ok := p.links[remote]
	if !ok {
		link = &Link{Remote: remote}
		p.links[remote] = link
		p.order = append(p.order, remote)
	}
	link.Value = value
	link.HasValue = true
	p.version++
}

// UpdateLinkProgress overwrites the cached progress for the link identified
// by remote, then recomputes the pin's own aggregated progress as the
// arithmetic mean of all link progresses (testable property 3; §9 forbids
// substituting max or sum). It is a no-op if remote is not a known link.
func (p *LivePin) UpdateLinkProgress(remote Ref, progress float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	link, ok := p.links[remote]
	if !ok {
		return
	}
	link.Progress = progress
	p.recomputeProgressLocked()
	p.version++
}

func (p *LivePin) recomputeProgressLocked() {
	if len(p.order) == 0 {
		p.progress = 0
		return
	}
	var sum float64
	for _, ref := range p.order {
		sum += p.links[ref].Progress
	}
	p.progress = sum / float64(len(p.order))
}

// Progress returns the pin's own aggregated progress: the arithmetic mean of
// its link progresses when it has links, else 0.
func (p *LivePin) Progress() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.progress
}

// Value returns the pin's own cached value and whether one is present.
func (p *LivePin) Value() (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value, p.hasValue
}

// SetValue stores the pin's own cached value.
func (p *LivePin) SetValue(value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = value
	p.hasValue = true
	p.version++
}

// ClearValue discards the pin's own cached value, without touching its link
// table, returning the pin to the uncomputed state.
func (p *LivePin) ClearValue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = nil
	p.hasValue = false
	p.version++
}

// Version returns a monotonically increasing counter bumped on every mutating
// call, useful for tests asserting a value changed without inspecting it.
func (p *LivePin) Version() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}
