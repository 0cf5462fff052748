// Package actorsys provides the minimal actor substrate the controller and
// every node actor run on: a single-consumer mailbox address, and a
// process-wide bounded pool for the "helper work" a node behavior may spawn
// while handling a push event.
//
// The distilled spec assumes an actor framework (the Rust original is built
// on the axiom crate — see original_source/src/node.rs). Go has no direct
// analogue, so this package is the engine's own, grounded on two ideas
// already present in the teacher repo: the goroutine-pool-backed worker
// dispatch in evaluation/service/local/pool.go, and the per-entity
// mutex-guarded state in graph/channel.go. Each actor's mailbox loop is one
// long-lived goroutine — Go's own M:N scheduler is the "shared thread pool"
// the spec's scheduling model refers to (§5) — while bounded concurrent
// helper work funnels through the System's ants pool, so a misbehaving
// behavior can't spawn unbounded goroutines.
package actorsys

import (
	"github.com/panjf2000/ants/v2"
)

// Address is a handle to an actor's mailbox: the only way to communicate
// with an actor is to send it a message, which queues in its single-consumer
// channel until the actor's mailbox loop processes it.
type Address struct {
	Name    string
	mailbox chan any
}

// NewAddress creates an address backed by a buffered mailbox channel.
func NewAddress(name string, bufferSize int) Address {
	return Address{Name: name, mailbox: make(chan any, bufferSize)}
}

// Send enqueues a message for the actor owning this address. It blocks if
// the mailbox is full, applying natural backpressure rather than dropping
// messages silently.
func (a Address) Send(msg any) {
	a.mailbox <- msg
}

// Mailbox returns the receive-only channel an actor's run loop ranges over.
func (a Address) Mailbox() <-chan any {
	return a.mailbox
}

// IsZero reports whether this is the zero Address (no mailbox).
func (a Address) IsZero() bool {
	return a.mailbox == nil
}

// System owns the process-wide bounded pool that backs helper work spawned
// by node behaviors. It is shared by the controller and every node actor.
type System struct {
	pool *ants.Pool
}

// NewSystem creates a System whose helper-work pool can run up to size
// goroutines concurrently.
func NewSystem(size int) (*System, error) {
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &System{pool: pool}, nil
}

// Spawn submits fn to the bounded helper-work pool. It blocks until a
// worker slot is free, the same backpressure Address.Send applies to
// mailbox sends.
func (s *System) Spawn(fn func()) error {
	return s.pool.Submit(fn)
}

// Release tears down the helper-work pool. Call on engine shutdown.
func (s *System) Release() {
	s.pool.Release()
}

// Running returns the number of helper-work goroutines currently executing.
func (s *System) Running() int {
	return s.pool.Running()
}
