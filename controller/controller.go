// Package controller implements the singleton controller actor (§4.4): it
// boots graph instances, forwards facade requests to the right node actor,
// translates node responses back for the facade, and routes inter-node push
// messages.
package controller

import (
	"sync"
	"sync/atomic"

	"github.com/procflow/engine/actorsys"
	"github.com/procflow/engine/behavior"
	"github.com/procflow/engine/catalogue"
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/log"
	"github.com/procflow/engine/nodeactor"
	"github.com/procflow/engine/pin"
)

// mailboxBufferSize is the buffer depth given to every node actor's
// mailbox address. Node-to-node and facade traffic is synchronous enough in
// practice that a small buffer suffices; a full mailbox simply applies
// backpressure to the sender (actorsys.Address.Send).
const mailboxBufferSize = 32

// BuiltinFactory constructs the behavior for one booted instance of a
// built-in graph. Registered against a graph id with RegisterBuiltin.
type BuiltinFactory func(cat *catalogue.Catalogue, instance *pin.Instance) (behavior.Behavior, error)

// Controller is the singleton actor mediating all external requests.
type Controller struct {
	self        actorsys.Address
	facadeReply actorsys.Address
	system      *actorsys.System
	catalogue   *catalogue.Catalogue

	builtins         map[identifier.ID]BuiltinFactory
	userGraphFactory BuiltinFactory

	// instancesMu guards instances: the controller's own goroutine writes
	// it from handleBootGraph and reads it from handleRouteMessage, while
	// Instance below lets other goroutines (e.g. the debug HTTP server)
	// read it too.
	instancesMu sync.RWMutex
	instances   map[identifier.ID]actorsys.Address

	// pendingReply is the facade reply channel a just-forwarded node
	// command's translated response should go to. The single-outstanding-
	// facade-call invariant (§4.5) means at most one is ever needed; see
	// DESIGN.md for the documented limitation this simplification carries
	// (§9's "multiple reply channels vs. correlation ids" open question).
	pendingReply actorsys.Address

	shutdownWait atomic.Bool
}

// New constructs a controller. self is the controller's own mailbox
// address (used as the Commander/Requestor on forwarded node commands);
// facadeReply is where replies go when a command carries no explicit
// requestor.
func New(self, facadeReply actorsys.Address, system *actorsys.System, cat *catalogue.Catalogue) *Controller {
	c := &Controller{
		self:        self,
		facadeReply: facadeReply,
		system:      system,
		catalogue:   cat,
		builtins:    make(map[identifier.ID]BuiltinFactory),
		instances:   make(map[identifier.ID]actorsys.Address),
	}
	c.shutdownWait.Store(true)
	return c
}

// RegisterBuiltin associates a built-in graph id with the factory used to
// construct its behavior on boot.
func (c *Controller) RegisterBuiltin(graphID identifier.ID, factory BuiltinFactory) {
	c.builtins[graphID] = factory
}

// SetFacadeReply changes the default reply address used for commands that
// carry no explicit requestor. The engine facade calls this once at
// construction, after generating its own dedicated reply channel.
func (c *Controller) SetFacadeReply(addr actorsys.Address) {
	c.facadeReply = addr
}

// RegisterUserGraphFactory installs the factory used to boot graphs from
// non-built-in libraries (the declared extension point §9 leaves open).
// Without one registered, bootUserGraph always fails.
func (c *Controller) RegisterUserGraphFactory(factory BuiltinFactory) {
	c.userGraphFactory = factory
}

// Address returns the controller's mailbox address.
func (c *Controller) Address() actorsys.Address {
	return c.self
}

// ShutdownWaitCleared reports whether StopWaitingForNewMessages has been
// processed. The facade polls this directly rather than through a message
// round trip, since it is a plain flag read, not a request needing a node's
// involvement.
func (c *Controller) ShutdownWaitCleared() bool {
	return !c.shutdownWait.Load()
}

// Instance looks up a booted instance's mailbox address by id. Safe for
// concurrent use by callers outside the controller's own goroutine (e.g. the
// debug HTTP server).
func (c *Controller) Instance(id identifier.ID) (actorsys.Address, bool) {
	c.instancesMu.RLock()
	defer c.instancesMu.RUnlock()
	addr, ok := c.instances[id]
	return addr, ok
}

// Run processes the controller's mailbox until it is closed.
func (c *Controller) Run() {
	for msg := range c.self.Mailbox() {
		c.dispatch(msg)
	}
}

func (c *Controller) dispatch(msg any) {
	switch m := msg.(type) {
	case BootGraph:
		c.handleBootGraph(m)
	case SetInputPinValue:
		c.pendingReply = c.facadeReply
		m.Actor.Send(nodeactor.InputValue{Commander: c.self, InputID: m.Pin, Datatype: m.Datatype, Value: m.Value})
	case ComputeOutputPinValue:
		c.pendingReply = c.facadeReply
		m.Actor.Send(nodeactor.ComputeOutput{Commander: c.self, OutputID: m.Pin, Parameter: m.Parameter})
	case SendValue:
		c.pendingReply = c.facadeReply
		m.Actor.Send(nodeactor.ReceiverMessage{Commander: c.self, ReceiverPinID: m.ReceiverPin, Payload: m.Value})
	case nodeactor.RouteMessage:
		c.handleRouteMessage(m)
	case StopWaitingForNewMessages, nodeactor.StopWaitingForNewMessages:
		c.shutdownWait.Store(false)
	case nodeactor.InputPinSet:
		c.forwardPending(InputPinSet{})
	case nodeactor.OutputPinValue:
		c.forwardPending(OutputValue{Actor: m.From, Value: m.Value})
	case nodeactor.Received:
		c.forwardPending(ValueSent{})
	default:
		log.Infof("controller: ignoring unrecognized message %T", msg)
	}
}

// forwardPending translates and relays a node response to whichever facade
// call is currently outstanding. With no outstanding call (e.g. a
// RouteMessage-triggered ack arriving asynchronously), it is logged only,
// matching §4.3's "responses accepted only to be logged".
func (c *Controller) forwardPending(msg any) {
	if c.pendingReply.IsZero() {
		log.Infof("controller: observed node response %T with no outstanding facade call", msg)
		return
	}
	c.pendingReply.Send(msg)
	c.pendingReply = actorsys.Address{}
}

func (c *Controller) handleRouteMessage(m nodeactor.RouteMessage) {
	addr, ok := c.Instance(m.Receiver.Node)
	if !ok {
		log.Errorf("controller: route_message: unknown receiver instance %s", m.Receiver.Node)
		return
	}
	addr.Send(nodeactor.ReceiverMessage{Commander: c.self, ReceiverPinID: m.Receiver.Pin, Payload: m.Payload})
}

func (c *Controller) reply(requestor actorsys.Address, msg GraphBooted) {
	if requestor.IsZero() {
		c.facadeReply.Send(msg)
		return
	}
	requestor.Send(msg)
}

func (c *Controller) handleBootGraph(cmd BootGraph) {
	instanceID := identifier.New()

	ref, ok := c.catalogue.ResolveRef(cmd.GraphID, cmd.Version)
	if !ok {
		log.Infof("controller: graph %s does not exist", cmd.GraphID)
		c.reply(cmd.Requestor, GraphBooted{InstanceID: instanceID, Booted: false})
		return
	}
	// LoadVersion both confirms the requested version exists and, for
	// built-ins, is cheap; catalogue.LoadVersion already logs the precise
	// reason (missing graph, missing version) on failure.
	if _, ok := c.catalogue.LoadVersion(ref); !ok {
		c.reply(cmd.Requestor, GraphBooted{InstanceID: instanceID, Booted: false})
		return
	}

	instance := pin.NewInstance(instanceID, ref)

	var behv behavior.Behavior
	var err error
	if ref.Library == catalogue.BuiltinLibraryID {
		behv, err = c.bootBuiltin(ref, instance)
	} else {
		behv, err = c.bootUserGraph(ref, instance)
	}
	if err != nil {
		log.Errorf("controller: failed to boot graph %s: %v", cmd.GraphID, err)
		c.reply(cmd.Requestor, GraphBooted{InstanceID: instanceID, Booted: false})
		return
	}

	addr := actorsys.NewAddress(instanceID.String(), mailboxBufferSize)
	actor := nodeactor.New(addr, c.self, c.system, c.catalogue, behv, instance)
	go actor.Run()

	c.instancesMu.Lock()
	c.instances[instanceID] = addr
	c.instancesMu.Unlock()
	c.reply(cmd.Requestor, GraphBooted{InstanceID: instanceID, Address: addr, Booted: true})
}

func (c *Controller) bootBuiltin(ref pin.GraphRef, instance *pin.Instance) (behavior.Behavior, error) {
	factory, ok := c.builtins[ref.Graph]
	if !ok {
		return nil, errUnregisteredBuiltin(ref.Graph)
	}
	return factory(c.catalogue, instance)
}

// bootUserGraph is the declared extension point the source leaves
// unspecified (§9 open question "user-graph boot path"): the catalogue
// resolution above already confirms the graph and version exist. Without a
// registered factory (see RegisterUserGraphFactory) this always fails; a
// production engine would register one that interprets the version
// descriptor's node and connection lists and recursively boots a sub-actor
// per contained node.
func (c *Controller) bootUserGraph(ref pin.GraphRef, instance *pin.Instance) (behavior.Behavior, error) {
	if c.userGraphFactory == nil {
		return nil, errUserGraphUnsupported(ref.Graph)
	}
	return c.userGraphFactory(c.catalogue, instance)
}
