package engine

import (
	"github.com/procflow/engine/actorsys"
	"github.com/procflow/engine/builtin"
	"github.com/procflow/engine/catalogue"
	"github.com/procflow/engine/controller"
)

// Engine bundles the actor system, catalogue, controller and facade that
// make up one running process (§2's control-flow chain: facade → controller
// → node actor).
type Engine struct {
	System     *actorsys.System
	Catalogue  *catalogue.Catalogue
	Controller *controller.Controller
	Facade     *Facade
}

// Boot assembles a fully wired Engine: a helper-work pool of the given
// capacity, a catalogue loaded from the built-in library plus any
// additional loaders (typically one or more catalogue/fsloader.Loader
// values for on-disk library roots), a controller with every built-in
// registered, and a facade bound to it. The controller's mailbox loop is
// started; callers shut down via Facade.StopWaiting/Wait.
func Boot(helperPoolSize int, extraLoaders ...catalogue.Loader) (*Engine, error) {
	sys, err := actorsys.NewSystem(helperPoolSize)
	if err != nil {
		return nil, err
	}

	cat := catalogue.New()
	loaders := append([]catalogue.Loader{builtin.CatalogueLoader()}, extraLoaders...)
	cat.Load(loaders...)

	self := actorsys.NewAddress("controller", 64)
	ctl := controller.New(self, actorsys.Address{}, sys, cat)
	builtin.RegisterAll(ctl)
	facade := New(ctl)
	go ctl.Run()

	return &Engine{
		System:     sys,
		Catalogue:  cat,
		Controller: ctl,
		Facade:     facade,
	}, nil
}

// Shutdown releases the engine's helper-work pool. Node actor and
// controller goroutines are not force-terminated (§5: in-flight
// computations are not aborted); callers should have already completed a
// clean Facade.Wait.
func (e *Engine) Shutdown() {
	e.System.Release()
}
