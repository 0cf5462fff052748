package nodeactor

import (
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/log"
)

// resolveOutput implements the caching policy shared by ComputeOutputToInput
// and ComputeOutput (§4.3 commands 1-2): a cached value is returned
// unchanged; otherwise the behavior computes it, and on success the result
// is cached before being returned. ok is false on a missing pin, a datatype
// mismatch, or a behavior error — all three are logged and the caller drops
// the command without replying.
func (a *Actor) resolveOutput(outputID identifier.ID, expectedDatatype string, parameter any) (value any, ok bool) {
	out, found := a.state.outputs[outputID]
	if !found {
		log.Errorf("nodeactor %s: unknown output pin %s", a.self.Name, outputID)
		return nil, false
	}
	desc := out.Descriptor()
	if expectedDatatype != "" && desc.Datatype != expectedDatatype {
		log.Errorf("nodeactor %s: incorrect datatype for output %s: expected %s, got %s",
			a.self.Name, desc.Name, desc.Datatype, expectedDatatype)
		return nil, false
	}
	if cached, has := out.Value(); has {
		return cached, true
	}
	v, err := a.behavior.ComputeOutput(a.state, desc, a.ctx(), parameter)
	if err != nil {
		log.Errorf("nodeactor %s: compute_output failed for %s: %v", a.self.Name, desc.Name, err)
		return nil, false
	}
	out.SetValue(v)
	return v, true
}

func (a *Actor) handleComputeOutputToInput(cmd ComputeOutputToInput) {
	value, ok := a.resolveOutput(cmd.OutputID, cmd.ExpectedDatatype, cmd.Parameter)
	if !ok {
		return
	}
	cmd.Commander.Send(InputValue{
		Commander: a.self,
		InputID:   cmd.TargetInputID,
		Datatype:  cmd.ExpectedDatatype,
		Value:     value,
	})
}

func (a *Actor) handleComputeOutput(cmd ComputeOutput) {
	out, found := a.state.outputs[cmd.OutputID]
	if !found {
		log.Errorf("nodeactor %s: unknown output pin %s", a.self.Name, cmd.OutputID)
		return
	}
	value, ok := a.resolveOutput(cmd.OutputID, out.Descriptor().Datatype, cmd.Parameter)
	if !ok {
		return
	}
	cmd.Commander.Send(OutputPinValue{From: a.self, OutputID: cmd.OutputID, Value: value})
}

func (a *Actor) handleInputValue(cmd InputValue) {
	in, ok := a.state.inputs[cmd.InputID]
	if !ok {
		log.Errorf("nodeactor %s: unknown input pin %s", a.self.Name, cmd.InputID)
		return
	}
	desc := in.Descriptor()
	if desc.Datatype != cmd.Datatype {
		log.Errorf("nodeactor %s: incorrect datatype for input %s: expected %s, got %s",
			a.self.Name, desc.Name, desc.Datatype, cmd.Datatype)
		return
	}
	in.SetValue(cmd.Value)
	if cmd.Commander == a.controller {
		cmd.Commander.Send(InputPinSet{})
	}
}

func (a *Actor) handleReceiverMessage(cmd ReceiverMessage) {
	// Ack precedes behavior execution so the caller is never blocked on
	// arbitrary node code (§4.3 command 4).
	cmd.Commander.Send(Received{})
	a.behavior.HandleReceive(a.state, a.ctx(), cmd.ReceiverPinID, cmd.Payload)
}

func (a *Actor) handleRequestProgress(cmd RequestProgress) {
	out, ok := a.state.outputs[cmd.OutputRef.Pin]
	if !ok {
		log.Errorf("nodeactor %s: progress requested for unknown output %s", a.self.Name, cmd.OutputRef.Pin)
		return
	}
	cmd.Requestor.Send(UpdateProgress{Progressor: a.self, OutputRef: cmd.OutputRef, Progress: out.Progress()})
}

func (a *Actor) handleUpdateProgress(cmd UpdateProgress) {
	for _, in := range a.state.inputs {
		for _, link := range in.Links() {
			if link.Remote.Pin == cmd.OutputRef.Pin {
				in.UpdateLinkProgress(link.Remote, cmd.Progress)
			}
		}
	}
}

func (a *Actor) handleUpdateDatum(cmd UpdateDatum) {
	a.state.instance.SetDatum(cmd.Key, cmd.Value)
	cmd.Requestor.Send(DatumUpdated{})
}

func (a *Actor) handleRemoveDatum(cmd RemoveDatum) {
	a.state.instance.RemoveDatum(cmd.Key)
	cmd.Requestor.Send(DatumRemoved{})
}

// handleRefreshPins re-enumerates the behavior's pins and atomically
// replaces all four pin maps with freshly built ones (§4.3 command 8).
// Rebuilding from scratch, rather than merging into the existing maps,
// guarantees both halves of invariant 2: pins that disappeared lose their
// cached value because they are simply absent from the new maps, and pins
// that remain also start uncached because they are new pin.LivePin values.
func (a *Actor) handleRefreshPins(cmd RefreshPins) {
	inputs, outputs := a.behavior.EnumerateIO(a.catalogue)
	receives, sends := a.behavior.EnumerateRS(a.catalogue)
	a.state = newState(a.state.instance, inputs, outputs, receives, sends)
	cmd.Requestor.Send(PinsRefreshed{})
}
