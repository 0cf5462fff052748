// Package builtin holds the built-in node library: the Log node and the
// Graph container node (§2, "Built-in Node Library"). Log is registered
// against the controller under catalogue.BuiltinLibraryID; Graph is
// installed as the controller's user-graph factory.
package builtin

import (
	"fmt"

	"github.com/procflow/engine/behavior"
	"github.com/procflow/engine/catalogue"
	"github.com/procflow/engine/identifier"
	"github.com/procflow/engine/log"
	"github.com/procflow/engine/pin"
)

// Log graph identity and pin ids. Carried over unchanged from the original
// node-graph definitions so graphs authored against them keep resolving to
// the same pins.
var (
	LogGraphID = identifier.MustParse("fd41d8ef-d10f-4499-8a90-35b73d8ff246")

	logInputInfo  = identifier.MustParse("5e6ab872-5cca-4e01-8dbb-2df843102dc0")
	logInputWarn  = identifier.MustParse("2916bcb7-2943-4426-8af4-292bd8b1f417")
	logInputError = identifier.MustParse("f39a4e33-32f3-485f-b634-e539c98dbe94")

	logOutputInfo  = identifier.MustParse("44a986b1-dc09-45d9-ab65-e2c0c7b6f5ce")
	logOutputWarn  = identifier.MustParse("d792d30a-0986-4f8c-bf6d-5fd0f4ac3d05")
	logOutputError = identifier.MustParse("2af8bac9-9d56-4f6f-b997-68b05d1f3e55")

	logReceiveInfo        = identifier.MustParse("6b9c6c69-13e8-473a-ac47-818fcdf6d7bd")
	logReceiveWarn        = identifier.MustParse("4eb1bc59-ca1b-4754-be49-0ad13f86421a")
	logReceiveError       = identifier.MustParse("3f66f874-b785-4444-b7c6-5007052b531c")
	logReceivePassThrough = identifier.MustParse("bccf1a26-793d-4c80-ad25-be110c4dc1d7")

	logSendInfo  = identifier.MustParse("dfc26f11-fa2b-4667-aad3-456edbdd9c84")
	logSendWarn  = identifier.MustParse("3982006c-9e32-4e59-a544-58bc9a367daf")
	logSendError = identifier.MustParse("ab04b49d-ff65-44c6-a70b-8546ecdbc5ba")
)

// Log is the built-in log node: three string inputs (Info, Warn, Error)
// whose outputs echo the corresponding input unchanged, and matching
// receive/send pins that log and pass the payload through.
type Log struct {
	behavior.NopUntyped
}

// NewLog constructs a Log behavior. The factory signature matches
// controller.BuiltinFactory; the catalogue and instance arguments are
// unused since Log carries no per-instance configuration.
func NewLog(*catalogue.Catalogue, *pin.Instance) (behavior.Behavior, error) {
	return &Log{}, nil
}

// EnumerateIO implements behavior.Behavior.
func (Log) EnumerateIO(*catalogue.Catalogue) (inputs, outputs []pin.Descriptor) {
	inputs = []pin.Descriptor{
		{Name: "Info", ID: logInputInfo, Datatype: "string"},
		{Name: "Warn", ID: logInputWarn, Datatype: "string"},
		{Name: "Error", ID: logInputError, Datatype: "string"},
	}
	outputs = []pin.Descriptor{
		{Name: "Info", ID: logOutputInfo, Datatype: "string"},
		{Name: "Warn", ID: logOutputWarn, Datatype: "string"},
		{Name: "Error", ID: logOutputError, Datatype: "string"},
	}
	return inputs, outputs
}

// EnumerateRS implements behavior.Behavior.
func (Log) EnumerateRS(*catalogue.Catalogue) (receives, sends []pin.Descriptor) {
	receives = []pin.Descriptor{
		{Name: "Info", ID: logReceiveInfo, Datatype: "string"},
		{Name: "Warn", ID: logReceiveWarn, Datatype: "string"},
		{Name: "Error", ID: logReceiveError, Datatype: "string"},
		{Name: "Log and Pass Through", ID: logReceivePassThrough, Datatype: "string"},
	}
	sends = []pin.Descriptor{
		{Name: "Info", ID: logSendInfo, Datatype: "string"},
		{Name: "Warn", ID: logSendWarn, Datatype: "string"},
		{Name: "Error", ID: logSendError, Datatype: "string"},
	}
	return receives, sends
}

// logInputFor maps an output pin id to the input pin it echoes.
var logInputFor = map[identifier.ID]identifier.ID{
	logOutputInfo:  logInputInfo,
	logOutputWarn:  logInputWarn,
	logOutputError: logInputError,
}

// ComputeOutput echoes the corresponding input's cached value unchanged.
func (Log) ComputeOutput(state behavior.State, output pin.Descriptor, _ behavior.Ctx, _ any) (any, error) {
	inputID, ok := logInputFor[output.ID]
	if !ok {
		return nil, fmt.Errorf("log: no input mapped to output %s", output.ID)
	}
	in, ok := state.Pin(pin.Input, inputID)
	if !ok {
		return nil, fmt.Errorf("log: missing input pin %s for output %s", inputID, output.ID)
	}
	v, _ := in.Value()
	return v, nil
}

// logLevelFor maps a receive pin id to the log level it emits at, and the
// send pin id it forwards the payload to.
var logLevelFor = map[identifier.ID]struct {
	level string
	send  identifier.ID
}{
	logReceiveInfo:  {"info", logSendInfo},
	logReceiveWarn:  {"warn", logSendWarn},
	logReceiveError: {"error", logSendError},
}

// HandleReceive logs the payload at the level implied by receiverPinID and,
// for the three typed receive pins, forwards it unmodified to every link
// wired to the matching send pin. "Log and Pass Through" logs at info level
// without forwarding, since it has no corresponding send pin.
func (Log) HandleReceive(state behavior.State, ctx behavior.Ctx, receiverPinID identifier.ID, payload any) {
	if receiverPinID == logReceivePassThrough {
		log.Infof("log node: %v", payload)
		return
	}
	mapping, ok := logLevelFor[receiverPinID]
	if !ok {
		log.Warnf("log node: received on unknown pin %s", receiverPinID)
		return
	}
	switch mapping.level {
	case "warn":
		log.Warnf("log node: %v", payload)
	case "error":
		log.Errorf("log node: %v", payload)
	default:
		log.Infof("log node: %v", payload)
	}

	sendPin, ok := state.Pin(pin.Send, mapping.send)
	if !ok {
		return
	}
	for _, link := range sendPin.Links() {
		if err := ctx.Send(link.Remote, payload); err != nil {
			log.Errorf("log node: forwarding to %s failed: %v", link.Remote.Node, err)
		}
	}
}
