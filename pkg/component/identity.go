package component

import "github.com/cuemby/flowd/pkg/event"

// Identity is the trivial FunctionTransform: every event passes through
// unchanged, finalizers intact. Used as the default transform in tests
// and as a worked example of the FunctionTransform contract.
type Identity struct {
	input   PayloadType
	outputs []Output
}

// NewIdentity builds an Identity transform declaring the given input type
// and a single "default" output of the same type.
func NewIdentity(t PayloadType) *Identity {
	return &Identity{input: t, outputs: []Output{{Name: "default", Type: t}}}
}

func (i *Identity) Transform(e event.Event) []event.Event { return []event.Event{e} }
func (i *Identity) InputType() PayloadType                { return i.input }
func (i *Identity) Outputs() []Output                     { return i.outputs }
