package topology

import (
	"fmt"

	"github.com/cuemby/flowd/pkg/component"
)

// SourceFactory builds a Source instance from its config params and
// reports its outputs without building one, so Build can validate the
// graph before instantiating anything.
type SourceFactory interface {
	Outputs(params map[string]any) []component.Output
	Build(id component.Key, params map[string]any) (component.Source, error)
}

// TransformFactory builds either a FunctionTransform or a TaskTransform;
// Build's return value is asserted against both interfaces by the
// runtime. Returning a value implementing neither is a build-time error.
type TransformFactory interface {
	InputType(params map[string]any) component.PayloadType
	Outputs(params map[string]any) []component.Output
	Build(id component.Key, params map[string]any) (any, error)
}

// SinkFactory builds a Sink instance.
type SinkFactory interface {
	InputType(params map[string]any) component.PayloadType
	Build(id component.Key, params map[string]any) (component.Sink, error)
}

type sourceFactoryAdapter struct{ f SourceFactory }

func (a sourceFactoryAdapter) outputs(p map[string]any) []component.Output { return a.f.Outputs(p) }

type transformFactoryAdapter struct{ f TransformFactory }

func (a transformFactoryAdapter) inputType(p map[string]any) component.PayloadType {
	return a.f.InputType(p)
}
func (a transformFactoryAdapter) outputs(p map[string]any) []component.Output { return a.f.Outputs(p) }

type sinkFactoryAdapter struct{ f SinkFactory }

func (a sinkFactoryAdapter) inputType(p map[string]any) component.PayloadType {
	return a.f.InputType(p)
}

// Registry maps a config "type" string to the factory that builds it.
// Built-in types are registered by pkg/component's sibling packages
// (e.g. a future pkg/sinks/httpsink); tests register minimal stand-ins
// directly.
type Registry struct {
	source    map[string]sourceFactoryAdapter
	transform map[string]transformFactoryAdapter
	sink      map[string]sinkFactoryAdapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		source:    make(map[string]sourceFactoryAdapter),
		transform: make(map[string]transformFactoryAdapter),
		sink:      make(map[string]sinkFactoryAdapter),
	}
}

func (r *Registry) RegisterSource(typ string, f SourceFactory) {
	r.source[typ] = sourceFactoryAdapter{f}
}

func (r *Registry) RegisterTransform(typ string, f TransformFactory) {
	r.transform[typ] = transformFactoryAdapter{f}
}

func (r *Registry) RegisterSink(typ string, f SinkFactory) {
	r.sink[typ] = sinkFactoryAdapter{f}
}

// BuildTransform builds a single named transform type in isolation, for
// the `test` subcommand's embedded unit-test declarations, which run a
// transform against fixture events without standing up the full graph.
func (r *Registry) BuildTransform(typ string, id component.Key, params map[string]any) (any, error) {
	adapter, ok := r.transform[typ]
	if !ok {
		return nil, fmt.Errorf("topology: unknown transform type %q", typ)
	}
	return adapter.f.Build(id, params)
}
