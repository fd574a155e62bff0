package topology

import (
	"fmt"

	"github.com/cuemby/flowd/pkg/component"
)

// nodeKind distinguishes the three component roles in the DAG.
type nodeKind uint8

const (
	nodeSource nodeKind = iota
	nodeTransform
	nodeSink
)

// graphNode is one component's position in the DAG: its declared inputs
// (empty for sources) and the set of outputs it exposes.
type graphNode struct {
	id      component.Key
	kind    nodeKind
	inputs  []inputRef
	outputs map[string]component.PayloadType
	input   component.PayloadType // declared consumer input type, transforms/sinks only
}

// buildGraph parses a Config into nodes plus validates every structural
// invariant up front: referential integrity, type
// compatibility, and acyclicity. It does not instantiate components.
func buildGraph(cfg Config, reg *Registry) (map[component.Key]*graphNode, error) {
	nodes := make(map[component.Key]*graphNode)

	for id, sc := range cfg.Sources {
		f, ok := reg.source[sc.Type]
		if !ok {
			return nil, fmt.Errorf("topology: source %q: unknown type %q", id, sc.Type)
		}
		outs := outputMap(f.outputs(sc.Params))
		nodes[component.Key(id)] = &graphNode{id: component.Key(id), kind: nodeSource, outputs: outs}
	}
	for id, tc := range cfg.Transforms {
		f, ok := reg.transform[tc.Type]
		if !ok {
			return nil, fmt.Errorf("topology: transform %q: unknown type %q", id, tc.Type)
		}
		refs := make([]inputRef, len(tc.Inputs))
		for i, s := range tc.Inputs {
			refs[i] = parseInputRef(s)
		}
		outs := outputMap(f.outputs(tc.Params))
		nodes[component.Key(id)] = &graphNode{id: component.Key(id), kind: nodeTransform, inputs: refs, outputs: outs, input: f.inputType(tc.Params)}
	}
	for id, sc := range cfg.Sinks {
		f, ok := reg.sink[sc.Type]
		if !ok {
			return nil, fmt.Errorf("topology: sink %q: unknown type %q", id, sc.Type)
		}
		refs := make([]inputRef, len(sc.Inputs))
		for i, s := range sc.Inputs {
			refs[i] = parseInputRef(s)
		}
		nodes[component.Key(id)] = &graphNode{id: component.Key(id), kind: nodeSink, inputs: refs, input: f.inputType(sc.Params)}
	}

	if err := validateReferences(nodes); err != nil {
		return nil, err
	}
	if err := detectCycles(nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func outputMap(outs []component.Output) map[string]component.PayloadType {
	m := make(map[string]component.PayloadType, len(outs))
	for _, o := range outs {
		m[o.Name] = o.Type
	}
	return m
}

// validateReferences checks that every input names an existing
// component's output, and that output's type is accepted by the
// consumer's declared input type.
func validateReferences(nodes map[component.Key]*graphNode) error {
	for _, n := range nodes {
		for _, ref := range n.inputs {
			upstream, ok := nodes[ref.ComponentID]
			if !ok {
				return fmt.Errorf("topology: %s: input references unknown component %q", n.id, ref.ComponentID)
			}
			if upstream.kind == nodeSink {
				return fmt.Errorf("topology: %s: input references sink %q, sinks have no outputs", n.id, ref.ComponentID)
			}
			outType, ok := upstream.outputs[ref.Output]
			if !ok {
				return fmt.Errorf("topology: %s: input references unknown output %q.%q", n.id, ref.ComponentID, ref.Output)
			}
			if !outType.Accepts(n.input) {
				return fmt.Errorf("topology: %s: input %q.%q produces %s, incompatible with declared input type %s",
					n.id, ref.ComponentID, ref.Output, outType, n.input)
			}
		}
	}
	return nil
}

// detectCycles runs a standard three-color DFS over the input edges
// (consumer -> producer) and fails if any back edge is found.
func detectCycles(nodes map[component.Key]*graphNode) error {
	const (
		white = iota
		gray
		black
	)
	color := make(map[component.Key]int, len(nodes))

	var visit func(id component.Key, path []component.Key) error
	visit = func(id component.Key, path []component.Key) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("topology: cycle detected: %v -> %s", path, id)
		}
		color[id] = gray
		n := nodes[id]
		for _, ref := range n.inputs {
			if err := visit(ref.ComponentID, append(path, id)); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}

	for id := range nodes {
		if err := visit(id, nil); err != nil {
			return err
		}
	}
	return nil
}

// topoOrder returns component keys such that every input appears before
// its consumer, so Build can wire producers before their consumers need
// them. Components with no dependency between them appear in no fixed
// relative order.
func topoOrder(nodes map[component.Key]*graphNode) []component.Key {
	visited := make(map[component.Key]bool, len(nodes))
	var order []component.Key

	var visit func(id component.Key)
	visit = func(id component.Key) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, ref := range nodes[id].inputs {
			visit(ref.ComponentID)
		}
		order = append(order, id)
	}
	for id := range nodes {
		visit(id)
	}
	return order
}
