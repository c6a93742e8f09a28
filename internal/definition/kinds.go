package definition

import (
	"fmt"
	"maps"
	"slices"
)

// ResourceDefinition is an anonymous definition of a shared resource.
type ResourceDefinition struct {
	base
	requiredResources []string
}

// NewResource declares a resource. Spec.Name is ignored.
func NewResource(spec Spec) *ResourceDefinition {
	b, _ := spec.base(false)
	return &ResourceDefinition{base: b, requiredResources: slices.Clone(spec.RequiredResources)}
}

func (*ResourceDefinition) Kind() Kind       { return KindResource }
func (*ResourceDefinition) Variant() Variant { return KindResource.Variant() }

// RequiredResources returns the keys of resources this resource depends on.
func (r *ResourceDefinition) RequiredResources() []string {
	return slices.Clone(r.requiredResources)
}

func (r *ResourceDefinition) copyForConfigured(_, description string, cs *ConfiguredSchema) Configurable {
	return &ResourceDefinition{
		base:              base{description: description, schema: cs},
		requiredResources: slices.Clone(r.requiredResources),
	}
}

// LoggerDefinition is an anonymous definition of a run logger.
type LoggerDefinition struct {
	base
}

// NewLogger declares a logger. Spec.Name is ignored.
func NewLogger(spec Spec) *LoggerDefinition {
	b, _ := spec.base(false)
	return &LoggerDefinition{base: b}
}

func (*LoggerDefinition) Kind() Kind       { return KindLogger }
func (*LoggerDefinition) Variant() Variant { return KindLogger.Variant() }

func (l *LoggerDefinition) copyForConfigured(_, description string, cs *ConfiguredSchema) Configurable {
	return &LoggerDefinition{base: base{description: description, schema: cs}}
}

// ExecutorDefinition is a named definition of a run executor.
type ExecutorDefinition struct {
	base
}

// NewExecutor declares an executor. Returns ErrMissingName without a name.
func NewExecutor(spec Spec) (*ExecutorDefinition, error) {
	b, err := spec.base(true)
	if err != nil {
		return nil, fmt.Errorf("executor: %w", err)
	}
	return &ExecutorDefinition{base: b}, nil
}

func (*ExecutorDefinition) Kind() Kind       { return KindExecutor }
func (*ExecutorDefinition) Variant() Variant { return KindExecutor.Variant() }

func (e *ExecutorDefinition) copyForConfigured(name, description string, cs *ConfiguredSchema) Configurable {
	return &ExecutorDefinition{base: base{name: name, description: description, schema: cs}}
}

// OpDefinition is a named definition of a computation step.
type OpDefinition struct {
	base
	requiredResources []string
	tags              map[string]string
}

// NewOp declares an op. Returns ErrMissingName without a name.
func NewOp(spec Spec) (*OpDefinition, error) {
	b, err := spec.base(true)
	if err != nil {
		return nil, fmt.Errorf("op: %w", err)
	}
	return &OpDefinition{
		base:              b,
		requiredResources: slices.Clone(spec.RequiredResources),
		tags:              maps.Clone(spec.Tags),
	}, nil
}

func (*OpDefinition) Kind() Kind       { return KindOp }
func (*OpDefinition) Variant() Variant { return KindOp.Variant() }

// RequiredResources returns the keys of resources the op uses.
func (o *OpDefinition) RequiredResources() []string {
	return slices.Clone(o.requiredResources)
}

// Tags returns a copy of the op's tags.
func (o *OpDefinition) Tags() map[string]string {
	return maps.Clone(o.tags)
}

// Alias starts an invocation of the op under another name.
func (o *OpDefinition) Alias(name string) *PendingInvocation {
	return &PendingInvocation{op: o, alias: name}
}

// Tag starts an invocation of the op with extra tags.
func (o *OpDefinition) Tag(tags map[string]string) *PendingInvocation {
	return &PendingInvocation{op: o, tags: maps.Clone(tags)}
}

func (o *OpDefinition) copyForConfigured(name, description string, cs *ConfiguredSchema) Configurable {
	return &OpDefinition{
		base:              base{name: name, description: description, schema: cs},
		requiredResources: slices.Clone(o.requiredResources),
		tags:              maps.Clone(o.tags),
	}
}

// GraphDefinition is a named composition of ops.
type GraphDefinition struct {
	base
	nodes []*OpDefinition
	tags  map[string]string
}

// NewGraph declares a graph over nodes. Returns ErrMissingName without a
// name, or an error when two nodes share a name.
func NewGraph(spec Spec, nodes ...*OpDefinition) (*GraphDefinition, error) {
	b, err := spec.base(true)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.Name()] {
			return nil, fmt.Errorf("graph %q: duplicate node %q", spec.Name, n.Name())
		}
		seen[n.Name()] = true
	}
	return &GraphDefinition{base: b, nodes: slices.Clone(nodes), tags: maps.Clone(spec.Tags)}, nil
}

func (*GraphDefinition) Kind() Kind       { return KindGraph }
func (*GraphDefinition) Variant() Variant { return KindGraph.Variant() }

// Nodes returns the graph's ops in declaration order.
func (g *GraphDefinition) Nodes() []*OpDefinition {
	return slices.Clone(g.nodes)
}

// Tags returns a copy of the graph's tags.
func (g *GraphDefinition) Tags() map[string]string {
	return maps.Clone(g.tags)
}

func (g *GraphDefinition) copyForConfigured(name, description string, cs *ConfiguredSchema) Configurable {
	return &GraphDefinition{
		base:  base{name: name, description: description, schema: cs},
		nodes: slices.Clone(g.nodes),
		tags:  maps.Clone(g.tags),
	}
}

// PendingInvocation is an op alias or tag that has not been finalized into
// a definition. It cannot be configured; call Finalize first.
type PendingInvocation struct {
	op    *OpDefinition
	alias string
	tags  map[string]string
}

// Alias sets the invocation name.
func (p *PendingInvocation) Alias(name string) *PendingInvocation {
	out := *p
	out.alias = name
	return &out
}

// Tag merges extra tags into the invocation.
func (p *PendingInvocation) Tag(tags map[string]string) *PendingInvocation {
	out := *p
	out.tags = maps.Clone(p.tags)
	if out.tags == nil {
		out.tags = make(map[string]string, len(tags))
	}
	maps.Copy(out.tags, tags)
	return &out
}

// Op returns the invoked definition.
func (p *PendingInvocation) Op() *OpDefinition {
	return p.op
}

// Finalize produces a definition carrying the alias as its name and the
// merged tags. The invoked op's schema is shared, not copied; schemas are
// immutable.
func (p *PendingInvocation) Finalize() *OpDefinition {
	out := &OpDefinition{
		base:              p.op.base,
		requiredResources: slices.Clone(p.op.requiredResources),
		tags:              maps.Clone(p.op.tags),
	}
	if p.alias != "" {
		out.name = p.alias
	}
	if len(p.tags) > 0 {
		if out.tags == nil {
			out.tags = make(map[string]string, len(p.tags))
		}
		maps.Copy(out.tags, p.tags)
	}
	return out
}
