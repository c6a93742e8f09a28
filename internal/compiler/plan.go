package compiler

import (
	"fmt"
	"maps"
	"slices"

	"cuelang.org/go/cue"

	"github.com/roach88/configured/internal/definition"
	"github.com/roach88/configured/internal/resolve"
)

// planSpec is a named plan as declared in the catalog: entry refs per
// run config section.
type planSpec struct {
	name      string
	line      int
	resources map[string]string
	loggers   map[string]string
	executor  string
	ops       []string
}

// parsePlans reads the plan section. Runs under the runtime lock.
func (c *compilation) parsePlans(sv cue.Value) {
	iter, err := sv.Fields()
	if err != nil {
		c.cueErr(SectionPlan, err)
		return
	}
	for iter.Next() {
		name := iter.Label()
		pv := iter.Value()
		// Plans reuse the entry attribute readers for their fields.
		e := &rawEntry{ref: SectionPlan + "." + name, line: pv.Pos().Line()}
		p := &planSpec{name: name, line: e.line}

		fields, err := pv.Fields()
		if err != nil {
			c.cueErr(e.ref, err)
			continue
		}
		for fields.Next() {
			switch label := fields.Label(); label {
			case resolve.SectionResources:
				p.resources = c.optStringMap(e, pv, label)
			case resolve.SectionLoggers:
				p.loggers = c.optStringMap(e, pv, label)
			case "executor":
				p.executor, _ = c.optString(e, pv, label)
			case resolve.SectionOps:
				p.ops = c.optStrings(e, pv, label)
			default:
				c.fail(e.ref+"."+label, ErrInvalidAttribute, e.line,
					"unknown plan field (want %s, %s, executor or %s)",
					resolve.SectionResources, resolve.SectionLoggers, resolve.SectionOps)
			}
		}
		c.plans[name] = p
	}
}

// PlanNames returns the declared plan names, sorted.
func (c *Catalog) PlanNames() []string {
	return slices.Sorted(maps.Keys(c.plans))
}

// Plan builds the named plan.
func (c *Catalog) Plan(name string) (resolve.Plan, error) {
	p, ok := c.plans[name]
	if !ok {
		return resolve.Plan{}, fmt.Errorf("unknown plan %q", name)
	}

	plan := resolve.Plan{
		Resources: make(map[string]definition.Configurable, len(p.resources)),
		Loggers:   make(map[string]definition.Configurable, len(p.loggers)),
	}
	for key, ref := range p.resources {
		plan.Resources[key] = c.entries[ref].Def
	}
	for key, ref := range p.loggers {
		plan.Loggers[key] = c.entries[ref].Def
	}
	if p.executor != "" {
		plan.Executor = c.entries[p.executor].Def
	}
	for _, ref := range p.ops {
		plan.Ops = append(plan.Ops, c.entries[ref].Def)
	}
	return plan, nil
}

// DefaultPlan builds a plan from every entry: resources and loggers keyed by
// entry key, every op and graph, and the executor when exactly one is
// declared. Configured ops and graphs are named apart from their parents,
// so both appear.
func (c *Catalog) DefaultPlan() resolve.Plan {
	plan := resolve.Plan{
		Resources: make(map[string]definition.Configurable),
		Loggers:   make(map[string]definition.Configurable),
	}
	var executors []definition.Configurable
	for _, e := range c.Entries() {
		switch e.Kind {
		case definition.KindResource:
			plan.Resources[e.Key] = e.Def
		case definition.KindLogger:
			plan.Loggers[e.Key] = e.Def
		case definition.KindExecutor:
			executors = append(executors, e.Def)
		case definition.KindOp, definition.KindGraph:
			plan.Ops = append(plan.Ops, e.Def)
		}
	}
	if len(executors) == 1 {
		plan.Executor = executors[0]
	}
	return plan
}
