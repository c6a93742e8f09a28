package compiler

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/configured/internal/definition"
	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/schema"
)

// Catalog sections besides the definition kinds.
const (
	SectionConfigured = "configured"
	SectionPlan       = "plan"
)

// Entry is a compiled catalog definition.
type Entry struct {
	Ref  string // "<section>.<key>"
	Key  string
	Kind definition.Kind
	Of   string // wrapped entry, for configured entries
	Line int
	Def  definition.Configurable
}

// Catalog holds the definitions and plans compiled from one CUE value.
// It is immutable after Compile.
type Catalog struct {
	entries map[string]*Entry
	plans   map[string]*planSpec
}

// Lookup returns the entry for ref. A bare key is looked up in every
// section and must be unambiguous.
func (c *Catalog) Lookup(ref string) (*Entry, bool) {
	if e, ok := c.entries[ref]; ok {
		return e, true
	}
	var found *Entry
	for _, e := range c.entries {
		if e.Key == ref {
			if found != nil {
				return nil, false
			}
			found = e
		}
	}
	return found, found != nil
}

// Entries returns every entry ordered by ref.
func (c *Catalog) Entries() []*Entry {
	out := make([]*Entry, 0, len(c.entries))
	for _, ref := range slices.Sorted(maps.Keys(c.entries)) {
		out = append(out, c.entries[ref])
	}
	return out
}

// rawEntry is a catalog entry read from CUE, before definitions are built.
type rawEntry struct {
	ref     string
	section string
	key     string
	line    int
	kind    definition.Kind // base entries only
	invalid bool            // reported while parsing; never built

	description    string
	hasDescription bool
	config         cue.Value
	hasConfig      bool
	requiredRes    []string
	tags           map[string]string
	nodes          []string

	of          string
	name        string
	value       ir.Value
	schema      cue.Value
	hasSchema   bool
	template    cue.Value
	hasTemplate bool
}

func (e *rawEntry) configured() bool {
	return e.section == SectionConfigured
}

// deps returns the refs e must be built after.
func (e *rawEntry) deps() []string {
	if e.configured() {
		if e.of == "" {
			return nil
		}
		return []string{e.of}
	}
	return e.nodes
}

type compilation struct {
	rt      *schema.Runtime
	raw     map[string]*rawEntry
	plans   map[string]*planSpec
	built   map[string]*Entry
	errs    []ValidationError
	aborted bool
}

// Compile builds a catalog from a CUE value owned by rt.
//
// The catalog declares base definitions per kind, configured derivatives and
// plans:
//
//	resource: s3: {description: "S3 client", config: {bucket: string}}
//	configured: dev_s3: {
//	    of: "resource.s3"
//	    template: {
//	        input: {prefix: string}
//	        output: {bucket: input.prefix + "-dev"}
//	    }
//	}
//	plan: dev: resources: s3: "configured.dev_s3"
//
// All problems are collected; the catalog is nil when there are any.
func Compile(rt *schema.Runtime, v cue.Value) (*Catalog, []ValidationError) {
	c := &compilation{
		rt:    rt,
		raw:   make(map[string]*rawEntry),
		plans: make(map[string]*planSpec),
		built: make(map[string]*Entry),
	}

	rt.Do(func(*cue.Context) { c.parse(v) })
	if c.aborted {
		return nil, c.errs
	}

	for _, ref := range c.buildOrder() {
		c.build(c.raw[ref])
	}
	c.errs = append(c.errs, validateNames(c.built)...)
	c.errs = append(c.errs, validatePlans(c.plans, c.built)...)

	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return &Catalog{entries: c.built, plans: c.plans}, nil
}

func (c *compilation) fail(field, code string, line int, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{
		Field:   field,
		Code:    code,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	})
}

func (c *compilation) cueErr(field string, err error) {
	line := 0
	msg := err.Error()
	if ce, ok := formatCUEError(err).(*CompileError); ok {
		line = ce.Pos.Line()
		msg = ce.Message
	}
	c.fail(field, ErrCUE, line, "%s", msg)
}

// parse reads the catalog structure. Runs under the runtime lock.
func (c *compilation) parse(v cue.Value) {
	if err := v.Validate(); err != nil {
		c.cueErr("catalog", err)
		c.aborted = true
		return
	}
	iter, err := v.Fields()
	if err != nil {
		c.cueErr("catalog", err)
		c.aborted = true
		return
	}

	for iter.Next() {
		section := iter.Label()
		sv := iter.Value()
		switch section {
		case SectionConfigured:
			c.parseEntries(section, sv, c.parseConfigured)
		case SectionPlan:
			c.parsePlans(sv)
		default:
			kind, err := definition.ParseKind(section)
			if err != nil {
				c.fail(section, ErrUnknownSection, sv.Pos().Line(),
					"unknown section (want a definition kind, %q or %q)", SectionConfigured, SectionPlan)
				continue
			}
			c.parseEntries(section, sv, func(e *rawEntry, ev cue.Value) {
				c.parseBase(kind, e, ev)
			})
		}
	}
}

func (c *compilation) parseEntries(section string, sv cue.Value, parse func(*rawEntry, cue.Value)) {
	iter, err := sv.Fields()
	if err != nil {
		c.cueErr(section, err)
		return
	}
	for iter.Next() {
		key := iter.Label()
		ev := iter.Value()
		e := &rawEntry{ref: section + "." + key, section: section, key: key, line: ev.Pos().Line()}
		reported := len(c.errs)
		parse(e, ev)
		e.invalid = len(c.errs) > reported
		c.raw[e.ref] = e
	}
}

func (c *compilation) parseBase(kind definition.Kind, e *rawEntry, ev cue.Value) {
	e.kind = kind
	e.description, e.hasDescription = c.optString(e, ev, "description")

	if cfg := ev.LookupPath(cue.ParsePath("config")); cfg.Exists() {
		e.config, e.hasConfig = cfg, true
	}
	if kind == definition.KindResource || kind == definition.KindOp {
		e.requiredRes = c.optStrings(e, ev, "required_resources")
	}
	if kind == definition.KindOp || kind == definition.KindGraph {
		e.tags = c.optStringMap(e, ev, "tags")
	}
	if kind == definition.KindGraph {
		for _, node := range c.optStrings(e, ev, "nodes") {
			if !strings.Contains(node, ".") {
				node = string(definition.KindOp) + "." + node
			}
			e.nodes = append(e.nodes, node)
		}
	}
}

func (c *compilation) parseConfigured(e *rawEntry, ev cue.Value) {
	of, ok := c.optString(e, ev, "of")
	if !ok || of == "" {
		c.fail(e.ref+".of", ErrInvalidRef, e.line, "of is required and names the wrapped entry")
	} else if _, _, err := splitRef(of); err != nil {
		c.fail(e.ref+".of", ErrInvalidRef, e.line, "%v", err)
	} else {
		e.of = of
	}

	e.name, _ = c.optString(e, ev, "name")
	e.description, e.hasDescription = c.optString(e, ev, "description")

	if s := ev.LookupPath(cue.ParsePath("schema")); s.Exists() {
		e.schema, e.hasSchema = s, true
	}

	value := ev.LookupPath(cue.ParsePath("value"))
	tmpl := ev.LookupPath(cue.ParsePath("template"))
	switch {
	case value.Exists() && tmpl.Exists():
		c.fail(e.ref, ErrInvalidMapping, e.line, "value and template are mutually exclusive")
	case value.Exists():
		if e.hasSchema {
			c.fail(e.ref, ErrInvalidMapping, e.line, "%v", definition.ErrSchemaWithFixedValue)
			return
		}
		if err := value.Validate(cue.Concrete(true)); err != nil {
			c.fail(e.ref+".value", ErrInvalidMapping, e.line, "value must be concrete: %v", formatCUEError(err))
			return
		}
		v, err := schema.ToValue(value)
		if err != nil {
			c.fail(e.ref+".value", ErrInvalidMapping, e.line, "%v", err)
			return
		}
		e.value = v
	case tmpl.Exists():
		if !tmpl.LookupPath(cue.ParsePath("input")).Exists() || !tmpl.LookupPath(cue.ParsePath("output")).Exists() {
			c.fail(e.ref+".template", ErrInvalidMapping, e.line, "template needs both input and output")
			return
		}
		e.template, e.hasTemplate = tmpl, true
	default:
		c.fail(e.ref, ErrInvalidMapping, e.line, "one of value or template is required")
	}
}

func (c *compilation) optString(e *rawEntry, ev cue.Value, field string) (string, bool) {
	fv := ev.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false
	}
	s, err := fv.String()
	if err != nil {
		c.fail(e.ref+"."+field, ErrInvalidAttribute, fv.Pos().Line(), "must be a string")
		return "", false
	}
	return s, true
}

func (c *compilation) optStrings(e *rawEntry, ev cue.Value, field string) []string {
	fv := ev.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	iter, err := fv.List()
	if err != nil {
		c.fail(e.ref+"."+field, ErrInvalidAttribute, fv.Pos().Line(), "must be a list of strings")
		return nil
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			c.fail(e.ref+"."+field, ErrInvalidAttribute, fv.Pos().Line(), "must be a list of strings")
			return nil
		}
		out = append(out, s)
	}
	return out
}

func (c *compilation) optStringMap(e *rawEntry, ev cue.Value, field string) map[string]string {
	fv := ev.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	iter, err := fv.Fields()
	if err != nil {
		c.fail(e.ref+"."+field, ErrInvalidAttribute, fv.Pos().Line(), "must be a struct of strings")
		return nil
	}
	out := make(map[string]string)
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			c.fail(e.ref+"."+field+"."+iter.Label(), ErrInvalidAttribute, fv.Pos().Line(), "must be a string")
			continue
		}
		out[iter.Label()] = s
	}
	return out
}

// build constructs the definition for e. Its dependencies are already
// built, or failed and were reported.
func (c *compilation) build(e *rawEntry) {
	if e == nil || e.invalid {
		return
	}
	for _, dep := range e.deps() {
		if _, ok := c.built[dep]; !ok {
			if _, declared := c.raw[dep]; !declared {
				c.fail(e.ref, ErrDanglingRef, e.line, "%q names no catalog entry", dep)
			}
			return
		}
	}
	if e.configured() {
		c.buildConfigured(e)
		return
	}

	var s schema.ConfigSchema
	if e.hasConfig {
		cs, err := schema.FromValue(c.rt, e.config)
		if err != nil {
			c.fail(e.ref+".config", ErrInvalidSchema, e.line, "%v", err)
			return
		}
		s = cs
	}
	spec := definition.Spec{
		Name:              e.key,
		Description:       e.description,
		Schema:            s,
		RequiredResources: e.requiredRes,
		Tags:              e.tags,
	}

	var (
		def definition.Configurable
		err error
	)
	switch e.kind {
	case definition.KindResource:
		def = definition.NewResource(spec)
	case definition.KindLogger:
		def = definition.NewLogger(spec)
	case definition.KindExecutor:
		def, err = definition.NewExecutor(spec)
	case definition.KindOp:
		def, err = definition.NewOp(spec)
	case definition.KindGraph:
		def, err = c.buildGraph(e, spec)
	}
	if err != nil {
		c.fail(e.ref, ErrInvalidNode, e.line, "%v", err)
		return
	}
	if def == nil {
		return
	}
	c.built[e.ref] = &Entry{Ref: e.ref, Key: e.key, Kind: e.kind, Line: e.line, Def: def}
}

func (c *compilation) buildGraph(e *rawEntry, spec definition.Spec) (definition.Configurable, error) {
	nodes := make([]*definition.OpDefinition, 0, len(e.nodes))
	for _, ref := range e.nodes {
		op, ok := c.built[ref].Def.(*definition.OpDefinition)
		if !ok {
			c.fail(e.ref+".nodes", ErrInvalidNode, e.line, "%q is a %s, not an op", ref, c.built[ref].Kind)
			return nil, nil
		}
		nodes = append(nodes, op)
	}
	g, err := definition.NewGraph(spec, nodes...)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (c *compilation) buildConfigured(e *rawEntry) {
	target := c.built[e.of]

	var outer cue.Value
	hasOuter := false
	if e.hasSchema {
		outer, hasOuter = e.schema, true
	} else if e.hasTemplate {
		c.rt.Do(func(*cue.Context) {
			outer = e.template.LookupPath(cue.ParsePath("input"))
		})
		hasOuter = true
	}

	var opts []definition.Option
	if hasOuter {
		s, err := schema.FromValue(c.rt, outer)
		if err != nil {
			c.fail(e.ref+".schema", ErrInvalidSchema, e.line, "%v", err)
			return
		}
		opts = append(opts, definition.WithSchema(s))
	}
	if e.name != "" {
		opts = append(opts, definition.WithName(e.name))
	}
	if e.hasDescription {
		opts = append(opts, definition.WithDescription(e.description))
	}

	var m definition.Mapping
	if e.hasTemplate {
		m = definition.NamedFunc(e.key, templateMapping(c.rt, e.ref, e.template))
	} else {
		m = definition.Value(e.value)
		if e.name == "" {
			opts = append(opts, definition.WithName(e.key))
		}
	}

	def, err := definition.ConfigureAny(target.Def, m, opts...)
	if err != nil {
		c.fail(e.ref, ErrInvalidMapping, e.line, "%v", err)
		return
	}
	c.built[e.ref] = &Entry{Ref: e.ref, Key: e.key, Kind: def.Kind(), Of: e.of, Line: e.line, Def: def}
}

// templateMapping evaluates a CUE template: the validated config fills
// input, and the concrete output becomes the mapped config.
func templateMapping(rt *schema.Runtime, ref string, tmpl cue.Value) definition.MappingFunc {
	return func(cfg ir.Value) (ir.Value, error) {
		var (
			out ir.Value
			err error
		)
		rt.Do(func(ctx *cue.Context) {
			filled := tmpl.FillPath(cue.ParsePath("input"), schema.Encode(ctx, cfg))
			outVal := filled.LookupPath(cue.ParsePath("output"))
			if verr := outVal.Validate(cue.Concrete(true)); verr != nil {
				err = fmt.Errorf("template %s: %w", ref, formatCUEError(verr))
				return
			}
			out, err = schema.ToValue(outVal)
		})
		return out, err
	}
}

// splitRef parses "<section>.<key>".
func splitRef(ref string) (section, key string, err error) {
	section, key, ok := strings.Cut(ref, ".")
	if !ok || section == "" || key == "" {
		return "", "", fmt.Errorf("invalid reference %q (want <section>.<key>)", ref)
	}
	if section != SectionConfigured {
		if _, err := definition.ParseKind(section); err != nil {
			return "", "", fmt.Errorf("invalid reference %q: %w", ref, err)
		}
	}
	return section, key, nil
}
