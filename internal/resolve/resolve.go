package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/configured/internal/definition"
	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/schema"
)

// Violation codes (E300-E399)
const (
	ErrCodeDuplicateName  = "E301" // two plan entries share a name
	ErrCodeUnknownEntry   = "E302" // run config names something not in the plan
	ErrCodeMalformedEntry = "E303" // entry is not {config: ...}
)

// DefaultMaxDepth bounds the configured chain length of one definition.
const DefaultMaxDepth = 64

// ErrChainTooDeep is returned when a chain exceeds the resolver's max depth.
var ErrChainTooDeep = errors.New("configured chain exceeds max depth")

// Resolution is the outcome of resolving a run config against a plan.
type Resolution struct {
	RunID    string
	PlanHash string

	// Config is the resolved run config, in the same shape as the input.
	// Nil when there are violations.
	Config ir.Object

	Violations []schema.Violation
}

// OK reports whether resolution succeeded.
func (r *Resolution) OK() bool {
	return len(r.Violations) == 0
}

// Err returns nil on success, otherwise a *schema.ValidationErrors.
func (r *Resolution) Err() error {
	if r.OK() {
		return nil
	}
	return &schema.ValidationErrors{Violations: slices.Clone(r.Violations)}
}

// Resolver resolves run configs. It is safe for concurrent use when its
// IDGenerator is.
type Resolver struct {
	ids      IDGenerator
	maxDepth int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithIDGenerator sets the run ID source. The default is UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Resolver) { r.ids = g }
}

// WithMaxDepth bounds chain length.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) { r.maxDepth = n }
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{ids: UUIDv7Generator{}, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve validates raw against every definition in plan.
//
// Violations are data in the returned Resolution. The error is non-nil only
// for an invalid plan, a failing or too-deep mapping chain, or a cancelled
// context.
func (r *Resolver) Resolve(ctx context.Context, plan Plan, raw ir.Object) (*Resolution, error) {
	if err := plan.Check(); err != nil {
		return nil, err
	}
	planHash, err := plan.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash plan: %w", err)
	}

	res := &Resolution{RunID: r.ids.Generate(), PlanHash: planHash}
	slog.Debug("resolving run config",
		"run_id", res.RunID,
		"plan_hash", planHash,
	)

	s := &session{r: r, ctx: ctx, out: ir.Object{}}
	if raw == nil {
		raw = ir.Object{}
	}

	s.keyed(SectionResources, plan.Resources, raw[SectionResources])
	s.keyed(SectionLoggers, plan.Loggers, raw[SectionLoggers])
	s.execution(plan.Executor, raw[SectionExecution])
	s.ops(plan.Ops, raw[SectionOps])

	known := []string{SectionResources, SectionLoggers, SectionExecution, SectionOps}
	for _, key := range raw.SortedKeys() {
		if !slices.Contains(known, key) {
			s.fail([]string{key}, ErrCodeUnknownEntry, "unknown run config section (want one of %s)", strings.Join(known, ", "))
		}
	}

	if s.err != nil {
		slog.Error("resolution failed",
			"run_id", res.RunID,
			"error", s.err,
		)
		return nil, s.err
	}

	res.Violations = s.violations
	if res.OK() {
		res.Config = s.out
		slog.Info("run config resolved",
			"run_id", res.RunID,
			"plan_hash", planHash,
		)
	} else {
		slog.Warn("run config invalid",
			"run_id", res.RunID,
			"violations", len(res.Violations),
		)
	}
	return res, nil
}

// session accumulates one Resolve call. After the first error every
// further step is skipped.
type session struct {
	r          *Resolver
	ctx        context.Context
	out        ir.Object
	violations []schema.Violation
	err        error
}

func (s *session) fail(path []string, code, format string, args ...any) {
	s.violations = append(s.violations, schema.Violation{
		Path:    slices.Clone(path),
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

// section returns the raw section as an object, reporting a violation when
// it has another shape.
func (s *session) section(name string, raw ir.Value) (ir.Object, bool) {
	if ir.IsNull(raw) {
		return ir.Object{}, true
	}
	obj, ok := raw.(ir.Object)
	if !ok {
		s.fail([]string{name}, schema.ErrCodeTypeMismatch, "expected struct, got %s", ir.KindOf(raw))
		return nil, false
	}
	return obj, true
}

func (s *session) keyed(section string, defs map[string]definition.Configurable, raw ir.Value) {
	entries, ok := s.section(section, raw)
	if !ok {
		return
	}
	resolved := ir.Object{}
	for _, key := range sortedKeys(defs) {
		if v, ok := s.entry([]string{section, key}, defs[key], entries[key]); ok {
			resolved[key] = ir.Object{"config": v}
		}
	}
	for _, key := range entries.SortedKeys() {
		if _, declared := defs[key]; !declared {
			s.fail([]string{section, key}, ErrCodeUnknownEntry, "no %s named %q in plan", strings.TrimSuffix(section, "s"), key)
		}
	}
	if len(resolved) > 0 {
		s.out[section] = resolved
	}
}

func (s *session) execution(exec definition.Configurable, raw ir.Value) {
	entries, ok := s.section(SectionExecution, raw)
	if !ok {
		return
	}
	if exec == nil {
		for _, key := range entries.SortedKeys() {
			s.fail([]string{SectionExecution, key}, ErrCodeUnknownEntry, "plan has no executor")
		}
		return
	}
	name := exec.Name()
	if v, ok := s.entry([]string{SectionExecution, name}, exec, entries[name]); ok {
		s.out[SectionExecution] = ir.Object{name: ir.Object{"config": v}}
	}
	for _, key := range entries.SortedKeys() {
		if key != name {
			s.fail([]string{SectionExecution, key}, ErrCodeUnknownEntry, "plan executor is %q", name)
		}
	}
}

func (s *session) ops(defs []definition.Configurable, raw ir.Value) {
	entries, ok := s.section(SectionOps, raw)
	if !ok {
		return
	}
	byName := make(map[string]definition.Configurable, len(defs))
	resolved := ir.Object{}
	for _, def := range defs {
		name := def.Name()
		path := []string{SectionOps, name}
		if _, dup := byName[name]; dup {
			s.fail(path, ErrCodeDuplicateName, "%s name %q is used more than once", def.Kind(), name)
			continue
		}
		byName[name] = def
		if v, ok := s.entry(path, def, entries[name]); ok {
			resolved[name] = ir.Object{"config": v}
		}
	}
	for _, key := range entries.SortedKeys() {
		if _, declared := byName[key]; !declared {
			s.fail([]string{SectionOps, key}, ErrCodeUnknownEntry, "no op or graph named %q in plan", key)
		}
	}
	if len(resolved) > 0 {
		s.out[SectionOps] = resolved
	}
}

// entry unwraps {config: ...} and resolves it against def.
func (s *session) entry(path []string, def definition.Configurable, raw ir.Value) (ir.Value, bool) {
	if s.err != nil {
		return nil, false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return nil, false
	}

	var cfg ir.Value = ir.Null{}
	switch e := raw.(type) {
	case nil, ir.Null:
	case ir.Object:
		for _, key := range e.SortedKeys() {
			if key != "config" {
				s.fail(append(slices.Clone(path), key), ErrCodeMalformedEntry, "unexpected key (entries hold only \"config\")")
			}
		}
		if v, ok := e["config"]; ok {
			cfg = v
		}
	default:
		s.fail(path, ErrCodeMalformedEntry, "expected {config: ...}, got %s", ir.KindOf(raw))
		return nil, false
	}

	v, violations, err := s.r.chain(def, cfg)
	if err != nil {
		s.err = fmt.Errorf("resolve %s: %w", strings.Join(path, "."), err)
		return nil, false
	}
	if len(violations) > 0 {
		prefix := append(slices.Clone(path), "config")
		s.violations = append(s.violations, schema.Failure(violations...).Rebase(prefix...).Violations()...)
		return nil, false
	}
	return v, true
}

// chain resolves cfg through every layer of def.
func (r *Resolver) chain(def definition.Configurable, cfg ir.Value) (ir.Value, []schema.Violation, error) {
	cur := def
	for depth := 0; ; depth++ {
		if depth >= r.maxDepth {
			return nil, nil, fmt.Errorf("%w (%d)", ErrChainTooDeep, r.maxDepth)
		}

		if !definition.IsConfigured(cur) {
			res, err := resolveAgainst(cur.ConfigSchema(), cfg)
			if err != nil {
				return nil, nil, err
			}
			if !res.OK() {
				return nil, annotate(res.Violations(), def, depth), nil
			}
			slog.Debug("layer resolved",
				"definition", definition.Label(cur),
				"depth", depth,
				"configured", false,
			)
			return res.Value(), nil, nil
		}

		res, err := cur.ApplyConfigMapping(cfg)
		if err != nil {
			return nil, nil, err
		}
		if !res.OK() {
			return nil, annotate(res.Violations(), def, depth), nil
		}
		slog.Debug("layer resolved",
			"definition", definition.Label(cur),
			"depth", depth,
			"configured", true,
		)
		cfg = res.Value()
		cur = cur.ConfigSchema().(*definition.ConfiguredSchema).Parent()
	}
}

// resolveAgainst validates cfg against the schema of an unconfigured
// definition. A definition without a schema accepts only empty config.
func resolveAgainst(s schema.ConfigSchema, cfg ir.Value) (schema.Result, error) {
	if s != nil {
		return s.Resolve(cfg)
	}
	if obj, ok := cfg.(ir.Object); ir.IsNull(cfg) || (ok && len(obj) == 0) {
		return schema.Success(ir.Null{}), nil
	}
	return schema.Failure(schema.Violation{
		Code:    schema.ErrCodeNotAccepted,
		Message: "configuration is not accepted here",
	}), nil
}

// annotate marks violations found below the outermost layer: they come from
// a mapping's output, not from user input.
func annotate(vs []schema.Violation, def definition.Configurable, depth int) []schema.Violation {
	if depth == 0 {
		return vs
	}
	for i := range vs {
		vs[i].Message = fmt.Sprintf("%s (in config produced by %d mapping layer(s) of %s)", vs[i].Message, depth, definition.Label(def))
	}
	return vs
}
