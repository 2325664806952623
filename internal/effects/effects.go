// Package effects implements the three-tier effect resolution system
// (pin / scoped override stack / module default), its transitive
// effect_suffix propagation through the call graph, and the
// import-interception cache that gives each (module, name,
// effect_suffix) triple exactly one compiled variant. Overrides form an
// explicit LIFO stack rather than lexical scopes: frames are pushed and
// popped only at `with effect(...)` boundaries, and an unbalanced pop
// is a programmer error, not a user-reachable diagnostic.
package effects

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/token"
)

// Binding is one effect implementation: a reference to the compiled
// symbol or literal constant that backs an `effect.name` resolution.
type Binding struct {
	Impl any // *ast.Identifier, a literal constant, or a resolved symbol name
}

// override is one LIFO stack entry: the set of effect names it rebinds,
// plus the suffix that names the resulting variant.
type override struct {
	bindings map[string]Binding
	suffix   string
}

// Env is one driver session's effect environment: the pin and default
// layers are flat maps, one binding per effect name; the override layer
// is an explicit stack, pushed and popped only at `with effect(...)`
// scope boundaries.
type Env struct {
	pins     map[string]Binding
	defaults map[string]Binding
	stack    []override
}

// NewEnv returns an empty effect environment for one driver session.
func NewEnv() *Env {
	return &Env{pins: make(map[string]Binding), defaults: make(map[string]Binding)}
}

// Default installs name's default binding, overwriting any previous
// default — unlike Pin, a repeated default() carries no diagnostic.
func (e *Env) Default(name string, impl Binding) {
	e.defaults[name] = impl
}

// Pin installs name's pin binding. A pin is immutable: a second Pin of
// the same name is EffectRepin and the original binding survives.
func (e *Env) Pin(name string, impl Binding, tok token.Token, bag *diagnostics.Bag) {
	if _, exists := e.pins[name]; exists {
		bag.Add(diagnostics.New(diagnostics.EffectRepin, tok, "effect %q is already pinned", name))
		return
	}
	e.pins[name] = impl
}

// Push installs a new override-stack frame. A frame that rebinds any
// effect must supply a suffix; an empty bindings map with a nonempty
// suffix is valid and simply names a variant without rebinding
// anything.
func (e *Env) Push(bindings map[string]Binding, suffix string, tok token.Token, bag *diagnostics.Bag) {
	if len(bindings) > 0 && suffix == "" {
		bag.Add(diagnostics.New(diagnostics.EffectSuffixRequired, tok,
			"scoped effect override rebinds %d effect(s) but supplies no suffix", len(bindings)))
	}
	e.stack = append(e.stack, override{bindings: bindings, suffix: suffix})
}

// Pop removes the topmost override frame. An empty stack on Pop panics
// rather than silently no-oping: it indicates a bug in the driver's
// scope-exit bookkeeping, not a user-reachable diagnostic.
func (e *Env) Pop() {
	if len(e.stack) == 0 {
		panic("effects: Pop called on an empty override stack")
	}
	e.stack = e.stack[:len(e.stack)-1]
}

// Resolve looks up name under the priority order: pin > topmost
// override that binds it > default > EffectUnbound.
func (e *Env) Resolve(name string, tok token.Token, bag *diagnostics.Bag) (Binding, bool) {
	if b, ok := e.pins[name]; ok {
		return b, true
	}
	for i := len(e.stack) - 1; i >= 0; i-- {
		if b, ok := e.stack[i].bindings[name]; ok {
			return b, true
		}
	}
	if b, ok := e.defaults[name]; ok {
		return b, true
	}
	bag.Add(diagnostics.New(diagnostics.EffectUnbound, tok, "effect %q has no pin, override, or default", name))
	return Binding{}, false
}

// ActiveSuffix returns the suffix that names the variant a function
// compiled right now under this environment belongs to: the
// concatenation, in push order, of every override frame's nonempty
// suffix currently on the stack, joined with "_" — the `effect_suffix`
// component that keys compiled variants.
func (e *Env) ActiveSuffix() string {
	var parts []string
	for _, o := range e.stack {
		if o.suffix != "" {
			parts = append(parts, o.suffix)
		}
	}
	return strings.Join(parts, "_")
}

// OverriddenNames returns the set of effect names bound anywhere on the
// current override stack, used by the propagation pass to test whether a
// callee's transitive effect-read set intersects the active override
// set — the condition under which a call is redirected to the callee's
// suffixed variant.
func (e *Env) OverriddenNames() map[string]bool {
	names := make(map[string]bool)
	for _, o := range e.stack {
		for name := range o.bindings {
			names[name] = true
		}
	}
	return names
}

// ReadSet is the set of effect names a function reads, directly or
// transitively through its callees — computed once per function by the
// driver and consulted by Propagator to decide redirection.
type ReadSet map[string]bool

// Propagator computes, for a call graph, which functions must be
// recompiled under which effect_suffix when a caller is compiled inside
// a scoped override.
type Propagator struct {
	// reads maps a function's base name to its own directly-read effect
	// names, as collected during semantic analysis of its body.
	reads map[string]ReadSet
	// calls maps a function's base name to the base names of functions it
	// calls, used to compute the transitive closure.
	calls map[string][]string

	closure map[string]ReadSet // memoized transitive closure
}

// NewPropagator returns an empty Propagator for one driver session.
func NewPropagator() *Propagator {
	return &Propagator{
		reads:   make(map[string]ReadSet),
		calls:   make(map[string][]string),
		closure: make(map[string]ReadSet),
	}
}

// RecordReads registers the effect names fn directly reads via
// `effect.X...` references in its own body (excluding callees).
func (p *Propagator) RecordReads(fn string, names ...string) {
	set := p.reads[fn]
	if set == nil {
		set = make(ReadSet)
		p.reads[fn] = set
	}
	for _, n := range names {
		set[n] = true
	}
}

// RecordCall registers that fn calls callee, contributing to fn's
// transitive effect-read set.
func (p *Propagator) RecordCall(fn, callee string) {
	p.calls[fn] = append(p.calls[fn], callee)
}

// TransitiveReads returns the full set of effect names fn reads,
// directly or through any callee. A cycle in the call graph is an
// error: circular compilation dependencies cannot be ordered.
func (p *Propagator) TransitiveReads(fn string) (ReadSet, error) {
	if cached, ok := p.closure[fn]; ok {
		return cached, nil
	}
	visiting := make(map[string]bool)
	set, err := p.walk(fn, visiting)
	if err != nil {
		return nil, err
	}
	p.closure[fn] = set
	return set, nil
}

func (p *Propagator) walk(fn string, visiting map[string]bool) (ReadSet, error) {
	if visiting[fn] {
		return nil, fmt.Errorf("compile cycle through %q", fn)
	}
	visiting[fn] = true
	defer delete(visiting, fn)

	set := make(ReadSet)
	for name := range p.reads[fn] {
		set[name] = true
	}
	for _, callee := range p.calls[fn] {
		calleeSet, err := p.walk(callee, visiting)
		if err != nil {
			return nil, err
		}
		for name := range calleeSet {
			set[name] = true
		}
	}
	return set, nil
}

// NeedsVariant reports whether fn, when reached from a call site compiled
// under the given override environment, must be redirected to an
// effect-suffixed variant rather than its base compilation.
func (p *Propagator) NeedsVariant(fn string, env *Env) (bool, error) {
	reads, err := p.TransitiveReads(fn)
	if err != nil {
		return false, err
	}
	overridden := env.OverriddenNames()
	for name := range overridden {
		if reads[name] {
			return true, nil
		}
	}
	return false, nil
}

// variantKey is the cache key for ImportCache: (module, name, effect
// suffix).
type variantKey struct {
	module string
	name   string
	suffix string
}

// ImportCache ensures each (module, name, effect_suffix) triple produces
// exactly one compiled variant when an import is intercepted under a
// scoped override.
type ImportCache struct {
	variants map[variantKey]string // -> mangled symbol name
}

// NewImportCache returns an empty cache for one driver session.
func NewImportCache() *ImportCache {
	return &ImportCache{variants: make(map[variantKey]string)}
}

// Intercept returns the mangled symbol name for (module, name, suffix),
// creating it via makeSymbol on first request and memoizing thereafter.
func (c *ImportCache) Intercept(module, name, suffix string, makeSymbol func() string) string {
	key := variantKey{module: module, name: name, suffix: suffix}
	if sym, ok := c.variants[key]; ok {
		return sym
	}
	sym := makeSymbol()
	c.variants[key] = sym
	return sym
}

// MangledName builds the `{original_name}_{compile_suffix}_{effect_suffix}`
// output symbol, omitting empty components.
func MangledName(original, compileSuffix, effectSuffix string) string {
	parts := []string{original}
	if compileSuffix != "" {
		parts = append(parts, compileSuffix)
	}
	if effectSuffix != "" {
		parts = append(parts, effectSuffix)
	}
	return strings.Join(parts, "_")
}

// SortedNames is a small helper used by diagnostics/tests that need
// deterministic iteration over an effect-name set.
func SortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
