// Package registry implements named symbol lookup: variables,
// functions, struct/enum type definitions, builtins and effect values,
// keyed by (name, compile_suffix, effect_suffix) with lexically-nested
// scopes where the innermost binding wins. A Table holds a store map
// plus an outer pointer and lookups walk outward.
package registry

import (
	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// Kind is the entity kind a Symbol names: variable, function, type,
// builtin intrinsic, or effect value.
type Kind int

const (
	VariableKind Kind = iota
	FunctionKind
	TypeKind
	BuiltinIntrinsicKind
	EffectValueKind
)

func (k Kind) String() string {
	switch k {
	case VariableKind:
		return "variable"
	case FunctionKind:
		return "function"
	case TypeKind:
		return "type"
	case BuiltinIntrinsicKind:
		return "builtin"
	case EffectValueKind:
		return "effect-value"
	default:
		return "?"
	}
}

// ScopeKind distinguishes the prelude, module, function, and block
// scope levels.
type ScopeKind int

const (
	ScopePrelude ScopeKind = iota
	ScopeModule
	ScopeFunction
	ScopeBlock
)

// Symbol is one entry in a Table, addressed by its
// (name, compile_suffix, effect_suffix) triple.
type Symbol struct {
	Name          string
	CompileSuffix string
	EffectSuffix  string
	Kind          Kind
	Type          types.Type
	IsConstant    bool
	DefinitionNode ast.Node
	IsLinear      bool // true if Type transitively contains a linear marker
}

// key builds the composite lookup key for a symbol entry.
func key(name, compileSuffix, effectSuffix string) string {
	return name + "\x00" + compileSuffix + "\x00" + effectSuffix
}

// Table is one lexical scope level. Scopes nest via outer; the
// innermost binding wins.
type Table struct {
	outer     *Table
	kind      ScopeKind
	store     map[string]Symbol
	funcTypes map[string]types.Func // function symbols, indexed by bare name for convenience
}

// NewPrelude creates the root scope holding built-in symbols.
func NewPrelude() *Table {
	return &Table{kind: ScopePrelude, store: make(map[string]Symbol), funcTypes: make(map[string]types.Func)}
}

// NewEnclosed creates a new scope nested inside outer.
func NewEnclosed(outer *Table, kind ScopeKind) *Table {
	return &Table{outer: outer, kind: kind, store: make(map[string]Symbol), funcTypes: make(map[string]types.Func)}
}

func (t *Table) Outer() *Table    { return t.outer }
func (t *Table) Kind() ScopeKind  { return t.kind }

// Define installs sym in this scope, keyed by its (Name, CompileSuffix,
// EffectSuffix) triple; the base variant is simply the triple with both
// suffixes empty, so plain lookups of an unsuffixed name resolve to it.
func (t *Table) Define(sym Symbol) {
	t.store[key(sym.Name, sym.CompileSuffix, sym.EffectSuffix)] = sym
	if sym.Kind == FunctionKind {
		if ft, ok := sym.Type.(types.Func); ok {
			t.funcTypes[sym.Name] = ft
		}
	}
}

// Lookup resolves name under the given compile/effect suffixes, falling
// back to the bare (unsuffixed) entry in the same scope before walking
// outward — this is what lets a caller under an unrelated effect_suffix
// still see the base definition of a symbol that has variants.
func (t *Table) Lookup(name, compileSuffix, effectSuffix string) (Symbol, bool) {
	for s := t; s != nil; s = s.outer {
		if sym, ok := s.store[key(name, compileSuffix, effectSuffix)]; ok {
			return sym, true
		}
		if sym, ok := s.store[key(name, compileSuffix, "")]; ok && effectSuffix != "" {
			return sym, true
		}
		if sym, ok := s.store[key(name, "", "")]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// LookupLocal looks up the bare (unsuffixed) name only in this scope (no
// outward walk).
func (t *Table) LookupLocal(name string) (Symbol, bool) {
	sym, ok := t.store[key(name, "", "")]
	return sym, ok
}

// DefineVariable is a convenience for the common case (plain variable,
// no suffixes).
func (t *Table) DefineVariable(name string, ty types.Type, isConstant bool) {
	t.Define(Symbol{Name: name, Kind: VariableKind, Type: ty, IsConstant: isConstant, IsLinear: types.ContainsLinear(ty)})
}

// DefineFunction is a convenience for registering a compiled function
// under a given (compile_suffix, effect_suffix) variant.
func (t *Table) DefineFunction(name, compileSuffix, effectSuffix string, ty types.Func, node ast.Node) {
	t.Define(Symbol{
		Name: name, CompileSuffix: compileSuffix, EffectSuffix: effectSuffix,
		Kind: FunctionKind, Type: ty, DefinitionNode: node,
	})
}

// DefineType registers a named struct/enum/alias type.
func (t *Table) DefineType(name string, ty types.Type) {
	t.Define(Symbol{Name: name, Kind: TypeKind, Type: ty})
}

// LookupType resolves a named type, walking outward.
func (t *Table) LookupType(name string) (types.Type, bool) {
	sym, ok := t.Lookup(name, "", "")
	if !ok || sym.Kind != TypeKind {
		return nil, false
	}
	return sym.Type, true
}

// FuncType returns the declared type of the function named name in
// scope, searching outward.
func (t *Table) FuncType(name string) (types.Func, bool) {
	for s := t; s != nil; s = s.outer {
		if ft, ok := s.funcTypes[name]; ok {
			return ft, true
		}
	}
	return types.Func{}, false
}

// Names returns every bare name locally defined in this scope (not
// walking outward).
func (t *Table) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, sym := range t.store {
		if !seen[sym.Name] {
			seen[sym.Name] = true
			names = append(names, sym.Name)
		}
	}
	return names
}
