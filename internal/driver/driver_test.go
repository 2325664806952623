package driver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/irsink"
	"github.com/pythoc-lang/pythoc/internal/registry"
	"github.com/pythoc-lang/pythoc/internal/token"
)

func ident(name string) *ast.Identifier { return &ast.Identifier{Tok: token.Token{Lexeme: name}, Value: name} }

func compileFn(name string) *ast.FunctionStatement {
	return &ast.FunctionStatement{
		Name:       ident(name),
		Decorators: []ast.Decorator{{Name: "compile"}},
		Body:       &ast.BlockStatement{},
	}
}

func newTestSession() (*Session, *irsink.NullSink) {
	sink := &irsink.NullSink{}
	prelude := registry.NewEnclosed(nil, registry.ScopeModule)
	return NewSession(prelude, sink), sink
}

func TestSession_CompileFunction_EmitsMangledSymbol(t *testing.T) {
	s, sink := newTestSession()
	fn := compileFn("add")
	scope := registry.NewEnclosed(s.Prelude, registry.ScopeModule)

	err := s.CompileFunction(fn, scope, "")
	require.NoError(t, err)
	require.Len(t, sink.Emitted, 1)
	assert.Equal(t, "add", sink.Emitted[0])
}

// The same (name, compile_suffix, effect_suffix) variant is never
// compiled (and so never emitted) twice.
func TestSession_CompileFunction_SameVariantCompiledOnce(t *testing.T) {
	s, sink := newTestSession()
	fn := compileFn("add")
	scope := registry.NewEnclosed(s.Prelude, registry.ScopeModule)

	require.NoError(t, s.CompileFunction(fn, scope, ""))
	require.NoError(t, s.CompileFunction(fn, scope, ""))

	assert.Len(t, sink.Emitted, 1, "a second compile of the identical variant key must be a no-op")
}

func TestSession_CompileFunction_DistinctEffectSuffixIsANewVariant(t *testing.T) {
	s, sink := newTestSession()
	fn := compileFn("add")
	scope := registry.NewEnclosed(s.Prelude, registry.ScopeModule)

	require.NoError(t, s.CompileFunction(fn, scope, ""))
	require.NoError(t, s.CompileFunction(fn, scope, "fixed"))

	assert.Len(t, sink.Emitted, 2, "a different effect_suffix is a distinct variant and must be compiled and emitted separately")
}

func TestSession_CompileFunction_ExternFunctionsAreNeverEmitted(t *testing.T) {
	s, sink := newTestSession()
	fn := &ast.FunctionStatement{
		Name:       ident("libc_write"),
		Decorators: []ast.Decorator{{Name: "extern"}},
	}
	scope := registry.NewEnclosed(s.Prelude, registry.ScopeModule)

	err := s.CompileFunction(fn, scope, "")
	require.NoError(t, err)
	assert.Empty(t, sink.Emitted)
	assert.True(t, s.compiled[VariantKey{Name: "libc_write"}])
}

func TestSession_CompileFunction_DetectsCompileCycle(t *testing.T) {
	s, _ := newTestSession()
	fn := compileFn("recurse")
	scope := registry.NewEnclosed(s.Prelude, registry.ScopeModule)

	key := VariantKey{Name: "recurse"}
	s.compiling[key] = true

	err := s.CompileFunction(fn, scope, "")
	require.Error(t, err)
	require.True(t, s.Bag.HasErrors())
}

func TestSession_CompileAll_RegistersBeforeCompiling(t *testing.T) {
	s, sink := newTestSession()

	caller := compileFn("caller")
	caller.Body = &ast.BlockStatement{Statements: []ast.Statement{
		&ast.ExpressionStatement{Expr: &ast.CallExpression{Callee: ident("callee"), Args: nil}},
	}}
	callee := &ast.FunctionStatement{Name: ident("callee"), Body: &ast.BlockStatement{}}

	// Callee appears after caller in source order; CompileAll's two-pass
	// registration must make the forward reference resolvable regardless.
	units := []Unit{{Program: &ast.Program{Statements: []ast.Statement{caller, callee}}}}

	err := s.CompileAll(units)
	require.NoError(t, err)
	assert.Equal(t, []string{"caller"}, sink.Emitted, "only compile-decorated functions are compiled at the top level")
}

// scenarioArchive is the txtar fixture format used for multi-unit
// driver scenarios: one file named "units" lists one compile-decorated
// function name per line; the remaining files are reserved for per-unit
// source text once a host parser is wired in.
const scenarioArchive = `
-- units --
alpha
beta
`

func TestCompileAll_TxtarFixture_CompilesEveryListedUnit(t *testing.T) {
	arc := txtar.Parse([]byte(scenarioArchive))
	require.Len(t, arc.Files, 1)
	require.Equal(t, "units", arc.Files[0].Name)

	names := strings.Fields(string(arc.Files[0].Data))
	require.Equal(t, []string{"alpha", "beta"}, names)

	s, sink := newTestSession()
	var stmts []ast.Statement
	for _, name := range names {
		stmts = append(stmts, compileFn(name))
	}
	units := []Unit{{Program: &ast.Program{Statements: stmts}}}

	err := s.CompileAll(units)
	require.NoError(t, err)
	assert.ElementsMatch(t, names, sink.Emitted)
}

// hasCallTo reports whether any statement in stmts (at any nesting
// depth) still calls name, either as a bare expression statement or as
// a for-loop iterable — the two shapes the inline pass must have fully
// lowered away.
func hasCallTo(stmts []ast.Statement, name string) bool {
	callsName := func(e ast.Expression) bool {
		call, ok := e.(*ast.CallExpression)
		if !ok {
			return false
		}
		id, ok := call.Callee.(*ast.Identifier)
		return ok && id.Value == name
	}
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.ExpressionStatement:
			if callsName(s.Expr) {
				return true
			}
		case *ast.ForStatement:
			if callsName(s.Iterable) || hasCallTo(s.Body.Statements, name) {
				return true
			}
		case *ast.WhileStatement:
			if hasCallTo(s.Body.Statements, name) {
				return true
			}
		case *ast.IfStatement:
			if hasCallTo(s.Then.Statements, name) {
				return true
			}
		case *ast.BlockStatement:
			if hasCallTo(s.Statements, name) {
				return true
			}
		case *ast.LabelStatement:
			if hasCallTo(s.Body.Statements, name) {
				return true
			}
		}
	}
	return false
}

// A generator whose body iterates another generator must be lowered all
// the way down: after compilation the caller's body contains no for-loop
// over a generator call at any depth.
func TestCompileAll_NestedGeneratorFullyInlined(t *testing.T) {
	s, sink := newTestSession()

	inner := &ast.FunctionStatement{
		Name: ident("pairs"),
		Body: &ast.BlockStatement{Statements: []ast.Statement{
			&ast.YieldStatement{Values: []ast.Expression{ident("base")}},
		}},
	}
	outer := &ast.FunctionStatement{
		Name: ident("doubled"),
		Body: &ast.BlockStatement{Statements: []ast.Statement{
			&ast.ForStatement{
				LoopVar:  ident("v"),
				Iterable: &ast.CallExpression{Callee: ident("pairs")},
				Body: &ast.BlockStatement{Statements: []ast.Statement{
					&ast.YieldStatement{Values: []ast.Expression{ident("v")}},
				}},
			},
		}},
	}
	caller := compileFn("caller")
	caller.Body = &ast.BlockStatement{Statements: []ast.Statement{
		&ast.ForStatement{
			LoopVar:  ident("x"),
			Iterable: &ast.CallExpression{Callee: ident("doubled")},
			Body:     &ast.BlockStatement{Statements: []ast.Statement{&ast.ExpressionStatement{Expr: ident("x")}}},
		},
	}}

	units := []Unit{{Program: &ast.Program{Statements: []ast.Statement{caller, outer, inner}}}}
	require.NoError(t, s.CompileAll(units))
	assert.Equal(t, []string{"caller"}, sink.Emitted)

	assert.False(t, hasCallTo(caller.Body.Statements, "doubled"), "the outer generator call must be spliced away")
	assert.False(t, hasCallTo(caller.Body.Statements, "pairs"), "the generator nested inside the outer generator's body must be spliced away too")
}

// An inline macro whose body calls another inline macro must likewise
// leave no macro call behind in the final body.
func TestCompileAll_NestedMacroFullyInlined(t *testing.T) {
	s, sink := newTestSession()

	inner := &ast.FunctionStatement{
		Name:       ident("poke"),
		Decorators: []ast.Decorator{{Name: "inline"}},
		Body: &ast.BlockStatement{Statements: []ast.Statement{
			&ast.ExpressionStatement{Expr: ident("effect_site")},
		}},
	}
	outer := &ast.FunctionStatement{
		Name:       ident("poke_twice"),
		Decorators: []ast.Decorator{{Name: "inline"}},
		Body: &ast.BlockStatement{Statements: []ast.Statement{
			&ast.ExpressionStatement{Expr: &ast.CallExpression{Callee: ident("poke")}},
			&ast.ExpressionStatement{Expr: &ast.CallExpression{Callee: ident("poke")}},
		}},
	}
	caller := compileFn("caller")
	caller.Body = &ast.BlockStatement{Statements: []ast.Statement{
		&ast.ExpressionStatement{Expr: &ast.CallExpression{Callee: ident("poke_twice")}},
	}}

	units := []Unit{{Program: &ast.Program{Statements: []ast.Statement{caller, outer, inner}}}}
	require.NoError(t, s.CompileAll(units))
	assert.Equal(t, []string{"caller"}, sink.Emitted)

	assert.False(t, hasCallTo(caller.Body.Statements, "poke_twice"))
	assert.False(t, hasCallTo(caller.Body.Statements, "poke"))
}

// A macro that inlines itself — directly or through a chain of inlined
// bodies — can never finish expanding and must be rejected.
func TestCompileAll_SelfRecursiveInlineRejected(t *testing.T) {
	s, _ := newTestSession()

	loop := &ast.FunctionStatement{
		Name:       ident("forever"),
		Decorators: []ast.Decorator{{Name: "inline"}},
		Body: &ast.BlockStatement{Statements: []ast.Statement{
			&ast.ExpressionStatement{Expr: &ast.CallExpression{Callee: ident("forever")}},
		}},
	}
	caller := compileFn("caller")
	caller.Body = &ast.BlockStatement{Statements: []ast.Statement{
		&ast.ExpressionStatement{Expr: &ast.CallExpression{Callee: ident("forever")}},
	}}

	units := []Unit{{Program: &ast.Program{Statements: []ast.Statement{caller, loop}}}}
	require.Error(t, s.CompileAll(units))

	var kinds []diagnostics.Kind
	for _, d := range s.Bag.Items() {
		kinds = append(kinds, d.Kind)
	}
	assert.Contains(t, kinds, diagnostics.RecursiveInline)
}

func TestVariantKey_String(t *testing.T) {
	k := VariantKey{Name: "f", CompileSuffix: "fast", EffectSuffix: "rng_fixed"}
	assert.Equal(t, "f/fast/rng_fixed", k.String())
}
