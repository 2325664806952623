// Package scopeanalyzer classifies every identifier referenced in a
// callee's AST as parameter, local, or capture before the inline kernel
// rewrites anything. The classifications are immutable inputs to the
// rewriter, computed up front and never interleaved with rewriting —
// this package's only job is to produce that classification set.
package scopeanalyzer

import "github.com/pythoc-lang/pythoc/internal/ast"

// Class is the bucket an identifier falls into relative to a callee body
// being prepared for inlining.
type Class int

const (
	Param Class = iota
	Local
	Capture
)

// Classification is the immutable result scope analysis hands to the
// inline kernel: the set of parameter names, the set of names declared
// local to the callee body, and — by exclusion — every other identifier
// reference is a capture.
type Classification struct {
	Params  map[string]bool
	Locals  map[string]bool
}

// ClassOf reports the classification of name.
func (c Classification) ClassOf(name string) Class {
	if c.Params[name] {
		return Param
	}
	if c.Locals[name] {
		return Local
	}
	return Capture
}

// Classify walks a callee function's parameter list and body, collecting
// every name bound by a parameter or a local declaration
// (AssignStatement / ForStatement loop variable / MatchArm bindings).
// Everything else referenced by name is, by construction, a capture from
// the enclosing (caller's) scope — captures are never renamed by the
// inline kernel.
func Classify(fn *ast.FunctionStatement) Classification {
	c := Classification{Params: make(map[string]bool), Locals: make(map[string]bool)}
	for _, p := range fn.Params {
		if p.Name != nil {
			c.Params[p.Name.Value] = true
		}
	}
	if fn.Body != nil {
		collectLocals(fn.Body.Statements, c.Locals)
	}
	return c
}

// collectLocals recurses through a statement list collecting every name
// introduced by a declaration-shaped statement. It does not recurse into
// nested function literals (none exist in this AST) but does recurse into
// every control-flow body, since a local declared inside an `if`/`for`/
// `while`/`match` arm is still local to the *callee*, not a capture.
func collectLocals(stmts []ast.Statement, locals map[string]bool) {
	for _, stmt := range stmts {
		collectLocalsOne(stmt, locals)
	}
}

func collectLocalsOne(stmt ast.Statement, locals map[string]bool) {
	switch s := stmt.(type) {
	case *ast.AssignStatement:
		if id, ok := s.Target.(*ast.Identifier); ok {
			locals[id.Value] = true
		}
	case *ast.BlockStatement:
		collectLocals(s.Statements, locals)
	case *ast.IfStatement:
		collectLocals(s.Then.Statements, locals)
		if s.Else != nil {
			collectLocalsOne(s.Else, locals)
		}
	case *ast.WhileStatement:
		collectLocals(s.Body.Statements, locals)
		if s.Else != nil {
			collectLocals(s.Else.Statements, locals)
		}
	case *ast.ForStatement:
		if s.LoopVar != nil {
			locals[s.LoopVar.Value] = true
		}
		collectLocals(s.Body.Statements, locals)
		if s.Else != nil {
			collectLocals(s.Else.Statements, locals)
		}
	case *ast.MatchStatement:
		for _, arm := range s.Arms {
			collectPatternBindings(arm.Pattern, locals)
			collectLocals(arm.Body.Statements, locals)
		}
	case *ast.LabelStatement:
		collectLocals(s.Body.Statements, locals)
	case *ast.EffectOverrideStatement:
		collectLocals(s.Body.Statements, locals)
	}
}

func collectPatternBindings(p ast.Pattern, locals map[string]bool) {
	switch pat := p.(type) {
	case *ast.BindingPattern:
		locals[pat.Name] = true
	case *ast.OrPattern:
		for _, alt := range pat.Alternatives {
			collectPatternBindings(alt, locals)
		}
	case *ast.StructPattern:
		for _, f := range pat.Fields {
			collectPatternBindings(f.Pattern, locals)
		}
	case *ast.SequencePattern:
		for _, e := range pat.Elements {
			collectPatternBindings(e, locals)
		}
	}
}
