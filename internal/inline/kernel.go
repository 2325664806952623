// Package inline implements the inline kernel: a single
// AST-substitution engine that uniformly covers closure inlining,
// generator inlining, and macro-style expansion by varying only the
// ExitRule. Everything here operates on already-classified identifiers
// (scopeanalyzer.Classification, computed once before any rewriting and
// treated as immutable input) and on a session-wide monotonic Counter
// for rename hygiene, never on randomness.
package inline

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/scopeanalyzer"
	"github.com/pythoc-lang/pythoc/internal/token"
)

// Counter is the monotonic inline-id source. It is a field of the
// owning driver.Session, never a package-level global, so compilation
// stays re-entrant and testable.
type Counter struct{ next uint64 }

// Next returns a fresh inline_id, starting at 1.
func (c *Counter) Next() uint64 {
	c.next++
	return c.next
}

// Op is an immutable record carrying everything the kernel needs to
// splice one call site.
type Op struct {
	InlineID       uint64
	CalleeName     string
	Callee         *ast.FunctionStatement
	Classification scopeanalyzer.Classification
	Args           []ast.Expression
	ExitRule       ExitRule
	CallSite       token.Token
}

// Kernel performs AST substitution for one driver session. An Op's
// callee body must already be fully lowered — the driver pre-expands
// every nested inline/generator call site inside a callee before
// substituting that callee anywhere, so expansion happens
// innermost-first and the kernel only ever splices call-free bodies.
// The visiting set detects and rejects re-entrant inlining of the same
// callee.
type Kernel struct {
	visiting map[string]bool
}

// New creates a Kernel.
func New() *Kernel {
	return &Kernel{visiting: make(map[string]bool)}
}

// Inline substitutes op's callee body at its call site and returns the
// ordered list of statements to splice there: parameter bindings, then
// the rewritten body with its exit nodes transformed.
func (k *Kernel) Inline(op *Op, bag *diagnostics.Bag) ([]ast.Statement, error) {
	if k.visiting[op.CalleeName] {
		bag.Add(diagnostics.New(diagnostics.RecursiveInline, op.CallSite,
			"recursive inline of %q detected", op.CalleeName))
		return nil, fmt.Errorf("recursive inline of %q", op.CalleeName)
	}
	k.visiting[op.CalleeName] = true
	defer delete(k.visiting, op.CalleeName)

	if err := op.ExitRule.Validate(op.Callee); err != nil {
		// The defect is in the callee's body but surfaces at the call
		// site, so the diagnostic carries the inline provenance chain.
		d := diagnostics.New(diagnostics.TypeShapeInvalid, op.CallSite, "%s", err)
		d.Provenance = token.Provenance{Origin: op.Callee.GetToken()}.
			Append(token.ProvenanceLink{InlineID: op.InlineID, CallSite: op.CallSite, Callee: op.CalleeName})
		bag.Add(d)
		return nil, err
	}

	// Step 1: rename map covers only local_vars.
	renames := buildRenameMap(op.Classification.Locals, op.InlineID)

	// Step 2: binding statements, left-to-right, exactly once.
	bindings := bindParams(op.Callee.Params, op.Args)

	// Step 3+4: walk the callee body, substituting renames and
	// rewriting exit nodes.
	ctx := &walkCtx{
		renames:  renames,
		exitRule: op.ExitRule,
		bag:      bag,
		link:     token.ProvenanceLink{InlineID: op.InlineID, CallSite: op.CallSite, Callee: op.CalleeName},
	}
	var body []ast.Statement
	if op.Callee.Body != nil {
		body = ctx.rewriteStatements(op.Callee.Body.Statements)
	}

	return append(bindings, body...), nil
}

// buildRenameMap maps every local name to "{original}_inline_{id}".
// Only locals appear in the map: params and captures are never renamed.
func buildRenameMap(locals map[string]bool, inlineID uint64) map[string]string {
	renames := make(map[string]string, len(locals))
	for name := range locals {
		renames[name] = fmt.Sprintf("%s_inline_%d", name, inlineID)
	}
	return renames
}

// bindParams emits `p_i = arg_i` assignments in declaration order so
// argument side effects happen exactly once, left to right.
func bindParams(params []*ast.Param, args []ast.Expression) []ast.Statement {
	n := len(params)
	if len(args) < n {
		n = len(args)
	}
	bindings := make([]ast.Statement, 0, n)
	for i := 0; i < n; i++ {
		p := params[i]
		bindings = append(bindings, &ast.AssignStatement{
			Tok:    p.Tok,
			Target: &ast.Identifier{Tok: p.Tok, Value: p.Name.Value},
			Value:  args[i],
		})
	}
	return bindings
}
