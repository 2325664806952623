package inline

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
)

// ExitRule is the one piece of kernel behavior that varies by inline
// kind: closure inlining, generator inlining, and macro expansion share
// the substitution procedure and differ only in how a callee's exit
// points are rewritten. Validate runs once, before any substitution,
// and rejects callee shapes the rule cannot handle; Matches reports
// whether a given (already rewritten-except-for-this-node) statement is
// an exit point for this rule; Transform produces the statement(s) that
// replace it.
type ExitRule interface {
	Validate(callee *ast.FunctionStatement) error
	Matches(stmt ast.Statement) bool
	Transform(stmt ast.Statement, ctx *walkCtx) []ast.Statement
}

// ReturnExitRule is used for ordinary (non-generator) inlined calls: a
// callee invoked for its value. `return expr` becomes an assignment to
// ResultVar; a value-less `return` is simply dropped.
type ReturnExitRule struct {
	ResultVar string
}

func (r ReturnExitRule) Validate(callee *ast.FunctionStatement) error {
	if containsYield(callee.Body) {
		return fmt.Errorf("cannot inline %q by value: body contains yield", callee.Name.Value)
	}
	return nil
}

func (r ReturnExitRule) Matches(stmt ast.Statement) bool {
	_, ok := stmt.(*ast.ReturnStatement)
	return ok
}

func (r ReturnExitRule) Transform(stmt ast.Statement, ctx *walkCtx) []ast.Statement {
	rs := stmt.(*ast.ReturnStatement)
	if rs.Value == nil {
		return nil
	}
	return []ast.Statement{&ast.AssignStatement{
		Tok:    rs.Tok,
		Target: &ast.Identifier{Tok: rs.Tok, Value: r.ResultVar},
		Value:  ctx.rewriteExpr(rs.Value),
	}}
}

// YieldExitRule is used for generator inlining at a `for x in gen(...):`
// call site: `yield e` becomes an
// assignment to LoopVar followed by a splice of the caller's loop body;
// a value-less `return` inside the generator jumps past the loop via
// BreakLabel. `yield` and `return` are exit points at any nesting depth
// of the callee; the generator's own break/continue (iterating some
// other, inner, sequence) are left untouched, since nested loops inside
// the callee have their own break/continue targets.
type YieldExitRule struct {
	LoopVar       string
	LoopBody      *ast.BlockStatement
	ElseBody      *ast.BlockStatement
	BreakLabel    string
	ContinueLabel string
}

func (y YieldExitRule) Validate(callee *ast.FunctionStatement) error {
	if !containsYield(callee.Body) {
		return fmt.Errorf("cannot inline %q as a generator: body contains no yield", callee.Name.Value)
	}
	if containsValueReturn(callee.Body) {
		return fmt.Errorf("cannot inline %q as a generator: body contains a value-returning return", callee.Name.Value)
	}
	return nil
}

func (y YieldExitRule) Matches(stmt ast.Statement) bool {
	switch stmt.(type) {
	case *ast.YieldStatement, *ast.ReturnStatement:
		return true
	default:
		return false
	}
}

func (y YieldExitRule) Transform(stmt ast.Statement, ctx *walkCtx) []ast.Statement {
	switch s := stmt.(type) {
	case *ast.YieldStatement:
		var out []ast.Statement
		if len(s.Values) == 1 {
			out = append(out, &ast.AssignStatement{
				Tok:    s.Tok,
				Target: &ast.Identifier{Tok: s.Tok, Value: y.LoopVar},
				Value:  ctx.rewriteExpr(s.Values[0]),
			})
		} else if len(s.Values) > 1 {
			entries := make([]ast.Expression, len(s.Values))
			for i, v := range s.Values {
				entries[i] = ctx.rewriteExpr(v)
			}
			out = append(out, &ast.AssignStatement{
				Tok:    s.Tok,
				Target: &ast.Identifier{Tok: s.Tok, Value: y.LoopVar},
				Value:  &ast.TupleExpression{Tok: s.Tok, Entries: entries},
			})
		}
		out = append(out, rewriteLoopBodyJumps(y.LoopBody.Statements, y.BreakLabel, y.ContinueLabel)...)
		return out
	case *ast.ReturnStatement:
		// A value-less return inside the generator body ends the
		// iteration early: jump to the label marking the loop's end so
		// any else-clause is skipped, matching a `break` from inside a
		// real for loop.
		if y.BreakLabel == "" {
			return nil
		}
		return []ast.Statement{&ast.GotoStatement{Tok: s.Tok, Kind: ast.GotoEnd, Label: y.BreakLabel}}
	default:
		return []ast.Statement{stmt}
	}
}

// MacroExitRule covers plain `inline` functions used as statement-level
// macros with no loop or value context: the callee's body is spliced
// verbatim (after substitution), and value-less returns simply terminate
// the splice early by jumping to an end label, exactly like YieldExitRule
// without a per-element loop body.
type MacroExitRule struct {
	EndLabel string
}

func (m MacroExitRule) Validate(callee *ast.FunctionStatement) error {
	if containsYield(callee.Body) {
		return fmt.Errorf("cannot inline %q as a macro: body contains yield", callee.Name.Value)
	}
	return nil
}

func (m MacroExitRule) Matches(stmt ast.Statement) bool {
	_, ok := stmt.(*ast.ReturnStatement)
	return ok
}

func (m MacroExitRule) Transform(stmt ast.Statement, ctx *walkCtx) []ast.Statement {
	rs := stmt.(*ast.ReturnStatement)
	if rs.Value != nil {
		// A macro-style inline discards any returned value; only its
		// side effects matter at the call site.
		return []ast.Statement{&ast.ExpressionStatement{Tok: rs.Tok, Expr: ctx.rewriteExpr(rs.Value)}}
	}
	if m.EndLabel == "" {
		return nil
	}
	return []ast.Statement{&ast.GotoStatement{Tok: rs.Tok, Kind: ast.GotoEnd, Label: m.EndLabel}}
}

// rewriteLoopBodyJumps rewrites break/continue found in the caller's
// spliced loop body so that, once inlined, `break` jumps to BreakLabel
// and `continue` jumps to ContinueLabel — only jumps that textually
// belong to the caller's for target are rewritten.
// It recurses into if/match/block/label nesting —
// constructs that do not introduce a loop of their own — but leaves
// while/for bodies alone, since a break/continue textually inside a
// *nested* loop targets that inner loop, not the caller's.
func rewriteLoopBodyJumps(stmts []ast.Statement, breakLabel, continueLabel string) []ast.Statement {
	out := make([]ast.Statement, len(stmts))
	for i, s := range stmts {
		out[i] = rewriteLoopBodyJumpStmt(s, breakLabel, continueLabel)
	}
	return out
}

func rewriteLoopBodyJumpStmt(stmt ast.Statement, breakLabel, continueLabel string) ast.Statement {
	switch s := stmt.(type) {
	case *ast.BreakStatement:
		if breakLabel == "" {
			return s
		}
		return &ast.GotoStatement{Tok: s.Tok, Kind: ast.GotoEnd, Label: breakLabel}
	case *ast.ContinueStatement:
		if continueLabel == "" {
			return s
		}
		return &ast.GotoStatement{Tok: s.Tok, Kind: ast.GotoEnd, Label: continueLabel}
	case *ast.BlockStatement:
		return &ast.BlockStatement{Tok: s.Tok, Statements: rewriteLoopBodyJumps(s.Statements, breakLabel, continueLabel)}
	case *ast.IfStatement:
		var elseStmt ast.Statement
		if s.Else != nil {
			elseStmt = rewriteLoopBodyJumpStmt(s.Else, breakLabel, continueLabel)
		}
		return &ast.IfStatement{
			Tok:       s.Tok,
			Condition: s.Condition,
			Then:      &ast.BlockStatement{Tok: s.Then.Tok, Statements: rewriteLoopBodyJumps(s.Then.Statements, breakLabel, continueLabel)},
			Else:      elseStmt,
		}
	case *ast.MatchStatement:
		arms := make([]ast.MatchArm, len(s.Arms))
		for i, arm := range s.Arms {
			arms[i] = ast.MatchArm{
				Tok:     arm.Tok,
				Pattern: arm.Pattern,
				Guard:   arm.Guard,
				Body:    &ast.BlockStatement{Tok: arm.Body.Tok, Statements: rewriteLoopBodyJumps(arm.Body.Statements, breakLabel, continueLabel)},
			}
		}
		return &ast.MatchStatement{Tok: s.Tok, Subject: s.Subject, Arms: arms}
	case *ast.LabelStatement:
		return &ast.LabelStatement{Tok: s.Tok, Name: s.Name, Body: &ast.BlockStatement{Tok: s.Body.Tok, Statements: rewriteLoopBodyJumps(s.Body.Statements, breakLabel, continueLabel)}}
	default:
		// WhileStatement/ForStatement (and anything else): a nested
		// loop's own break/continue targets that loop, not the caller's,
		// so its body is left untouched.
		return stmt
	}
}

// IsGenerator reports whether fn's body contains a yield anywhere within
// it, i.e. whether a call site to fn must be inlined via YieldExitRule
// (a `for x in fn(...):` loop) rather than ReturnExitRule or
// MacroExitRule.
func IsGenerator(fn *ast.FunctionStatement) bool {
	return fn != nil && containsYield(fn.Body)
}

func containsYield(block *ast.BlockStatement) bool {
	if block == nil {
		return false
	}
	for _, stmt := range block.Statements {
		if statementContainsYield(stmt) {
			return true
		}
	}
	return false
}

func statementContainsYield(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.YieldStatement:
		return true
	case *ast.BlockStatement:
		return containsYield(s)
	case *ast.IfStatement:
		if containsYield(s.Then) {
			return true
		}
		if s.Else != nil {
			return statementContainsYield(s.Else)
		}
		return false
	case *ast.WhileStatement:
		return containsYield(s.Body) || containsYield(s.Else)
	case *ast.ForStatement:
		return containsYield(s.Body) || containsYield(s.Else)
	case *ast.MatchStatement:
		for _, arm := range s.Arms {
			if containsYield(arm.Body) {
				return true
			}
		}
		return false
	case *ast.LabelStatement:
		return containsYield(s.Body)
	case *ast.EffectOverrideStatement:
		return containsYield(s.Body)
	default:
		return false
	}
}

func containsValueReturn(block *ast.BlockStatement) bool {
	if block == nil {
		return false
	}
	for _, stmt := range block.Statements {
		if statementContainsValueReturn(stmt) {
			return true
		}
	}
	return false
}

func statementContainsValueReturn(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.ReturnStatement:
		return s.Value != nil
	case *ast.BlockStatement:
		return containsValueReturn(s)
	case *ast.IfStatement:
		if containsValueReturn(s.Then) {
			return true
		}
		if s.Else != nil {
			return statementContainsValueReturn(s.Else)
		}
		return false
	case *ast.WhileStatement:
		return containsValueReturn(s.Body) || containsValueReturn(s.Else)
	case *ast.ForStatement:
		return containsValueReturn(s.Body) || containsValueReturn(s.Else)
	case *ast.MatchStatement:
		for _, arm := range s.Arms {
			if containsValueReturn(arm.Body) {
				return true
			}
		}
		return false
	case *ast.LabelStatement:
		return containsValueReturn(s.Body)
	case *ast.EffectOverrideStatement:
		return containsValueReturn(s.Body)
	default:
		return false
	}
}
