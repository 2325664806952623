package inline

import (
	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/token"
)

// walkCtx carries the per-Inline-call state the statement/expression
// rewriter needs: the rename map, the active ExitRule, a place for
// custom exit rules to record diagnostics, and the provenance link
// naming the inline step those diagnostics should carry.
type walkCtx struct {
	renames  map[string]string
	exitRule ExitRule
	bag      *diagnostics.Bag
	link     token.ProvenanceLink
}

// rewriteStatements substitutes renamed identifiers through a statement
// list and replaces any node the active ExitRule matches, recursing into
// every nested block so exit nodes are found regardless of nesting depth
// (inside if/while/for/match bodies).
func (c *walkCtx) rewriteStatements(stmts []ast.Statement) []ast.Statement {
	var out []ast.Statement
	for _, stmt := range stmts {
		if c.exitRule.Matches(stmt) {
			out = append(out, c.exitRule.Transform(stmt, c)...)
			continue
		}
		out = append(out, c.rewriteStatement(stmt))
	}
	return out
}

func (c *walkCtx) rewriteStatement(stmt ast.Statement) ast.Statement {
	switch s := stmt.(type) {
	case *ast.AssignStatement:
		return &ast.AssignStatement{
			Tok:         s.Tok,
			Target:      c.rewriteExpr(s.Target),
			TypeAnnot:   s.TypeAnnot,
			Value:       c.rewriteExprMaybe(s.Value),
			IsConstDecl: s.IsConstDecl,
		}
	case *ast.ExpressionStatement:
		return &ast.ExpressionStatement{Tok: s.Tok, Expr: c.rewriteExpr(s.Expr)}
	case *ast.ReturnStatement:
		return &ast.ReturnStatement{Tok: s.Tok, Value: c.rewriteExprMaybe(s.Value)}
	case *ast.YieldStatement:
		vals := make([]ast.Expression, len(s.Values))
		for i, v := range s.Values {
			vals[i] = c.rewriteExpr(v)
		}
		return &ast.YieldStatement{Tok: s.Tok, Values: vals}
	case *ast.BreakStatement, *ast.ContinueStatement:
		return s
	case *ast.BlockStatement:
		return &ast.BlockStatement{Tok: s.Tok, Statements: c.rewriteStatements(s.Statements)}
	case *ast.IfStatement:
		var elseStmt ast.Statement
		if s.Else != nil {
			elseStmt = c.rewriteStatement(s.Else)
		}
		return &ast.IfStatement{
			Tok:       s.Tok,
			Condition: c.rewriteExpr(s.Condition),
			Then:      &ast.BlockStatement{Tok: s.Then.Tok, Statements: c.rewriteStatements(s.Then.Statements)},
			Else:      elseStmt,
		}
	case *ast.WhileStatement:
		var elseBlock *ast.BlockStatement
		if s.Else != nil {
			elseBlock = &ast.BlockStatement{Tok: s.Else.Tok, Statements: c.rewriteStatements(s.Else.Statements)}
		}
		return &ast.WhileStatement{
			Tok:       s.Tok,
			Condition: c.rewriteExpr(s.Condition),
			Body:      &ast.BlockStatement{Tok: s.Body.Tok, Statements: c.rewriteStatements(s.Body.Statements)},
			Else:      elseBlock,
		}
	case *ast.ForStatement:
		var elseBlock *ast.BlockStatement
		if s.Else != nil {
			elseBlock = &ast.BlockStatement{Tok: s.Else.Tok, Statements: c.rewriteStatements(s.Else.Statements)}
		}
		return &ast.ForStatement{
			Tok:      s.Tok,
			LoopVar:  c.renameIdent(s.LoopVar),
			Iterable: c.rewriteExpr(s.Iterable),
			Body:     &ast.BlockStatement{Tok: s.Body.Tok, Statements: c.rewriteStatements(s.Body.Statements)},
			Else:     elseBlock,
		}
	case *ast.MatchStatement:
		arms := make([]ast.MatchArm, len(s.Arms))
		for i, arm := range s.Arms {
			arms[i] = ast.MatchArm{
				Tok:     arm.Tok,
				Pattern: c.rewritePattern(arm.Pattern),
				Guard:   c.rewriteExprMaybe(arm.Guard),
				Body:    &ast.BlockStatement{Tok: arm.Body.Tok, Statements: c.rewriteStatements(arm.Body.Statements)},
			}
		}
		return &ast.MatchStatement{Tok: s.Tok, Subject: c.rewriteExpr(s.Subject), Arms: arms}
	case *ast.DeferStatement:
		args := make([]ast.Expression, len(s.Args))
		for i, a := range s.Args {
			args[i] = c.rewriteExpr(a)
		}
		return &ast.DeferStatement{Tok: s.Tok, Callee: c.rewriteExpr(s.Callee), Args: args}
	case *ast.LabelStatement:
		return &ast.LabelStatement{Tok: s.Tok, Name: s.Name, Body: &ast.BlockStatement{Tok: s.Body.Tok, Statements: c.rewriteStatements(s.Body.Statements)}}
	case *ast.GotoStatement:
		return s
	case *ast.EffectOverrideStatement:
		bindings := make([]ast.EffectOverrideBinding, len(s.Bindings))
		for i, b := range s.Bindings {
			bindings[i] = ast.EffectOverrideBinding{Name: b.Name, Impl: c.rewriteExpr(b.Impl)}
		}
		return &ast.EffectOverrideStatement{
			Tok: s.Tok, Bindings: bindings, Suffix: s.Suffix,
			Body: &ast.BlockStatement{Tok: s.Body.Tok, Statements: c.rewriteStatements(s.Body.Statements)},
		}
	default:
		return stmt
	}
}

func (c *walkCtx) rewriteExprMaybe(e ast.Expression) ast.Expression {
	if e == nil {
		return nil
	}
	return c.rewriteExpr(e)
}

// rewriteExpr substitutes renamed identifiers through an expression.
// Nested inline/generator call sites were already lowered out of the
// callee body by the driver before substitution started, so the
// rewriter never encounters a call that still needs inlining.
func (c *walkCtx) rewriteExpr(e ast.Expression) ast.Expression {
	if e == nil {
		return nil
	}
	switch ex := e.(type) {
	case *ast.Identifier:
		return c.renameIdent(ex)
	case *ast.CallExpression:
		callee := c.rewriteExpr(ex.Callee)
		args := make([]ast.Expression, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = c.rewriteExpr(a)
		}
		return &ast.CallExpression{Tok: ex.Tok, Callee: callee, Args: args}
	case *ast.TypeCallExpression:
		args := make([]ast.Expression, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = c.rewriteExpr(a)
		}
		return &ast.TypeCallExpression{Tok: ex.Tok, Type: ex.Type, Args: args}
	case *ast.MemberExpression:
		return &ast.MemberExpression{Tok: ex.Tok, Left: c.rewriteExpr(ex.Left), Member: ex.Member}
	case *ast.IndexExpression:
		return &ast.IndexExpression{Tok: ex.Tok, Left: c.rewriteExpr(ex.Left), Index: c.rewriteExpr(ex.Index)}
	case *ast.BinaryExpression:
		return &ast.BinaryExpression{Tok: ex.Tok, Operator: ex.Operator, Left: c.rewriteExpr(ex.Left), Right: c.rewriteExpr(ex.Right)}
	case *ast.UnaryExpression:
		return &ast.UnaryExpression{Tok: ex.Tok, Operator: ex.Operator, Operand: c.rewriteExpr(ex.Operand)}
	case *ast.TupleExpression:
		entries := make([]ast.Expression, len(ex.Entries))
		for i, v := range ex.Entries {
			entries[i] = c.rewriteExpr(v)
		}
		return &ast.TupleExpression{Tok: ex.Tok, Entries: entries}
	case *ast.IntrinsicCallExpression:
		args := make([]ast.Expression, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = c.rewriteExpr(a)
		}
		return &ast.IntrinsicCallExpression{Tok: ex.Tok, Kind: ex.Kind, Type: ex.Type, Args: args}
	case *ast.RefineCallExpression:
		vals := make([]ast.Expression, len(ex.Values))
		for i, v := range ex.Values {
			vals[i] = c.rewriteExpr(v)
		}
		preds := make([]ast.Expression, len(ex.Predicates))
		for i, p := range ex.Predicates {
			preds[i] = c.rewriteExpr(p)
		}
		return &ast.RefineCallExpression{Tok: ex.Tok, Values: vals, Predicates: preds, Tags: ex.Tags}
	case *ast.AssumeCallExpression:
		vals := make([]ast.Expression, len(ex.Values))
		for i, v := range ex.Values {
			vals[i] = c.rewriteExpr(v)
		}
		preds := make([]ast.Expression, len(ex.Predicates))
		for i, p := range ex.Predicates {
			preds[i] = c.rewriteExpr(p)
		}
		return &ast.AssumeCallExpression{Tok: ex.Tok, Values: vals, Predicates: preds, Tags: ex.Tags}
	default:
		return e
	}
}

func (c *walkCtx) renameIdent(id *ast.Identifier) *ast.Identifier {
	if id == nil {
		return nil
	}
	if renamed, ok := c.renames[id.Value]; ok {
		return &ast.Identifier{Tok: id.Tok, Value: renamed}
	}
	return id
}

func (c *walkCtx) rewritePattern(p ast.Pattern) ast.Pattern {
	switch pat := p.(type) {
	case *ast.BindingPattern:
		if renamed, ok := c.renames[pat.Name]; ok {
			return &ast.BindingPattern{Tok: pat.Tok, Name: renamed}
		}
		return pat
	case *ast.OrPattern:
		alts := make([]ast.Pattern, len(pat.Alternatives))
		for i, a := range pat.Alternatives {
			alts[i] = c.rewritePattern(a)
		}
		return &ast.OrPattern{Tok: pat.Tok, Alternatives: alts}
	case *ast.StructPattern:
		fields := make([]ast.FieldPattern, len(pat.Fields))
		for i, f := range pat.Fields {
			fields[i] = ast.FieldPattern{Name: f.Name, Pattern: c.rewritePattern(f.Pattern)}
		}
		return &ast.StructPattern{Tok: pat.Tok, Variant: pat.Variant, Fields: fields}
	case *ast.SequencePattern:
		elems := make([]ast.Pattern, len(pat.Elements))
		for i, e := range pat.Elements {
			elems[i] = c.rewritePattern(e)
		}
		return &ast.SequencePattern{Tok: pat.Tok, Variant: pat.Variant, Elements: elems}
	default:
		return p
	}
}
