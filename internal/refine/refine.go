// Package refine constructs refined values via assume/refine/type-call,
// checks refined-to-refined conversions by tag and predicate
// subsumption, and lowers a `for x in refine(...):` loop into its
// predicate-guard-then-bind-once form. The subsumption check itself is
// types.RefinedSubsumes; this package is the operation layer around it,
// using the same recursive-AST-rewrite idiom the inline kernel uses for
// statement-shape lowering.
package refine

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/token"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// Engine resolves refined-value construction and conversions for one
// compile.
type Engine struct {
	bag *diagnostics.Bag
}

func New(bag *diagnostics.Bag) *Engine {
	return &Engine{bag: bag}
}

// BuildAssume constructs the Refined type for an `assume(v…, pred…,
// tag…)` or `RefinedTypeName(v…)` expression: no runtime check is
// emitted, the value is simply retyped.
func (e *Engine) BuildAssume(base types.Type, predicates []types.FuncRef, tags []string, at token.Token) types.Refined {
	r := types.Refined{Base: base, Predicates: predicates, Tags: tags}
	if err := r.Validate(); err != nil {
		e.bag.Add(diagnostics.New(diagnostics.RefinedArityMismatch, at, "%s", err))
	}
	return r
}

// LowerRefineFor lowers a `for x in refine(v…, pred…): <body> else:
// <elseBody>` statement into a conjunction of predicate calls guarding
// a single binding-and-body execution, falling through to elseBody on
// failure. It returns the replacement IfStatement (predicate
// conjunction guards Then=bind+body, Else=elseBody): `refine` yields at
// most once, so there is no loop left to lower once expanded.
func (e *Engine) LowerRefineFor(forStmt *ast.ForStatement, refineExpr *ast.RefineCallExpression, refinedType types.Refined, elseBody *ast.BlockStatement) (*ast.IfStatement, error) {
	if forStmt.LoopVar == nil {
		return nil, fmt.Errorf("refine for-loop requires a loop variable")
	}

	cond, err := conjunction(refineExpr.Predicates, refineExpr.Values, refineExpr.Tok)
	if err != nil {
		return nil, err
	}

	bindValue := valueOrStruct(refineExpr.Values, refinedType, refineExpr.Tok)
	bind := &ast.AssignStatement{
		Tok:    forStmt.Tok,
		Target: forStmt.LoopVar,
		Value:  bindValue,
	}
	then := &ast.BlockStatement{
		Tok:        forStmt.Body.Tok,
		Statements: append([]ast.Statement{bind}, forStmt.Body.Statements...),
	}

	var elseStmt ast.Statement
	if elseBody != nil {
		elseStmt = elseBody
	}

	return &ast.IfStatement{
		Tok:       forStmt.Tok,
		Condition: cond,
		Then:      then,
		Else:      elseStmt,
	}, nil
}

// conjunction AND-chains pred(v…) calls for each predicate, left to
// right, so the runtime result is true iff every predicate holds.
func conjunction(predicates []ast.Expression, values []ast.Expression, at token.Token) (ast.Expression, error) {
	if len(predicates) == 0 {
		return nil, fmt.Errorf("refine() requires at least one predicate")
	}
	var cond ast.Expression
	for _, pred := range predicates {
		call := &ast.CallExpression{Tok: at, Callee: pred, Args: values}
		if cond == nil {
			cond = call
		} else {
			cond = &ast.BinaryExpression{Tok: at, Operator: "and", Left: cond, Right: call}
		}
	}
	return cond, nil
}

// valueOrStruct returns the single value expression if refinedType is
// unary-shaped, or a TupleExpression combining all values when the
// refined type is the multi-parameter struct shape.
func valueOrStruct(values []ast.Expression, refinedType types.Refined, at token.Token) ast.Expression {
	if !refinedType.IsMultiParam() && len(values) == 1 {
		return values[0]
	}
	return &ast.TupleExpression{Tok: at, Entries: values}
}

// CheckConversion validates converting a value of type src to dst,
// applying the three refined-conversion rules:
//
//	Refined -> base:     allowed when the base types agree (forget).
//	Base    -> refined:  forbidden, must use assume/refine.
//	Refined -> refined:  allowed iff dst.Tags subset src.Tags AND
//	                      dst.Predicates subset src.Predicates.
func (e *Engine) CheckConversion(src, dst types.Type, at token.Token) bool {
	srcRefined, srcIsRefined := src.(types.Refined)
	dstR, dstIsRefined := dst.(types.Refined)

	switch {
	case srcIsRefined && !dstIsRefined:
		// Refined -> base: allowed iff the base types agree.
		if !types.Equal(srcRefined.Base, dst) {
			e.bag.Add(diagnostics.New(diagnostics.TypeMismatch, at,
				"cannot forget refinement: underlying type %s does not match %s", srcRefined.Base, dst))
			return false
		}
		return true
	case !srcIsRefined && dstIsRefined:
		e.bag.Add(diagnostics.New(diagnostics.RefineBaseToRefined, at,
			"cannot convert unrefined value to refined type %s without assume/refine", dstR))
		return false
	case srcIsRefined && dstIsRefined:
		if !types.RefinedSubsumes(dstR, srcRefined) {
			e.bag.Add(diagnostics.New(diagnostics.RefineTagNotSubset, at,
				"refined type %s does not subsume %s: tag or predicate set is not a subset", srcRefined, dstR))
			return false
		}
		return true
	default:
		return types.Equal(src, dst)
	}
}
