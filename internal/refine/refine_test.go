package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/token"
	"github.com/pythoc-lang/pythoc/internal/types"
)

func ident(name string) *ast.Identifier { return &ast.Identifier{Tok: token.Token{Lexeme: name}, Value: name} }

func TestEngine_BuildAssume(t *testing.T) {
	t.Run("valid refinement produces no diagnostic", func(t *testing.T) {
		bag := diagnostics.NewBag()
		r := New(bag).BuildAssume(types.Int{Signed: true, Width: 32}, []types.FuncRef{{Name: "positive"}}, []string{"Positive"}, token.Token{})
		assert.False(t, bag.HasErrors())
		assert.Equal(t, []string{"Positive"}, r.Tags)
	})

	t.Run("invalid arity is reported", func(t *testing.T) {
		bag := diagnostics.NewBag()
		i32 := types.Int{Signed: true, Width: 32}
		preds := []types.FuncRef{{Name: "positive", Params: []types.Type{i32}}, {Name: "sumsTo", Params: []types.Type{i32, i32}}}
		New(bag).BuildAssume(i32, preds, nil, token.Token{Line: 9})
		require.True(t, bag.HasErrors())
		assert.Equal(t, diagnostics.RefinedArityMismatch, bag.Items()[0].Kind)
	})
}

// refine() success lowers to a predicate-guarded if/then with the bound
// loop variable in Then; failure falls through to the else body.
func TestEngine_LowerRefineFor(t *testing.T) {
	bag := diagnostics.NewBag()
	e := New(bag)

	refinedType := types.Refined{Base: types.Int{Signed: true, Width: 32}, Tags: []string{"Positive"}}
	forStmt := &ast.ForStatement{
		Tok:     token.Token{Line: 3},
		LoopVar: ident("x"),
		Body:    &ast.BlockStatement{Statements: []ast.Statement{&ast.ExpressionStatement{Expr: ident("x")}}},
	}
	refineExpr := &ast.RefineCallExpression{
		Tok:        token.Token{Line: 3},
		Values:     []ast.Expression{ident("n")},
		Predicates: []ast.Expression{ident("positive")},
	}
	elseBody := &ast.BlockStatement{Statements: []ast.Statement{&ast.ExpressionStatement{Expr: ident("fallback")}}}

	ifStmt, err := e.LowerRefineFor(forStmt, refineExpr, refinedType, elseBody)
	require.NoError(t, err)
	require.NotNil(t, ifStmt)

	call, ok := ifStmt.Condition.(*ast.CallExpression)
	require.True(t, ok, "a single predicate lowers to a bare call, not a conjunction")
	callee, ok := call.Callee.(*ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "positive", callee.Value)

	require.Len(t, ifStmt.Then.Statements, 2, "the bind assignment must precede the original body statements")
	bind, ok := ifStmt.Then.Statements[0].(*ast.AssignStatement)
	require.True(t, ok)
	assert.Equal(t, forStmt.LoopVar, bind.Target)

	assert.Same(t, elseBody, ifStmt.Else)
}

func TestEngine_LowerRefineFor_MultiplePredicatesConjoin(t *testing.T) {
	bag := diagnostics.NewBag()
	e := New(bag)

	forStmt := &ast.ForStatement{
		Tok:     token.Token{},
		LoopVar: ident("x"),
		Body:    &ast.BlockStatement{},
	}
	refineExpr := &ast.RefineCallExpression{
		Values:     []ast.Expression{ident("n")},
		Predicates: []ast.Expression{ident("positive"), ident("even")},
	}

	ifStmt, err := e.LowerRefineFor(forStmt, refineExpr, types.Refined{Base: types.Int{Signed: true, Width: 32}}, nil)
	require.NoError(t, err)

	bin, ok := ifStmt.Condition.(*ast.BinaryExpression)
	require.True(t, ok, "two predicates must AND-chain into a BinaryExpression")
	assert.Equal(t, "and", bin.Operator)
	assert.Nil(t, ifStmt.Else)
}

func TestEngine_LowerRefineFor_MultiParamBindsTuple(t *testing.T) {
	bag := diagnostics.NewBag()
	e := New(bag)

	forStmt := &ast.ForStatement{LoopVar: ident("pair"), Body: &ast.BlockStatement{}}
	refineExpr := &ast.RefineCallExpression{
		Values:     []ast.Expression{ident("a"), ident("b")},
		Predicates: []ast.Expression{ident("ordered")},
	}
	multiParam := types.Refined{
		Base: types.Struct{Fields: []types.Field{{Name: "a"}, {Name: "b"}}},
		Tags: []string{"x", "y"},
	}

	ifStmt, err := e.LowerRefineFor(forStmt, refineExpr, multiParam, nil)
	require.NoError(t, err)

	bind := ifStmt.Then.Statements[0].(*ast.AssignStatement)
	_, ok := bind.Value.(*ast.TupleExpression)
	assert.True(t, ok, "a multi-parameter refined binding combines its values into a tuple")
}

func TestEngine_LowerRefineFor_RequiresLoopVar(t *testing.T) {
	bag := diagnostics.NewBag()
	e := New(bag)

	forStmt := &ast.ForStatement{Body: &ast.BlockStatement{}}
	refineExpr := &ast.RefineCallExpression{Predicates: []ast.Expression{ident("p")}, Values: []ast.Expression{ident("n")}}

	_, err := e.LowerRefineFor(forStmt, refineExpr, types.Refined{}, nil)
	assert.Error(t, err)
}

func TestEngine_LowerRefineFor_RequiresAtLeastOnePredicate(t *testing.T) {
	bag := diagnostics.NewBag()
	e := New(bag)

	forStmt := &ast.ForStatement{LoopVar: ident("x"), Body: &ast.BlockStatement{}}
	refineExpr := &ast.RefineCallExpression{Values: []ast.Expression{ident("n")}}

	_, err := e.LowerRefineFor(forStmt, refineExpr, types.Refined{}, nil)
	assert.Error(t, err)
}

func TestEngine_CheckConversion(t *testing.T) {
	base := types.Int{Signed: true, Width: 32}
	positive := types.Refined{Base: base, Tags: []string{"Positive"}}
	positiveEven := types.Refined{Base: base, Tags: []string{"Positive", "Even"}}

	t.Run("refined to base is allowed when the base types agree", func(t *testing.T) {
		bag := diagnostics.NewBag()
		ok := New(bag).CheckConversion(positive, base, token.Token{})
		assert.True(t, ok)
		assert.False(t, bag.HasErrors())
	})

	t.Run("refined to mismatched base is rejected", func(t *testing.T) {
		bag := diagnostics.NewBag()
		ok := New(bag).CheckConversion(positive, types.Bool{}, token.Token{})
		assert.False(t, ok)
		assert.Equal(t, diagnostics.TypeMismatch, bag.Items()[0].Kind)
	})

	t.Run("base to refined is always forbidden", func(t *testing.T) {
		bag := diagnostics.NewBag()
		ok := New(bag).CheckConversion(base, positive, token.Token{})
		assert.False(t, ok)
		assert.Equal(t, diagnostics.RefineBaseToRefined, bag.Items()[0].Kind)
	})

	t.Run("refined to refined succeeds when dst's tags subset src's", func(t *testing.T) {
		bag := diagnostics.NewBag()
		ok := New(bag).CheckConversion(positiveEven, positive, token.Token{})
		assert.True(t, ok, "a value refined by {Positive,Even} satisfies a {Positive}-only requirement")
	})

	t.Run("refined to refined fails when dst requires a tag src lacks", func(t *testing.T) {
		bag := diagnostics.NewBag()
		ok := New(bag).CheckConversion(positive, positiveEven, token.Token{})
		assert.False(t, ok)
		assert.Equal(t, diagnostics.RefineTagNotSubset, bag.Items()[0].Kind)
	})

	t.Run("two unrefined types fall back to plain equality", func(t *testing.T) {
		bag := diagnostics.NewBag()
		assert.True(t, New(bag).CheckConversion(base, types.Int{Signed: true, Width: 32}, token.Token{}))
		assert.False(t, New(bag).CheckConversion(base, types.Bool{}, token.Token{}))
	})
}
