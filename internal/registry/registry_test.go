package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pythoc-lang/pythoc/internal/types"
)

func TestTableLookup_InnermostWins(t *testing.T) {
	outer := NewPrelude()
	outer.DefineVariable("x", types.Int{Signed: true, Width: 32}, false)

	inner := NewEnclosed(outer, ScopeFunction)
	inner.DefineVariable("x", types.Bool{}, false)

	sym, ok := inner.Lookup("x", "", "")
	require.True(t, ok)
	assert.Equal(t, types.Bool{}, sym.Type)
}

func TestTableLookup_WalksOuterWhenNotShadowed(t *testing.T) {
	outer := NewPrelude()
	outer.DefineVariable("x", types.Int{Signed: true, Width: 32}, false)

	inner := NewEnclosed(outer, ScopeFunction)

	sym, ok := inner.Lookup("x", "", "")
	require.True(t, ok)
	assert.Equal(t, types.Int{Signed: true, Width: 32}, sym.Type)
}

func TestTableLookup_SuffixFallsBackToBareName(t *testing.T) {
	table := NewPrelude()
	table.DefineFunction("f", "", "", types.Func{}, nil)

	sym, ok := table.Lookup("f", "fast", "rng_1")
	require.True(t, ok)
	assert.Equal(t, FunctionKind, sym.Kind)
}

func TestTableLookup_Missing(t *testing.T) {
	table := NewPrelude()
	_, ok := table.Lookup("nope", "", "")
	assert.False(t, ok)
}

func TestLookupLocal_DoesNotWalkOuter(t *testing.T) {
	outer := NewPrelude()
	outer.DefineVariable("x", types.Bool{}, false)
	inner := NewEnclosed(outer, ScopeFunction)

	_, ok := inner.LookupLocal("x")
	assert.False(t, ok, "LookupLocal must not see bindings from an outer scope")
}

func TestDefineVariable_MarksLinearWhenTypeContainsLinear(t *testing.T) {
	table := NewPrelude()
	table.DefineVariable("t", types.Linear{}, false)

	sym, ok := table.Lookup("t", "", "")
	require.True(t, ok)
	assert.True(t, sym.IsLinear)
}

func TestDefineType_LookupType(t *testing.T) {
	table := NewPrelude()
	st := types.Struct{Fields: []types.Field{{Name: "x", Type: types.Bool{}}}}
	table.DefineType("Point", st)

	got, ok := table.LookupType("Point")
	require.True(t, ok)
	assert.Equal(t, st, got)

	_, ok = table.LookupType("Missing")
	assert.False(t, ok)
}

func TestFuncType_WalksOuterScopes(t *testing.T) {
	outer := NewPrelude()
	ft := types.Func{Params: []types.Type{types.Bool{}}, Result: types.Bool{}}
	outer.DefineFunction("negate", "", "", ft, nil)

	inner := NewEnclosed(outer, ScopeFunction)
	got, ok := inner.FuncType("negate")
	require.True(t, ok)
	assert.Equal(t, ft, got)
}

func TestNames_ListsOnlyLocalBindings(t *testing.T) {
	outer := NewPrelude()
	outer.DefineVariable("outerVar", types.Bool{}, false)

	inner := NewEnclosed(outer, ScopeFunction)
	inner.DefineVariable("innerVar", types.Bool{}, false)

	assert.ElementsMatch(t, []string{"innerVar"}, inner.Names())
}
