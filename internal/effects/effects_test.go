package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/token"
)

func TestEnv_ResolveOrder(t *testing.T) {
	bag := diagnostics.NewBag()
	env := NewEnv()
	env.Default("rng", Binding{Impl: "default_rng"})

	t.Run("default wins when nothing else is bound", func(t *testing.T) {
		b, ok := env.Resolve("rng", token.Token{}, bag)
		require.True(t, ok)
		assert.Equal(t, "default_rng", b.Impl)
	})

	t.Run("override shadows default", func(t *testing.T) {
		env.Push(map[string]Binding{"rng": {Impl: "fixed_rng"}}, "fixed", token.Token{}, bag)
		defer env.Pop()

		b, ok := env.Resolve("rng", token.Token{}, bag)
		require.True(t, ok)
		assert.Equal(t, "fixed_rng", b.Impl)
	})

	t.Run("pin shadows override and default", func(t *testing.T) {
		env.Pin("rng", Binding{Impl: "pinned_rng"}, token.Token{}, bag)
		env.Push(map[string]Binding{"rng": {Impl: "fixed_rng"}}, "fixed", token.Token{}, bag)
		defer env.Pop()

		b, ok := env.Resolve("rng", token.Token{}, bag)
		require.True(t, ok)
		assert.Equal(t, "pinned_rng", b.Impl)
	})
}

func TestEnv_UnboundEffectReported(t *testing.T) {
	bag := diagnostics.NewBag()
	env := NewEnv()

	_, ok := env.Resolve("missing", token.Token{}, bag)
	assert.False(t, ok)
	require.Len(t, bag.Items(), 1)
	assert.Equal(t, diagnostics.EffectUnbound, bag.Items()[0].Kind)
}

func TestEnv_RepinIsRejected(t *testing.T) {
	bag := diagnostics.NewBag()
	env := NewEnv()
	env.Pin("rng", Binding{Impl: "a"}, token.Token{}, bag)
	env.Pin("rng", Binding{Impl: "b"}, token.Token{}, bag)

	require.Len(t, bag.Items(), 1)
	assert.Equal(t, diagnostics.EffectRepin, bag.Items()[0].Kind)

	b, _ := env.Resolve("rng", token.Token{}, bag)
	assert.Equal(t, "a", b.Impl, "the original pin must survive a rejected repin")
}

func TestEnv_PushRequiresSuffixWhenRebinding(t *testing.T) {
	bag := diagnostics.NewBag()
	env := NewEnv()

	env.Push(map[string]Binding{"rng": {Impl: "x"}}, "", token.Token{}, bag)

	require.Len(t, bag.Items(), 1)
	assert.Equal(t, diagnostics.EffectSuffixRequired, bag.Items()[0].Kind)
}

func TestEnv_PushWithEmptyBindingsNeedsNoSuffix(t *testing.T) {
	bag := diagnostics.NewBag()
	env := NewEnv()

	env.Push(nil, "", token.Token{}, bag)

	assert.Empty(t, bag.Items())
}

func TestEnv_PopOnEmptyStackPanics(t *testing.T) {
	env := NewEnv()
	assert.Panics(t, func() { env.Pop() })
}

func TestEnv_ActiveSuffix_JoinsPushOrder(t *testing.T) {
	bag := diagnostics.NewBag()
	env := NewEnv()
	env.Push(map[string]Binding{"rng": {}}, "fixed", token.Token{}, bag)
	env.Push(map[string]Binding{"clock": {}}, "frozen", token.Token{}, bag)

	assert.Equal(t, "fixed_frozen", env.ActiveSuffix())
}

// A function calling into a callee that transitively reads an
// overridden effect must be redirected to a suffixed variant.
func TestPropagator_TransitivePropagation(t *testing.T) {
	p := NewPropagator()
	p.RecordReads("leaf", "rng")
	p.RecordCall("middle", "leaf")
	p.RecordCall("top", "middle")

	reads, err := p.TransitiveReads("top")
	require.NoError(t, err)
	assert.True(t, reads["rng"], "top must inherit leaf's effect read through the call chain")

	bag := diagnostics.NewBag()
	env := NewEnv()
	env.Push(map[string]Binding{"rng": {Impl: "fixed"}}, "fixed", token.Token{}, bag)
	defer env.Pop()

	needs, err := p.NeedsVariant("top", env)
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestPropagator_NoOverrideNoVariantNeeded(t *testing.T) {
	p := NewPropagator()
	p.RecordReads("leaf", "rng")
	p.RecordCall("top", "leaf")

	bag := diagnostics.NewBag()
	env := NewEnv()
	env.Push(map[string]Binding{"clock": {}}, "frozen", token.Token{}, bag)
	defer env.Pop()

	needs, err := p.NeedsVariant("top", env)
	require.NoError(t, err)
	assert.False(t, needs, "an override of an unrelated effect must not force a variant")
}

func TestPropagator_CycleDetected(t *testing.T) {
	p := NewPropagator()
	p.RecordCall("a", "b")
	p.RecordCall("b", "a")

	_, err := p.TransitiveReads("a")
	require.Error(t, err)
}

func TestImportCache_MemoizesPerTriple(t *testing.T) {
	cache := NewImportCache()
	calls := 0
	makeSym := func() string {
		calls++
		return "mangled_sym"
	}

	first := cache.Intercept("mod", "f", "fixed", makeSym)
	second := cache.Intercept("mod", "f", "fixed", makeSym)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "the same (module, name, suffix) triple must only build its symbol once")

	cache.Intercept("mod", "f", "other", makeSym)
	assert.Equal(t, 2, calls, "a different suffix is a distinct variant and must build its own symbol")
}

func TestMangledName(t *testing.T) {
	tests := []struct {
		name, compile, effect, want string
	}{
		{"f", "", "", "f"},
		{"f", "fast", "", "f_fast"},
		{"f", "", "rng_fixed", "f_rng_fixed"},
		{"f", "fast", "rng_fixed", "f_fast_rng_fixed"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, MangledName(tt.name, tt.compile, tt.effect))
		})
	}
}
