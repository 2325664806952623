package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pythoc-lang/pythoc/internal/token"
)

func TestBag_DedupsByPositionAndKind(t *testing.T) {
	bag := NewBag()
	at := token.Token{File: "a.pythoc", Line: 3, Column: 5}

	bag.Add(New(LinearUseAfterConsume, at, "first"))
	bag.Add(New(LinearUseAfterConsume, at, "second, same position and kind"))

	require.Len(t, bag.Items(), 1, "a second diagnostic at the same file:line:col:kind must be dropped")
	assert.Equal(t, "first", bag.Items()[0].Message)
}

func TestBag_KeepsDistinctKindsAtSamePosition(t *testing.T) {
	bag := NewBag()
	at := token.Token{File: "a.pythoc", Line: 3, Column: 5}

	bag.Add(New(LinearUseAfterConsume, at, "one kind"))
	bag.Add(New(LinearUndefined, at, "a different kind at the same position"))

	assert.Len(t, bag.Items(), 2)
}

func TestBag_HasErrors(t *testing.T) {
	t.Run("empty bag has no errors", func(t *testing.T) {
		assert.False(t, NewBag().HasErrors())
	})

	t.Run("error severity diagnostic trips HasErrors", func(t *testing.T) {
		bag := NewBag()
		bag.Add(New(TypeMismatch, token.Token{}, "mismatch"))
		assert.True(t, bag.HasErrors())
	})

	t.Run("warning-only diagnostics do not", func(t *testing.T) {
		bag := NewBag()
		d := New(TypeMismatch, token.Token{}, "just a warning")
		d.Severity = Warning
		bag.Add(d)
		assert.False(t, bag.HasErrors())
	})
}

func TestBag_Merge(t *testing.T) {
	a := NewBag()
	a.Add(New(EffectUnbound, token.Token{File: "a", Line: 1}, "a"))

	b := NewBag()
	b.Add(New(EffectUnbound, token.Token{File: "b", Line: 2}, "b"))
	b.Add(New(EffectUnbound, token.Token{File: "a", Line: 1}, "duplicate of a's entry"))

	a.Merge(b)
	assert.Len(t, a.Items(), 2, "merge should add b's distinct entry but drop the duplicate")
}

func TestDiagnostic_Builders(t *testing.T) {
	d := New(MatchNonExhaustive, token.Token{Line: 1}, "missing arm %s", "Err").
		WithWitness("Err").
		WithNote("consider adding a catch-all").
		WithSuggestion("add `case _:`", token.Token{Line: 2})

	assert.Equal(t, "Err", d.Witness)
	assert.Equal(t, []string{"consider adding a catch-all"}, d.Notes)
	require.Len(t, d.Suggestions, 1)
	assert.Equal(t, "add `case _:`", d.Suggestions[0].Message)
	assert.Contains(t, d.Error(), "missing arm Err")
}
