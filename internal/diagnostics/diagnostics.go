// Package diagnostics models every compiler error kind and accumulates
// them into a Bag instead of using panics or sentinel errors for
// control flow. The terminal Reporter in report.go renders diagnostics
// Rust-style.
package diagnostics

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/token"
)

// Kind enumerates every diagnostic kind the analyses can raise.
type Kind string

const (
	// Parsing/Shape
	TypeShapeInvalid     Kind = "TypeShapeInvalid"
	RefinedArityMismatch Kind = "RefinedArityMismatch"

	// Type
	TypeMismatch            Kind = "TypeMismatch"
	InvalidCast             Kind = "InvalidCast"
	ExternSignatureMismatch Kind = "ExternSignatureMismatch"

	// Effect
	EffectUnbound        Kind = "EffectUnbound"
	EffectRepin          Kind = "EffectRepin"
	EffectSuffixRequired Kind = "EffectSuffixRequired"
	EffectCycle          Kind = "EffectCycle"

	// Linear
	LinearOverwrite         Kind = "LinearOverwrite"
	LinearCopy              Kind = "LinearCopy"
	LinearUseAfterConsume   Kind = "LinearUseAfterConsume"
	LinearUndefined         Kind = "LinearUndefined"
	LinearInconsistentMerge Kind = "LinearInconsistentMerge"
	LinearExitNotConsumed   Kind = "LinearExitNotConsumed"

	// Refinement
	RefineTagNotSubset   Kind = "RefineTagNotSubset"
	RefineBaseToRefined  Kind = "RefineBaseToRefined"
	RefineOutsideForLoop Kind = "RefineOutsideForLoop"

	// Match
	MatchNonExhaustive     Kind = "MatchNonExhaustive"
	MatchPatternTypeMismatch Kind = "MatchPatternTypeMismatch"

	// Control flow
	LabelNotVisible     Kind = "LabelNotVisible"
	GotoEndToUncle      Kind = "GotoEndToUncle"
	UnreachableAfterReturn Kind = "UnreachableAfterReturn"

	// Driver
	CompileCycle     Kind = "CompileCycle"
	RecursiveInline  Kind = "RecursiveInline"
	VariantCollision Kind = "VariantCollision"
)

// Severity is the presentation level of a Diagnostic.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
	Note    Severity = "note"
	Help    Severity = "help"
)

// Suggestion is a secondary note attached to a Diagnostic, e.g. "move the
// consume() before the branch" for a LinearInconsistentMerge.
type Suggestion struct {
	Message string
	At      token.Token
}

// Diagnostic is one error surfaced synchronously from the analysis that
// detected it, carrying its source location (or synthetic location with
// provenance chain for inlined code) and an optional witness value.
type Diagnostic struct {
	Kind        Kind
	Severity    Severity
	Message     string
	Token       token.Token
	Provenance  token.Provenance
	Witness     any
	Suggestions []Suggestion
	Notes       []string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s at %s", d.Kind, d.Message, d.Token)
}

// New builds an Error-severity Diagnostic.
func New(kind Kind, tok token.Token, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Kind:     kind,
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		Token:    tok,
	}
}

// WithWitness attaches a witness value (e.g. an uncovered match value, or
// the slot whose state was inconsistent) and returns the receiver for
// chaining.
func (d *Diagnostic) WithWitness(w any) *Diagnostic {
	d.Witness = w
	return d
}

// WithNote appends a free-form note, mirroring CompilerError.Notes.
func (d *Diagnostic) WithNote(note string) *Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// WithSuggestion appends a Suggestion.
func (d *Diagnostic) WithSuggestion(message string, at token.Token) *Diagnostic {
	d.Suggestions = append(d.Suggestions, Suggestion{Message: message, At: at})
	return d
}

// Bag accumulates diagnostics across an analysis, deduplicating by
// position+kind so a re-walked subtree never double-reports.
type Bag struct {
	seen  map[string]bool
	items []*Diagnostic
}

// NewBag returns an empty Bag.
func NewBag() *Bag {
	return &Bag{seen: make(map[string]bool)}
}

// Add appends d, deduplicating by (file, line, column, kind).
func (b *Bag) Add(d *Diagnostic) {
	key := fmt.Sprintf("%s:%d:%d:%s", d.Token.File, d.Token.Line, d.Token.Column, d.Kind)
	if b.seen[key] {
		return
	}
	b.seen[key] = true
	b.items = append(b.items, d)
}

// Addf is a convenience for Add(New(...)).
func (b *Bag) Addf(kind Kind, tok token.Token, format string, args ...any) *Diagnostic {
	d := New(kind, tok, format, args...)
	b.Add(d)
	return d
}

// HasErrors reports whether any accumulated diagnostic is Error
// severity. A translation unit with any such diagnostic must not reach
// IR emission.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Items returns the accumulated diagnostics in encounter order.
func (b *Bag) Items() []*Diagnostic {
	return b.items
}

// Merge appends all diagnostics from other into b, preserving dedup.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	for _, d := range other.items {
		b.Add(d)
	}
}
