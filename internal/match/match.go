// Package match implements pattern-matrix exhaustiveness checking
// (Maranget's "useless clause" formulation) and the
// switch-table-vs-if-chain lowering selection. The matrix
// representation and the row-specialization recursion use a closed type
// switch over pattern shapes rather than a polymorphic visitor, the
// same traversal style as the rest of the analyses.
package match

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/token"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// Engine runs exhaustiveness checking and lowering-strategy selection
// for one `match` statement.
type Engine struct {
	bag *diagnostics.Bag
}

func New(bag *diagnostics.Bag) *Engine {
	return &Engine{bag: bag}
}

// Strategy is the lowering form chosen for one match statement.
type Strategy int

const (
	// SwitchTable: every arm is an unguarded integer-literal pattern (or
	// an OR of integer literals) over a single integral subject.
	SwitchTable Strategy = iota
	// IfChain: destructuring and guard evaluation in source arm order.
	IfChain
)

// Check runs exhaustiveness analysis for stmt's arms against subjectType
// and reports MatchNonExhaustive with a witness if no catch-all and the
// pattern matrix is incomplete. It always reports MatchPatternTypeMismatch
// for any pattern shape that cannot possibly match subjectType, and
// returns the chosen lowering Strategy regardless (lowering proceeds
// best-effort even when a diagnostic was raised, consistent with the
// Bag-accumulation policy in internal/diagnostics).
func (e *Engine) Check(stmt *ast.MatchStatement, subjectType types.Type) Strategy {
	for _, arm := range stmt.Arms {
		e.checkPatternType(arm.Pattern, subjectType, arm.Tok)
	}

	witness, exhaustive := e.exhaustive(stmt.Arms, subjectType)
	if !exhaustive {
		d := diagnostics.New(diagnostics.MatchNonExhaustive, stmt.Tok,
			"match over %s is not exhaustive", subjectType).WithWitness(witness)
		e.bag.Add(d)
	}

	return e.selectStrategy(stmt.Arms, subjectType)
}

// selectStrategy picks SwitchTable only when every arm is an unguarded
// integer-literal pattern (or an OR of them) over an integral subject,
// modulo the catch-all default; anything else lowers to an if-chain.
func (e *Engine) selectStrategy(arms []ast.MatchArm, subjectType types.Type) Strategy {
	if _, ok := subjectType.(types.Int); !ok {
		return IfChain
	}
	for _, arm := range arms {
		if arm.Guard != nil {
			return IfChain
		}
		// An unguarded catch-all lowers to the switch default arm; an
		// integral subject needs one to be exhaustive at all.
		if isCatchAll(arm.Pattern) {
			continue
		}
		if !isIntegerLiteralOrOr(arm.Pattern) {
			return IfChain
		}
	}
	return SwitchTable
}

func isIntegerLiteralOrOr(p ast.Pattern) bool {
	switch pat := p.(type) {
	case *ast.LiteralPattern:
		_, ok := pat.Value.(*ast.IntegerLiteral)
		return ok
	case *ast.OrPattern:
		for _, alt := range pat.Alternatives {
			if !isIntegerLiteralOrOr(alt) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// checkPatternType reports MatchPatternTypeMismatch when a pattern's
// shape cannot possibly decompose subjectType (e.g. a StructPattern
// naming a variant that doesn't exist on an Enum, or a SequencePattern
// against a non-Array/non-Enum subject).
func (e *Engine) checkPatternType(p ast.Pattern, t types.Type, at token.Token) {
	switch pat := p.(type) {
	case *ast.WildcardPattern, *ast.BindingPattern, *ast.LiteralPattern:
		return
	case *ast.OrPattern:
		for _, alt := range pat.Alternatives {
			e.checkPatternType(alt, t, at)
		}
	case *ast.StructPattern:
		if pat.Variant != "" {
			if enum, ok := t.(types.Enum); ok {
				if !hasVariant(enum, pat.Variant) {
					e.bag.Add(diagnostics.New(diagnostics.MatchPatternTypeMismatch, at,
						"enum %s has no variant %q", enum, pat.Variant))
				}
				return
			}
			e.bag.Add(diagnostics.New(diagnostics.MatchPatternTypeMismatch, at,
				"variant pattern %q used against non-enum type %s", pat.Variant, t))
			return
		}
		if _, ok := t.(types.Struct); !ok {
			e.bag.Add(diagnostics.New(diagnostics.MatchPatternTypeMismatch, at,
				"struct pattern used against non-struct type %s", t))
		}
	case *ast.SequencePattern:
		if pat.Variant != "" {
			if _, ok := t.(types.Enum); !ok {
				e.bag.Add(diagnostics.New(diagnostics.MatchPatternTypeMismatch, at,
					"variant pattern %q used against non-enum type %s", pat.Variant, t))
			}
			return
		}
		if _, ok := t.(types.Array); !ok {
			e.bag.Add(diagnostics.New(diagnostics.MatchPatternTypeMismatch, at,
				"sequence pattern used against non-array type %s", t))
		}
	}
}

func hasVariant(e types.Enum, name string) bool {
	for _, v := range e.Variants {
		if v.Name == name {
			return true
		}
	}
	return false
}

// exhaustive implements the pattern-matrix "useless clause" algorithm:
// it specializes the subject type against each constructor in turn and
// recurses, so a subject is covered iff every one of its possible
// constructors is covered by at least one arm (after removing arms whose
// pattern cannot apply to that constructor).
func (e *Engine) exhaustive(arms []ast.MatchArm, t types.Type) (witness string, ok bool) {
	rows := make([]row, 0, len(arms))
	for _, arm := range arms {
		if arm.Guard != nil {
			// A guarded arm cannot be relied on to cover its pattern: the
			// matrix treats it as absent for exhaustiveness purposes,
			// matching Maranget's treatment of guards as opaque.
			continue
		}
		rows = append(rows, row{pattern: arm.Pattern})
	}
	return exhaustiveAt(rows, t)
}

type row struct {
	pattern ast.Pattern
}

func exhaustiveAt(rows []row, t types.Type) (string, bool) {
	for _, r := range rows {
		if isCatchAll(r.pattern) {
			return "", true
		}
	}

	switch v := t.(type) {
	case types.Bool:
		return exhaustiveOverValues(rows, []string{"true", "false"}, func(r row, val string) bool {
			return matchesBoolLiteral(r.pattern, val)
		})
	case types.Enum:
		names := make([]string, len(v.Variants))
		for i, variant := range v.Variants {
			names[i] = variant.Name
		}
		return exhaustiveOverValues(rows, names, func(r row, val string) bool {
			return matchesVariant(r.pattern, val)
		})
	case types.Struct:
		// A product type is exhaustive iff the rows jointly cover every
		// combination of its fields' constructors; since this core
		// requires every field pattern be present for a StructPattern to
		// apply (no partial destructuring across mismatched shapes), a
		// single unguarded StructPattern/BindingPattern/WildcardPattern
		// row whose own per-field patterns are jointly exhaustive
		// suffices. We approximate field-wise: every field type must
		// itself be finite and every row must supply a (possibly
		// wildcard) pattern for it; the multiplicative explosion of full
		// cross-field enumeration is not attempted.
		if len(rows) == 0 {
			return fmt.Sprintf("<some %s value>", v), false
		}
		for _, r := range rows {
			if sp, ok := r.pattern.(*ast.StructPattern); ok && sp.Variant == "" && len(sp.Fields) == len(v.Fields) {
				return "", true
			}
		}
		return fmt.Sprintf("<some %s value>", v), false
	default:
		// Infinite type: requires an explicit catch-all, already checked
		// above; none present means non-exhaustive.
		return fmt.Sprintf("<some %s value>", t), false
	}
}

func exhaustiveOverValues(rows []row, values []string, matches func(row, string) bool) (string, bool) {
	for _, val := range values {
		covered := false
		for _, r := range rows {
			if matches(r, val) {
				covered = true
				break
			}
		}
		if !covered {
			return val, false
		}
	}
	return "", true
}

func isCatchAll(p ast.Pattern) bool {
	switch p.(type) {
	case *ast.WildcardPattern, *ast.BindingPattern:
		return true
	default:
		return false
	}
}

func matchesBoolLiteral(p ast.Pattern, val string) bool {
	switch pat := p.(type) {
	case *ast.LiteralPattern:
		bl, ok := pat.Value.(*ast.BoolLiteral)
		if !ok {
			return false
		}
		return (val == "true") == bl.Value
	case *ast.OrPattern:
		for _, alt := range pat.Alternatives {
			if matchesBoolLiteral(alt, val) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func matchesVariant(p ast.Pattern, name string) bool {
	switch pat := p.(type) {
	case *ast.StructPattern:
		return pat.Variant == name
	case *ast.SequencePattern:
		return pat.Variant == name
	case *ast.OrPattern:
		for _, alt := range pat.Alternatives {
			if matchesVariant(alt, name) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
