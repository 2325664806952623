// Package cfg implements the scope tree, label begin/end targets, and
// goto/break/continue/return unwind-and-branch semantics. Scopes are
// modeled as a tree rooted at the function scope, each carrying its own
// defer list — the same parent-pointer nesting shape
// internal/registry.Table uses for lexical lookup, here carrying defer
// records and jump targets instead of symbols.
package cfg

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/token"
)

// Kind distinguishes the reason a Scope exists, since loops and labels
// each expose different jump targets.
type Kind int

const (
	FunctionScope Kind = iota
	BlockScope
	LoopScope
	LabelScope
)

// Scope is one node of the scope tree. Each scope carries a (possibly
// empty) FIFO defer list that runs on every exit edge.
type Scope struct {
	Kind   Kind
	Parent *Scope
	Name   string // set for LabelScope; the label's name
	Defers []*ast.DeferStatement

	// LoopEnd/LoopHead are the branch targets break/continue unwind to,
	// set only on LoopScope.
	LoopEndLabel  string
	LoopHeadLabel string
}

// Builder constructs the scope tree for one function body and resolves
// every label/goto/break/continue/return against it, reporting
// LabelNotVisible and GotoEndToUncle.
type Builder struct {
	bag    *diagnostics.Bag
	root   *Scope
	labels map[string]*Scope // label name -> the Scope it names, forward references allowed
}

// New starts a fresh scope tree rooted at one function scope.
func New(bag *diagnostics.Bag) *Builder {
	root := &Scope{Kind: FunctionScope}
	return &Builder{bag: bag, root: root, labels: make(map[string]*Scope)}
}

// Root returns the function-level scope.
func (b *Builder) Root() *Scope { return b.root }

// EnterBlock, EnterLoop, and EnterLabel push a new child scope.
func (b *Builder) EnterBlock(parent *Scope) *Scope {
	return &Scope{Kind: BlockScope, Parent: parent}
}

func (b *Builder) EnterLoop(parent *Scope, endLabel, headLabel string) *Scope {
	return &Scope{Kind: LoopScope, Parent: parent, LoopEndLabel: endLabel, LoopHeadLabel: headLabel}
}

// EnterLabel registers name at scope parent and returns the new
// LabelScope; forward references to name (a goto encountered before
// this call) are allowed, so the label's Scope is registered eagerly
// under a placeholder and filled in here if the placeholder already
// exists.
func (b *Builder) EnterLabel(parent *Scope, name string) *Scope {
	s := &Scope{Kind: LabelScope, Parent: parent, Name: name}
	b.labels[name] = s
	return s
}

// RegisterForwardLabel pre-declares name so a goto encountered before the
// corresponding LabelStatement still resolves; EnterLabel overwrites the
// placeholder with the real scope once construction reaches it.
func (b *Builder) RegisterForwardLabel(name string) {
	if _, ok := b.labels[name]; !ok {
		b.labels[name] = nil
	}
}

// RegisterDefer appends d to scope's FIFO defer list.
func (b *Builder) RegisterDefer(scope *Scope, d *ast.DeferStatement) {
	scope.Defers = append(scope.Defers, d)
}

// Unwind is the ordered plan for one jump: the scopes to exit (in order,
// innermost first) and their defer lists to run (each list itself run in
// FIFO order), followed by the branch target.
type Unwind struct {
	Scopes []*Scope
	Target string
}

// PlanGoto resolves `goto("X")`: unwind scopes up to and including X's
// parent, then branch to X.begin. Forward references are allowed, so an
// unresolved-but-registered label (one declared later in
// source order via RegisterForwardLabel) only fails here if it is never
// defined at all — the driver calls PlanGoto only after the whole
// function's scope tree has been built, so by that point every forward
// reference has been resolved to its real Scope.
func (b *Builder) PlanGoto(from *Scope, label string, at token.Token) (*Unwind, bool) {
	target, registered := b.labels[label]
	if !registered || target == nil {
		b.bag.Add(diagnostics.New(diagnostics.LabelNotVisible, at, "label %q is not visible here", label))
		return nil, false
	}
	if !isAncestorOrSelf(target, from) {
		b.bag.Add(diagnostics.New(diagnostics.LabelNotVisible, at,
			"label %q is not visible from this scope", label))
		return nil, false
	}
	scopes := scopesToUnwind(from, target.Parent)
	return &Unwind{Scopes: scopes, Target: label + ".begin"}, true
}

// PlanGotoEnd resolves `goto_end("X")`: X must be self or an ancestor
// of the jump site, never an uncle — X.end sits *inside* the label
// body, so a jump from outside X's subtree has no path to it. Unwind
// through and including X, branch to X.end.
func (b *Builder) PlanGotoEnd(from *Scope, label string, at token.Token) (*Unwind, bool) {
	target, ok := b.labels[label]
	if !ok || target == nil {
		b.bag.Add(diagnostics.New(diagnostics.LabelNotVisible, at, "label %q is not visible here", label))
		return nil, false
	}
	if !isAncestorOrSelf(target, from) {
		b.bag.Add(diagnostics.New(diagnostics.GotoEndToUncle, at,
			"goto_end(%q) targets a scope that is not self or an ancestor of this scope", label))
		return nil, false
	}
	scopes := scopesToUnwind(from, target.Parent)
	return &Unwind{Scopes: scopes, Target: label + ".end"}, true
}

// PlanReturn unwinds every enclosing scope from from through the
// function root: the return value is evaluated first, then each
// scope's defers run, then control returns.
func (b *Builder) PlanReturn(from *Scope) *Unwind {
	return &Unwind{Scopes: scopesToUnwind(from, nil), Target: "return"}
}

// PlanBreak/PlanContinue unwind scopes within the nearest enclosing loop
// and branch to its end/head label respectively.
func (b *Builder) PlanBreak(from *Scope, at token.Token) (*Unwind, bool) {
	loop := nearestLoop(from)
	if loop == nil {
		b.bag.Add(diagnostics.New(diagnostics.TypeShapeInvalid, at, "break outside a loop"))
		return nil, false
	}
	return &Unwind{Scopes: scopesToUnwind(from, loop.Parent), Target: loop.LoopEndLabel}, true
}

func (b *Builder) PlanContinue(from *Scope, at token.Token) (*Unwind, bool) {
	loop := nearestLoop(from)
	if loop == nil {
		b.bag.Add(diagnostics.New(diagnostics.TypeShapeInvalid, at, "continue outside a loop"))
		return nil, false
	}
	return &Unwind{Scopes: scopesToUnwind(from, loop.Parent), Target: loop.LoopHeadLabel}, true
}

func nearestLoop(s *Scope) *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == LoopScope {
			return cur
		}
	}
	return nil
}

// scopesToUnwind walks from up the parent chain, collecting every scope
// up to but not including stop, innermost first.
func scopesToUnwind(from, stop *Scope) []*Scope {
	var out []*Scope
	for cur := from; cur != nil && cur != stop; cur = cur.Parent {
		out = append(out, cur)
	}
	return out
}

func isAncestorOrSelf(ancestor, s *Scope) bool {
	if ancestor == nil {
		return true // the function root is an ancestor of everything
	}
	for cur := s; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// String renders an Unwind for diagnostics/tests.
func (u *Unwind) String() string {
	return fmt.Sprintf("unwind(%d scopes) -> %s", len(u.Scopes), u.Target)
}
