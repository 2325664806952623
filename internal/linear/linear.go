// Package linear implements the path-sensitive ownership checker. It
// walks a function body statement by statement, threading a state map
// through branches, loops, defers, and label/goto targets, tracking
// every `(variable, field-path)` slot whose type transitively contains
// a linear marker.
package linear

import (
	"sort"
	"strings"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/token"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// State is a linear slot's ownership state.
type State int

const (
	Live State = iota
	Consumed
	Undefined
)

func (s State) String() string {
	switch s {
	case Live:
		return "live"
	case Consumed:
		return "consumed"
	default:
		return "undefined"
	}
}

// Slots is the function-wide state map: field-path key (e.g. "t",
// "s.0") to State.
type Slots map[string]State

// Clone returns an independent copy, used whenever control flow forks.
func (s Slots) Clone() Slots {
	out := make(Slots, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Join merges two incoming states at a control-flow join point: the
// result is Undefined if either side is Undefined, Live if both are
// Live, Consumed if both are Consumed, and incompatible otherwise.
// Join reports every slot whose incoming states were incompatible.
func Join(a, b Slots) (Slots, []string) {
	out := make(Slots, len(a))
	var bad []string
	seen := make(map[string]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	for k := range seen {
		sa, oka := a[k]
		sb, okb := b[k]
		if !oka {
			sa = Undefined
		}
		if !okb {
			sb = Undefined
		}
		switch {
		case sa == Undefined || sb == Undefined:
			out[k] = Undefined
		case sa == Live && sb == Live:
			out[k] = Live
		case sa == Consumed && sb == Consumed:
			out[k] = Consumed
		default:
			out[k] = Undefined
			bad = append(bad, k)
		}
	}
	sort.Strings(bad)
	return out, bad
}

// DeferEntry is one registered scope-exit call: the callee, its
// captured argument expressions, and which of those arguments are
// themselves linear slots not yet transferred — those transfer
// (consume) only when the deferred call actually executes.
type DeferEntry struct {
	Callee     ast.Expression
	Args       []ast.Expression
	LinearArgs []string // field-path keys among Args not yet consumed
}

// scope is one live lexical scope's defer list, replayed in FIFO order
// on scope exit.
type scope struct {
	defers []DeferEntry
}

// loopCtx collects the states flowing out of a loop body through its
// break and continue statements: continues rejoin the loop head (a back
// edge), breaks rejoin the code after the loop.
type loopCtx struct {
	breaks    []Slots
	continues []Slots
}

// exitKind describes how control leaves a statement: by falling through
// to its successor, or by a jump that never reaches it.
type exitKind int

const (
	exitNone exitKind = iota // falls through
	exitLoop                 // break/continue: resolves at the nearest enclosing loop
	exitFunc                 // return: resolves at the function boundary
	exitGoto                 // goto/goto_end: resolves at the named label
)

// exit is a statement's termination verdict; label is set for exitGoto
// so the enclosing LabelStatement can recognize a jump that resolves
// inside itself.
type exit struct {
	kind  exitKind
	label string
}

// Checker runs the linear checker for one function body.
type Checker struct {
	fieldPaths func(t types.Type) []string // delegates to types.LinearFieldPaths
	bag        *diagnostics.Bag
	scopes     []*scope
	loops      []*loopCtx
	labels     map[string]Slots // snapshot of state at each LabelStatement entry, for goto targets
}

// New returns a Checker that reports into bag.
func New(bag *diagnostics.Bag) *Checker {
	return &Checker{fieldPaths: types.LinearFieldPaths, bag: bag, labels: make(map[string]Slots)}
}

// pushScope / popScope bracket one lexical scope's lifetime, running its
// defers in FIFO order on exit and consuming any linear defer argument
// that hadn't yet transferred — a defer's linear args are not consumed
// at registration, only when the deferred call executes at scope exit.
func (c *Checker) pushScope() {
	c.scopes = append(c.scopes, &scope{})
}

func (c *Checker) popScope(slots Slots, at token.Token) {
	top := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]
	for _, d := range top.defers {
		for _, path := range d.LinearArgs {
			slots[path] = Consumed
		}
	}
	_ = at
}

func (c *Checker) registerDefer(d DeferEntry) {
	top := c.scopes[len(c.scopes)-1]
	top.defers = append(top.defers, d)
}

// Check runs the checker over fn's body, given the declared type of each
// parameter (so linear parameters start Live). It reports
// LinearExitNotConsumed for any slot still Live or Undefined at
// function exit: every slot must end Consumed on every path.
func (c *Checker) Check(fn *ast.FunctionStatement, paramTypes map[string]types.Type) {
	c.pushScope()
	slots := make(Slots)
	for name, t := range paramTypes {
		for _, path := range c.fieldPaths(t) {
			slots[qualify(name, path)] = Live
		}
	}
	if fn.Body != nil {
		slots, _ = c.walkBlock(fn.Body, slots)
	}
	c.popScope(slots, fn.GetToken())
	c.checkExitConsumed(slots, fn.GetToken())
}

func qualify(name, path string) string {
	if path == "" {
		return name
	}
	return name + "." + path
}

func (c *Checker) checkExitConsumed(slots Slots, at token.Token) {
	var unconsumed []string
	for k, s := range slots {
		if s != Consumed {
			unconsumed = append(unconsumed, k)
		}
	}
	if len(unconsumed) == 0 {
		return
	}
	sort.Strings(unconsumed)
	c.bag.Add(diagnostics.New(diagnostics.LinearExitNotConsumed, at,
		"linear slot(s) not consumed on exit: %s", strings.Join(unconsumed, ", ")).
		WithWitness(unconsumed))
}

// walkBlock threads slots sequentially through stmts, pushing/popping a
// fresh lexical scope so any defers registered inside run on block exit.
// Statements after one that terminated (returned, broke, jumped) are
// unreachable from it and are not analyzed.
func (c *Checker) walkBlock(block *ast.BlockStatement, slots Slots) (Slots, exit) {
	c.pushScope()
	ex := exit{}
	for _, stmt := range block.Statements {
		if ex.kind != exitNone {
			break
		}
		slots, ex = c.walkStmt(stmt, slots)
	}
	c.popScope(slots, block.GetToken())
	return slots, ex
}

func (c *Checker) walkStmt(stmt ast.Statement, slots Slots) (Slots, exit) {
	switch s := stmt.(type) {
	case *ast.AssignStatement:
		return c.walkAssign(s, slots), exit{}
	case *ast.ExpressionStatement:
		c.consumeLinearArgsIn(s.Expr, slots)
		return slots, exit{}
	case *ast.ReturnStatement:
		return c.walkReturn(s, slots), exit{kind: exitFunc}
	case *ast.BreakStatement:
		if n := len(c.loops); n > 0 {
			c.loops[n-1].breaks = append(c.loops[n-1].breaks, slots.Clone())
		}
		return slots, exit{kind: exitLoop}
	case *ast.ContinueStatement:
		if n := len(c.loops); n > 0 {
			c.loops[n-1].continues = append(c.loops[n-1].continues, slots.Clone())
		}
		return slots, exit{kind: exitLoop}
	case *ast.IfStatement:
		return c.walkIf(s, slots)
	case *ast.WhileStatement:
		return c.walkLoop(s.Tok, s.Body, s.Else, slots)
	case *ast.ForStatement:
		return c.walkLoop(s.Tok, s.Body, s.Else, slots)
	case *ast.MatchStatement:
		return c.walkMatch(s, slots)
	case *ast.DeferStatement:
		return c.walkDefer(s, slots), exit{}
	case *ast.LabelStatement:
		c.labels[s.Name] = slots.Clone()
		out, ex := c.walkBlock(s.Body, slots)
		// A goto resolving at this very label lands at its begin/end
		// target, so control still flows past the label statement.
		if ex.kind == exitGoto && ex.label == s.Name {
			ex = exit{}
		}
		return out, ex
	case *ast.GotoStatement:
		c.walkGoto(s, slots)
		return slots, exit{kind: exitGoto, label: s.Label}
	case *ast.BlockStatement:
		return c.walkBlock(s, slots)
	case *ast.EffectOverrideStatement:
		return c.walkBlock(s.Body, slots)
	default:
		return slots, exit{}
	}
}

func (c *Checker) walkAssign(s *ast.AssignStatement, slots Slots) Slots {
	target, isIdent := s.Target.(*ast.Identifier)

	// Declaration with no initializer: `t: linear` -> Undefined.
	if s.Value == nil {
		if isIdent {
			slots[target.Value] = Undefined
		}
		return slots
	}

	// `t = linear()` -> Live, erroring LinearOverwrite if already Live.
	if isCreateLinear(s.Value) && isIdent {
		if st, ok := slots[target.Value]; ok && st == Live {
			c.bag.Add(diagnostics.New(diagnostics.LinearOverwrite, s.Tok,
				"linear slot %q overwritten while still live", target.Value))
		}
		slots[target.Value] = Live
		return slots
	}

	// `t2 = move(t)` -> t Consumed, t2 Live, an atomic transfer,
	// distinct from the generic consume-in-expression walk below since
	// move's target slot must itself become Live rather than merely
	// having its argument consumed.
	if moveArg, ok := moveSource(s.Value); ok && isIdent {
		c.consumeIdent(moveArg, slots, s.Tok)
		slots[target.Value] = Live
		return slots
	}

	c.consumeLinearArgsIn(s.Value, slots)

	// Copy-by-assignment of an existing linear identifier is forbidden.
	if src, ok := s.Value.(*ast.Identifier); ok && isIdent {
		if _, tracked := slots[src.Value]; tracked {
			c.bag.Add(diagnostics.New(diagnostics.LinearCopy, s.Tok,
				"linear slot %q copied by assignment to %q", src.Value, target.Value))
		}
	}
	return slots
}

func isCreateLinear(e ast.Expression) bool {
	ic, ok := e.(*ast.IntrinsicCallExpression)
	return ok && ic.Kind == ast.IntrinsicLinear
}

// moveSource reports the single argument of a `move(t)` intrinsic call,
// if e is one.
func moveSource(e ast.Expression) (ast.Expression, bool) {
	ic, ok := e.(*ast.IntrinsicCallExpression)
	if !ok || ic.Kind != ast.IntrinsicMove || len(ic.Args) != 1 {
		return nil, false
	}
	return ic.Args[0], true
}

// consumeLinearArgsIn walks expr's immediate call arguments and any
// explicit consume()/move() intrinsic, transitioning referenced slots to
// Consumed and reporting LinearUseAfterConsume / LinearUndefined for any
// slot not in a transition-eligible state — passing a linear argument
// to a call consumes it.
func (c *Checker) consumeLinearArgsIn(expr ast.Expression, slots Slots) {
	switch e := expr.(type) {
	case *ast.IntrinsicCallExpression:
		if e.Kind == ast.IntrinsicConsume || e.Kind == ast.IntrinsicMove {
			for _, arg := range e.Args {
				c.consumeIdent(arg, slots, e.Tok)
			}
			return
		}
		for _, arg := range e.Args {
			c.consumeLinearArgsIn(arg, slots)
		}
	case *ast.CallExpression:
		for _, arg := range e.Args {
			if id, ok := arg.(*ast.Identifier); ok {
				if _, tracked := slots[id.Value]; tracked {
					c.consumeIdent(arg, slots, e.Tok)
					continue
				}
			}
			c.consumeLinearArgsIn(arg, slots)
		}
	case *ast.BinaryExpression:
		c.consumeLinearArgsIn(e.Left, slots)
		c.consumeLinearArgsIn(e.Right, slots)
	case *ast.UnaryExpression:
		c.consumeLinearArgsIn(e.Operand, slots)
	case *ast.TupleExpression:
		for _, v := range e.Entries {
			c.consumeLinearArgsIn(v, slots)
		}
	}
}

func (c *Checker) consumeIdent(expr ast.Expression, slots Slots, at token.Token) {
	id, ok := expr.(*ast.Identifier)
	if !ok {
		return
	}
	st, tracked := slots[id.Value]
	if !tracked {
		return
	}
	switch st {
	case Live:
		slots[id.Value] = Consumed
	case Consumed:
		c.bag.Add(diagnostics.New(diagnostics.LinearUseAfterConsume, at,
			"linear slot %q used after consume", id.Value))
	case Undefined:
		c.bag.Add(diagnostics.New(diagnostics.LinearUndefined, at,
			"linear slot %q used while undefined", id.Value))
	}
}

func (c *Checker) walkReturn(s *ast.ReturnStatement, slots Slots) Slots {
	if s.Value == nil {
		return slots
	}
	// Every linear slot referenced directly in the returned value
	// transitions to Consumed: returning a slot moves it out to the
	// caller.
	for _, id := range identifiersIn(s.Value) {
		if _, tracked := slots[id]; tracked {
			slots[id] = Consumed
		}
	}
	c.consumeLinearArgsIn(s.Value, slots)
	return slots
}

func identifiersIn(e ast.Expression) []string {
	switch ex := e.(type) {
	case *ast.Identifier:
		return []string{ex.Value}
	case *ast.TupleExpression:
		var out []string
		for _, v := range ex.Entries {
			out = append(out, identifiersIn(v)...)
		}
		return out
	default:
		return nil
	}
}

func (c *Checker) walkIf(s *ast.IfStatement, slots Slots) (Slots, exit) {
	thenSlots, thenEx := c.walkBlock(s.Then, slots.Clone())
	elseSlots, elseEx := slots.Clone(), exit{}
	if s.Else != nil {
		elseSlots, elseEx = c.walkStmt(s.Else, slots.Clone())
	}
	// A branch that already left (returned, broke, jumped) never reaches
	// the post-if join point and contributes no state to it.
	switch {
	case thenEx.kind != exitNone && elseEx.kind != exitNone:
		if thenEx == elseEx {
			return thenSlots, thenEx
		}
		return thenSlots, exit{kind: exitFunc}
	case thenEx.kind != exitNone:
		return elseSlots, exit{}
	case elseEx.kind != exitNone:
		return thenSlots, exit{}
	}
	merged, bad := Join(thenSlots, elseSlots)
	c.reportInconsistentMerge(bad, s.Tok)
	return merged, exit{}
}

// walkLoop analyzes one while/for loop. The back edge is a merge: it is
// reached by normal fallthrough at the body's end and by every continue,
// never by a body that broke or returned. The code after the loop is
// reached by the header's normal exit and by every break; the else
// clause runs only on normal completion, before the break states rejoin.
func (c *Checker) walkLoop(tok token.Token, body, elseBlock *ast.BlockStatement, slots Slots) (Slots, exit) {
	lc := &loopCtx{}
	c.loops = append(c.loops, lc)
	bodyEntry := slots.Clone()
	bodyExit, bodyEx := c.walkBlock(body, bodyEntry.Clone())
	c.loops = c.loops[:len(c.loops)-1]

	backStates := append([]Slots(nil), lc.continues...)
	if bodyEx.kind == exitNone {
		backStates = append(backStates, bodyExit)
	}
	for _, bs := range backStates {
		_, bad := Join(bodyEntry, bs)
		c.reportInconsistentMerge(bad, tok)
	}

	normal := bodyEntry.Clone()
	if bodyEx.kind == exitNone {
		normal = bodyExit.Clone()
	}
	if elseBlock != nil {
		normal, _ = c.walkBlock(elseBlock, normal)
	}
	after := normal
	for _, bs := range lc.breaks {
		var bad []string
		after, bad = Join(after, bs)
		c.reportInconsistentMerge(bad, tok)
	}
	return after, exit{}
}

func (c *Checker) walkMatch(s *ast.MatchStatement, slots Slots) (Slots, exit) {
	if len(s.Arms) == 0 {
		return slots, exit{}
	}
	var merged Slots
	haveMerged := false
	lastSlots, lastEx := slots, exit{}
	for _, arm := range s.Arms {
		armSlots, armEx := c.walkBlock(arm.Body, slots.Clone())
		lastSlots, lastEx = armSlots, armEx
		if armEx.kind != exitNone {
			continue
		}
		if !haveMerged {
			merged, haveMerged = armSlots, true
			continue
		}
		var bad []string
		merged, bad = Join(merged, armSlots)
		c.reportInconsistentMerge(bad, arm.Tok)
	}
	if !haveMerged {
		// Every arm terminated; nothing falls through to the join.
		return lastSlots, lastEx
	}
	return merged, exit{}
}

func (c *Checker) walkDefer(s *ast.DeferStatement, slots Slots) Slots {
	var linearArgs []string
	for _, arg := range s.Args {
		if id, ok := arg.(*ast.Identifier); ok {
			if st, tracked := slots[id.Value]; tracked && st == Live {
				linearArgs = append(linearArgs, id.Value)
			}
		}
	}
	c.registerDefer(DeferEntry{Callee: s.Callee, Args: s.Args, LinearArgs: linearArgs})
	return slots
}

func (c *Checker) walkGoto(s *ast.GotoStatement, slots Slots) {
	target, ok := c.labels[s.Label]
	if !ok {
		return // LabelNotVisible is reported by the CFG builder, not here.
	}
	_, bad := Join(target, slots)
	c.reportInconsistentMerge(bad, s.Tok)
}

func (c *Checker) reportInconsistentMerge(bad []string, at token.Token) {
	if len(bad) == 0 {
		return
	}
	c.bag.Add(diagnostics.New(diagnostics.LinearInconsistentMerge, at,
		"inconsistent linear state across branches for: %s", strings.Join(bad, ", ")).
		WithWitness(bad))
}

// Slot formats the witness key for a field-path slot, used by callers
// building diagnostic messages outside this package.
func Slot(variable, path string) string {
	return qualify(variable, path)
}
