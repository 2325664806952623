// Package driver implements the compilation session: it orders
// translation units, resolves each function's effect_suffix, drives the
// scope-analysis and inlining transforms followed by the
// refine/linear/match/control-flow checks, and hands a fully-checked
// AST to the IR sink, caching by (name, compile_suffix, effect_suffix)
// so the same variant is never compiled twice. Session-scoped state
// (the inline-id counter, the effect environment, the variant cache) is
// carried as explicit fields here rather than package globals, keeping
// compilation re-entrant and testable.
package driver

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/cfg"
	"github.com/pythoc-lang/pythoc/internal/diagnostics"
	"github.com/pythoc-lang/pythoc/internal/effects"
	"github.com/pythoc-lang/pythoc/internal/inline"
	"github.com/pythoc-lang/pythoc/internal/irsink"
	"github.com/pythoc-lang/pythoc/internal/linear"
	"github.com/pythoc-lang/pythoc/internal/match"
	"github.com/pythoc-lang/pythoc/internal/pipeline"
	"github.com/pythoc-lang/pythoc/internal/refine"
	"github.com/pythoc-lang/pythoc/internal/registry"
	"github.com/pythoc-lang/pythoc/internal/scopeanalyzer"
	"github.com/pythoc-lang/pythoc/internal/token"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// VariantKey identifies one compiled function variant.
type VariantKey struct {
	Name          string
	CompileSuffix string
	EffectSuffix  string
}

func (k VariantKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Name, k.CompileSuffix, k.EffectSuffix)
}

// Session is one driver invocation: a re-entrant context threaded
// through every analysis. Nothing in it mutates global state, so a
// compilation is deterministic given its inputs.
type Session struct {
	ID uuid.UUID // session tag, used only for diagnostics/log correlation — never a source of nondeterminism

	Prelude   *registry.Table
	Effects   *effects.Env
	Propagate *effects.Propagator
	Imports   *effects.ImportCache
	Counter   inline.Counter
	Sink      irsink.Sink

	Bag *diagnostics.Bag

	compiled  map[VariantKey]bool
	compiling map[VariantKey]bool // in-progress set, detects CompileCycle

	kernel *inline.Kernel // lazily built; shares Counter across every inlined call site in the session

	// classifications caches scopeanalyzer.Classify, keyed by bare function
	// name, refreshed whenever a function's body is inline-expanded (the
	// expansion introduces fresh renamed locals that later splices of the
	// same callee must rename again). A call site that inlines a function
	// as a callee reads the cached Classification back instead of
	// recomputing it.
	classifications map[string]scopeanalyzer.Classification

	// inlineExpanded marks function bodies whose inline/generator call
	// sites have already been lowered, so a body expanded at its first
	// call-site use is not re-walked when the function itself compiles.
	inlineExpanded map[string]bool

	// splicing is the set of callee names whose bodies are currently
	// being expanded; encountering one of them again while inside its own
	// expansion is recursive inlining and is rejected.
	splicing map[string]bool
}

// NewSession starts a fresh compilation session.
func NewSession(prelude *registry.Table, sink irsink.Sink) *Session {
	return &Session{
		ID:               uuid.New(),
		Prelude:          prelude,
		Effects:          effects.NewEnv(),
		Propagate:        effects.NewPropagator(),
		Imports:          effects.NewImportCache(),
		Sink:             sink,
		Bag:              diagnostics.NewBag(),
		compiled:         make(map[VariantKey]bool),
		compiling:        make(map[VariantKey]bool),
		classifications:  make(map[string]scopeanalyzer.Classification),
		inlineExpanded:   make(map[string]bool),
		splicing:         make(map[string]bool),
	}
}

// Unit is one decorated translation unit queued for compilation.
type Unit struct {
	Program *ast.Program
}

// CompileAll first registers every function and type declaration across
// all units (so forward references resolve), then compiles every
// `compile`-decorated function in source order, fanning out additional
// suffixed variants as effect overrides require. Units and functions are
// not reordered by call-graph dependency.
func (s *Session) CompileAll(units []Unit) error {
	fnScope := registry.NewEnclosed(s.Prelude, registry.ScopeModule)

	// Pass 1: register every function and type declaration across all
	// units so forward references resolve regardless of unit order.
	for _, u := range units {
		for _, stmt := range u.Program.Statements {
			s.registerTopLevel(stmt, fnScope)
		}
	}

	// Pass 2: compile every `compile`-decorated function at its base
	// variant. Effect-driven fanout (additional suffixed variants) is
	// scheduled as CompileFunction discovers the need for them.
	for _, u := range units {
		for _, stmt := range u.Program.Statements {
			fn, ok := stmt.(*ast.FunctionStatement)
			if !ok || !fn.IsCompileUnit() {
				continue
			}
			if err := s.CompileFunction(fn, fnScope, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Session) registerTopLevel(stmt ast.Statement, scope *registry.Table) {
	switch st := stmt.(type) {
	case *ast.FunctionStatement:
		scope.DefineFunction(st.Name.Value, st.CompileSuffix, "", types.Func{}, st)
	case *ast.ClassDeclaration:
		scope.DefineType(st.Name.Value, types.Struct{})
	}
}

// CompileFunction compiles fn under the session's current effect
// environment, producing the suffix-qualified variant key. The compiled
// set guarantees the same (name, compile_suffix, effect_suffix) triple
// is never compiled twice; the compiling set detects compile cycles.
func (s *Session) CompileFunction(fn *ast.FunctionStatement, scope *registry.Table, effectSuffix string) error {
	key := VariantKey{Name: fn.Name.Value, CompileSuffix: fn.CompileSuffix, EffectSuffix: effectSuffix}
	if s.compiled[key] {
		return nil
	}
	if s.compiling[key] {
		s.Bag.Add(diagnostics.New(diagnostics.CompileCycle, fn.GetToken(),
			"circular compilation dependency on %s", key))
		return fmt.Errorf("compile cycle on %s", key)
	}
	s.compiling[key] = true
	defer delete(s.compiling, key)

	if fn.IsExtern() {
		s.compiled[key] = true
		return nil
	}

	funcScope := registry.NewEnclosed(scope, registry.ScopeFunction)
	paramTypes := make(map[string]types.Type, len(fn.Params))
	for _, p := range fn.Params {
		t := resolveParamType(p)
		paramTypes[p.Name.Value] = t
		funcScope.DefineVariable(p.Name.Value, t, false)
	}

	pctx := pipeline.NewContext(&ast.Program{Statements: []ast.Statement{fn}}, s.Bag)
	pctx.CompileSuffix = fn.CompileSuffix
	pctx.EffectSuffix = effectSuffix

	p := pipeline.New(
		pipeline.ProcessorFunc(func(c *pipeline.Context) *pipeline.Context {
			s.runInline(fn, funcScope, c.Bag)
			c.Data["classification"] = s.classifyCallee(fn)
			return c
		}),
		pipeline.ProcessorFunc(func(c *pipeline.Context) *pipeline.Context {
			s.resolveEffects(fn, funcScope, c.Bag)
			return c
		}),
		pipeline.ProcessorFunc(func(c *pipeline.Context) *pipeline.Context {
			lowerRefineLoops(fn.Body, refine.New(c.Bag))
			return c
		}),
		pipeline.ProcessorFunc(func(c *pipeline.Context) *pipeline.Context {
			lin := linear.New(c.Bag)
			lin.Check(fn, paramTypes)
			return c
		}),
		pipeline.ProcessorFunc(func(c *pipeline.Context) *pipeline.Context {
			walkMatches(fn.Body, paramTypes, c.Bag)
			return c
		}),
		pipeline.ProcessorFunc(func(c *pipeline.Context) *pipeline.Context {
			checkControlFlow(fn.Body, cfg.New(c.Bag))
			return c
		}),
	)
	p.Run(pctx)

	if s.Bag.HasErrors() {
		return fmt.Errorf("compile of %s failed", key)
	}

	symbolName := effects.MangledName(fn.Name.Value, fn.CompileSuffix, effectSuffix)
	s.Sink.EmitFunction(symbolName, fn)

	s.compiled[key] = true
	return nil
}

// runInline splices every inline/generator call site found in fn's body
// before refine lowering, linear checking, match lowering, and CFG
// construction ever see it. Each call site mints its own inline_id from
// the session-wide Counter, so the same source callee inlined at two
// call sites is hygienically distinguished. The expansion is memoized
// per function and re-classifies the expanded body, since expansion
// introduces fresh renamed locals a later splice must rename again.
func (s *Session) runInline(fn *ast.FunctionStatement, scope *registry.Table, bag *diagnostics.Bag) {
	if fn.Body == nil || s.inlineExpanded[fn.Name.Value] {
		return
	}
	if s.kernel == nil {
		s.kernel = inline.New()
	}
	s.splicing[fn.Name.Value] = true
	fn.Body.Statements = s.inlineStatements(fn.Body.Statements, scope, bag)
	delete(s.splicing, fn.Name.Value)
	s.inlineExpanded[fn.Name.Value] = true
	s.classifications[fn.Name.Value] = scopeanalyzer.Classify(fn)
}

// expandCallee lowers every inline/generator call site inside callee's
// own body before that body is substituted anywhere, so nested
// expansions happen innermost-first. A callee reached again while its
// own expansion is still in progress — directly or through a chain of
// inlined bodies — is recursive inlining and is rejected.
func (s *Session) expandCallee(callee *ast.FunctionStatement, scope *registry.Table, at token.Token, bag *diagnostics.Bag) bool {
	if s.splicing[callee.Name.Value] {
		bag.Add(diagnostics.New(diagnostics.RecursiveInline, at,
			"recursive inline of %q detected", callee.Name.Value))
		return false
	}
	s.runInline(callee, scope, bag)
	return true
}

func (s *Session) inlineStatements(stmts []ast.Statement, scope *registry.Table, bag *diagnostics.Bag) []ast.Statement {
	var out []ast.Statement
	for _, stmt := range stmts {
		out = append(out, s.inlineStatement(stmt, scope, bag)...)
	}
	return out
}

// inlineStatement recurses into every statement shape that can hold a call
// site needing inlining, splicing the two concrete forms this core
// supports: a statement-level call to an `inline`-decorated function
// (MacroExitRule) and a `for x in gen(...):` loop driven by a generator
// (YieldExitRule). Everything else passes through unchanged save for its
// own nested blocks being walked the same way.
func (s *Session) inlineStatement(stmt ast.Statement, scope *registry.Table, bag *diagnostics.Bag) []ast.Statement {
	switch st := stmt.(type) {
	case *ast.ExpressionStatement:
		if call, ok := st.Expr.(*ast.CallExpression); ok {
			if spliced, ok := s.spliceMacroCall(call, scope, bag); ok {
				return spliced
			}
		}
		return []ast.Statement{st}
	case *ast.ForStatement:
		// The host loop's own body is expanded first, so a generator
		// splice embeds an already-lowered loop body and the spliced
		// output never needs a second pass.
		st.Body.Statements = s.inlineStatements(st.Body.Statements, scope, bag)
		if st.Else != nil {
			st.Else.Statements = s.inlineStatements(st.Else.Statements, scope, bag)
		}
		if spliced, ok := s.spliceGeneratorFor(st, scope, bag); ok {
			return spliced
		}
		return []ast.Statement{st}
	case *ast.BlockStatement:
		st.Statements = s.inlineStatements(st.Statements, scope, bag)
		return []ast.Statement{st}
	case *ast.IfStatement:
		st.Then.Statements = s.inlineStatements(st.Then.Statements, scope, bag)
		if st.Else != nil {
			st.Else = wrapSingle(s.inlineStatement(st.Else, scope, bag))
		}
		return []ast.Statement{st}
	case *ast.WhileStatement:
		st.Body.Statements = s.inlineStatements(st.Body.Statements, scope, bag)
		if st.Else != nil {
			st.Else.Statements = s.inlineStatements(st.Else.Statements, scope, bag)
		}
		return []ast.Statement{st}
	case *ast.LabelStatement:
		st.Body.Statements = s.inlineStatements(st.Body.Statements, scope, bag)
		return []ast.Statement{st}
	case *ast.EffectOverrideStatement:
		st.Body.Statements = s.inlineStatements(st.Body.Statements, scope, bag)
		return []ast.Statement{st}
	case *ast.MatchStatement:
		for i := range st.Arms {
			st.Arms[i].Body.Statements = s.inlineStatements(st.Arms[i].Body.Statements, scope, bag)
		}
		return []ast.Statement{st}
	default:
		return []ast.Statement{stmt}
	}
}

// wrapSingle collapses a splice back into the single ast.Statement an
// if-statement's Else field requires, wrapping multiple statements in a
// block when a splice produced more than one.
func wrapSingle(stmts []ast.Statement) ast.Statement {
	if len(stmts) == 1 {
		return stmts[0]
	}
	return &ast.BlockStatement{Statements: stmts}
}

// spliceMacroCall inlines call as a statement-level macro expansion
// when its callee is `inline`-decorated and is not a generator.
func (s *Session) spliceMacroCall(call *ast.CallExpression, scope *registry.Table, bag *diagnostics.Bag) ([]ast.Statement, bool) {
	callee, ok := s.resolveCallee(call, scope)
	if !ok || !callee.IsInline() || inline.IsGenerator(callee) {
		return nil, false
	}
	if !s.expandCallee(callee, scope, call.Tok, bag) {
		return nil, false
	}

	id := s.Counter.Next()
	endLabel := fmt.Sprintf("inline_macro_end_%d", id)
	op := &inline.Op{
		InlineID:       id,
		CalleeName:     callee.Name.Value,
		Callee:         callee,
		Classification: s.classifyCallee(callee),
		Args:           call.Args,
		ExitRule:       inline.MacroExitRule{EndLabel: endLabel},
		CallSite:       call.Tok,
	}
	stmts, err := s.kernel.Inline(op, bag)
	if err != nil {
		return nil, false
	}
	return []ast.Statement{&ast.LabelStatement{Tok: call.Tok, Name: endLabel, Body: &ast.BlockStatement{Tok: call.Tok, Statements: stmts}}}, true
}

// spliceGeneratorFor inlines a `for x in gen(...): ... else: ...` loop
// whose iterable calls a generator. The
// host loop's own body becomes YieldExitRule.LoopBody, spliced once per
// `yield` the generator's (preserved) control flow reaches at runtime; a
// `break` in that host body, or a value-less `return` inside the
// generator, jumps to BreakLabel, which wraps the generator's inlined
// body together with the else clause so either skips the else exactly as
// a real for-loop's break does. A bare host `continue`, left unrewritten,
// falls through to the generator's own preserved loop — which is exactly
// the loop driving the next `yield` — so it needs no synthetic label.
func (s *Session) spliceGeneratorFor(forStmt *ast.ForStatement, scope *registry.Table, bag *diagnostics.Bag) ([]ast.Statement, bool) {
	if forStmt.LoopVar == nil {
		return nil, false
	}
	call, ok := forStmt.Iterable.(*ast.CallExpression)
	if !ok {
		return nil, false
	}
	callee, ok := s.resolveCallee(call, scope)
	if !ok || !inline.IsGenerator(callee) {
		return nil, false
	}
	if !s.expandCallee(callee, scope, forStmt.Tok, bag) {
		return nil, false
	}

	id := s.Counter.Next()
	breakLabel := fmt.Sprintf("inline_gen_break_%d", id)
	op := &inline.Op{
		InlineID:       id,
		CalleeName:     callee.Name.Value,
		Callee:         callee,
		Classification: s.classifyCallee(callee),
		Args:           call.Args,
		ExitRule: inline.YieldExitRule{
			LoopVar:    forStmt.LoopVar.Value,
			LoopBody:   forStmt.Body,
			ElseBody:   forStmt.Else,
			BreakLabel: breakLabel,
		},
		CallSite: forStmt.Tok,
	}
	stmts, err := s.kernel.Inline(op, bag)
	if err != nil {
		return nil, false
	}
	if forStmt.Else != nil {
		stmts = append(stmts, forStmt.Else.Statements...)
	}
	return []ast.Statement{&ast.LabelStatement{Tok: forStmt.Tok, Name: breakLabel, Body: &ast.BlockStatement{Tok: forStmt.Tok, Statements: stmts}}}, true
}

// resolveCallee looks up a plain-identifier call's callee function in
// scope, returning ok=false for anything the kernel has no business
// inlining (method calls, type calls, externs, forward-unresolved names).
func (s *Session) resolveCallee(call *ast.CallExpression, scope *registry.Table) (*ast.FunctionStatement, bool) {
	id, ok := call.Callee.(*ast.Identifier)
	if !ok {
		return nil, false
	}
	sym, ok := scope.Lookup(id.Value, "", "")
	if !ok || sym.Kind != registry.FunctionKind {
		return nil, false
	}
	callee, ok := sym.DefinitionNode.(*ast.FunctionStatement)
	if !ok || callee.Body == nil {
		return nil, false
	}
	return callee, true
}

// classifyCallee returns fn's cached Classification, computing and caching
// it on first use — the common case is a cache hit, since expandCallee
// runs (and runInline classifies) before any splice reads it.
func (s *Session) classifyCallee(fn *ast.FunctionStatement) scopeanalyzer.Classification {
	if c, ok := s.classifications[fn.Name.Value]; ok {
		return c
	}
	c := scopeanalyzer.Classify(fn)
	s.classifications[fn.Name.Value] = c
	return c
}

// resolveEffects walks fn's body pushing/popping scoped effect overrides,
// registering pins and defaults, recording fn's direct effect reads and
// call-graph edges into the session Propagator, and recompiling any
// callee whose transitive reads intersect the active override under the
// resulting effect_suffix.
func (s *Session) resolveEffects(fn *ast.FunctionStatement, scope *registry.Table, bag *diagnostics.Bag) {
	if fn.Body == nil {
		return
	}
	s.walkEffectsBlock(fn.Name.Value, scope, fn.Body.Statements, bag)
}

func (s *Session) walkEffectsBlock(fnName string, scope *registry.Table, stmts []ast.Statement, bag *diagnostics.Bag) {
	for _, stmt := range stmts {
		s.walkEffectsStmt(fnName, scope, stmt, bag)
	}
}

func (s *Session) walkEffectsStmt(fnName string, scope *registry.Table, stmt ast.Statement, bag *diagnostics.Bag) {
	switch st := stmt.(type) {
	case *ast.AssignStatement:
		s.walkEffectExpr(fnName, scope, st.Value, bag)
	case *ast.ExpressionStatement:
		s.walkEffectExpr(fnName, scope, st.Expr, bag)
	case *ast.ReturnStatement:
		s.walkEffectExpr(fnName, scope, st.Value, bag)
	case *ast.YieldStatement:
		for _, v := range st.Values {
			s.walkEffectExpr(fnName, scope, v, bag)
		}
	case *ast.DeferStatement:
		s.walkEffectExpr(fnName, scope, st.Callee, bag)
		for _, a := range st.Args {
			s.walkEffectExpr(fnName, scope, a, bag)
		}
	case *ast.BlockStatement:
		s.walkEffectsBlock(fnName, scope, st.Statements, bag)
	case *ast.IfStatement:
		s.walkEffectExpr(fnName, scope, st.Condition, bag)
		s.walkEffectsBlock(fnName, scope, st.Then.Statements, bag)
		if st.Else != nil {
			s.walkEffectsStmt(fnName, scope, st.Else, bag)
		}
	case *ast.WhileStatement:
		s.walkEffectExpr(fnName, scope, st.Condition, bag)
		s.walkEffectsBlock(fnName, scope, st.Body.Statements, bag)
		if st.Else != nil {
			s.walkEffectsBlock(fnName, scope, st.Else.Statements, bag)
		}
	case *ast.ForStatement:
		s.walkEffectExpr(fnName, scope, st.Iterable, bag)
		s.walkEffectsBlock(fnName, scope, st.Body.Statements, bag)
		if st.Else != nil {
			s.walkEffectsBlock(fnName, scope, st.Else.Statements, bag)
		}
	case *ast.MatchStatement:
		s.walkEffectExpr(fnName, scope, st.Subject, bag)
		for _, arm := range st.Arms {
			if arm.Guard != nil {
				s.walkEffectExpr(fnName, scope, arm.Guard, bag)
			}
			s.walkEffectsBlock(fnName, scope, arm.Body.Statements, bag)
		}
	case *ast.LabelStatement:
		s.walkEffectsBlock(fnName, scope, st.Body.Statements, bag)
	case *ast.EffectOverrideStatement:
		bindings := make(map[string]effects.Binding, len(st.Bindings))
		for _, b := range st.Bindings {
			s.walkEffectExpr(fnName, scope, b.Impl, bag)
			bindings[b.Name] = effects.Binding{Impl: b.Impl}
		}
		s.Effects.Push(bindings, st.Suffix, st.Tok, bag)
		s.walkEffectsBlock(fnName, scope, st.Body.Statements, bag)
		s.Effects.Pop()
	case *ast.EffectDefaultStatement:
		s.walkEffectExpr(fnName, scope, st.Impl, bag)
		s.Effects.Default(st.Name, effects.Binding{Impl: st.Impl})
	case *ast.EffectPinStatement:
		s.walkEffectExpr(fnName, scope, st.Impl, bag)
		s.Effects.Pin(st.Name, effects.Binding{Impl: st.Impl}, st.Tok, bag)
	}
}

// walkEffectExpr recurses through an expression recording every
// `effect.X` reference it finds as a read of the enclosing function and
// every plain-identifier call as a call-graph edge, triggering a
// redirected recompile of the callee when the active override demands
// one.
func (s *Session) walkEffectExpr(fnName string, scope *registry.Table, e ast.Expression, bag *diagnostics.Bag) {
	if e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.EffectRef:
		name := ex.Name()
		s.Propagate.RecordReads(fnName, name)
		s.Effects.Resolve(name, ex.Tok, bag)
	case *ast.CallExpression:
		if id, ok := ex.Callee.(*ast.Identifier); ok {
			s.Propagate.RecordCall(fnName, id.Value)
			s.maybeCompileEffectVariant(scope, id.Value, bag)
		} else {
			s.walkEffectExpr(fnName, scope, ex.Callee, bag)
		}
		for _, a := range ex.Args {
			s.walkEffectExpr(fnName, scope, a, bag)
		}
	case *ast.TypeCallExpression:
		for _, a := range ex.Args {
			s.walkEffectExpr(fnName, scope, a, bag)
		}
	case *ast.MemberExpression:
		s.walkEffectExpr(fnName, scope, ex.Left, bag)
	case *ast.IndexExpression:
		s.walkEffectExpr(fnName, scope, ex.Left, bag)
		s.walkEffectExpr(fnName, scope, ex.Index, bag)
	case *ast.BinaryExpression:
		s.walkEffectExpr(fnName, scope, ex.Left, bag)
		s.walkEffectExpr(fnName, scope, ex.Right, bag)
	case *ast.UnaryExpression:
		s.walkEffectExpr(fnName, scope, ex.Operand, bag)
	case *ast.TupleExpression:
		for _, v := range ex.Entries {
			s.walkEffectExpr(fnName, scope, v, bag)
		}
	case *ast.IntrinsicCallExpression:
		for _, a := range ex.Args {
			s.walkEffectExpr(fnName, scope, a, bag)
		}
	case *ast.RefineCallExpression:
		for _, v := range ex.Values {
			s.walkEffectExpr(fnName, scope, v, bag)
		}
		for _, p := range ex.Predicates {
			s.walkEffectExpr(fnName, scope, p, bag)
		}
	case *ast.AssumeCallExpression:
		for _, v := range ex.Values {
			s.walkEffectExpr(fnName, scope, v, bag)
		}
		for _, p := range ex.Predicates {
			s.walkEffectExpr(fnName, scope, p, bag)
		}
	}
}

// maybeCompileEffectVariant redirects calleeName to its effect-suffixed
// variant when the session is currently inside a scoped override whose
// names intersect calleeName's transitive effect-read set, recompiling
// it under s.Effects.ActiveSuffix() so the mangled symbol the caller
// ends up referencing (effects.MangledName) actually exists.
func (s *Session) maybeCompileEffectVariant(scope *registry.Table, calleeName string, bag *diagnostics.Bag) {
	if len(s.Effects.OverriddenNames()) == 0 {
		return
	}
	needs, err := s.Propagate.NeedsVariant(calleeName, s.Effects)
	if err != nil || !needs {
		// A cycle here is also a compile cycle in the ordinary sense and
		// will be reported when the callee is (or already was) itself
		// compiled through the normal CompileFunction path.
		return
	}
	sym, ok := scope.Lookup(calleeName, "", "")
	if !ok || sym.Kind != registry.FunctionKind {
		return
	}
	calleeFn, ok := sym.DefinitionNode.(*ast.FunctionStatement)
	if !ok || calleeFn.Body == nil {
		return
	}
	_ = s.CompileFunction(calleeFn, scope, s.Effects.ActiveSuffix())
}

func resolveParamType(p *ast.Param) types.Type {
	return typeExprToType(p.Type)
}

// typeExprToType is a minimal structural translation from the surface
// TypeExpr AST to the type model covering primitive, pointer, array and
// linear shapes. Every other TypeExpr (struct, enum, refined, and any
// unknown primitive name) maps to types.Void.
func typeExprToType(te ast.TypeExpr) types.Type {
	switch t := te.(type) {
	case *ast.NamedTypeExpr:
		return namedPrimitive(t.Name)
	case *ast.PtrTypeExpr:
		return types.Ptr{Elem: typeExprToType(t.Elem)}
	case *ast.ArrayTypeExpr:
		return types.Array{Elem: typeExprToType(t.Elem), Dims: t.Dims}
	case *ast.LinearTypeExpr:
		return types.Linear{}
	default:
		return types.Void{}
	}
}

func namedPrimitive(name string) types.Type {
	switch name {
	case "i8":
		return types.Int{Signed: true, Width: 8}
	case "i16":
		return types.Int{Signed: true, Width: 16}
	case "i32":
		return types.Int{Signed: true, Width: 32}
	case "i64":
		return types.Int{Signed: true, Width: 64}
	case "u8":
		return types.Int{Signed: false, Width: 8}
	case "u16":
		return types.Int{Signed: false, Width: 16}
	case "u32":
		return types.Int{Signed: false, Width: 32}
	case "u64":
		return types.Int{Signed: false, Width: 64}
	case "f32":
		return types.Float{Kind: types.F32}
	case "f64":
		return types.Float{Kind: types.F64}
	case "bool":
		return types.Bool{}
	default:
		return types.Void{}
	}
}

func walkMatches(block *ast.BlockStatement, paramTypes map[string]types.Type, bag *diagnostics.Bag) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		walkMatchStmt(stmt, paramTypes, bag)
	}
}

func walkMatchStmt(stmt ast.Statement, paramTypes map[string]types.Type, bag *diagnostics.Bag) {
	switch s := stmt.(type) {
	case *ast.MatchStatement:
		if st, ok := matchSubjectType(s.Subject, paramTypes); ok {
			match.New(bag).Check(s, st)
		}
		for _, arm := range s.Arms {
			walkMatches(arm.Body, paramTypes, bag)
		}
	case *ast.IfStatement:
		walkMatches(s.Then, paramTypes, bag)
		if s.Else != nil {
			walkMatchStmt(s.Else, paramTypes, bag)
		}
	case *ast.WhileStatement:
		walkMatches(s.Body, paramTypes, bag)
		walkMatches(s.Else, paramTypes, bag)
	case *ast.ForStatement:
		walkMatches(s.Body, paramTypes, bag)
		walkMatches(s.Else, paramTypes, bag)
	case *ast.BlockStatement:
		walkMatches(s, paramTypes, bag)
	case *ast.LabelStatement:
		walkMatches(s.Body, paramTypes, bag)
	case *ast.EffectOverrideStatement:
		walkMatches(s.Body, paramTypes, bag)
	}
}

// matchSubjectType resolves the static type of a match subject where the
// driver can see it directly: a parameter reference or a literal. Any
// other subject is skipped, and no match check runs for that statement.
func matchSubjectType(e ast.Expression, paramTypes map[string]types.Type) (types.Type, bool) {
	switch ex := e.(type) {
	case *ast.Identifier:
		t, ok := paramTypes[ex.Value]
		return t, ok
	case *ast.BoolLiteral:
		return types.Bool{}, true
	case *ast.IntegerLiteral:
		return types.Int{Signed: true, Width: 32}, true
	default:
		return nil, false
	}
}

// lowerRefineLoops rewrites every `for x in refine(...): ... else: ...`
// loop found (at any nesting depth) into its guard-then-bind form
// before the linear and match passes ever see the body.
func lowerRefineLoops(block *ast.BlockStatement, eng *refine.Engine) {
	if block == nil {
		return
	}
	for i, stmt := range block.Statements {
		if replaced := lowerRefineStmt(stmt, eng); replaced != nil {
			block.Statements[i] = replaced
		}
	}
}

// checkControlFlow builds the scope tree for fn's body and resolves
// every label/goto/break/continue/return against it, reporting
// LabelNotVisible/GotoEndToUncle/TypeShapeInvalid into b's bag. Labels
// are pre-registered in a first pass so forward gotos resolve
// regardless of source order.
func checkControlFlow(body *ast.BlockStatement, b *cfg.Builder) {
	labels := make(map[string]bool)
	collectLabelNames(body, labels)
	for name := range labels {
		b.RegisterForwardLabel(name)
	}
	walkScope(body, b.Root(), b)
}

func collectLabelNames(block *ast.BlockStatement, out map[string]bool) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		collectLabelNamesStmt(stmt, out)
	}
}

func collectLabelNamesStmt(stmt ast.Statement, out map[string]bool) {
	switch s := stmt.(type) {
	case *ast.LabelStatement:
		out[s.Name] = true
		collectLabelNames(s.Body, out)
	case *ast.IfStatement:
		collectLabelNames(s.Then, out)
		if s.Else != nil {
			collectLabelNamesStmt(s.Else, out)
		}
	case *ast.WhileStatement:
		collectLabelNames(s.Body, out)
		collectLabelNames(s.Else, out)
	case *ast.ForStatement:
		collectLabelNames(s.Body, out)
		collectLabelNames(s.Else, out)
	case *ast.BlockStatement:
		collectLabelNames(s, out)
	case *ast.EffectOverrideStatement:
		collectLabelNames(s.Body, out)
	case *ast.MatchStatement:
		for _, arm := range s.Arms {
			collectLabelNames(arm.Body, out)
		}
	}
}

// walkScope drives the scope tree one statement at a time, planning (and
// so validating) every jump it encounters; the resulting Unwind plans
// themselves are the IR emitter's concern, not this core's, so they are
// discarded once Plan* has recorded any diagnostic.
func walkScope(block *ast.BlockStatement, scope *cfg.Scope, b *cfg.Builder) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		walkStmtScope(stmt, scope, b)
	}
}

func walkStmtScope(stmt ast.Statement, scope *cfg.Scope, b *cfg.Builder) {
	switch s := stmt.(type) {
	case *ast.DeferStatement:
		b.RegisterDefer(scope, s)
	case *ast.ReturnStatement:
		b.PlanReturn(scope)
	case *ast.BreakStatement:
		b.PlanBreak(scope, s.GetToken())
	case *ast.ContinueStatement:
		b.PlanContinue(scope, s.GetToken())
	case *ast.GotoStatement:
		if s.Kind == ast.GotoEnd {
			b.PlanGotoEnd(scope, s.Label, s.GetToken())
		} else {
			b.PlanGoto(scope, s.Label, s.GetToken())
		}
	case *ast.BlockStatement:
		walkScope(s, b.EnterBlock(scope), b)
	case *ast.IfStatement:
		walkScope(s.Then, b.EnterBlock(scope), b)
		if s.Else != nil {
			walkStmtScope(s.Else, scope, b)
		}
	case *ast.WhileStatement:
		loop := b.EnterLoop(scope, "", "")
		walkScope(s.Body, loop, b)
		walkScope(s.Else, scope, b)
	case *ast.ForStatement:
		loop := b.EnterLoop(scope, "", "")
		walkScope(s.Body, loop, b)
		walkScope(s.Else, scope, b)
	case *ast.LabelStatement:
		walkScope(s.Body, b.EnterLabel(scope, s.Name), b)
	case *ast.EffectOverrideStatement:
		walkScope(s.Body, b.EnterBlock(scope), b)
	case *ast.MatchStatement:
		for _, arm := range s.Arms {
			walkScope(arm.Body, b.EnterBlock(scope), b)
		}
	}
}

func lowerRefineStmt(stmt ast.Statement, eng *refine.Engine) ast.Statement {
	switch s := stmt.(type) {
	case *ast.ForStatement:
		lowerRefineLoops(s.Body, eng)
		lowerRefineLoops(s.Else, eng)
		refineExpr, ok := s.Iterable.(*ast.RefineCallExpression)
		if !ok {
			return nil
		}
		lowered, err := eng.LowerRefineFor(s, refineExpr, types.Refined{}, s.Else)
		if err != nil {
			return nil
		}
		return lowered
	case *ast.IfStatement:
		lowerRefineLoops(s.Then, eng)
		if s.Else != nil {
			if replaced := lowerRefineStmt(s.Else, eng); replaced != nil {
				s.Else = replaced
			}
		}
	case *ast.WhileStatement:
		lowerRefineLoops(s.Body, eng)
		lowerRefineLoops(s.Else, eng)
	case *ast.BlockStatement:
		lowerRefineLoops(s, eng)
	case *ast.LabelStatement:
		lowerRefineLoops(s.Body, eng)
	case *ast.EffectOverrideStatement:
		lowerRefineLoops(s.Body, eng)
	case *ast.MatchStatement:
		for _, arm := range s.Arms {
			lowerRefineLoops(arm.Body, eng)
		}
	}
	return nil
}
