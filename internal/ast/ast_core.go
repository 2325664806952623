// Package ast defines the host-language AST surface the compiler
// consumes: function/class definitions, with-statements (for
// label/override scopes), match/case, loops, annotated assignments,
// decorator/intrinsic markers, and attribute access. Every node carries
// a token.Token for diagnostics and a TokenLiteral()/GetToken() pair
// with a nil-receiver guard. Tree walking uses a plain type switch
// rather than a double-dispatch Visitor: the node catalogue is far
// smaller than a full host-language grammar and a switch is
// proportionate to it.
package ast

import (
	"github.com/pythoc-lang/pythoc/internal/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	GetToken() token.Token
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
}

// Decorator is a semantic marker attached to a declaration: compile,
// extern(lib=...), enum(tag_type=...), inline. Decorators are data on
// the AST node, never live callable objects.
type Decorator struct {
	Token token.Token
	Name  string
	Args  map[string]Expression
}

// Program is the root node of one translation unit's AST.
type Program struct {
	File       string
	Package    string
	Imports    []*ImportStatement
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}
func (p *Program) GetToken() token.Token {
	if p == nil || len(p.Statements) == 0 {
		return token.Token{}
	}
	return p.Statements[0].GetToken()
}

// ImportStatement brings a module into scope; cimport is modeled as an
// ImportStatement with CImport set, carrying the extern library group
// it declares.
type ImportStatement struct {
	Tok     token.Token
	Path    string
	Alias   string
	CImport bool
	Lib     string // set when CImport is true: the extern(lib=...) tag
}

func (is *ImportStatement) statementNode()        {}
func (is *ImportStatement) TokenLiteral() string   { return is.Tok.Lexeme }
func (is *ImportStatement) GetToken() token.Token  { return is.Tok }

// Identifier is a name reference.
type Identifier struct {
	Tok   token.Token
	Value string
}

func (i *Identifier) expressionNode()       {}
func (i *Identifier) TokenLiteral() string  { return i.Tok.Lexeme }
func (i *Identifier) GetToken() token.Token {
	if i == nil {
		return token.Token{}
	}
	return i.Tok
}

// EffectRef is the `effect.X.Y` compile-time reference resolved via the
// three-tier priority (pin > scoped override > default). Path is the
// dotted name after "effect.", e.g. ["rng", "next"].
type EffectRef struct {
	Tok  token.Token
	Path []string
}

func (e *EffectRef) expressionNode()       {}
func (e *EffectRef) TokenLiteral() string  { return e.Tok.Lexeme }
func (e *EffectRef) GetToken() token.Token { return e.Tok }

func (e *EffectRef) Name() string {
	if len(e.Path) == 0 {
		return ""
	}
	return e.Path[0]
}

// FunctionStatement is a function definition, optionally carrying
// decorators (compile, extern, inline).
type FunctionStatement struct {
	Tok         token.Token
	Name        *Identifier
	Decorators  []Decorator
	Params      []*Param
	ResultType  TypeExpr
	Body        *BlockStatement // nil for extern declarations
	CompileSuffix string        // per-call annotation naming an extra compiled variant; non-propagating
}

func (fs *FunctionStatement) statementNode()       {}
func (fs *FunctionStatement) TokenLiteral() string { return fs.Tok.Lexeme }
func (fs *FunctionStatement) GetToken() token.Token {
	if fs == nil {
		return token.Token{}
	}
	return fs.Tok
}

// HasDecorator reports whether fs carries a decorator named name and
// returns it.
func (fs *FunctionStatement) HasDecorator(name string) (Decorator, bool) {
	for _, d := range fs.Decorators {
		if d.Name == name {
			return d, true
		}
	}
	return Decorator{}, false
}

func (fs *FunctionStatement) IsCompileUnit() bool { _, ok := fs.HasDecorator("compile"); return ok }
func (fs *FunctionStatement) IsExtern() bool      { _, ok := fs.HasDecorator("extern"); return ok }
func (fs *FunctionStatement) IsInline() bool      { _, ok := fs.HasDecorator("inline"); return ok }

// Param is one function parameter.
type Param struct {
	Tok  token.Token
	Name *Identifier
	Type TypeExpr
}

// ClassDeclaration models a struct or enum declaration (a class
// definition in the host syntax). IsEnum distinguishes the two; enum
// variants with Payload == nil carry no payload.
type ClassDeclaration struct {
	Tok        token.Token
	Name       *Identifier
	Decorators []Decorator
	IsEnum     bool
	TagType    TypeExpr       // set when IsEnum, from enum(tag_type=...)
	Fields     []*Param       // struct fields
	Variants   []*EnumVariant // enum variants
}

func (cd *ClassDeclaration) statementNode()       {}
func (cd *ClassDeclaration) TokenLiteral() string { return cd.Tok.Lexeme }
func (cd *ClassDeclaration) GetToken() token.Token {
	if cd == nil {
		return token.Token{}
	}
	return cd.Tok
}

// EnumVariant is one arm of an enum(tag_type=...) class declaration.
type EnumVariant struct {
	Tok     token.Token
	Name    *Identifier
	Tag     int64
	Payload TypeExpr // nil for ": None" variants
}

// BlockStatement is a braced sequence of statements.
type BlockStatement struct {
	Tok        token.Token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Tok.Lexeme }
func (bs *BlockStatement) GetToken() token.Token {
	if bs == nil {
		return token.Token{}
	}
	return bs.Tok
}

// ExpressionStatement wraps a bare expression used as a statement.
type ExpressionStatement struct {
	Tok  token.Token
	Expr Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Tok.Lexeme }
func (es *ExpressionStatement) GetToken() token.Token { return es.Tok }

// AssignStatement is an annotated or plain assignment: `t: linear = e`,
// `x = e`, or a declaration-only `t: linear` with no initializer.
type AssignStatement struct {
	Tok        token.Token
	Target     Expression // usually *Identifier, may be a field-path MemberExpression
	TypeAnnot  TypeExpr   // optional
	Value      Expression // nil for a declaration with no initializer
	IsConstDecl bool      // `:-` binding: immutable
}

func (as *AssignStatement) statementNode()       {}
func (as *AssignStatement) TokenLiteral() string { return as.Tok.Lexeme }
func (as *AssignStatement) GetToken() token.Token { return as.Tok }

// ReturnStatement. Value is nil for a value-less `return`.
type ReturnStatement struct {
	Tok   token.Token
	Value Expression
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Tok.Lexeme }
func (rs *ReturnStatement) GetToken() token.Token { return rs.Tok }

// YieldStatement. Values holds more than one entry for a tuple yield.
type YieldStatement struct {
	Tok    token.Token
	Values []Expression
}

func (ys *YieldStatement) statementNode()       {}
func (ys *YieldStatement) TokenLiteral() string { return ys.Tok.Lexeme }
func (ys *YieldStatement) GetToken() token.Token { return ys.Tok }

// BreakStatement / ContinueStatement target the innermost enclosing loop
// unless rewritten by the inline kernel's Yield exit rule.
type BreakStatement struct{ Tok token.Token }

func (b *BreakStatement) statementNode()       {}
func (b *BreakStatement) TokenLiteral() string { return b.Tok.Lexeme }
func (b *BreakStatement) GetToken() token.Token { return b.Tok }

type ContinueStatement struct{ Tok token.Token }

func (c *ContinueStatement) statementNode()       {}
func (c *ContinueStatement) TokenLiteral() string { return c.Tok.Lexeme }
func (c *ContinueStatement) GetToken() token.Token { return c.Tok }

// IfStatement. Else may be nil, a *BlockStatement, or another
// *IfStatement (else-if chaining).
type IfStatement struct {
	Tok       token.Token
	Condition Expression
	Then      *BlockStatement
	Else      Statement
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Tok.Lexeme }
func (is *IfStatement) GetToken() token.Token { return is.Tok }

// WhileStatement. Else runs only on normal completion (no break).
type WhileStatement struct {
	Tok       token.Token
	Condition Expression
	Body      *BlockStatement
	Else      *BlockStatement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Tok.Lexeme }
func (ws *WhileStatement) GetToken() token.Token { return ws.Tok }

// ForStatement. A plain `for x in iterable:` loop; `for x in
// refine(...):` is recognized by RefineEngine as a special form of Iter
// whose Iterable is a *RefineCallExpression (see ast_expressions.go).
type ForStatement struct {
	Tok      token.Token
	LoopVar  *Identifier
	Iterable Expression
	Body     *BlockStatement
	Else     *BlockStatement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Tok.Lexeme }
func (fs *ForStatement) GetToken() token.Token { return fs.Tok }

// DeferStatement registers a scope-exit call; arguments are captured by
// value at registration.
type DeferStatement struct {
	Tok    token.Token
	Callee Expression
	Args   []Expression
}

func (ds *DeferStatement) statementNode()       {}
func (ds *DeferStatement) TokenLiteral() string { return ds.Tok.Lexeme }
func (ds *DeferStatement) GetToken() token.Token { return ds.Tok }

// LabelStatement declares a named scope with two jump targets, begin
// and end. `with label("X"): <body>` compiles to one of these.
type LabelStatement struct {
	Tok  token.Token
	Name string
	Body *BlockStatement
}

func (ls *LabelStatement) statementNode()       {}
func (ls *LabelStatement) TokenLiteral() string { return ls.Tok.Lexeme }
func (ls *LabelStatement) GetToken() token.Token { return ls.Tok }

// GotoKind distinguishes the three goto forms.
type GotoKind int

const (
	GotoPlain GotoKind = iota
	GotoBegin          // alias of GotoPlain, kept distinct for diagnostics
	GotoEnd
)

// GotoStatement. `goto("X")`, `goto_begin("X")`, or `goto_end("X")`.
type GotoStatement struct {
	Tok   token.Token
	Kind  GotoKind
	Label string
}

func (gs *GotoStatement) statementNode()       {}
func (gs *GotoStatement) TokenLiteral() string { return gs.Tok.Lexeme }
func (gs *GotoStatement) GetToken() token.Token { return gs.Tok }

// EffectOverrideStatement models `with effect(name=impl, suffix=S):
// <body>`: a scoped override pushed on entry, popped on exit.
type EffectOverrideStatement struct {
	Tok       token.Token
	Bindings  []EffectOverrideBinding
	Suffix    string // mandatory if len(Bindings) > 0
	Body      *BlockStatement
}

func (es *EffectOverrideStatement) statementNode()       {}
func (es *EffectOverrideStatement) TokenLiteral() string { return es.Tok.Lexeme }
func (es *EffectOverrideStatement) GetToken() token.Token { return es.Tok }

// EffectOverrideBinding is one `name=impl` pair inside a with-effect
// statement.
type EffectOverrideBinding struct {
	Name string
	Impl Expression
}

// EffectDefaultStatement models `effect.default(name=impl)`.
type EffectDefaultStatement struct {
	Tok  token.Token
	Name string
	Impl Expression
}

func (ed *EffectDefaultStatement) statementNode()       {}
func (ed *EffectDefaultStatement) TokenLiteral() string { return ed.Tok.Lexeme }
func (ed *EffectDefaultStatement) GetToken() token.Token { return ed.Tok }

// EffectPinStatement models `effect.name = impl`.
type EffectPinStatement struct {
	Tok  token.Token
	Name string
	Impl Expression
}

func (ep *EffectPinStatement) statementNode()       {}
func (ep *EffectPinStatement) TokenLiteral() string { return ep.Tok.Lexeme }
func (ep *EffectPinStatement) GetToken() token.Token { return ep.Tok }
