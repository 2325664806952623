package ast

import "github.com/pythoc-lang/pythoc/internal/token"

// IntegerLiteral.
type IntegerLiteral struct {
	Tok   token.Token
	Value int64
}

func (l *IntegerLiteral) expressionNode()       {}
func (l *IntegerLiteral) TokenLiteral() string  { return l.Tok.Lexeme }
func (l *IntegerLiteral) GetToken() token.Token { return l.Tok }

// FloatLiteral.
type FloatLiteral struct {
	Tok   token.Token
	Value float64
}

func (l *FloatLiteral) expressionNode()       {}
func (l *FloatLiteral) TokenLiteral() string  { return l.Tok.Lexeme }
func (l *FloatLiteral) GetToken() token.Token { return l.Tok }

// BoolLiteral.
type BoolLiteral struct {
	Tok   token.Token
	Value bool
}

func (l *BoolLiteral) expressionNode()       {}
func (l *BoolLiteral) TokenLiteral() string  { return l.Tok.Lexeme }
func (l *BoolLiteral) GetToken() token.Token { return l.Tok }

// StringLiteral (used only for decorator arguments and extern lib tags —
// there are no runtime string objects in this C-level core).
type StringLiteral struct {
	Tok   token.Token
	Value string
}

func (l *StringLiteral) expressionNode()       {}
func (l *StringLiteral) TokenLiteral() string  { return l.Tok.Lexeme }
func (l *StringLiteral) GetToken() token.Token { return l.Tok }

// CallExpression. Callee is usually an *Identifier, a *MemberExpression
// (method-style call), or a TypeExpr (subscripted type call, e.g.
// `array[i32, 5]()` — see TypeCallExpression below).
type CallExpression struct {
	Tok    token.Token
	Callee Expression
	Args   []Expression
}

func (c *CallExpression) expressionNode()       {}
func (c *CallExpression) TokenLiteral() string  { return c.Tok.Lexeme }
func (c *CallExpression) GetToken() token.Token { return c.Tok }

// TypeCallExpression is the subscripted-type call form
// `array[i32, 5]()`, `RefinedTypeName(v)`, or a `refined[pred]` instance
// construction. Type carries the TypeExpr subscripted; Args are the
// constructor call's arguments.
type TypeCallExpression struct {
	Tok  token.Token
	Type TypeExpr
	Args []Expression
}

func (c *TypeCallExpression) expressionNode()       {}
func (c *TypeCallExpression) TokenLiteral() string  { return c.Tok.Lexeme }
func (c *TypeCallExpression) GetToken() token.Token { return c.Tok }

// MemberExpression is attribute access, `obj.field`.
type MemberExpression struct {
	Tok    token.Token
	Left   Expression
	Member string
}

func (m *MemberExpression) expressionNode()       {}
func (m *MemberExpression) TokenLiteral() string  { return m.Tok.Lexeme }
func (m *MemberExpression) GetToken() token.Token { return m.Tok }

// IndexExpression is `arr[i]`.
type IndexExpression struct {
	Tok   token.Token
	Left  Expression
	Index Expression
}

func (ix *IndexExpression) expressionNode()       {}
func (ix *IndexExpression) TokenLiteral() string  { return ix.Tok.Lexeme }
func (ix *IndexExpression) GetToken() token.Token { return ix.Tok }

// BinaryExpression.
type BinaryExpression struct {
	Tok      token.Token
	Operator string
	Left     Expression
	Right    Expression
}

func (b *BinaryExpression) expressionNode()       {}
func (b *BinaryExpression) TokenLiteral() string  { return b.Tok.Lexeme }
func (b *BinaryExpression) GetToken() token.Token { return b.Tok }

// UnaryExpression.
type UnaryExpression struct {
	Tok      token.Token
	Operator string
	Operand  Expression
}

func (u *UnaryExpression) expressionNode()       {}
func (u *UnaryExpression) TokenLiteral() string  { return u.Tok.Lexeme }
func (u *UnaryExpression) GetToken() token.Token { return u.Tok }

// TupleExpression, used for tuple yield and multi-assignment targets.
type TupleExpression struct {
	Tok     token.Token
	Entries []Expression
}

func (t *TupleExpression) expressionNode()       {}
func (t *TupleExpression) TokenLiteral() string  { return t.Tok.Lexeme }
func (t *TupleExpression) GetToken() token.Token { return t.Tok }

// IntrinsicKind enumerates the front-end intrinsics usable in
// expression position.
type IntrinsicKind string

const (
	IntrinsicSizeof   IntrinsicKind = "sizeof"
	IntrinsicPtr      IntrinsicKind = "ptr"
	IntrinsicNullptr  IntrinsicKind = "nullptr"
	IntrinsicLinear   IntrinsicKind = "linear"
	IntrinsicConsume  IntrinsicKind = "consume"
	IntrinsicMove     IntrinsicKind = "move"
	IntrinsicAssume   IntrinsicKind = "assume"
	IntrinsicRefine   IntrinsicKind = "refine"
)

// IntrinsicCallExpression is a call to one of the front-end intrinsics
// (sizeof, ptr, nullptr, linear, consume, move, assume, refine).
// defer/label/goto/goto_end/cimport have their own statement nodes
// since they are never simple expressions.
type IntrinsicCallExpression struct {
	Tok  token.Token
	Kind IntrinsicKind
	Type TypeExpr   // for sizeof(T), ptr(T), linear()
	Args []Expression
}

func (ic *IntrinsicCallExpression) expressionNode()       {}
func (ic *IntrinsicCallExpression) TokenLiteral() string  { return ic.Tok.Lexeme }
func (ic *IntrinsicCallExpression) GetToken() token.Token { return ic.Tok }

// RefineCallExpression is the `refine(v..., pred..., tag...)` form used
// specifically as a for-loop's Iterable. It is distinct from the
// IntrinsicCallExpression{Kind: IntrinsicRefine} general expression form
// so the refinement engine can recognize the for-else lowering without
// re-deriving it from surrounding statement context.
type RefineCallExpression struct {
	Tok        token.Token
	Values     []Expression
	Predicates []Expression
	Tags       []string
}

func (r *RefineCallExpression) expressionNode()       {}
func (r *RefineCallExpression) TokenLiteral() string  { return r.Tok.Lexeme }
func (r *RefineCallExpression) GetToken() token.Token { return r.Tok }

// AssumeCallExpression is `assume(v..., pred..., tag...)` or the
// equivalent `RefinedTypeName(v...)` sugar, both producing a refined
// value with no runtime check.
type AssumeCallExpression struct {
	Tok        token.Token
	Values     []Expression
	Predicates []Expression
	Tags       []string
}

func (a *AssumeCallExpression) expressionNode()       {}
func (a *AssumeCallExpression) TokenLiteral() string  { return a.Tok.Lexeme }
func (a *AssumeCallExpression) GetToken() token.Token { return a.Tok }
