package ast

import "github.com/pythoc-lang/pythoc/internal/token"

// TypeExpr is a type annotation node in the AST, e.g. `i32`, `*i32`,
// `array[i32, 5]`, `struct{x: i32}`. It is lowered to a types.Type by the
// registry during type-shape resolution.
type TypeExpr interface {
	Node
	typeNode()
}

// NamedTypeExpr names a primitive or previously declared struct/enum,
// e.g. `i32`, `bool`, `MyStruct`.
type NamedTypeExpr struct {
	Tok  token.Token
	Name string
}

func (t *NamedTypeExpr) typeNode()           {}
func (t *NamedTypeExpr) TokenLiteral() string { return t.Tok.Lexeme }
func (t *NamedTypeExpr) GetToken() token.Token { return t.Tok }

// PtrTypeExpr is `*T`.
type PtrTypeExpr struct {
	Tok  token.Token
	Elem TypeExpr
}

func (t *PtrTypeExpr) typeNode()           {}
func (t *PtrTypeExpr) TokenLiteral() string { return t.Tok.Lexeme }
func (t *PtrTypeExpr) GetToken() token.Token { return t.Tok }

// ArrayTypeExpr is the subscripted type-call form `array[T, d1, d2, ...]`,
// as in `array[i32, 5]()`.
type ArrayTypeExpr struct {
	Tok  token.Token
	Elem TypeExpr
	Dims []int
}

func (t *ArrayTypeExpr) typeNode()           {}
func (t *ArrayTypeExpr) TokenLiteral() string { return t.Tok.Lexeme }
func (t *ArrayTypeExpr) GetToken() token.Token { return t.Tok }

// StructTypeExpr is an anonymous `struct{name: T, ...}` type.
type StructTypeExpr struct {
	Tok    token.Token
	Fields []*Param
}

func (t *StructTypeExpr) typeNode()           {}
func (t *StructTypeExpr) TokenLiteral() string { return t.Tok.Lexeme }
func (t *StructTypeExpr) GetToken() token.Token { return t.Tok }

// UnionTypeExpr is an anonymous `union{name: T, ...}` type.
type UnionTypeExpr struct {
	Tok    token.Token
	Fields []*Param
}

func (t *UnionTypeExpr) typeNode()           {}
func (t *UnionTypeExpr) TokenLiteral() string { return t.Tok.Lexeme }
func (t *UnionTypeExpr) GetToken() token.Token { return t.Tok }

// FuncTypeExpr is a function-pointer type `func(T, T) -> R`.
type FuncTypeExpr struct {
	Tok      token.Token
	Params   []TypeExpr
	Result   TypeExpr
	Variadic bool
}

func (t *FuncTypeExpr) typeNode()           {}
func (t *FuncTypeExpr) TokenLiteral() string { return t.Tok.Lexeme }
func (t *FuncTypeExpr) GetToken() token.Token { return t.Tok }

// LinearTypeExpr is the `linear` marker type.
type LinearTypeExpr struct{ Tok token.Token }

func (t *LinearTypeExpr) typeNode()           {}
func (t *LinearTypeExpr) TokenLiteral() string { return t.Tok.Lexeme }
func (t *LinearTypeExpr) GetToken() token.Token { return t.Tok }

// RefinedTypeExpr is `refined[Base, pred1, pred2, ...]` or the
// predicate-only form `refined[pred]` (arity inferred from pred's
// signature).
type RefinedTypeExpr struct {
	Tok        token.Token
	Base       TypeExpr // nil for the predicate-only form
	Predicates []Expression
	Tags       []string
}

func (t *RefinedTypeExpr) typeNode()           {}
func (t *RefinedTypeExpr) TokenLiteral() string { return t.Tok.Lexeme }
func (t *RefinedTypeExpr) GetToken() token.Token { return t.Tok }
