// Package types implements the PythoC type model: a tagged sum of
// primitives, pointers, arrays, structs, unions, tagged enums, function
// pointers, refined wrappers, and the zero-width linear marker. Type is
// a closed interface with one value-type variant per shape, dispatched
// by Go type switch; the language is monomorphic and C-level, so there
// are no type variables and no unification.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the interface every type-model variant implements.
type Type interface {
	String() string
	isType()
}

// Equal reports whether a and b are structurally identical. Refined-type
// subsumption and predicate-reference identity both rely on this rather
// than pointer identity, since predicate FuncRefs may be reconstructed
// independently by different analyses.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// ---- Primitives ----

// Int is a fixed-width, signed-or-unsigned integer.
type Int struct {
	Signed bool
	Width  int // 8, 16, 32, or 64
}

func (Int) isType() {}
func (t Int) String() string {
	if t.Signed {
		return fmt.Sprintf("i%d", t.Width)
	}
	return fmt.Sprintf("u%d", t.Width)
}

// FloatKind names the five supported float shapes.
type FloatKind int

const (
	F16 FloatKind = iota
	BF16
	F32
	F64
	F128
)

func (k FloatKind) String() string {
	switch k {
	case F16:
		return "f16"
	case BF16:
		return "bf16"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case F128:
		return "f128"
	default:
		return "f?"
	}
}

// Float is a floating-point type of one of five kinds.
type Float struct{ Kind FloatKind }

func (Float) isType()          {}
func (t Float) String() string { return t.Kind.String() }

// Bool is the boolean type.
type Bool struct{}

func (Bool) isType()          {}
func (Bool) String() string   { return "bool" }

// Void is the unit/no-value type.
type Void struct{}

func (Void) isType()          {}
func (Void) String() string   { return "void" }

// Linear is the zero-width linear marker. It carries no payload by
// itself — a linear *value* is always some other type wrapped so that
// the ownership checker can track it; a bare Linear denotes a pure
// ownership token, the result of `t = linear()`.
type Linear struct{}

func (Linear) isType()          {}
func (Linear) String() string   { return "linear" }

// ---- Composites ----

// Ptr is a pointer to another type.
type Ptr struct{ Elem Type }

func (Ptr) isType()          {}
func (t Ptr) String() string { return "*" + t.Elem.String() }

// Array is a fixed-size, possibly multi-dimensional array.
type Array struct {
	Elem Type
	Dims []int // nonempty, each > 0
}

func (Array) isType() {}
func (t Array) String() string {
	var dims []string
	for _, d := range t.Dims {
		dims = append(dims, fmt.Sprintf("[%d]", d))
	}
	return strings.Join(dims, "") + t.Elem.String()
}

// Field is one member of a Struct or Union; Name is "" for an anonymous
// member.
type Field struct {
	Name string // "" for anonymous
	Type Type
}

// Struct is an ordered, possibly mixed named/anonymous field list.
type Struct struct{ Fields []Field }

func (Struct) isType() {}
func (t Struct) String() string {
	var parts []string
	for _, f := range t.Fields {
		if f.Name == "" {
			parts = append(parts, f.Type.String())
		} else {
			parts = append(parts, f.Name+": "+f.Type.String())
		}
	}
	return "struct{" + strings.Join(parts, ", ") + "}"
}

// Union is structurally identical to Struct but overlaps storage.
// Reading a field other than the last one written is implementation-
// defined at the IR level, so the core type model only needs the field
// list.
type Union struct{ Fields []Field }

func (Union) isType() {}
func (t Union) String() string {
	var parts []string
	for _, f := range t.Fields {
		if f.Name == "" {
			parts = append(parts, f.Type.String())
		} else {
			parts = append(parts, f.Name+": "+f.Type.String())
		}
	}
	return "union{" + strings.Join(parts, ", ") + "}"
}

// EnumVariant is one tagged-sum arm: a name, its tag value, and an
// optional payload type (nil for a payload-free variant).
type EnumVariant struct {
	Name    string
	Tag     int64
	Payload Type // nil if the variant carries no payload
}

// Enum is a tagged sum over an explicit integer tag type.
type Enum struct {
	TagType  Int
	Variants []EnumVariant
}

func (Enum) isType() {}
func (t Enum) String() string {
	var parts []string
	for _, v := range t.Variants {
		if v.Payload == nil {
			parts = append(parts, fmt.Sprintf("%s=%d", v.Name, v.Tag))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%d(%s)", v.Name, v.Tag, v.Payload.String()))
		}
	}
	return "enum[" + t.TagType.String() + "]{" + strings.Join(parts, ", ") + "}"
}

// Validate enforces the Enum invariants: every variant name is unique,
// and tag values within an enum are unique.
func (t Enum) Validate() error {
	names := make(map[string]bool, len(t.Variants))
	tags := make(map[int64]bool, len(t.Variants))
	for _, v := range t.Variants {
		if names[v.Name] {
			return fmt.Errorf("duplicate enum variant name %q", v.Name)
		}
		names[v.Name] = true
		if tags[v.Tag] {
			return fmt.Errorf("duplicate enum tag value %d (variant %q)", v.Tag, v.Name)
		}
		tags[v.Tag] = true
	}
	return nil
}

// Func is a function-pointer type.
type Func struct {
	Params   []Type
	Result   Type
	Variadic bool
}

func (Func) isType() {}
func (t Func) String() string {
	var parts []string
	for _, p := range t.Params {
		parts = append(parts, p.String())
	}
	variadic := ""
	if t.Variadic {
		variadic = ", ..."
	}
	res := "void"
	if t.Result != nil {
		res = t.Result.String()
	}
	return "func(" + strings.Join(parts, ", ") + variadic + ") " + res
}

// ---- Refinement ----

// FuncRef is a lightweight reference to a compile-time predicate
// function: its name plus the parameter shape it was declared with. This
// package deliberately does not depend on the symbol registry (the
// registry depends on it, not the reverse), so a FuncRef is identified
// structurally — two FuncRefs naming the same function with the same
// parameter shape are Equal, which is the identity refined-to-refined
// conversion checks predicates by.
type FuncRef struct {
	Name   string
	Params []Type
}

func (f FuncRef) String() string {
	var parts []string
	for _, p := range f.Params {
		parts = append(parts, p.String())
	}
	return f.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Equal reports whether f and other name the same predicate over the
// same parameter shape.
func (f FuncRef) Equal(other FuncRef) bool {
	if f.Name != other.Name || len(f.Params) != len(other.Params) {
		return false
	}
	for i := range f.Params {
		if !Equal(f.Params[i], other.Params[i]) {
			return false
		}
	}
	return true
}

// Refined wraps a base type with a set of compile-time predicates and
// proof tags.
type Refined struct {
	Base       Type
	Predicates []FuncRef
	Tags       []string // treated as a set; TagSet dedups, String sorts
}

func (Refined) isType() {}
func (t Refined) String() string {
	var preds []string
	for _, p := range t.Predicates {
		preds = append(preds, p.String())
	}
	tags := append([]string(nil), t.Tags...)
	sort.Strings(tags)
	return fmt.Sprintf("refined[%s, preds=%s, tags=%v]", t.Base.String(), strings.Join(preds, "&"), tags)
}

// TagSet returns t.Tags as a deduplicated set.
func (t Refined) TagSet() map[string]bool {
	set := make(map[string]bool, len(t.Tags))
	for _, tag := range t.Tags {
		set[tag] = true
	}
	return set
}

// IsMultiParam reports whether every predicate in t is declared over
// more than one parameter — the struct-shaped refinement form, as
// opposed to the unary single-value form. Mixed arity is invalid and
// should have been rejected by Validate.
func (t Refined) IsMultiParam() bool {
	if len(t.Predicates) == 0 {
		return false
	}
	return len(t.Predicates[0].Params) > 1
}

// Validate enforces the refinement arity invariant: every predicate in
// a single Refined must share the same parameter arity, so the refined
// value has one well-defined shape (single value or struct).
func (t Refined) Validate() error {
	if len(t.Predicates) == 0 {
		return nil
	}
	arity := len(t.Predicates[0].Params)
	for _, p := range t.Predicates[1:] {
		if len(p.Params) != arity {
			return fmt.Errorf("refined predicate %q has arity %d, expected %d", p.Name, len(p.Params), arity)
		}
	}
	return nil
}

// RuntimeShape returns the representation type a Refined erases to for
// IR purposes: the base type itself when every predicate is unary,
// otherwise a struct with one field per parameter of the first
// predicate, named arg0, arg1, … by position. FuncRef carries no
// parameter names, so the predicates' own parameter names are not used.
func (t Refined) RuntimeShape() Type {
	if !t.IsMultiParam() {
		return t.Base
	}
	fields := make([]Field, 0, len(t.Predicates[0].Params))
	for i, p := range t.Predicates[0].Params {
		fields = append(fields, Field{Name: fmt.Sprintf("arg%d", i), Type: p})
	}
	return Struct{Fields: fields}
}

// RefinedSubsumes reports whether a value of type src (a Refined) may be
// converted to type dst (a Refined) by "forgetting" proof obligations:
// dst's tag set must be a subset of src's, and dst's predicate set must
// be a subset of src's by structural identity.
func RefinedSubsumes(dst, src Refined) bool {
	srcTags := src.TagSet()
	for tag := range dst.TagSet() {
		if !srcTags[tag] {
			return false
		}
	}
	for _, dp := range dst.Predicates {
		found := false
		for _, sp := range src.Predicates {
			if dp.Equal(sp) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// IsFinite reports whether t has a statically enumerable, finite value
// set — the precondition for match exhaustiveness to be decidable
// without an explicit catch-all: Bool, Enum (over all its variants),
// and products (Struct) of finite types.
func IsFinite(t Type) bool {
	switch v := t.(type) {
	case Bool:
		return true
	case Enum:
		return true
	case Struct:
		for _, f := range v.Fields {
			if !IsFinite(f.Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ContainsLinear reports whether t transitively contains a Linear marker
// at any field path, the precondition the linear checker uses to
// decide whether a variable needs ownership tracking at all.
func ContainsLinear(t Type) bool {
	switch v := t.(type) {
	case Linear:
		return true
	case Ptr:
		return ContainsLinear(v.Elem)
	case Array:
		return ContainsLinear(v.Elem)
	case Struct:
		for _, f := range v.Fields {
			if ContainsLinear(f.Type) {
				return true
			}
		}
		return false
	case Union:
		for _, f := range v.Fields {
			if ContainsLinear(f.Type) {
				return true
			}
		}
		return false
	case Refined:
		return ContainsLinear(v.Base)
	default:
		return false
	}
}

// LinearFieldPaths enumerates every concrete field-path within t that
// carries a Linear marker, e.g. for `struct{a: linear, b: struct{c:
// linear}}` it returns ["a", "b.c"]. The ownership checker tracks each
// path as an independent slot.
func LinearFieldPaths(t Type) []string {
	var paths []string
	var walk func(t Type, prefix string)
	walk = func(t Type, prefix string) {
		switch v := t.(type) {
		case Linear:
			if prefix == "" {
				paths = append(paths, "")
			} else {
				paths = append(paths, prefix)
			}
		case Struct:
			for i, f := range v.Fields {
				name := f.Name
				if name == "" {
					name = fmt.Sprintf("%d", i)
				}
				next := name
				if prefix != "" {
					next = prefix + "." + name
				}
				walk(f.Type, next)
			}
		case Refined:
			walk(v.Base, prefix)
		}
	}
	walk(t, "")
	return paths
}
