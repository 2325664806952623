// Package irsink defines the contract boundary to the LLVM IR emitter.
// Everything downstream of emitting IR for a fully-typed, fully-checked
// AST is an external collaborator — this package exists only so the
// driver has a concrete interface to call at the end of a successful
// compile, handing off to a caller-supplied backend rather than
// implementing one.
package irsink

import "github.com/pythoc-lang/pythoc/internal/ast"

// Sink receives one fully-checked function per call, already bearing
// its mangled output symbol name
// ({original_name}_{compile_suffix}_{effect_suffix}, empty components
// omitted). A real implementation would walk fn.Body and emit LLVM IR
// instructions; the front end's job ends at handing it a typed, checked
// AST.
type Sink interface {
	EmitFunction(symbol string, fn *ast.FunctionStatement)
	EmitExtern(symbol, lib string, fn *ast.FunctionStatement)
}

// NullSink discards every emission; useful for running the front end and
// middle end in isolation (analysis-only tooling, tests) without a real
// backend attached.
type NullSink struct {
	Emitted []string
}

func (n *NullSink) EmitFunction(symbol string, fn *ast.FunctionStatement) {
	n.Emitted = append(n.Emitted, symbol)
}

func (n *NullSink) EmitExtern(symbol, lib string, fn *ast.FunctionStatement) {
	n.Emitted = append(n.Emitted, symbol)
}
