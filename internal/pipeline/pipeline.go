// Package pipeline runs a program through an ordered list of stages. The
// compilation driver uses it per function, in this order: inlining with
// scope analysis, effect resolution, refinement lowering, linear
// checking, match checking, CFG construction. A Pipeline is a flat Processor list; the Context
// carries the unit, its diagnostics bag, and per-stage state.
package pipeline

import (
	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/diagnostics"
)

// Context is the state threaded through every stage of one translation
// unit's compile.
type Context struct {
	Unit          *ast.Program
	CompileSuffix string
	EffectSuffix  string
	Bag           *diagnostics.Bag

	// Stage outputs, populated as the pipeline advances; later stages
	// read what earlier ones produced.
	Data map[string]any
}

// NewContext starts a fresh per-unit pipeline context.
func NewContext(unit *ast.Program, bag *diagnostics.Bag) *Context {
	return &Context{Unit: unit, Bag: bag, Data: make(map[string]any)}
}

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *Context) *Context
}

// ProcessorFunc adapts a plain function to Processor.
type ProcessorFunc func(ctx *Context) *Context

func (f ProcessorFunc) Process(ctx *Context) *Context { return f(ctx) }

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

// New builds a Pipeline from an ordered stage list.
func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes every stage in order, continuing even after a stage
// reports diagnostics so later stages can still contribute their own —
// the driver decides whether ctx.Bag.HasErrors() should stop IR emission,
// not the pipeline itself.
func (p *Pipeline) Run(initialCtx *Context) *Context {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}
