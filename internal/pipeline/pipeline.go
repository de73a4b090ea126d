// Package pipeline sequences the compile stages.
package pipeline

import (
	"github.com/funvibe/funforth/internal/code"
	"github.com/funvibe/funforth/internal/config"
	"github.com/funvibe/funforth/internal/diagnostics"
)

// Context carries one compilation through the stages. Each compile owns its
// own context; nothing here is shared between concurrent compiles.
type Context struct {
	// Tokens is the raw input from the tokenizer
	Tokens []string

	// Main is the code outside any subroutine definition
	Main []code.Item

	// Subs maps subroutine names to their bodies; Order preserves
	// discovery order, which fixes the layout of the linked program
	Subs  map[string][]code.Item
	Order []string

	// Program is the concatenated output being linked
	Program []code.Item

	// Locations maps subroutine names to absolute offsets in Program
	Locations map[string]int

	Options  config.Options
	Reporter *diagnostics.Reporter

	// Err aborts the pipeline; later stages never run
	Err error
}

// NewContext creates a context for one token sequence
func NewContext(tokens []string, opts config.Options) *Context {
	rep := diagnostics.Discard()
	if opts.Trace {
		rep = diagnostics.New(opts.TraceWriter)
	}
	return &Context{
		Tokens:    tokens,
		Subs:      make(map[string][]code.Item),
		Locations: make(map[string]int),
		Options:   opts,
		Reporter:  rep,
	}
}

// Processor is one compile stage
type Processor interface {
	Process(ctx *Context) *Context
}

// Pipeline is a fixed sequence of processing stages
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. The first stage error stops the run: a failed
// compile produces no partial output.
func (p *Pipeline) Run(initialCtx *Context) *Context {
	ctx := initialCtx
	for _, processor := range p.processors {
		if ctx.Err != nil {
			return ctx
		}
		ctx = processor.Process(ctx)
	}
	return ctx
}
