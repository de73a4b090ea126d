// Package funforth is the middle-end of a small stack-based language: it
// takes the flat token sequence an external tokenizer produced, folds
// constant expressions, links subroutine references into absolute
// addresses, and hands the linked program to an external runtime.
package funforth

import (
	"io"

	"github.com/funvibe/funforth/internal/code"
	"github.com/funvibe/funforth/internal/compiler"
	"github.com/funvibe/funforth/internal/config"
	"github.com/funvibe/funforth/internal/diagnostics"
	"github.com/funvibe/funforth/internal/optimizer"
)

// Re-exported item types, so callers can build and inspect programs
// without reaching into internal packages.
type (
	Item  = code.Item
	Op    = code.Op
	Int   = code.Int
	Float = code.Float
	Str   = code.Str
	Bool  = code.Bool
)

// CompileError is the single error kind every failed compile returns
type CompileError = diagnostics.CompileError

// Options controls a single compilation; see the With* helpers
type Options = config.Options

// Option adjusts compile options
type Option func(*config.Options)

// WithoutOptimization disables the constant folder
func WithoutOptimization() Option {
	return func(o *config.Options) { o.Optimize = false }
}

// WithStrictDivZero makes statically detected division by zero a compile
// error instead of deferring it to the runtime
func WithStrictDivZero() Option {
	return func(o *config.Options) { o.StrictDivZero = true }
}

// WithTrace enables per-rewrite diagnostics on w
func WithTrace(w io.Writer) Option {
	return func(o *config.Options) {
		o.Trace = true
		o.TraceWriter = w
	}
}

// WithOptions replaces the whole option set, e.g. one loaded from
// funforth.yaml
func WithOptions(opts Options) Option {
	return func(o *config.Options) {
		w := o.TraceWriter
		*o = opts
		if o.TraceWriter == nil {
			o.TraceWriter = w
		}
	}
}

// Compile links a token sequence into an executable program
func Compile(tokens []string, opts ...Option) ([]Item, error) {
	cfg := config.Default()
	for _, opt := range opts {
		opt(&cfg)
	}
	return compiler.Compile(tokens, cfg)
}

// Optimize constant-folds an already classified code sequence with default
// settings
func Optimize(items []Item) []Item {
	return optimizer.Optimize(items)
}

// Classify converts raw tokens into code items without compiling them
func Classify(tokens []string) []Item {
	return code.FromTokens(tokens)
}

// Disassemble renders a linked program as a human-readable listing
func Disassemble(items []Item, name string) string {
	return compiler.Disassemble(items, name)
}

// Bundle is the storable form of a linked program
type Bundle = compiler.Bundle

// LoadBundle deserializes a stored program
func LoadBundle(data []byte) (*Bundle, error) {
	return compiler.Deserialize(data)
}

// LoadOptions reads compile options from a funforth.yaml file
func LoadOptions(path string) (Options, error) {
	return config.Load(path)
}

// FindOptions locates the nearest funforth.yaml above dir
func FindOptions(dir string) (string, error) {
	return config.Find(dir)
}
