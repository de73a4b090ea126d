// Package compiler turns a flat token sequence into a linked program:
// subroutine definitions are split from the main body, calls are expanded,
// each block is optimized in isolation, blocks are concatenated with their
// offsets recorded, symbolic references are resolved to absolute addresses,
// and the result is validated and materialized.
package compiler

import (
	"errors"

	"github.com/funvibe/funforth/internal/code"
	"github.com/funvibe/funforth/internal/config"
	"github.com/funvibe/funforth/internal/diagnostics"
	"github.com/funvibe/funforth/internal/instructions"
	"github.com/funvibe/funforth/internal/optimizer"
	"github.com/funvibe/funforth/internal/pipeline"
)

// Compile links a token sequence into an executable program. A program
// such as
//
//	: sub1 <sub1 code ...> ;
//	: sub2 <sub2 code ...> ;
//	sub1 foo sub2 bar
//
// compiles into
//
//	<sub1 address> call
//	foo
//	<sub2 address> call
//	exit
//	<sub1 code ...> return
//	<sub2 code ...> return
//
// Main code always comes first, so an exit is appended to it whenever at
// least one subroutine exists. Every error is a *diagnostics.CompileError
// and aborts the compile with no partial output.
func Compile(tokens []string, opts config.Options) ([]code.Item, error) {
	ctx := pipeline.New(
		&SplitProcessor{},
		&ExpandProcessor{},
		&LinkProcessor{},
		&ValidateProcessor{},
		&MaterializeProcessor{},
	).Run(pipeline.NewContext(tokens, opts))

	if ctx.Err != nil {
		return nil, asCompileError(ctx.Err)
	}
	return ctx.Program, nil
}

// SplitProcessor classifies the raw tokens and separates subroutine
// definitions from the main body. The scan is index based: ":" opens a
// definition named by the next token, ";" closes it and appends the
// implicit return. A definition left open at end of input keeps its
// truncated body; a trailing ":" with no name is dropped.
type SplitProcessor struct{}

func (sp *SplitProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	items := code.FromTokens(ctx.Tokens)

	for i := 0; i < len(items); i++ {
		w, ok := items[i].(*code.Word)
		if !ok || w.Text != instructions.DelimOpen {
			ctx.Main = append(ctx.Main, items[i])
			continue
		}

		i++
		if i >= len(items) {
			break
		}
		name, err := subroutineName(items[i])
		if err != nil {
			ctx.Err = err
			return ctx
		}

		if _, seen := ctx.Subs[name]; !seen {
			ctx.Order = append(ctx.Order, name)
		}
		body := []code.Item{}
		for i++; i < len(items); i++ {
			if cw, ok := items[i].(*code.Word); ok && cw.Text == instructions.DelimClose {
				body = append(body, &code.Op{Code: instructions.OP_RETURN})
				break
			}
			body = append(body, items[i])
		}
		ctx.Subs[name] = body
	}

	ctx.Reporter.Stagef("split: %d main items, %d subroutines", len(ctx.Main), len(ctx.Subs))
	return ctx
}

// subroutineName checks the item following ":" against the reserved words.
// A mnemonic or boolean keyword would shadow an instruction; a delimiter or
// literal is not a usable name at all.
func subroutineName(it code.Item) (string, error) {
	switch v := it.(type) {
	case *code.Word:
		if instructions.IsDelimiter(v.Text) {
			return "", diagnostics.NewError("invalid word name '%s'", v.Text)
		}
		return v.Text, nil
	case *code.Op, *code.Bool:
		return "", diagnostics.NewError("cannot shadow internal word definition '%s'", it.Inspect())
	default:
		return "", diagnostics.NewError("invalid word name '%s'", it.Inspect())
	}
}

// ExpandProcessor rewrites every reference to a known subroutine, in the
// main body and in all subroutine bodies, into a symbolic reference
// followed by a call. It then terminates the main body with an exit iff
// any subroutine exists, preventing fall-through into subroutine code.
type ExpandProcessor struct{}

func (ep *ExpandProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	for _, name := range ctx.Order {
		ctx.Subs[name] = expandCalls(ctx.Subs[name], ctx.Subs)
	}
	ctx.Main = expandCalls(ctx.Main, ctx.Subs)

	if len(ctx.Subs) > 0 {
		ctx.Main = append(ctx.Main, &code.Op{Code: instructions.OP_EXIT})
	}
	return ctx
}

func expandCalls(items []code.Item, subs map[string][]code.Item) []code.Item {
	out := make([]code.Item, 0, len(items))
	for _, it := range items {
		if w, ok := it.(*code.Word); ok {
			if _, found := subs[w.Text]; found {
				out = append(out, &code.Ref{Name: w.Text}, &code.Op{Code: instructions.OP_CALL})
				continue
			}
		}
		out = append(out, it)
	}
	return out
}

// LinkProcessor optimizes the main body, then appends each subroutine in
// discovery order, recording its start offset as the program length at the
// moment of appending, and finally resolves every symbolic reference to
// the recorded absolute offset. Offsets are recorded only after the main
// body is optimized, because optimization changes length.
type LinkProcessor struct{}

func (lp *LinkProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	fold := &optimizer.Folder{
		Strict:   ctx.Options.StrictDivZero,
		Reporter: ctx.Reporter,
	}
	optimize := func(items []code.Item) ([]code.Item, error) {
		if !ctx.Options.Optimize {
			return items, nil
		}
		return fold.Fold(items)
	}

	main, err := optimize(ctx.Main)
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.Program = main

	for _, name := range ctx.Order {
		ctx.Locations[name] = len(ctx.Program)
		body, err := optimize(ctx.Subs[name])
		if err != nil {
			ctx.Err = err
			return ctx
		}
		ctx.Program = append(ctx.Program, body...)
		ctx.Reporter.Stagef("linked %s at offset %d", name, ctx.Locations[name])
	}

	for i, it := range ctx.Program {
		if ref, ok := it.(*code.Ref); ok {
			if offset, found := ctx.Locations[ref.Name]; found {
				ctx.Program[i] = &code.Int{Value: int64(offset)}
			}
		}
	}
	return ctx
}

// ValidateProcessor runs the diagnostic pass over the linked program
type ValidateProcessor struct{}

func (vp *ValidateProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	ctx.Err = Validate(ctx.Program)
	return ctx
}

// MaterializeProcessor resolves the remaining raw words through the
// instruction table. Literals and resolved addresses are already native;
// this is the single point where word text becomes an opcode.
type MaterializeProcessor struct{}

func (mp *MaterializeProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	for i, it := range ctx.Program {
		switch v := it.(type) {
		case *code.Word:
			op, err := instructions.Lookup(v.Text)
			if err != nil {
				ctx.Err = diagnostics.NewError("%s", err.Error())
				return ctx
			}
			ctx.Program[i] = &code.Op{Code: op}
		case *code.Ref:
			ctx.Err = diagnostics.NewError("unknown instruction: %s", v.Name)
			return ctx
		}
	}
	return ctx
}

// asCompileError folds any stage failure into the single public error kind
func asCompileError(err error) error {
	var ce *diagnostics.CompileError
	if errors.As(err, &ce) {
		return ce
	}
	return diagnostics.NewError("%s", err.Error())
}
