// Package optimizer rewrites a flat code sequence into a semantically
// equivalent but cheaper one by iterative constant folding.
//
// The engine repeats full left-to-right scans: on each scan the first
// pattern matching at the lowest index is applied, the scan restarts from
// the beginning, and the loop stops on a scan with zero rewrites. The
// restart matters because an applied fold can re-expose an opportunity at
// an index that was already passed. Every rule either strictly shortens the
// sequence or replaces a non-canonical item with a canonical one that its
// own guard no longer matches, so the loop always reaches a fixed point.
package optimizer

import (
	"strconv"

	"github.com/funvibe/funforth/internal/code"
	"github.com/funvibe/funforth/internal/diagnostics"
	"github.com/funvibe/funforth/internal/instructions"
	"github.com/funvibe/funforth/internal/machine"
)

// foldable are the binary operators the engine evaluates at compile time
// when both operands are numeric literals
var foldable = map[instructions.Opcode]bool{
	instructions.OP_ADD:  true,
	instructions.OP_SUB:  true,
	instructions.OP_MUL:  true,
	instructions.OP_DIV:  true,
	instructions.OP_MOD:  true,
	instructions.OP_BAND: true,
	instructions.OP_BOR:  true,
	instructions.OP_BXOR: true,
	instructions.OP_LT:   true,
	instructions.OP_GT:   true,
	instructions.OP_EQ:   true,
}

// Folder runs the constant-fold engine. The zero value defers division by
// zero to the runtime and reports nothing.
type Folder struct {
	// Strict makes a statically detected zero divisor a compile error
	// instead of leaving the triple unfolded
	Strict bool

	// Reporter receives one message per applied rewrite
	Reporter *diagnostics.Reporter
}

// Optimize folds code with default settings. Sequences that cannot be
// folded come back unchanged, never empty.
func Optimize(items []code.Item) []code.Item {
	out, err := (&Folder{}).Fold(items)
	if err != nil {
		return items
	}
	return out
}

// Fold rewrites items to a fixed point. The input slice is not modified.
func (f *Folder) Fold(items []code.Item) ([]code.Item, error) {
	rep := f.Reporter
	if rep == nil {
		rep = diagnostics.Discard()
	}

	out := make([]code.Item, len(items))
	copy(out, items)

	for {
		next, changed, err := f.scan(out, rep)
		if err != nil {
			return nil, err
		}
		out = next
		if !changed {
			break
		}
	}
	return out, nil
}

// scan walks the sequence once and applies the first match found. It
// returns the (possibly) rewritten sequence and whether anything changed.
func (f *Folder) scan(items []code.Item, rep *diagnostics.Reporter) ([]code.Item, bool, error) {
	for i, a := range items {
		var b, c code.Item
		if i+1 < len(items) {
			b = items[i+1]
		}
		if i+2 < len(items) {
			c = items[i+2]
		}

		// <num> <num> <arith-op>  =>  result
		if code.IsNumber(a) && code.IsNumber(b) && isFoldableOp(c) {
			if zeroDivisor(b, c) {
				if f.Strict {
					return nil, false, diagnostics.NewError(
						"division by zero (index %d): %s %s %s",
						i, a.Inspect(), b.Inspect(), c.Inspect())
				}
				// Left for the runtime to fail on.
				continue
			}
			result, err := evaluate(a, b, c)
			if err != nil {
				// Not evaluable at compile time, e.g. a bitwise
				// operator on a float. Left for the runtime to
				// fail on.
				continue
			}
			rep.Rewritef("constant-folded %s %s %s to %s",
				a.Inspect(), b.Inspect(), c.Inspect(), result.Inspect())
			return replace(items, i, 3, result), true, nil
		}

		// <const> dup  =>  <const> <const>
		if code.IsConstant(a) && code.IsOp(b, instructions.OP_DUP) {
			rep.Rewritef("translated %s dup to %s %s", a.Inspect(), a.Inspect(), a.Inspect())
			return replace(items, i, 2, a, a), true, nil
		}

		// Dead store: <const> drop
		if code.IsConstant(a) && code.IsOp(b, instructions.OP_DROP) {
			rep.Rewritef("removed dead code %s drop", a.Inspect())
			return replace(items, i, 2), true, nil
		}

		// No-op cast: <int> int
		if _, ok := a.(*code.Int); ok && code.IsOp(b, instructions.OP_CAST_INT) {
			rep.Rewritef("translated %s int to %s", a.Inspect(), a.Inspect())
			return replace(items, i, 2, a), true, nil
		}

		// No-op cast: <str> str
		if code.IsString(a) && code.IsOp(b, instructions.OP_CAST_STR) {
			rep.Rewritef("translated %s str to %s", a.Inspect(), a.Inspect())
			return replace(items, i, 2, a), true, nil
		}

		// No-op cast: <bool> bool
		if code.IsBool(a) && code.IsOp(b, instructions.OP_CAST_BOOL) {
			rep.Rewritef("translated %s bool to %s", a.Inspect(), a.Inspect())
			return replace(items, i, 2, a), true, nil
		}

		// <c1> <c2> swap  =>  <c2> <c1>
		if code.IsConstant(a) && code.IsConstant(b) && code.IsOp(c, instructions.OP_SWAP) {
			rep.Rewritef("translated %s %s swap to %s %s",
				a.Inspect(), b.Inspect(), b.Inspect(), a.Inspect())
			return replace(items, i, 3, b, a), true, nil
		}

		// <c1> <c2> over  =>  <c1> <c2> <c1>
		if code.IsConstant(a) && code.IsConstant(b) && code.IsOp(c, instructions.OP_OVER) {
			rep.Rewritef("translated %s %s over to %s %s %s",
				a.Inspect(), b.Inspect(), a.Inspect(), b.Inspect(), a.Inspect())
			return replace(items, i, 3, a, b, a), true, nil
		}

		// "123" int  =>  123, but only when the text parses cleanly;
		// otherwise the cast stays and the runtime deals with it
		if s, ok := a.(*code.Str); ok && code.IsOp(b, instructions.OP_CAST_INT) {
			if n, err := strconv.ParseInt(s.Value, 10, 64); err == nil {
				result := &code.Int{Value: n}
				rep.Rewritef("translated %s int to %s", s.Inspect(), result.Inspect())
				return replace(items, i, 2, result), true, nil
			}
		}

		// <const> str  =>  string form of the constant
		if code.IsConstant(a) && code.IsOp(b, instructions.OP_CAST_STR) {
			result := &code.Str{Value: code.Text(a)}
			rep.Rewritef("translated %s str to %s", a.Inspect(), result.Inspect())
			return replace(items, i, 2, result), true, nil
		}

		// <const> bool  =>  truthiness of the constant
		if code.IsConstant(a) && code.IsOp(b, instructions.OP_CAST_BOOL) {
			result := &code.Bool{Value: code.Truthy(a)}
			rep.Rewritef("translated %s bool to %s", a.Inspect(), result.Inspect())
			return replace(items, i, 2, result), true, nil
		}
	}
	return items, false, nil
}

// evaluate computes a fold result by running the triple on a fresh machine
func evaluate(a, b, c code.Item) (code.Item, error) {
	m := machine.New([]code.Item{a, b, c})
	if err := m.Run(); err != nil {
		return nil, err
	}
	return m.Top(), nil
}

// replace returns a new sequence with n items at index i swapped for subst
func replace(items []code.Item, i, n int, subst ...code.Item) []code.Item {
	out := make([]code.Item, 0, len(items)-n+len(subst))
	out = append(out, items[:i]...)
	out = append(out, subst...)
	out = append(out, items[i+n:]...)
	return out
}

func isFoldableOp(it code.Item) bool {
	op, ok := it.(*code.Op)
	return ok && foldable[op.Code]
}

// zeroDivisor reports whether applying c would divide by a zero b
func zeroDivisor(b, c code.Item) bool {
	op, ok := c.(*code.Op)
	if !ok || (op.Code != instructions.OP_DIV && op.Code != instructions.OP_MOD) {
		return false
	}
	switch v := b.(type) {
	case *code.Int:
		return v.Value == 0
	case *code.Float:
		return v.Value == 0
	default:
		return false
	}
}
