package compiler

import (
	"github.com/funvibe/funforth/internal/code"
	"github.com/funvibe/funforth/internal/diagnostics"
	"github.com/funvibe/funforth/internal/instructions"
)

// booleanOps are the connectives that only accept boolean operands
var booleanOps = map[instructions.Opcode]bool{
	instructions.OP_AND: true,
	instructions.OP_OR:  true,
	instructions.OP_NOT: true,
}

// Validate checks the linked program for obvious errors in one linear,
// non-mutating pass. It rejects items that are neither literals nor
// recognizable instructions, a string literal feeding the int cast, and a
// non-boolean literal feeding a boolean connective.
//
// The string-into-int rule deliberately conflicts with the optimizer's own
// string-to-int fold: validation runs after optimization and only sees the
// patterns optimization left untouched, so a cleanly parsing string will
// already have been folded away while anything else is rejected here.
func Validate(items []code.Item) error {
	for i, a := range items {
		var b code.Item
		if i+1 < len(items) {
			b = items[i+1]
		}

		if !code.IsConstant(a) {
			if err := resolvable(a); err != nil {
				return err
			}
		}

		if code.IsString(a) && code.IsOp(b, instructions.OP_CAST_INT) {
			return diagnostics.NewError(
				"cannot convert string to integer (index %d): %s %s",
				i, a.Inspect(), b.Inspect())
		}

		if code.IsConstant(a) && !code.IsBool(a) && isBooleanOp(b) {
			return diagnostics.NewError(
				"can only use binary operators on booleans (index %d): %s %s",
				i, a.Inspect(), b.Inspect())
		}
	}
	return nil
}

// resolvable reports whether a non-literal item is a known instruction
func resolvable(it code.Item) error {
	switch v := it.(type) {
	case *code.Op:
		return nil
	case *code.Word:
		if _, err := instructions.Lookup(v.Text); err != nil {
			return diagnostics.NewError("%s", err.Error())
		}
		return nil
	case *code.Ref:
		return diagnostics.NewError("unknown instruction: %s", v.Name)
	default:
		return diagnostics.NewError("unknown instruction: %s", it.Inspect())
	}
}

func isBooleanOp(it code.Item) bool {
	op, ok := it.(*code.Op)
	return ok && booleanOps[op.Code]
}
