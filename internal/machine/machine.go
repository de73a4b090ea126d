// Package machine implements a minimal stack evaluator for the pure subset
// of the instruction set. The optimizer runs short instruction slices on a
// fresh Machine to compute fold results; tests use it to check that
// optimized code leaves the same stack and output behind as the original.
// Control flow and input are deliberately unsupported.
package machine

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/funvibe/funforth/internal/code"
	"github.com/funvibe/funforth/internal/instructions"
)

var errStackUnderflow = errors.New("stack underflow")
var errDivisionByZero = errors.New("division by zero")
var errUnsupported = errors.New("instruction not supported by the constant evaluator")

// errHalt stops the run loop without reporting a failure
var errHalt = errors.New("halt")

// Machine executes a fixed item sequence against an operand stack
type Machine struct {
	program []code.Item
	stack   []code.Item
	out     io.Writer
}

// New creates a machine for one program. Output defaults to io.Discard.
func New(program []code.Item) *Machine {
	return &Machine{program: program, out: io.Discard}
}

// WithOutput redirects write and print instructions to w
func (m *Machine) WithOutput(w io.Writer) *Machine {
	m.out = w
	return m
}

// Run executes the whole program. The stack is left as the program made it,
// so callers can inspect results after a successful run.
func (m *Machine) Run() error {
	for _, it := range m.program {
		if err := m.step(it); err != nil {
			if errors.Is(err, errHalt) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Top returns the top of the stack, or nil when the stack is empty
func (m *Machine) Top() code.Item {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

// Stack returns the operand stack, bottom first
func (m *Machine) Stack() []code.Item {
	return m.stack
}

func (m *Machine) push(it code.Item) {
	m.stack = append(m.stack, it)
}

func (m *Machine) pop() (code.Item, error) {
	if len(m.stack) == 0 {
		return nil, errStackUnderflow
	}
	it := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return it, nil
}

func (m *Machine) pop2() (code.Item, code.Item, error) {
	b, err := m.pop()
	if err != nil {
		return nil, nil, err
	}
	a, err := m.pop()
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (m *Machine) step(it code.Item) error {
	op, ok := it.(*code.Op)
	if !ok {
		// Any literal embedded in the program is a push
		m.push(it)
		return nil
	}

	switch op.Code {
	case instructions.OP_ADD, instructions.OP_SUB, instructions.OP_MUL,
		instructions.OP_DIV, instructions.OP_MOD:
		return m.arith(op.Code)

	case instructions.OP_BAND, instructions.OP_BOR, instructions.OP_BXOR:
		return m.bitwise(op.Code)

	case instructions.OP_BNOT:
		a, err := m.pop()
		if err != nil {
			return err
		}
		n, ok := a.(*code.Int)
		if !ok {
			return fmt.Errorf("~ expects an integer, got %s", a.Inspect())
		}
		m.push(&code.Int{Value: ^n.Value})
		return nil

	case instructions.OP_LT, instructions.OP_GT, instructions.OP_EQ, instructions.OP_NE:
		return m.compare(op.Code)

	case instructions.OP_AND, instructions.OP_OR:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		ab, aok := a.(*code.Bool)
		bb, bok := b.(*code.Bool)
		if !aok || !bok {
			return fmt.Errorf("%s expects booleans, got %s %s", op.Code, a.Inspect(), b.Inspect())
		}
		if op.Code == instructions.OP_AND {
			m.push(&code.Bool{Value: ab.Value && bb.Value})
		} else {
			m.push(&code.Bool{Value: ab.Value || bb.Value})
		}
		return nil

	case instructions.OP_NOT:
		a, err := m.pop()
		if err != nil {
			return err
		}
		ab, ok := a.(*code.Bool)
		if !ok {
			return fmt.Errorf("not expects a boolean, got %s", a.Inspect())
		}
		m.push(&code.Bool{Value: !ab.Value})
		return nil

	case instructions.OP_DUP:
		a, err := m.pop()
		if err != nil {
			return err
		}
		m.push(a)
		m.push(a)
		return nil

	case instructions.OP_DROP:
		_, err := m.pop()
		return err

	case instructions.OP_SWAP:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		m.push(b)
		m.push(a)
		return nil

	case instructions.OP_OVER:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		m.push(a)
		m.push(b)
		m.push(a)
		return nil

	case instructions.OP_ROT:
		c, err := m.pop()
		if err != nil {
			return err
		}
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		m.push(b)
		m.push(c)
		m.push(a)
		return nil

	case instructions.OP_CAST_INT:
		return m.castInt()

	case instructions.OP_CAST_FLOAT:
		return m.castFloat()

	case instructions.OP_CAST_STR:
		a, err := m.pop()
		if err != nil {
			return err
		}
		m.push(&code.Str{Value: code.Text(a)})
		return nil

	case instructions.OP_CAST_BOOL:
		a, err := m.pop()
		if err != nil {
			return err
		}
		m.push(&code.Bool{Value: code.Truthy(a)})
		return nil

	case instructions.OP_TRUE:
		m.push(&code.Bool{Value: true})
		return nil

	case instructions.OP_FALSE:
		m.push(&code.Bool{Value: false})
		return nil

	case instructions.OP_WRITE:
		a, err := m.pop()
		if err != nil {
			return err
		}
		_, err = io.WriteString(m.out, code.Text(a))
		return err

	case instructions.OP_PRINT:
		a, err := m.pop()
		if err != nil {
			return err
		}
		_, err = io.WriteString(m.out, code.Text(a)+"\n")
		return err

	case instructions.OP_NOP:
		return nil

	case instructions.OP_EXIT:
		return errHalt

	default:
		return fmt.Errorf("%s: %w", op.Code, errUnsupported)
	}
}

func (m *Machine) arith(op instructions.Opcode) error {
	a, b, err := m.pop2()
	if err != nil {
		return err
	}
	ai, aInt := a.(*code.Int)
	bi, bInt := b.(*code.Int)

	if aInt && bInt {
		switch op {
		case instructions.OP_ADD:
			m.push(&code.Int{Value: ai.Value + bi.Value})
		case instructions.OP_SUB:
			m.push(&code.Int{Value: ai.Value - bi.Value})
		case instructions.OP_MUL:
			m.push(&code.Int{Value: ai.Value * bi.Value})
		case instructions.OP_DIV:
			if bi.Value == 0 {
				return errDivisionByZero
			}
			m.push(&code.Int{Value: ai.Value / bi.Value})
		case instructions.OP_MOD:
			if bi.Value == 0 {
				return errDivisionByZero
			}
			m.push(&code.Int{Value: ai.Value % bi.Value})
		}
		return nil
	}

	av, aok := floatValue(a)
	bv, bok := floatValue(b)
	if !aok || !bok {
		return fmt.Errorf("%s expects numbers, got %s %s", op, a.Inspect(), b.Inspect())
	}
	switch op {
	case instructions.OP_ADD:
		m.push(&code.Float{Value: av + bv})
	case instructions.OP_SUB:
		m.push(&code.Float{Value: av - bv})
	case instructions.OP_MUL:
		m.push(&code.Float{Value: av * bv})
	case instructions.OP_DIV:
		if bv == 0 {
			return errDivisionByZero
		}
		m.push(&code.Float{Value: av / bv})
	case instructions.OP_MOD:
		if bv == 0 {
			return errDivisionByZero
		}
		m.push(&code.Float{Value: math.Mod(av, bv)})
	}
	return nil
}

func (m *Machine) bitwise(op instructions.Opcode) error {
	a, b, err := m.pop2()
	if err != nil {
		return err
	}
	ai, aok := a.(*code.Int)
	bi, bok := b.(*code.Int)
	if !aok || !bok {
		return fmt.Errorf("%s expects integers, got %s %s", op, a.Inspect(), b.Inspect())
	}
	switch op {
	case instructions.OP_BAND:
		m.push(&code.Int{Value: ai.Value & bi.Value})
	case instructions.OP_BOR:
		m.push(&code.Int{Value: ai.Value | bi.Value})
	case instructions.OP_BXOR:
		m.push(&code.Int{Value: ai.Value ^ bi.Value})
	}
	return nil
}

func (m *Machine) compare(op instructions.Opcode) error {
	a, b, err := m.pop2()
	if err != nil {
		return err
	}

	if code.IsNumber(a) && code.IsNumber(b) {
		av, _ := floatValue(a)
		bv, _ := floatValue(b)
		switch op {
		case instructions.OP_LT:
			m.push(&code.Bool{Value: av < bv})
		case instructions.OP_GT:
			m.push(&code.Bool{Value: av > bv})
		case instructions.OP_EQ:
			m.push(&code.Bool{Value: av == bv})
		case instructions.OP_NE:
			m.push(&code.Bool{Value: av != bv})
		}
		return nil
	}

	switch op {
	case instructions.OP_EQ:
		m.push(&code.Bool{Value: sameLiteral(a, b)})
	case instructions.OP_NE:
		m.push(&code.Bool{Value: !sameLiteral(a, b)})
	default:
		return fmt.Errorf("%s expects numbers, got %s %s", op, a.Inspect(), b.Inspect())
	}
	return nil
}

func (m *Machine) castInt() error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	switch v := a.(type) {
	case *code.Int:
		m.push(v)
	case *code.Float:
		m.push(&code.Int{Value: int64(v.Value)})
	case *code.Bool:
		if v.Value {
			m.push(&code.Int{Value: 1})
		} else {
			m.push(&code.Int{Value: 0})
		}
	case *code.Str:
		n, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("cannot convert %s to integer", v.Inspect())
		}
		m.push(&code.Int{Value: n})
	default:
		return fmt.Errorf("int expects a constant, got %s", a.Inspect())
	}
	return nil
}

func (m *Machine) castFloat() error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	switch v := a.(type) {
	case *code.Float:
		m.push(v)
	case *code.Int:
		m.push(&code.Float{Value: float64(v.Value)})
	case *code.Bool:
		if v.Value {
			m.push(&code.Float{Value: 1})
		} else {
			m.push(&code.Float{Value: 0})
		}
	case *code.Str:
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return fmt.Errorf("cannot convert %s to float", v.Inspect())
		}
		m.push(&code.Float{Value: f})
	default:
		return fmt.Errorf("float expects a constant, got %s", a.Inspect())
	}
	return nil
}

func floatValue(it code.Item) (float64, bool) {
	switch v := it.(type) {
	case *code.Int:
		return float64(v.Value), true
	case *code.Float:
		return v.Value, true
	default:
		return 0, false
	}
}

func sameLiteral(a, b code.Item) bool {
	switch av := a.(type) {
	case *code.Str:
		bv, ok := b.(*code.Str)
		return ok && av.Value == bv.Value
	case *code.Bool:
		bv, ok := b.(*code.Bool)
		return ok && av.Value == bv.Value
	default:
		return false
	}
}
