// Package instructions defines the fixed instruction set of the funforth
// stack machine: the opcode enumeration, the mnemonic table, and lookup.
// The registry is immutable after package init.
package instructions

import "fmt"

// Opcode represents a single machine instruction
type Opcode byte

const (
	// Arithmetic
	OP_ADD Opcode = iota // +
	OP_SUB               // -
	OP_MUL               // *
	OP_DIV               // /
	OP_MOD               // %

	// Bitwise operations
	OP_BAND // &
	OP_BOR  // |
	OP_BXOR // ^
	OP_BNOT // ~ (unary)

	// Comparison
	OP_LT // <
	OP_GT // >
	OP_EQ // ==
	OP_NE // !=

	// Stack manipulation
	OP_DUP  // Duplicate top of stack
	OP_DROP // Discard top of stack
	OP_SWAP // Exchange top two items
	OP_OVER // Copy second item to top
	OP_ROT  // Rotate top three items

	// Casts
	OP_CAST_INT   // int
	OP_CAST_FLOAT // float
	OP_CAST_STR   // str
	OP_CAST_BOOL  // bool

	// Control flow
	OP_CALL   // Call subroutine at address on stack
	OP_RETURN // Return from subroutine
	OP_JMP    // Unconditional jump
	OP_IF     // Conditional
	OP_EXIT   // Stop execution
	OP_NOP    // Do nothing

	// Boolean connectives
	OP_AND // and
	OP_OR  // or
	OP_NOT // not

	// I/O
	OP_READ  // Read a value from the input stream
	OP_WRITE // Write top of stack to the output stream
	OP_PRINT // Write top of stack followed by a newline

	// Literal markers
	OP_TRUE  // Push true
	OP_FALSE // Push false
)

// Subroutine definition delimiters. These are not instructions; the
// compiler consumes them before lookup ever sees them.
const (
	DelimOpen  = ":"
	DelimClose = ";"
)

// Names maps opcodes to their mnemonics
var Names = map[Opcode]string{
	OP_ADD: "+",
	OP_SUB: "-",
	OP_MUL: "*",
	OP_DIV: "/",
	OP_MOD: "%",

	OP_BAND: "&",
	OP_BOR:  "|",
	OP_BXOR: "^",
	OP_BNOT: "~",

	OP_LT: "<",
	OP_GT: ">",
	OP_EQ: "==",
	OP_NE: "!=",

	OP_DUP:  "dup",
	OP_DROP: "drop",
	OP_SWAP: "swap",
	OP_OVER: "over",
	OP_ROT:  "rot",

	OP_CAST_INT:   "int",
	OP_CAST_FLOAT: "float",
	OP_CAST_STR:   "str",
	OP_CAST_BOOL:  "bool",

	OP_CALL:   "call",
	OP_RETURN: "return",
	OP_JMP:    "jmp",
	OP_IF:     "if",
	OP_EXIT:   "exit",
	OP_NOP:    "nop",

	OP_AND: "and",
	OP_OR:  "or",
	OP_NOT: "not",

	OP_READ:  "read",
	OP_WRITE: "write",
	OP_PRINT: ".",

	OP_TRUE:  "true",
	OP_FALSE: "false",
}

// opcodes is the reverse of Names, built once at init
var opcodes = func() map[string]Opcode {
	m := make(map[string]Opcode, len(Names))
	for op, name := range Names {
		m[name] = op
	}
	return m
}()

// Lookup resolves a mnemonic to its opcode. The error cause is the raw
// token, so callers can surface it verbatim in compile errors.
func Lookup(name string) (Opcode, error) {
	op, ok := opcodes[name]
	if !ok {
		return 0, fmt.Errorf("unknown instruction: %s", name)
	}
	return op, nil
}

// IsMnemonic reports whether name is a recognized instruction mnemonic
func IsMnemonic(name string) bool {
	_, ok := opcodes[name]
	return ok
}

// IsDelimiter reports whether name is one of the subroutine delimiters
func IsDelimiter(name string) bool {
	return name == DelimOpen || name == DelimClose
}

// String returns the mnemonic for an opcode (for trace output and errors)
func (op Opcode) String() string {
	if name, ok := Names[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%d)", byte(op))
}
