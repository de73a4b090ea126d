// Package code defines the item sum type that programs are made of.
// A program is an ordered []Item and passes through four shapes: classified
// tokens, call-expanded, optimized, fully linked. Every consumer switches
// exhaustively over the variants.
package code

import (
	"strconv"
	"strings"

	"github.com/funvibe/funforth/internal/instructions"
)

type ItemType string

const (
	OP_ITEM    = "OP"
	INT_ITEM   = "INT"
	FLOAT_ITEM = "FLOAT"
	STR_ITEM   = "STR"
	BOOL_ITEM  = "BOOL"
	REF_ITEM   = "REF"
	WORD_ITEM  = "WORD"
)

// Item is one element of a program: an opcode, a literal, a symbolic
// subroutine reference, or (pre-resolution) a raw word.
type Item interface {
	Type() ItemType
	Inspect() string
}

// Op is a resolved instruction
type Op struct {
	Code instructions.Opcode
}

func (o *Op) Type() ItemType  { return OP_ITEM }
func (o *Op) Inspect() string { return o.Code.String() }

// Int is a native integer literal
type Int struct {
	Value int64
}

func (i *Int) Type() ItemType  { return INT_ITEM }
func (i *Int) Inspect() string { return strconv.FormatInt(i.Value, 10) }

// Float is a native float literal
type Float struct {
	Value float64
}

func (f *Float) Type() ItemType  { return FLOAT_ITEM }
func (f *Float) Inspect() string { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

// Str is a string literal. Value holds the text with quotes stripped;
// Inspect re-quotes it so traces read like source.
type Str struct {
	Value string
}

func (s *Str) Type() ItemType  { return STR_ITEM }
func (s *Str) Inspect() string { return strconv.Quote(s.Value) }

// Bool is a boolean literal
type Bool struct {
	Value bool
}

func (b *Bool) Type() ItemType { return BOOL_ITEM }
func (b *Bool) Inspect() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// Ref is a symbolic reference to a subroutine, resolved to an absolute
// address by the linker
type Ref struct {
	Name string
}

func (r *Ref) Type() ItemType  { return REF_ITEM }
func (r *Ref) Inspect() string { return r.Name }

// Word is a raw identifier that classification could not resolve: either a
// subroutine name, a delimiter, or an unknown instruction caught later
type Word struct {
	Text string
}

func (w *Word) Type() ItemType  { return WORD_ITEM }
func (w *Word) Inspect() string { return w.Text }

// FromToken classifies one raw token exactly once. Quoted text becomes Str,
// boolean keywords become Bool, numeric text becomes Int or Float, known
// mnemonics become Op, everything else stays a Word.
func FromToken(tok string) Item {
	if isQuoted(tok) {
		return &Str{Value: tok[1 : len(tok)-1]}
	}
	switch tok {
	case "true":
		return &Bool{Value: true}
	case "false":
		return &Bool{Value: false}
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return &Int{Value: n}
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil && looksNumeric(tok) {
		return &Float{Value: f}
	}
	if op, err := instructions.Lookup(tok); err == nil {
		return &Op{Code: op}
	}
	return &Word{Text: tok}
}

// FromTokens classifies a whole token sequence
func FromTokens(tokens []string) []Item {
	items := make([]Item, 0, len(tokens))
	for _, tok := range tokens {
		items = append(items, FromToken(tok))
	}
	return items
}

func isQuoted(tok string) bool {
	if len(tok) < 2 {
		return false
	}
	first, last := tok[0], tok[len(tok)-1]
	return first == last && (first == '"' || first == '\'')
}

// looksNumeric guards against ParseFloat accepting forms the tokenizer
// never emits as numbers ("inf", "nan", hex).
func looksNumeric(tok string) bool {
	s := strings.TrimLeft(tok, "+-")
	if s == "" {
		return false
	}
	return s[0] >= '0' && s[0] <= '9' || s[0] == '.'
}

// IsConstant reports whether the item is a literal
func IsConstant(it Item) bool {
	switch it.(type) {
	case *Int, *Float, *Str, *Bool:
		return true
	default:
		return false
	}
}

// IsNumber reports whether the item is an integer or float literal
func IsNumber(it Item) bool {
	switch it.(type) {
	case *Int, *Float:
		return true
	default:
		return false
	}
}

// IsString reports whether the item is a string literal
func IsString(it Item) bool {
	_, ok := it.(*Str)
	return ok
}

// IsBool reports whether the item is a boolean literal
func IsBool(it Item) bool {
	_, ok := it.(*Bool)
	return ok
}

// IsOp reports whether the item is the given opcode
func IsOp(it Item, op instructions.Opcode) bool {
	o, ok := it.(*Op)
	return ok && o.Code == op
}

// Truthy returns the truth value of a literal: non-zero numbers, non-empty
// strings and true are truthy. Non-literals are never truthy.
func Truthy(it Item) bool {
	switch v := it.(type) {
	case *Int:
		return v.Value != 0
	case *Float:
		return v.Value != 0
	case *Str:
		return v.Value != ""
	case *Bool:
		return v.Value
	default:
		return false
	}
}

// Text returns the unquoted text form of a literal, the way the str cast
// renders it at runtime
func Text(it Item) string {
	if s, ok := it.(*Str); ok {
		return s.Value
	}
	return it.Inspect()
}

// Dump renders a program as a single line of source-like text
func Dump(items []Item) string {
	var sb strings.Builder
	for i, it := range items {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(it.Inspect())
	}
	return sb.String()
}
