package optimizer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/funforth/internal/code"
	"github.com/funvibe/funforth/internal/diagnostics"
)

func optimize(t *testing.T, tokens ...string) string {
	t.Helper()
	out, err := (&Folder{}).Fold(code.FromTokens(tokens))
	if err != nil {
		t.Fatalf("fold %v: %v", tokens, err)
	}
	return code.Dump(out)
}

func TestConstantFoldArithmetic(t *testing.T) {
	tests := []struct {
		tokens []string
		want   string
	}{
		{[]string{"2", "3", "+"}, "5"},
		{[]string{"10", "3", "-"}, "7"},
		{[]string{"6", "7", "*"}, "42"},
		{[]string{"9", "2", "/"}, "4"},
		{[]string{"9", "2", "%"}, "1"},
		{[]string{"12", "10", "&"}, "8"},
		{[]string{"12", "10", "|"}, "14"},
		{[]string{"12", "10", "^"}, "6"},
		{[]string{"2", "3", "<"}, "true"},
		{[]string{"2", "3", ">"}, "false"},
		{[]string{"3", "3", "=="}, "true"},
		{[]string{"1.5", "0.5", "+"}, "2"},
	}
	for _, tt := range tests {
		if got := optimize(t, tt.tokens...); got != tt.want {
			t.Errorf("optimize(%v) = %q, want %q", tt.tokens, got, tt.want)
		}
	}
}

func TestFoldCascades(t *testing.T) {
	// "2 3 + 5 *" folds to "5 5 *" on the first pass and 25 on the next;
	// the restart after each rewrite is what makes the second fold fire.
	if got := optimize(t, "2", "3", "+", "5", "*"); got != "25" {
		t.Errorf("cascading fold = %q, want 25", got)
	}
	if got := optimize(t, "1", "2", "+", "3", "+", "4", "+"); got != "10" {
		t.Errorf("cascading fold = %q, want 10", got)
	}
}

func TestNotEqualIsNotFolded(t *testing.T) {
	// != is deliberately outside the foldable set
	if got := optimize(t, "2", "3", "!="); got != "2 3 !=" {
		t.Errorf("optimize(2 3 !=) = %q, want it untouched", got)
	}
}

func TestStackRules(t *testing.T) {
	tests := []struct {
		tokens []string
		want   string
	}{
		{[]string{"7", "dup"}, "7 7"},
		{[]string{"7", "drop"}, ""},
		{[]string{"1", "2", "swap"}, "2 1"},
		{[]string{"1", "2", "over"}, "1 2 1"},
		{[]string{`"a"`, `"b"`, "swap"}, `"b" "a"`},
	}
	for _, tt := range tests {
		if got := optimize(t, tt.tokens...); got != tt.want {
			t.Errorf("optimize(%v) = %q, want %q", tt.tokens, got, tt.want)
		}
	}
}

func TestCastRules(t *testing.T) {
	tests := []struct {
		tokens []string
		want   string
	}{
		{[]string{"42", "int"}, "42"},
		{[]string{`"x"`, "str"}, `"x"`},
		{[]string{"true", "bool"}, "true"},
		{[]string{`"7"`, "int"}, "7"},
		{[]string{"5", "str"}, `"5"`},
		{[]string{"2.5", "str"}, `"2.5"`},
		{[]string{"0", "bool"}, "false"},
		{[]string{`"yes"`, "bool"}, "true"},
		{[]string{`""`, "bool"}, "false"},
	}
	for _, tt := range tests {
		if got := optimize(t, tt.tokens...); got != tt.want {
			t.Errorf("optimize(%v) = %q, want %q", tt.tokens, got, tt.want)
		}
	}
}

func TestUnparsableStringIntCastIsLeft(t *testing.T) {
	// The runtime gets to fail on this one
	if got := optimize(t, `"abc"`, "int"); got != `"abc" int` {
		t.Errorf("optimize(\"abc\" int) = %q, want it untouched", got)
	}
}

func TestUnfoldableTripleIsLeft(t *testing.T) {
	// Both operands are numeric and & is foldable, but the evaluator
	// rejects bitwise on floats. The triple must survive for the runtime
	// to fail on, not take the program down with it.
	tests := []struct {
		tokens []string
		want   string
	}{
		{[]string{"1.5", "2", "&"}, "1.5 2 &"},
		{[]string{"1.5", "2", "|"}, "1.5 2 |"},
		{[]string{"2", "0.5", "^"}, "2 0.5 ^"},
		{[]string{"1.5", "2", "&", "2", "3", "+"}, "1.5 2 & 5"},
	}
	for _, tt := range tests {
		if got := optimize(t, tt.tokens...); got != tt.want {
			t.Errorf("optimize(%v) = %q, want %q", tt.tokens, got, tt.want)
		}
	}

	out := Optimize(code.FromTokens([]string{"1.5", "2", "&"}))
	if out == nil {
		t.Fatal("Optimize returned a nil program")
	}
	if code.Dump(out) != "1.5 2 &" {
		t.Errorf("Optimize(1.5 2 &) = %q, want it untouched", code.Dump(out))
	}
}

func TestDivisionByZeroDeferredByDefault(t *testing.T) {
	for _, op := range []string{"/", "%"} {
		if got := optimize(t, "5", "0", op); got != "5 0 "+op {
			t.Errorf("optimize(5 0 %s) = %q, want it untouched", op, got)
		}
	}
}

func TestDivisionByZeroStrict(t *testing.T) {
	f := &Folder{Strict: true}
	_, err := f.Fold(code.FromTokens([]string{"5", "0", "/"}))
	if err == nil {
		t.Fatal("strict fold of 5 0 / should fail")
	}
	var ce *diagnostics.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("error is not CompileError. got=%T (%v)", err, err)
	}
	if !strings.Contains(ce.Error(), "division by zero") {
		t.Errorf("error = %q, want it to mention division by zero", ce.Error())
	}
}

func TestZeroDivisorDoesNotBlockLaterFolds(t *testing.T) {
	// The unsafe triple is skipped in place while folding continues to
	// the right of it.
	if got := optimize(t, "5", "0", "/", "2", "3", "+"); got != "5 0 / 5" {
		t.Errorf("got %q, want %q", got, "5 0 / 5")
	}
}

func TestIdempotence(t *testing.T) {
	samples := [][]string{
		{"2", "3", "+", "5", "*"},
		{"1", "2", "swap", "drop", "dup"},
		{`"7"`, "int", "str", "bool"},
		{"5", "0", "/"},
		{"dup", "+", "return"},
		{},
	}
	for _, tokens := range samples {
		once := Optimize(code.FromTokens(tokens))
		twice := Optimize(once)
		if code.Dump(once) != code.Dump(twice) {
			t.Errorf("optimize not idempotent for %v: %q then %q",
				tokens, code.Dump(once), code.Dump(twice))
		}
	}
}

func TestNonConstantsAreLeftAlone(t *testing.T) {
	// dup with nothing known about the stack cannot be rewritten
	if got := optimize(t, "dup", "+"); got != "dup +" {
		t.Errorf("optimize(dup +) = %q, want it untouched", got)
	}
}

func TestRewriteTrace(t *testing.T) {
	var buf bytes.Buffer
	f := &Folder{Reporter: diagnostics.New(&buf)}
	if _, err := f.Fold(code.FromTokens([]string{"2", "3", "+"})); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if !strings.Contains(buf.String(), "constant-folded 2 3 + to 5") {
		t.Errorf("trace = %q, want a constant-fold message", buf.String())
	}
}
