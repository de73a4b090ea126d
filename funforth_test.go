package funforth

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/funforth/internal/code"
	"github.com/funvibe/funforth/internal/machine"
)

func dump(items []Item) string {
	return code.Dump(items)
}

func TestCompileScenarios(t *testing.T) {
	tests := []struct {
		tokens []string
		want   string
	}{
		{[]string{"2", "3", "+"}, "5"},
		{[]string{`"7"`, "int"}, "7"},
		{[]string{"5", "0", "/"}, "5 0 /"},
		{[]string{":", "double", "dup", "+", ";", "4", "double"}, "4 4 call exit dup + return"},
	}
	for _, tt := range tests {
		program, err := Compile(tt.tokens)
		if err != nil {
			t.Fatalf("compile %v: %v", tt.tokens, err)
		}
		if got := dump(program); got != tt.want {
			t.Errorf("compile %v = %q, want %q", tt.tokens, got, tt.want)
		}
	}
}

func TestCompileErrorKind(t *testing.T) {
	_, err := Compile([]string{":", "dup", ";"})
	if err == nil {
		t.Fatal("shadowing dup should fail")
	}
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("error is not CompileError. got=%T (%v)", err, err)
	}
}

func TestOptions(t *testing.T) {
	program, err := Compile([]string{"2", "3", "+"}, WithoutOptimization())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := dump(program); got != "2 3 +" {
		t.Errorf("unoptimized program = %q", got)
	}

	if _, err := Compile([]string{"5", "0", "/"}, WithStrictDivZero()); err == nil {
		t.Error("strict compile of 5 0 / should fail")
	}
}

func TestTraceOption(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Compile([]string{"2", "3", "+"}, WithTrace(&buf)); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(buf.String(), "constant-folded") {
		t.Errorf("trace = %q, want a fold message", buf.String())
	}
}

// Behavior preservation: running optimized code from an empty stack must
// leave the same stack and produce the same output as the original, for
// any input that does not divide by zero.
func TestOptimizeEquivalence(t *testing.T) {
	programs := [][]string{
		{"2", "3", "+", "4", "*"},
		{"1", "2", "swap", "drop"},
		{"7", "dup", "*"},
		{"1", "2", "over", "+", "+"},
		{`"7"`, "int", "1", "+"},
		{"5", "str", "write"},
		{"2", "3", "+", "."},
		{"10", "2", "/", "3", "%"},
		{"true", "bool", "not"},
		{"0", "bool", "not"},
	}

	for _, tokens := range programs {
		original := Classify(tokens)
		optimized := Optimize(original)

		var wantOut, gotOut bytes.Buffer

		m := machine.New(original)
		if err := m.WithOutput(&wantOut).Run(); err != nil {
			t.Fatalf("run %v: %v", tokens, err)
		}
		o := machine.New(optimized)
		if err := o.WithOutput(&gotOut).Run(); err != nil {
			t.Fatalf("run optimized %v: %v", tokens, err)
		}

		if dump(o.Stack()) != dump(m.Stack()) {
			t.Errorf("%v: stack %q, want %q (optimized to %q)",
				tokens, dump(o.Stack()), dump(m.Stack()), dump(optimized))
		}
		if gotOut.String() != wantOut.String() {
			t.Errorf("%v: output %q, want %q", tokens, gotOut.String(), wantOut.String())
		}
	}
}

func TestOptimizeIdempotence(t *testing.T) {
	samples := [][]string{
		{"2", "3", "+", "5", "*"},
		{":", "unused", ";"},
		{"5", "0", "/", "1", "1", "+"},
		{"dup", "dup", "dup"},
	}
	for _, tokens := range samples {
		once := Optimize(Classify(tokens))
		twice := Optimize(once)
		if dump(once) != dump(twice) {
			t.Errorf("not idempotent for %v: %q then %q", tokens, dump(once), dump(twice))
		}
	}
}

func TestBundleThroughPublicAPI(t *testing.T) {
	program, err := Compile([]string{"2", "3", "+"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	b := &Bundle{Program: program, Source: "five.fs"}
	data, err := b.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := LoadBundle(data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if dump(got.Program) != "5" {
		t.Errorf("program = %q, want %q", dump(got.Program), "5")
	}
}

func TestDisassembleThroughPublicAPI(t *testing.T) {
	program, err := Compile([]string{"2", "3", "+"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := Disassemble(program, "five"); !strings.Contains(got, "push 5") {
		t.Errorf("listing = %q", got)
	}
}
