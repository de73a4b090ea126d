package compiler

import (
	"fmt"
	"strings"

	"github.com/funvibe/funforth/internal/code"
)

// Disassemble returns a human-readable listing of a linked program. Every
// embedded literal is a push for the consuming runtime, so literals are
// shown with an explicit push marker.
func Disassemble(items []code.Item, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	for offset, it := range items {
		sb.WriteString(fmt.Sprintf("%04d ", offset))
		if code.IsConstant(it) {
			sb.WriteString(fmt.Sprintf("push %s\n", it.Inspect()))
			continue
		}
		sb.WriteString(it.Inspect())
		sb.WriteByte('\n')
	}
	return sb.String()
}
