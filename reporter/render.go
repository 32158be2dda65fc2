package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rivo/uniseg"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	posColor   = color.New(color.Bold)
)

// Render writes a human-readable rendering of the given diagnostic to w,
// including the offending source line and a caret marking the column, when
// the file's source text is available. The caller supplies the raw contents
// of the file named by the diagnostic's position; src may be nil, in which
// case only the one-line form is written.
func Render(w io.Writer, err ErrorWithPos, src []byte) {
	pos := err.GetPosition()
	posColor.Fprintf(w, "%s: ", pos)
	errorColor.Fprintf(w, "%s: ", err.Kind())
	fmt.Fprintln(w, err.Unwrap())

	if src == nil || pos.Line <= 0 || pos.Offset > len(src) {
		return
	}
	line := sourceLineAt(src, pos.Offset)
	prefix := expandTabs(linePrefix(src, pos.Offset))
	fmt.Fprintf(w, "  %s\n", expandTabs(line))
	// uniseg gives the on-screen width of the prefix, so the caret lands on
	// the offending column even with multi-width runes before it.
	fmt.Fprintf(w, "  %s^\n", strings.Repeat(" ", uniseg.StringWidth(prefix)))
}

func sourceLineAt(src []byte, offset int) string {
	start := offset
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := offset
	for end < len(src) && src[end] != '\n' {
		end++
	}
	return string(src[start:end])
}

func linePrefix(src []byte, offset int) string {
	start := offset
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	return string(src[start:offset])
}

func expandTabs(s string) string {
	if !strings.ContainsRune(s, '\t') {
		return s
	}
	var sb strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := 8 - (col % 8)
			sb.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		sb.WriteRune(r)
		col += uniseg.StringWidth(string(r))
	}
	return sb.String()
}
