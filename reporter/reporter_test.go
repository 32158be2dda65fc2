package reporter_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defkit/defcompile/ast"
	"github.com/defkit/defcompile/reporter"
)

func pos(line, col, offset int) ast.SourcePos {
	return ast.SourcePos{Filename: "test.def", Line: line, Col: col, Offset: offset}
}

func TestErrorWithPos(t *testing.T) {
	underlying := errors.New("boom")
	ewp := reporter.Error(reporter.KindSyntax, pos(3, 7, 42), underlying)
	assert.Equal(t, "test.def:3:7: boom", ewp.Error())
	assert.Equal(t, reporter.KindSyntax, ewp.Kind())
	assert.Equal(t, 3, ewp.GetPosition().Line)
	assert.ErrorIs(t, ewp, underlying)
}

func TestHandlerFailFast(t *testing.T) {
	h := reporter.NewHandler(nil)
	first := reporter.Errorf(reporter.KindSyntax, pos(1, 1, 0), "first")
	require.Error(t, h.HandleError(first))
	// once aborted, the handler keeps returning the same error
	assert.Equal(t, first, h.HandleError(reporter.Errorf(reporter.KindSyntax, pos(2, 1, 0), "second")))
	assert.Equal(t, first, h.Error())
}

func TestHandlerCollecting(t *testing.T) {
	var collected []reporter.ErrorWithPos
	rep := reporter.NewReporter(func(err reporter.ErrorWithPos) error {
		collected = append(collected, err)
		return nil
	}, nil)
	h := reporter.NewHandler(rep)
	require.NoError(t, h.HandleErrorf(reporter.KindImport, pos(1, 1, 0), "one"))
	require.NoError(t, h.HandleErrorf(reporter.KindRedeclaration, pos(2, 1, 0), "two"))
	assert.Len(t, collected, 2)
	// diagnostics were reported even though none aborted
	assert.ErrorIs(t, h.Error(), reporter.ErrInvalidSource)
	assert.NoError(t, h.ReporterError())
}

func TestHandlerWarnings(t *testing.T) {
	var warned []reporter.ErrorWithPos
	rep := reporter.NewReporter(nil, func(err reporter.ErrorWithPos) {
		warned = append(warned, err)
	})
	h := reporter.NewHandler(rep)
	h.HandleWarning(reporter.KindUnknown, pos(5, 2, 0), errors.New("suspicious"))
	require.Len(t, warned, 1)
	assert.NoError(t, h.Error())
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "syntax error", reporter.KindSyntax.String())
	assert.Equal(t, "import error", reporter.KindImport.String())
	assert.Equal(t, "unresolved reference", reporter.KindUnresolvedReference.String())
	assert.Equal(t, "inheritance conflict", reporter.KindInheritanceConflict.String())
}

func TestRender(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	src := []byte("message M {\n\tfield x: Missing\n}\n")
	offset := bytes.Index(src, []byte("Missing"))
	require.Positive(t, offset)
	ewp := reporter.Errorf(reporter.KindUnresolvedReference, pos(2, 18, offset),
		`reference "Missing" could not be resolved`)

	var buf bytes.Buffer
	reporter.Render(&buf, ewp, src)
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `test.def:2:18: unresolved reference: reference "Missing" could not be resolved`, lines[0])
	// the tab expands to the default tab stop, so the caret column is stable
	assert.Equal(t, "          field x: Missing", lines[1])
	assert.Equal(t, strings.Index(lines[1], "Missing"), strings.Index(lines[2], "^"))
}

func TestRenderWithoutSource(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	reporter.Render(&buf, reporter.Errorf(reporter.KindImport, ast.UnknownPos("x.def"), "could not open file"), nil)
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}
