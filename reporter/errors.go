package reporter

import (
	"errors"
	"fmt"

	"github.com/defkit/defcompile/ast"
)

// ErrInvalidSource is a sentinel error that is returned by compile operations
// in the event that syntax or link errors are encountered, but the configured
// ErrorReporter always returns nil.
var ErrInvalidSource = errors.New("compile failed: invalid definition source")

// Kind classifies a diagnostic. Every error surfaced by the compiler carries
// exactly one kind.
type Kind int

const (
	// KindUnknown is the zero value; real diagnostics always carry one of the
	// kinds below.
	KindUnknown Kind = iota
	// KindSyntax indicates malformed source, including array-of-array.
	KindSyntax
	// KindImport indicates a missing imported file or a circular import.
	KindImport
	// KindUnresolvedReference indicates a parent, field type, or enum/options
	// reference that no resolution step satisfies.
	KindUnresolvedReference
	// KindRedeclaration indicates a duplicate message/enum/options name in one
	// namespace, or a duplicate field name within a message's own body.
	KindRedeclaration
	// KindInheritanceConflict indicates a field name colliding with an
	// inherited field's name.
	KindInheritanceConflict
	// KindTypeConstraint indicates a structural type violation: array-of-array,
	// non-string map key, default on an array/map field, or an invalid
	// enum/options value shape.
	KindTypeConstraint
	// KindReservedName indicates an identifier colliding with a reserved
	// keyword.
	KindReservedName
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax error"
	case KindImport:
		return "import error"
	case KindUnresolvedReference:
		return "unresolved reference"
	case KindRedeclaration:
		return "redeclaration"
	case KindInheritanceConflict:
		return "inheritance conflict"
	case KindTypeConstraint:
		return "type constraint violation"
	case KindReservedName:
		return "reserved name"
	default:
		return "error"
	}
}

// ErrorWithPos is an error about a definition source file that includes
// information about the location in the file that caused the error, and the
// kind of failure.
//
// The value of Error() will contain both the SourcePos and the underlying
// error. The value of Unwrap() will only be the underlying error.
type ErrorWithPos interface {
	error
	GetPosition() ast.SourcePos
	Kind() Kind
	Unwrap() error
}

// Error creates a new ErrorWithPos from the given kind, error, and source
// position.
func Error(kind Kind, pos ast.SourcePos, err error) ErrorWithPos {
	return errorWithSourcePos{kind: kind, pos: pos, underlying: err}
}

// Errorf creates a new ErrorWithPos whose underlying error is created using
// the given message format and arguments.
func Errorf(kind Kind, pos ast.SourcePos, format string, args ...interface{}) ErrorWithPos {
	return errorWithSourcePos{kind: kind, pos: pos, underlying: fmt.Errorf(format, args...)}
}

type errorWithSourcePos struct {
	underlying error
	kind       Kind
	pos        ast.SourcePos
}

func (e errorWithSourcePos) Error() string {
	return fmt.Sprintf("%s: %v", e.pos, e.underlying)
}

func (e errorWithSourcePos) GetPosition() ast.SourcePos {
	return e.pos
}

func (e errorWithSourcePos) Kind() Kind {
	return e.kind
}

func (e errorWithSourcePos) Unwrap() error {
	return e.underlying
}

var _ ErrorWithPos = errorWithSourcePos{}
