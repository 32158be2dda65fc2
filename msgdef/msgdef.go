// Package msgdef contains the raw, unresolved declaration tree for a single
// definition file. It is the parser's output and the linker's input: every
// cross-reference (message parents, field types, enum extensions) is still a
// textual name at this stage.
package msgdef

import (
	"strings"

	"github.com/defkit/defcompile/ast"
)

// File is one parsed source unit. Its top-level namespace is named after the
// sanitized base name of the file.
type File struct {
	// Path is the path by which the file was loaded, as given to the compiler
	// or written in the importing file.
	Path      string
	Namespace *Namespace
	Imports   []*Import
}

// Import is a reference to another definition file by path, with an optional
// alias.
type Import struct {
	Path  string
	Alias string
	Pos   ast.SourcePos
}

// Aliased reports whether the import binds its target under an alias name.
func (i *Import) Aliased() bool { return i.Alias != "" }

// Namespace is a named scope. The file-level namespace has no parent; nested
// namespaces form a tree.
type Namespace struct {
	Name string
	Pos  ast.SourcePos
	Doc  string

	Namespaces []*Namespace
	Messages   []*Message
	Enums      []*Enum
	Compounds  []*Compound
}

// Message is a message declaration with its directly declared fields. Parent
// is nil for root messages.
type Message struct {
	Name   string
	Pos    ast.SourcePos
	Doc    string
	Parent *TypeName
	Fields []*Field
}

// Field is one field declaration inside a message body.
type Field struct {
	Name string
	Pos  ast.SourcePos
	Doc  string
	Type *TypeRef

	Optional bool
	// Repeated and Required parse but carry no semantics.
	Repeated bool
	Required bool

	HasDefault bool
	Default    string
}

// EnumKind distinguishes the enum-like declaration forms.
type EnumKind int

const (
	EnumClosed EnumKind = iota
	EnumOpen
	EnumOptions
)

func (k EnumKind) String() string {
	switch k {
	case EnumOpen:
		return "open_enum"
	case EnumOptions:
		return "options"
	default:
		return "enum"
	}
}

// Enum covers enum, open_enum, and options declarations; the three share a
// body shape and differ only in Kind.
type Enum struct {
	Name   string
	Kind   EnumKind
	Pos    ast.SourcePos
	Doc    string
	Parent *TypeName
	Values []*EnumValue
}

// EnumValue is one member, with an optional explicit value.
type EnumValue struct {
	Name     string
	Pos      ast.SourcePos
	Doc      string
	HasValue bool
	Value    int64
}

// Compound is a named value type with components of one base type.
type Compound struct {
	Name       string
	Base       BasicType
	Components []string
	Pos        ast.SourcePos
	Doc        string
}

// BasicType is one of the definition language's builtin scalar types.
type BasicType int

const (
	String BasicType = iota
	Int
	Float
	Bool
	Byte
)

func (b BasicType) String() string {
	switch b {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Byte:
		return "byte"
	default:
		return "<invalid>"
	}
}

// BasicTypeByName maps source keywords to BasicType values.
var BasicTypeByName = map[string]BasicType{
	"string": String,
	"int":    Int,
	"float":  Float,
	"bool":   Bool,
	"byte":   Byte,
}

// TypeName is an unresolved reference as written in source: "::"-separated
// segments, optionally with a trailing ".field" selector denoting the
// enum/options type of a field on the referenced message.
type TypeName struct {
	Parts []string
	Field string
	Pos   ast.SourcePos
}

func (t *TypeName) String() string {
	s := strings.Join(t.Parts, "::")
	if t.Field != "" {
		s += "." + t.Field
	}
	return s
}

// TypeKind tags the variants of TypeRef.
type TypeKind int

const (
	KindBasic TypeKind = iota
	KindRef
	KindInlineEnum
	KindInlineOptions
	KindInlineCompound
	KindArray
	KindMap
)

// TypeRef is the syntactic type of a field. Exactly the fields relevant to
// Kind are populated.
type TypeRef struct {
	Kind TypeKind
	Pos  ast.SourcePos

	// KindBasic, and the base type for KindInlineCompound.
	Basic BasicType

	// KindRef: the referenced name. Also set for an inline enum written as
	// "enum Some::Ref".
	Ref *TypeName

	// KindInlineEnum / KindInlineOptions.
	IsOpen bool
	Values []*EnumValue

	// KindInlineCompound.
	Components []string

	// KindArray.
	Elem *TypeRef

	// KindMap.
	Key   *TypeRef
	Value *TypeRef
}
