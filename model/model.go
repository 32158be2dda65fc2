// Package model contains the resolved model of a compiled definition file:
// namespaces, messages with flattened field lists, enums and options with
// final numeric values and width metadata, and compounds. This is the sole
// interface exposed to code generators; values are immutable once the linker
// returns them.
package model

import (
	"strings"

	"github.com/defkit/defcompile/ast"
)

// File is the resolved model for one definition file and everything needed
// to generate code from it.
type File struct {
	// Path is the path by which the file was loaded.
	Path string
	// Namespace is the file-level namespace, named after the sanitized base
	// name of the file.
	Namespace *Namespace
	// Imports, in declaration order, with their resolved files.
	Imports []*Import
}

// Import is a resolved reference to another compiled file.
type Import struct {
	Path  string
	Alias string
	File  *File
}

// Aliased reports whether the imported file's namespace is reachable only
// under the alias name.
func (i *Import) Aliased() bool { return i.Alias != "" }

// Namespace is a named scope. Child namespaces are owned by their parent;
// the Parent back-reference is a non-owning lookup path.
type Namespace struct {
	Name   string
	Doc    string
	Pos    ast.SourcePos
	Parent *Namespace
	File   *File

	Namespaces []*Namespace
	Messages   []*Message
	Enums      []*Enum
	Compounds  []*Compound
}

// FullName returns the "::"-joined path of this namespace from the file
// level down.
func (n *Namespace) FullName() string {
	if n.Parent == nil {
		return n.Name
	}
	return n.Parent.FullName() + "::" + n.Name
}

// Child returns the directly nested namespace with the given name, or nil.
func (n *Namespace) Child(name string) *Namespace {
	for _, c := range n.Namespaces {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Message returns the message declared directly in this namespace with the
// given name, or nil.
func (n *Namespace) Message(name string) *Message {
	for _, m := range n.Messages {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Enum returns the enum/options declared directly in this namespace with the
// given name, or nil.
func (n *Namespace) Enum(name string) *Enum {
	for _, e := range n.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Compound returns the compound declared directly in this namespace with the
// given name, or nil.
func (n *Namespace) Compound(name string) *Compound {
	for _, c := range n.Compounds {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Message is a resolved message declaration.
type Message struct {
	Name      string
	Doc       string
	Pos       ast.SourcePos
	Namespace *Namespace
	// Parent is nil for root messages.
	Parent *Message
	// Fields declared directly by this message, in declaration order.
	Fields []*Field
	// Flattened is the complete field list: all ancestor fields oldest
	// ancestor first, then this message's own fields in declaration order.
	Flattened []*Field
}

func (m *Message) FullName() string {
	return m.Namespace.FullName() + "::" + m.Name
}

// Field returns the field declared directly on this message with the given
// name, or nil. Inherited fields are not searched.
func (m *Message) Field(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Field is a resolved field. Message is the message that declares it, which
// for inherited entries in a Flattened list is an ancestor.
type Field struct {
	Name    string
	Doc     string
	Pos     ast.SourcePos
	Message *Message
	Type    TypeRef

	Optional bool
	// Repeated and Required are recorded but carry no semantics.
	Repeated bool
	Required bool

	HasDefault bool
	// Default is the raw default text as written in source.
	Default string
}

// EnumKind distinguishes closed enums, open enums, and bit-flag options.
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

// Enum is a resolved enum, open enum, or options declaration with final
// member values and storage-width metadata.
type Enum struct {
	Name      string
	Kind      EnumKind
	Doc       string
	Pos       ast.SourcePos
	Namespace *Namespace
	// Parent is the extended enum/options, or nil.
	Parent *Enum
	// Values is the final merged list: parent members first (with their
	// assigned values), then this declaration's own members.
	Values []*EnumValue
	// Width is the minimal storage width in bits (8, 16, 32, or 64) able to
	// represent every assigned value. Advisory metadata for generators.
	Width int
	// Signed is true when any assigned value is negative.
	Signed bool
	// Synthetic is true for declarations materialized from inline enum or
	// options bodies on fields.
	Synthetic bool
}

func (e *Enum) FullName() string {
	return e.Namespace.FullName() + "::" + e.Name
}

// Value returns the member with the given name, or nil.
func (e *Enum) Value(name string) *EnumValue {
	for _, v := range e.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// EnumValue is one member with its final assigned value.
type EnumValue struct {
	Name  string
	Value int64
	Doc   string
	Pos   ast.SourcePos
}

// BasicKind is one of the definition language's builtin scalar types.
type BasicKind int

const (
	String BasicKind = iota
	Int
	Float
	Bool
	Byte
)

func (b BasicKind) String() string {
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

// Compound is a resolved compound declaration: named components of one base
// type.
type Compound struct {
	Name       string
	Base       BasicKind
	Components []string
	Doc        string
	Pos        ast.SourcePos
	Namespace  *Namespace
	// Synthetic is true for declarations materialized from inline compound
	// bodies on fields.
	Synthetic bool
}

func (c *Compound) FullName() string {
	return c.Namespace.FullName() + "::" + c.Name
}

// TypeRef is the resolved type of a field. It is a closed sum; consumers
// switch exhaustively over the concrete types below.
type TypeRef interface {
	typeRef()
	String() string
}

func (Basic) typeRef()      {}
func (EnumRef) typeRef()    {}
func (MessageRef) typeRef() {}
func (CompoundRef) typeRef() {}
func (Array) typeRef()      {}
func (Map) typeRef()        {}

// Basic is a builtin scalar type.
type Basic struct {
	Kind BasicKind
}

func (b Basic) String() string { return b.Kind.String() }

// EnumRef is a bound reference to an enum, open enum, or options
// declaration. Inline bodies bind to their synthetic declaration.
type EnumRef struct {
	Enum *Enum
}

func (e EnumRef) String() string { return e.Enum.FullName() }

// MessageRef is a bound reference to a message.
type MessageRef struct {
	Message *Message
}

func (m MessageRef) String() string { return m.Message.FullName() }

// CompoundRef is a bound reference to a compound.
type CompoundRef struct {
	Compound *Compound
}

func (c CompoundRef) String() string { return c.Compound.FullName() }

// Array is an array type. Elem is never itself an Array or a Map.
type Array struct {
	Elem TypeRef
}

func (a Array) String() string { return a.Elem.String() + "[]" }

// Map is a map type. Key is always Basic(string); Value is never an Array
// or a Map.
type Map struct {
	Key   TypeRef
	Value TypeRef
}

func (m Map) String() string {
	var sb strings.Builder
	sb.WriteString("Map<")
	sb.WriteString(m.Key.String())
	sb.WriteString(", ")
	sb.WriteString(m.Value.String())
	sb.WriteString(">")
	return sb.String()
}
