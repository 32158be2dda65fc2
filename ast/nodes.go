package ast

import "strings"

// Node is the interface implemented by all nodes in the syntax tree.
type Node interface {
	Start() Token
	End() Token
}

// FileNode is the root of the syntax tree for a single definition file.
type FileNode struct {
	fileInfo *FileInfo

	Decls []DeclNode
	// EOF token; trailing comments in the file are attributed to it.
	EOF Token
}

func NewFileNode(info *FileInfo, decls []DeclNode, eof Token) *FileNode {
	return &FileNode{fileInfo: info, Decls: decls, EOF: eof}
}

func (f *FileNode) Name() string {
	return f.fileInfo.Name()
}

func (f *FileNode) NodeInfo(n Node) NodeInfo {
	return f.fileInfo.NodeInfo(n)
}

func (f *FileNode) TokenInfo(t Token) NodeInfo {
	return f.fileInfo.TokenInfo(t)
}

func (f *FileNode) FileInfo() *FileInfo {
	return f.fileInfo
}

func (f *FileNode) Start() Token {
	if len(f.Decls) > 0 {
		return f.Decls[0].Start()
	}
	return f.EOF
}

func (f *FileNode) End() Token { return f.EOF }

// DeclNode is a declaration that may appear at file scope or inside a
// namespace block.
type DeclNode interface {
	Node
	declNode()
}

func (*ImportNode) declNode()    {}
func (*NamespaceNode) declNode() {}
func (*MessageNode) declNode()   {}
func (*EnumNode) declNode()      {}
func (*CompoundNode) declNode()  {}

// IdentNode represents a single identifier or keyword token.
type IdentNode struct {
	Val string
	tok Token
}

func NewIdentNode(val string, tok Token) *IdentNode {
	return &IdentNode{Val: val, tok: tok}
}

func (n *IdentNode) Start() Token { return n.tok }
func (n *IdentNode) End() Token   { return n.tok }

// QualifiedNameNode represents a possibly-qualified reference such as
// "A::B::C", optionally with a trailing field selector: "A::Msg.field"
// (which denotes the enum/options type of that field).
type QualifiedNameNode struct {
	Parts []*IdentNode
	// Field is non-nil for dotted references ("Msg.field").
	Field *IdentNode
}

func (n *QualifiedNameNode) Start() Token { return n.Parts[0].Start() }

func (n *QualifiedNameNode) End() Token {
	if n.Field != nil {
		return n.Field.End()
	}
	return n.Parts[len(n.Parts)-1].End()
}

// Text reconstructs the reference as written, e.g. "A::B.f".
func (n *QualifiedNameNode) Text() string {
	parts := make([]string, len(n.Parts))
	for i, p := range n.Parts {
		parts[i] = p.Val
	}
	s := strings.Join(parts, "::")
	if n.Field != nil {
		s += "." + n.Field.Val
	}
	return s
}

// StringLiteralNode represents a quoted string, e.g. an import path.
type StringLiteralNode struct {
	Val string
	tok Token
}

func NewStringLiteralNode(val string, tok Token) *StringLiteralNode {
	return &StringLiteralNode{Val: val, tok: tok}
}

func (n *StringLiteralNode) Start() Token { return n.tok }
func (n *StringLiteralNode) End() Token   { return n.tok }

// IntLiteralNode represents an integer literal, possibly negative.
type IntLiteralNode struct {
	Val      int64
	startTok Token
	endTok   Token
}

func NewIntLiteralNode(val int64, start, end Token) *IntLiteralNode {
	return &IntLiteralNode{Val: val, startTok: start, endTok: end}
}

func (n *IntLiteralNode) Start() Token { return n.startTok }
func (n *IntLiteralNode) End() Token   { return n.endTok }

// ImportNode represents an "import \"path\" [as Alias]" statement.
type ImportNode struct {
	Keyword *IdentNode
	Path    *StringLiteralNode
	// Alias is non-nil when the import has an "as Alias" clause.
	Alias  *IdentNode
	endTok Token
}

func (n *ImportNode) Start() Token { return n.Keyword.Start() }
func (n *ImportNode) End() Token   { return n.endTok }

func NewImportNode(keyword *IdentNode, path *StringLiteralNode, alias *IdentNode, end Token) *ImportNode {
	return &ImportNode{Keyword: keyword, Path: path, Alias: alias, endTok: end}
}

// NamespaceNode represents a "namespace Name { ... }" block.
type NamespaceNode struct {
	Keyword *IdentNode
	Name    *IdentNode
	Decls   []DeclNode
	endTok  Token
}

func (n *NamespaceNode) Start() Token { return n.Keyword.Start() }
func (n *NamespaceNode) End() Token   { return n.endTok }

func NewNamespaceNode(keyword, name *IdentNode, decls []DeclNode, end Token) *NamespaceNode {
	return &NamespaceNode{Keyword: keyword, Name: name, Decls: decls, endTok: end}
}

// MessageNode represents a "message Name [: Parent] { ... }" declaration.
type MessageNode struct {
	Keyword *IdentNode
	Name    *IdentNode
	// Parent is non-nil when the message extends another message.
	Parent *QualifiedNameNode
	Fields []*FieldNode
	endTok Token
}

func (n *MessageNode) Start() Token { return n.Keyword.Start() }
func (n *MessageNode) End() Token   { return n.endTok }

func NewMessageNode(keyword, name *IdentNode, parent *QualifiedNameNode, fields []*FieldNode, end Token) *MessageNode {
	return &MessageNode{Keyword: keyword, Name: name, Parent: parent, Fields: fields, endTok: end}
}

// EnumKind distinguishes the three enum-like declaration forms.
type EnumKind int

const (
	KindEnum EnumKind = iota
	KindOpenEnum
	KindOptions
)

// EnumNode represents "enum", "open_enum", and "options" declarations, which
// share a body shape.
type EnumNode struct {
	Keyword *IdentNode
	Kind    EnumKind
	Name    *IdentNode
	// Parent is non-nil when the declaration extends another enum/options.
	Parent *QualifiedNameNode
	Values []*EnumValueNode
	endTok Token
}

func (n *EnumNode) Start() Token { return n.Keyword.Start() }
func (n *EnumNode) End() Token   { return n.endTok }

func NewEnumNode(keyword *IdentNode, kind EnumKind, name *IdentNode, parent *QualifiedNameNode, values []*EnumValueNode, end Token) *EnumNode {
	return &EnumNode{Keyword: keyword, Kind: kind, Name: name, Parent: parent, Values: values, endTok: end}
}

// EnumValueNode represents one member of an enum/options body, with an
// optional explicit value.
type EnumValueNode struct {
	Name *IdentNode
	// Number is non-nil when the member carries "= N".
	Number *IntLiteralNode
}

func (n *EnumValueNode) Start() Token { return n.Name.Start() }

func (n *EnumValueNode) End() Token {
	if n.Number != nil {
		return n.Number.End()
	}
	return n.Name.End()
}

// CompoundNode represents a named compound declaration, e.g.
// "float Vec3 { x, y, z }".
type CompoundNode struct {
	BaseType   *IdentNode
	Name       *IdentNode
	Components []*IdentNode
	endTok     Token
}

func (n *CompoundNode) Start() Token { return n.BaseType.Start() }
func (n *CompoundNode) End() Token   { return n.endTok }

func NewCompoundNode(baseType, name *IdentNode, components []*IdentNode, end Token) *CompoundNode {
	return &CompoundNode{BaseType: baseType, Name: name, Components: components, endTok: end}
}

// FieldNode represents one field declaration inside a message body.
type FieldNode struct {
	// Keyword is non-nil when the declaration starts with the optional
	// "field" keyword.
	Keyword *IdentNode
	// Modifiers in source order: optional, repeated, required.
	Modifiers []*IdentNode
	Name      *IdentNode
	Type      TypeNode
	// Default is non-nil when the field carries "= <raw default>".
	Default *DefaultNode
	endTok  Token
}

func (n *FieldNode) Start() Token {
	if n.Keyword != nil {
		return n.Keyword.Start()
	}
	if len(n.Modifiers) > 0 {
		return n.Modifiers[0].Start()
	}
	return n.Name.Start()
}

func (n *FieldNode) End() Token { return n.endTok }

func NewFieldNode(keyword *IdentNode, modifiers []*IdentNode, name *IdentNode, typ TypeNode, def *DefaultNode, end Token) *FieldNode {
	return &FieldNode{Keyword: keyword, Modifiers: modifiers, Name: name, Type: typ, Default: def, endTok: end}
}

// DefaultNode holds the raw default-value text, everything between "=" and
// the statement terminator.
type DefaultNode struct {
	Raw      string
	startTok Token
	endTok   Token
}

func (n *DefaultNode) Start() Token { return n.startTok }
func (n *DefaultNode) End() Token   { return n.endTok }

func NewDefaultNode(raw string, start, end Token) *DefaultNode {
	return &DefaultNode{Raw: raw, startTok: start, endTok: end}
}
