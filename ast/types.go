package ast

// TypeNode is the syntactic form of a field's type. It is a closed set;
// consumers switch exhaustively over the concrete types below.
type TypeNode interface {
	Node
	typeNode()
}

func (*BasicTypeNode) typeNode()      {}
func (*RefTypeNode) typeNode()        {}
func (*InlineEnumNode) typeNode()     {}
func (*InlineOptionsNode) typeNode()  {}
func (*InlineCompoundNode) typeNode() {}
func (*ArrayTypeNode) typeNode()      {}
func (*MapTypeNode) typeNode()        {}

// BasicTypeNode is one of: string, int, float, bool, byte.
type BasicTypeNode struct {
	Keyword *IdentNode
}

func (n *BasicTypeNode) Start() Token { return n.Keyword.Start() }
func (n *BasicTypeNode) End() Token   { return n.Keyword.End() }

// RefTypeNode names another declaration (message, enum, options, or
// compound); which one is not known until link time.
type RefTypeNode struct {
	Name *QualifiedNameNode
}

func (n *RefTypeNode) Start() Token { return n.Name.Start() }
func (n *RefTypeNode) End() Token   { return n.Name.End() }

// InlineEnumNode is an anonymous enum body used directly as a field type:
// "state: enum { A, B }". Ref is non-nil instead of Values when the form is
// "state: enum Some::Existing" (an explicitly tagged enum reference).
type InlineEnumNode struct {
	Keyword *IdentNode
	IsOpen  bool
	Values  []*EnumValueNode
	Ref     *QualifiedNameNode
	endTok  Token
}

func (n *InlineEnumNode) Start() Token { return n.Keyword.Start() }
func (n *InlineEnumNode) End() Token   { return n.endTok }

func NewInlineEnumNode(keyword *IdentNode, isOpen bool, values []*EnumValueNode, ref *QualifiedNameNode, end Token) *InlineEnumNode {
	return &InlineEnumNode{Keyword: keyword, IsOpen: isOpen, Values: values, Ref: ref, endTok: end}
}

// InlineOptionsNode is an anonymous options body used directly as a field
// type: "perm: options { Read, Write }".
type InlineOptionsNode struct {
	Keyword *IdentNode
	Values  []*EnumValueNode
	endTok  Token
}

func (n *InlineOptionsNode) Start() Token { return n.Keyword.Start() }
func (n *InlineOptionsNode) End() Token   { return n.endTok }

func NewInlineOptionsNode(keyword *IdentNode, values []*EnumValueNode, end Token) *InlineOptionsNode {
	return &InlineOptionsNode{Keyword: keyword, Values: values, endTok: end}
}

// InlineCompoundNode is an anonymous compound used directly as a field type:
// "pos: float { x, y, z }".
type InlineCompoundNode struct {
	BaseType   *IdentNode
	Components []*IdentNode
	endTok     Token
}

func (n *InlineCompoundNode) Start() Token { return n.BaseType.Start() }
func (n *InlineCompoundNode) End() Token   { return n.endTok }

func NewInlineCompoundNode(baseType *IdentNode, components []*IdentNode, end Token) *InlineCompoundNode {
	return &InlineCompoundNode{BaseType: baseType, Components: components, endTok: end}
}

// ArrayTypeNode is "Elem[]". The element may never itself be an array or a
// map; the parser rejects those forms outright.
type ArrayTypeNode struct {
	Elem   TypeNode
	endTok Token
}

func (n *ArrayTypeNode) Start() Token { return n.Elem.Start() }
func (n *ArrayTypeNode) End() Token   { return n.endTok }

func NewArrayTypeNode(elem TypeNode, end Token) *ArrayTypeNode {
	return &ArrayTypeNode{Elem: elem, endTok: end}
}

// MapTypeNode is "Map<Key, Value>".
type MapTypeNode struct {
	Keyword *IdentNode
	Key     TypeNode
	Value   TypeNode
	endTok  Token
}

func (n *MapTypeNode) Start() Token { return n.Keyword.Start() }
func (n *MapTypeNode) End() Token   { return n.endTok }

func NewMapTypeNode(keyword *IdentNode, key, value TypeNode, end Token) *MapTypeNode {
	return &MapTypeNode{Keyword: keyword, Key: key, Value: value, endTok: end}
}
