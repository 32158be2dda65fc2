package parser

import (
	"path/filepath"
	"strings"

	"github.com/defkit/defcompile/ast"
	"github.com/defkit/defcompile/msgdef"
	"github.com/defkit/defcompile/reporter"
)

// Result is the output of parsing one file: the syntax tree plus the raw
// declaration tree built from it. No cross-reference has been resolved yet.
type Result struct {
	file *ast.FileNode
	def  *msgdef.File
}

func (r *Result) AST() *ast.FileNode { return r.file }

func (r *Result) File() *msgdef.File { return r.def }

// ResultFromAST constructs the raw declaration tree for the given syntax
// tree. The file-level namespace is named after the sanitized base name of
// the file.
func ResultFromAST(file *ast.FileNode, handler *reporter.Handler) (*Result, error) {
	b := &defBuilder{file: file}
	def := &msgdef.File{
		Path: file.Name(),
		Namespace: &msgdef.Namespace{
			Name: FileNamespaceName(file.Name()),
			Pos:  ast.UnknownPos(file.Name()),
		},
	}
	for _, decl := range file.Decls {
		if imp, ok := decl.(*ast.ImportNode); ok {
			def.Imports = append(def.Imports, &msgdef.Import{
				Path:  imp.Path.Val,
				Alias: aliasName(imp),
				Pos:   b.pos(imp),
			})
			continue
		}
		b.addDecl(def.Namespace, decl)
	}
	return &Result{file: file, def: def}, handler.Error()
}

func aliasName(imp *ast.ImportNode) string {
	if imp.Alias == nil {
		return ""
	}
	return imp.Alias.Val
}

// FileNamespaceName derives the top-level namespace name for a file path:
// the base name without extension, sanitized to a valid identifier.
func FileNamespaceName(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	var sb strings.Builder
	for i, r := range base {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}

type defBuilder struct {
	file *ast.FileNode
}

func (b *defBuilder) pos(n ast.Node) ast.SourcePos {
	return b.file.NodeInfo(n).Start()
}

// doc collects the contiguous run of "///" comments attributed to the node's
// first token, stripped of their markers and joined with newlines.
func (b *defBuilder) doc(n ast.Node) string {
	comments := b.file.TokenInfo(n.Start()).LeadingComments()
	var lines []string
	for i := 0; i < comments.Len(); i++ {
		raw := comments.Index(i).RawText()
		if !strings.HasPrefix(raw, "///") {
			// a plain comment breaks the doc run
			lines = nil
			continue
		}
		line := strings.TrimPrefix(raw, "///")
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.Join(lines, "\n")
}

func (b *defBuilder) addDecl(ns *msgdef.Namespace, decl ast.DeclNode) {
	switch decl := decl.(type) {
	case *ast.NamespaceNode:
		child := &msgdef.Namespace{
			Name: decl.Name.Val,
			Pos:  b.pos(decl),
			Doc:  b.doc(decl),
		}
		for _, d := range decl.Decls {
			b.addDecl(child, d)
		}
		ns.Namespaces = append(ns.Namespaces, child)
	case *ast.MessageNode:
		ns.Messages = append(ns.Messages, b.buildMessage(decl))
	case *ast.EnumNode:
		ns.Enums = append(ns.Enums, b.buildEnum(decl))
	case *ast.CompoundNode:
		ns.Compounds = append(ns.Compounds, &msgdef.Compound{
			Name:       decl.Name.Val,
			Base:       msgdef.BasicTypeByName[decl.BaseType.Val],
			Components: identNames(decl.Components),
			Pos:        b.pos(decl),
			Doc:        b.doc(decl),
		})
	case *ast.ImportNode:
		// handled by the caller; imports appear only at file scope
	}
}

func (b *defBuilder) buildMessage(decl *ast.MessageNode) *msgdef.Message {
	msg := &msgdef.Message{
		Name:   decl.Name.Val,
		Pos:    b.pos(decl),
		Doc:    b.doc(decl),
		Parent: b.typeName(decl.Parent),
	}
	for _, f := range decl.Fields {
		msg.Fields = append(msg.Fields, b.buildField(f))
	}
	return msg
}

func (b *defBuilder) buildField(decl *ast.FieldNode) *msgdef.Field {
	field := &msgdef.Field{
		Name: decl.Name.Val,
		Pos:  b.pos(decl.Name),
		Doc:  b.doc(decl),
		Type: b.buildType(decl.Type),
	}
	for _, m := range decl.Modifiers {
		switch m.Val {
		case "optional":
			field.Optional = true
		case "repeated":
			field.Repeated = true
		case "required":
			field.Required = true
		}
	}
	if decl.Default != nil {
		field.HasDefault = true
		field.Default = strings.TrimSpace(decl.Default.Raw)
	}
	return field
}

func (b *defBuilder) buildEnum(decl *ast.EnumNode) *msgdef.Enum {
	kind := msgdef.EnumClosed
	switch decl.Kind {
	case ast.KindOpenEnum:
		kind = msgdef.EnumOpen
	case ast.KindOptions:
		kind = msgdef.EnumOptions
	}
	return &msgdef.Enum{
		Name:   decl.Name.Val,
		Kind:   kind,
		Pos:    b.pos(decl),
		Doc:    b.doc(decl),
		Parent: b.typeName(decl.Parent),
		Values: b.buildEnumValues(decl.Values),
	}
}

func (b *defBuilder) buildEnumValues(values []*ast.EnumValueNode) []*msgdef.EnumValue {
	out := make([]*msgdef.EnumValue, len(values))
	for i, v := range values {
		ev := &msgdef.EnumValue{
			Name: v.Name.Val,
			Pos:  b.pos(v),
			Doc:  b.doc(v),
		}
		if v.Number != nil {
			ev.HasValue = true
			ev.Value = v.Number.Val
		}
		out[i] = ev
	}
	return out
}

func (b *defBuilder) typeName(n *ast.QualifiedNameNode) *msgdef.TypeName {
	if n == nil {
		return nil
	}
	tn := &msgdef.TypeName{Pos: b.pos(n)}
	for _, part := range n.Parts {
		tn.Parts = append(tn.Parts, part.Val)
	}
	if n.Field != nil {
		tn.Field = n.Field.Val
	}
	return tn
}

func (b *defBuilder) buildType(n ast.TypeNode) *msgdef.TypeRef {
	switch n := n.(type) {
	case *ast.BasicTypeNode:
		return &msgdef.TypeRef{
			Kind:  msgdef.KindBasic,
			Basic: msgdef.BasicTypeByName[n.Keyword.Val],
			Pos:   b.pos(n),
		}
	case *ast.RefTypeNode:
		return &msgdef.TypeRef{
			Kind: msgdef.KindRef,
			Ref:  b.typeName(n.Name),
			Pos:  b.pos(n),
		}
	case *ast.InlineEnumNode:
		if n.Ref != nil {
			return &msgdef.TypeRef{
				Kind: msgdef.KindRef,
				Ref:  b.typeName(n.Ref),
				Pos:  b.pos(n),
			}
		}
		return &msgdef.TypeRef{
			Kind:   msgdef.KindInlineEnum,
			IsOpen: n.IsOpen,
			Values: b.buildEnumValues(n.Values),
			Pos:    b.pos(n),
		}
	case *ast.InlineOptionsNode:
		return &msgdef.TypeRef{
			Kind:   msgdef.KindInlineOptions,
			Values: b.buildEnumValues(n.Values),
			Pos:    b.pos(n),
		}
	case *ast.InlineCompoundNode:
		return &msgdef.TypeRef{
			Kind:       msgdef.KindInlineCompound,
			Basic:      msgdef.BasicTypeByName[n.BaseType.Val],
			Components: identNames(n.Components),
			Pos:        b.pos(n),
		}
	case *ast.ArrayTypeNode:
		return &msgdef.TypeRef{
			Kind: msgdef.KindArray,
			Elem: b.buildType(n.Elem),
			Pos:  b.pos(n),
		}
	case *ast.MapTypeNode:
		return &msgdef.TypeRef{
			Kind:  msgdef.KindMap,
			Key:   b.buildType(n.Key),
			Value: b.buildType(n.Value),
			Pos:   b.pos(n),
		}
	default:
		panic("unknown type node")
	}
}

func identNames(idents []*ast.IdentNode) []string {
	names := make([]string, len(idents))
	for i, id := range idents {
		names[i] = id.Val
	}
	return names
}
