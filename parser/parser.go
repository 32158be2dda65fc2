package parser

import (
	"fmt"
	"io"

	"github.com/defkit/defcompile/ast"
	"github.com/defkit/defcompile/reporter"
)

// Parse reads definition-language source from r and produces a syntax tree.
// The given filename is used in error messages and source positions.
//
// Syntax errors are reported to the given handler and abort the parse; there
// is no partial recovery within a file.
func Parse(filename string, r io.Reader, handler *reporter.Handler) (*ast.FileNode, error) {
	lx, err := newLexer(r, filename, handler)
	if err != nil {
		return nil, err
	}
	p := &defParser{lex: lx, handler: handler}
	if err := p.advance(); err != nil {
		return nil, handler.Error()
	}
	file, err := p.parseFile()
	if err != nil {
		return nil, handler.Error()
	}
	return file, nil
}

type defParser struct {
	lex     *defLex
	handler *reporter.Handler

	cur    symbol
	peeked *symbol
}

func (p *defParser) advance() error {
	if p.peeked != nil {
		p.cur = *p.peeked
		p.peeked = nil
		return nil
	}
	sym, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = sym
	return nil
}

func (p *defParser) peek() (symbol, error) {
	if p.peeked == nil {
		sym, err := p.lex.next()
		if err != nil {
			return symbol{}, err
		}
		p.peeked = &sym
	}
	return *p.peeked, nil
}

func (p *defParser) expect(kind tokenKind) (symbol, error) {
	if p.cur.kind != kind {
		return symbol{}, p.syntaxErrorf("expecting %s, got %s", kind.describe(), p.describeCur())
	}
	sym := p.cur
	if err := p.advance(); err != nil {
		return symbol{}, err
	}
	return sym, nil
}

func (p *defParser) describeCur() string {
	switch p.cur.kind {
	case tokenIdent:
		return fmt.Sprintf("%q", p.cur.text)
	case tokenEOF:
		return "end of file"
	default:
		return p.cur.kind.describe()
	}
}

func (p *defParser) pos(tok ast.Token) ast.SourcePos {
	return p.lex.info.TokenInfo(tok).Start()
}

func (p *defParser) syntaxErrorf(format string, args ...interface{}) error {
	ewp := reporter.Errorf(reporter.KindSyntax, p.pos(p.cur.tok), format, args...)
	if err := p.handler.HandleError(ewp); err != nil {
		return err
	}
	return ewp
}

func (p *defParser) ident() (*ast.IdentNode, error) {
	sym, err := p.expect(tokenIdent)
	if err != nil {
		return nil, err
	}
	return ast.NewIdentNode(sym.text, sym.tok), nil
}

func (p *defParser) parseFile() (*ast.FileNode, error) {
	var decls []ast.DeclNode
	for p.cur.kind != tokenEOF {
		decl, err := p.parseDecl(true)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return ast.NewFileNode(p.lex.info, decls, p.cur.tok), nil
}

func (p *defParser) parseDecl(fileScope bool) (ast.DeclNode, error) {
	switch p.cur.kind {
	case tokenImport:
		if !fileScope {
			return nil, p.syntaxErrorf("imports may only appear at file scope")
		}
		return p.parseImport()
	case tokenNamespace:
		return p.parseNamespace()
	case tokenMessage:
		return p.parseMessage()
	case tokenEnum, tokenOpenEnum:
		return p.parseEnum()
	case tokenOptions:
		return p.parseOptions()
	case tokenBasicType:
		return p.parseCompound()
	default:
		return nil, p.syntaxErrorf("expecting declaration, got %s", p.describeCur())
	}
}

func (p *defParser) parseImport() (*ast.ImportNode, error) {
	keyword := ast.NewIdentNode(p.cur.text, p.cur.tok)
	if err := p.advance(); err != nil {
		return nil, err
	}
	pathSym, err := p.expect(tokenString)
	if err != nil {
		return nil, err
	}
	path := ast.NewStringLiteralNode(pathSym.text, pathSym.tok)
	var alias *ast.IdentNode
	end := pathSym.tok
	if p.cur.kind == tokenAs {
		if err := p.advance(); err != nil {
			return nil, err
		}
		alias, err = p.ident()
		if err != nil {
			return nil, err
		}
		end = alias.End()
	}
	if p.cur.kind == tokenSemicolon {
		end = p.cur.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return ast.NewImportNode(keyword, path, alias, end), nil
}

func (p *defParser) parseNamespace() (*ast.NamespaceNode, error) {
	keyword := ast.NewIdentNode(p.cur.text, p.cur.tok)
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenLBrace); err != nil {
		return nil, err
	}
	var decls []ast.DeclNode
	for p.cur.kind != tokenRBrace {
		if p.cur.kind == tokenEOF {
			return nil, p.syntaxErrorf(`unexpected end of file, expecting "}" to close namespace %s`, name.Val)
		}
		decl, err := p.parseDecl(false)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	end := p.cur.tok
	if err := p.advance(); err != nil {
		return nil, err
	}
	return ast.NewNamespaceNode(keyword, name, decls, end), nil
}

func (p *defParser) parseMessage() (*ast.MessageNode, error) {
	keyword := ast.NewIdentNode(p.cur.text, p.cur.tok)
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	var parent *ast.QualifiedNameNode
	if p.cur.kind == tokenColon {
		if err := p.advance(); err != nil {
			return nil, err
		}
		parent, err = p.parseQualifiedName(true)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tokenLBrace); err != nil {
		return nil, err
	}
	var fields []*ast.FieldNode
	for p.cur.kind != tokenRBrace {
		if p.cur.kind == tokenEOF {
			return nil, p.syntaxErrorf(`unexpected end of file, expecting "}" to close message %s`, name.Val)
		}
		if p.cur.kind == tokenSemicolon {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		field, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	end := p.cur.tok
	if err := p.advance(); err != nil {
		return nil, err
	}
	return ast.NewMessageNode(keyword, name, parent, fields, end), nil
}

func (p *defParser) parseEnum() (*ast.EnumNode, error) {
	kind := ast.KindEnum
	if p.cur.kind == tokenOpenEnum {
		kind = ast.KindOpenEnum
	}
	keyword := ast.NewIdentNode(p.cur.text, p.cur.tok)
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseEnumTail(keyword, kind)
}

func (p *defParser) parseOptions() (*ast.EnumNode, error) {
	keyword := ast.NewIdentNode(p.cur.text, p.cur.tok)
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseEnumTail(keyword, ast.KindOptions)
}

func (p *defParser) parseEnumTail(keyword *ast.IdentNode, kind ast.EnumKind) (*ast.EnumNode, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	var parent *ast.QualifiedNameNode
	if p.cur.kind == tokenColon {
		if err := p.advance(); err != nil {
			return nil, err
		}
		parent, err = p.parseQualifiedName(true)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tokenLBrace); err != nil {
		return nil, err
	}
	values, err := p.parseEnumBody()
	if err != nil {
		return nil, err
	}
	end := p.cur.tok
	if _, err := p.expect(tokenRBrace); err != nil {
		return nil, err
	}
	return ast.NewEnumNode(keyword, kind, name, parent, values, end), nil
}

// parseEnumBody parses enum/options members up to, but not including, the
// closing brace. Members may be separated by commas, semicolons, newlines, or
// nothing at all.
func (p *defParser) parseEnumBody() ([]*ast.EnumValueNode, error) {
	var values []*ast.EnumValueNode
	for {
		for p.cur.kind == tokenComma || p.cur.kind == tokenSemicolon {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.cur.kind == tokenRBrace {
			return values, nil
		}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		val := &ast.EnumValueNode{Name: name}
		if p.cur.kind == tokenEquals {
			if err := p.advance(); err != nil {
				return nil, err
			}
			num, err := p.parseIntLiteral()
			if err != nil {
				return nil, err
			}
			val.Number = num
		}
		values = append(values, val)
	}
}

func (p *defParser) parseIntLiteral() (*ast.IntLiteralNode, error) {
	start := p.cur.tok
	neg := false
	if p.cur.kind == tokenMinus {
		neg = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	sym, err := p.expect(tokenInt)
	if err != nil {
		return nil, err
	}
	v := sym.ival
	if neg {
		v = -v
	}
	return ast.NewIntLiteralNode(v, start, sym.tok), nil
}

func (p *defParser) parseCompound() (*ast.CompoundNode, error) {
	base := ast.NewIdentNode(p.cur.text, p.cur.tok)
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenLBrace); err != nil {
		return nil, err
	}
	components, err := p.parseComponentList()
	if err != nil {
		return nil, err
	}
	end := p.cur.tok
	if _, err := p.expect(tokenRBrace); err != nil {
		return nil, err
	}
	return ast.NewCompoundNode(base, name, components, end), nil
}

func (p *defParser) parseComponentList() ([]*ast.IdentNode, error) {
	var components []*ast.IdentNode
	for {
		for p.cur.kind == tokenComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.cur.kind == tokenRBrace {
			return components, nil
		}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		components = append(components, name)
	}
}

func (p *defParser) parseField() (*ast.FieldNode, error) {
	// the "field" keyword prefix is optional
	var keyword *ast.IdentNode
	if p.cur.kind == tokenField {
		keyword = ast.NewIdentNode(p.cur.text, p.cur.tok)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	var modifiers []*ast.IdentNode
	for p.cur.kind == tokenOptional || p.cur.kind == tokenRepeated || p.cur.kind == tokenRequired {
		modifiers = append(modifiers, ast.NewIdentNode(p.cur.text, p.cur.tok))
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenColon); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	var def *ast.DefaultNode
	end := typ.End()
	if p.cur.kind == tokenEquals {
		def, err = p.parseDefault()
		if err != nil {
			return nil, err
		}
		end = def.End()
	}
	if p.cur.kind == tokenSemicolon {
		end = p.cur.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return ast.NewFieldNode(keyword, modifiers, name, typ, def, end), nil
}

// parseDefault consumes "=" and then captures the raw default text: every
// token up to a semicolon, a closing brace, or the end of the line.
func (p *defParser) parseDefault() (*ast.DefaultNode, error) {
	eq := p.cur.tok
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.kind == tokenSemicolon || p.cur.kind == tokenRBrace || p.cur.kind == tokenEOF {
		return nil, p.syntaxErrorf(`expecting default value after "="`)
	}
	line := p.pos(eq).Line
	start := p.cur.tok
	end := p.cur.tok
	for {
		end = p.cur.tok
		next, err := p.peek()
		if err != nil {
			return nil, err
		}
		if next.kind == tokenSemicolon || next.kind == tokenRBrace || next.kind == tokenEOF {
			break
		}
		if p.pos(next.tok).Line != line {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	raw := p.lex.info.TokenSpanText(start, end)
	return ast.NewDefaultNode(raw, start, end), nil
}

func (p *defParser) parseType() (ast.TypeNode, error) {
	typ, err := p.parsePrimaryType()
	if err != nil {
		return nil, err
	}
	return p.parseArraySuffix(typ)
}

func (p *defParser) parseArraySuffix(typ ast.TypeNode) (ast.TypeNode, error) {
	for p.cur.kind == tokenLBracket {
		switch typ.(type) {
		case *ast.ArrayTypeNode:
			return nil, p.syntaxErrorf("array of array is not allowed")
		case *ast.MapTypeNode:
			return nil, p.syntaxErrorf("array of map is not allowed")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		closeSym, err := p.expect(tokenRBracket)
		if err != nil {
			return nil, err
		}
		typ = ast.NewArrayTypeNode(typ, closeSym.tok)
	}
	return typ, nil
}

func (p *defParser) parsePrimaryType() (ast.TypeNode, error) {
	switch p.cur.kind {
	case tokenMap:
		return p.parseMapType()
	case tokenBasicType:
		keyword := ast.NewIdentNode(p.cur.text, p.cur.tok)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind == tokenLBrace {
			// inline compound: float { x, y, z }
			if err := p.advance(); err != nil {
				return nil, err
			}
			components, err := p.parseComponentList()
			if err != nil {
				return nil, err
			}
			end := p.cur.tok
			if _, err := p.expect(tokenRBrace); err != nil {
				return nil, err
			}
			return ast.NewInlineCompoundNode(keyword, components, end), nil
		}
		return &ast.BasicTypeNode{Keyword: keyword}, nil
	case tokenEnum, tokenOpenEnum:
		isOpen := p.cur.kind == tokenOpenEnum
		keyword := ast.NewIdentNode(p.cur.text, p.cur.tok)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind == tokenLBrace {
			if err := p.advance(); err != nil {
				return nil, err
			}
			values, err := p.parseEnumBody()
			if err != nil {
				return nil, err
			}
			end := p.cur.tok
			if _, err := p.expect(tokenRBrace); err != nil {
				return nil, err
			}
			return ast.NewInlineEnumNode(keyword, isOpen, values, nil, end), nil
		}
		ref, err := p.parseQualifiedName(true)
		if err != nil {
			return nil, err
		}
		return ast.NewInlineEnumNode(keyword, isOpen, nil, ref, ref.End()), nil
	case tokenOptions:
		keyword := ast.NewIdentNode(p.cur.text, p.cur.tok)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenLBrace); err != nil {
			return nil, err
		}
		values, err := p.parseEnumBody()
		if err != nil {
			return nil, err
		}
		end := p.cur.tok
		if _, err := p.expect(tokenRBrace); err != nil {
			return nil, err
		}
		return ast.NewInlineOptionsNode(keyword, values, end), nil
	case tokenIdent:
		name, err := p.parseQualifiedName(true)
		if err != nil {
			return nil, err
		}
		return &ast.RefTypeNode{Name: name}, nil
	default:
		return nil, p.syntaxErrorf("expecting type, got %s", p.describeCur())
	}
}

func (p *defParser) parseMapType() (*ast.MapTypeNode, error) {
	keyword := ast.NewIdentNode(p.cur.text, p.cur.tok)
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenLAngle); err != nil {
		return nil, err
	}
	key, err := p.parsePrimaryType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenComma); err != nil {
		return nil, err
	}
	value, err := p.parsePrimaryType()
	if err != nil {
		return nil, err
	}
	switch value.(type) {
	case *ast.MapTypeNode:
		return nil, p.syntaxErrorf("map value may not itself be a map")
	}
	if p.cur.kind == tokenLBracket {
		return nil, p.syntaxErrorf("map value may not be an array")
	}
	end := p.cur.tok
	if _, err := p.expect(tokenRAngle); err != nil {
		return nil, err
	}
	return ast.NewMapTypeNode(keyword, key, value, end), nil
}

func (p *defParser) parseQualifiedName(allowDot bool) (*ast.QualifiedNameNode, error) {
	first, err := p.ident()
	if err != nil {
		return nil, err
	}
	name := &ast.QualifiedNameNode{Parts: []*ast.IdentNode{first}}
	for p.cur.kind == tokenScope {
		if err := p.advance(); err != nil {
			return nil, err
		}
		part, err := p.ident()
		if err != nil {
			return nil, err
		}
		name.Parts = append(name.Parts, part)
	}
	if allowDot && p.cur.kind == tokenDot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		field, err := p.ident()
		if err != nil {
			return nil, err
		}
		name.Field = field
	}
	return name, nil
}
