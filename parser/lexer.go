package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/defkit/defcompile/ast"
	"github.com/defkit/defcompile/reporter"
)

type runeReader struct {
	data []byte
	pos  int
	err  error
	mark int
}

func (rr *runeReader) readRune() (r rune, size int, err error) {
	if rr.err != nil {
		return 0, 0, rr.err
	}
	if rr.pos == len(rr.data) {
		rr.err = io.EOF
		return 0, 0, rr.err
	}
	r, sz := utf8.DecodeRune(rr.data[rr.pos:])
	if r == utf8.RuneError {
		rr.err = fmt.Errorf("invalid UTF8 at offset %d: %x", rr.pos, rr.data[rr.pos])
		return 0, 0, rr.err
	}
	rr.pos = rr.pos + sz
	return r, sz, nil
}

func (rr *runeReader) offset() int {
	return rr.pos
}

func (rr *runeReader) unreadRune(sz int) {
	newPos := rr.pos - sz
	if newPos < rr.mark {
		panic("unread past mark")
	}
	rr.pos = newPos
}

func (rr *runeReader) setMark() {
	rr.mark = rr.pos
}

func (rr *runeReader) getMark() string {
	return string(rr.data[rr.mark:rr.pos])
}

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenInt
	tokenString

	// keywords
	tokenImport
	tokenAs
	tokenNamespace
	tokenMessage
	tokenField
	tokenEnum
	tokenOpenEnum
	tokenOptions
	tokenMap
	tokenOptional
	tokenRepeated
	tokenRequired
	tokenBasicType

	// punctuation
	tokenLBrace
	tokenRBrace
	tokenLBracket
	tokenRBracket
	tokenLAngle
	tokenRAngle
	tokenColon
	tokenScope // "::"
	tokenSemicolon
	tokenComma
	tokenEquals
	tokenPipe
	tokenDot
	tokenMinus
)

var keywords = map[string]tokenKind{
	"import":    tokenImport,
	"as":        tokenAs,
	"namespace": tokenNamespace,
	"message":   tokenMessage,
	"field":     tokenField,
	"enum":      tokenEnum,
	"open_enum": tokenOpenEnum,
	"options":   tokenOptions,
	"Map":       tokenMap,
	"optional":  tokenOptional,
	"repeated":  tokenRepeated,
	"required":  tokenRequired,
	"string":    tokenBasicType,
	"int":       tokenBasicType,
	"float":     tokenBasicType,
	"bool":      tokenBasicType,
	"byte":      tokenBasicType,
}

func (k tokenKind) describe() string {
	switch k {
	case tokenEOF:
		return "end of file"
	case tokenIdent:
		return "identifier"
	case tokenInt:
		return "int literal"
	case tokenString:
		return "string literal"
	case tokenBasicType:
		return "type name"
	case tokenLBrace:
		return `"{"`
	case tokenRBrace:
		return `"}"`
	case tokenLBracket:
		return `"["`
	case tokenRBracket:
		return `"]"`
	case tokenLAngle:
		return `"<"`
	case tokenRAngle:
		return `">"`
	case tokenColon:
		return `":"`
	case tokenScope:
		return `"::"`
	case tokenSemicolon:
		return `";"`
	case tokenComma:
		return `","`
	case tokenEquals:
		return `"="`
	case tokenPipe:
		return `"|"`
	case tokenDot:
		return `"."`
	case tokenMinus:
		return `"-"`
	default:
		for str, kk := range keywords {
			if kk == k {
				return fmt.Sprintf("%q", str)
			}
		}
		return "token"
	}
}

// symbol is one lexed token along with its location and decoded value.
type symbol struct {
	kind tokenKind
	tok  ast.Token
	// identifier or keyword text, or the decoded string-literal value
	text string
	// decoded int-literal value
	ival int64
}

type defLex struct {
	input   *runeReader
	info    *ast.FileInfo
	handler *reporter.Handler

	// comment tokens waiting to be attributed to the next real token
	comments []ast.Token
	eof      ast.Token
}

var utf8Bom = []byte{0xEF, 0xBB, 0xBF}

func newLexer(in io.Reader, filename string, handler *reporter.Handler) (*defLex, error) {
	br := bufio.NewReader(in)

	// if file has UTF8 byte order marker preface, consume it
	marker, err := br.Peek(3)
	if err == nil && bytes.Equal(marker, utf8Bom) {
		_, _ = br.Discard(3)
	}

	contents, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	return &defLex{
		input:   &runeReader{data: contents},
		info:    ast.NewFileInfo(filename, contents),
		handler: handler,
	}, nil
}

func (l *defLex) maybeNewLine(r rune) {
	if r == '\n' {
		l.info.AddLine(l.input.offset())
	}
}

func (l *defLex) newToken() ast.Token {
	offset := l.input.mark
	length := l.input.pos - l.input.mark
	return l.info.AddToken(offset, length)
}

// next returns the next non-comment token. Comments encountered along the
// way are recorded and attributed as leading comments of the returned token.
func (l *defLex) next() (symbol, error) {
	for {
		l.input.setMark()

		c, _, err := l.input.readRune()
		if err == io.EOF {
			eof := l.info.AddToken(len(l.input.data), 0)
			l.eof = eof
			l.attributeComments(eof)
			return symbol{kind: tokenEOF, tok: eof}, nil
		} else if err != nil {
			return symbol{}, l.syntaxError(err)
		}

		if strings.ContainsRune("\n\r\t\f\v ", c) {
			// skip whitespace
			l.maybeNewLine(c)
			continue
		}

		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			l.readIdentifier()
			str := l.input.getMark()
			tok := l.newToken()
			l.attributeComments(tok)
			if k, ok := keywords[str]; ok {
				return symbol{kind: k, tok: tok, text: str}, nil
			}
			return symbol{kind: tokenIdent, tok: tok, text: str}, nil
		}

		if c >= '0' && c <= '9' {
			l.readNumber()
			str := l.input.getMark()
			tok := l.newToken()
			l.attributeComments(tok)
			i, err := strconv.ParseInt(str, 10, 64)
			if err != nil {
				return symbol{}, l.syntaxErrorAt(tok, fmt.Errorf("invalid integer literal: %s", str))
			}
			return symbol{kind: tokenInt, tok: tok, ival: i}, nil
		}

		if c == '"' {
			str, err := l.readStringLiteral()
			if err != nil {
				return symbol{}, l.syntaxError(err)
			}
			tok := l.newToken()
			l.attributeComments(tok)
			return symbol{kind: tokenString, tok: tok, text: str}, nil
		}

		if c == '/' {
			cn, szn, err := l.input.readRune()
			if err == nil && cn == '/' {
				l.skipToEndOfLineComment()
				l.comments = append(l.comments, l.newToken())
				continue
			}
			if err == nil && cn == '*' {
				if ok := l.skipToEndOfBlockComment(); !ok {
					return symbol{}, l.syntaxError(errors.New("block comment never terminates, unexpected EOF"))
				}
				l.comments = append(l.comments, l.newToken())
				continue
			}
			if err == nil {
				l.input.unreadRune(szn)
			}
			return symbol{}, l.syntaxError(errors.New(`unexpected "/", expecting comment`))
		}

		if c == ':' {
			cn, szn, err := l.input.readRune()
			if err == nil && cn == ':' {
				tok := l.newToken()
				l.attributeComments(tok)
				return symbol{kind: tokenScope, tok: tok}, nil
			}
			if err == nil {
				l.input.unreadRune(szn)
			}
			tok := l.newToken()
			l.attributeComments(tok)
			return symbol{kind: tokenColon, tok: tok}, nil
		}

		var k tokenKind
		switch c {
		case '{':
			k = tokenLBrace
		case '}':
			k = tokenRBrace
		case '[':
			k = tokenLBracket
		case ']':
			k = tokenRBracket
		case '<':
			k = tokenLAngle
		case '>':
			k = tokenRAngle
		case ';':
			k = tokenSemicolon
		case ',':
			k = tokenComma
		case '=':
			k = tokenEquals
		case '|':
			k = tokenPipe
		case '.':
			k = tokenDot
		case '-':
			k = tokenMinus
		default:
			tok := l.newToken()
			return symbol{}, l.syntaxErrorAt(tok, fmt.Errorf("invalid character %q", c))
		}
		tok := l.newToken()
		l.attributeComments(tok)
		return symbol{kind: k, tok: tok}, nil
	}
}

func (l *defLex) attributeComments(tok ast.Token) {
	for _, c := range l.comments {
		l.info.AddComment(c, tok)
	}
	l.comments = nil
}

func (l *defLex) readIdentifier() {
	for {
		c, sz, err := l.input.readRune()
		if err != nil {
			break
		}
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			l.input.unreadRune(sz)
			break
		}
	}
}

func (l *defLex) readNumber() {
	for {
		c, sz, err := l.input.readRune()
		if err != nil {
			break
		}
		if c < '0' || c > '9' {
			l.input.unreadRune(sz)
			break
		}
	}
}

func (l *defLex) readStringLiteral() (string, error) {
	var buf bytes.Buffer
	for {
		c, _, err := l.input.readRune()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		if c == '\n' {
			return "", errors.New("encountered end-of-line before end of string literal")
		}
		if c == '"' {
			break
		}
		if c == '\\' {
			// only simple escapes; paths don't need more
			c, _, err = l.input.readRune()
			if err != nil {
				return "", err
			}
			switch c {
			case '\\':
				buf.WriteByte('\\')
			case '"':
				buf.WriteByte('"')
			case 'n':
				buf.WriteByte('\n')
			case 't':
				buf.WriteByte('\t')
			default:
				return "", fmt.Errorf("invalid escape sequence: %q", "\\"+string(c))
			}
			continue
		}
		buf.WriteRune(c)
	}
	return buf.String(), nil
}

func (l *defLex) skipToEndOfLineComment() {
	for {
		c, sz, err := l.input.readRune()
		if err != nil {
			return
		}
		if c == '\n' {
			// don't include the newline in the comment token
			l.input.unreadRune(sz)
			return
		}
	}
}

func (l *defLex) skipToEndOfBlockComment() bool {
	for {
		c, _, err := l.input.readRune()
		if err != nil {
			return false
		}
		l.maybeNewLine(c)
		if c == '*' {
			c, sz, err := l.input.readRune()
			if err != nil {
				return false
			}
			if c == '/' {
				return true
			}
			l.input.unreadRune(sz)
		}
	}
}

func (l *defLex) syntaxError(err error) error {
	return l.addSourceError(reporter.Error(reporter.KindSyntax, l.info.SourcePos(l.input.mark), err))
}

func (l *defLex) syntaxErrorAt(tok ast.Token, err error) error {
	return l.addSourceError(reporter.Error(reporter.KindSyntax, l.info.TokenInfo(tok).Start(), err))
}

func (l *defLex) addSourceError(ewp reporter.ErrorWithPos) error {
	if err := l.handler.HandleError(ewp); err != nil {
		return err
	}
	return ewp
}
