package linker

import (
	"sync"

	"github.com/tidwall/btree"

	"github.com/defkit/defcompile/ast"
	"github.com/defkit/defcompile/reporter"
)

// Symbols is an index of the fully-qualified names declared by every file in
// one compile operation. It is safe for concurrent use, so files compiled in
// parallel can share a single table. The zero value is ready to use.
type Symbols struct {
	mu   sync.Mutex
	syms btree.Map[string, symbolEntry]
}

type symbolEntry struct {
	pos  ast.SourcePos
	kind string
}

// Names are scoped per file: two files may declare the same fully-qualified
// name without conflict.
func symbolKey(filePath, fqn string) string {
	return filePath + "\x00" + fqn
}

// Lookup returns the source position of the named declaration in the given
// file, if one was recorded.
func (s *Symbols) Lookup(filePath, fqn string) (ast.SourcePos, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.syms.Get(symbolKey(filePath, fqn))
	if !ok {
		return ast.SourcePos{}, false
	}
	return e.pos, true
}

// importSymbol records a declaration. If the name is already taken in the
// same file, a redeclaration error is reported to the handler and the
// returned bool is false.
func (s *Symbols) importSymbol(filePath, fqn, kind string, pos ast.SourcePos, handler *reporter.Handler) (bool, error) {
	key := symbolKey(filePath, fqn)
	s.mu.Lock()
	existing, ok := s.syms.Get(key)
	if !ok {
		s.syms.Set(key, symbolEntry{pos: pos, kind: kind})
	}
	s.mu.Unlock()
	if !ok {
		return true, nil
	}
	return false, handler.HandleErrorf(reporter.KindRedeclaration, pos,
		"%q is already declared as a %s at %v", fqn, existing.kind, existing.pos)
}
