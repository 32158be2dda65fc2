package defcompile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/defkit/defcompile/ast"
	"github.com/defkit/defcompile/parser"
)

// Resolver is used by the compiler to locate definition sources. The path
// given to FindFileByPath is the canonical path for the file: it is the key
// under which compile results are memoized.
type Resolver interface {
	FindFileByPath(path string) (SearchResult, error)
}

// SearchResult is the result of resolving a file path. Exactly one field
// should be set; they are consulted in field order, so the first non-nil one
// wins. A Source that implements io.Closer is closed after parsing.
type SearchResult struct {
	// Source is definition-language source text.
	Source io.Reader
	// AST is an already-parsed syntax tree.
	AST *ast.FileNode
	// ParseResult is a parsed tree with its raw declarations already built.
	ParseResult *parser.Result
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(string) (SearchResult, error)

var _ Resolver = ResolverFunc(nil)

func (f ResolverFunc) FindFileByPath(path string) (SearchResult, error) {
	return f(path)
}

// CompositeResolver tries each of the given resolvers in order, returning
// the first successful result. If they all fail, the error from the first
// one is returned.
type CompositeResolver []Resolver

var _ Resolver = CompositeResolver(nil)

func (c CompositeResolver) FindFileByPath(path string) (SearchResult, error) {
	if len(c) == 0 {
		return SearchResult{}, os.ErrNotExist
	}
	var firstErr error
	for _, res := range c {
		r, err := res.FindFileByPath(path)
		if err == nil {
			return r, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return SearchResult{}, firstErr
}

// SourceResolver finds definition files on the filesystem.
type SourceResolver struct {
	// ImportPaths is the list of roots under which each path is tried, in
	// order. When empty, paths are opened as given.
	ImportPaths []string
	// Accessor opens a file path. If nil, os.Open is used.
	Accessor func(path string) (io.ReadCloser, error)
}

var _ Resolver = (*SourceResolver)(nil)

func (r *SourceResolver) FindFileByPath(path string) (SearchResult, error) {
	if len(r.ImportPaths) == 0 {
		reader, err := r.accessFile(path)
		if err != nil {
			return SearchResult{}, err
		}
		return SearchResult{Source: reader}, nil
	}
	var firstErr error
	for _, root := range r.ImportPaths {
		reader, err := r.accessFile(filepath.Join(root, path))
		if err == nil {
			return SearchResult{Source: reader}, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return SearchResult{}, firstErr
}

func (r *SourceResolver) accessFile(path string) (io.ReadCloser, error) {
	if r.Accessor != nil {
		return r.Accessor(path)
	}
	return os.Open(filepath.FromSlash(path))
}
