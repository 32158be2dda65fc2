package defcompile

import (
	"context"
	"fmt"
	"io"
	"path"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/defkit/defcompile/ast"
	"github.com/defkit/defcompile/linker"
	"github.com/defkit/defcompile/model"
	"github.com/defkit/defcompile/msgdef"
	"github.com/defkit/defcompile/parser"
	"github.com/defkit/defcompile/reporter"
)

// Compiler loads definition files, follows their import graphs, and links
// everything into resolved models. Fields may not be modified while a
// Compile operation is in progress; a Compiler is otherwise safe for
// concurrent use.
type Compiler struct {
	// Resolver locates sources for the root paths and every import. Required.
	Resolver Resolver
	// MaxParallelism limits the number of files processed at once. Values
	// less than one mean GOMAXPROCS.
	MaxParallelism int
	// Reporter receives every diagnostic. When nil, compilation stops at the
	// first error.
	Reporter reporter.Reporter
}

// Files is the result of a compile operation, in the order the root paths
// were given.
type Files []*model.File

// FindFileByPath returns the compiled file with the given path, or nil.
func (f Files) FindFileByPath(path string) *model.File {
	for _, file := range f {
		if file.Path == path {
			return file
		}
	}
	return nil
}

// Compile compiles the given file paths into fully linked models. Each file
// and each transitive import is loaded, parsed, and linked exactly once,
// even when imported along multiple paths; files that share no dependency
// are processed in parallel.
//
// If any file fails, the returned error is the first one reported, or
// reporter.ErrInvalidSource when the configured reporter swallowed every
// diagnostic.
func (c *Compiler) Compile(ctx context.Context, files ...string) (Files, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if c.Resolver == nil {
		return nil, fmt.Errorf("compiler has no resolver")
	}
	par := c.MaxParallelism
	if par <= 0 {
		par = runtime.GOMAXPROCS(-1)
	}
	e := &executor{
		c:       c,
		h:       reporter.NewHandler(c.Reporter),
		s:       semaphore.NewWeighted(int64(par)),
		sym:     &linker.Symbols{},
		results: map[string]*result{},
	}
	results := make([]*result, len(files))
	for i, f := range files {
		results[i] = e.compile(ctx, path.Clean(f))
	}
	out := make(Files, len(files))
	for i, r := range results {
		<-r.ready
		if r.err != nil {
			// an error that bypassed the handler, such as cancellation
			if err := e.h.Error(); err != nil {
				return nil, err
			}
			return nil, r.err
		}
		out[i] = r.file
	}
	if err := e.h.Error(); err != nil {
		return nil, err
	}
	for _, f := range out {
		if f == nil {
			return nil, reporter.ErrInvalidSource
		}
	}
	return out, nil
}

type executor struct {
	c   *Compiler
	h   *reporter.Handler
	s   *semaphore.Weighted
	sym *linker.Symbols

	mu      sync.Mutex
	results map[string]*result
}

// result is the memoized outcome for one file. ready is closed when file and
// err are set.
type result struct {
	path  string
	ready chan struct{}
	// the path this file's task is currently waiting on, maintained under
	// the executor mutex for cycle detection
	blockedOn string
	file      *model.File
	err       error
}

// compile returns the result for the given path, starting a task for it if
// one is not already running.
func (e *executor) compile(ctx context.Context, path string) *result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.results[path]; ok {
		return r
	}
	r := &result{path: path, ready: make(chan struct{})}
	e.results[path] = r
	go e.run(ctx, r)
	return r
}

func (e *executor) run(ctx context.Context, r *result) {
	defer close(r.ready)
	if err := e.s.Acquire(ctx, 1); err != nil {
		r.err = err
		return
	}
	defer e.s.Release(1)
	r.file, r.err = e.doCompile(ctx, r)
}

func (e *executor) doCompile(ctx context.Context, r *result) (*model.File, error) {
	parsed, err := e.parse(r.path)
	if parsed == nil || err != nil {
		return nil, err
	}
	def := parsed.File()
	var deps []*model.File
	if len(def.Imports) > 0 {
		var ok bool
		deps, ok, err = e.loadDeps(ctx, r, def)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}
	return linker.Link(parsed, deps, e.sym, e.h)
}

func (e *executor) parse(p string) (*parser.Result, error) {
	sr, err := e.c.Resolver.FindFileByPath(p)
	if err != nil {
		return nil, e.h.HandleErrorf(reporter.KindImport, ast.UnknownPos(p),
			"could not open file: %v", err)
	}
	switch {
	case sr.Source != nil:
		if c, ok := sr.Source.(io.Closer); ok {
			defer func() { _ = c.Close() }()
		}
		astFile, err := parser.Parse(p, sr.Source, e.h)
		if astFile == nil || err != nil {
			return nil, err
		}
		return parser.ResultFromAST(astFile, e.h)
	case sr.AST != nil:
		return parser.ResultFromAST(sr.AST, e.h)
	case sr.ParseResult != nil:
		return sr.ParseResult, nil
	}
	return nil, fmt.Errorf("resolver returned an empty result for %q", p)
}

// loadDeps compiles every import of the file and waits for the results. The
// returned bool is false when any dependency failed or participates in an
// import cycle; in that case the file produces no model of its own, and the
// failure has already been reported.
func (e *executor) loadDeps(ctx context.Context, r *result, def *msgdef.File) ([]*model.File, bool, error) {
	deps := make([]*model.File, len(def.Imports))
	failed := false
	dir := path.Dir(r.path)

	// free our slot while blocked so deep import chains cannot exhaust the
	// semaphore and deadlock
	e.s.Release(1)
	defer func() {
		if err := e.s.Acquire(context.Background(), 1); err != nil {
			// only fails on context cancellation, and this context cannot be
			panic(err)
		}
	}()

	for i, imp := range def.Imports {
		depPath := resolveImportPath(dir, imp.Path)
		dr := e.compile(ctx, depPath)
		if cycle := e.checkForCycle(r, dr); cycle != nil {
			if err := e.h.HandleErrorf(reporter.KindImport, imp.Pos,
				"cycle found in imports: %s", strings.Join(cycle, " -> ")); err != nil {
				return nil, false, err
			}
			e.setBlockedOn(r, "")
			failed = true
			continue
		}
		<-dr.ready
		e.setBlockedOn(r, "")
		if dr.err != nil || dr.file == nil {
			// the dependency's own diagnostics were already reported
			failed = true
			continue
		}
		deps[i] = dr.file
	}
	return deps, !failed, nil
}

// checkForCycle records that r is about to wait on dep and then follows the
// chain of blocked tasks. If the chain leads back to r, waiting would
// deadlock; the returned path lists the cycle, starting and ending with
// r's file.
func (e *executor) checkForCycle(r, dep *result) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	r.blockedOn = dep.path
	chain := []string{r.path}
	seen := map[*result]bool{}
	for cur := dep; cur != nil && !seen[cur]; cur = e.results[cur.blockedOn] {
		seen[cur] = true
		chain = append(chain, cur.path)
		if cur == r {
			return chain
		}
	}
	return nil
}

func (e *executor) setBlockedOn(r *result, path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r.blockedOn = path
}

// resolveImportPath resolves an import written in a file at dir. Relative
// imports are taken relative to the importing file's directory; paths use
// forward slashes.
func resolveImportPath(dir, imp string) string {
	if path.IsAbs(imp) || dir == "." {
		return path.Clean(imp)
	}
	return path.Join(dir, imp)
}
