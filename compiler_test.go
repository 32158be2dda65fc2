package defcompile

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defkit/defcompile/model"
	"github.com/defkit/defcompile/reporter"
)

// countingResolver serves sources from a map and counts how many times each
// path is opened.
type countingResolver struct {
	sources map[string]string

	mu    sync.Mutex
	opens map[string]int
}

func newCountingResolver(sources map[string]string) *countingResolver {
	return &countingResolver{sources: sources, opens: map[string]int{}}
}

func (r *countingResolver) FindFileByPath(path string) (SearchResult, error) {
	r.mu.Lock()
	r.opens[path]++
	r.mu.Unlock()
	src, ok := r.sources[path]
	if !ok {
		return SearchResult{}, os.ErrNotExist
	}
	return SearchResult{Source: strings.NewReader(src)}, nil
}

func (r *countingResolver) openCount(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens[path]
}

func compile(t *testing.T, sources map[string]string, paths ...string) Files {
	t.Helper()
	c := Compiler{Resolver: newCountingResolver(sources)}
	files, err := c.Compile(context.Background(), paths...)
	require.NoError(t, err)
	require.Len(t, files, len(paths))
	return files
}

func TestCompileSingleFile(t *testing.T) {
	files := compile(t, map[string]string{
		"commands.def": `
message Ping {
	field seq: int
}
`,
	}, "commands.def")
	f := files[0]
	assert.Equal(t, "commands.def", f.Path)
	assert.Equal(t, "commands", f.Namespace.Name)
	require.NotNil(t, f.Namespace.Message("Ping"))
}

func TestCompileImportGraph(t *testing.T) {
	sources := map[string]string{
		"proto/base.def": `
message Command {
	field id: int
}
`,
		"proto/main.def": `
import "./base.def" as Base

message Cmd : Base::Command {
	field extra: bool
}
`,
	}
	files := compile(t, sources, "proto/main.def")
	main := files[0]
	require.Len(t, main.Imports, 1)
	require.NotNil(t, main.Imports[0].File)
	assert.Equal(t, "proto/base.def", main.Imports[0].File.Path)

	cmd := main.Namespace.Message("Cmd")
	require.NotNil(t, cmd)
	require.Len(t, cmd.Flattened, 2)
	assert.Equal(t, "id", cmd.Flattened[0].Name)
}

func TestCompileMemoizesSharedImports(t *testing.T) {
	sources := map[string]string{
		"shared.def": `enum Status { OK, FAILED }`,
		"a.def": `
import "shared.def"

message A { field s: shared::Status }
`,
		"b.def": `
import "shared.def"

message B { field s: shared::Status }
`,
	}
	r := newCountingResolver(sources)
	c := Compiler{Resolver: r}
	files, err := c.Compile(context.Background(), "a.def", "b.def")
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, 1, r.openCount("shared.def"))
	// both files resolved against the same linked dependency
	assert.Same(t, files[0].Imports[0].File, files[1].Imports[0].File)
}

func TestCompileDiamond(t *testing.T) {
	sources := map[string]string{
		"d.def": `message Leaf { field n: int }`,
		"b.def": `
import "d.def"

message B : Leaf {}
`,
		"c.def": `
import "d.def"

message C : Leaf {}
`,
		"a.def": `
import "b.def"
import "c.def"

message A {
	field b: b::B
	field c: c::C
}
`,
	}
	r := newCountingResolver(sources)
	c := Compiler{Resolver: r}
	files, err := c.Compile(context.Background(), "a.def")
	require.NoError(t, err)

	assert.Equal(t, 1, r.openCount("d.def"))
	a := files[0].Namespace.Message("A")
	bRef := a.Field("b").Type.(model.MessageRef)
	assert.Equal(t, "b::B", bRef.Message.FullName())
	require.Len(t, bRef.Message.Flattened, 1)
	assert.Equal(t, "n", bRef.Message.Flattened[0].Name)
}

func TestCompileMissingImport(t *testing.T) {
	c := Compiler{Resolver: newCountingResolver(map[string]string{
		"main.def": `import "gone.def"`,
	})}
	_, err := c.Compile(context.Background(), "main.def")
	require.Error(t, err)
	var ewp reporter.ErrorWithPos
	require.ErrorAs(t, err, &ewp)
	assert.Equal(t, reporter.KindImport, ewp.Kind())
	assert.Contains(t, err.Error(), "could not open file")
}

func TestCompileMissingRootFile(t *testing.T) {
	c := Compiler{Resolver: newCountingResolver(nil)}
	_, err := c.Compile(context.Background(), "nope.def")
	require.Error(t, err)
	var ewp reporter.ErrorWithPos
	require.ErrorAs(t, err, &ewp)
	assert.Equal(t, reporter.KindImport, ewp.Kind())
}

func TestCompileImportCycle(t *testing.T) {
	sources := map[string]string{
		"a.def": `import "b.def"`,
		"b.def": `import "a.def"`,
	}
	c := Compiler{Resolver: newCountingResolver(sources)}
	_, err := c.Compile(context.Background(), "a.def")
	require.Error(t, err)
	var ewp reporter.ErrorWithPos
	require.ErrorAs(t, err, &ewp)
	assert.Equal(t, reporter.KindImport, ewp.Kind())
	assert.Contains(t, err.Error(), "cycle found in imports")
	assert.Contains(t, err.Error(), "a.def")
	assert.Contains(t, err.Error(), "b.def")
}

func TestCompileSelfImport(t *testing.T) {
	c := Compiler{Resolver: newCountingResolver(map[string]string{
		"a.def": `import "a.def"`,
	})}
	_, err := c.Compile(context.Background(), "a.def")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle found in imports")
}

func TestCompileCollectsDiagnostics(t *testing.T) {
	sources := map[string]string{
		"main.def": `
message M {
	field a: Missing
	field b: AlsoMissing
}
`,
	}
	var diags []reporter.ErrorWithPos
	c := Compiler{
		Resolver: newCountingResolver(sources),
		Reporter: reporter.NewReporter(func(err reporter.ErrorWithPos) error {
			diags = append(diags, err)
			return nil
		}, nil),
	}
	_, err := c.Compile(context.Background(), "main.def")
	require.ErrorIs(t, err, reporter.ErrInvalidSource)
	require.Len(t, diags, 2)
	assert.Equal(t, reporter.KindUnresolvedReference, diags[0].Kind())
	assert.Equal(t, reporter.KindUnresolvedReference, diags[1].Kind())
}

func TestCompileCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := Compiler{Resolver: newCountingResolver(map[string]string{
		"a.def": `message M {}`,
	})}
	_, err := c.Compile(ctx, "a.def")
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompileRelativeImportPaths(t *testing.T) {
	sources := map[string]string{
		"root/nested/base.def": `message B { field x: int }`,
		"root/nested/mid.def": `
import "./base.def"

message M : B {}
`,
		"root/top.def": `
import "nested/mid.def"

message T : mid::M {}
`,
	}
	files := compile(t, sources, "root/top.def")
	top := files[0].Namespace.Message("T")
	require.NotNil(t, top)
	require.Len(t, top.Flattened, 1)
	assert.Equal(t, "x", top.Flattened[0].Name)
}

func TestCompileNoResolver(t *testing.T) {
	var c Compiler
	_, err := c.Compile(context.Background(), "x.def")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no resolver")
}

func TestSourceResolverImportPaths(t *testing.T) {
	opened := []string{}
	r := &SourceResolver{
		ImportPaths: []string{"vendor", "proto"},
		Accessor: func(path string) (io.ReadCloser, error) {
			opened = append(opened, path)
			if path == "proto/a.def" {
				return io.NopCloser(strings.NewReader("message A {}")), nil
			}
			return nil, os.ErrNotExist
		},
	}
	res, err := r.FindFileByPath("a.def")
	require.NoError(t, err)
	require.NotNil(t, res.Source)
	assert.Equal(t, []string{"vendor/a.def", "proto/a.def"}, opened)

	_, err = r.FindFileByPath("missing.def")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCompositeResolver(t *testing.T) {
	miss := ResolverFunc(func(path string) (SearchResult, error) {
		return SearchResult{}, fmt.Errorf("not here: %s", path)
	})
	hit := ResolverFunc(func(path string) (SearchResult, error) {
		return SearchResult{Source: strings.NewReader("message M {}")}, nil
	})
	res, err := CompositeResolver{miss, hit}.FindFileByPath("x.def")
	require.NoError(t, err)
	assert.NotNil(t, res.Source)

	_, err = CompositeResolver{miss}.FindFileByPath("x.def")
	assert.ErrorContains(t, err, "not here")
}
