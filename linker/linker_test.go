package linker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defkit/defcompile/linker"
	"github.com/defkit/defcompile/model"
	"github.com/defkit/defcompile/parser"
	"github.com/defkit/defcompile/reporter"
)

func link(t *testing.T, path, source string, deps ...*model.File) *model.File {
	t.Helper()
	h := reporter.NewHandler(nil)
	file, err := parser.Parse(path, strings.NewReader(source), h)
	require.NoError(t, err)
	res, err := parser.ResultFromAST(file, h)
	require.NoError(t, err)
	linked, err := linker.Link(res, deps, nil, h)
	require.NoError(t, err)
	return linked
}

// linkErrors collects every diagnostic instead of stopping at the first one.
func linkErrors(t *testing.T, path, source string, deps ...*model.File) []reporter.ErrorWithPos {
	t.Helper()
	var diags []reporter.ErrorWithPos
	rep := reporter.NewReporter(func(err reporter.ErrorWithPos) error {
		diags = append(diags, err)
		return nil
	}, nil)
	h := reporter.NewHandler(rep)
	file, err := parser.Parse(path, strings.NewReader(source), h)
	require.NoError(t, err)
	res, err := parser.ResultFromAST(file, h)
	require.NoError(t, err)
	_, err = linker.Link(res, deps, nil, h)
	require.ErrorIs(t, err, reporter.ErrInvalidSource)
	require.NotEmpty(t, diags)
	return diags
}

func TestLinkScopedResolution(t *testing.T) {
	source := `
enum Level { Low, High }

namespace outer {
	enum Level { A, B, C }

	namespace inner {
		message M {
			field a: Level
			field b: outer::Level
			field c: test::Level
		}
	}

	message N {
		field lvl: Level
	}
}
`
	f := link(t, "test.def", source)
	outer := f.Namespace.Child("outer")
	require.NotNil(t, outer)
	inner := outer.Child("inner")
	require.NotNil(t, inner)

	m := inner.Message("M")
	require.NotNil(t, m)
	// the nearest enclosing declaration wins
	a := m.Field("a").Type.(model.EnumRef)
	assert.Equal(t, "test::outer::Level", a.Enum.FullName())
	b := m.Field("b").Type.(model.EnumRef)
	assert.Equal(t, "test::outer::Level", b.Enum.FullName())
	c := m.Field("c").Type.(model.EnumRef)
	assert.Equal(t, "test::Level", c.Enum.FullName())

	n := outer.Message("N")
	lvl := n.Field("lvl").Type.(model.EnumRef)
	assert.Equal(t, "test::outer::Level", lvl.Enum.FullName())
}

func TestLinkUnresolvedReference(t *testing.T) {
	diags := linkErrors(t, "test.def", `
message M {
	field x: Missing
}
`)
	require.Len(t, diags, 1)
	assert.Equal(t, reporter.KindUnresolvedReference, diags[0].Kind())
	assert.Contains(t, diags[0].Error(), `"Missing"`)
}

func TestLinkAliasedImport(t *testing.T) {
	base := link(t, "base.def", `
message Command {
	field id: int
	field name: string
}
`)
	main := link(t, "main.def", `
import "./base.def" as Base

message Cmd : Base::Command {
	field extra: bool
}
`, base)

	cmd := main.Namespace.Message("Cmd")
	require.NotNil(t, cmd)
	require.NotNil(t, cmd.Parent)
	assert.Equal(t, "base::Command", cmd.Parent.FullName())
	require.Len(t, cmd.Flattened, 3)
	assert.Equal(t, "id", cmd.Flattened[0].Name)
	assert.Equal(t, "name", cmd.Flattened[1].Name)
	assert.Equal(t, "extra", cmd.Flattened[2].Name)
	// inherited entries still name their declaring message
	assert.Equal(t, "base::Command", cmd.Flattened[0].Message.FullName())
	assert.Equal(t, cmd, cmd.Flattened[2].Message)
}

func TestLinkAliasedImportHidesBareNames(t *testing.T) {
	base := link(t, "base.def", `message Command { field id: int }`)
	diags := linkErrors(t, "main.def", `
import "./base.def" as Base

message Cmd : Command {}
`, base)
	require.Len(t, diags, 1)
	assert.Equal(t, reporter.KindUnresolvedReference, diags[0].Kind())

	// the file namespace name of an aliased import is not bound either
	diags = linkErrors(t, "main.def", `
import "./base.def" as Base

message Cmd : base::Command {}
`, base)
	require.Len(t, diags, 1)
	assert.Equal(t, reporter.KindUnresolvedReference, diags[0].Kind())
}

func TestLinkUnaliasedImport(t *testing.T) {
	base := link(t, "base.def", `message Command { field id: int }`)
	main := link(t, "main.def", `
import "./base.def"

message ByFileName : base::Command {}
message Bare : Command {}
`, base)

	byName := main.Namespace.Message("ByFileName")
	require.NotNil(t, byName.Parent)
	assert.Equal(t, "base::Command", byName.Parent.FullName())
	bare := main.Namespace.Message("Bare")
	require.NotNil(t, bare.Parent)
	assert.Equal(t, byName.Parent, bare.Parent)
}

func TestLinkLocalShadowsImport(t *testing.T) {
	base := link(t, "base.def", `message Command { field id: int }`)
	main := link(t, "main.def", `
import "./base.def"

message Command { field local: bool }

message Uses {
	field cmd: Command
}
`, base)
	uses := main.Namespace.Message("Uses")
	ref := uses.Field("cmd").Type.(model.MessageRef)
	assert.Equal(t, "main::Command", ref.Message.FullName())
}

func TestLinkInheritanceConflict(t *testing.T) {
	diags := linkErrors(t, "test.def", `
message Base {
	field id: int
}
message Child : Base {
	field id: string
}
`)
	require.Len(t, diags, 1)
	assert.Equal(t, reporter.KindInheritanceConflict, diags[0].Kind())
	assert.Contains(t, diags[0].Error(), "test::Base")
}

func TestLinkInheritanceCycle(t *testing.T) {
	diags := linkErrors(t, "test.def", `
message A : B { field a: int }
message B : A { field b: int }
`)
	require.NotEmpty(t, diags)
	assert.Equal(t, reporter.KindInheritanceConflict, diags[0].Kind())
	assert.Contains(t, diags[0].Error(), "inheritance cycle")
}

func TestLinkRedeclaration(t *testing.T) {
	testCases := []struct {
		name   string
		source string
	}{
		{
			name:   "two messages",
			source: `message M {} message M {}`,
		},
		{
			name:   "message and enum",
			source: `message M {} enum M { A }`,
		},
		{
			name:   "duplicate field",
			source: `message M { field x: int field x: string }`,
		},
		{
			name:   "namespace and message",
			source: `namespace n {} message n {}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			diags := linkErrors(t, "test.def", tc.source)
			require.Len(t, diags, 1)
			assert.Equal(t, reporter.KindRedeclaration, diags[0].Kind())
		})
	}
}

func TestLinkReopenedNamespaceMerges(t *testing.T) {
	f := link(t, "test.def", `
namespace n { message A {} }
namespace n { message B {} }
`)
	n := f.Namespace.Child("n")
	require.NotNil(t, n)
	assert.NotNil(t, n.Message("A"))
	assert.NotNil(t, n.Message("B"))
	require.Len(t, f.Namespace.Namespaces, 1)
}

func TestLinkInlinePromotion(t *testing.T) {
	f := link(t, "job.def", `
message Job {
	field status: enum { OK, ERROR, PENDING }
	field position: float { x, y, z }
}

message Watcher {
	field lastStatus: enum Job.status
}
`)
	ns := f.Namespace
	job := ns.Message("Job")

	status := ns.Enum("Job_status")
	require.NotNil(t, status)
	assert.True(t, status.Synthetic)
	assert.Equal(t, model.EnumClosed, status.Kind)
	require.Len(t, status.Values, 3)
	assert.Equal(t, int64(0), status.Values[0].Value)
	assert.Equal(t, int64(2), status.Values[2].Value)

	st := job.Field("status").Type.(model.EnumRef)
	assert.Equal(t, status, st.Enum)

	pos := ns.Compound("Job_position")
	require.NotNil(t, pos)
	assert.True(t, pos.Synthetic)
	assert.Equal(t, model.Float, pos.Base)
	pt := job.Field("position").Type.(model.CompoundRef)
	assert.Equal(t, pos, pt.Compound)

	// the dotted form binds to the same synthetic enum
	watcher := ns.Message("Watcher")
	ls := watcher.Field("lastStatus").Type.(model.EnumRef)
	assert.Equal(t, status, ls.Enum)
}

func TestLinkDottedReferenceErrors(t *testing.T) {
	t.Run("not an enum field", func(t *testing.T) {
		diags := linkErrors(t, "test.def", `
message M { field x: int }
message N { field y: M.x }
`)
		require.Len(t, diags, 1)
		assert.Equal(t, reporter.KindUnresolvedReference, diags[0].Kind())
		assert.Contains(t, diags[0].Error(), "not an enum")
	})
	t.Run("no such field", func(t *testing.T) {
		diags := linkErrors(t, "test.def", `
message M { field x: int }
message N { field y: M.missing }
`)
		require.Len(t, diags, 1)
		assert.Equal(t, reporter.KindUnresolvedReference, diags[0].Kind())
		assert.Contains(t, diags[0].Error(), `no field "missing"`)
	})
	t.Run("self dependent", func(t *testing.T) {
		diags := linkErrors(t, "test.def", `
message M { field x: M.x }
`)
		require.Len(t, diags, 1)
		assert.Equal(t, reporter.KindUnresolvedReference, diags[0].Kind())
		assert.Contains(t, diags[0].Error(), "depends on itself")
	})
}

// A ".field" selector sees only the fields the message declares itself.
func TestLinkDottedReferenceRequiresOwnField(t *testing.T) {
	diags := linkErrors(t, "test.def", `
message Base {
	field status: enum { OK, FAILED }
}
message Child : Base {}
message Uses {
	field s: Child.status
}
`)
	require.Len(t, diags, 1)
	assert.Equal(t, reporter.KindUnresolvedReference, diags[0].Kind())
	assert.Contains(t, diags[0].Error(), `does not declare field "status"`)
	assert.Contains(t, diags[0].Error(), "inherited from test::Base")
}

func TestLinkTypeConstraints(t *testing.T) {
	testCases := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "map key not string",
			source: `message M { field x: Map<int, string> }`,
			want:   "map key type must be string",
		},
		{
			name:   "default on array",
			source: `message M { field x: int[] = 3 }`,
			want:   "cannot carry a default value",
		},
		{
			name:   "default on map",
			source: `message M { field x: Map<string, int> = 3 }`,
			want:   "cannot carry a default value",
		},
		{
			name:   "compound base not float",
			source: `int Pair { a, b }`,
			want:   "must have base type float",
		},
		{
			name:   "message extending enum",
			source: `enum E { A } message M : E {}`,
			want:   "not a message",
		},
		{
			name:   "enum extending message",
			source: `message M {} enum E : M { A }`,
			want:   "not an enum type",
		},
		{
			name:   "enum extending options",
			source: `options O { A } enum E : O { B }`,
			want:   "cannot extend options",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			diags := linkErrors(t, "test.def", tc.source)
			require.Len(t, diags, 1)
			assert.Equal(t, reporter.KindTypeConstraint, diags[0].Kind())
			assert.Contains(t, diags[0].Error(), tc.want)
		})
	}
}

func TestLinkReservedNames(t *testing.T) {
	diags := linkErrors(t, "test.def", `
message M {
	field default: int
}
`)
	require.Len(t, diags, 1)
	assert.Equal(t, reporter.KindReservedName, diags[0].Kind())
	assert.Contains(t, diags[0].Error(), `"default"`)
}

func TestLinkSymbolsLookup(t *testing.T) {
	h := reporter.NewHandler(nil)
	file, err := parser.Parse("test.def", strings.NewReader(`
namespace n {
	message M { field x: int }
}
`), h)
	require.NoError(t, err)
	res, err := parser.ResultFromAST(file, h)
	require.NoError(t, err)
	syms := &linker.Symbols{}
	_, err = linker.Link(res, nil, syms, h)
	require.NoError(t, err)

	pos, ok := syms.Lookup("test.def", "test::n::M")
	require.True(t, ok)
	assert.Equal(t, 3, pos.Line)
	_, ok = syms.Lookup("test.def", "test::n::Missing")
	assert.False(t, ok)
	_, ok = syms.Lookup("other.def", "test::n::M")
	assert.False(t, ok)
}
