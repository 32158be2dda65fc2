package model_test

import (
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defkit/defcompile/linker"
	"github.com/defkit/defcompile/model"
	"github.com/defkit/defcompile/parser"
	"github.com/defkit/defcompile/reporter"
)

func linkSource(t *testing.T, path, source string) *model.File {
	t.Helper()
	h := reporter.NewHandler(nil)
	file, err := parser.Parse(path, strings.NewReader(source), h)
	require.NoError(t, err)
	res, err := parser.ResultFromAST(file, h)
	require.NoError(t, err)
	linked, err := linker.Link(res, nil, nil, h)
	require.NoError(t, err)
	return linked
}

const dumpSource = `
enum State { Idle, Busy = 5, Closed }

options Flags { Read, Write }

float Vec3 { x, y, z }

namespace net {
	message Packet {
		field state: State
		optional payload: byte[]
	}
	message Ack : Packet {
		field ok: bool = true
	}
}
`

func TestDump(t *testing.T) {
	f := linkSource(t, "proto.def", dumpSource)
	got := model.Dump(f)

	want := `file proto.def
namespace proto
  compound float Vec3 { x, y, z }
  enum State (8-bit unsigned)
    Idle = 0
    Busy = 5
    Closed = 6
  options Flags (8-bit unsigned)
    Read = 1
    Write = 2
  namespace net
    message Packet
      state: proto::State
      payload: byte[] optional
    message Ack : proto::net::Packet
      state: proto::State (from proto::net::Packet)
      payload: byte[] optional (from proto::net::Packet)
      ok: bool = true
`
	if got != want {
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(want),
			B:        difflib.SplitLines(got),
			FromFile: "want",
			ToFile:   "got",
			Context:  3,
		})
		require.NoError(t, err)
		t.Fatalf("dump mismatch:\n%s", diff)
	}
}

// Two independent compiles of the same source must render identically.
func TestDumpDeterministic(t *testing.T) {
	first := model.Dump(linkSource(t, "proto.def", dumpSource))
	second := model.Dump(linkSource(t, "proto.def", dumpSource))
	assert.Equal(t, first, second)
}
