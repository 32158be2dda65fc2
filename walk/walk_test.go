package walk_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defkit/defcompile/msgdef"
	"github.com/defkit/defcompile/parser"
	"github.com/defkit/defcompile/reporter"
	"github.com/defkit/defcompile/walk"
)

func parseRaw(t *testing.T, source string) *msgdef.File {
	t.Helper()
	h := reporter.NewHandler(nil)
	file, err := parser.Parse("test.def", strings.NewReader(source), h)
	require.NoError(t, err)
	res, err := parser.ResultFromAST(file, h)
	require.NoError(t, err)
	return res.File()
}

const walkSource = `
enum State { Idle, Busy }

namespace net {
	float Vec3 { x, y, z }

	message Packet {
		field kind: State
		field mode: enum { Auto, Manual }
	}
}
`

func TestFileVisitsEveryDeclaration(t *testing.T) {
	f := parseRaw(t, walkSource)
	var got []string
	err := walk.File(f, &walk.Visitor{
		Namespace: func(ns *msgdef.Namespace) error {
			got = append(got, "namespace "+ns.Name)
			return nil
		},
		Message: func(m *msgdef.Message) error {
			got = append(got, "message "+m.Name)
			return nil
		},
		Field: func(m *msgdef.Message, fl *msgdef.Field) error {
			got = append(got, "field "+m.Name+"."+fl.Name)
			return nil
		},
		Enum: func(e *msgdef.Enum) error {
			got = append(got, "enum "+e.Name)
			return nil
		},
		EnumValue: func(e *msgdef.Enum, v *msgdef.EnumValue) error {
			if e == nil {
				got = append(got, "inline member "+v.Name)
				return nil
			}
			got = append(got, "member "+e.Name+"."+v.Name)
			return nil
		},
		Compound: func(c *msgdef.Compound) error {
			got = append(got, "compound "+c.Name)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"enum State",
		"member State.Idle",
		"member State.Busy",
		"namespace net",
		"message Packet",
		"field Packet.kind",
		"field Packet.mode",
		"inline member Auto",
		"inline member Manual",
		"compound Vec3",
	}, got)
}

func TestFileStopsOnError(t *testing.T) {
	f := parseRaw(t, walkSource)
	stop := errors.New("stop")
	count := 0
	err := walk.File(f, &walk.Visitor{
		EnumValue: func(*msgdef.Enum, *msgdef.EnumValue) error {
			count++
			if count == 2 {
				return stop
			}
			return nil
		},
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, count)
}

func TestFileSkipsNilCallbacks(t *testing.T) {
	f := parseRaw(t, walkSource)
	assert.NoError(t, walk.File(f, &walk.Visitor{}))
}
