package mem_test

import (
	"log"
	"os"
	"testing"

	"github.com/jcorbin/goforth32/internal/logio"
	"github.com/jcorbin/goforth32/internal/mem"
	"github.com/jcorbin/goforth32/internal/panicerr"
	"github.com/stretchr/testify/require"
)

func Test_Arena(t *testing.T) {
	for _, tc := range []arenaTestCase{
		arenaTest("cells",
			"init", func(t *testing.T, m *mem.Arena) {
				require.Equal(t, 64, m.Size(), "expected arena size")
				expectCellAt(t, m, 8, 0)
			},

			"9 -> 8", func(t *testing.T, m *mem.Arena) {
				require.NoError(t, m.SetCell(8, 9), "must stor @8")
				expectCellAt(t, m, 8, 9)
				require.Equal(t, []byte{9, 0, 0, 0, 0, 0, 0, 0}, m.Dump(8, 8), "expected little-endian layout")
			},

			"negative cell", func(t *testing.T, m *mem.Arena) {
				require.NoError(t, m.SetCell(16, -2), "must stor @16")
				expectCellAt(t, m, 16, -2)
				v, err := m.Uint32(16)
				require.NoError(t, err, "unexpected load error")
				require.Equal(t, 0xfffffffe, v, "expected low half")
				v, err = m.Int32(16)
				require.NoError(t, err, "unexpected load error")
				require.Equal(t, -2, v, "expected sign extension")
			},

			"unaligned cell", func(t *testing.T, m *mem.Arena) {
				require.NoError(t, m.SetCell(3, 0x0102), "must stor @3")
				expectCellAt(t, m, 3, 0x0102)
				b, err := m.Byte(4)
				require.NoError(t, err, "unexpected load error")
				require.Equal(t, 1, b, "expected high byte @4")
			},
		),

		arenaTest("bounds",
			"null", func(t *testing.T, m *mem.Arena) {
				_, err := m.Cell(0)
				require.Equal(t, mem.BoundsError{Addr: 0, Size: 8, Op: "load"}, err, "expected null fault")
			},

			"past end", func(t *testing.T, m *mem.Arena) {
				require.Error(t, m.SetCell(60, 1), "expected stor fault")
				require.NoError(t, m.SetCell(56, 1), "last cell must be usable")
				_, err := m.Byte(64)
				require.Error(t, err, "expected byte fault")
			},

			"negative", func(t *testing.T, m *mem.Arena) {
				_, err := m.Bytes(-8, 4)
				require.Error(t, err, "expected negative fault")
			},
		),

		arenaTest("bytes",
			"fill and move", func(t *testing.T, m *mem.Arena) {
				require.NoError(t, m.Fill(8, 4, 'a'), "must fill")
				require.NoError(t, m.Move(10, 8, 4), "must move overlapping")
				require.Equal(t, []byte("aaaaaa"), m.Dump(8, 6))
			},

			"view writes through", func(t *testing.T, m *mem.Arena) {
				buf, err := m.Bytes(32, 3)
				require.NoError(t, err, "must get a view")
				copy(buf, "xyz")
				require.Equal(t, []byte("xyz"), m.Dump(32, 3))
			},

			"floats", func(t *testing.T, m *mem.Arena) {
				require.NoError(t, m.SetFloat32(40, 1.5), "must stor float")
				f, err := m.Float32(40)
				require.NoError(t, err, "unexpected load error")
				require.Equal(t, float32(1.5), f)
			},
		),
	} {
		t.Run(tc.name, func(t *testing.T) {
			tcLogOut := &logio.Writer{Logf: t.Logf}
			log.SetOutput(tcLogOut)
			defer log.SetOutput(os.Stderr)

			m := mem.NewArena(64)
			defer func() {
				if t.Failed() {
					t.Logf("arena: %v", m.Dump(0, m.Size()))
				}
			}()

			for _, step := range tc.steps {
				if !t.Run(step.name, func(t *testing.T) {
					stepLogOut := &logio.Writer{Logf: t.Logf}
					log.SetOutput(stepLogOut)
					defer log.SetOutput(tcLogOut)

					isolateTest(t, step.bind(m))
				}) {
					break
				}
			}
		})
	}
}

func isolateTest(t *testing.T, f func(t *testing.T)) {
	if err := panicerr.Recover(t.Name(), func() error {
		f(t)
		return nil
	}); err != nil {
		t.Logf("%+v", err)
		t.Fail()
	}
}

func expectCellAt(t *testing.T, m *mem.Arena, addr int, value int) {
	val, err := m.Cell(addr)
	require.NoError(t, err, "unexpected load @0x%x error", addr)
	require.Equal(t, value, val, "expected value @0x%x", addr)
}

func arenaTest(name string, args ...interface{}) (tc arenaTestCase) {
	tc.name = name
	for i := 0; i < len(args); i++ {
		var step arenaTestStep

		step.name = args[i].(string)

		if i++; i >= len(args) {
			panic("arenaTest: missing function argument after name")
		}
		step.f = args[i].(func(t *testing.T, m *mem.Arena))

		tc.steps = append(tc.steps, step)
	}
	return tc
}

type arenaTestCase struct {
	name  string
	steps []arenaTestStep
}

type arenaTestStep struct {
	name string
	f    func(t *testing.T, m *mem.Arena)

	m *mem.Arena
}

func (step arenaTestStep) bind(m *mem.Arena) func(t *testing.T) {
	step.m = m
	return step.boundTest
}

func (step arenaTestStep) boundTest(t *testing.T) {
	step.f(t, step.m)
}
