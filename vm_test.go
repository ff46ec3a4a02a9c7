package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/goforth32/internal/logio"
)

type vmTestCases []vmTestCase

func (vmts vmTestCases) run(t *testing.T) {
	{
		var exclusive []vmTestCase
		for _, vmt := range vmts {
			if vmt.exclusive {
				exclusive = append(exclusive, vmt)
			}
		}
		if len(exclusive) > 0 {
			vmts = exclusive
		}
	}
	for _, vmt := range vmts {
		if !t.Run(vmt.name, vmt.run) {
			return
		}
	}
}

func vmTest(name string) (vmt vmTestCase) {
	vmt.name = name
	return vmt
}

type vmTestCase struct {
	name    string
	opts    []interface{}
	expect  []func(t *testing.T, vm *VM)
	timeout time.Duration
	wantErr error

	exclusive   bool
	nextInputID int

	files   []testFile
	fileDir string
}

type testFile struct{ name, content string }

func (vmt vmTestCase) apply(wraps ...func(vmTestCase) vmTestCase) vmTestCase {
	for _, wrap := range wraps {
		vmt = wrap(vmt)
	}
	return vmt
}

func (vmt vmTestCase) exclusiveTest() vmTestCase {
	vmt.exclusive = true
	return vmt
}

func (vmt vmTestCase) withOptions(opts ...VMOption) vmTestCase {
	for _, opt := range opts {
		vmt.opts = append(vmt.opts, opt)
	}
	return vmt
}

func (vmt vmTestCase) withInput(input string) vmTestCase {
	vmt.opts = append(vmt.opts, func(vmt *vmTestCase, t *testing.T) VMOption {
		name := t.Name() + "/input"
		if id := vmt.nextInputID; id > 0 {
			name += "_" + strconv.Itoa(id+1)
		}
		vmt.nextInputID++
		text := input
		if vmt.fileDir != "" {
			text = strings.ReplaceAll(text, "{dir}", vmt.fileDir)
		}
		return WithInput(namedReader{strings.NewReader(text), name})
	})
	return vmt
}

func (vmt vmTestCase) withBoot(source string) vmTestCase {
	vmt.opts = append(vmt.opts, WithBootSource(strings.NewReader(source)))
	return vmt
}

// withFile provides a file in a scratch directory, whose path replaces any
// "{dir}" in test input and file content.
func (vmt vmTestCase) withFile(name, content string) vmTestCase {
	vmt.files = append(vmt.files[:len(vmt.files):len(vmt.files)], testFile{name, content})
	return vmt
}

func (vmt vmTestCase) withNative(name string, arity int, fn NativeFunc) vmTestCase {
	vmt.opts = append(vmt.opts, WithNative(name, arity, fn))
	return vmt
}

func (vmt vmTestCase) withHeapSize(size int) vmTestCase {
	vmt.opts = append(vmt.opts, WithHeapSize(size))
	return vmt
}

func (vmt vmTestCase) withStackCells(cells int) vmTestCase {
	vmt.opts = append(vmt.opts, WithStackCells(cells))
	return vmt
}

func (vmt vmTestCase) withoutYieldTask() vmTestCase {
	vmt.opts = append(vmt.opts, WithoutYieldTask())
	return vmt
}

func (vmt vmTestCase) withTimeout(timeout time.Duration) vmTestCase {
	vmt.timeout = timeout
	return vmt
}

func (vmt vmTestCase) expectError(err error) vmTestCase {
	vmt.wantErr = err
	return vmt
}

func (vmt vmTestCase) expectStack(values ...int) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		if values == nil {
			values = []int{}
		}
		stack := vm.dataStack()
		if stack == nil {
			stack = []int{}
		}
		assert.Equal(t, values, stack, "expected stack values")
	})
	return vmt
}

func (vmt vmTestCase) expectFStack(values ...float32) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		stack := vm.snapshot(0).FStack
		if values == nil {
			values = []float32{}
		}
		if stack == nil {
			stack = []float32{}
		}
		assert.InDeltaSlice(t, values, stack, 1e-4, "expected float stack values")
	})
	return vmt
}

func (vmt vmTestCase) expectOutput(output string) vmTestCase {
	out := new(strings.Builder)
	vmt.opts = append(vmt.opts, func(vmt *vmTestCase, t *testing.T) VMOption {
		out.Reset()
		return WithOutput(out)
	})
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, output, out.String(), "expected output")
	})
	return vmt
}

func (vmt vmTestCase) expectWord(name string, kind wordKind) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		xt := vm.findName(name)
		if assert.NotEqual(t, 0, xt, "expected word %q to be defined", name) {
			assert.Equal(t, kind, vm.kindOf(xt), "expected %q kind", name)
		}
	})
	return vmt
}

func (vmt vmTestCase) expectDump(dump string) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		var out strings.Builder
		vmDumper{
			vm:       vm,
			out:      &out,
			maxWords: 1,
		}.dump()
		assert.Equal(t, dump, out.String(), "expected dump")
	})
	return vmt
}

func (vmt vmTestCase) withTestDump() vmTestCase {
	vmt.expect = append(vmt.expect, vmt.dumpToTest)
	return vmt
}

func (vmt vmTestCase) withTestOutput() vmTestCase {
	vmt.opts = append(vmt.opts, func(vmt *vmTestCase, t *testing.T) VMOption {
		return WithTee(&logio.Writer{Logf: t.Logf, Prefix: "out: "})
	})
	return vmt
}

// run runs the test case, and then runs it again with trace logging should
// it fail.
func (vmt vmTestCase) run(t *testing.T) {
	defer func(then time.Time) {
		label := "PASS"
		if t.Failed() {
			label = "FAIL"
		}
		t.Logf("%v\t%v\t%v", label, t.Name(), time.Since(then))
	}(time.Now())

	vmt.runVMTest(context.Background(), t, vmt.buildVM(t))
	if t.Failed() && !testing.Short() {
		t.Run("traced", func(t *testing.T) {
			vm := vmt.buildVM(t)
			WithLogf(t.Logf).apply(vm)
			vmt.runVMTest(context.Background(), t, vm)
		})
	}
}

func (vmt vmTestCase) runVMTest(ctx context.Context, t *testing.T, vm *VM) {
	const defaultTimeout = 5 * time.Second
	timeout := vmt.timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if t.Failed() {
			vmt.dumpToTest(t, vm)
		}
	}()

	if err := vmt.runVM(ctx, vm); vmt.wantErr != nil {
		assert.True(t, errors.Is(err, vmt.wantErr), "expected error: %v\ngot: %+v", vmt.wantErr, err)
	} else {
		assert.NoError(t, err, "unexpected VM run error")
	}

	if !t.Failed() {
		for _, expect := range vmt.expect {
			expect(t, vm)
		}
	}
}

func (vmt vmTestCase) runVM(ctx context.Context, vm *VM) (rerr error) {
	defer func() {
		if err := vm.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("vm.Close failed: %w", err)
		}
	}()
	return vm.Run(ctx)
}

func (vmt vmTestCase) buildVM(t *testing.T) *VM {
	if len(vmt.files) > 0 {
		vmt.fileDir = t.TempDir()
		for _, f := range vmt.files {
			require.NoError(t, os.WriteFile(filepath.Join(vmt.fileDir, f.name), []byte(strings.ReplaceAll(f.content, "{dir}", vmt.fileDir)), 0o644))
		}
	}
	var opts []VMOption
	for _, o := range vmt.opts {
		switch impl := o.(type) {
		case func(vmt *vmTestCase, t *testing.T) VMOption:
			opts = append(opts, impl(&vmt, t))
		case VMOption:
			opts = append(opts, impl)
		default:
			t.Logf("unsupported vmTestCase opt type %T", o)
			t.FailNow()
		}
	}
	return New(opts...)
}

func (vmt vmTestCase) dumpToTest(t *testing.T, vm *VM) {
	lw := logio.Writer{Logf: t.Logf}
	defer lw.Close()
	vmDumper{vm: vm, out: &lw}.dump()
}

//// utilities

func lines(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

// bootOK is what the kernel prints once it enters the REPL.
const bootOK = " ok\n"

// session builds the expected output of a REPL session: the boot prompt,
// then each line's output followed by its prompt.
func session(outputs ...string) string {
	var sb strings.Builder
	sb.WriteString(bootOK)
	for _, out := range outputs {
		sb.WriteString(out)
		sb.WriteString(" ok\n")
	}
	return sb.String()
}

func TestVM_boot(t *testing.T) {
	vmTestCases{
		vmTest("boot prompt").
			expectOutput(bootOK).
			expectStack(),

		vmTest("arithmetic").
			withInput("1 2 + 3 * 7 - 2 /\n").
			expectOutput(session("")).
			expectStack(1),

		vmTest("print").
			withInput("1 2 + .\n").
			expectOutput(session("3 ")),

		vmTest("square").
			withInput(lines(
				": square dup * ;",
				"5 square .",
			)).
			expectOutput(session("", "25 ")).
			expectWord("square", colonWord),

		vmTest("not found").
			withInput("foo\n").
			expectOutput(session("\nERROR: foo NOT FOUND!\nERROR\n")),

		vmTest("stack underflow").
			withInput("drop\n").
			expectOutput(session("STACK UNDERFLOW ERROR\n")).
			expectStack(),

		vmTest("division by zero").
			withInput("1 0 /\n").
			expectOutput(session("DIVISION BY ZERO ERROR\n")).
			expectStack(),

		vmTest("last line without newline").
			withInput("6 7 *").
			expectOutput(session("")).
			expectStack(42),

		vmTest("several inputs").
			withInput("1\n").
			withInput("2\n").
			expectStack(1, 2),

		vmTest("bye").
			withInput("1 bye 2\n").
			expectOutput(bootOK).
			expectStack(1),

		vmTest("terminate").
			withInput("3 terminate\n").
			expectError(exitCode(3)),

		vmTest("timeout").
			withInput(": spin begin again ; spin\n").
			withTimeout(50 * time.Millisecond).
			expectError(context.DeadlineExceeded),
	}.run(t)
}

func TestVM_bareBoot(t *testing.T) {
	vmTestCases{
		vmTest("builtins only").
			withBoot("1 2 + dup * host-bye").
			expectStack(9),

		vmTest("unknown words stay on the stack").
			withBoot("nosuchword nip host-bye").
			expectStack(10),

		vmTest("uncaught throw").
			withBoot("1 0 / host-bye").
			expectError(throwDivideByZero),

		vmTest("invalid address").
			withBoot("0 @ host-bye").
			expectError(throwInvalidAddress),

		vmTest("return stack underflow").
			withBoot("rdrop host-bye").
			expectError(throwReturnUnderflow),

		vmTest("invalid code").
			withBoot("here 12345 , execute host-bye").
			expectError(throwUnsupported),

		vmTest("dictionary full").
			withBoot("2000000 allot host-bye").
			expectError(throwDictionaryFull),
	}.run(t)
}
