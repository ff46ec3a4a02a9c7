package main

import (
	"errors"
	"testing"
)

func invokeNative(vm *VM, args ...int) int {
	n, err := vm.Invoke(args[0], args[1])
	var te throwError
	switch {
	case err == nil:
		return n
	case errors.Is(err, errNestedInvoke):
		return -1000
	case errors.As(err, &te):
		return int(te.Code)
	default:
		return -2000
	}
}

func TestNative(t *testing.T) {
	digits := func(vm *VM, args ...int) int {
		return args[0]*100 + args[1]*10 + args[2]
	}

	vmTestCases{
		vmTest("argument order").
			withNative("digits", 3, digits).
			withInput("1 2 3 digits\n").
			expectStack(123).
			expectWord("digits", colonWord),

		vmTest("no arguments").
			withNative("answer", 0, func(vm *VM, args ...int) int { return 42 }).
			withInput("answer answer +\n").
			expectStack(84),

		vmTest("lookup").
			withNative("digits", 3, digits).
			withInput("internals s\" digits\" native s\" nope\" native\n").
			expectStack(1, 0),

		vmTest("bad handle").
			withInput("internals 1 2 99 CALL1\n").
			expectOutput(session("UNSUPPORTED OPERATION ERROR\n")),

		vmTest("wrong arity").
			withNative("digits", 3, digits).
			withInput("internals 1 1 CALL1\n").
			expectOutput(session("UNSUPPORTED OPERATION ERROR\n")),

		vmTest("throw from go").
			withNative("fail", 0, func(vm *VM, args ...int) int {
				vm.throw(throwInvalidAddress, errors.New("no such thing"))
				return 0
			}).
			withInput("' fail catch\n").
			expectStack(int(throwInvalidAddress)),
	}.run(t)
}

func TestInvoke(t *testing.T) {
	vmTestCases{
		vmTest("returns top of stack").
			withNative("invoke", 2, invokeNative).
			withInput(lines(
				": sq dup * ;",
				"1 ' sq 7 invoke 2",
			)).
			expectStack(1, 49, 2),

		vmTest("uncaught exception").
			withNative("invoke", 2, invokeNative).
			withInput(lines(
				": dz 0 / ;",
				"' dz 5 invoke",
				"' abort 0 invoke",
			)).
			expectStack(int(throwDivideByZero), int(throwAbort)),

		vmTest("caught exception").
			withNative("invoke", 2, invokeNative).
			withInput(lines(
				": dz 0 / ;",
				": safe ['] dz catch ;",
				"' safe 5 invoke",
			)).
			expectStack(int(throwDivideByZero)),

		vmTest("not nested").
			withNative("invoke", 2, invokeNative).
			withInput(lines(
				": sq dup * ;",
				": inner drop ['] sq 3 invoke ;",
				"' inner 0 invoke",
			)).
			expectStack(-1000),
	}.run(t)
}

func TestInterrupt(t *testing.T) {
	vmTestCases{
		vmTest("serviced at yield").
			withNative("interrupt", 2, func(vm *VM, args ...int) int {
				if vm.Interrupt(args[0], args[1]) {
					return -1
				}
				return 0
			}).
			withInput(lines(
				"variable result",
				": handler 100 + result ! ;",
				"' handler 5 interrupt",
				": wait begin pause result @ until ; wait result @",
			)).
			expectStack(-1, 105),

		vmTest("failing handler is dropped").
			withNative("interrupt", 2, func(vm *VM, args ...int) int {
				if vm.Interrupt(args[0], args[1]) {
					return -1
				}
				return 0
			}).
			withInput(lines(
				"variable ran",
				": bad 0 / ;",
				": good drop -1 ran ! ;",
				"' bad 1 interrupt drop ' good 0 interrupt drop",
				": wait begin pause ran @ until ; wait 7",
			)).
			expectStack(7),
	}.run(t)
}
