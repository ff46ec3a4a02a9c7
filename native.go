package main

import "fmt"

//// Native words

// NativeFunc implements a word in Go. It receives its arguments in stack
// order, deepest first, and its result is pushed in their place.
type NativeFunc func(vm *VM, args ...int) int

type native struct {
	name  string
	arity int
	fn    NativeFunc
}

const maxNativeArity = 15

// defineNatives compiles a word for every registered native function:
//   : name  DOLIT handle CALLn ;
// handles count from 1, so that 0 can mean "none".
func (vm *VM) defineNatives() {
	for i, nat := range vm.natives {
		vm.createName(nat.name, 0, opDOCOL)
		vm.comma(vm.xt.dolit)
		vm.comma(i + 1)
		vm.comma(vm.xt.call[nat.arity])
		vm.comma(vm.xt.exit)
	}
}

// callNative implements CALLn ( x1 .. xn handle -- result ).
func (vm *VM) callNative(arity int) {
	handle := vm.pop()
	if handle < 1 || handle > len(vm.natives) {
		vm.throw(throwUnsupported, fmt.Errorf("invalid native handle %v", handle))
	}
	nat := vm.natives[handle-1]
	if nat.arity != arity {
		vm.throw(throwUnsupported, fmt.Errorf("native %v takes %v arguments, not %v", nat.name, nat.arity, arity))
	}
	args := make([]int, arity)
	for i := arity - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	if vm.logfn != nil {
		vm.logf("$", "%v%v", nat.name, args)
	}
	vm.push(nat.fn(vm, args...))
}

// NATIVE ( a n -- handle | 0 )
func (vm *VM) nativeOp() {
	n := vm.pop()
	name := string(vm.bytes(vm.pop(), n))
	for i, nat := range vm.natives {
		if nat.name == name {
			vm.push(i + 1)
			return
		}
	}
	vm.push(0)
}
