package main

import (
	"fmt"
	"strings"
)

// ThrowCode is a Forth exception code, as passed to THROW.
// Negative codes are reserved for the system, following the ANS table where
// one fits.
type ThrowCode int

// Codes raised by the machine itself.
const (
	throwAbort           = ThrowCode(-1)
	throwStackOverflow   = ThrowCode(-3)
	throwStackUnderflow  = ThrowCode(-4)
	throwReturnOverflow  = ThrowCode(-5)
	throwReturnUnderflow = ThrowCode(-6)
	throwDictionaryFull  = ThrowCode(-8)
	throwInvalidAddress  = ThrowCode(-9)
	throwDivideByZero    = ThrowCode(-10)
	throwUndefinedWord   = ThrowCode(-13)
	throwEmptyName       = ThrowCode(-16)
	throwNameTooLong     = ThrowCode(-19)
	throwUnsupported     = ThrowCode(-21)
	throwNotCreated      = ThrowCode(-31)
	throwFileIO          = ThrowCode(-37)
	throwNoSuchFile      = ThrowCode(-38)
	throwFloatOverflow   = ThrowCode(-44)
	throwFloatUnderflow  = ThrowCode(-45)
	throwSearchOverflow  = ThrowCode(-49)
	throwSearchUnderflow = ThrowCode(-50)
)

var throwMessages = map[ThrowCode]string{
	throwAbort:           "abort",
	throwStackOverflow:   "stack overflow",
	throwStackUnderflow:  "stack underflow",
	throwReturnOverflow:  "return stack overflow",
	throwReturnUnderflow: "return stack underflow",
	throwDictionaryFull:  "dictionary overflow",
	throwInvalidAddress:  "invalid memory address",
	throwDivideByZero:    "division by zero",
	throwUndefinedWord:   "undefined word",
	throwEmptyName:       "attempt to use zero-length string as a name",
	throwNameTooLong:     "definition name too long",
	throwUnsupported:     "unsupported operation",
	throwNotCreated:      "DOES> applied to a word not made by CREATE",
	throwFileIO:          "file I/O exception",
	throwNoSuchFile:      "non-existent file",
	throwFloatOverflow:   "floating-point stack overflow",
	throwFloatUnderflow:  "floating-point stack underflow",
	throwSearchOverflow:  "search-order overflow",
	throwSearchUnderflow: "search-order underflow",
}

func (code ThrowCode) Error() string {
	if mess, ok := throwMessages[code]; ok {
		return mess
	}
	return fmt.Sprintf("throw %d", int(code))
}

// throwError describes an exception that no CATCH frame handled.
type throwError struct {
	Code  ThrowCode
	Err   error // cause, when raised by the machine
	IP    int   // instruction pointer after the faulting cell
	Stack []int // data stack, bottom first
}

func (te throwError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "uncaught exception %d (%v)", int(te.Code), te.Code)
	if te.Err != nil {
		fmt.Fprintf(&sb, ": %v", te.Err)
	}
	fmt.Fprintf(&sb, " @%v", te.IP)
	return sb.String()
}

func (te throwError) Unwrap() error {
	if te.Err != nil {
		return te.Err
	}
	return te.Code
}

func (te throwError) Is(target error) bool {
	code, ok := target.(ThrowCode)
	return ok && code == te.Code
}

// throwSignal carries a Forth exception raised from Go code up to the run
// loop, which unwinds to the nearest CATCH frame.
type throwSignal struct {
	code ThrowCode
	err  error
}

// throw abandons the current primitive, raising code as a Forth exception.
func (vm *VM) throw(code ThrowCode, err error) {
	panic(throwSignal{code, err})
}

// raise unwinds to the innermost handler record:
//   [caller ip][fp][sp][previous handler] <- handler
// restoring the stacks recorded by CATCH and leaving code on the data stack.
func (vm *VM) raise(sig throwSignal) {
	if vm.logfn != nil {
		if sig.err != nil {
			vm.logf("!", "throw %d %v", int(sig.code), sig.err)
		} else {
			vm.logf("!", "throw %d", int(sig.code))
		}
	}

	h := vm.load(sysHandler)
	if h == 0 {
		te := throwError{
			Code:  sig.code,
			Err:   sig.err,
			IP:    vm.ip,
			Stack: vm.dataStack(),
		}
		if vm.irq.active {
			panic(irqAbort{te})
		}
		if vm.retireTask(te) {
			return
		}
		vm.halt(te)
	}

	b := vm.bounds
	if h < b.rp0+4*cellSize || h > b.rpMax || (h-b.rp0)%cellSize != 0 {
		vm.halt(throwError{Code: sig.code, Err: fmt.Errorf("handler @%v outside the return stack", h), IP: vm.ip})
	}
	prev := vm.load(h)
	sp := vm.load(h - cellSize)
	fp := vm.load(h - 2*cellSize)
	ip := vm.load(h - 3*cellSize)
	if sp < b.sp0 || sp > b.spTop || fp < b.fp0 || fp > b.fpMax {
		vm.halt(throwError{Code: sig.code, Err: fmt.Errorf("corrupt handler record @%v", h), IP: vm.ip})
	}
	vm.rp = h - 4*cellSize
	vm.stor(sysHandler, prev)

	vm.sp = sp
	vm.drop()
	vm.fp = fp
	vm.ip = ip
	vm.push(int(sig.code))
}

// CATCH ( i*x xt -- j*x 0 | i*x n )
func (vm *VM) catch() {
	xt := vm.pop()
	vm.rpush(vm.ip)
	vm.rpush(vm.fp)
	vm.dup()
	sp := vm.sp
	vm.drop()
	vm.rpush(sp)
	vm.rpush(vm.load(sysHandler))
	vm.stor(sysHandler, vm.rp)
	vm.ip = vm.uncatchThread
	vm.execute(xt)
}

// uncatch pops a handler record after its xt returned normally.
func (vm *VM) uncatch() {
	vm.stor(sysHandler, vm.rpop())
	vm.rpop()
	vm.rpop()
	vm.ip = vm.rpop()
	vm.push(0)
}

// THROW ( k*x n -- k*x | i*x n )
func (vm *VM) throwOp() {
	if code := vm.pop(); code != 0 {
		vm.throw(ThrowCode(code), nil)
	}
}

// .throw ( n -- ) describes a system exception code before the REPL marks
// the error; abort and undefined words have already said their piece.
func (vm *VM) dotThrow() {
	code := ThrowCode(vm.pop())
	switch code {
	case 0, throwAbort, throwUndefinedWord:
		return
	}
	vm.writeString(strings.ToUpper(code.Error()) + " ")
}

func (vm *VM) dataStack() []int {
	if vm.mem == nil || vm.sp < vm.bounds.sp0 {
		return nil
	}
	var stack []int
	for addr := vm.bounds.sp0 + cellSize; addr <= vm.sp && len(stack) < 64; addr += cellSize {
		val, err := vm.mem.Cell(addr)
		if err != nil {
			break
		}
		stack = append(stack, val)
	}
	return append(stack, vm.tos)
}
