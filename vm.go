package main

import (
	"context"
	"io"
	"time"

	"github.com/jcorbin/goforth32/internal/mem"
)

//// The Machine

// VM implements a threaded code Forth machine.
//
// All machine state that Forth code can observe lives in a single byte
// addressed arena: system variables, the builtin table, the stacks, the
// dictionary, and finally the boot source text. Addresses are plain byte
// indices into the arena, so links between words are integers, and the whole
// dictionary can be written out and read back in as an image.
//
// The registers that the inner interpreter works with most heavily are kept
// on the VM struct itself: the instruction pointer, the three stack pointers,
// a cached top of stack, and the current word pointer. They are spilled into
// the arena only when the machine parks (see YIELD) or switches tasks.
type VM struct {
	Core

	mem *mem.Arena

	ip  int // next cell to execute
	rp  int // top of return stack, pre-increment
	sp  int // second item of data stack; the top lives in tos
	fp  int // top of float stack, pre-increment
	tos int
	w   int // xt being executed

	bounds stackBounds
	main   stackBounds

	heapSize    int
	heapLimit   int
	stackCells  int
	noYieldTask bool
	bootSource  io.WriterTo

	xt struct {
		dolit, doflit, exit, yield, branch, pause, uncatch int
		call                                               [16]int
	}
	builtinBase   int
	uncatchThread int
	irq           irqState

	natives    []native
	interrupts chan interrupt

	ctx     context.Context
	parked  bool
	steps   uint
	started time.Time
}

const cellSize = mem.CellSize

// Every header is laid out as:
//   [name bytes, cell padded][link][flags:8 namelen:8 params:16][code]...
// and words are identified by the address of their code cell, their xt.
const (
	flagImmediate   = 1
	flagSmudge      = 2
	flagBuiltinFork = 4
	flagBuiltinMark = 8
	flagNonamed     = 16
)

const (
	vocabularyDepth  = 16
	defaultHeapSize  = 1 << 20
	defaultStackSize = 512
	irqStackCells    = 64
	maxNameLength    = 255
	maxParams        = 0xffff
)

// System variables occupy the first cells of the arena; address 0 itself is
// never valid.
const (
	sysHeap = (iota + 1) * cellSize
	sysCurrent
	sysContext
	sysLatestXT
	sysNotFound
	sysState
	sysBase
	sysTIB
	sysNTIB
	sysTIN
	sysHandler
	sysTask
	sysHeapStart
	sysHeapSize
	sysStackCells
	sysBoot
	sysBootSize
	sysSavingBase
	sysForthWordlist
	sysEnd
)

// stackBounds holds the limits of the running task's stacks.
// Depth is measured from sp0 (where sp@ points on an empty stack) and fp0.
// ?STACK reports a data stack deeper than spMax, while spTop is the last
// cell of the region that no push may go past.
type stackBounds struct {
	sp0, spMax, spTop int
	rp0, rpMax        int
	fp0, fpMax        int
}

func aligned(n int) int { return (n + cellSize - 1) &^ (cellSize - 1) }

func boolCell(b bool) int {
	if b {
		return -1
	}
	return 0
}

//// Memory access; every fault becomes a Forth exception.

func (vm *VM) load(addr int) int {
	val, err := vm.mem.Cell(addr)
	if err != nil {
		vm.throw(throwInvalidAddress, err)
	}
	return val
}

func (vm *VM) stor(addr, val int) {
	if err := vm.mem.SetCell(addr, val); err != nil {
		vm.throw(throwInvalidAddress, err)
	}
}

func (vm *VM) loadByte(addr int) int {
	val, err := vm.mem.Byte(addr)
	if err != nil {
		vm.throw(throwInvalidAddress, err)
	}
	return val
}

func (vm *VM) storByte(addr, val int) {
	if err := vm.mem.SetByte(addr, val); err != nil {
		vm.throw(throwInvalidAddress, err)
	}
}

func (vm *VM) loadFloat(addr int) float32 {
	f, err := vm.mem.Float32(addr)
	if err != nil {
		vm.throw(throwInvalidAddress, err)
	}
	return f
}

func (vm *VM) storFloat(addr int, f float32) {
	if err := vm.mem.SetFloat32(addr, f); err != nil {
		vm.throw(throwInvalidAddress, err)
	}
}

func (vm *VM) bytes(addr, n int) []byte {
	if n < 0 {
		vm.throw(throwInvalidAddress, nil)
	}
	buf, err := vm.mem.Bytes(addr, n)
	if err != nil {
		vm.throw(throwInvalidAddress, err)
	}
	return buf
}

func (vm *VM) checked(err error) {
	if err != nil {
		vm.throw(throwInvalidAddress, err)
	}
}

//// Data stack

func (vm *VM) dup() {
	if vm.sp+cellSize > vm.bounds.spTop {
		vm.throw(throwStackOverflow, nil)
	}
	vm.sp += cellSize
	vm.stor(vm.sp, vm.tos)
}

func (vm *VM) push(val int) {
	vm.dup()
	vm.tos = val
}

// drop and nip never move sp below the cell under sp0, the empty stack.
func (vm *VM) drop() {
	if vm.sp < vm.bounds.sp0 {
		vm.throw(throwStackUnderflow, nil)
	}
	vm.tos = vm.load(vm.sp)
	vm.sp -= cellSize
}

func (vm *VM) pop() int {
	val := vm.tos
	vm.drop()
	return val
}

func (vm *VM) nip() {
	if vm.sp < vm.bounds.sp0 {
		vm.throw(throwStackUnderflow, nil)
	}
	vm.sp -= cellSize
}

//// Return stack

func (vm *VM) rpush(val int) {
	if vm.rp+cellSize > vm.bounds.rpMax {
		vm.throw(throwReturnOverflow, nil)
	}
	vm.rp += cellSize
	vm.stor(vm.rp, val)
}

func (vm *VM) rpop() int {
	if vm.rp <= vm.bounds.rp0 {
		vm.throw(throwReturnUnderflow, nil)
	}
	val := vm.load(vm.rp)
	vm.rp -= cellSize
	return val
}

//// Float stack

func (vm *VM) fpush(f float32) {
	if vm.fp+4 > vm.bounds.fpMax {
		vm.throw(throwFloatOverflow, nil)
	}
	vm.fp += 4
	vm.storFloat(vm.fp, f)
}

func (vm *VM) fpop() float32 {
	if vm.fp <= vm.bounds.fp0 {
		vm.throw(throwFloatUnderflow, nil)
	}
	f := vm.loadFloat(vm.fp)
	vm.fp -= 4
	return f
}

//// System variables

func (vm *VM) here() int { return vm.load(sysHeap) }

func (vm *VM) state() bool { return vm.load(sysState) != 0 }

// currentHead returns the newest word of the current wordlist.
func (vm *VM) currentHead() int { return vm.load(vm.load(sysCurrent)) }
