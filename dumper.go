package main

import (
	"fmt"
	"io"
	"strings"
)

//// Dumping

// vmSnapshot copies out what a person debugging the machine wants to see;
// it holds no references into the arena.
type vmSnapshot struct {
	IP, W     int
	Stack     []int
	RStack    []int
	FStack    []float32
	Here      int
	HeapLimit int
	State     bool
	Base      int
	Current   string
	Order     []string
	Words     []wordSnapshot
}

type wordSnapshot struct {
	Name   string
	XT     int
	Kind   string
	Flags  int
	Params int
	Thread []string
}

// maxThread bounds how much of a colon word gets decoded when its size was
// never recorded.
const maxThread = 256

// snapshot takes the newest maxWords words of the current wordlist along
// with the registers and stacks; memory faults just cut things short.
func (vm *VM) snapshot(maxWords int) (snap vmSnapshot) {
	if vm.mem == nil {
		return snap
	}
	snap.IP, snap.W = vm.ip, vm.w
	snap.Stack = vm.dataStack()
	for addr := vm.bounds.rp0 + cellSize; addr <= vm.rp; addr += cellSize {
		val, ok := vm.peek(addr)
		if !ok {
			break
		}
		snap.RStack = append(snap.RStack, val)
	}
	for addr := vm.bounds.fp0 + 4; addr <= vm.fp; addr += 4 {
		f, err := vm.mem.Float32(addr)
		if err != nil {
			break
		}
		snap.FStack = append(snap.FStack, f)
	}

	snap.Here, _ = vm.peek(sysHeap)
	snap.HeapLimit = vm.heapLimit
	state, _ := vm.peek(sysState)
	snap.State = state != 0
	snap.Base, _ = vm.peek(sysBase)

	current, _ := vm.peek(sysCurrent)
	snap.Current = vm.vocabularyName(current)
	if ctx, ok := vm.peek(sysContext); ok {
		for i := 1; i <= vocabularyDepth; i++ {
			voc, ok := vm.peek(ctx + i*cellSize)
			if !ok || voc == 0 {
				break
			}
			snap.Order = append(snap.Order, vm.vocabularyName(voc))
		}
	}

	xt, _ := vm.peek(current)
	for ; xt != 0 && len(snap.Words) < maxWords; xt, _ = vm.peek(xt - 2*cellSize) {
		snap.Words = append(snap.Words, vm.wordSnapshot(xt))
	}
	return snap
}

func (vm *VM) peek(addr int) (int, bool) {
	val, err := vm.mem.Cell(addr)
	return val, err == nil
}

// vocabularyName names the vocabulary word whose body is at addr.
func (vm *VM) vocabularyName(body int) string {
	if forth, _ := vm.peek(sysForthWordlist); body == forth {
		return "FORTH"
	}
	if body < 2*cellSize {
		return fmt.Sprintf("@%v", body)
	}
	return vm.wordName(body - 2*cellSize)
}

func (vm *VM) wordSnapshot(xt int) wordSnapshot {
	ws := wordSnapshot{
		Name: vm.wordName(xt),
		XT:   xt,
	}
	code, ok := vm.peek(xt)
	if !ok {
		return ws
	}
	kind := kindOf(code)
	ws.Kind = kind.String()
	if flags, err := vm.mem.Cell(xt - cellSize); err == nil {
		ws.Flags = flags & 0xff
		ws.Params = (flags >> 16) & maxParams
	}
	if kind == colonWord {
		ws.Thread = vm.decodeThread(xt+cellSize, ws.Params)
	}
	return ws
}

// decodeThread names each cell of a thread, folding the operand of literals
// and branches into the word that takes it.
func (vm *VM) decodeThread(addr, cells int) (thread []string) {
	if cells == 0 {
		cells = maxThread
	}
	for end := addr + cells*cellSize; addr < end; addr += cellSize {
		xt, ok := vm.peek(addr)
		if !ok {
			break
		}
		name := vm.wordName(xt)
		code, _ := vm.peek(xt)
		switch opcode(code) {
		case opDOLIT, opBRANCH, opZBRANCH, opDONEXT, opDOSET:
			addr += cellSize
			arg, _ := vm.peek(addr)
			name = fmt.Sprintf("%v(%v)", name, arg)
		case opDOFLIT:
			addr += cellSize
			arg, _ := vm.peek(addr)
			name = fmt.Sprintf("%v(%v)", name, cellFloat(arg))
		}
		thread = append(thread, name)
		if opcode(code) == opEXIT && cells == maxThread {
			break
		}
	}
	return thread
}

type vmDumper struct {
	vm  *VM
	out io.Writer

	// maxWords limits how many of the newest words are listed
	maxWords int
}

func (dump vmDumper) dump() {
	maxWords := dump.maxWords
	if maxWords == 0 {
		maxWords = 32
	}
	snap := dump.vm.snapshot(maxWords)

	fmt.Fprintf(dump.out, "# VM Dump\n")
	fmt.Fprintf(dump.out, "  ip: %v w: %v\n", snap.IP, snap.W)
	fmt.Fprintf(dump.out, "  stack: %v\n", snap.Stack)
	fmt.Fprintf(dump.out, "  rstack: %v\n", snap.RStack)
	fmt.Fprintf(dump.out, "  fstack: %v\n", snap.FStack)
	fmt.Fprintf(dump.out, "  here: %v limit: %v\n", snap.Here, snap.HeapLimit)
	fmt.Fprintf(dump.out, "  state: %v base: %v\n", snap.State, snap.Base)
	fmt.Fprintf(dump.out, "  current: %v order: %v\n", snap.Current, snap.Order)

	fmt.Fprintf(dump.out, "# Words\n")
	for _, ws := range snap.Words {
		fmt.Fprintf(dump.out, "  @%v %v %q", ws.XT, ws.Kind, ws.Name)
		if ws.Flags&flagImmediate != 0 {
			io.WriteString(dump.out, " immediate")
		}
		if len(ws.Thread) > 0 {
			fmt.Fprintf(dump.out, " : %v", strings.Join(ws.Thread, " "))
		}
		io.WriteString(dump.out, "\n")
	}
}
