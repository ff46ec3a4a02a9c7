package main

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jcorbin/goforth32/internal/mem"
)

//// Memory layout

// init lays out a fresh arena:
//   [system variables][builtin names][builtin table]
//   [float stack][return stack][data stack][interrupt stacks]
//   [heap ... heap limit][boot source]
// and then seeds the heap with everything the boot source needs to get
// going: the forth wordlist, the search order, builtin forks, native words,
// and the start thread that evaluates input forever.
func (vm *VM) init() {
	var boot bytes.Buffer
	if vm.bootSource != nil {
		if _, err := vm.bootSource.WriteTo(&boot); err != nil {
			vm.halt(err)
		}
	}

	cells := vm.stackCells
	stacksSize := 2*(cells+1)*cellSize + aligned((cells+1)*4)
	irqSize := 2*(irqStackCells+1)*cellSize + aligned((irqStackCells+1)*4)
	heapStart := sysEnd + builtinNamesSize() + builtinTableSize() + stacksSize + irqSize
	vm.heapLimit = heapStart + vm.heapSize
	vm.mem = mem.NewArena(vm.heapLimit + boot.Len())
	vm.started = time.Now()

	addr := vm.layoutBuiltins(sysEnd)
	var main stackRegion
	addr = main.layout(addr, cells)
	addr = vm.irq.stacks.layout(addr, irqStackCells)
	if addr != heapStart {
		panic(fmt.Sprintf("inconsistent memory layout: heap @%v, expected @%v", addr, heapStart))
	}
	vm.main = main.bounds(cells)
	vm.bounds = vm.main
	vm.sp, vm.rp, vm.fp = main.dbase, main.rbase, main.fbase

	vm.stor(sysHeap, heapStart)
	vm.stor(sysHeapStart, heapStart)
	vm.stor(sysHeapSize, vm.heapSize)
	vm.stor(sysStackCells, cells)
	vm.stor(sysBase, 10)

	vm.xt.dolit = vm.builtinXT(opDOLIT)
	vm.xt.doflit = vm.builtinXT(opDOFLIT)
	vm.xt.exit = vm.builtinXT(opEXIT)
	vm.xt.yield = vm.builtinXT(opYIELD)
	vm.xt.branch = vm.builtinXT(opBRANCH)
	vm.xt.pause = vm.builtinXT(opPAUSE)
	vm.xt.uncatch = vm.builtinXT(opUncatch)
	for i := range vm.xt.call {
		vm.xt.call[i] = vm.builtinXT(opCALL0 + opcode(i))
	}

	vm.uncatchThread = vm.here()
	vm.comma(vm.xt.uncatch)
	vm.irq.thread = vm.here()
	vm.comma(0)
	vm.comma(vm.xt.yield)

	// the forth wordlist is shaped like a vocabulary body, [head][0][link],
	// so that vocabularies defined within it can chain to it
	forth := vm.here()
	vm.comma(0)
	vm.comma(0)
	vm.comma(0)
	vm.stor(sysCurrent, forth)
	vm.stor(sysForthWordlist, forth)
	vm.stor(sysContext, vm.here())
	vm.comma(forth)
	for i := 0; i <= vocabularyDepth; i++ {
		vm.comma(0)
	}

	for voc, name := range vocabularyNames {
		vm.createName(name+"-builtins", flagBuiltinFork, opDOCREATE)
		vm.comma(voc)
	}
	vm.defineNatives()
	vm.finish()
	vm.stor(sysLatestXT, 0)

	if code, ok := builtinIndex.lookup([]byte("drop"), vocForth); ok {
		vm.stor(sysNotFound, vm.builtinXT(code))
	}

	start := vm.here()
	vm.comma(vm.builtinXT(opEVALUATE1))
	vm.comma(vm.xt.branch)
	vm.comma(start)

	bootAddr := vm.heapLimit
	copy(vm.bytes(bootAddr, boot.Len()), boot.Bytes())
	vm.stor(sysBoot, bootAddr)
	vm.stor(sysBootSize, boot.Len())
	vm.stor(sysTIB, bootAddr)
	vm.stor(sysNTIB, boot.Len())
	vm.stor(sysTIN, 0)

	vm.ip = start
	vm.park()
	vm.parked = true
}

// stackRegion is a set of data, return, and float stacks; the empty stack
// pointers sit at each base.
type stackRegion struct {
	fbase, rbase, dbase int
}

func (sr *stackRegion) layout(addr, cells int) int {
	sr.fbase = addr
	addr += aligned((cells + 1) * 4)
	sr.rbase = addr
	addr += (cells + 1) * cellSize
	sr.dbase = addr
	addr += (cells + 1) * cellSize
	return addr
}

// bounds has ?STACK report overflow with a third of the data stack still
// free; pushes past the region's last cell fail on the spot.
func (sr stackRegion) bounds(cells int) stackBounds {
	sp0 := sr.dbase + cellSize
	return stackBounds{
		sp0: sp0, spMax: sp0 + (cells*2/3)*cellSize, spTop: sr.dbase + cells*cellSize,
		rp0: sr.rbase, rpMax: sr.rbase + cells*cellSize,
		fp0: sr.fbase, fpMax: sr.fbase + cells*4,
	}
}

//// Running

func (vm *VM) run(ctx context.Context) error {
	vm.ctx = ctx
	vm.init()
	if vm.logfn != nil {
		vm.logf("#", "heap @%v limit @%v stacks %v", vm.load(sysHeapStart), vm.heapLimit, vm.stackCells)
	}
	for {
		vm.resume(ctx)
		if err := ctx.Err(); err != nil {
			vm.halt(err)
		}
		vm.serviceInterrupts()
	}
}

// resume unparks the machine and runs it until it parks again.
func (vm *VM) resume(ctx context.Context) {
	vm.unpark()
	for !vm.exec(ctx) {
	}
}

// exec steps the machine until it parks; a Forth exception raised along the
// way is unwound to its handler, and exec returns false to be called again.
func (vm *VM) exec(ctx context.Context) (parked bool) {
	defer func() {
		if e := recover(); e != nil {
			sig, ok := e.(throwSignal)
			if !ok {
				panic(e)
			}
			vm.raise(sig)
			parked = false
		}
	}()

	for vm.parked = false; !vm.parked; {
		vm.step()
		if vm.steps++; vm.steps%256 == 0 {
			if err := ctx.Err(); err != nil {
				vm.halt(err)
			}
		}
	}
	return true
}

func (vm *VM) step() {
	at := vm.ip
	xt := vm.load(at)
	vm.ip += cellSize
	if vm.logfn != nil {
		vm.logf(">", "@%v %v -- s:%v", at, vm.wordName(xt), vm.dataStack())
	}
	vm.execute(xt)
}

// execute dispatches on the code cell of xt.
func (vm *VM) execute(xt int) {
	vm.w = xt
	code := opcode(vm.load(xt))
	if code <= opInvalid || int(code) >= len(builtinTable) {
		vm.throw(throwUnsupported, codeError{int(code), xt})
	}
	builtinTable[code].fn(vm)
}

// park saves the live registers as a record on the return stack:
//   [fp][sp][ip] <- rp
// leaving the machine free to return to the host loop.
func (vm *VM) park() {
	vm.dup()
	vm.rpush(vm.fp)
	vm.rpush(vm.sp)
	vm.rpush(vm.ip)
}

func (vm *VM) unpark() {
	vm.ip = vm.rpop()
	vm.sp = vm.rpop()
	vm.fp = vm.rpop()
	vm.drop()
}

// YIELD parks and returns control to the host loop, which services pending
// interrupts before resuming.
func (vm *VM) yield() {
	vm.park()
	vm.parked = true
}

// codeError is an xt whose code cell holds no known opcode.
type codeError struct{ code, xt int }

func (err codeError) Error() string {
	return fmt.Sprintf("invalid code %v @%v", err.code, err.xt)
}

func (vm *VM) sinceStart() time.Duration { return time.Since(vm.started) }
