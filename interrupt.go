package main

import "errors"

//// Interrupts

// An interrupt asks the machine to run a word on its own stacks the next time
// the machine parks; any Go goroutine may raise one with (*VM).Interrupt.
type interrupt struct {
	xt, arg int
}

const interruptQueueSize = 64

type irqState struct {
	stacks stackRegion
	thread int // [xt][YIELD]
	active bool
}

// irqAbort carries an exception that escaped an interrupt handler back to
// its invoke call.
type irqAbort struct{ throwError }

var errNestedInvoke = errors.New("invoke while already invoking")

// Interrupt queues a call of the word xt with arg on its data stack, to be
// run between yields of the running task; it returns false if the queue is
// full. Interrupt is safe to call from any goroutine.
func (vm *VM) Interrupt(xt, arg int) bool {
	select {
	case vm.interrupts <- interrupt{xt, arg}:
		return true
	default:
		return false
	}
}

// Invoke runs the word xt with arg on the interrupt stacks, returning the top
// of its data stack afterward. It may only be called while the machine is
// running, e.g. from a native word, and may not be nested.
func (vm *VM) Invoke(xt, arg int) (int, error) {
	return vm.invoke(xt, arg)
}

func (vm *VM) invoke(xt, arg int) (_ int, err error) {
	if vm.irq.active {
		return 0, errNestedInvoke
	}
	if vm.mem == nil {
		return 0, errors.New("machine not running")
	}

	ip, rp, sp, fp, tos, w := vm.ip, vm.rp, vm.sp, vm.fp, vm.tos, vm.w
	bounds, handler, parked := vm.bounds, vm.load(sysHandler), vm.parked
	defer func() {
		vm.ip, vm.rp, vm.sp, vm.fp, vm.tos, vm.w = ip, rp, sp, fp, tos, w
		vm.bounds, vm.parked = bounds, parked
		vm.stor(sysHandler, handler)
		vm.irq.active = false
	}()

	if vm.logfn != nil {
		defer vm.withLogPrefix("irq ")()
	}

	region := vm.irq.stacks
	vm.bounds = region.bounds(irqStackCells)
	vm.sp, vm.rp, vm.fp, vm.tos = region.dbase, region.rbase, region.fbase, 0
	vm.stor(sysHandler, 0)
	vm.irq.active = true
	vm.push(arg)
	vm.stor(vm.irq.thread, xt)
	vm.ip = vm.irq.thread

	defer func() {
		if e := recover(); e != nil {
			switch v := e.(type) {
			case irqAbort:
				err = v.throwError
			case throwSignal:
				err = throwError{Code: v.code, Err: v.err, IP: vm.ip}
			default:
				panic(e)
			}
		}
	}()

	for !vm.exec(vm.ctx) {
	}
	vm.unpark()
	return vm.tos, nil
}

// serviceInterrupts runs any queued interrupts; an exception escaping a
// handler is logged and otherwise dropped.
func (vm *VM) serviceInterrupts() {
	for {
		select {
		case irq := <-vm.interrupts:
			if _, err := vm.invoke(irq.xt, irq.arg); err != nil {
				vm.logf("!", "interrupt %v(%v) failed: %v", vm.wordName(irq.xt), irq.arg, err)
			}
		default:
			return
		}
	}
}
