package main

import (
	"fmt"
	"strings"
)

//// Tasks

// A task record is the body of a word made by TASK:
//   [link][sp][rp][fp][handler][sp0][spMax][spTop][rp0][rpMax][fp0][fpMax]
// Started tasks form a ring through their links, and the task variable
// points at the record of the running one.
const (
	taskLink = iota * cellSize
	taskSP
	taskRP
	taskFP
	taskHandler
	taskSP0
	taskSPMax
	taskSPTop
	taskRP0
	taskRPMax
	taskFP0
	taskFPMax
	taskRecordSize
)

// TASK ( xt dsz rsz "name" -- ) defines a task that runs xt forever, pausing
// after each call, on stacks of the given depths. A task given no stacks at
// all adopts the running stacks instead; that is how the main task is made.
func (vm *VM) taskOp() {
	rsz, dsz, xt := vm.pop(), vm.pop(), vm.pop()
	if dsz < 0 || rsz < 0 {
		vm.throw(throwInvalidAddress, nil)
	}
	vm.createParsed(0, opDOCREATE)
	vm.comma(0)
	rec := vm.here()
	vm.allot(taskRecordSize)
	vm.fill(rec, taskRecordSize, 0)

	if dsz == 0 && rsz == 0 {
		vm.storBounds(rec, vm.bounds)
		return
	}

	db := vm.here()
	vm.allot((dsz + 1) * cellSize)
	rb := vm.here()
	vm.allot((rsz + 1) * cellSize)
	fb := vm.here()
	vm.allot(aligned((dsz + 1) * 4))

	thread := vm.here()
	vm.comma(xt)
	vm.comma(vm.xt.pause)
	vm.comma(vm.xt.branch)
	vm.comma(thread)

	vm.stor(db+cellSize, 0)
	vm.stor(rb+cellSize, thread)
	vm.stor(rec+taskSP, db+cellSize)
	vm.stor(rec+taskRP, rb+cellSize)
	vm.stor(rec+taskFP, fb)
	sp0 := db + cellSize
	vm.storBounds(rec, stackBounds{
		sp0: sp0, spMax: sp0 + (dsz*2/3)*cellSize, spTop: db + dsz*cellSize,
		rp0: rb, rpMax: rb + rsz*cellSize,
		fp0: fb, fpMax: fb + dsz*4,
	})
}

func (vm *VM) storBounds(rec int, bounds stackBounds) {
	vm.stor(rec+taskSP0, bounds.sp0)
	vm.stor(rec+taskSPMax, bounds.spMax)
	vm.stor(rec+taskSPTop, bounds.spTop)
	vm.stor(rec+taskRP0, bounds.rp0)
	vm.stor(rec+taskRPMax, bounds.rpMax)
	vm.stor(rec+taskFP0, bounds.fp0)
	vm.stor(rec+taskFPMax, bounds.fpMax)
}

func (vm *VM) loadBounds(rec int) stackBounds {
	return stackBounds{
		sp0: vm.load(rec + taskSP0), spMax: vm.load(rec + taskSPMax), spTop: vm.load(rec + taskSPTop),
		rp0: vm.load(rec + taskRP0), rpMax: vm.load(rec + taskRPMax),
		fp0: vm.load(rec + taskFP0), fpMax: vm.load(rec + taskFPMax),
	}
}

// START-TASK ( task -- ) splices a task into the ring after the running one.
func (vm *VM) startTask() {
	task := vm.pop()
	cur := vm.load(sysTask)
	if cur == 0 {
		vm.stor(task+taskLink, task)
		vm.stor(sysTask, task)
		return
	}
	vm.stor(task+taskLink, vm.load(cur+taskLink))
	vm.stor(cur+taskLink, task)
}

// PAUSE switches to the next task in the ring; it does nothing until a task
// has been started.
func (vm *VM) pause() {
	cur := vm.load(sysTask)
	if cur == 0 {
		return
	}
	vm.rpush(vm.ip)
	vm.dup()
	vm.stor(cur+taskSP, vm.sp)
	vm.stor(cur+taskRP, vm.rp)
	vm.stor(cur+taskFP, vm.fp)
	vm.stor(cur+taskHandler, vm.load(sysHandler))
	vm.switchTask(vm.load(cur + taskLink))
}

// switchTask loads the registers that next saved when it last paused.
func (vm *VM) switchTask(next int) {
	vm.stor(sysTask, next)
	vm.sp = vm.load(next + taskSP)
	vm.rp = vm.load(next + taskRP)
	vm.fp = vm.load(next + taskFP)
	vm.stor(sysHandler, vm.load(next+taskHandler))
	vm.bounds = vm.loadBounds(next)
	vm.drop()
	vm.ip = vm.rpop()
}

// retireTask unlinks the running task after an exception it did not catch,
// reporting the exception and switching to the next task. It returns false,
// leaving everything as it was, if the running task must not be retired:
// the last task, or one running on the main stacks.
func (vm *VM) retireTask(te throwError) bool {
	cur := vm.load(sysTask)
	if cur == 0 || vm.bounds == vm.main {
		return false
	}
	next := vm.load(cur + taskLink)
	if next == cur {
		return false
	}
	prev := next
	for vm.load(prev+taskLink) != cur {
		prev = vm.load(prev + taskLink)
	}
	vm.stor(prev+taskLink, next)
	vm.stor(cur+taskLink, 0)

	name := vm.wordName(cur - 2*cellSize)
	vm.logf("!", "task %v retired: %v", name, te)
	vm.writeString(fmt.Sprintf("\n%v: %v ERROR\n", name, strings.ToUpper(te.Code.Error())))
	vm.switchTask(next)
	return true
}

// ?STACK ( -- ) checks the running task's data and float stack depths.
func (vm *VM) checkStacks() {
	if vm.sp+cellSize < vm.bounds.sp0 {
		vm.throw(throwStackUnderflow, nil)
	}
	if vm.sp+cellSize > vm.bounds.spMax {
		vm.throw(throwStackOverflow, nil)
	}
	if vm.fp < vm.bounds.fp0 {
		vm.throw(throwFloatUnderflow, nil)
	}
	if vm.fp > vm.bounds.fpMax {
		vm.throw(throwFloatOverflow, nil)
	}
}
