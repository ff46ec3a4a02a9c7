package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
)

//// Host words
//
// The console words TYPE, KEY, KEY? and BYE are deferred in the boot source;
// these are what they get bound to.

// HOST-TYPE ( a n -- )
func (vm *VM) hostType() {
	n := vm.pop()
	vm.write(vm.bytes(vm.pop(), n))
}

// HOST-KEY ( -- c ) blocks for the next byte of input, or -1 once all input
// is exhausted.
func (vm *VM) hostKey() {
	b, err := vm.readByte()
	if err == io.EOF {
		vm.push(-1)
		return
	} else if err != nil {
		vm.halt(err)
	}
	vm.push(int(b))
}

// HOST-KEY? ( -- f )
func (vm *VM) hostKeyReady() {
	vm.push(boolCell(vm.inputReady()))
}

// RAW-YIELD ( -- ) lets other goroutines, like the console pump, run.
func (vm *VM) rawYield() { runtime.Gosched() }

// includeLevels bounds how deeply INCLUDED may nest; the boot source keeps
// one input buffer per level.
const includeLevels = 8

// OPEN-INPUT ( a n -- ) suspends the current input in favor of the named
// file, which then reads as exhausted until CLOSE-INPUT.
func (vm *VM) openInput() {
	n := vm.pop()
	name := string(vm.bytes(vm.pop(), n))
	if vm.Input.Depth() >= includeLevels-1 {
		vm.throw(throwUnsupported, fmt.Errorf("%v nested too deeply", name))
	}
	f, err := os.Open(name)
	if err != nil {
		vm.throw(fileErrorCode(err), err)
	}
	vm.logf(">", "include %v", name)
	vm.Input.Push(f)
}

// CLOSE-INPUT ( -- ) resumes the input suspended by OPEN-INPUT.
func (vm *VM) closeInput() {
	if !vm.Input.Pop() {
		vm.throw(throwUnsupported, errors.New("no included input to close"))
	}
}

// DELETE-FILE ( a n -- ior )
func (vm *VM) deleteFile() {
	n := vm.pop()
	name := string(vm.bytes(vm.pop(), n))
	if err := os.Remove(name); err != nil {
		vm.push(int(fileErrorCode(err)))
	} else {
		vm.push(0)
	}
}

func fileErrorCode(err error) ThrowCode {
	if errors.Is(err, os.ErrNotExist) {
		return throwNoSuchFile
	}
	return throwFileIO
}
