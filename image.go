package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

//// Images

// An image is the dictionary from the saving base up to here, written out
// whole. The boot source reserves a header at the saving base:
//   [here][forth head][cold xt][current][search order...]
// which save fills in, except for the cold xt that Forth code sets itself.
// An image is only meaningful to a machine booted the same way, so that the
// saving base is the same address.
const (
	imageHere = iota * cellSize
	imageForth
	imageCold
	imageCurrent
	imageContext
	imageHeaderSize = imageContext + (vocabularyDepth+2)*cellSize
)

var errImageMismatch = errors.New("image does not fit this machine")

// SAVE-NAME ( a n -- )
func (vm *VM) saveName() {
	n := vm.pop()
	name := string(vm.bytes(vm.pop(), n))
	base := vm.savingBase()

	here := vm.here()
	vm.stor(base+imageHere, here)
	vm.stor(base+imageForth, vm.load(vm.load(sysForthWordlist)))
	vm.stor(base+imageCurrent, vm.load(sysCurrent))
	copy(
		vm.bytes(base+imageContext, imageHeaderSize-imageContext),
		vm.bytes(vm.load(sysContext), imageHeaderSize-imageContext))

	if err := os.WriteFile(name, vm.bytes(base, here-base), 0644); err != nil {
		vm.throw(fileErrorCode(err), err)
	}
	if vm.logfn != nil {
		vm.logf("#", "saved %v bytes to %q", here-base, name)
	}
}

// RESTORE-NAME ( a n -- ) reads an image back in over the dictionary, and
// then runs its cold xt, if any.
func (vm *VM) restoreName() {
	n := vm.pop()
	name := string(vm.bytes(vm.pop(), n))
	base := vm.savingBase()

	if err := vm.readImage(name, base); err != nil {
		vm.throw(fileErrorCode(err), err)
	}

	vm.stor(sysHeap, vm.load(base+imageHere))
	vm.stor(vm.load(sysForthWordlist), vm.load(base+imageForth))
	vm.stor(sysCurrent, vm.load(base+imageCurrent))
	copy(
		vm.bytes(vm.load(sysContext), imageHeaderSize-imageContext),
		vm.bytes(base+imageContext, imageHeaderSize-imageContext))
	vm.stor(sysLatestXT, 0)

	if cold := vm.load(base + imageCold); cold != 0 {
		vm.execute(cold)
	}
}

func (vm *VM) savingBase() int {
	base := vm.load(sysSavingBase)
	if base == 0 {
		vm.throw(throwUnsupported, errors.New("no saving base set"))
	}
	return base
}

func (vm *VM) readImage(name string, base int) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := int(info.Size())
	if size < imageHeaderSize || base+size > vm.heapLimit {
		return fmt.Errorf("%w: %q has size %v", errImageMismatch, name, size)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return err
	}
	defer m.Unmap()

	if here := int(binary.LittleEndian.Uint64(m[imageHere:])); here != base+size {
		return fmt.Errorf("%w: %q was saved with here @%v, expected @%v", errImageMismatch, name, here, base+size)
	}
	copy(vm.bytes(base, size), m)
	return nil
}
