package main

import (
	"fmt"
	"io"

	"github.com/jcorbin/goforth32/internal/flushio"
)

type VMOption interface{ apply(vm *VM) }

var defaultOptions = VMOptions(
	withOutput(io.Discard),
	withHeapSize(defaultHeapSize),
	withStackCells(defaultStackSize),
)

// VMOptions flattens any number of options into one.
func VMOptions(opts ...VMOption) VMOption {
	var res options
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil:
		case options:
			res = append(res, impl...)
		default:
			res = append(res, impl)
		}
	}
	return res
}

type options []VMOption

func (opts options) apply(vm *VM) {
	for _, opt := range opts {
		opt.apply(vm)
	}
}

type withLogfn func(mess string, args ...interface{})

func (logfn withLogfn) apply(vm *VM) {
	vm.logfn = logfn
}

type inputOption struct{ io.Reader }
type outputOption struct{ io.Writer }
type teeOption struct{ io.Writer }
type heapSizeOption int
type stackCellsOption int
type bootSourceOption struct{ io.WriterTo }
type noYieldTaskOption struct{}
type nativeOption native

func withInput(r io.Reader) inputOption               { return inputOption{r} }
func withOutput(w io.Writer) outputOption             { return outputOption{w} }
func withTee(w io.Writer) teeOption                   { return teeOption{w} }
func withHeapSize(size int) heapSizeOption            { return heapSizeOption(size) }
func withStackCells(cells int) stackCellsOption       { return stackCellsOption(cells) }
func withBootSource(src io.WriterTo) bootSourceOption { return bootSourceOption{src} }

func (i inputOption) apply(vm *VM) {
	vm.Input.Queue = append(vm.Input.Queue, i.Reader)
	if cl, ok := i.Reader.(io.Closer); ok {
		vm.closers = append(vm.closers, cl)
	}
}

func (o outputOption) apply(vm *VM) {
	if vm.out != nil {
		vm.out.Flush()
	}
	vm.out = flushio.NewWriteFlusher(o.Writer)
}

func (o teeOption) apply(vm *VM) {
	vm.out = flushio.WriteFlushers(vm.out, flushio.NewWriteFlusher(o.Writer))
}

func (size heapSizeOption) apply(vm *VM) {
	if size < 1024 {
		panic(fmt.Sprintf("heap size %v too small", int(size)))
	}
	vm.heapSize = aligned(int(size))
}

func (cells stackCellsOption) apply(vm *VM) {
	if cells < 16 {
		panic(fmt.Sprintf("stack of %v cells too small", int(cells)))
	}
	vm.stackCells = int(cells)
}

func (src bootSourceOption) apply(vm *VM) { vm.bootSource = src.WriterTo }

func (noYieldTaskOption) apply(vm *VM) { vm.noYieldTask = true }

func (nat nativeOption) apply(vm *VM) {
	if nat.arity < 0 || nat.arity > maxNativeArity {
		panic(fmt.Sprintf("native %v arity %v out of range [0, %v]", nat.name, nat.arity, maxNativeArity))
	}
	if nat.name == "" || len(nat.name) > maxNameLength {
		panic(fmt.Sprintf("invalid native name %q", nat.name))
	}
	vm.natives = append(vm.natives, native(nat))
}
