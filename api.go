package main

import (
	"context"
	"errors"
	"io"

	"github.com/jcorbin/goforth32/internal/panicerr"
)

// New creates a machine that, once Run, boots from the kernel source and
// then reads its inputs in order through the REPL.
func New(opts ...VMOption) *VM {
	var vm VM
	defaultOptions.apply(&vm)
	VMOptions(opts...).apply(&vm)
	if vm.bootSource == nil {
		vm.bootSource = kernel{yieldTask: !vm.noYieldTask}
	}
	vm.interrupts = make(chan interrupt, interruptQueueSize)
	return &vm
}

// Run boots the machine and runs it until BYE, end of input, an uncaught
// exception, or ctx is done.
func (vm *VM) Run(ctx context.Context) error {
	err := panicerr.Recover("VM", func() error {
		return vm.run(ctx)
	})
	var halt haltError
	if errors.As(err, &halt) {
		err = halt.error
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func WithInput(r io.Reader) VMOption          { return withInput(r) }
func WithOutput(w io.Writer) VMOption         { return withOutput(w) }
func WithTee(w io.Writer) VMOption            { return withTee(w) }
func WithHeapSize(size int) VMOption          { return withHeapSize(size) }
func WithStackCells(cells int) VMOption       { return withStackCells(cells) }
func WithBootSource(src io.WriterTo) VMOption { return withBootSource(src) }
func WithoutYieldTask() VMOption              { return noYieldTaskOption{} }

// WithInputs queues several inputs, to be read one after another.
func WithInputs(rs ...io.Reader) VMOption {
	opts := make([]VMOption, len(rs))
	for i, r := range rs {
		opts[i] = withInput(r)
	}
	return VMOptions(opts...)
}

// WithNative registers a Go function as a word taking arity cells and
// leaving one.
func WithNative(name string, arity int, fn NativeFunc) VMOption {
	return nativeOption{name, arity, fn}
}

func WithLogf(logfn func(mess string, args ...interface{})) VMOption { return withLogfn(logfn) }
