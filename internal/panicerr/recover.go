// Package panicerr runs code on its own goroutine, turning an abnormal exit
// into an ordinary error return.
package panicerr

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Recover runs f on a new goroutine and returns its error; a panic or a call
// to runtime.Goexit within f is returned as an error instead.
func Recover(name string, f func() error) error {
	done := make(chan error, 1)
	go func() {
		returned := false
		defer func() {
			if returned {
				return
			}
			if e := recover(); e != nil {
				done <- panicError{name: name, value: e, stack: debug.Stack()}
			} else {
				done <- exitError(name)
			}
		}()
		err := f()
		returned = true
		done <- err
	}()
	return <-done
}

type exitError string

func (name exitError) Error() string {
	if name == "" {
		return "runtime.Goexit called"
	}
	return fmt.Sprintf("%v called runtime.Goexit", string(name))
}

type panicError struct {
	name  string
	value interface{}
	stack []byte
}

func (pe panicError) Error() string { return fmt.Sprint(pe) }

// Format adds the panic stack under %+v.
func (pe panicError) Format(f fmt.State, c rune) {
	if pe.name != "" {
		fmt.Fprintf(f, "%v ", pe.name)
	}
	fmt.Fprintf(f, "panicked: %v", pe.value)
	if c == 'v' && f.Flag('+') {
		fmt.Fprintf(f, "\nPanic stack: %s", pe.stack)
	}
}

// Unwrap returns the panic value when it was an error, so that errors
// panicked through Recover stay matchable by errors.Is and errors.As.
func (pe panicError) Unwrap() error {
	err, _ := pe.value.(error)
	return err
}

// IsExit returns true if err indicates a recovered goroutine exit.
func IsExit(err error) bool {
	var xe exitError
	return errors.As(err, &xe)
}

// IsPanic returns true if err indicates a recovered goroutine panic.
func IsPanic(err error) bool {
	var pe panicError
	return errors.As(err, &pe)
}

// PanicStack returns the stack trace of a recovered panic, or "" if err is
// not one.
func PanicStack(err error) string {
	var pe panicError
	if errors.As(err, &pe) {
		return string(pe.stack)
	}
	return ""
}
