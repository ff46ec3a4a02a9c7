package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jcorbin/goforth32/internal/fileinput"
	"github.com/jcorbin/goforth32/internal/flushio"
	"github.com/jcorbin/goforth32/internal/runeio"
)

type Core struct {
	logging
	fileinput.Input
	out     flushio.WriteFlusher
	closers []io.Closer

	// bytes of the last rune read that KEY has yet to deliver
	pending []byte
	runeBuf [utf8.UTFMax]byte
}

// Close closes any inputs, unless they were already closed when exhausted.
func (core *Core) Close() (err error) {
	for i := len(core.closers) - 1; i >= 0; i-- {
		if cerr := core.closers[i].Close(); err == nil && !errors.Is(cerr, os.ErrClosed) {
			err = cerr
		}
	}
	return err
}

func (core *Core) halt(err error) {
	// ignore any panics while trying to flush output
	func() {
		defer func() { recover() }()
		if core.out != nil {
			if ferr := core.out.Flush(); err == nil {
				err = ferr
			}
		}
	}()

	// ignore any panics while logging
	func() {
		defer func() { recover() }()
		core.logf("#", "halt error: %v", err)
	}()

	panic(haltError{err})
}

func (core *Core) writeString(s string) {
	if _, err := io.WriteString(core.out, s); err != nil {
		core.halt(err)
	}
}

func (core *Core) write(p []byte) {
	if _, err := core.out.Write(p); err != nil {
		core.halt(err)
	}
}

// readByte returns the next byte of input, flushing output first; runes are
// read whole and delivered a UTF-8 byte at a time.
func (core *Core) readByte() (byte, error) {
	if len(core.pending) == 0 {
		if err := core.out.Flush(); err != nil {
			core.halt(err)
		}
		r, n, err := core.Input.ReadRune()
		for n == 0 {
			if err != nil {
				return 0, err
			}
			r, n, err = core.Input.ReadRune()
		}
		if r < 0x20 && r != '\n' && r != '\t' && r != '\r' {
			core.logf("<", "key %v", runeio.ControlName(r))
		}
		if r == utf8.RuneError && n == 1 {
			core.pending = core.runeBuf[:1]
			core.runeBuf[0] = '?'
		} else {
			m := utf8.EncodeRune(core.runeBuf[:], r)
			core.pending = core.runeBuf[:m]
		}
	}
	b := core.pending[0]
	core.pending = core.pending[1:]
	return b, nil
}

func (core *Core) inputReady() bool {
	return len(core.pending) > 0 || core.Input.Ready()
}

type haltError struct{ error }

func (err haltError) Error() string {
	if err.error != nil {
		return fmt.Sprintf("halted: %v", err.error)
	}
	return "halted"
}
func (err haltError) Unwrap() error { return err.error }

// exitCode is the halt error of TERMINATE.
type exitCode int

func (code exitCode) Error() string { return fmt.Sprintf("exit status %d", int(code)) }

type logging struct {
	logfn func(mess string, args ...interface{})

	markWidth int
}

func (log *logging) withLogPrefix(prefix string) func() {
	logfn := log.logfn
	log.logfn = func(mess string, args ...interface{}) {
		logfn(prefix+mess, args...)
	}
	return func() {
		log.logfn = logfn
	}
}

func (log logging) logf(mark, mess string, args ...interface{}) {
	if log.logfn == nil {
		return
	}
	if n := log.markWidth - len(mark); n > 0 {
		for _, r := range mark {
			mark = strings.Repeat(string(r), n) + mark
			break
		}
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.logfn("%v %v", mark, mess)
}
