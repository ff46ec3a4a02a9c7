package flushio

import (
	"bufio"
	"bytes"
	"io"
)

// WriteFlusher is a flush-able io.Writer.
type WriteFlusher interface {
	io.Writer
	Flush() error
}

var discardWriteFlusher WriteFlusher = nopFlusher{io.Discard}

// NewWriteFlusher creates a new flushable writer: in memory buffers and the
// discard writer get a noop Flush; a writer that is already a WriteFlusher is
// returned as is; anything else gets a new bufio.Writer.
func NewWriteFlusher(w io.Writer) WriteFlusher {
	if w == io.Discard {
		return discardWriteFlusher
	}

	if wf, is := w.(WriteFlusher); is {
		return wf
	}

	// in memory buffers, as implemented by types like bytes.Buffer and
	// strings.Builder, do not need to be flushed
	type buffer interface {
		io.Writer
		Cap() int
		Len() int
		Grow(n int)
		Reset()
	}
	if _, isBuffer := w.(buffer); isBuffer {
		return nopFlusher{w}
	}

	return bufio.NewWriter(w)
}

type nopFlusher struct{ io.Writer }

func (nf nopFlusher) Flush() error { return nil }

// NewLineFlusher is NewWriteFlusher for interactive output: every write that
// ends a line is flushed right away, so that a partial line only waits for
// the next explicit Flush.
func NewLineFlusher(w io.Writer) WriteFlusher {
	wf := NewWriteFlusher(w)
	if _, isNop := wf.(nopFlusher); isNop {
		return wf
	}
	return lineFlusher{wf}
}

type lineFlusher struct{ WriteFlusher }

func (lf lineFlusher) Write(p []byte) (n int, err error) {
	n, err = lf.WriteFlusher.Write(p)
	if err == nil && bytes.IndexByte(p, '\n') >= 0 {
		err = lf.Flush()
	}
	return n, err
}
