package logio

import (
	"bytes"
	"sync"
)

// Writer implements an io.Writer around a formatted logging function, logging
// one call per line written.
type Writer struct {
	Logf func(string, ...interface{})

	// Prefix, if any, starts every logged line.
	Prefix string

	mu  sync.Mutex
	buf bytes.Buffer
}

// Write buffers p and logs any lines that it completes; it is safe to call
// from multiple goroutines, and never fails.
func (lw *Writer) Write(p []byte) (n int, err error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf.Write(p)
	lw.flushLines(false)
	return len(p), nil
}

// Sync logs any final partial line.
func (lw *Writer) Sync() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.flushLines(true)
	return nil
}

// Close calls Sync.
func (lw *Writer) Close() error {
	return lw.Sync()
}

func (lw *Writer) flushLines(all bool) {
	for lw.buf.Len() > 0 {
		var line []byte
		if i := bytes.IndexByte(lw.buf.Bytes(), '\n'); i >= 0 {
			line = lw.buf.Next(i + 1)
			line = bytes.TrimSuffix(line[:i], []byte{'\r'})
		} else if all {
			line = lw.buf.Next(lw.buf.Len())
		} else {
			break
		}
		lw.Logf("%s%s", lw.Prefix, line)
	}
}
