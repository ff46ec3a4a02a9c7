package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

//// Console

// lineFeed is an input stream of lines handed over by another goroutine.
// Unlike a plain blocking reader, it can tell whether a read would block, so
// that KEY? lets other tasks run while the user is typing.
type lineFeed struct {
	lines chan []byte
	buf   []byte
	idle  time.Duration
}

const consoleIdle = 10 * time.Millisecond

func newLineFeed() *lineFeed {
	return &lineFeed{
		lines: make(chan []byte, 16),
		idle:  consoleIdle,
	}
}

func (lf *lineFeed) Name() string { return "<console>" }

func (lf *lineFeed) Read(p []byte) (int, error) {
	for len(lf.buf) == 0 {
		line, ok := <-lf.lines
		if !ok {
			return 0, io.EOF
		}
		lf.buf = line
	}
	n := copy(p, lf.buf)
	lf.buf = lf.buf[n:]
	return n, nil
}

// Ready waits up to the idle time for a line; it is also ready once the
// feed is closed, since Read will then return EOF immediately.
func (lf *lineFeed) Ready() bool {
	if len(lf.buf) > 0 {
		return true
	}
	timer := time.NewTimer(lf.idle)
	defer timer.Stop()
	select {
	case line, ok := <-lf.lines:
		if ok {
			lf.buf = line
		}
		return true
	case <-timer.C:
		return false
	}
}

// console is an interactive terminal with line editing and history.
type console struct {
	rl   *readline.Instance
	feed *lineFeed
}

func isTerminal(f *os.File) bool { return term.IsTerminal(int(f.Fd())) }

func openConsole(historyFile string) (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "bye",
	})
	if err != nil {
		return nil, err
	}
	return &console{rl: rl, feed: newLineFeed()}, nil
}

func (con *console) Output() io.Writer { return con.rl.Stdout() }

// pump reads lines until the user ends input, or ctx is done; the console
// must then be closed to unblock any pending read.
func (con *console) pump(ctx context.Context) error {
	defer close(con.feed.lines)
	for {
		line, err := con.rl.Readline()
		if ctx.Err() != nil {
			return nil
		} else if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		select {
		case con.feed.lines <- append([]byte(line), '\n'):
		case <-ctx.Done():
			return nil
		}
	}
}

func (con *console) Close() error { return con.rl.Close() }
