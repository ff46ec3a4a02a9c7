package fileinput

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jcorbin/goforth32/internal/runeio"
)

// Location names an a line in an Input file.
type Location struct {
	Name string
	Line int
}

// Line combines a Location along with a bytes.Buffer for handling it.
type Line struct {
	Location
	bytes.Buffer
}

func (loc Location) String() string { return fmt.Sprintf("%v:%v", loc.Name, loc.Line) }
func (il Line) String() string      { return fmt.Sprintf("%v %q", il.Location, il.Buffer.String()) }

// Input implements sequential rune reading through a Queue of one or more
// input streams. Both the current and last scanned lines are tracked to
// facilitate user feedback.
//
// Streams may also be pushed in front of the current one. A pushed stream
// keeps returning io.EOF once exhausted, until Pop resumes where the prior
// stream left off.
type Input struct {
	rr     io.RuneReader
	src    io.Reader
	Queue  []io.Reader
	Last   Line
	Scan   Line
	pushed []frame
}

type frame struct {
	rr  io.RuneReader
	src io.Reader
	loc Location
}

// Push makes r the current input stream, suspending the prior one.
func (in *Input) Push(r io.Reader) {
	in.pushed = append(in.pushed, frame{in.rr, in.src, in.Scan.Location})
	in.Scan.Reset()
	in.open(r)
}

// Pop closes the current stream, which must have been pushed, and resumes the
// one that it suspended. Returns false if no stream was pushed.
func (in *Input) Pop() bool {
	i := len(in.pushed) - 1
	if i < 0 {
		return false
	}
	in.closeCurrent()
	fr := in.pushed[i]
	in.pushed = in.pushed[:i]
	in.rr, in.src = fr.rr, fr.src
	in.Scan.Reset()
	in.Scan.Location = fr.loc
	return true
}

// Depth returns how many streams are suspended under the current one.
func (in *Input) Depth() int { return len(in.pushed) }

// Ready returns true if a ReadRune call should not block: either data is
// already buffered, the underlying stream claims readiness, or all input is
// exhausted. Streams that don't implement Ready() bool are presumed ready.
func (in *Input) Ready() bool {
	if in.rr == nil {
		if len(in.Queue) == 0 {
			return true
		}
		return isReady(in.Queue[0])
	}
	if buf, ok := in.rr.(interface{ Buffered() int }); ok && buf.Buffered() > 0 {
		return true
	}
	return isReady(in.src)
}

func isReady(r io.Reader) bool {
	if rd, ok := r.(interface{ Ready() bool }); ok {
		return rd.Ready()
	}
	return true
}

// ReadRune reads one rune from the current input stream, appending it into the
// current Scan line, and rolling Scan over to Last after line feed.
func (in *Input) ReadRune() (rune, int, error) {
	if in.rr == nil && (len(in.pushed) > 0 || !in.nextIn()) {
		return 0, 0, io.EOF
	}

	r, n, err := in.rr.ReadRune()
	if r == '\n' {
		in.nextLine()
	} else if n > 0 {
		in.Scan.WriteRune(r)
	}

	if n > 0 {
		return r, n, nil
	}
	if err == io.EOF && len(in.pushed) == 0 && in.nextIn() {
		err = nil
	}
	return 0, n, err
}

func (in *Input) nextLine() {
	in.Last.Reset()
	in.Last.Name = in.Scan.Name
	in.Last.Line = in.Scan.Line
	in.Last.Write(in.Scan.Bytes())
	in.Scan.Reset()
	in.Scan.Line++
}

func (in *Input) closeCurrent() {
	if in.rr != nil {
		if cl, ok := in.src.(io.Closer); ok {
			cl.Close()
		}
		in.rr, in.src = nil, nil
	}
}

func (in *Input) nextIn() bool {
	in.nextLine()
	in.closeCurrent()
	if len(in.Queue) > 0 {
		r := in.Queue[0]
		in.Queue = in.Queue[1:]
		in.open(r)
	}
	return in.rr != nil
}

func (in *Input) open(r io.Reader) {
	in.rr = runeio.NewReader(r)
	in.src = r
	in.Scan.Name = nameOf(r)
	in.Scan.Line = 1
}

func nameOf(obj interface{}) string {
	if nom, ok := obj.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return fmt.Sprintf("<unnamed %T>", obj)
}
