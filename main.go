package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goforj/godump"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jcorbin/goforth32/internal/flushio"
	"github.com/jcorbin/goforth32/internal/logio"
)

func main() {
	var log logio.Logger
	log.SetOutput(os.Stderr)
	code := run(&log)
	if exit := log.ExitCode(); code == 0 {
		code = exit
	}
	os.Exit(code)
}

func run(log *logio.Logger) int {
	ctx := context.Background()

	var (
		timeout    time.Duration
		trace      bool
		heapSize   int
		stackCells int
		restore    string
		dump       int
		history    string
	)
	flag.DurationVar(&timeout, "timeout", 0, "specify a time limit")
	flag.BoolVar(&trace, "trace", false, "enable trace logging")
	flag.IntVar(&heapSize, "heap-size", defaultHeapSize, "dictionary size in bytes")
	flag.IntVar(&stackCells, "stack-cells", defaultStackSize, "depth of each stack in cells")
	flag.StringVar(&restore, "restore", "", "restore a saved image before reading input")
	flag.IntVar(&dump, "dump", 0, "dump machine state, and this many of the newest words, after halting")
	flag.StringVar(&history, "history", defaultHistoryFile(), "console history file")
	flag.Parse()

	opts := []VMOption{
		WithHeapSize(heapSize),
		WithStackCells(stackCells),
	}
	if trace {
		log.SetLevel(zerolog.TraceLevel)
		opts = append(opts, WithLogf(log.Leveledf(zerolog.TraceLevel)))
	}
	if restore != "" {
		opts = append(opts, WithInput(namedReader{
			Reader: strings.NewReader("restore " + restore + "\n"),
			name:   "<restore>",
		}))
	}
	for _, name := range flag.Args() {
		f, err := os.Open(name)
		if err != nil {
			log.ErrorIf(err)
			return 1
		}
		opts = append(opts, WithInput(f))
	}

	var con *console
	if isTerminal(os.Stdin) {
		var err error
		if con, err = openConsole(history); err != nil {
			log.ErrorIf(err)
			return 1
		}
		opts = append(opts, WithInput(con.feed), WithOutput(flushio.NewLineFlusher(con.Output())))
	} else {
		opts = append(opts, WithInput(os.Stdin), WithOutput(os.Stdout))
	}

	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	vm := New(opts...)
	defer func() { log.ErrorIf(vm.Close()) }()

	eg, ctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(ctx)
	if con != nil {
		eg.Go(func() error { return con.pump(runCtx) })
	}
	eg.Go(func() error {
		if con != nil {
			defer con.Close()
		}
		defer cancel()
		return vm.Run(runCtx)
	})
	err := eg.Wait()

	if dump > 0 {
		godump.Dump(vm.snapshot(dump))
	}

	var code exitCode
	if errors.As(err, &code) {
		return int(code)
	}
	if err != nil {
		log.Errorf("%+v", err)
		return 1
	}
	return 0
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".goforth32_history")
}

// namedReader gives a name to an input that has none, for trace logs.
type namedReader struct {
	io.Reader
	name string
}

func (nr namedReader) Name() string { return nr.name }
