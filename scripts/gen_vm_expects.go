package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"text/template"
	"time"

	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

type namedReader interface {
	io.ReadCloser
	Name() string
}

var (
	in  namedReader    = os.Stdin
	out io.WriteCloser = os.Stdout

	pkgName   = flag.String("package", "main", "package name of the generated file")
	formatter = flag.String("fmt", "goimports", "command to format the generated file through")
	timeout   = flag.Duration("timeout", 5*time.Second, "time limit")
)

func parseFlags() {
	flag.Parse()

	args := flag.Args()

	if len(args) > 0 {
		name := args[0]
		f, err := os.Open(name)
		if err != nil {
			log.Fatalf("failed to open %v: %v", name, err)
		}
		args = args[1:]
		in = f
	}

	if len(args) > 0 {
		name := args[0]
		f, err := os.Create(name)
		if err != nil {
			log.Fatalf("failed to create %v: %v", name, err)
		}
		args = args[1:]
		out = f
	}
}

func main() {
	ctx := context.Background()
	parseFlags()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	ready := make(chan struct{})

	eg.Go(func() error {
		if *formatter == "" {
			close(ready)
			return nil
		}

		defer out.Close()
		fmtCmd := exec.CommandContext(ctx, *formatter)
		fmtPipe, err := fmtCmd.StdinPipe()
		if err != nil {
			return err
		}
		fmtCmd.Stdout = out
		fmtCmd.Stderr = os.Stderr
		out = fmtPipe

		close(ready)
		if err := fmtCmd.Run(); err != nil {
			return fmt.Errorf("%v run failed: %w", *formatter, err)
		}
		return nil
	})

	eg.Go(func() (rerr error) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ready:
		}

		defer func() {
			if cerr := in.Close(); rerr == nil {
				rerr = cerr
			}
			if cerr := out.Close(); rerr == nil {
				rerr = cerr
			}
		}()

		return run(ctx)
	})

	if err := eg.Wait(); err != nil {
		log.Fatalln(err)
	}
}

// builderMethod matches the vmTestCase builder methods that take arguments;
// argument-less ones read fine as they are.
var builderMethod = regexp.MustCompile(`^func \(vmt vmTestCase\) (expect|with)(.+?)\((.+?)\) vmTestCase`)

type wrapper struct {
	Base, What string
	Params     string
	Args       []string
}

var wrapperTemplate = template.Must(template.New("wrapper").Parse(`
func {{ .Base }}VM{{ .What }}({{ .Params }}) func(vmTestCase) vmTestCase {
	return func(vmt vmTestCase) vmTestCase {
		return vmt.{{ .Base }}{{ .What }}({{ range $i, $arg := .Args }}{{ if $i }}, {{ end }}{{ $arg }}{{ end }})
	}
}
`))

func parseWrapper(line []byte) (w wrapper, ok bool) {
	match := builderMethod.FindSubmatch(line)
	if len(match) == 0 {
		return w, false
	}
	w.Base, w.What, w.Params = string(match[1]), string(match[2]), string(match[3])
	for _, part := range strings.Split(w.Params, ",") {
		fields := strings.Fields(part)
		arg := fields[0]
		if len(fields) > 1 && strings.HasPrefix(fields[1], "...") {
			arg += "..."
		}
		w.Args = append(w.Args, arg)
	}
	return w, true
}

func run(ctx context.Context) error {
	var buf bytes.Buffer
	buf.Grow(1024)
	fmt.Fprintf(&buf, "package %v\n\n", *pkgName)
	fmt.Fprintf(&buf, "// @generated from %v\n\n", in.Name())

	if args := flag.Args(); len(args) >= 2 {
		buf.WriteString("//go:generate go run scripts/gen_vm_expects.go --")
		for _, arg := range args {
			buf.WriteByte(' ')
			buf.WriteString(arg)
		}
		buf.WriteString("\n")
	}

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if w, ok := parseWrapper(sc.Bytes()); ok {
			if err := wrapperTemplate.Execute(&buf, w); err != nil {
				return err
			}
		}

		if buf.Len() > 0 {
			if _, err := buf.WriteTo(out); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return sc.Err()
}
