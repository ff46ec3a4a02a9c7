package logio

import (
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is a leveled log of console lines, built on zerolog, that remembers
// whether any error was logged.
type Logger struct {
	mu       sync.Mutex
	zl       zerolog.Logger
	level    zerolog.Level
	exitCode int
}

// SetOutput directs log lines to out, formatted for people to read.
func (log *Logger) SetOutput(out io.Writer) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.zl = zerolog.New(zerolog.ConsoleWriter{
		Out:          out,
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}).Level(log.level)
}

// SetLevel sets the least severe level that gets logged; the zero value logs
// debug and above.
func (log *Logger) SetLevel(level zerolog.Level) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.level = level
	log.zl = log.zl.Level(level)
	if level < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(level)
	}
}

// ExitCode returns a code to pass to os.Exit, facilitating "exit non-zero if
// any error log" semantics.
func (log *Logger) ExitCode() int {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.exitCode
}

// Leveledf returns a typical printf-style formatting function that logs
// messages with the given level.
func (log *Logger) Leveledf(level zerolog.Level) func(mess string, args ...interface{}) {
	return func(mess string, args ...interface{}) { log.Printf(level, mess, args...) }
}

// ErrorIf logs any non-nil error through Errorf.
func (log *Logger) ErrorIf(err error) {
	if err != nil {
		log.Errorf("%+v", err)
	}
}

// Errorf is like Printf(zerolog.ErrorLevel, ...) but additionally retains
// state so that ExitCode() will return non-zero.
func (log *Logger) Errorf(mess string, args ...interface{}) {
	log.Printf(zerolog.ErrorLevel, mess, args...)
	log.mu.Lock()
	defer log.mu.Unlock()
	log.exitCode = 1
}

// Printf logs a line at the given level.
func (log *Logger) Printf(level zerolog.Level, mess string, args ...interface{}) {
	log.mu.Lock()
	defer log.mu.Unlock()
	if len(args) > 0 {
		log.zl.WithLevel(level).Msgf(mess, args...)
	} else {
		log.zl.WithLevel(level).Msg(mess)
	}
}
