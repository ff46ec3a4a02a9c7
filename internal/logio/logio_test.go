package logio

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWriter(t *testing.T) {
	var got []string
	lw := Writer{
		Logf:   func(mess string, args ...interface{}) { got = append(got, fmt.Sprintf(mess, args...)) },
		Prefix: "out: ",
	}
	lw.Write([]byte("1 2 + . 3"))
	lw.Write([]byte(" ok\r\nsecond\nthi"))
	assert.Equal(t, []string{"out: 1 2 + . 3 ok", "out: second"}, got)
	assert.NoError(t, lw.Close())
	assert.Equal(t, []string{"out: 1 2 + . 3 ok", "out: second", "out: thi"}, got)
}

func TestLogger(t *testing.T) {
	var out strings.Builder
	var log Logger
	log.SetOutput(&out)

	log.Leveledf(zerolog.TraceLevel)("hidden %v", 1)
	log.Printf(zerolog.InfoLevel, "booted")
	assert.Equal(t, 0, log.ExitCode())
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "booted")

	log.SetLevel(zerolog.TraceLevel)
	log.Leveledf(zerolog.TraceLevel)("step %v", 2)
	assert.Contains(t, out.String(), "step 2")

	log.ErrorIf(nil)
	assert.Equal(t, 0, log.ExitCode())
	log.ErrorIf(errors.New("bad image"))
	assert.Equal(t, 1, log.ExitCode())
	assert.Contains(t, out.String(), "bad image")
}
