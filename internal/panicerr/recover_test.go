package panicerr_test

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/goforth32/internal/panicerr"
)

type stopError struct{ code int }

func (se stopError) Error() string { return fmt.Sprintf("stop %v", se.code) }

func TestRecover(t *testing.T) {
	for _, tc := range []struct {
		name      string
		err       string
		wraps     string
		fun       func() error
		haveStack bool
		isExit    bool
	}{
		{
			name:      "",
			err:       "panicked: shrug",
			wraps:     "shrug",
			haveStack: true,
			fun:       func() error { panic(errors.New("shrug")) },
		},
		{
			name:   "",
			err:    "runtime.Goexit called",
			isExit: true,
			fun:    func() error { runtime.Goexit(); return nil },
		},
		{
			name: "normal",
			err:  "",
			fun:  func() error { return nil },
		},
		{
			name: "normal err",
			err:  "bang",
			fun:  func() error { return errors.New("bang") },
		},
		{
			name:      "typed panic",
			err:       "typed panic panicked: stop 3",
			wraps:     "stop 3",
			haveStack: true,
			fun:       func() error { panic(stopError{3}) },
		},
		{
			name:      "hello panic",
			err:       "hello panic panicked: hello",
			haveStack: true,
			fun:       func() error { panic("hello") },
		},
		{
			name:   "exit",
			err:    "exit called runtime.Goexit",
			isExit: true,
			fun:    func() error { runtime.Goexit(); return nil },
		},
		{
			name:      "index panic",
			err:       "index panic panicked: runtime error: index out of range [1] with length 0",
			haveStack: true,
			fun:       func() error { _ = ([]int)(nil)[1]; return nil },
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := panicerr.Recover(tc.name, tc.fun)
			if tc.err == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.err)
				if tc.wraps != "" {
					assert.EqualError(t, errors.Unwrap(err), tc.wraps, "expected panic(error) value")
				}
			}
			assert.Equal(t, tc.isExit, panicerr.IsExit(err), "expected IsExit")
			assert.Equal(t, tc.haveStack, panicerr.IsPanic(err), "expected IsPanic")
			stack := panicerr.PanicStack(err)
			if tc.haveStack {
				assert.NotEqual(t, "", stack, "expected a stack trace")
			} else {
				assert.Equal(t, "", stack, "expected no stack trace")
			}
			if t.Failed() && stack != "" {
				t.Logf("panic stack: %v", stack)
			}
		})
	}
}

func TestRecover_typedError(t *testing.T) {
	err := panicerr.Recover("halt", func() error { panic(stopError{7}) })
	var se stopError
	require.True(t, errors.As(err, &se), "must find the panicked error value")
	assert.Equal(t, 7, se.code)
}

func TestRecover_stacktrace(t *testing.T) {
	err := panicerr.Recover("", func() error {
		panic("nope")
	})
	require.Error(t, err, "must have a recovered error")

	assert.True(t,
		strings.HasSuffix(fmt.Sprintf("%+v", err), panicerr.PanicStack(err)),
		"expected verbose format to end with a stack trace")
}
