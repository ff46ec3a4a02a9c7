package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "sq.img")
	coldImage := filepath.Join(dir, "cold.img")
	badImage := filepath.Join(dir, "bad.img")
	require.NoError(t, os.WriteFile(badImage, make([]byte, imageHeaderSize+cellSize), 0644))

	vmTestCases{
		vmTest("save").
			withInput(lines(
				": sq dup * ;",
				"vocabulary extra  extra definitions  : cube dup sq * ;  forth definitions",
				"save "+image,
			)).
			expectOutput(session("", "", "")),

		vmTest("restore").
			withInput(lines(
				"restore "+image,
				"6 sq",
				"extra 2 cube",
			)).
			expectStack(36, 8),

		vmTest("save with cold word").
			withInput(lines(
				fmt.Sprintf(": name s\" %v\" ;", coldImage),
				"' name is remember-filename",
				": boot 99 ;",
				"startup: boot",
			)),

		vmTest("restore runs cold word").
			withInput("restore "+coldImage+"\n").
			expectStack(99),

		vmTest("restore missing").
			withInput("restore "+filepath.Join(dir, "nope.img")+"\n").
			expectOutput(session("NON-EXISTENT FILE ERROR\n")),

		vmTest("restore mismatch").
			withInput("restore "+badImage+"\n").
			expectOutput(session("FILE I/O EXCEPTION ERROR\n")),
	}.run(t)

	info, err := os.Stat(image)
	require.NoError(t, err, "image must have been written")
	assert.Greater(t, info.Size(), int64(imageHeaderSize), "image must hold more than its header")
}

func TestImage_roundTrip(t *testing.T) {
	image := filepath.Join(t.TempDir(), "voc.img")
	const listing = "7 emit order words 7 emit"
	var saved, restored strings.Builder

	vmTestCases{
		vmTest("save").
			withOptions(WithOutput(&saved)).
			withInput(lines(
				": sq dup * ;",
				"vocabulary extra  extra definitions  : cube dup sq * ;  : quad sq sq ;",
				"forth definitions  also extra",
				listing,
				"save "+image,
			)),

		vmTest("restore").
			withOptions(WithOutput(&restored)).
			withInput(lines(
				"restore "+image,
				listing,
			)),
	}.run(t)

	between := func(out string) string {
		parts := strings.Split(out, "\a")
		if !assert.Len(t, parts, 3, "expected one bracketed listing in %q", out) {
			return ""
		}
		return parts[1]
	}
	before, after := between(saved.String()), between(restored.String())
	assert.Contains(t, before, "quad")
	assert.Contains(t, before, "cube")
	assert.Equal(t, before, after, "expected the same order and words after restore")
}
