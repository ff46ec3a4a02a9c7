package main

import "testing"

func TestIO_include(t *testing.T) {
	vmTestCases{
		vmTest("include then use").
			withFile("lib.fs", ": foo 42 ;\n").
			withInput("include {dir}/lib.fs foo\n").
			expectOutput(session("")).
			expectStack(42),

		vmTest("included from a word").
			withFile("lib.fs", ": foo 42 ;\n").
			withInput(lines(
				`: load s" {dir}/lib.fs" included ;`,
				"load foo 1+",
			)).
			expectStack(43),

		vmTest("nested include").
			withFile("a.fs", "include {dir}/b.fs\n: a b 1+ ;\n").
			withFile("b.fs", ": b 1 ;\n").
			withInput("include {dir}/a.fs a b\n").
			expectStack(2, 1),

		vmTest("last line without newline").
			withFile("lib.fs", "7\n8").
			withInput("include {dir}/lib.fs +\n").
			expectStack(15),

		vmTest("conditionals span included lines").
			withFile("lib.fs", "1 0 [IF]\n2\n[THEN] 3\n").
			withInput("include {dir}/lib.fs 4\n").
			expectStack(1, 3, 4),

		vmTest("error in included file").
			withFile("lib.fs", "1 2\nnope\n3\n").
			withInput(lines(
				"include {dir}/lib.fs 5",
				"4",
			)).
			expectOutput(session("\nERROR: nope NOT FOUND!\nERROR\n", "")).
			expectStack(4),

		vmTest("caught include keeps the line").
			withFile("bad.fs", "1 2 -7 throw\n").
			withFile("lib.fs", ": foo 42 ;\n").
			withInput(`s" {dir}/bad.fs" ' included catch nip nip include {dir}/lib.fs foo` + "\n").
			expectOutput(session("")).
			expectStack(-7, 42),

		vmTest("missing file").
			withFile("other.fs", "").
			withInput("include {dir}/nope.fs 1\n").
			expectOutput(session("NON-EXISTENT FILE ERROR\n")).
			expectStack(),

		vmTest("include nests only so deep").
			withFile("loop.fs", "include {dir}/loop.fs\n").
			withInput("include {dir}/loop.fs\n").
			expectOutput(session("UNSUPPORTED OPERATION ERROR\n")),
	}.run(t)
}
