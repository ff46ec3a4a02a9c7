package main

import (
	"testing"
	"time"
)

func TestTasks(t *testing.T) {
	vmTestCases{
		vmTest("round robin").
			withoutYieldTask().
			withInput(lines(
				"variable a  variable b",
				": ta 1 a +! ;  : tb 1 b +! ;",
				"' ta 100 100 task t1  t1 start-task",
				"' tb 100 100 task t2  t2 start-task",
				": spin 10 for pause next ;",
				"spin a @ b @",
			)).
			expectStack(11, 11),

		vmTest("task stacks are separate").
			withoutYieldTask().
			withInput(lines(
				"variable seen",
				": push-some 1 2 3 depth seen ! ;",
				"' push-some 100 100 task pusher  pusher start-task",
				"7 pause pause seen @",
			)).
			expectStack(7, 6),

		vmTest("overflowing task is retired").
			withoutYieldTask().
			withInput(lines(
				": spin 200 for 0 next ;",
				"' spin 20 20 task hog  hog start-task",
				"pause 1 2 +",
				"pause pause 3",
			)).
			expectOutput(session("", "", "\nhog: STACK OVERFLOW ERROR\n", "")).
			expectStack(3, 3),

		vmTest("task float stack is bounded").
			withoutYieldTask().
			withInput(lines(
				": floaty 100 for 1e next ;",
				"' floaty 8 8 task fl  fl start-task",
				"pause 5",
			)).
			expectOutput(session("", "", "\nfl: FLOATING-POINT STACK OVERFLOW ERROR\n")).
			expectStack(5),

		vmTest("task catches its own overflow").
			withoutYieldTask().
			withInput(lines(
				"variable code",
				": spin 200 for 0 next ;",
				": guarded ['] spin catch code ! ;",
				"' guarded 20 20 task careful  careful start-task",
				"pause code @",
			)).
			expectOutput(session("", "", "", "", "")).
			expectStack(int(throwStackOverflow)),

		vmTest("pause without tasks").
			withBoot("1 pause 2 host-bye").
			expectStack(1, 2),

		vmTest("ms").
			withInput("10 ms 1\n").
			withTimeout(time.Second).
			expectStack(1),

		vmTest("list tasks").
			withoutYieldTask().
			withInput(lines(
				"' nop 10 10 task worker  worker start-task",
				"tasks .tasks",
			)).
			expectOutput(session("", "main-task worker ")),
	}.run(t)
}
