/* Package main: goforth32, a self hosting Forth in the ESP32forth mold

FORTH is an extendable language: built-in primitives are indistinguishable
from user-defined _words_, and much of a FORTH system can be coded in FORTH
itself. This machine takes that seriously. The Go side provides only an
inner interpreter, a table of primitive words, and a token-at-a-time outer
interpreter step; everything else, from comments and control flow through
the REPL, vocabularies, SEE, and image saving, is built by Forth source that
the machine reads at boot (see kernel.go).

Memory

All state that Forth code can see lives in one byte addressed arena of 8 byte
cells. It starts with system variables (here, current, the search order,
state, base, the text input buffer, and friends) and the builtin table. The
stacks follow, then the dictionary heap, and finally the boot source text.

Words

A word is a header followed by its body:

	[name, cell padded][link][flags|length<<8|params<<16][code][body ...]

and is named by the address of its code cell, its xt. The code cell holds an
opcode: an index into the builtin table. Colon definitions have DOCOL code
and a body that is a thread of xts; primitives are entries of the builtin
table laid out in the arena, so they have xts too.

Builtins are not linked into the dictionary one by one. Instead, each
vocabulary of builtins has one "fork" word, like forth-builtins, and a
search that reaches a fork looks the name up in the builtin index.

Running

The machine runs on a single goroutine. Control returns to the host only
when the running task executes YIELD, at which point queued interrupts are
serviced, each on its own small set of stacks. Tasks switch cooperatively
with PAUSE.

Exceptions

CATCH and THROW are builtins. Faults detected in Go, like an invalid
address or a division by zero, become Forth exceptions, and the REPL catches
them per line. An exception that no CATCH handles halts the machine.

Images

SAVE writes the dictionary above the saving base to a file, which RESTORE
reads back in; the boot source reserves the saving base as its last act, so
an image holds only what was defined after boot.
*/
package main
