package main

import (
	"fmt"
	"math"
	"math/big"
)

//// Builtins

// An opcode is what the inner interpreter dispatches on: the content of a
// word's code cell. Every opcode names a row of the builtin table; the row
// index is the opcode.
type opcode int

type builtin struct {
	name  string
	voc   int
	flags int
	fn    func(vm *VM)
}

// Vocabulary ids; each one with builtins gets a fork word named
// "<vocabulary>-builtins".
const (
	vocForth = iota
	vocInternals
)

var vocabularyNames = [...]string{
	vocForth:     "forth",
	vocInternals: "internals",
}

// Opcodes that Go code compiles or dispatches on directly.
const (
	opInvalid opcode = iota
	opDOLIT
	opDOFLIT
	opDOCOL
	opDOCON
	opDOVAR
	opDOCREATE
	opDODOES
	opEXIT
	opBRANCH
	opZBRANCH
	opDONEXT
	opDOSET
	opYIELD
	opPAUSE
	opUncatch
	opEVALUATE1
	opCALL0
	opCALL15 = opCALL0 + 15
)

var (
	builtinTable []builtin
	builtinIndex symbolIndex
)

func init() {
	builtinTable = []builtin{
		opInvalid: {},

		// inner interpreter
		opDOLIT:     {"DOLIT", vocInternals, 0, func(vm *VM) { vm.push(vm.load(vm.ip)); vm.ip += cellSize }},
		opDOFLIT:    {"DOFLIT", vocInternals, 0, func(vm *VM) { vm.fpush(cellFloat(vm.load(vm.ip))); vm.ip += cellSize }},
		opDOCOL:     {"DOCOL", vocInternals, 0, func(vm *VM) { vm.rpush(vm.ip); vm.ip = vm.w + cellSize }},
		opDOCON:     {"DOCON", vocInternals, 0, func(vm *VM) { vm.push(vm.load(vm.w + cellSize)) }},
		opDOVAR:     {"DOVAR", vocInternals, 0, func(vm *VM) { vm.push(vm.w + cellSize) }},
		opDOCREATE:  {"DOCREATE", vocInternals, 0, func(vm *VM) { vm.push(vm.w + 2*cellSize) }},
		opDODOES:    {"DODOES", vocInternals, 0, (*VM).dodoes},
		opEXIT:      {"EXIT", vocForth, 0, func(vm *VM) { vm.ip = vm.rpop() }},
		opBRANCH:    {"BRANCH", vocInternals, 0, func(vm *VM) { vm.ip = vm.load(vm.ip) }},
		opZBRANCH:   {"0BRANCH", vocInternals, 0, (*VM).zbranch},
		opDONEXT:    {"DONEXT", vocInternals, 0, (*VM).donext},
		opDOSET:     {"DOSET", vocInternals, 0, func(vm *VM) { vm.stor(vm.load(vm.ip), vm.tos); vm.ip += cellSize; vm.drop() }},
		opYIELD:     {"YIELD", vocInternals, 0, (*VM).yield},
		opPAUSE:     {"pause", vocForth, 0, (*VM).pause},
		opUncatch:   {"(uncatch)", vocInternals, 0, (*VM).uncatch},
		opEVALUATE1: {"EVALUATE1", vocInternals, 0, (*VM).evaluate1},

		opCALL0 + 0:  {"CALL0", vocInternals, 0, func(vm *VM) { vm.callNative(0) }},
		opCALL0 + 1:  {"CALL1", vocInternals, 0, func(vm *VM) { vm.callNative(1) }},
		opCALL0 + 2:  {"CALL2", vocInternals, 0, func(vm *VM) { vm.callNative(2) }},
		opCALL0 + 3:  {"CALL3", vocInternals, 0, func(vm *VM) { vm.callNative(3) }},
		opCALL0 + 4:  {"CALL4", vocInternals, 0, func(vm *VM) { vm.callNative(4) }},
		opCALL0 + 5:  {"CALL5", vocInternals, 0, func(vm *VM) { vm.callNative(5) }},
		opCALL0 + 6:  {"CALL6", vocInternals, 0, func(vm *VM) { vm.callNative(6) }},
		opCALL0 + 7:  {"CALL7", vocInternals, 0, func(vm *VM) { vm.callNative(7) }},
		opCALL0 + 8:  {"CALL8", vocInternals, 0, func(vm *VM) { vm.callNative(8) }},
		opCALL0 + 9:  {"CALL9", vocInternals, 0, func(vm *VM) { vm.callNative(9) }},
		opCALL0 + 10: {"CALL10", vocInternals, 0, func(vm *VM) { vm.callNative(10) }},
		opCALL0 + 11: {"CALL11", vocInternals, 0, func(vm *VM) { vm.callNative(11) }},
		opCALL0 + 12: {"CALL12", vocInternals, 0, func(vm *VM) { vm.callNative(12) }},
		opCALL0 + 13: {"CALL13", vocInternals, 0, func(vm *VM) { vm.callNative(13) }},
		opCALL0 + 14: {"CALL14", vocInternals, 0, func(vm *VM) { vm.callNative(14) }},
		opCALL0 + 15: {"CALL15", vocInternals, 0, func(vm *VM) { vm.callNative(15) }},

		{"nop", vocForth, 0, func(vm *VM) {}},

		// arithmetic and logic
		{"0=", vocForth, 0, func(vm *VM) { vm.tos = boolCell(vm.tos == 0) }},
		{"0<", vocForth, 0, func(vm *VM) { vm.tos = boolCell(vm.tos < 0) }},
		{"0<>", vocForth, 0, func(vm *VM) { vm.tos = boolCell(vm.tos != 0) }},
		{"+", vocForth, 0, func(vm *VM) { b := vm.pop(); vm.tos += b }},
		{"-", vocForth, 0, func(vm *VM) { b := vm.pop(); vm.tos -= b }},
		{"*", vocForth, 0, func(vm *VM) { b := vm.pop(); vm.tos *= b }},
		{"u/mod", vocForth, 0, (*VM).umod},
		{"*/mod", vocForth, 0, (*VM).ssmod},
		{"/mod", vocForth, 0, func(vm *VM) { vm.push(1); vm.swap(); vm.ssmod() }},
		{"/", vocForth, 0, func(vm *VM) { vm.push(1); vm.swap(); vm.ssmod(); vm.nip() }},
		{"mod", vocForth, 0, func(vm *VM) { vm.push(1); vm.swap(); vm.ssmod(); vm.drop() }},
		{"cell/", vocForth, 0, func(vm *VM) { vm.push(1); vm.push(cellSize); vm.ssmod(); vm.nip() }},
		{"lshift", vocForth, 0, func(vm *VM) { n := uint(vm.pop()); vm.tos <<= n }},
		{"rshift", vocForth, 0, func(vm *VM) { n := uint(vm.pop()); vm.tos = int(uint(vm.tos) >> n) }},
		{"arshift", vocForth, 0, func(vm *VM) { n := uint(vm.pop()); vm.tos >>= n }},
		{"and", vocForth, 0, func(vm *VM) { b := vm.pop(); vm.tos &= b }},
		{"or", vocForth, 0, func(vm *VM) { b := vm.pop(); vm.tos |= b }},
		{"xor", vocForth, 0, func(vm *VM) { b := vm.pop(); vm.tos ^= b }},
		{"invert", vocForth, 0, func(vm *VM) { vm.tos = ^vm.tos }},
		{"negate", vocForth, 0, func(vm *VM) { vm.tos = -vm.tos }},
		{"abs", vocForth, 0, func(vm *VM) {
			if vm.tos < 0 {
				vm.tos = -vm.tos
			}
		}},
		{"min", vocForth, 0, func(vm *VM) {
			if b := vm.pop(); b < vm.tos {
				vm.tos = b
			}
		}},
		{"max", vocForth, 0, func(vm *VM) {
			if b := vm.pop(); b > vm.tos {
				vm.tos = b
			}
		}},
		{"<", vocForth, 0, func(vm *VM) { b := vm.pop(); vm.tos = boolCell(vm.tos < b) }},
		{">", vocForth, 0, func(vm *VM) { b := vm.pop(); vm.tos = boolCell(vm.tos > b) }},
		{"<=", vocForth, 0, func(vm *VM) { b := vm.pop(); vm.tos = boolCell(vm.tos <= b) }},
		{">=", vocForth, 0, func(vm *VM) { b := vm.pop(); vm.tos = boolCell(vm.tos >= b) }},
		{"=", vocForth, 0, func(vm *VM) { b := vm.pop(); vm.tos = boolCell(vm.tos == b) }},
		{"<>", vocForth, 0, func(vm *VM) { b := vm.pop(); vm.tos = boolCell(vm.tos != b) }},
		{"1+", vocForth, 0, func(vm *VM) { vm.tos++ }},
		{"1-", vocForth, 0, func(vm *VM) { vm.tos-- }},
		{"2*", vocForth, 0, func(vm *VM) { vm.tos <<= 1 }},
		{"2/", vocForth, 0, func(vm *VM) { vm.tos >>= 1 }},
		{"4*", vocForth, 0, func(vm *VM) { vm.tos <<= 2 }},
		{"4/", vocForth, 0, func(vm *VM) { vm.tos >>= 2 }},
		{"cell", vocForth, 0, func(vm *VM) { vm.push(cellSize) }},
		{"cell+", vocForth, 0, func(vm *VM) { vm.tos += cellSize }},
		{"cells", vocForth, 0, func(vm *VM) { vm.tos *= cellSize }},
		{"bl", vocForth, 0, func(vm *VM) { vm.push(' ') }},
		{"nl", vocForth, 0, func(vm *VM) { vm.push('\n') }},

		// data stack
		{"dup", vocForth, 0, (*VM).dup},
		{"drop", vocForth, 0, (*VM).drop},
		{"swap", vocForth, 0, (*VM).swap},
		{"over", vocForth, 0, func(vm *VM) { vm.push(vm.load(vm.sp)) }},
		{"nip", vocForth, 0, (*VM).nip},
		{"rot", vocForth, 0, func(vm *VM) {
			vm.need(3)
			a := vm.load(vm.sp - cellSize)
			vm.stor(vm.sp-cellSize, vm.load(vm.sp))
			vm.stor(vm.sp, vm.tos)
			vm.tos = a
		}},
		{"-rot", vocForth, 0, func(vm *VM) {
			vm.need(3)
			c := vm.tos
			vm.tos = vm.load(vm.sp)
			vm.stor(vm.sp, vm.load(vm.sp-cellSize))
			vm.stor(vm.sp-cellSize, c)
		}},
		{"?dup", vocForth, 0, func(vm *VM) {
			if vm.tos != 0 {
				vm.dup()
			}
		}},
		{"2drop", vocForth, 0, func(vm *VM) { vm.nip(); vm.drop() }},
		{"2dup", vocForth, 0, func(vm *VM) { a, b := vm.load(vm.sp), vm.tos; vm.push(a); vm.push(b) }},
		{"sp@", vocForth, 0, func(vm *VM) { vm.dup(); vm.tos = vm.sp }},
		{"sp!", vocForth, 0, func(vm *VM) {
			vm.sp = vm.within(vm.tos, vm.bounds.sp0, vm.bounds.spTop, cellSize)
			vm.drop()
		}},

		// return stack
		{">r", vocForth, 0, func(vm *VM) { vm.rpush(vm.pop()) }},
		{"r>", vocForth, 0, func(vm *VM) { vm.push(vm.rpop()) }},
		{"r@", vocForth, 0, func(vm *VM) { vm.push(vm.load(vm.rp)) }},
		{"rdrop", vocForth, 0, func(vm *VM) { vm.rpop() }},
		{"rp@", vocForth, 0, func(vm *VM) { vm.push(vm.rp) }},
		{"rp!", vocForth, 0, func(vm *VM) { vm.rp = vm.within(vm.pop(), vm.bounds.rp0, vm.bounds.rpMax, cellSize) }},

		// memory
		{"@", vocForth, 0, func(vm *VM) { vm.tos = vm.load(vm.tos) }},
		{"!", vocForth, 0, func(vm *VM) { addr := vm.pop(); vm.stor(addr, vm.pop()) }},
		{"c@", vocForth, 0, func(vm *VM) { vm.tos = vm.loadByte(vm.tos) }},
		{"c!", vocForth, 0, func(vm *VM) { addr := vm.pop(); vm.storByte(addr, vm.pop()) }},
		{"sl@", vocForth, 0, func(vm *VM) { n, err := vm.mem.Int32(vm.tos); vm.checked(err); vm.tos = n }},
		{"ul@", vocForth, 0, func(vm *VM) { n, err := vm.mem.Uint32(vm.tos); vm.checked(err); vm.tos = n }},
		{"sw@", vocForth, 0, func(vm *VM) { n, err := vm.mem.Int16(vm.tos); vm.checked(err); vm.tos = n }},
		{"uw@", vocForth, 0, func(vm *VM) { n, err := vm.mem.Uint16(vm.tos); vm.checked(err); vm.tos = n }},
		{"l!", vocForth, 0, func(vm *VM) { addr := vm.pop(); vm.checked(vm.mem.SetUint32(addr, vm.pop())) }},
		{"w!", vocForth, 0, func(vm *VM) { addr := vm.pop(); vm.checked(vm.mem.SetUint16(addr, vm.pop())) }},
		{"+!", vocForth, 0, func(vm *VM) { addr := vm.pop(); vm.stor(addr, vm.load(addr)+vm.pop()) }},
		{"2@", vocForth, 0, func(vm *VM) { addr := vm.tos; vm.tos = vm.load(addr); vm.push(vm.load(addr + cellSize)) }},
		{"2!", vocForth, 0, func(vm *VM) {
			addr := vm.pop()
			vm.stor(addr+cellSize, vm.pop())
			vm.stor(addr, vm.pop())
		}},
		{"cmove", vocForth, 0, func(vm *VM) { vm.cmove(false) }},
		{"cmove>", vocForth, 0, func(vm *VM) { vm.cmove(true) }},
		{"move", vocForth, 0, (*VM).move},
		{"fill", vocForth, 0, func(vm *VM) { c, n := vm.pop(), vm.pop(); vm.fill(vm.pop(), n, c) }},
		{"erase", vocForth, 0, func(vm *VM) { n := vm.pop(); vm.fill(vm.pop(), n, 0) }},
		{"blank", vocForth, 0, func(vm *VM) { n := vm.pop(); vm.fill(vm.pop(), n, ' ') }},
		{"fill32", vocInternals, 0, func(vm *VM) {
			c, n, addr := vm.pop(), vm.pop(), vm.pop()
			for ; n > 0; n-- {
				vm.checked(vm.mem.SetUint32(addr, c))
				addr += 4
			}
		}},

		// dictionary
		{"here", vocForth, 0, func(vm *VM) { vm.push(vm.here()) }},
		{"allot", vocForth, 0, func(vm *VM) { vm.allot(vm.pop()) }},
		{"relinquish", vocForth, 0, func(vm *VM) { vm.relinquish(vm.pop()) }},
		{",", vocForth, 0, func(vm *VM) { vm.comma(vm.pop()) }},
		{"c,", vocForth, 0, func(vm *VM) { vm.ccomma(vm.pop()) }},
		{"aligned", vocForth, 0, func(vm *VM) { vm.tos = aligned(vm.tos) }},
		{"align", vocForth, 0, (*VM).align},
		{"find", vocForth, 0, func(vm *VM) { n := vm.pop(); vm.tos = vm.find(vm.tos, n) }},
		{"parse", vocForth, 0, func(vm *VM) { addr, n := vm.parse(vm.tos); vm.tos = addr; vm.push(n) }},
		{"s>number?", vocInternals, 0, (*VM).convertOp},
		{"create", vocForth, 0, func(vm *VM) { vm.createParsed(0, opDOCREATE); vm.comma(0) }},
		{"variable", vocForth, 0, func(vm *VM) { vm.createParsed(0, opDOVAR); vm.comma(0) }},
		{"constant", vocForth, 0, func(vm *VM) { n := vm.pop(); vm.createParsed(0, opDOCON); vm.comma(n) }},
		{":", vocForth, 0, func(vm *VM) { vm.createParsed(flagSmudge, opDOCOL); vm.stor(sysState, -1) }},
		{";", vocForth, flagImmediate, (*VM).semicolon},
		{"does>", vocForth, 0, func(vm *VM) { vm.bindDoes(vm.currentHead(), vm.ip); vm.ip = vm.rpop() }},
		{"immediate", vocForth, 0, func(vm *VM) { xt := vm.currentHead(); vm.setFlags(xt, vm.flagsOf(xt)|flagImmediate) }},
		{">body", vocForth, 0, func(vm *VM) { vm.tos = vm.toBody(vm.tos) }},
		{"execute", vocForth, 0, func(vm *VM) { vm.execute(vm.pop()) }},
		{"[", vocForth, flagImmediate, func(vm *VM) { vm.stor(sysState, 0) }},
		{"]", vocForth, flagImmediate, func(vm *VM) { vm.stor(sysState, -1) }},
		{"literal", vocForth, flagImmediate, func(vm *VM) { vm.comma(vm.xt.dolit); vm.comma(vm.pop()) }},
		{"aliteral", vocInternals, 0, func(vm *VM) { vm.comma(vm.xt.dolit); vm.comma(vm.pop()) }},
		{">flags", vocForth, 0, func(vm *VM) { vm.tos = vm.flagsOf(vm.tos) }},
		{">flags&", vocForth, 0, func(vm *VM) { vm.tos -= cellSize }},
		{">params", vocForth, 0, func(vm *VM) { vm.tos = vm.paramsOf(vm.tos) }},
		{">size", vocForth, 0, func(vm *VM) { vm.tos = vm.sizeOf(vm.tos) }},
		{">link&", vocForth, 0, func(vm *VM) { vm.tos -= 2 * cellSize }},
		{">link", vocForth, 0, func(vm *VM) { vm.tos = vm.linkOf(vm.tos) }},
		{">name", vocForth, 0, func(vm *VM) { addr, n := vm.nameOf(vm.tos); vm.tos = addr; vm.push(n) }},

		// system variables
		{"'sys", vocInternals, 0, func(vm *VM) { vm.push(sysHeap) }},
		{"'heap", vocInternals, 0, func(vm *VM) { vm.push(sysHeap) }},
		{"current", vocForth, 0, func(vm *VM) { vm.push(sysCurrent) }},
		{"'context", vocInternals, 0, func(vm *VM) { vm.push(sysContext) }},
		{"context", vocForth, 0, func(vm *VM) { vm.push(vm.load(sysContext) + cellSize) }},
		{"'latestxt", vocInternals, 0, func(vm *VM) { vm.push(sysLatestXT) }},
		{"latestxt", vocForth, 0, func(vm *VM) { vm.push(vm.load(sysLatestXT)) }},
		{"'notfound", vocInternals, 0, func(vm *VM) { vm.push(sysNotFound) }},
		{"state", vocForth, 0, func(vm *VM) { vm.push(sysState) }},
		{"base", vocForth, 0, func(vm *VM) { vm.push(sysBase) }},
		{"'tib", vocInternals, 0, func(vm *VM) { vm.push(sysTIB) }},
		{"#tib", vocForth, 0, func(vm *VM) { vm.push(sysNTIB) }},
		{">in", vocForth, 0, func(vm *VM) { vm.push(sysTIN) }},
		{"handler", vocInternals, 0, func(vm *VM) { vm.push(sysHandler) }},
		{"'heap-start", vocInternals, 0, func(vm *VM) { vm.push(sysHeapStart) }},
		{"'heap-size", vocInternals, 0, func(vm *VM) { vm.push(sysHeapSize) }},
		{"'stack-cells", vocInternals, 0, func(vm *VM) { vm.push(sysStackCells) }},
		{"'boot", vocInternals, 0, func(vm *VM) { vm.push(sysBoot) }},
		{"'boot-size", vocInternals, 0, func(vm *VM) { vm.push(sysBootSize) }},
		{"'saving-base", vocInternals, 0, func(vm *VM) { vm.push(sysSavingBase) }},
		{"'forth-wordlist", vocInternals, 0, func(vm *VM) { vm.push(sysForthWordlist) }},
		{"'builtins", vocInternals, 0, func(vm *VM) { vm.push(vm.builtinXT(1)) }},

		// exceptions
		{"catch", vocForth, 0, (*VM).catch},
		{"throw", vocForth, 0, (*VM).throwOp},
		{".throw", vocInternals, 0, (*VM).dotThrow},

		// stacks and tasks
		{"?stack", vocInternals, 0, (*VM).checkStacks},
		{"sp0", vocForth, 0, func(vm *VM) { vm.push(vm.bounds.sp0) }},
		{"rp0", vocForth, 0, func(vm *VM) { vm.push(vm.bounds.rp0) }},
		{"fp0", vocForth, 0, func(vm *VM) { vm.push(vm.bounds.fp0) }},
		{"task", vocForth, 0, (*VM).taskOp},
		{"start-task", vocForth, 0, (*VM).startTask},
		{"task-list", vocInternals, 0, func(vm *VM) { vm.push(sysTask) }},
		{"native", vocInternals, 0, (*VM).nativeOp},

		// host
		{"host-type", vocInternals, 0, (*VM).hostType},
		{"host-key", vocInternals, 0, (*VM).hostKey},
		{"host-key?", vocInternals, 0, (*VM).hostKeyReady},
		{"host-bye", vocInternals, 0, func(vm *VM) { vm.halt(nil) }},
		{"terminate", vocForth, 0, func(vm *VM) { vm.halt(exitCode(vm.pop())) }},
		{"raw-yield", vocInternals, 0, (*VM).rawYield},
		{"ms-ticks", vocForth, 0, func(vm *VM) { vm.push(int(vm.sinceStart().Milliseconds())) }},
		{"open-input", vocInternals, 0, (*VM).openInput},
		{"close-input", vocInternals, 0, (*VM).closeInput},
		{"include-levels", vocInternals, 0, func(vm *VM) { vm.push(includeLevels) }},
		{"input-depth", vocInternals, 0, func(vm *VM) { vm.push(vm.Input.Depth()) }},
		{"delete-file", vocForth, 0, (*VM).deleteFile},
		{"save-name", vocInternals, 0, (*VM).saveName},
		{"restore-name", vocInternals, 0, (*VM).restoreName},

		// floating point
		{"fp@", vocForth, 0, func(vm *VM) { vm.push(vm.fp) }},
		{"fp!", vocForth, 0, func(vm *VM) { vm.fp = vm.within(vm.pop(), vm.bounds.fp0, vm.bounds.fpMax, 4) }},
		{"sf@", vocForth, 0, func(vm *VM) { vm.fpush(vm.loadFloat(vm.pop())) }},
		{"sf!", vocForth, 0, func(vm *VM) { vm.storFloat(vm.pop(), vm.fpop()) }},
		{"afliteral", vocInternals, 0, func(vm *VM) { vm.comma(vm.xt.doflit); vm.comma(floatCell(vm.fpop())) }},
		{"fdup", vocForth, 0, func(vm *VM) { f := vm.fpop(); vm.fpush(f); vm.fpush(f) }},
		{"fdrop", vocForth, 0, func(vm *VM) { vm.fpop() }},
		{"fnip", vocForth, 0, func(vm *VM) { f := vm.fpop(); vm.fpop(); vm.fpush(f) }},
		{"fover", vocForth, 0, func(vm *VM) { vm.fpush(vm.loadFloat(vm.fp - 4)) }},
		{"fswap", vocForth, 0, func(vm *VM) { b, a := vm.fpop(), vm.fpop(); vm.fpush(b); vm.fpush(a) }},
		{"frot", vocForth, 0, func(vm *VM) { c, b, a := vm.fpop(), vm.fpop(), vm.fpop(); vm.fpush(b); vm.fpush(c); vm.fpush(a) }},
		{"fnegate", vocForth, 0, func(vm *VM) { vm.fpush(-vm.fpop()) }},
		{"f0<", vocForth, 0, func(vm *VM) { vm.push(boolCell(vm.fpop() < 0)) }},
		{"f0=", vocForth, 0, func(vm *VM) { vm.push(boolCell(vm.fpop() == 0)) }},
		{"f=", vocForth, 0, func(vm *VM) { b, a := vm.fpop(), vm.fpop(); vm.push(boolCell(a == b)) }},
		{"f<>", vocForth, 0, func(vm *VM) { b, a := vm.fpop(), vm.fpop(); vm.push(boolCell(a != b)) }},
		{"f<", vocForth, 0, func(vm *VM) { b, a := vm.fpop(), vm.fpop(); vm.push(boolCell(a < b)) }},
		{"f>", vocForth, 0, func(vm *VM) { b, a := vm.fpop(), vm.fpop(); vm.push(boolCell(a > b)) }},
		{"f<=", vocForth, 0, func(vm *VM) { b, a := vm.fpop(), vm.fpop(); vm.push(boolCell(a <= b)) }},
		{"f>=", vocForth, 0, func(vm *VM) { b, a := vm.fpop(), vm.fpop(); vm.push(boolCell(a >= b)) }},
		{"f+", vocForth, 0, func(vm *VM) { b, a := vm.fpop(), vm.fpop(); vm.fpush(a + b) }},
		{"f-", vocForth, 0, func(vm *VM) { b, a := vm.fpop(), vm.fpop(); vm.fpush(a - b) }},
		{"f*", vocForth, 0, func(vm *VM) { b, a := vm.fpop(), vm.fpop(); vm.fpush(a * b) }},
		{"f/", vocForth, 0, func(vm *VM) { b, a := vm.fpop(), vm.fpop(); vm.fpush(a / b) }},
		{"1/f", vocForth, 0, func(vm *VM) { vm.fpush(1 / vm.fpop()) }},
		{"s>f", vocForth, 0, func(vm *VM) { vm.fpush(float32(vm.pop())) }},
		{"f>s", vocForth, 0, func(vm *VM) { vm.push(int(vm.fpop())) }},
		{"sfloat", vocForth, 0, func(vm *VM) { vm.push(4) }},
		{"sfloats", vocForth, 0, func(vm *VM) { vm.tos *= 4 }},
		{"sfloat+", vocForth, 0, func(vm *VM) { vm.tos += 4 }},
		{"pi", vocForth, 0, func(vm *VM) { vm.fpush(math.Pi) }},
		{"fsin", vocForth, 0, func(vm *VM) { vm.fmap(math.Sin) }},
		{"fcos", vocForth, 0, func(vm *VM) { vm.fmap(math.Cos) }},
		{"fsincos", vocForth, 0, func(vm *VM) { f := float64(vm.fpop()); vm.fpush(float32(math.Sin(f))); vm.fpush(float32(math.Cos(f))) }},
		{"fatan2", vocForth, 0, func(vm *VM) { vm.fmap2(math.Atan2) }},
		{"f**", vocForth, 0, func(vm *VM) { vm.fmap2(math.Pow) }},
		{"floor", vocForth, 0, func(vm *VM) { vm.fmap(math.Floor) }},
		{"fexp", vocForth, 0, func(vm *VM) { vm.fmap(math.Exp) }},
		{"fln", vocForth, 0, func(vm *VM) { vm.fmap(math.Log) }},
		{"fabs", vocForth, 0, func(vm *VM) { vm.fmap(math.Abs) }},
		{"fmin", vocForth, 0, func(vm *VM) { vm.fmap2(math.Min) }},
		{"fmax", vocForth, 0, func(vm *VM) { vm.fmap2(math.Max) }},
		{"fsqrt", vocForth, 0, func(vm *VM) { vm.fmap(math.Sqrt) }},
	}

	for code := opcode(1); code < opcode(len(builtinTable)); code++ {
		if bi := builtinTable[code]; bi.name == "" || bi.fn == nil {
			panic(fmt.Sprintf("builtin opcode %v not defined", code))
		}
	}
	builtinIndex = indexBuiltins(builtinTable)
}

func cellFloat(val int) float32 { return math.Float32frombits(uint32(val)) }
func floatCell(f float32) int   { return int(math.Float32bits(f)) }

// need throws unless the data stack holds at least n cells, for words that
// rewrite cells under the top in place.
func (vm *VM) need(n int) {
	if vm.sp-vm.bounds.sp0 < (n-1)*cellSize {
		vm.throw(throwStackUnderflow, nil)
	}
}

// within checks a stack pointer about to be stored: it must lie in
// [lo, hi] on a slot boundary.
func (vm *VM) within(ptr, lo, hi, slot int) int {
	if ptr < lo || ptr > hi || (ptr-lo)%slot != 0 {
		vm.throw(throwInvalidAddress, fmt.Errorf("stack pointer %v outside [%v, %v]", ptr, lo, hi))
	}
	return ptr
}

func (vm *VM) swap() {
	a := vm.load(vm.sp)
	vm.stor(vm.sp, vm.tos)
	vm.tos = a
}

func (vm *VM) zbranch() {
	if vm.tos == 0 {
		vm.ip = vm.load(vm.ip)
	} else {
		vm.ip += cellSize
	}
	vm.drop()
}

// donext counts down the loop index on the return stack, branching back until
// it wraps past zero.
func (vm *VM) donext() {
	n := vm.load(vm.rp) - 1
	vm.stor(vm.rp, n)
	if n != -1 {
		vm.ip = vm.load(vm.ip)
		return
	}
	vm.rpop()
	vm.ip += cellSize
}

func (vm *VM) dodoes() {
	vm.push(vm.w + 2*cellSize)
	vm.rpush(vm.ip)
	vm.ip = vm.load(vm.w + cellSize)
}

func (vm *VM) semicolon() {
	vm.comma(vm.xt.exit)
	xt := vm.currentHead()
	vm.setFlags(xt, vm.flagsOf(xt)&^flagSmudge)
	vm.finish()
	vm.stor(sysState, 0)
}

// U/MOD ( u1 u2 -- rem quot )
func (vm *VM) umod() {
	d := uint(vm.pop())
	if d == 0 {
		vm.throw(throwDivideByZero, nil)
	}
	n := uint(vm.tos)
	vm.tos = int(n % d)
	vm.push(int(n / d))
}

// */MOD ( n1 n2 n3 -- rem quot ) takes a double width product, dividing with
// the quotient rounded toward negative infinity.
func (vm *VM) ssmod() {
	c := vm.pop()
	if c == 0 {
		vm.throw(throwDivideByZero, nil)
	}
	b, a := vm.pop(), vm.tos
	var d, q, r, z big.Int
	z.SetInt64(int64(c))
	d.Mul(big.NewInt(int64(a)), big.NewInt(int64(b)))
	q.QuoRem(&d, &z, &r)
	if r.Sign() != 0 && r.Sign() != z.Sign() {
		q.Sub(&q, big.NewInt(1))
		r.Add(&r, &z)
	}
	vm.tos = int(r.Int64())
	vm.push(int(q.Int64()))
}

// CMOVE ( src dst n -- ) copies a byte at a time from low addresses up, so
// an overlapping dst just above src repeats the leading bytes; CMOVE> copies
// from high addresses down.
func (vm *VM) cmove(down bool) {
	n, dst, src := vm.pop(), vm.pop(), vm.pop()
	if n <= 0 {
		return
	}
	from, to := vm.bytes(src, n), vm.bytes(dst, n)
	if down {
		for i := n - 1; i >= 0; i-- {
			to[i] = from[i]
		}
	} else {
		for i := 0; i < n; i++ {
			to[i] = from[i]
		}
	}
}

// MOVE ( src dst n -- ) copies as if through a temporary buffer.
func (vm *VM) move() {
	n, dst, src := vm.pop(), vm.pop(), vm.pop()
	if n <= 0 {
		return
	}
	vm.checked(vm.mem.Move(dst, src, n))
}

func (vm *VM) fill(addr, n, c int) {
	if n <= 0 {
		return
	}
	vm.checked(vm.mem.Fill(addr, n, byte(c)))
}

func (vm *VM) fmap(f func(float64) float64) {
	vm.fpush(float32(f(float64(vm.fpop()))))
}

func (vm *VM) fmap2(f func(a, b float64) float64) {
	b, a := vm.fpop(), vm.fpop()
	vm.fpush(float32(f(float64(a), float64(b))))
}

//// Builtin table layout

// The builtin table is laid out in the arena so that every builtin has an xt
// like any other word. Each entry is three cells:
//   [name address][flags:8 namelen:8 vocabulary:16][opcode]
// and a zero entry marks the end.
const builtinEntrySize = 3 * cellSize

func builtinNamesSize() (n int) {
	for _, bi := range builtinTable[1:] {
		n += len(bi.name)
	}
	return aligned(n)
}

func builtinTableSize() int {
	return len(builtinTable) * builtinEntrySize
}

// layoutBuiltins writes the name blob and table at addr, returning the
// address after them.
func (vm *VM) layoutBuiltins(addr int) int {
	names := addr
	addr += builtinNamesSize()
	vm.builtinBase = addr
	for code, bi := range builtinTable[1:] {
		entry := addr + code*builtinEntrySize
		copy(vm.bytes(names, len(bi.name)), bi.name)
		vm.stor(entry, names)
		vm.stor(entry+cellSize, bi.flags|flagBuiltinMark|len(bi.name)<<8|bi.voc<<16)
		vm.stor(entry+2*cellSize, code+1)
		names += len(bi.name)
	}
	return addr + builtinTableSize()
}

func (vm *VM) builtinXT(code opcode) int {
	return vm.builtinBase + int(code-1)*builtinEntrySize + 2*cellSize
}
