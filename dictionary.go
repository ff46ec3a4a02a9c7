package main

import "fmt"

//// The Dictionary

// The dictionary grows by bumping here; the only way it shrinks is by
// truncating here again, which is what FORGET does. Forgetting a word is only
// sound if nothing defined after it is still referenced; the machine merely
// drops its notion of the latest word once here moves below it.

func (vm *VM) allot(n int) {
	here := vm.here() + n
	if here > vm.heapLimit {
		vm.throw(throwDictionaryFull, nil)
	}
	if here < sysEnd {
		vm.throw(throwInvalidAddress, nil)
	}
	vm.stor(sysHeap, here)
	if n < 0 && here <= vm.load(sysLatestXT) {
		vm.stor(sysLatestXT, 0)
	}
}

// relinquish gives up the last n bytes of dictionary space; the limit never
// moves below here, nor above where it started.
func (vm *VM) relinquish(n int) {
	limit := vm.heapLimit - n
	if limit < vm.here() {
		vm.throw(throwDictionaryFull, nil)
	}
	if start := vm.load(sysHeapStart); limit > start+vm.heapSize {
		vm.throw(throwInvalidAddress, nil)
	}
	vm.heapLimit = limit
	vm.stor(sysHeapSize, limit-vm.load(sysHeapStart))
}

func (vm *VM) comma(val int) {
	here := vm.here()
	if here+cellSize > vm.heapLimit {
		vm.throw(throwDictionaryFull, nil)
	}
	vm.stor(here, val)
	vm.stor(sysHeap, here+cellSize)
}

func (vm *VM) ccomma(val int) {
	here := vm.here()
	if here+1 > vm.heapLimit {
		vm.throw(throwDictionaryFull, nil)
	}
	vm.storByte(here, val)
	vm.stor(sysHeap, here+1)
}

func (vm *VM) align() {
	vm.stor(sysHeap, aligned(vm.here()))
}

//// Headers

func (vm *VM) flagsOf(xt int) int   { return vm.loadByte(xt - cellSize) }
func (vm *VM) nameLenOf(xt int) int { return vm.loadByte(xt - cellSize + 1) }
func (vm *VM) linkOf(xt int) int    { return vm.load(xt - 2*cellSize) }

func (vm *VM) paramsOf(xt int) int {
	n, err := vm.mem.Uint16(xt - cellSize + 2)
	vm.checked(err)
	return n
}

func (vm *VM) setParams(xt, n int) {
	vm.checked(vm.mem.SetUint16(xt-cellSize+2, n))
}

func (vm *VM) setFlags(xt, flags int) {
	vm.storByte(xt-cellSize, flags)
}

// nameOf returns the address and length of a word's name; builtins point
// at their name from where a link would be.
func (vm *VM) nameOf(xt int) (addr, n int) {
	n = vm.nameLenOf(xt)
	if vm.flagsOf(xt)&flagBuiltinMark != 0 {
		return vm.linkOf(xt), n
	}
	return xt - 2*cellSize - aligned(n), n
}

// wordName is nameOf for logs and dumps; it never faults.
func (vm *VM) wordName(xt int) (name string) {
	defer func() {
		if e := recover(); e != nil {
			name = fmt.Sprintf("?%v", xt)
		}
	}()
	addr, n := vm.nameOf(xt)
	return string(vm.bytes(addr, n))
}

func (vm *VM) sizeOf(xt int) int {
	return aligned(vm.nameLenOf(xt)) + cellSize*(3+vm.paramsOf(xt))
}

// wordKind classifies a code field; it decides where a word's body starts
// and which words DOES> may rebind.
type wordKind uint8

const (
	primitiveWord wordKind = iota
	colonWord
	variableWord
	constantWord
	createdWord
	doesWord
)

func kindOf(code int) wordKind {
	switch opcode(code) {
	case opDOCOL:
		return colonWord
	case opDOVAR:
		return variableWord
	case opDOCON:
		return constantWord
	case opDOCREATE:
		return createdWord
	case opDODOES:
		return doesWord
	default:
		return primitiveWord
	}
}

func (kind wordKind) String() string {
	switch kind {
	case colonWord:
		return "colon"
	case variableWord:
		return "variable"
	case constantWord:
		return "constant"
	case createdWord:
		return "created"
	case doesWord:
		return "does"
	default:
		return "primitive"
	}
}

// bodyOffset skips the behavior cell that created and DOES> words keep
// right after their code field.
func (kind wordKind) bodyOffset() int {
	if kind == createdWord || kind == doesWord {
		return 2 * cellSize
	}
	return cellSize
}

func (vm *VM) kindOf(xt int) wordKind { return kindOf(vm.load(xt)) }

func (vm *VM) toBody(xt int) int { return xt + vm.kindOf(xt).bodyOffset() }

// bindDoes points a created word at the thread following DOES>.
func (vm *VM) bindDoes(xt, behavior int) {
	switch vm.kindOf(xt) {
	case createdWord, doesWord:
		vm.stor(xt, int(opDODOES))
		vm.stor(xt+cellSize, behavior)
	default:
		vm.throw(throwNotCreated, fmt.Errorf("%q is a %v word", vm.wordName(xt), vm.kindOf(xt)))
	}
}

//// Definition

// finish records the body size of the latest word, once.
func (vm *VM) finish() {
	xt := vm.load(sysLatestXT)
	if xt == 0 || vm.paramsOf(xt) != 0 {
		return
	}
	n := (vm.here() - (xt + cellSize)) / cellSize
	if n < 0 || n > maxParams {
		n = maxParams
	}
	vm.setParams(xt, n)
}

// create lays down a header for the name at addr and makes it the head of
// the current wordlist.
func (vm *VM) create(addr, n, flags int, code opcode) {
	if n == 0 {
		vm.throw(throwEmptyName, nil)
	}
	if n > maxNameLength {
		vm.throw(throwNameTooLong, nil)
	}
	vm.finish()
	vm.align()
	for i := 0; i < n; i++ {
		vm.ccomma(vm.loadByte(addr + i))
	}
	vm.align()
	wordlist := vm.load(sysCurrent)
	vm.comma(vm.load(wordlist))
	vm.comma(n<<8 | flags)
	xt := vm.here()
	vm.stor(wordlist, xt)
	vm.stor(sysLatestXT, xt)
	vm.comma(int(code))
	if vm.logfn != nil {
		vm.logf("+", "%v %q @%v", kindOf(int(code)), vm.bytes(addr, n), xt)
	}
}

// createName is create for names that come from Go.
func (vm *VM) createName(name string, flags int, code opcode) int {
	here := vm.here()
	buf := vm.bytes(here, len(name))
	copy(buf, name)
	vm.create(here, len(name), flags, code)
	return vm.load(sysLatestXT)
}

//// Search

func upper(c byte) byte {
	if 'a' <= c && c <= 'z' {
		return c &^ 0x20
	}
	return c
}

func sameName(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if upper(a[i]) != upper(b[i]) {
			return false
		}
	}
	return true
}

// find walks the search order front to back, and each wordlist from newest
// to oldest; a builtin fork stands in for every builtin of its vocabulary.
func (vm *VM) find(addr, n int) int {
	if n == 0 {
		return 0
	}
	name := vm.bytes(addr, n)
	for voc := vm.load(sysContext); ; voc += cellSize {
		wordlist := vm.load(voc)
		if wordlist == 0 {
			return 0
		}
		for xt := vm.load(wordlist); xt != 0; xt = vm.linkOf(xt) {
			flags := vm.flagsOf(xt)
			if flags&flagBuiltinFork != 0 {
				if id, ok := builtinIndex.lookup(name, vm.load(xt+cellSize)); ok {
					return vm.builtinXT(id)
				}
			}
			if flags&flagSmudge == 0 && vm.nameLenOf(xt) == n {
				at, _ := vm.nameOf(xt)
				if sameName(name, vm.bytes(at, n)) {
					return xt
				}
			}
		}
	}
}

func (vm *VM) findName(name string) int {
	for voc := vm.load(sysContext); ; voc += cellSize {
		wordlist := vm.load(voc)
		if wordlist == 0 {
			break
		}
		for xt := vm.load(wordlist); xt != 0; xt = vm.linkOf(xt) {
			if vm.flagsOf(xt)&flagBuiltinFork != 0 {
				if id, ok := builtinIndex.lookup([]byte(name), vm.load(xt+cellSize)); ok {
					return vm.builtinXT(id)
				}
			}
			if vm.flagsOf(xt)&flagSmudge == 0 && vm.wordName(xt) == name {
				return xt
			}
		}
	}
	return 0
}
