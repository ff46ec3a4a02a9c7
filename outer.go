package main

import (
	"strconv"

	"github.com/jcorbin/goforth32/internal/runeio"
)

//// The Outer Interpreter

// parse scans the text input buffer from >in up to the next sep, returning
// the address and length of the token found; a space sep matches any of
// space, tab, or line ending, and skips leading separators.
func (vm *VM) parse(sep int) (addr, n int) {
	tib, ntib, tin := vm.load(sysTIB), vm.load(sysNTIB), vm.load(sysTIN)
	match := func(c int) bool {
		return c == sep || sep == ' ' && (c == '\t' || c == '\n' || c == '\r')
	}
	if sep == ' ' {
		for tin < ntib && match(vm.loadByte(tib+tin)) {
			tin++
		}
	}
	start := tin
	for tin < ntib && !match(vm.loadByte(tib+tin)) {
		tin++
	}
	n = tin - start
	if tin < ntib {
		tin++
	}
	vm.stor(sysTIN, tin)
	return tib + start, n
}

// createParsed defines a word named by the next token of input.
func (vm *VM) createParsed(flags int, code opcode) {
	addr, n := vm.parse(' ')
	vm.create(addr, n, flags, code)
}

// convert parses an integer in the given base, with an optional leading "-"
// and a "$" prefix that forces hexadecimal.
func convert(token []byte, base int) (int, bool) {
	if len(token) == 0 {
		return 0, false
	}
	negate := false
	if token[0] == '-' {
		negate = true
		token = token[1:]
	}
	if len(token) > 0 && token[0] == '$' {
		base = 16
		token = token[1:]
	}
	if len(token) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range token {
		d := uint(upper(c)) - '0'
		if d > 9 {
			d -= 7
			if d < 10 {
				return 0, false
			}
		}
		if d >= uint(base) {
			return 0, false
		}
		n = n*base + int(d)
	}
	if negate {
		n = -n
	}
	return n, true
}

// fconvert parses a decimal float: an optional "-", digits with at most one
// ".", and an optional exponent introduced by "e" or "E" within ±128.
func fconvert(token []byte) (float32, bool) {
	digits, dots, i := 0, 0, 0
	if i < len(token) && token[i] == '-' {
		i++
	}
	for ; i < len(token); i++ {
		c := token[i]
		if '0' <= c && c <= '9' {
			digits++
		} else if c == '.' {
			if dots++; dots > 1 {
				return 0, false
			}
		} else if c == 'e' || c == 'E' {
			break
		} else {
			return 0, false
		}
	}
	if digits == 0 {
		return 0, false
	}
	mant, exp := token[:i], 0
	if i < len(token) {
		if rest := token[i+1:]; len(rest) > 0 {
			var ok bool
			if exp, ok = convert(rest, 10); !ok || exp < -128 || exp > 128 {
				return 0, false
			}
		}
	}
	f, err := strconv.ParseFloat(string(mant)+"e"+strconv.Itoa(exp), 32)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return 0, false
		}
	}
	return float32(f), true
}

// S>NUMBER? ( a n -- n -1 | 0 )
func (vm *VM) convertOp() {
	n := vm.pop()
	if val, ok := convert(vm.bytes(vm.tos, n), vm.load(sysBase)); ok {
		vm.tos = val
		vm.push(-1)
	} else {
		vm.tos = 0
	}
}

// evaluate1 interprets or compiles the next token of input:
//   - a word found in the search order is executed, or compiled unless it is
//     immediate
//   - an integer in the current base, then a float, then a character literal
//     like 'x' or <ESC>, is pushed or compiled as a literal
//   - anything else is handed to the notfound hook as ( a n -1 )
func (vm *VM) evaluate1() {
	addr, n := vm.parse(' ')
	if n == 0 {
		return
	}
	compiling := vm.state()

	if xt := vm.find(addr, n); xt != 0 {
		if compiling && vm.flagsOf(xt)&flagImmediate == 0 {
			vm.comma(xt)
		} else {
			vm.execute(xt)
		}
		return
	}

	token := vm.bytes(addr, n)
	if val, ok := convert(token, vm.load(sysBase)); ok {
		vm.literal(compiling, val)
		return
	}
	if f, ok := fconvert(token); ok {
		if compiling {
			vm.comma(vm.xt.doflit)
			vm.comma(floatCell(f))
		} else {
			vm.fpush(f)
		}
		return
	}
	if r, err := runeio.UnquoteRune(string(token)); err == nil {
		vm.literal(compiling, int(r))
		return
	}

	if vm.logfn != nil {
		vm.logf("?", "not found %q", token)
	}
	vm.push(addr)
	vm.push(n)
	vm.push(-1)
	vm.execute(vm.load(sysNotFound))
}

func (vm *VM) literal(compiling bool, val int) {
	if compiling {
		vm.comma(vm.xt.dolit)
		vm.comma(val)
	} else {
		vm.push(val)
	}
}
