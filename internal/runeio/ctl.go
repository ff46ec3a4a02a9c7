package runeio

import (
	"errors"
	"strconv"
	"strings"
)

// c0Names holds the ASCII mnemonics of the control codes 0x00-0x1F.
var c0Names = [32]string{
	"NUL", "SOH", "STX", "ETX", "EOT", "ENQ", "ACK", "BEL",
	"BS", "HT", "NL", "VT", "NP", "CR", "SO", "SI",
	"DLE", "DC1", "DC2", "DC3", "DC4", "NAK", "SYN", "ETB",
	"CAN", "EM", "SUB", "ESC", "FS", "GS", "RS", "US",
}

// controlWords maps upper cased mnemonics like "<ESC>" and caret forms like
// "^[" to their rune.
var controlWords = make(map[string]rune, 2*len(c0Names)+4)

func init() {
	for r, name := range c0Names {
		controlWords["<"+name+">"] = rune(r)
		controlWords[CaretForm(rune(r))] = rune(r)
	}
	controlWords["<SP>"] = ' '
	controlWords["<DEL>"] = 0x7f
	controlWords["^?"] = 0x7f
	controlWords["<LF>"] = '\n'
}

// ControlName returns the "<NAME>" mnemonic of a control rune, or "" if r
// has none.
func ControlName(r rune) string {
	switch {
	case r >= 0 && int(r) < len(c0Names):
		return "<" + c0Names[r] + ">"
	case r == ' ':
		return "<SP>"
	case r == 0x7f:
		return "<DEL>"
	}
	return ""
}

// CaretForm computes the ^-escaped printable form of a C0 control rune, or
// "" for any other rune.
func CaretForm(r rune) string {
	if (r >= 0 && r < 0x20) || r == 0x7f {
		return "^" + string(r^0x40)
	}
	return ""
}

var errInvalidRune = errors.New(`rune literal must be "^X" "<NAME>" or 'X'`)

// UnquoteRune parses a character literal token: a quoted Go character like
// 'a' or '\n', a mnemonic like <ESC> (in any case), or a caret form like ^[.
func UnquoteRune(token string) (rune, error) {
	if len(token) > 1 && (token[0] == '<' || token[0] == '^') {
		if r, defined := controlWords[strings.ToUpper(token)]; defined {
			return r, nil
		}
		return 0, errInvalidRune
	}

	if len(token) < 3 || token[0] != '\'' || token[len(token)-1] != '\'' {
		return 0, errInvalidRune
	}
	value, _, tail, err := strconv.UnquoteChar(token[1:len(token)-1], '\'')
	if err != nil {
		return 0, err
	}
	if tail != "" {
		return 0, errInvalidRune
	}
	return value, nil
}
