package main

// symbolIndex maps case folded builtin names to their opcodes, in table order,
// so that a builtin fork can resolve a name without scanning the whole table.
type symbolIndex struct {
	symbols map[string][]opcode
}

func indexBuiltins(table []builtin) (idx symbolIndex) {
	idx.symbols = make(map[string][]opcode, len(table))
	for code, bi := range table {
		if bi.name == "" {
			continue
		}
		key := foldName([]byte(bi.name))
		idx.symbols[key] = append(idx.symbols[key], opcode(code))
	}
	return idx
}

func foldName(name []byte) string {
	buf := make([]byte, len(name))
	for i, c := range name {
		buf[i] = upper(c)
	}
	return string(buf)
}

// lookup returns the first builtin named name in vocabulary voc.
func (idx symbolIndex) lookup(name []byte, voc int) (opcode, bool) {
	for _, code := range idx.symbols[foldName(name)] {
		if builtinTable[code].voc == voc {
			return code, true
		}
	}
	return 0, false
}
