package mem

// Dump returns a copy of n bytes from addr for testing, ignoring bounds.
func (m *Arena) Dump(addr, n int) []byte {
	if addr < 0 {
		addr = 0
	}
	if end := addr + n; end > len(m.buf) {
		n = len(m.buf) - addr
	}
	return append([]byte(nil), m.buf[addr:addr+n]...)
}
