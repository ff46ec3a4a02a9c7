package mem

import "fmt"

// BoundsError indicates that a memory operation, like load or store, fell
// outside of the arena.
type BoundsError struct {
	Addr int
	Size int
	Op   string
}

func (be BoundsError) Error() string {
	if be.Size > 1 {
		return fmt.Sprintf("memory %v out of bounds @%v+%v", be.Op, be.Addr, be.Size)
	}
	return fmt.Sprintf("memory %v out of bounds @%v", be.Op, be.Addr)
}

func (m *Arena) check(addr, size int, op string) error {
	if addr <= 0 || size < 0 || addr+size > len(m.buf) || addr+size < addr {
		return BoundsError{addr, size, op}
	}
	return nil
}
