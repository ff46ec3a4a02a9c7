package mem

import (
	"encoding/binary"
	"math"
)

// CellSize is the width of one cell in bytes.
const CellSize = 8

// Arena implements a flat, byte addressed memory.
// Address 0 is reserved as the null address; every access to it faults.
// Cells are stored as little-endian 64-bit integers.
type Arena struct {
	buf []byte
}

// NewArena allocates a zeroed arena of size bytes.
func NewArena(size int) *Arena {
	return &Arena{buf: make([]byte, size)}
}

// Size returns the number of addressable bytes.
func (m *Arena) Size() int { return len(m.buf) }

// Cell loads a cell from addr.
func (m *Arena) Cell(addr int) (int, error) {
	if err := m.check(addr, CellSize, "load"); err != nil {
		return 0, err
	}
	return int(int64(binary.LittleEndian.Uint64(m.buf[addr:]))), nil
}

// SetCell stores a cell at addr.
func (m *Arena) SetCell(addr, val int) error {
	if err := m.check(addr, CellSize, "stor"); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.buf[addr:], uint64(int64(val)))
	return nil
}

// Byte loads one unsigned byte.
func (m *Arena) Byte(addr int) (int, error) {
	if err := m.check(addr, 1, "load"); err != nil {
		return 0, err
	}
	return int(m.buf[addr]), nil
}

// SetByte stores the low byte of val.
func (m *Arena) SetByte(addr, val int) error {
	if err := m.check(addr, 1, "stor"); err != nil {
		return err
	}
	m.buf[addr] = byte(val)
	return nil
}

// Uint16 loads an unsigned 16-bit value.
func (m *Arena) Uint16(addr int) (int, error) {
	if err := m.check(addr, 2, "load"); err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint16(m.buf[addr:])), nil
}

// Int16 loads a sign extended 16-bit value.
func (m *Arena) Int16(addr int) (int, error) {
	v, err := m.Uint16(addr)
	return int(int16(v)), err
}

// SetUint16 stores the low 16 bits of val.
func (m *Arena) SetUint16(addr, val int) error {
	if err := m.check(addr, 2, "stor"); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.buf[addr:], uint16(val))
	return nil
}

// Uint32 loads an unsigned 32-bit value.
func (m *Arena) Uint32(addr int) (int, error) {
	if err := m.check(addr, 4, "load"); err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(m.buf[addr:])), nil
}

// Int32 loads a sign extended 32-bit value.
func (m *Arena) Int32(addr int) (int, error) {
	v, err := m.Uint32(addr)
	return int(int32(uint32(v))), err
}

// SetUint32 stores the low 32 bits of val.
func (m *Arena) SetUint32(addr, val int) error {
	if err := m.check(addr, 4, "stor"); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.buf[addr:], uint32(val))
	return nil
}

// Float32 loads a single precision float.
func (m *Arena) Float32(addr int) (float32, error) {
	v, err := m.Uint32(addr)
	return math.Float32frombits(uint32(v)), err
}

// SetFloat32 stores a single precision float.
func (m *Arena) SetFloat32(addr int, f float32) error {
	return m.SetUint32(addr, int(math.Float32bits(f)))
}

// Bytes returns a view of n bytes starting at addr; writes through the
// returned slice modify the arena.
func (m *Arena) Bytes(addr, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if err := m.check(addr, n, "access"); err != nil {
		return nil, err
	}
	return m.buf[addr : addr+n : addr+n], nil
}

// Move copies n bytes from src to dst, handling overlap.
func (m *Arena) Move(dst, src, n int) error {
	if n <= 0 {
		return nil
	}
	if err := m.check(src, n, "load"); err != nil {
		return err
	}
	if err := m.check(dst, n, "stor"); err != nil {
		return err
	}
	copy(m.buf[dst:dst+n], m.buf[src:src+n])
	return nil
}

// Fill sets n bytes at addr to b.
func (m *Arena) Fill(addr, n int, b byte) error {
	if n <= 0 {
		return nil
	}
	if err := m.check(addr, n, "stor"); err != nil {
		return err
	}
	for i := addr; i < addr+n; i++ {
		m.buf[i] = b
	}
	return nil
}
