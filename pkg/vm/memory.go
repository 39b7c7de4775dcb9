// Package vm implements the register-based virtual machine: flat
// byte-addressed memory, the register file and flags, and the
// fetch/decode/execute loop.
package vm

import (
	"encoding/binary"
	"fmt"
)

// OutOfBounds reports an access at or past the end of memory.
type OutOfBounds struct {
	Addr     uint64
	Capacity uint64
}

func (e OutOfBounds) Error() string {
	return fmt.Sprintf("invalid memory access: attempt to access `0x%x` when address must be less than `0x%x`", e.Addr, e.Capacity)
}

// Memory is a flat byte buffer of fixed capacity.
type Memory struct {
	bytes []byte
}

// NewMemory allocates a zeroed Memory of the given capacity.
func NewMemory(capacity uint64) *Memory {
	return &Memory{bytes: make([]byte, capacity)}
}

// Capacity returns the memory's fixed size in bytes.
func (m *Memory) Capacity() uint64 { return uint64(len(m.bytes)) }

// Get reads a single byte.
func (m *Memory) Get(addr uint64) (byte, error) {
	if addr >= m.Capacity() {
		return 0, OutOfBounds{Addr: addr, Capacity: m.Capacity()}
	}
	return m.bytes[addr], nil
}

// Set writes a single byte.
func (m *Memory) Set(addr uint64, v byte) error {
	if addr >= m.Capacity() {
		return OutOfBounds{Addr: addr, Capacity: m.Capacity()}
	}
	m.bytes[addr] = v
	return nil
}

// Slice returns the n bytes starting at addr.
func (m *Memory) Slice(addr uint64, n uint64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	end := addr + n
	if end > m.Capacity() || end < addr {
		return nil, OutOfBounds{Addr: addr + n - 1, Capacity: m.Capacity()}
	}
	return m.bytes[addr:end], nil
}

// SliceMut is Slice but returned as a writable view.
func (m *Memory) SliceMut(addr uint64, n uint64) ([]byte, error) {
	return m.Slice(addr, n)
}

// LoadImage copies data into memory starting at address 0. The image
// must fit within capacity.
func (m *Memory) LoadImage(data []byte) error {
	dst, err := m.SliceMut(0, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (m *Memory) readUint(addr uint64, width int) (uint64, error) {
	b, err := m.Slice(addr, uint64(width))
	if err != nil {
		return 0, err
	}
	var buf [8]byte
	copy(buf[:width], b)
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (m *Memory) writeUint(addr uint64, width int, v uint64) error {
	b, err := m.SliceMut(addr, uint64(width))
	if err != nil {
		return err
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	copy(b, buf[:width])
	return nil
}

// ReadU64 reads a little-endian 8-byte value.
func (m *Memory) ReadU64(addr uint64) (uint64, error) { return m.readUint(addr, 8) }

// WriteU64 writes a little-endian 8-byte value.
func (m *Memory) WriteU64(addr uint64, v uint64) error { return m.writeUint(addr, 8, v) }

// ReadWidth reads width (1, 2, 4, or 8) little-endian bytes,
// zero-extended to 64 bits.
func (m *Memory) ReadWidth(addr uint64, width int) (uint64, error) { return m.readUint(addr, width) }

// WriteWidth writes the low width bytes of v, little-endian.
func (m *Memory) WriteWidth(addr uint64, width int, v uint64) error {
	return m.writeUint(addr, width, v)
}

// SignExtend widens a width-byte little-endian value read as raw to
// its 64-bit signed interpretation, returned bit-reinterpreted as
// uint64.
func SignExtend(raw uint64, width int) uint64 {
	shift := uint(64 - width*8)
	return uint64(int64(raw<<shift) >> shift)
}
