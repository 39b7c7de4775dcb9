// Package exe defines the Executable container produced by the
// assembler and consumed by the VM, along with the binary envelope it
// is serialized to. The framing itself (magic, version, length
// prefixes) is an implementation detail outside the core's contract;
// only the round-trip needs to hold.
package exe

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	magic          = "WOLF"
	currentVersion = 1
)

// Executable is the in-memory result of a successful assemble: the
// code section bytes, the static section bytes, and the entry point
// (always 0 for this instruction set, carried explicitly so the
// format has room to grow).
type Executable struct {
	CodeBytes   []byte
	StaticBytes []byte
	EntryPoint  uint64
}

// Write serializes e to w as `MAGIC | version(1) | entry(8) |
// code_len(8) | code | static_len(8) | static`, all integers
// little-endian.
func (e Executable) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	if err := bw.WriteByte(currentVersion); err != nil {
		return err
	}
	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], e.EntryPoint)
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}
	if err := writeChunk(bw, e.CodeBytes); err != nil {
		return err
	}
	if err := writeChunk(bw, e.StaticBytes); err != nil {
		return err
	}
	return bw.Flush()
}

func writeChunk(w *bufio.Writer, b []byte) error {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// Read deserializes an Executable previously produced by Write.
func Read(r io.Reader) (Executable, error) {
	br := bufio.NewReader(r)

	gotMagic := make([]byte, len(magic))
	if _, err := io.ReadFull(br, gotMagic); err != nil {
		return Executable{}, fmt.Errorf("reading executable magic: %w", err)
	}
	if string(gotMagic) != magic {
		return Executable{}, fmt.Errorf("not a wolf executable (bad magic %q)", gotMagic)
	}

	version, err := br.ReadByte()
	if err != nil {
		return Executable{}, fmt.Errorf("reading executable version: %w", err)
	}
	if version != currentVersion {
		return Executable{}, fmt.Errorf("unsupported executable version %d", version)
	}

	var hdr [8]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return Executable{}, fmt.Errorf("reading entry point: %w", err)
	}
	entry := binary.LittleEndian.Uint64(hdr[:])

	code, err := readChunk(br)
	if err != nil {
		return Executable{}, fmt.Errorf("reading code section: %w", err)
	}
	static, err := readChunk(br)
	if err != nil {
		return Executable{}, fmt.Errorf("reading static section: %w", err)
	}

	return Executable{CodeBytes: code, StaticBytes: static, EntryPoint: entry}, nil
}

func readChunk(r io.Reader) ([]byte, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint64(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Image concatenates the code and static sections as they are laid
// out in the VM's address space: code first at offset 0, static
// immediately after.
func (e Executable) Image() []byte {
	out := make([]byte, 0, len(e.CodeBytes)+len(e.StaticBytes))
	out = append(out, e.CodeBytes...)
	out = append(out, e.StaticBytes...)
	return out
}
