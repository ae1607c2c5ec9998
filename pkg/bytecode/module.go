package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/chazu/unacpp/pkg/numeric"
)

// Module is the fundamental compiled unit: a single flat code section
// shared by every program in the source ProgramMap, plus the constant
// pool their arithmetic operands were interned into. There is exactly one
// Module per compiled source file - FuncCall addresses are absolute
// offsets into the same Code slice, not chunk-relative, so cross-function
// jumps need no indirection table at run time.
type Module struct {
	// Code is the full instruction stream. EntryOffset is always 0: the
	// compiler emits the entry program first.
	Code []byte

	// Constants holds every distinct arithmetic operand, in first-use
	// order; OpAdd/OpSub/... reference it by u16 index.
	Constants []numeric.Value

	EntryOffset uint32

	// Offsets records each program's start offset by name, for the
	// disassembler and for tests; the VM itself never looks a name up at
	// run time, it only ever follows already-patched addresses.
	Offsets map[string]uint32
}

// NewModule returns an empty Module ready for the compiler to emit into.
func NewModule() *Module {
	return &Module{
		Code:    make([]byte, 0, 64),
		Offsets: make(map[string]uint32),
	}
}

// AddConstant interns n into the constant pool, returning its index.
// Equal values already present are reused.
func (m *Module) AddConstant(n numeric.Value) uint16 {
	for i, existing := range m.Constants {
		if numeric.Equal(existing, n) {
			return uint16(i)
		}
	}
	idx := uint16(len(m.Constants))
	m.Constants = append(m.Constants, n)
	return idx
}

// Constant returns the constant at index idx.
func (m *Module) Constant(idx uint16) numeric.Value {
	return m.Constants[idx]
}

// emit appends a bare opcode (no operands) and returns its offset.
func (m *Module) emit(op Opcode) uint32 {
	offset := uint32(len(m.Code))
	m.Code = append(m.Code, byte(op))
	return offset
}

// emitU16 appends op followed by a big-endian u16 operand.
func (m *Module) emitU16(op Opcode, operand uint16) uint32 {
	offset := uint32(len(m.Code))
	m.Code = append(m.Code, byte(op))
	m.Code = binary.BigEndian.AppendUint16(m.Code, operand)
	return offset
}

// emitU16Pair appends op followed by two big-endian u16 operands.
func (m *Module) emitU16Pair(op Opcode, a, b uint16) uint32 {
	offset := uint32(len(m.Code))
	m.Code = append(m.Code, byte(op))
	m.Code = binary.BigEndian.AppendUint16(m.Code, a)
	m.Code = binary.BigEndian.AppendUint16(m.Code, b)
	return offset
}

// emitAddr appends op followed by a placeholder big-endian u32 address and
// returns the offset of the placeholder itself (not the opcode), so the
// caller can patch it later with patchAddr.
func (m *Module) emitAddr(op Opcode, addr uint32) uint32 {
	m.Code = append(m.Code, byte(op))
	placeholder := uint32(len(m.Code))
	m.Code = binary.BigEndian.AppendUint32(m.Code, addr)
	return placeholder
}

// patchAddr overwrites the 4-byte address at placeholder with addr.
func (m *Module) patchAddr(placeholder uint32, addr uint32) {
	binary.BigEndian.PutUint32(m.Code[placeholder:placeholder+4], addr)
}

func (m *Module) readU16(offset uint32) uint16 {
	return binary.BigEndian.Uint16(m.Code[offset : offset+2])
}

func (m *Module) readAddr(offset uint32) uint32 {
	return binary.BigEndian.Uint32(m.Code[offset : offset+4])
}

// String renders the module as a disassembly listing.
func (m *Module) String() string {
	return m.Disassemble()
}

// describeConstants is a small helper shared by the disassembler to format
// the pool header.
func (m *Module) describeConstants() string {
	if len(m.Constants) == 0 {
		return ""
	}
	out := "; Constants:\n"
	for i, c := range m.Constants {
		out += fmt.Sprintf(";   [%3d] %s\n", i, c.String())
	}
	return out
}
