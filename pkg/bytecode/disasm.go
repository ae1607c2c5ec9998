package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble returns a human-readable listing of every program in the
// module, in the same order they were compiled (entry point first).
func (m *Module) Disassemble() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; entry offset %d\n", m.EntryOffset))
	sb.WriteString(m.describeConstants())
	sb.WriteString("\n; Code:\n")

	for _, label := range m.orderedLabels() {
		sb.WriteString(fmt.Sprintf("%s:\n", label.name))
		end := label.end
		offset := label.start
		for offset < end {
			line, instrLen := m.disassembleInstruction(offset)
			sb.WriteString(fmt.Sprintf("  %04X  %s\n", offset, line))
			offset += uint32(instrLen)
		}
	}

	return sb.String()
}

type labelRange struct {
	name  string
	start uint32
	end   uint32
}

// orderedLabels sorts the module's name->offset table by offset so the
// listing reads top to bottom, and derives each label's end from the next
// label's start (or the end of Code for the last one).
func (m *Module) orderedLabels() []labelRange {
	names := make([]string, 0, len(m.Offsets))
	for name := range m.Offsets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return m.Offsets[names[i]] < m.Offsets[names[j]] })

	labels := make([]labelRange, len(names))
	for i, name := range names {
		labels[i] = labelRange{name: name, start: m.Offsets[name]}
	}
	for i := range labels {
		if i+1 < len(labels) {
			labels[i].end = labels[i+1].start
		} else {
			labels[i].end = uint32(len(m.Code))
		}
	}
	return labels
}

// disassembleInstruction renders the instruction at offset and returns its
// encoded length.
func (m *Module) disassembleInstruction(offset uint32) (string, int) {
	op := Opcode(m.Code[offset])
	info := GetOpcodeInfo(op)

	switch op {
	case OpAdd, OpSub, OpMult, OpDivFloor, OpDivFail, OpEqual:
		idx := m.readU16(offset + 1)
		return fmt.Sprintf("%-16s %s  ; const[%d]", info.Name, m.Constant(idx).String(), idx), op.InstructionLen()
	case OpModEqual:
		rem := m.readU16(offset + 1)
		mod := m.readU16(offset + 3)
		return fmt.Sprintf("%-16s %s %s  ; const[%d] const[%d]", info.Name, m.Constant(rem).String(), m.Constant(mod).String(), rem, mod), op.InstructionLen()
	case OpCall, OpTailCall, OpJumpOnFailure:
		addr := m.readAddr(offset + 1)
		return fmt.Sprintf("%-16s %d", info.Name, addr), op.InstructionLen()
	default:
		return info.Name, op.InstructionLen()
	}
}
