// Package ir defines the intermediate representation Unarian programs are
// parsed into and the optimizer and compiler operate on. A Program is an
// ordered list of alternative Branches; a Branch is an ordered list of
// Instructions executed left to right until one fails.
package ir

import (
	"sort"

	"github.com/chazu/unacpp/pkg/numeric"
)

// DivMode selects how Div behaves when the dividend does not divide evenly.
type DivMode int

const (
	// DivFloor truncates toward zero: val <- floor(val / n).
	DivFloor DivMode = iota
	// DivFail fails the instruction unless n evenly divides val.
	DivFail
)

func (m DivMode) String() string {
	if m == DivFail {
		return "fail"
	}
	return "floor"
}

// Kind tags which variant an Instruction holds.
type Kind int

const (
	KindAdd Kind = iota
	KindSub
	KindMul
	KindDiv
	KindEqual
	KindModEqual
	KindNot
	KindDebugPrint
	KindFuncCall
)

// Instruction is a tagged union over Unarian's primitive operations.
// Only one field group is meaningful per Kind; the zero value of the
// others is ignored.
type Instruction struct {
	Kind Kind

	// Add, Sub, Mul, Div, Equal operand.
	N numeric.Value

	// Div only.
	Mode DivMode

	// ModEqual only: val mod Mod == Rem.
	Rem numeric.Value
	Mod numeric.Value

	// FuncCall only.
	Name string
}

// Add builds an Add(n) instruction.
func Add(n numeric.Value) Instruction { return Instruction{Kind: KindAdd, N: n} }

// Sub builds a Sub(n) instruction.
func Sub(n numeric.Value) Instruction { return Instruction{Kind: KindSub, N: n} }

// Mul builds a Mul(n) instruction.
func Mul(n numeric.Value) Instruction { return Instruction{Kind: KindMul, N: n} }

// Div builds a Div(n, mode) instruction.
func Div(n numeric.Value, mode DivMode) Instruction {
	return Instruction{Kind: KindDiv, N: n, Mode: mode}
}

// Equal builds an Equal(n) instruction.
func Equal(n numeric.Value) Instruction { return Instruction{Kind: KindEqual, N: n} }

// ModEqual builds a ModEqual(rem, mod) instruction.
func ModEqual(rem, mod numeric.Value) Instruction {
	return Instruction{Kind: KindModEqual, Rem: rem, Mod: mod}
}

// Not builds a Not instruction.
func Not() Instruction { return Instruction{Kind: KindNot} }

// DebugPrint builds a DebugPrint instruction.
func DebugPrint() Instruction { return Instruction{Kind: KindDebugPrint} }

// Call builds a FuncCall instruction referencing name.
func Call(name string) Instruction { return Instruction{Kind: KindFuncCall, Name: name} }

// CanFailPrimitive reports whether this instruction, taken alone and without
// regard to what a FuncCall target does, can fail. FuncCall's failure
// depends on the target and is not decided here.
func (i Instruction) CanFailPrimitive() bool {
	switch i.Kind {
	case KindSub, KindEqual, KindModEqual:
		return true
	case KindDiv:
		return i.Mode == DivFail
	default:
		return false
	}
}

// Branch is an ordered sequence of instructions, tried as a whole; if any
// instruction in it fails, the branch as a whole fails and the enclosing
// Program tries its next branch (if any).
type Branch struct {
	Instructions []Instruction
}

// NewBranch builds a Branch from a slice of instructions.
func NewBranch(instructions []Instruction) Branch {
	return Branch{Instructions: instructions}
}

// Program is an ordered, non-empty list of alternative Branches.
type Program struct {
	Branches []Branch
}

// NewProgram builds a Program. It panics if branches is empty: every
// Program must have at least one branch by construction (the parser never
// produces an empty branch list; see pkg/parser).
func NewProgram(branches []Branch) Program {
	if len(branches) == 0 {
		panic("ir: program must have at least one branch")
	}
	return Program{Branches: branches}
}

// SingleInstruction reports whether the program is exactly one branch
// holding exactly one instruction, and returns it. Used by the optimizer's
// function-simplification pass to recognize already-simplified programs.
func (p Program) SingleInstruction() (Instruction, bool) {
	if len(p.Branches) != 1 || len(p.Branches[0].Instructions) != 1 {
		return Instruction{}, false
	}
	return p.Branches[0].Instructions[0], true
}

// ProgramMap maps function name to Program. Names are unique by
// construction; the parser rejects redefinitions.
type ProgramMap map[string]Program

// SortedNames returns the map's keys in ascending order, so compilation
// iterates programs deterministically regardless of Go's randomized map
// iteration order.
func (m ProgramMap) SortedNames() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
