package optimizer

import (
	"github.com/chazu/unacpp/pkg/ir"
	"github.com/chazu/unacpp/pkg/numeric"
)

// simplifyAll tries to recognize the whole shape of each program as one of
// five closed-form primitives and, on a match, replaces the program with
// the single corresponding instruction. Returns whether any program
// changed.
func simplifyAll(programs ir.ProgramMap, numbers numeric.Factory) (ir.ProgramMap, bool) {
	out := make(ir.ProgramMap, len(programs))
	changed := false

	for name, prog := range programs {
		if simplified, ok := simplify(name, prog, numbers); ok {
			out[name] = ir.NewProgram([]ir.Branch{ir.NewBranch([]ir.Instruction{simplified})})
			changed = true
			continue
		}
		out[name] = prog
	}

	return out, changed
}

func simplify(name string, program ir.Program, numbers numeric.Factory) (ir.Instruction, bool) {
	if inst, ok := simplifyMultiply(name, program, numbers); ok {
		return inst, true
	}
	if inst, ok := simplifyDivide(name, program, numbers); ok {
		return inst, true
	}
	if inst, ok := simplifyModEqual(name, program); ok {
		return inst, true
	}
	if inst, ok := simplifyEqualZero(program, numbers); ok {
		return inst, true
	}
	if inst, ok := simplifyNot(program, numbers); ok {
		return inst, true
	}
	return ir.Instruction{}, false
}

func isEmpty(branch ir.Branch) bool {
	return len(branch.Instructions) == 0
}

// selfCall reports whether inst is a FuncCall back to name.
func selfCall(inst ir.Instruction, name string) bool {
	return inst.Kind == ir.KindFuncCall && inst.Name == name
}

func isOne(n numeric.Value, numbers numeric.Factory) bool {
	return n.Cmp(numbers.FromUint64(1)) == 0
}

func isZero(n numeric.Value, numbers numeric.Factory) bool {
	return n.Cmp(numbers.Zero()) == 0
}

// simplifyMultiply recognizes:
//
//	branch 1 = [Sub(1), FuncCall(f), Add(k)]  or  [Sub(1), FuncCall(f)] (k=0)
//	branch 2 = []
//
// -> Mul(k)
func simplifyMultiply(name string, program ir.Program, numbers numeric.Factory) (ir.Instruction, bool) {
	if len(program.Branches) != 2 || !isEmpty(program.Branches[1]) {
		return ir.Instruction{}, false
	}

	insts := program.Branches[0].Instructions
	if len(insts) < 2 {
		return ir.Instruction{}, false
	}
	if insts[0].Kind != ir.KindSub || !isOne(insts[0].N, numbers) {
		return ir.Instruction{}, false
	}
	if !selfCall(insts[1], name) {
		return ir.Instruction{}, false
	}

	switch len(insts) {
	case 2:
		return ir.Mul(numbers.Zero()), true
	case 3:
		if insts[2].Kind != ir.KindAdd {
			return ir.Instruction{}, false
		}
		return ir.Mul(insts[2].N), true
	default:
		return ir.Instruction{}, false
	}
}

// simplifyDivide recognizes:
//
//	branch 1 = [Sub(k), FuncCall(f), Add(1)]
//	branch 2 = [Mul(0)]           -> Div(k, DivFloor)
//	branch 2 = [Equal(0)]         -> Div(k, DivFail)
func simplifyDivide(name string, program ir.Program, numbers numeric.Factory) (ir.Instruction, bool) {
	if len(program.Branches) != 2 {
		return ir.Instruction{}, false
	}

	insts := program.Branches[0].Instructions
	if len(insts) != 3 {
		return ir.Instruction{}, false
	}
	if insts[0].Kind != ir.KindSub {
		return ir.Instruction{}, false
	}
	if !selfCall(insts[1], name) {
		return ir.Instruction{}, false
	}
	if insts[2].Kind != ir.KindAdd || !isOne(insts[2].N, numbers) {
		return ir.Instruction{}, false
	}

	fallback := program.Branches[1].Instructions
	if len(fallback) != 1 {
		return ir.Instruction{}, false
	}

	switch {
	case fallback[0].Kind == ir.KindMul && isZero(fallback[0].N, numbers):
		return ir.Div(insts[0].N, ir.DivFloor), true
	case fallback[0].Kind == ir.KindEqual && isZero(fallback[0].N, numbers):
		return ir.Div(insts[0].N, ir.DivFail), true
	default:
		return ir.Instruction{}, false
	}
}

// simplifyModEqual recognizes:
//
//	branch 1 = [Sub(mod), FuncCall(f), Add(mod)]
//	branch 2 = [Equal(rem)]
//
// -> ModEqual(rem, mod)
func simplifyModEqual(name string, program ir.Program) (ir.Instruction, bool) {
	if len(program.Branches) != 2 {
		return ir.Instruction{}, false
	}

	insts := program.Branches[0].Instructions
	if len(insts) != 3 {
		return ir.Instruction{}, false
	}
	if insts[0].Kind != ir.KindSub {
		return ir.Instruction{}, false
	}
	if !selfCall(insts[1], name) {
		return ir.Instruction{}, false
	}
	if insts[2].Kind != ir.KindAdd || insts[2].N.Cmp(insts[0].N) != 0 {
		return ir.Instruction{}, false
	}

	fallback := program.Branches[1].Instructions
	if len(fallback) != 1 || fallback[0].Kind != ir.KindEqual {
		return ir.Instruction{}, false
	}

	return ir.ModEqual(fallback[0].N, insts[0].N), true
}

// simplifyEqualZero recognizes a single branch [Not, Sub(1)] -> Equal(0).
func simplifyEqualZero(program ir.Program, numbers numeric.Factory) (ir.Instruction, bool) {
	if len(program.Branches) != 1 {
		return ir.Instruction{}, false
	}
	insts := program.Branches[0].Instructions
	if len(insts) != 2 {
		return ir.Instruction{}, false
	}
	if insts[0].Kind != ir.KindNot {
		return ir.Instruction{}, false
	}
	if insts[1].Kind != ir.KindSub || !isOne(insts[1].N, numbers) {
		return ir.Instruction{}, false
	}
	return ir.Equal(numbers.Zero()), true
}

// simplifyNot recognizes:
//
//	branch 1 = [Sub(1), Mul(0)]
//	branch 2 = [Add(1)]
//
// -> Not
func simplifyNot(program ir.Program, numbers numeric.Factory) (ir.Instruction, bool) {
	if len(program.Branches) != 2 {
		return ir.Instruction{}, false
	}

	first := program.Branches[0].Instructions
	if len(first) != 2 || first[0].Kind != ir.KindSub || !isOne(first[0].N, numbers) {
		return ir.Instruction{}, false
	}
	if first[1].Kind != ir.KindMul || !isZero(first[1].N, numbers) {
		return ir.Instruction{}, false
	}

	second := program.Branches[1].Instructions
	if len(second) != 1 || second[0].Kind != ir.KindAdd || !isOne(second[0].N, numbers) {
		return ir.Instruction{}, false
	}

	return ir.Not(), true
}
