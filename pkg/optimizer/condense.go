package optimizer

import (
	"github.com/chazu/unacpp/pkg/ir"
	"github.com/chazu/unacpp/pkg/numeric"
)

// accumulator is the running algebraic state of a math-condensation scan:
// it represents the composed transform val -> ((val-sub)/div)*mul + add
// that the arithmetic instructions seen so far in the current run are
// equivalent to.
type accumulator struct {
	numbers numeric.Factory

	sub numeric.Value
	add numeric.Value
	mul numeric.Value

	divActive bool
	div       numeric.Value
	divMode   ir.DivMode
}

func newAccumulator(numbers numeric.Factory) *accumulator {
	return &accumulator{
		numbers: numbers,
		sub:     numbers.Zero(),
		add:     numbers.Zero(),
		mul:     numbers.FromUint64(1),
	}
}

func (a *accumulator) isIdentity() bool {
	return a.sub.IsZero() && a.add.IsZero() && numeric.Equal(a.mul, a.numbers.FromUint64(1)) && !a.divActive
}

// flush appends the instructions currently represented by the accumulator,
// in canonical order sub -> div -> mul -> add, and resets it to identity.
func (a *accumulator) flush(out []ir.Instruction) []ir.Instruction {
	if !a.sub.IsZero() {
		out = append(out, ir.Sub(a.sub))
	}
	if a.divActive {
		out = append(out, ir.Div(a.div, a.divMode))
	}
	if !numeric.Equal(a.mul, a.numbers.FromUint64(1)) {
		out = append(out, ir.Mul(a.mul))
	}
	if !a.add.IsZero() {
		out = append(out, ir.Add(a.add))
	}
	a.reset()
	return out
}

func (a *accumulator) reset() {
	a.sub = a.numbers.Zero()
	a.add = a.numbers.Zero()
	a.mul = a.numbers.FromUint64(1)
	a.divActive = false
	a.div = nil
}

func (a *accumulator) applyAdd(n numeric.Value) []ir.Instruction {
	var out []ir.Instruction
	if !a.sub.IsZero() {
		out = a.flush(out)
	}
	a.add = a.add.Add(n)
	return out
}

func (a *accumulator) applySub(n numeric.Value) []ir.Instruction {
	var out []ir.Instruction
	if a.add.Cmp(n) >= 0 {
		a.add, _ = a.add.Sub(n)
		return out
	}

	remainder, _ := n.Sub(a.add)
	a.add = a.numbers.Zero()

	// Only mul/div need flushing here: a pending sub from before any
	// mul/div activated is still in the same pre-scaling position as this
	// new subtraction, so it accumulates instead of being re-emitted. Once
	// mul/div are active, flushSubDiv already cleared sub when they first
	// activated, so sub is already zero here either way.
	if a.divActive {
		out = append(out, ir.Div(a.div, a.divMode))
		a.divActive = false
		a.div = nil
	}
	if !numeric.Equal(a.mul, a.numbers.FromUint64(1)) {
		out = append(out, ir.Mul(a.mul))
		a.mul = a.numbers.FromUint64(1)
	}

	a.sub = a.sub.Add(remainder)
	return out
}

// flushSubDiv emits the sub and div accumulators (in canonical order)
// without touching mul or add; callers that need mul/add flushed too call
// flush instead.
func (a *accumulator) flushSubDiv(out []ir.Instruction) []ir.Instruction {
	if !a.sub.IsZero() {
		out = append(out, ir.Sub(a.sub))
		a.sub = a.numbers.Zero()
	}
	if a.divActive {
		out = append(out, ir.Div(a.div, a.divMode))
		a.divActive = false
		a.div = nil
	}
	return out
}

func (a *accumulator) applyMul(n numeric.Value) []ir.Instruction {
	var out []ir.Instruction

	if n.IsZero() {
		out = a.flushSubDiv(out)
		out = append(out, ir.Mul(a.numbers.Zero()))
		a.reset()
		return out
	}

	// sub/div flush because they apply before this multiply; mul and add
	// keep accumulating (multiplied by n) since consecutive Muls combine
	// algebraically without affecting failure semantics.
	out = a.flushSubDiv(out)
	a.mul = a.mul.Mul(n)
	a.add = a.add.Mul(n)
	return out
}

func (a *accumulator) applyDiv(n numeric.Value, mode ir.DivMode) []ir.Instruction {
	var out []ir.Instruction

	needsFullFlush := !numeric.Equal(a.mul, a.numbers.FromUint64(1)) || !a.add.IsZero()
	needsModeFlush := a.divActive && a.divMode != mode

	if needsFullFlush || needsModeFlush {
		out = a.flush(out)
	}

	if !a.divActive {
		out = a.flushSubDiv(out)
		a.divActive = true
		a.divMode = mode
		a.div = n
		return out
	}

	a.div = a.div.Mul(n)
	return out
}

// condenseBranch runs the accumulator over one branch's instructions,
// folding consecutive Add/Sub/Mul/Div runs and passing every other
// instruction through untouched.
func condenseBranch(branch ir.Branch, numbers numeric.Factory) ir.Branch {
	acc := newAccumulator(numbers)
	var out []ir.Instruction

	for _, inst := range branch.Instructions {
		switch inst.Kind {
		case ir.KindAdd:
			out = append(out, acc.applyAdd(inst.N)...)
		case ir.KindSub:
			out = append(out, acc.applySub(inst.N)...)
		case ir.KindMul:
			out = append(out, acc.applyMul(inst.N)...)
		case ir.KindDiv:
			out = append(out, acc.applyDiv(inst.N, inst.Mode)...)
		default:
			if !acc.isIdentity() {
				out = acc.flush(out)
			}
			out = append(out, inst)
		}
	}

	if !acc.isIdentity() {
		out = acc.flush(out)
	}

	return ir.NewBranch(out)
}

func condenseProgram(program ir.Program, numbers numeric.Factory) ir.Program {
	branches := make([]ir.Branch, len(program.Branches))
	for i, branch := range program.Branches {
		branches[i] = condenseBranch(branch, numbers)
	}
	return ir.NewProgram(branches)
}

// condenseAll runs math condensation over every program in the map.
func condenseAll(programs ir.ProgramMap, numbers numeric.Factory) ir.ProgramMap {
	out := make(ir.ProgramMap, len(programs))
	for name, prog := range programs {
		out[name] = condenseProgram(prog, numbers)
	}
	return out
}
