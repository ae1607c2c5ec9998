package bytecode

import (
	"fmt"

	"github.com/chazu/unacpp/pkg/ir"
	"github.com/chazu/unacpp/pkg/numeric"
)

// compiler holds the mutable state of a single compilation: the module
// being built, the source programs, and the can-fail memoization table.
type compiler struct {
	module  *Module
	numbers numeric.Factory

	programs ir.ProgramMap

	canFailCache map[string]bool
	visiting     map[string]bool

	unresolved []unresolvedCall
}

type unresolvedCall struct {
	callee      string
	placeholder uint32
}

// Compile lowers the optimized programs into a Module whose entry point is
// the program named entry. Compile does not run the optimizer itself;
// callers are expected to have already called optimizer.Optimize.
func Compile(programs ir.ProgramMap, entry string, numbers numeric.Factory) (*Module, error) {
	if _, ok := programs[entry]; !ok {
		return nil, fmt.Errorf("bytecode: unknown entry point %q", entry)
	}

	c := &compiler{
		module:       NewModule(),
		numbers:      numbers,
		programs:     programs,
		canFailCache: make(map[string]bool),
		visiting:     make(map[string]bool),
	}

	order := append([]string{entry}, withoutName(programs.SortedNames(), entry)...)
	for _, name := range order {
		c.module.Offsets[name] = uint32(len(c.module.Code))
		c.emitProgram(name, c.programs[name])
	}

	c.module.EntryOffset = c.module.Offsets[entry]

	for _, ref := range c.unresolved {
		addr, ok := c.module.Offsets[ref.callee]
		if !ok {
			return nil, fmt.Errorf("bytecode: call to undefined program %q", ref.callee)
		}
		c.module.patchAddr(ref.placeholder, addr)
	}

	return c.module, nil
}

func withoutName(names []string, exclude string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != exclude {
			out = append(out, n)
		}
	}
	return out
}

// canFail decides whether calling name can ever leave the VM's current
// value failed. It is memoized and guards against recursive definitions by
// tentatively assuming "can fail" while a name is on the call stack being
// analyzed; treating an in-progress cycle as can-fail is always a safe
// over-approximation, so no re-analysis is needed after the cycle
// resolves.
func (c *compiler) canFail(name string) bool {
	if v, ok := c.canFailCache[name]; ok {
		return v
	}
	if c.visiting[name] {
		return true
	}

	c.visiting[name] = true
	anySafeBranch := false
	for _, branch := range c.programs[name].Branches {
		if !c.branchCanFail(branch) {
			anySafeBranch = true
			break
		}
	}
	delete(c.visiting, name)

	result := !anySafeBranch
	c.canFailCache[name] = result
	return result
}

func (c *compiler) branchCanFail(branch ir.Branch) bool {
	for _, inst := range branch.Instructions {
		if inst.Kind == ir.KindFuncCall {
			if c.canFail(inst.Name) {
				return true
			}
			continue
		}
		if inst.CanFailPrimitive() {
			return true
		}
	}
	return false
}

func (c *compiler) emitProgram(name string, program ir.Program) {
	var pending []uint32

	for i, branch := range program.Branches {
		isLast := i == len(program.Branches)-1
		branchStart := uint32(len(c.module.Code))

		for _, ph := range pending {
			c.module.patchAddr(ph, branchStart)
		}

		pending = c.emitBranch(branch, isLast)
	}
}

// emitBranch emits one branch's instructions and its trailing Ret (unless
// the branch ended in a tail call), returning the placeholder offsets of
// any JumpOnFailure instructions this branch emitted - callers patch these
// to the next branch's start offset once it is known.
func (c *compiler) emitBranch(branch ir.Branch, isLastBranch bool) []uint32 {
	var pending []uint32
	endedInTailCall := false

	insts := branch.Instructions
	for idx, inst := range insts {
		isLastInst := idx == len(insts)-1
		endedInTailCall = false

		failing := false

		switch inst.Kind {
		case ir.KindAdd:
			if isOneInst(inst.N, c.numbers) {
				c.module.emit(OpInc)
			} else {
				c.module.emitU16(OpAdd, c.module.AddConstant(inst.N))
			}
		case ir.KindSub:
			failing = true
			if isOneInst(inst.N, c.numbers) {
				c.module.emit(OpDec)
			} else {
				c.module.emitU16(OpSub, c.module.AddConstant(inst.N))
			}
		case ir.KindMul:
			c.module.emitU16(OpMult, c.module.AddConstant(inst.N))
		case ir.KindDiv:
			if inst.Mode == ir.DivFail {
				failing = true
				c.module.emitU16(OpDivFail, c.module.AddConstant(inst.N))
			} else {
				c.module.emitU16(OpDivFloor, c.module.AddConstant(inst.N))
			}
		case ir.KindEqual:
			failing = true
			c.module.emitU16(OpEqual, c.module.AddConstant(inst.N))
		case ir.KindModEqual:
			failing = true
			c.module.emitU16Pair(OpModEqual, c.module.AddConstant(inst.Rem), c.module.AddConstant(inst.Mod))
		case ir.KindNot:
			c.module.emit(OpNot)
		case ir.KindDebugPrint:
			c.module.emit(OpPrint)
		case ir.KindFuncCall:
			calleeCanFail := c.canFail(inst.Name)
			useTailCall := isLastInst && (!calleeCanFail || isLastBranch)
			if useTailCall {
				ph := c.module.emitAddr(OpTailCall, 0)
				c.unresolved = append(c.unresolved, unresolvedCall{callee: inst.Name, placeholder: ph})
				endedInTailCall = true
			} else {
				ph := c.module.emitAddr(OpCall, 0)
				c.unresolved = append(c.unresolved, unresolvedCall{callee: inst.Name, placeholder: ph})
				failing = calleeCanFail
			}
		}

		if !failing || endedInTailCall {
			continue
		}

		switch {
		case isLastInst && isLastBranch:
			// Elided: the branch's trailing Ret propagates the failure.
		case isLastBranch:
			c.module.emit(OpRetOnFailure)
		default:
			ph := c.module.emitAddr(OpJumpOnFailure, 0)
			pending = append(pending, ph)
		}
	}

	if !endedInTailCall {
		c.module.emit(OpRet)
	}

	return pending
}

func isOneInst(n numeric.Value, numbers numeric.Factory) bool {
	return n.Cmp(numbers.FromUint64(1)) == 0
}
