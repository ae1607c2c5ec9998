package optimizer

import "github.com/chazu/unacpp/pkg/ir"

// canInline reports whether a program is safe to splice directly into its
// call sites: exactly one branch (so there is nothing to backtrack into)
// and no FuncCall instruction (so inlining it can never leave a dangling
// reference to a name that inlining later removes).
func canInline(program ir.Program) bool {
	if len(program.Branches) != 1 {
		return false
	}
	for _, inst := range program.Branches[0].Instructions {
		if inst.Kind == ir.KindFuncCall {
			return false
		}
	}
	return true
}

// inlineBranch splices every FuncCall to a name in inlinable directly into
// insts, recursively. Reports whether any FuncCall was actually spliced.
func inlineBranch(branch ir.Branch, inlinable ir.ProgramMap) (ir.Branch, bool) {
	var out []ir.Instruction
	spliced := false

	for _, inst := range branch.Instructions {
		if inst.Kind != ir.KindFuncCall {
			out = append(out, inst)
			continue
		}
		target, ok := inlinable[inst.Name]
		if !ok {
			out = append(out, inst)
			continue
		}
		out = append(out, target.Branches[0].Instructions...)
		spliced = true
	}

	return ir.NewBranch(out), spliced
}

func inlineProgram(program ir.Program, inlinable ir.ProgramMap) (ir.Program, bool) {
	branches := make([]ir.Branch, len(program.Branches))
	spliced := false
	for i, branch := range program.Branches {
		rewritten, didSplice := inlineBranch(branch, inlinable)
		branches[i] = rewritten
		spliced = spliced || didSplice
	}
	return ir.NewProgram(branches), spliced
}

// inlinePrograms repeatedly pulls call-free single-branch programs out of
// the map and splices them into every remaining call site, stopping when no
// further program qualifies. entry is kept addressable under its own name
// throughout: it is never removed from the returned map, even if it would
// otherwise qualify for inlining, so the compiler can always find the VM's
// entry point by name. Returns whether any FuncCall was actually spliced
// this round - not whether any program merely qualified as inlinable, since
// trivial call-free programs (the "+"/"-"/"!" primitives) always qualify and
// would otherwise keep the caller's fixed-point loop from ever terminating.
func inlinePrograms(programs ir.ProgramMap, entry string) (ir.ProgramMap, bool) {
	optimized := cloneMap(programs)
	inlinable := ir.ProgramMap{}
	anySpliced := false

	for {
		progressed := false

		for _, name := range optimized.SortedNames() {
			if name == entry {
				continue
			}
			if canInline(optimized[name]) {
				inlinable[name] = optimized[name]
				delete(optimized, name)
				progressed = true
			}
		}

		if !progressed {
			break
		}

		for name, prog := range optimized {
			rewritten, spliced := inlineProgram(prog, inlinable)
			optimized[name] = rewritten
			anySpliced = anySpliced || spliced
		}
	}

	for name, prog := range inlinable {
		optimized[name] = prog
	}

	return optimized, anySpliced
}
