package optimizer

import (
	"testing"

	"github.com/chazu/unacpp/pkg/bytecode"
	"github.com/chazu/unacpp/pkg/ir"
	"github.com/chazu/unacpp/pkg/numeric/bignum"
)

var numbers = bignum.NewFactory()

func TestInlineSplicesCallFreeProgram(t *testing.T) {
	programs := ir.ProgramMap{
		"twice": ir.NewProgram([]ir.Branch{ir.NewBranch([]ir.Instruction{
			ir.Add(numbers.FromUint64(1)),
			ir.Add(numbers.FromUint64(1)),
		})}),
		"main": ir.NewProgram([]ir.Branch{ir.NewBranch([]ir.Instruction{
			ir.Call("twice"),
		})}),
	}

	out, changed := inlinePrograms(programs, "main")
	if !changed {
		t.Fatalf("expected inlining to make progress")
	}

	main := out["main"]
	if len(main.Branches[0].Instructions) != 2 {
		t.Fatalf("expected twice to be spliced into main, got %+v", main)
	}
	for _, inst := range main.Branches[0].Instructions {
		if inst.Kind != ir.KindAdd {
			t.Fatalf("expected only Add instructions after inlining, got %+v", inst)
		}
	}
}

// TestInlineReachesFixedPointOnUncalledPrimitives guards against reporting
// "progress" just because a call-free single-branch program is rediscovered
// as inlinable: "+"/"-"/"!" are always inlinable but, once nothing else
// calls them, repeated inlining passes must stop reporting change or
// Optimize's fixed-point loop never terminates.
func TestInlineReachesFixedPointOnUncalledPrimitives(t *testing.T) {
	programs := ir.ProgramMap{
		"+":    ir.NewProgram([]ir.Branch{ir.NewBranch([]ir.Instruction{ir.Add(numbers.FromUint64(1))})}),
		"-":    ir.NewProgram([]ir.Branch{ir.NewBranch([]ir.Instruction{ir.Sub(numbers.FromUint64(1))})}),
		"!":    ir.NewProgram([]ir.Branch{ir.NewBranch(nil)}),
		"main": ir.NewProgram([]ir.Branch{ir.NewBranch([]ir.Instruction{ir.Call("+")})}),
	}

	first, changed := inlinePrograms(programs, "main")
	if !changed {
		t.Fatalf("expected the first pass to splice main's call to + into an Add")
	}
	if main := first["main"]; len(main.Branches[0].Instructions) != 1 || main.Branches[0].Instructions[0].Kind != ir.KindAdd {
		t.Fatalf("expected main's call to + to have been spliced away, got %+v", main)
	}

	_, changedAgain := inlinePrograms(first, "main")
	if changedAgain {
		t.Fatalf("expected a second pass over the same map to report no progress, since nothing calls the uncalled primitives anymore")
	}
}

func TestInlineNeverRemovesEntry(t *testing.T) {
	programs := ir.ProgramMap{
		"main": ir.NewProgram([]ir.Branch{ir.NewBranch([]ir.Instruction{
			ir.Add(numbers.FromUint64(1)),
		})}),
	}

	out, _ := inlinePrograms(programs, "main")
	if _, ok := out["main"]; !ok {
		t.Fatalf("entry program must remain addressable by name")
	}
}

func TestCondenseFoldsConsecutiveAdds(t *testing.T) {
	branch := ir.NewBranch([]ir.Instruction{
		ir.Add(numbers.FromUint64(1)),
		ir.Add(numbers.FromUint64(2)),
		ir.Add(numbers.FromUint64(3)),
	})

	folded := condenseBranch(branch, numbers)
	if len(folded.Instructions) != 1 {
		t.Fatalf("expected a single folded Add, got %+v", folded.Instructions)
	}
	if folded.Instructions[0].Kind != ir.KindAdd || folded.Instructions[0].N.Cmp(numbers.FromUint64(6)) != 0 {
		t.Fatalf("expected Add(6), got %+v", folded.Instructions[0])
	}
}

func TestCondenseSubCancelsAdd(t *testing.T) {
	branch := ir.NewBranch([]ir.Instruction{
		ir.Add(numbers.FromUint64(5)),
		ir.Sub(numbers.FromUint64(3)),
	})

	folded := condenseBranch(branch, numbers)
	if len(folded.Instructions) != 1 {
		t.Fatalf("expected a single folded Add, got %+v", folded.Instructions)
	}
	if folded.Instructions[0].Kind != ir.KindAdd || folded.Instructions[0].N.Cmp(numbers.FromUint64(2)) != 0 {
		t.Fatalf("expected Add(2), got %+v", folded.Instructions[0])
	}
}

func TestCondenseFoldsConsecutiveSubs(t *testing.T) {
	branch := ir.NewBranch([]ir.Instruction{
		ir.Sub(numbers.FromUint64(1)),
		ir.Sub(numbers.FromUint64(1)),
		ir.Call("f"),
	})

	folded := condenseBranch(branch, numbers)
	if len(folded.Instructions) != 2 {
		t.Fatalf("expected the two subs to fold into one, got %+v", folded.Instructions)
	}
	if folded.Instructions[0].Kind != ir.KindSub || folded.Instructions[0].N.Cmp(numbers.FromUint64(2)) != 0 {
		t.Fatalf("expected Sub(2), got %+v", folded.Instructions[0])
	}
	if folded.Instructions[1].Kind != ir.KindFuncCall {
		t.Fatalf("expected the call to survive untouched, got %+v", folded.Instructions[1])
	}
}

func TestCondenseFoldsConsecutiveMuls(t *testing.T) {
	branch := ir.NewBranch([]ir.Instruction{
		ir.Mul(numbers.FromUint64(2)),
		ir.Mul(numbers.FromUint64(3)),
	})

	folded := condenseBranch(branch, numbers)
	if len(folded.Instructions) != 1 {
		t.Fatalf("expected the two muls to fold into one, got %+v", folded.Instructions)
	}
	if folded.Instructions[0].Kind != ir.KindMul || folded.Instructions[0].N.Cmp(numbers.FromUint64(6)) != 0 {
		t.Fatalf("expected Mul(6), got %+v", folded.Instructions[0])
	}
}

func TestCondensePreservesNonArithmetic(t *testing.T) {
	branch := ir.NewBranch([]ir.Instruction{
		ir.Add(numbers.FromUint64(1)),
		ir.Call("f"),
		ir.Add(numbers.FromUint64(1)),
	})

	folded := condenseBranch(branch, numbers)
	if len(folded.Instructions) != 3 {
		t.Fatalf("expected the call to split the two Adds, got %+v", folded.Instructions)
	}
	if folded.Instructions[1].Kind != ir.KindFuncCall {
		t.Fatalf("expected middle instruction to remain a FuncCall, got %+v", folded.Instructions[1])
	}
}

func TestSimplifyRecognizesMultiply(t *testing.T) {
	programs := ir.ProgramMap{
		"double": ir.NewProgram([]ir.Branch{
			ir.NewBranch([]ir.Instruction{
				ir.Sub(numbers.FromUint64(1)),
				ir.Call("double"),
				ir.Add(numbers.FromUint64(2)),
			}),
			ir.NewBranch(nil),
		}),
	}

	out, changed := simplifyAll(programs, numbers)
	if !changed {
		t.Fatalf("expected the multiply pattern to be recognized")
	}
	inst, ok := out["double"].SingleInstruction()
	if !ok || inst.Kind != ir.KindMul || inst.N.Cmp(numbers.FromUint64(2)) != 0 {
		t.Fatalf("expected Mul(2), got %+v", out["double"])
	}
}

func TestSimplifyRecognizesDivideFail(t *testing.T) {
	programs := ir.ProgramMap{
		"halve": ir.NewProgram([]ir.Branch{
			ir.NewBranch([]ir.Instruction{
				ir.Sub(numbers.FromUint64(2)),
				ir.Call("halve"),
				ir.Add(numbers.FromUint64(1)),
			}),
			ir.NewBranch([]ir.Instruction{ir.Equal(numbers.Zero())}),
		}),
	}

	out, changed := simplifyAll(programs, numbers)
	if !changed {
		t.Fatalf("expected the divide pattern to be recognized")
	}
	inst, ok := out["halve"].SingleInstruction()
	if !ok || inst.Kind != ir.KindDiv || inst.Mode != ir.DivFail || inst.N.Cmp(numbers.FromUint64(2)) != 0 {
		t.Fatalf("expected Div(2, fail), got %+v", out["halve"])
	}
}

func TestSimplifyRecognizesNot(t *testing.T) {
	programs := ir.ProgramMap{
		"not": ir.NewProgram([]ir.Branch{
			ir.NewBranch([]ir.Instruction{ir.Sub(numbers.FromUint64(1)), ir.Mul(numbers.Zero())}),
			ir.NewBranch([]ir.Instruction{ir.Add(numbers.FromUint64(1))}),
		}),
	}

	out, changed := simplifyAll(programs, numbers)
	if !changed {
		t.Fatalf("expected the Not pattern to be recognized")
	}
	inst, ok := out["not"].SingleInstruction()
	if !ok || inst.Kind != ir.KindNot {
		t.Fatalf("expected Not, got %+v", out["not"])
	}
}

func TestOptimizeFixedPointOnMultiplyBySelf(t *testing.T) {
	programs := ir.ProgramMap{
		"double": ir.NewProgram([]ir.Branch{
			ir.NewBranch([]ir.Instruction{
				ir.Sub(numbers.FromUint64(1)),
				ir.Call("double"),
				ir.Add(numbers.FromUint64(2)),
			}),
			ir.NewBranch(nil),
		}),
		"main": ir.NewProgram([]ir.Branch{ir.NewBranch([]ir.Instruction{ir.Call("double")})}),
	}

	out := Optimize(programs, "main", numbers)

	double, ok := out["double"].SingleInstruction()
	if !ok || double.Kind != ir.KindMul {
		t.Fatalf("expected double to simplify to Mul, got %+v", out["double"])
	}

	main := out["main"]
	if len(main.Branches[0].Instructions) != 1 || main.Branches[0].Instructions[0].Kind != ir.KindMul {
		t.Fatalf("expected double to be inlined into main after simplification, got %+v", main)
	}
}

// TestOptimizeIsObservationallySound checks that running a program before
// and after Optimize produces the same final value (or the same failure) on
// every sampled input, for a program whose recursive form should collapse
// down to a closed-form Mul.
func TestOptimizeIsObservationallySound(t *testing.T) {
	programs := ir.ProgramMap{
		"mul3": ir.NewProgram([]ir.Branch{
			ir.NewBranch([]ir.Instruction{ir.Sub(numbers.FromUint64(1)), ir.Call("mul3"), ir.Add(numbers.FromUint64(3))}),
			ir.NewBranch(nil),
		}),
		"main": ir.NewProgram([]ir.Branch{ir.NewBranch([]ir.Instruction{ir.Call("mul3")})}),
	}

	before, err := bytecode.Compile(programs, "main", numbers)
	if err != nil {
		t.Fatalf("compile error (before): %v", err)
	}

	optimized := Optimize(programs, "main", numbers)
	after, err := bytecode.Compile(optimized, "main", numbers)
	if err != nil {
		t.Fatalf("compile error (after): %v", err)
	}

	for input := uint64(0); input < 20; input++ {
		beforeVal, beforeOK := bytecode.Run(before, numbers.FromUint64(input), numbers, nil)
		afterVal, afterOK := bytecode.Run(after, numbers.FromUint64(input), numbers, nil)

		if beforeOK != afterOK {
			t.Fatalf("input %d: ok mismatch before=%v after=%v", input, beforeOK, afterOK)
		}
		if beforeOK && beforeVal.Cmp(afterVal) != 0 {
			t.Fatalf("input %d: value mismatch before=%v after=%v", input, beforeVal, afterVal)
		}
	}
}
