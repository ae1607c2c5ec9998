// Package optimizer runs a fixed point of three rewrites over a
// pkg/ir.ProgramMap - inlining, arithmetic condensation, and
// single-function pattern recognition - recovering closed-form arithmetic
// from Unarian's recursive unary-only surface syntax. The optimizer never
// fails; every rewrite is total over its input.
package optimizer

import (
	"github.com/chazu/unacpp/pkg/ir"
	"github.com/chazu/unacpp/pkg/numeric"
)

// Optimize runs inlining, math condensation, and function simplification
// to a fixed point and returns the optimized copy of programs. entry is
// never inlined away: it stays addressable under its own name so the
// compiler can find it as the VM's main entry point.
func Optimize(programs ir.ProgramMap, entry string, numbers numeric.Factory) ir.ProgramMap {
	current := cloneMap(programs)

	for {
		var inlined, simplified bool

		current, inlined = inlinePrograms(current, entry)
		current = condenseAll(current, numbers)
		current, simplified = simplifyAll(current, numbers)

		if !inlined && !simplified {
			return current
		}
	}
}

func cloneMap(programs ir.ProgramMap) ir.ProgramMap {
	clone := make(ir.ProgramMap, len(programs))
	for name, prog := range programs {
		clone[name] = prog
	}
	return clone
}
