package bytecode

import (
	"fmt"
	"os"

	"github.com/chazu/unacpp/pkg/numeric"
)

// Tracer receives one call per executed opcode when execution tracing is
// enabled. Implementations must not block meaningfully: the VM is
// single-threaded and synchronous end to end, so a slow tracer slows the
// whole run. pkg/trace's Sink implements this.
type Tracer interface {
	Step(ip uint32, opcode string, value string, failed bool, stackDepth int)
}

// frame is a pending call: the value the callee was entered with, to
// restore on a local backtrack, and the address to resume at on return.
type frame struct {
	savedVal numeric.Value
	returnIP uint32
}

// VM executes a compiled Module against one initial counter value. Its
// entire state is this struct; a VM is never reused across runs with
// different Modules, only across runs of the same Module with different
// initial values (see Run).
type VM struct {
	module  *Module
	numbers numeric.Factory
	tracer  Tracer

	ip      uint32
	val     numeric.Value
	failed  bool
	initial numeric.Value
	frames  []frame
}

// Run executes module starting at its entry offset with the given initial
// counter value, and returns the final value and whether it succeeded. A
// false ok means the program failed (⊥); val is meaningless in that case.
func Run(module *Module, initial numeric.Value, numbers numeric.Factory, tracer Tracer) (val numeric.Value, ok bool) {
	vm := &VM{
		module:  module,
		numbers: numbers,
		tracer:  tracer,
		ip:      module.EntryOffset,
		val:     initial,
		initial: initial,
	}
	return vm.run()
}

func (vm *VM) run() (numeric.Value, bool) {
	for {
		op := Opcode(vm.module.Code[vm.ip])
		stepIP := vm.ip
		vm.ip++

		switch op {
		case OpInc:
			vm.applyArithmetic(func() numeric.Value { return vm.val.Add(vm.numbers.FromUint64(1)) })

		case OpDec:
			vm.decrementBy(vm.numbers.FromUint64(1))

		case OpAdd:
			vm.applyArithmetic(func() numeric.Value { return vm.val.Add(vm.constOperand()) })

		case OpSub:
			vm.decrementBy(vm.constOperand())

		case OpMult:
			vm.applyArithmetic(func() numeric.Value { return vm.val.Mul(vm.constOperand()) })

		case OpDivFloor:
			q, _, divOK := vm.val.DivMod(vm.constOperand())
			if !divOK {
				vm.fail()
			} else {
				vm.val = q
			}

		case OpDivFail:
			q, r, divOK := vm.val.DivMod(vm.constOperand())
			if !divOK || !r.IsZero() {
				vm.fail()
			} else {
				vm.val = q
			}

		case OpEqual:
			if vm.val.Cmp(vm.constOperand()) != 0 {
				vm.fail()
			}

		case OpModEqual:
			rem := vm.module.Constant(vm.readU16Operand())
			mod := vm.module.Constant(vm.readU16Operand())
			_, r, divOK := vm.val.DivMod(mod)
			if !divOK || r.Cmp(rem) != 0 {
				vm.fail()
			}

		case OpNot:
			if vm.val.IsZero() {
				vm.val = vm.numbers.FromUint64(1)
			} else {
				vm.val = vm.numbers.Zero()
			}

		case OpPrint:
			fmt.Fprintln(os.Stdout, vm.val.String())

		case OpCall:
			addr := vm.readAddrOperand()
			vm.frames = append(vm.frames, frame{savedVal: vm.val, returnIP: vm.ip})
			vm.trace(stepIP, op)
			vm.ip = addr
			continue

		case OpTailCall:
			addr := vm.readAddrOperand()
			if len(vm.frames) == 0 {
				vm.initial = vm.val
			} else {
				vm.frames[len(vm.frames)-1].savedVal = vm.val
			}
			vm.trace(stepIP, op)
			vm.ip = addr
			continue

		case OpRet:
			vm.trace(stepIP, op)
			if len(vm.frames) == 0 {
				return vm.val, !vm.failed
			}
			vm.popFrameReturn()
			continue

		case OpRetOnFailure:
			vm.trace(stepIP, op)
			if !vm.failed {
				continue
			}
			if len(vm.frames) == 0 {
				return vm.val, false
			}
			vm.popFrameReturn()
			continue

		case OpJumpOnFailure:
			addr := vm.readAddrOperand()
			if !vm.failed {
				vm.trace(stepIP, op)
				continue
			}
			if len(vm.frames) == 0 {
				vm.val = vm.initial
			} else {
				vm.val = vm.frames[len(vm.frames)-1].savedVal
			}
			vm.failed = false
			vm.trace(stepIP, op)
			vm.ip = addr
			continue

		default:
			panic(fmt.Sprintf("bytecode: unknown opcode 0x%02X at offset %d", byte(op), stepIP))
		}

		vm.trace(stepIP, op)
	}
}

// applyArithmetic runs fn, which must apply Add or Mul to vm.val, and
// assigns the result. A numeric.Overflow panic (fixnum hitting 2^64-1) is
// recovered here and converted into a VM failure instead of crashing the
// process; any other panic is a genuine bug and is left to propagate.
func (vm *VM) applyArithmetic(fn func() numeric.Value) {
	defer func() {
		if r := recover(); r != nil {
			if r == numeric.Overflow {
				vm.fail()
				return
			}
			panic(r)
		}
	}()
	vm.val = fn()
}

func (vm *VM) decrementBy(n numeric.Value) {
	if vm.val.Cmp(n) < 0 {
		vm.fail()
		return
	}
	vm.val, _ = vm.val.Sub(n)
}

func (vm *VM) fail() {
	vm.failed = true
}

// popFrameReturn pops the top call frame and resumes at its return
// address, without touching val - a plain Ret/RetOnFailure never restores
// the saved value, it only restores control flow.
func (vm *VM) popFrameReturn() {
	top := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.ip = top.returnIP
}

func (vm *VM) readU16Operand() uint16 {
	v := vm.module.readU16(vm.ip)
	vm.ip += 2
	return v
}

func (vm *VM) constOperand() numeric.Value {
	return vm.module.Constant(vm.readU16Operand())
}

func (vm *VM) readAddrOperand() uint32 {
	v := vm.module.readAddr(vm.ip)
	vm.ip += 4
	return v
}

func (vm *VM) trace(ip uint32, op Opcode) {
	if vm.tracer == nil {
		return
	}
	value := "⊥"
	if !vm.failed {
		value = vm.val.String()
	}
	vm.tracer.Step(ip, op.String(), value, vm.failed, len(vm.frames))
}
