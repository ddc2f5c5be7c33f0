package vm

import (
	"errors"
	"fmt"

	"haxby/internal/value"
	"haxby/internal/vmerr"
)

// errUnwinding is the sentinel raise returns whenever it resumes execution
// in some frame — it is never the real end of a run, just the signal that
// propagates a throw up through however many nested vm.run calls lie
// between the frame that raised and the frame that caught. Each run loop
// checks len(vm.frames) against its own base to decide whether the
// resumed frame is its own responsibility (keep looping) or belongs to an
// outer run call (propagate errUnwinding unchanged). See run in vm.go.
var errUnwinding = errors.New("vm: unwinding")

// UncaughtException is the real, terminal error produced when raise walks
// every frame in vm.frames without finding an open try block anywhere —
// nothing left to catch it and nothing left to pop.
type UncaughtException struct {
	Value value.Value
}

func (e *UncaughtException) Error() string {
	return fmt.Sprintf("uncaught exception: %s", value.Inspect(e.Value))
}

// raise implements the throw/catch search of spec.md §4.5 (Throw, TryEnter,
// TryExit): starting at the current top frame, pop frames with no open try
// block until one is found to resume into, restoring its operand stack to
// the depth recorded when the try block was entered and pushing exc before
// jumping to the catch handler. If vm.frames empties with nothing to catch,
// the exception is uncaught and the whole run terminates.
//
// Every frame raise inspects — including the one that throws and the one
// that finally catches — gets exactly one backtrace entry appended, per
// spec.md §8's exception-monotonicity property.
func (vm *VM) raise(exc value.Value) error {
	for len(vm.frames) > 0 {
		f := vm.frames[len(vm.frames)-1]
		vmerr.AppendBacktrace(exc, vm.syms, vm.shapes, f.sourcePointer())
		if n := len(f.TryStack); n > 0 {
			tb := f.TryStack[n-1]
			f.TryStack = f.TryStack[:n-1]
			if tb.StackDepth <= len(f.Stack) {
				f.Stack = f.Stack[:tb.StackDepth]
			}
			f.push(exc)
			f.IP = tb.CatchIP
			return errUnwinding
		}
		vm.frames = vm.frames[:len(vm.frames)-1]
	}
	return &UncaughtException{Value: exc}
}

// unwindOrTerminate adapts raise's error-only result to the (result, done,
// halted, err) shape every dispatch branch returns.
func (vm *VM) unwindOrTerminate(f *Frame, exc value.Value) (value.Value, bool, bool, error) {
	return nil, false, false, vm.raise(exc)
}
