package vm

import (
	"haxby/internal/symbol"
	"haxby/internal/value"
	"haxby/internal/vmerr"
)

// checkArity implements spec.md §4.6: required <= argc <= required+optional
// for a non-variadic function, or required <= argc for a variadic one.
func checkArity(required, def int, variadic bool, argc int) bool {
	if argc < required {
		return false
	}
	if variadic {
		return true
	}
	return argc <= required+def
}

// callOp implements Call(argc) (spec.md §4.5): the callee sits at stack
// depth argc below argc arguments pushed right-to-left, so the first value
// popped is argument zero.
func (vm *VM) callOp(f *Frame, argc int) (value.Value, bool, bool, error) {
	if argc < 0 || argc > len(f.Stack)-1 {
		return nil, false, false, vm.emptyStack(f)
	}
	args := make([]value.Value, argc)
	for i := 0; i < argc; i++ {
		v, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		args[i] = v
	}
	callee, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}

	result, thrown, err := vm.invoke(callee, nil, args)
	if err != nil {
		return nil, false, false, err
	}
	if thrown != nil {
		return vm.unwindOrTerminate(f, thrown)
	}
	f.push(result)
	return nil, false, false, nil
}

// invoke dispatches a Call-shaped invocation, binding receiver as argument
// zero when non-nil (spec.md §4.5 Call; §4.7 `_op_impl_call` for anything
// that isn't directly callable). It is the single call path every call in
// the VM goes through — bytecode Call, auto-bound attribute calls, and the
// operator protocol (arith.go) alike — so try/catch unwinding behaves
// identically no matter which of those triggered the call (see
// exceptions.go for how errUnwinding makes that safe across recursive
// vm.run invocations).
func (vm *VM) invoke(callee value.Value, receiver value.Value, args []value.Value) (value.Value, value.Value, error) {
	switch c := callee.(type) {
	case *value.BoundFunction:
		return vm.invoke(c.Callee, c.Receiver, args)
	case *value.Function:
		return vm.invokeFunction(c, receiver, args)
	case *value.NativeFunction:
		return vm.invokeNative(c, receiver, args)
	default:
		fn, ok := vm.lookupAttribute(callee, symbol.OpImplCall)
		if !ok || vm.builtins.IsUnimplemented(fn) {
			return nil, vm.builtins.NewRuntimeError("UnexpectedType", nil), nil
		}
		return vm.invoke(fn, callee, args)
	}
}

// makeFunctionFrame validates argc against fn's declared arity and builds
// its activation record, placing receiver (if any) in local 0 ahead of the
// caller-supplied arguments (spec.md §4.5 "bind the receiver as argument
// zero if bound"). Returns a MismatchedArgumentCount exception instead of a
// frame on arity failure.
func (vm *VM) makeFunctionFrame(fn *value.Function, receiver value.Value, args []value.Value) (*Frame, value.Value) {
	required, def, variadic := fn.ArityBounds()
	if !checkArity(required, def, variadic, len(args)) {
		payload := vm.builtins.NewArgcMismatch(vm.shapes, required, len(args))
		return nil, vm.builtins.NewRuntimeError("MismatchedArgumentCount", payload)
	}
	frame := newFrame(fn.Code, fn.Module, fn)
	idx := 0
	if receiver != nil {
		frame.Locals[0] = receiver
		idx = 1
	}
	for i, a := range args {
		if idx+i < len(frame.Locals) {
			frame.Locals[idx+i] = a
		}
	}
	return frame, nil
}

func (vm *VM) invokeFunction(fn *value.Function, receiver value.Value, args []value.Value) (value.Value, value.Value, error) {
	frame, thrown := vm.makeFunctionFrame(fn, receiver, args)
	if thrown != nil {
		return nil, thrown, nil
	}
	nestedBase := len(vm.frames)
	vm.frames = append(vm.frames, frame)
	result, err := vm.run(nestedBase)
	if err != nil {
		return nil, nil, err
	}
	return result, nil, nil
}

// invokeNative calls a NativeFunction's Go implementation directly, with no
// new Frame: native functions don't execute bytecode, so there is nothing
// for vm.run to step through (spec.md §6.3's built-in function contract).
func (vm *VM) invokeNative(nf *value.NativeFunction, receiver value.Value, args []value.Value) (value.Value, value.Value, error) {
	if !checkArity(nf.RequiredArgc, nf.DefaultArgc, nf.Variadic, len(args)) {
		payload := vm.builtins.NewArgcMismatch(vm.shapes, nf.RequiredArgc, len(args))
		return nil, vm.builtins.NewRuntimeError("MismatchedArgumentCount", payload), nil
	}
	result, thrown, err := nf.Invoke(receiver, args)
	if err != nil {
		return nil, nil, err
	}
	return result, thrown, nil
}

// returnFrame implements Return/ReturnUnit (spec.md §4.5): pop the current
// frame and hand v to the new top frame's operand stack, the ordinary
// calling convention every invoke path relies on. If no frame remains, v is
// simply the final result of this run.
func (vm *VM) returnFrame(v value.Value) (value.Value, bool, bool, error) {
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) > 0 {
		vm.frames[len(vm.frames)-1].push(v)
	}
	return v, true, false, nil
}

// buildFunction implements BuildFunction(attribs) (spec.md §4.5): the
// stack, bottom to top, holds the uplevel values in capture order, an Int
// uplevel count, then the code object on top. This ordering (rather than
// count-then-values-then-code, say) is this core's own choice since the
// compiler producing it is out of scope; any compiler targeting this core
// must push uplevels in capture order before the count and code object.
func (vm *VM) buildFunction(f *Frame, attribs value.FunctionAttribs) (value.Value, bool, bool, error) {
	top, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	code, ok := top.(*value.CodeObject)
	if !ok {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "BuildFunction top of stack is not a code object").AtSource(f.sourcePointer())
	}
	countV, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	count, ok := countV.(value.Int)
	if !ok || count < 0 {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "BuildFunction uplevel count is not a non-negative int").AtSource(f.sourcePointer())
	}
	uplevels := make([]value.Value, count)
	for i := int(count) - 1; i >= 0; i-- {
		v, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		uplevels[i] = v
	}
	fn := &value.Function{Name: code.Name, Code: code, Uplevels: uplevels, Attribs: attribs, Module: f.Module}
	f.push(fn)
	return nil, false, false, nil
}
