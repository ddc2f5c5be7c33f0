package vm

import (
	"haxby/internal/bytecode"
	"haxby/internal/symbol"
	"haxby/internal/value"
	"haxby/internal/vmerr"
)

// attrCache returns the sidecar for the instruction just executed (f.IP was
// already advanced past it by run's fetch step).
func (f *Frame) attrCache() *value.AttrCache {
	return &f.Code.AttrCaches[f.IP-1]
}

// readAttributeSymbol implements ReadAttributeSymbol (spec.md §4.5 item 2):
// check the site's inline cache against the receiver's own attribute box
// first, falling back to the full lookup-order chain on a cache miss. A
// Function read off an object auto-binds into a BoundFunction unless it's
// tagged AttrMethodOfType.
func (vm *VM) readAttributeSymbol(f *Frame, inst bytecode.Instruction) (value.Value, bool, bool, error) {
	sym := symbol.Symbol(inst.Operands[0])
	recv, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	cache := f.attrCache()
	if ab, isBox := recv.(value.AttributeBox); isBox {
		box := ab.Box()
		if box.Shape != nil {
			if cache.Valid && !cache.Frozen && cache.Shape == box.Shape {
				f.push(maybeBindFunction(box.Slots[cache.Slot], recv))
				return nil, false, false, nil
			}
			if slot, found := box.Shape.Slot(sym); found {
				if !cache.Frozen {
					cache.Valid = true
					cache.Shape = box.Shape
					cache.Slot = slot
					cache.Misses = 0
				}
				f.push(maybeBindFunction(box.Slots[slot], recv))
				return nil, false, false, nil
			}
			if cache.Valid {
				cache.Misses++
				if cache.Misses > value.MonomorphicMissLimit {
					cache.Frozen = true
				}
			}
		}
	}
	v, found := vm.lookupAttribute(recv, sym)
	if !found {
		return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("NoSuchIdentifier", nil))
	}
	f.push(maybeBindFunction(v, recv))
	return nil, false, false, nil
}

// writeAttributeSymbol implements WriteAttributeSymbol: the receiver must
// carry its own attribute box (Object, EnumValue instance store, Mixin or
// BuiltinType member table) — types reached only through a TypeValue
// wrapper are populated via BindMethod/BindCase instead.
func (vm *VM) writeAttributeSymbol(f *Frame, inst bytecode.Instruction) (value.Value, bool, bool, error) {
	sym := symbol.Symbol(inst.Operands[0])
	v, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	recv, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	ab, ok := recv.(value.AttributeBox)
	if !ok {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "WriteAttributeSymbol target has no attribute box").AtSource(f.sourcePointer())
	}
	ab.Box().Set(vm.shapes, sym, v)
	return nil, false, false, nil
}

// maybeBindFunction implements the auto-bind rule of spec.md §4.5 item 2:
// a NativeFunction found on a receiver is always a bound method (it's how
// every built-in List/String/Int/Float/Maybe method works); a Function is
// bound unless it declares itself a type-level method.
func maybeBindFunction(v value.Value, recv value.Value) value.Value {
	switch fn := v.(type) {
	case *value.Function:
		if fn.Attribs.Has(value.AttrMethodOfType) {
			return fn
		}
		return &value.BoundFunction{Receiver: recv, Callee: fn}
	case *value.NativeFunction:
		return &value.BoundFunction{Receiver: recv, Callee: fn}
	default:
		return v
	}
}

// lookupAttribute implements the full lookup-order chain of spec.md §4.5
// item 2, with no inline caching — used both as readAttributeSymbol's slow
// path and directly by operator-protocol / `_op_impl_call` dispatch, which
// has no instruction site of its own to cache against. The chain itself is
// VM-agnostic (it only needs the built-in member tables), so it lives on
// the catalogue; this is a thin wrapper kept for call-site familiarity.
func (vm *VM) lookupAttribute(recv value.Value, sym symbol.Symbol) (value.Value, bool) {
	return vm.builtins.Lookup(recv, sym)
}

// namedOp implements ReadNamed/WriteNamed/TypedefNamed (spec.md §4.5): the
// u16 operand is a constant-pool index into a String naming the module-level
// identifier, interned to a Symbol at the point of use rather than rewritten
// by the loader, since only ReadAttribute/WriteAttribute get that treatment
// (spec.md §4.4 step 2 names exactly those two).
func (vm *VM) namedOp(f *Frame, inst bytecode.Instruction) (value.Value, bool, bool, error) {
	c, cerr := vm.constant(f, int(inst.Operands[0]))
	if cerr != nil {
		return nil, false, false, cerr
	}
	name, ok := c.(value.Str)
	if !ok {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonNoSuchModuleConstant, "named-access constant is not a string").AtSource(f.sourcePointer())
	}
	sym, ierr := vm.syms.Intern(string(name))
	if ierr != nil {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonTooManySymbols, "%v", ierr).AtSource(f.sourcePointer())
	}
	if f.Module == nil {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonNoSuchModuleConstant, "no owning module for named access").AtSource(f.sourcePointer())
	}
	switch inst.Op {
	case bytecode.ReadNamed:
		v, found := f.Module.Get(sym)
		if !found {
			return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("NoSuchIdentifier", nil))
		}
		f.push(v)
	case bytecode.WriteNamed:
		v, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		if err := f.Module.Assign(sym, v); err != nil {
			return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("UnexpectedType", nil))
		}
	case bytecode.TypedefNamed:
		v, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		tc, ok := v.(*value.TypeCheck)
		if !ok {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "TypedefNamed operand is not a type check").AtSource(f.sourcePointer())
		}
		f.Module.Typedef(sym, tc)
	}
	return nil, false, false, nil
}

// indexOp implements ReadIndex/WriteIndex (spec.md §4.5): List is handled
// directly with bounds checking; anything else falls through to the
// `_op_impl_read_index`/`_op_impl_write_index` operator protocol.
func (vm *VM) indexOp(f *Frame, op bytecode.OpCode) (value.Value, bool, bool, error) {
	if op == bytecode.ReadIndex {
		idx, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		container, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		if l, ok := container.(*value.List); ok {
			i, ok := idx.(value.Int)
			if !ok || i < 0 || int(i) >= len(l.Items) {
				return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("IndexOutOfBounds", idx))
			}
			f.push(l.Items[i])
			return nil, false, false, nil
		}
		fn, found := vm.lookupAttribute(container, symbol.OpImplReadIndex)
		if !found || vm.builtins.IsUnimplemented(fn) {
			return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("UnexpectedType", nil))
		}
		result, thrown, err := vm.invoke(fn, container, []value.Value{idx})
		if err != nil {
			return nil, false, false, err
		}
		if thrown != nil {
			return vm.unwindOrTerminate(f, thrown)
		}
		f.push(result)
		return nil, false, false, nil
	}

	// WriteIndex: container, index, value pushed bottom to top.
	v, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	idx, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	container, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	if l, ok := container.(*value.List); ok {
		i, ok := idx.(value.Int)
		if !ok || i < 0 || int(i) >= len(l.Items) {
			return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("IndexOutOfBounds", idx))
		}
		l.Items[i] = v
		return nil, false, false, nil
	}
	fn, found := vm.lookupAttribute(container, symbol.OpImplWriteIndex)
	if !found || vm.builtins.IsUnimplemented(fn) {
		return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("UnexpectedType", nil))
	}
	_, thrown, err := vm.invoke(fn, container, []value.Value{idx, v})
	if err != nil {
		return nil, false, false, err
	}
	if thrown != nil {
		return vm.unwindOrTerminate(f, thrown)
	}
	return nil, false, false, nil
}
