package vm

import (
	"haxby/internal/bytecode"
	"haxby/internal/value"
	"haxby/internal/vmerr"
)

// bindMethod implements BindMethod(attribs u8, nameConstIdx u16) (spec.md
// §4.5): pops the function just built off the top of the stack and attaches
// it to the type value sitting beneath it, which is left on the stack so a
// struct/enum/mixin literal can bind any number of methods in sequence
// before its closing instruction consumes the type value itself.
func (vm *VM) bindMethod(f *Frame, inst bytecode.Instruction) (value.Value, bool, bool, error) {
	top, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	fn, ok := top.(*value.Function)
	if !ok {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "BindMethod top of stack is not a function").AtSource(f.sourcePointer())
	}
	// OR in rather than overwrite: BuildFunction may already have set
	// AttrVariadic, which BindMethod's own operand knows nothing about.
	fn.Attribs |= value.FunctionAttribs(inst.Operands[0])

	tv, terr := vm.peekTypeValue(f)
	if terr != nil {
		return nil, false, false, terr
	}
	nameConst, cerr := vm.constant(f, int(inst.Operands[1]))
	if cerr != nil {
		return nil, false, false, cerr
	}
	name, ok := nameConst.(value.Str)
	if !ok {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonNoSuchModuleConstant, "BindMethod name constant is not a string").AtSource(f.sourcePointer())
	}
	sym, ierr := vm.syms.Intern(string(name))
	if ierr != nil {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonTooManySymbols, "%v", ierr).AtSource(f.sourcePointer())
	}

	box := vm.membersOf(tv)
	if box == nil {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "BindMethod target is not a struct/enum/mixin").AtSource(f.sourcePointer())
	}
	box.Set(vm.shapes, sym, fn)
	return nil, false, false, nil
}

// bindCase implements BindCase(hasPayload u8, nameConstIdx u16) (spec.md
// §3.4, §4.5): appends a case to the enum type value beneath the stack top.
// When hasPayload is set, a TypeCheck payload constraint is popped first.
func (vm *VM) bindCase(f *Frame, inst bytecode.Instruction) (value.Value, bool, bool, error) {
	var payload *value.TypeCheck
	if inst.Operands[0] != 0 {
		v, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		tc, ok := v.(*value.TypeCheck)
		if !ok {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "BindCase payload is not a type check").AtSource(f.sourcePointer())
		}
		payload = tc
	}
	tv, terr := vm.peekTypeValue(f)
	if terr != nil {
		return nil, false, false, terr
	}
	if tv.TVKind != value.TVEnum {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "BindCase target is not an enum").AtSource(f.sourcePointer())
	}
	nameConst, cerr := vm.constant(f, int(inst.Operands[1]))
	if cerr != nil {
		return nil, false, false, cerr
	}
	name, ok := nameConst.(value.Str)
	if !ok {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonNoSuchModuleConstant, "BindCase name constant is not a string").AtSource(f.sourcePointer())
	}
	sym, ierr := vm.syms.Intern(string(name))
	if ierr != nil {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonTooManySymbols, "%v", ierr).AtSource(f.sourcePointer())
	}
	tv.Enum.Cases = append(tv.Enum.Cases, value.EnumCase{Name: string(name), NameSym: sym, Payload: payload})
	return nil, false, false, nil
}

// includeMixin implements IncludeMixin (spec.md §3.4): pops a mixin type
// value, prepending it to the linearization of the struct/enum type value
// now on top of the stack.
func (vm *VM) includeMixin(f *Frame) (value.Value, bool, bool, error) {
	top, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	mtv, ok := top.(*value.TypeValue)
	if !ok || mtv.TVKind != value.TVMixin {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "IncludeMixin operand is not a mixin").AtSource(f.sourcePointer())
	}
	tv, terr := vm.peekTypeValue(f)
	if terr != nil {
		return nil, false, false, terr
	}
	switch tv.TVKind {
	case value.TVStruct:
		tv.Struct.Mixins = append([]*value.Mixin{mtv.Mixin}, tv.Struct.Mixins...)
	case value.TVEnum:
		tv.Enum.Mixins = append([]*value.Mixin{mtv.Mixin}, tv.Enum.Mixins...)
	default:
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "IncludeMixin target cannot include a mixin").AtSource(f.sourcePointer())
	}
	return nil, false, false, nil
}

// peekTypeValue reads (without popping) the TypeValue expected beneath a
// construction opcode's operands.
func (vm *VM) peekTypeValue(f *Frame) (*value.TypeValue, error) {
	top, ok := f.peek()
	if !ok {
		return nil, vm.emptyStack(f)
	}
	tv, ok := top.(*value.TypeValue)
	if !ok {
		return nil, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "expected a type value on the stack").AtSource(f.sourcePointer())
	}
	return tv, nil
}

func (vm *VM) membersOf(tv *value.TypeValue) *value.Box {
	switch tv.TVKind {
	case value.TVStruct:
		return &tv.Struct.Members
	case value.TVEnum:
		return &tv.Enum.Members
	case value.TVMixin:
		return &tv.Mixin.Members
	default:
		return nil
	}
}

// newEnumVal implements NewEnumVal(hasPayload u8, nameConstIdx u16)
// (spec.md §3.3, §4.5): pops an optional payload, then the enum type value,
// resolving the case name to an index through the instruction's CaseCache
// sidecar (spec.md §4.5 "avoiding a linear scan on every construction").
func (vm *VM) newEnumVal(f *Frame, inst bytecode.Instruction) (value.Value, bool, bool, error) {
	var payload value.Value
	if inst.Operands[0] != 0 {
		v, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		payload = v
	}
	top, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	tv, ok := top.(*value.TypeValue)
	if !ok || tv.TVKind != value.TVEnum {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "NewEnumVal operand is not an enum type").AtSource(f.sourcePointer())
	}

	cache := &f.Code.CaseCaches[f.IP-1]
	var idx int
	if cache.Valid && cache.Index < len(tv.Enum.Cases) {
		idx = cache.Index
	} else {
		nameConst, cerr := vm.constant(f, int(inst.Operands[1]))
		if cerr != nil {
			return nil, false, false, cerr
		}
		name, ok := nameConst.(value.Str)
		if !ok {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonNoSuchModuleConstant, "NewEnumVal name constant is not a string").AtSource(f.sourcePointer())
		}
		sym, ierr := vm.syms.Intern(string(name))
		if ierr != nil {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonTooManySymbols, "%v", ierr).AtSource(f.sourcePointer())
		}
		i, cs := tv.Enum.CaseByName(sym)
		if cs == nil {
			return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("NoSuchCase", nil))
		}
		idx = i
		cache.Valid = true
		cache.Index = idx
	}

	if cs := tv.Enum.Cases[idx]; cs.Payload != nil && (payload == nil || !cs.Payload.Predicate(payload)) {
		return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("UnexpectedType", nil))
	}
	f.push(&value.EnumValue{Enum: tv.Enum, CaseIndex: idx, Payload: payload})
	return nil, false, false, nil
}

// enumCheckIsCase implements EnumCheckIsCase(nameConstIdx u16) (spec.md
// §4.5, used by `match` case guards): pops an EnumValue, pushes whether its
// instantiated case matches the named one.
func (vm *VM) enumCheckIsCase(f *Frame, inst bytecode.Instruction) (value.Value, bool, bool, error) {
	v, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	ev, ok := v.(*value.EnumValue)
	if !ok {
		f.push(value.Bool(false))
		return nil, false, false, nil
	}
	nameConst, cerr := vm.constant(f, int(inst.Operands[0]))
	if cerr != nil {
		return nil, false, false, cerr
	}
	name, ok := nameConst.(value.Str)
	if !ok {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonNoSuchModuleConstant, "EnumCheckIsCase name constant is not a string").AtSource(f.sourcePointer())
	}
	sym, ierr := vm.syms.Intern(string(name))
	if ierr != nil {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonTooManySymbols, "%v", ierr).AtSource(f.sourcePointer())
	}
	idx, cs := ev.Enum.CaseByName(sym)
	f.push(value.Bool(cs != nil && idx == ev.CaseIndex))
	return nil, false, false, nil
}

// enumTryExtractPayload implements EnumTryExtractPayload (spec.md §3.3,
// §4.5, §7 item 2): pops an EnumValue and pushes its payload, raising
// EnumWithoutPayload if the instantiated case carries none.
func (vm *VM) enumTryExtractPayload(f *Frame) (value.Value, bool, bool, error) {
	v, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	ev, ok := v.(*value.EnumValue)
	if !ok || ev.Payload == nil {
		return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("EnumWithoutPayload", nil))
	}
	f.push(ev.Payload)
	return nil, false, false, nil
}

// tryUnwrapProtocol implements TryUnwrapProtocol(mode u8) (spec.md §4.5,
// §8): the `?`/`!`/`??` operators over a Result value on top of the stack.
// PROPAGATE_ERROR returns the Err value straight out of the current
// function, matching how `?` short-circuits its caller; ASSERT_ERROR raises
// OperationFailed, matching `!`'s panic-on-error semantics; FLAG_TO_CALLER
// folds the outcome into a Maybe so the caller can keep going, matching
// `??`'s "turn failure into an absent value" semantics.
func (vm *VM) tryUnwrapProtocol(f *Frame, mode uint8) (value.Value, bool, bool, error) {
	v, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	ev, isOk, isResult := vm.builtins.IsResult(v)
	if !isResult {
		return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("UnexpectedType", nil))
	}
	if isOk {
		switch mode {
		case bytecode.ModeFlagToCaller:
			f.push(vm.builtins.NewSome(ev.Payload))
		default:
			f.push(ev.Payload)
		}
		return nil, false, false, nil
	}
	switch mode {
	case bytecode.ModePropagateError:
		return vm.returnFrame(v)
	case bytecode.ModeAssertError:
		return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("OperationFailed", ev.Payload))
	case bytecode.ModeFlagToCaller:
		f.push(vm.builtins.MaybeNone)
		return nil, false, false, nil
	default:
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "unknown TryUnwrapProtocol mode %d", mode).AtSource(f.sourcePointer())
	}
}
