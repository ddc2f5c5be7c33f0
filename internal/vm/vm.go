// Package vm implements the execution loop of spec.md §4.5: one VM instance
// owning the symbol interner, shapes registry, built-ins catalogue, module
// registry, and a stack of call frames, dispatching the opcode inventory of
// §4.3 against the value model of package value.
package vm

import (
	"haxby/internal/builtins"
	"haxby/internal/bytecode"
	"haxby/internal/dylib"
	"haxby/internal/modreg"
	"haxby/internal/shape"
	"haxby/internal/symbol"
	"haxby/internal/value"
	"haxby/internal/vmerr"
)

// TryBlock is one entry of a frame's try-stack (spec.md §4.5 TryEnter).
type TryBlock struct {
	CatchIP    int // instruction index within the owning frame's Code.Body
	StackDepth int // frame.Stack length to restore to on catch
}

// Frame is a single activation record (spec.md glossary "Frame"): locals,
// an operand stack, a try-block stack, and (for a closure call) the
// function whose captured environment ReadUplevel/StoreUplevel reach into.
type Frame struct {
	Code      *value.CodeObject
	IP        int
	Locals    []value.Value
	Witnesses []*value.TypeCheck // parallel to Locals; nil == no declared type
	Stack     []value.Value
	Module    *value.Module // module ReadNamed/WriteNamed/Import resolve against
	Fn        *value.Function
	TryStack  []TryBlock
}

func newFrame(code *value.CodeObject, mod *value.Module, fn *value.Function) *Frame {
	size := code.FrameSize
	if size < len(code.Body) {
		// A FrameSize the compiler under-reported is a correctness bug, not
		// a runtime fault worth crashing over: grow to fit what locals the
		// bytecode actually addresses.
		size = len(code.Body)
	}
	return &Frame{
		Code:   code,
		Locals: make([]value.Value, size),
		Module: mod,
		Fn:     fn,
	}
}

func (f *Frame) push(v value.Value) { f.Stack = append(f.Stack, v) }

func (f *Frame) pop() (value.Value, bool) {
	if len(f.Stack) == 0 {
		return nil, false
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v, true
}

func (f *Frame) peek() (value.Value, bool) {
	if len(f.Stack) == 0 {
		return nil, false
	}
	return f.Stack[len(f.Stack)-1], true
}

// sourcePointer reports where f's instruction pointer currently is, for
// VmError/exception annotation (spec.md §7).
func (f *Frame) sourcePointer() bytecode.SourcePointer {
	idx := f.IP - 1
	if idx < 0 {
		idx = 0
	}
	return bytecode.SourcePointer{
		Buffer: f.Code.SourcePointer.Buffer,
		Line:   f.Code.LineFor(idx),
	}
}

// VM owns every VM-scoped singleton spec.md §2 and §4.5 name: the interner,
// the shapes registry, the built-ins catalogue, the module registry, and
// the native extension registry. It is not safe for concurrent use by
// design (spec.md §5).
type VM struct {
	syms     *symbol.Interner
	shapes   *shape.Registry
	builtins *builtins.Catalogue
	modules  *modreg.Registry
	dylibs   *dylib.Registry

	frames []*Frame

	// ExitCode is set by the Halt opcode when it finds an Int on top of the
	// stack, and read by the host after RunFunction/Import returns
	// (SPEC_FULL.md's Halt exit-code supplement). It is unrelated to the
	// process-terminating `exit` native function in internal/ext/system,
	// which never returns to the host at all.
	ExitCode int
}

// New constructs a VM. fetcher resolves import paths to compiled modules —
// supplied by the host, since compiling source is out of scope here
// (spec.md §1).
func New(fetcher modreg.Fetcher) *VM {
	syms := symbol.New()
	shapes := shape.NewRegistry()
	cat := builtins.New(syms, shapes)
	cat.RegisterMethods(syms, shapes)

	vm := &VM{
		syms:     syms,
		shapes:   shapes,
		builtins: cat,
		dylibs:   dylib.NewRegistry(),
	}
	vm.modules = modreg.New(fetcher, syms, vm.runModuleEntry)
	vm.wireWeakRef()
	return vm
}

// Interner and Shapes satisfy dylib.Host, the capability surface a native
// extension's inject function receives (spec.md §6.3).
func (vm *VM) Interner() *symbol.Interner { return vm.syms }
func (vm *VM) Shapes() *shape.Registry    { return vm.shapes }

// Builtins exposes the catalogue for hosts assembling fixtures and for
// native extensions that need to construct RuntimeError/Result/Maybe values.
func (vm *VM) Builtins() *builtins.Catalogue { return vm.builtins }

// Modules exposes the module registry so a host can pre-register built-in
// modules (spec.md §4.5 Import) before running any user code.
func (vm *VM) Modules() *modreg.Registry { return vm.modules }

// Dylibs exposes the native extension registry so a host can register
// extensions before running any bytecode that might LoadDylib them.
func (vm *VM) Dylibs() *dylib.Registry { return vm.dylibs }

// RunFunction executes fn with the given arguments as a fresh top-level
// call, returning its return value or the error that ended execution
// (either an uncaught exception or a hard VmError). This is the entry
// point a host (cmd/haxby, or a test) uses to run a compiled function
// directly, since the compiler/REPL front end is out of scope.
func (vm *VM) RunFunction(fn *value.Function, args []value.Value) (value.Value, error) {
	frame, thrown := vm.makeFunctionFrame(fn, nil, args)
	if thrown != nil {
		return nil, &UncaughtException{Value: thrown}
	}
	base := len(vm.frames)
	vm.frames = append(vm.frames, frame)
	return vm.run(base)
}

// runModuleEntry executes mod's entry code object to populate its
// named-value table (spec.md §4.4 step 3); it is the modreg.RunEntry
// callback a freshly loaded module is run through exactly once.
func (vm *VM) runModuleEntry(mod *value.Module) error {
	frame := newFrame(mod.Entry, mod, nil)
	base := len(vm.frames)
	vm.frames = append(vm.frames, frame)
	_, err := vm.run(base)
	return err
}

// run drives the fetch-decode-dispatch loop until the frame stack returns
// to depth base, per spec.md §4.5. It is re-entrant: runModuleEntry,
// RunFunction, and invoke (every Call, including operator-protocol and
// auto-bound calls) all push one frame and call run with that frame's depth
// as the floor, so a
// nested call — including one a thrown exception unwinds straight through —
// resolves correctly regardless of how many Go-level run calls are on the
// stack at the moment it happens. See exceptions.go for how errUnwinding
// lets a raise() that resumes above the current floor propagate cleanly
// back to whichever run call actually owns the resumed frame.
func (vm *VM) run(base int) (value.Value, error) {
	for {
		if len(vm.frames) <= base {
			return vm.builtins.RuntimeValue(bytecode.RVUnit), nil
		}
		f := vm.frames[len(vm.frames)-1]
		if f.IP >= len(f.Code.Body) {
			return nil, vmerr.NewVmError(vmerr.ReasonTruncatedBytecode,
				"instruction pointer %d past end of code object %q (len %d)", f.IP, f.Code.Name, len(f.Code.Body)).AtSource(f.sourcePointer())
		}
		inst := f.Code.Body[f.IP]
		f.IP++

		result, done, halted, err := vm.dispatch(f, inst)
		if err != nil {
			if err == errUnwinding {
				if len(vm.frames) > base {
					continue
				}
				return nil, errUnwinding
			}
			return nil, err
		}
		if halted {
			return result, nil
		}
		if done {
			if len(vm.frames) <= base {
				return result, nil
			}
			continue
		}
	}
}

// dispatch executes one instruction against frame f. done reports that a
// Return/ReturnUnit popped a frame (result is the value pushed to the new
// top frame, or the final return value if that pop reached base); halted
// reports Halt, which always ends the whole run immediately regardless of
// frame depth.
func (vm *VM) dispatch(f *Frame, inst bytecode.Instruction) (result value.Value, done bool, halted bool, err error) {
	switch inst.Op {

	case bytecode.Nop:
		// nothing

	case bytecode.Push:
		c, cerr := vm.constant(f, int(inst.Operands[0]))
		if cerr != nil {
			return nil, false, false, cerr
		}
		f.push(c)
	case bytecode.Push0:
		f.push(value.Int(0))
	case bytecode.Push1:
		f.push(value.Int(1))
	case bytecode.PushTrue:
		f.push(value.Bool(true))
	case bytecode.PushFalse:
		f.push(value.Bool(false))
	case bytecode.PushBuiltinTy:
		t := vm.builtins.ByID(bytecode.BuiltinTypeID(inst.Operands[0]))
		if t == nil {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "unknown built-in type id %d", inst.Operands[0]).AtSource(f.sourcePointer())
		}
		f.push(t)
	case bytecode.PushRuntimeValue:
		v := vm.builtins.RuntimeValue(bytecode.RuntimeValueID(inst.Operands[0]))
		if v == nil {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "unknown runtime value id %d", inst.Operands[0]).AtSource(f.sourcePointer())
		}
		f.push(v)

	case bytecode.Pop:
		if _, ok := f.pop(); !ok {
			return nil, false, false, vm.emptyStack(f)
		}
	case bytecode.Dup:
		top, ok := f.peek()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		f.push(top)
	case bytecode.Swap:
		n := len(f.Stack)
		if n < 2 {
			return nil, false, false, vm.emptyStack(f)
		}
		f.Stack[n-1], f.Stack[n-2] = f.Stack[n-2], f.Stack[n-1]
	case bytecode.Copy:
		depth := int(inst.Operands[0])
		n := len(f.Stack)
		if depth < 0 || depth >= n {
			return nil, false, false, vm.emptyStack(f)
		}
		f.push(f.Stack[n-1-depth])

	case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div, bytecode.Rem,
		bytecode.ShiftLeft, bytecode.ShiftRight, bytecode.BitwiseAnd, bytecode.BitwiseOr, bytecode.Xor:
		exc, berr := vm.binaryOp(f, inst.Op)
		if berr != nil {
			return nil, false, false, berr
		}
		if exc != nil {
			return vm.unwindOrTerminate(f, exc)
		}
	case bytecode.Neg:
		exc, berr := vm.unaryNeg(f)
		if berr != nil {
			return nil, false, false, berr
		}
		if exc != nil {
			return vm.unwindOrTerminate(f, exc)
		}
	case bytecode.LogicalAnd, bytecode.LogicalOr:
		b, ok1 := f.pop()
		a, ok2 := f.pop()
		if !ok1 || !ok2 {
			return nil, false, false, vm.emptyStack(f)
		}
		if inst.Op == bytecode.LogicalAnd {
			f.push(value.Bool(value.IsTruthy(a) && value.IsTruthy(b)))
		} else {
			f.push(value.Bool(value.IsTruthy(a) || value.IsTruthy(b)))
		}
	case bytecode.Not:
		a, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		f.push(value.Bool(!value.IsTruthy(a)))

	case bytecode.Equal:
		exc, berr := vm.equalOp(f)
		if berr != nil {
			return nil, false, false, berr
		}
		if exc != nil {
			return vm.unwindOrTerminate(f, exc)
		}
	case bytecode.GreaterThan, bytecode.LessThan, bytecode.GreaterThanEqual, bytecode.LessThanEqual:
		exc, berr := vm.compareOp(f, inst.Op)
		if berr != nil {
			return nil, false, false, berr
		}
		if exc != nil {
			return vm.unwindOrTerminate(f, exc)
		}
	case bytecode.Isa:
		b, ok1 := f.pop()
		a, ok2 := f.pop()
		if !ok1 || !ok2 {
			return nil, false, false, vm.emptyStack(f)
		}
		t, ok := b.(*value.TypeValue)
		if !ok {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "Isa right operand is not a type").AtSource(f.sourcePointer())
		}
		f.push(value.Bool(vm.builtins.Isa(a, t)))

	case bytecode.ReadLocal:
		idx := int(inst.Operands[0])
		if idx < 0 || idx >= len(f.Locals) {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonUplevelOutOfRange, "local %d out of range", idx).AtSource(f.sourcePointer())
		}
		f.push(f.Locals[idx])
	case bytecode.WriteLocal:
		idx := int(inst.Operands[0])
		v, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		if idx < 0 || idx >= len(f.Locals) {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonUplevelOutOfRange, "local %d out of range", idx).AtSource(f.sourcePointer())
		}
		if w := f.witnessAt(idx); w != nil && !w.Predicate(v) {
			return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("UnexpectedType", nil))
		}
		f.Locals[idx] = v
	case bytecode.TypedefLocal:
		idx := int(inst.Operands[0])
		v, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		tc, ok := v.(*value.TypeCheck)
		if !ok {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "TypedefLocal operand is not a type check").AtSource(f.sourcePointer())
		}
		f.setWitness(idx, tc)

	case bytecode.ReadNamed, bytecode.WriteNamed, bytecode.TypedefNamed:
		return vm.namedOp(f, inst)

	case bytecode.ReadUplevel:
		idx := int(inst.Operands[0])
		if f.Fn == nil || idx < 0 || idx >= len(f.Fn.Uplevels) {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonUplevelOutOfRange, "uplevel %d out of range", idx).AtSource(f.sourcePointer())
		}
		f.push(f.Fn.Uplevels[idx])
	case bytecode.StoreUplevel:
		idx := int(inst.Operands[0])
		v, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		if f.Fn == nil || idx < 0 || idx >= len(f.Fn.Uplevels) {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonUplevelOutOfRange, "uplevel %d out of range", idx).AtSource(f.sourcePointer())
		}
		f.Fn.Uplevels[idx] = v

	case bytecode.ReadIndex, bytecode.WriteIndex:
		return vm.indexOp(f, inst.Op)

	case bytecode.ReadAttribute, bytecode.WriteAttribute:
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode,
			"%s may not appear in loaded bytecode (loader should have rewritten it)", inst.Op).AtSource(f.sourcePointer())
	case bytecode.ReadAttributeSymbol:
		return vm.readAttributeSymbol(f, inst)
	case bytecode.WriteAttributeSymbol:
		return vm.writeAttributeSymbol(f, inst)

	case bytecode.Jump:
		idx, jerr := vm.resolveJump(f, int(inst.Operands[0]))
		if jerr != nil {
			return nil, false, false, jerr
		}
		f.IP = idx
	case bytecode.JumpTrue, bytecode.JumpFalse:
		cond, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		truthy := value.IsTruthy(cond)
		if (inst.Op == bytecode.JumpTrue && truthy) || (inst.Op == bytecode.JumpFalse && !truthy) {
			idx, jerr := vm.resolveJump(f, int(inst.Operands[0]))
			if jerr != nil {
				return nil, false, false, jerr
			}
			f.IP = idx
		}
	case bytecode.JumpIfArgSupplied:
		idx := int(inst.Operands[0])
		if idx >= 0 && idx < len(f.Locals) && f.Locals[idx] != nil {
			target, jerr := vm.resolveJump(f, int(inst.Operands[1]))
			if jerr != nil {
				return nil, false, false, jerr
			}
			f.IP = target
		}

	case bytecode.Call:
		return vm.callOp(f, int(inst.Operands[0]))
	case bytecode.Return:
		v, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		return vm.returnFrame(v)
	case bytecode.ReturnUnit:
		return vm.returnFrame(vm.builtins.UnitValue)

	case bytecode.TryEnter:
		idx, jerr := vm.resolveJump(f, int(inst.Operands[0]))
		if jerr != nil {
			return nil, false, false, jerr
		}
		f.TryStack = append(f.TryStack, TryBlock{CatchIP: idx, StackDepth: len(f.Stack)})
	case bytecode.TryExit:
		if len(f.TryStack) == 0 {
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonEmptyStack, "TryExit with no active try block").AtSource(f.sourcePointer())
		}
		f.TryStack = f.TryStack[:len(f.TryStack)-1]
	case bytecode.Throw:
		exc, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		return vm.unwindOrTerminate(f, exc)
	case bytecode.Assert:
		cond, ok := f.pop()
		if !ok {
			return nil, false, false, vm.emptyStack(f)
		}
		if !value.IsTruthy(cond) {
			msg, cerr := vm.constant(f, int(inst.Operands[0]))
			if cerr != nil {
				return nil, false, false, cerr
			}
			return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("AssertFailed", msg))
		}
	case bytecode.Halt:
		if top, ok := f.peek(); ok {
			if code, isInt := top.(value.Int); isInt {
				f.pop()
				vm.ExitCode = int(code)
			}
		}
		return vm.builtins.RuntimeValue(bytecode.RVUnit), false, true, nil

	case bytecode.BuildList:
		n := int(inst.Operands[0])
		if n < 0 || n > len(f.Stack) {
			return nil, false, false, vm.emptyStack(f)
		}
		items := make([]value.Value, n)
		copy(items, f.Stack[len(f.Stack)-n:])
		f.Stack = f.Stack[:len(f.Stack)-n]
		f.push(&value.List{Items: items})
	case bytecode.BuildFunction:
		return vm.buildFunction(f, value.FunctionAttribs(inst.Operands[0]))
	case bytecode.BuildStruct:
		f.push(&value.TypeValue{TVKind: value.TVStruct, Struct: &value.Struct{Members: value.Box{Shape: vm.shapes.Empty()}}})
	case bytecode.BuildEnum:
		f.push(&value.TypeValue{TVKind: value.TVEnum, Enum: &value.Enum{Members: value.Box{Shape: vm.shapes.Empty()}}})
	case bytecode.BuildMixin:
		f.push(&value.TypeValue{TVKind: value.TVMixin, Mixin: &value.Mixin{Members: value.Box{Shape: vm.shapes.Empty()}}})
	case bytecode.BindMethod:
		return vm.bindMethod(f, inst)
	case bytecode.BindCase:
		return vm.bindCase(f, inst)
	case bytecode.IncludeMixin:
		return vm.includeMixin(f)
	case bytecode.NewEnumVal:
		return vm.newEnumVal(f, inst)
	case bytecode.EnumCheckIsCase:
		return vm.enumCheckIsCase(f, inst)
	case bytecode.EnumTryExtractPayload:
		return vm.enumTryExtractPayload(f)
	case bytecode.TryUnwrapProtocol:
		return vm.tryUnwrapProtocol(f, uint8(inst.Operands[0]))

	case bytecode.Import:
		return vm.importOp(f, inst)
	case bytecode.LiftModule:
		return vm.liftModuleOp(f)
	case bytecode.LoadDylib:
		return vm.loadDylibOp(f, inst)

	default:
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "unhandled opcode %s", inst.Op).AtSource(f.sourcePointer())
	}
	return nil, false, false, nil
}

func (f *Frame) witnessAt(idx int) *value.TypeCheck {
	if idx < 0 || idx >= len(f.Witnesses) {
		return nil
	}
	return f.Witnesses[idx]
}

func (f *Frame) setWitness(idx int, tc *value.TypeCheck) {
	if idx >= len(f.Witnesses) {
		grown := make([]*value.TypeCheck, idx+1)
		copy(grown, f.Witnesses)
		f.Witnesses = grown
	}
	f.Witnesses[idx] = tc
}

// constant resolves a module constant-pool index (spec.md §4.5 "Push(idx)").
func (vm *VM) constant(f *Frame, idx int) (value.Value, error) {
	if f.Module == nil || idx < 0 || idx >= len(f.Module.Consts) {
		return nil, vmerr.NewVmError(vmerr.ReasonNoSuchModuleConstant, "constant index %d", idx).AtSource(f.sourcePointer())
	}
	return f.Module.Consts[idx], nil
}

func (vm *VM) emptyStack(f *Frame) error {
	return vmerr.NewVmError(vmerr.ReasonEmptyStack, "operand stack underflow in %q", f.Code.Name).AtSource(f.sourcePointer())
}

// resolveJump turns a §4.3 byte-offset jump target into an index into
// f.Code.Body via binary search: Body is sorted by Offset because the
// loader decoded it in stream order.
func (vm *VM) resolveJump(f *Frame, byteOffset int) (int, error) {
	body := f.Code.Body
	lo, hi := 0, len(body)
	for lo < hi {
		mid := (lo + hi) / 2
		if body[mid].Offset < byteOffset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo >= len(body) || body[lo].Offset != byteOffset {
		return 0, vmerr.NewVmError(vmerr.ReasonTruncatedBytecode, "jump target %d is not an instruction boundary in %q", byteOffset, f.Code.Name).AtSource(f.sourcePointer())
	}
	return lo, nil
}
