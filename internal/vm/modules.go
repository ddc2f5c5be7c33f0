package vm

import (
	"haxby/internal/bytecode"
	"haxby/internal/modreg"
	"haxby/internal/value"
	"haxby/internal/vmerr"
)

// importOp implements Import(pathConstIdx) (spec.md §4.5, §7 item 1):
// circular import is one of the uncatchable VM faults spec.md §7 item 1
// enumerates explicitly, so it bypasses the RuntimeError/raise machinery
// entirely rather than becoming a catchable exception.
func (vm *VM) importOp(f *Frame, inst bytecode.Instruction) (value.Value, bool, bool, error) {
	c, cerr := vm.constant(f, int(inst.Operands[0]))
	if cerr != nil {
		return nil, false, false, cerr
	}
	path, ok := c.(value.Str)
	if !ok {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonNoSuchModuleConstant, "Import path constant is not a string").AtSource(f.sourcePointer())
	}
	mod, err := vm.modules.Import(string(path))
	if err != nil {
		switch {
		case err == modreg.ErrCircularImport:
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonCircularImport, "circular import of %q", path).AtSource(f.sourcePointer())
		case err == errUnwinding:
			// An exception raised while running the imported module's entry
			// code unwound past its own frame: let it keep propagating to
			// whichever frame (inside or outside this run) actually catches
			// it, exactly as if Import were any other nested call.
			return nil, false, false, err
		default:
			if _, isUncaught := err.(*UncaughtException); isUncaught {
				return nil, false, false, err
			}
			if _, isVmErr := err.(*vmerr.VmError); isVmErr {
				return nil, false, false, err
			}
			return nil, false, false, vmerr.NewVmError(vmerr.ReasonImportNotAvailable, "%v", err).AtSource(f.sourcePointer())
		}
	}
	f.push(mod)
	return nil, false, false, nil
}

// liftModuleOp implements LiftModule (spec.md §4.5, glossary "Lift module"):
// pops a source module and merges its named values into the current frame's
// owning module.
func (vm *VM) liftModuleOp(f *Frame) (value.Value, bool, bool, error) {
	v, ok := f.pop()
	if !ok {
		return nil, false, false, vm.emptyStack(f)
	}
	src, ok := v.(*value.Module)
	if !ok {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonUnknownOpcode, "LiftModule operand is not a module").AtSource(f.sourcePointer())
	}
	if f.Module == nil {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonNoSuchModuleConstant, "no owning module for LiftModule").AtSource(f.sourcePointer())
	}
	if err := f.Module.Lift(src); err != nil {
		return vm.unwindOrTerminate(f, vm.builtins.NewRuntimeError("UnexpectedType", nil))
	}
	return nil, false, false, nil
}

// loadDylibOp implements LoadDylib(pathConstIdx) (spec.md §6.3): resolves a
// native extension by path and runs its inject function against the current
// frame's owning module.
func (vm *VM) loadDylibOp(f *Frame, inst bytecode.Instruction) (value.Value, bool, bool, error) {
	c, cerr := vm.constant(f, int(inst.Operands[0]))
	if cerr != nil {
		return nil, false, false, cerr
	}
	path, ok := c.(value.Str)
	if !ok {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonNoSuchModuleConstant, "LoadDylib path constant is not a string").AtSource(f.sourcePointer())
	}
	inject, found := vm.dylibs.Lookup(string(path))
	if !found {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonImportNotAvailable, "no native extension registered at %q", path).AtSource(f.sourcePointer())
	}
	if f.Module == nil {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonNoSuchModuleConstant, "no owning module for LoadDylib").AtSource(f.sourcePointer())
	}
	result := inject(vm, f.Module)
	if result.Err != nil {
		return nil, false, false, vmerr.NewVmError(vmerr.ReasonImportNotAvailable, "%v", result.Err).AtSource(f.sourcePointer())
	}
	return nil, false, false, nil
}
