package vm

import (
	"haxby/internal/symbol"
	"haxby/internal/value"
)

// wireWeakRef adds Any.weak_ref() and the WeakRef struct it returns to the
// catalogue (SPEC_FULL.md's "Supplemented features" WeakRef, grounded on
// original_source/vm-lib's weak-reference builtin). value.WeakRef's Get
// needs an alive check against the module registry, and dylib.Host
// deliberately exposes no Modules() accessor to native extensions (spec.md
// §6.3 keeps extensions from reaching into VM-internal bookkeeping), so
// this lives here instead of in internal/builtins — vm is the one package
// that already holds both the catalogue and the module registry.
func (vm *VM) wireWeakRef() {
	getSym := vm.mustIntern("get")
	weakRefAttr := vm.mustIntern("__weakref")

	weakSt := &value.Struct{Name: "WeakRef", Members: value.Box{Shape: vm.shapes.Empty()}}
	weakSt.Members.Set(vm.shapes, getSym, &value.NativeFunction{
		Name: "WeakRef.get",
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			obj, ok := recv.(*value.Object)
			if !ok {
				return nil, vm.builtins.NewRuntimeError("UnexpectedType", nil), nil
			}
			raw, _ := obj.Attrs.Get(weakRefAttr)
			wr, ok := raw.(*value.WeakRef)
			if !ok {
				return nil, vm.builtins.NewRuntimeError("UnexpectedType", nil), nil
			}
			target, alive := wr.Get()
			if !alive {
				return vm.builtins.MaybeNone, nil, nil
			}
			return vm.builtins.NewSome(target), nil, nil
		},
	})

	// weak_ref wraps a closure's receiver value, its liveness tracked
	// through the closure's own defining module (see value.WeakRef's doc
	// comment): once that module is evicted from the registry, Get starts
	// reporting Maybe.None. Any other receiver kind has no module to track
	// liveness against, so it declines rather than fabricating a signal.
	anyBox := &vm.builtins.Any.Builtin.Members
	anyBox.Set(vm.shapes, vm.mustIntern("weak_ref"), &value.NativeFunction{
		Name: "Any.weak_ref",
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			fn, ok := recv.(*value.Function)
			if !ok {
				return nil, vm.builtins.NewRuntimeError("UnexpectedType", nil), nil
			}
			mod := fn.Module
			wr := value.NewWeakRef(recv, func() bool {
				cur, found := vm.modules.Get(mod.Path)
				return found && cur == mod
			})
			obj := &value.Object{Struct: weakSt, Attrs: value.Box{Shape: vm.shapes.Empty()}}
			obj.Attrs.Set(vm.shapes, weakRefAttr, wr)
			return obj, nil, nil
		},
	})
}

func (vm *VM) mustIntern(name string) symbol.Symbol {
	s, err := vm.syms.Intern(name)
	if err != nil {
		panic(err)
	}
	return s
}
