// Package system is a native extension (spec.md §6.3) exposing the two
// process-level builtins the out-of-scope compiler's prelude used to wire
// directly into every VM instance (original_source/vm-lib/src/builtins/
// exit.rs, sleep.rs): process exit and blocking sleep. Neither belongs in
// the core opcode set — they are host-visible side effects exactly like
// database/network/filesystem access, so they are gated behind LoadDylib
// like any other extension rather than being always-on globals.
package system

import (
	"os"
	"time"

	"haxby/internal/dylib"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

// Inject binds a stateless "System" struct exposing exit and sleep_ms to
// mod.
func Inject(host dylib.Host, mod *value.Module) dylib.LoadResult {
	reg := host.Shapes()
	syms := host.Interner()
	b := host.Builtins()

	st := &value.Struct{Name: "System", Members: value.Box{Shape: reg.Empty()}}

	// exit terminates the process immediately with the given status code,
	// exactly like the original's exit builtin — it never returns to the
	// caller, catchable or otherwise, and is distinct from the cooperative
	// Halt opcode's VM.ExitCode (which lets the host's own run loop decide
	// what "stopping" means).
	st.Members.Set(reg, mustSym(syms, "exit"), &value.NativeFunction{
		Name: "System.exit", RequiredArgc: 1,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			code, ok := args[0].(value.Int)
			if !ok {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			os.Exit(int(code))
			return nil, nil, nil
		},
	})

	st.Members.Set(reg, mustSym(syms, "sleep_ms"), &value.NativeFunction{
		Name: "System.sleep_ms", RequiredArgc: 1,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			ms, ok := args[0].(value.Int)
			if !ok {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			if ms < 0 {
				return nil, b.NewRuntimeError("OperationFailed", value.Str("cannot sleep < 0 milliseconds")), nil
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
			return b.UnitValue, nil, nil
		},
	})

	systemType := &value.TypeValue{TVKind: value.TVStruct, Struct: st, Name: "System"}
	systemSym, err := syms.Intern("System")
	if err != nil {
		return dylib.Fail("system: %v", err)
	}
	if err := mod.Assign(systemSym, systemType); err != nil {
		return dylib.Fail("system: %v", err)
	}
	return dylib.Ok()
}

func mustSym(syms *symbol.Interner, name string) symbol.Symbol {
	s, err := syms.Intern(name)
	if err != nil {
		panic(err)
	}
	return s
}
