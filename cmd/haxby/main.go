// cmd/haxby is a thin runner around the core VM: it owns no compiler (one
// is an out-of-scope external collaborator per spec.md §1), so it hand-
// assembles its demo program directly with bytecode.Writer and runs it
// through the same Load/RunFunction path any embedding host would use.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"haxby/internal/bytecode"
	"haxby/internal/ext/crypto"
	"haxby/internal/ext/database"
	"haxby/internal/ext/filesystem"
	"haxby/internal/ext/network"
	"haxby/internal/ext/system"
	"haxby/internal/value"
	"haxby/internal/vm"
)

const version = "0.1.0"

var (
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("haxby %s (build %s, commit %s)\n", version, buildDate, gitCommit)
		return
	}

	runID := uuid.New()
	log.Printf("haxby run %s starting", runID)

	machine := vm.New(demoFetcher{})
	machine.Dylibs().Register("crypto", crypto.Inject)
	machine.Dylibs().Register("database", database.Inject)
	machine.Dylibs().Register("network", network.Inject)
	machine.Dylibs().Register("filesystem", filesystem.Inject)
	machine.Dylibs().Register("system", system.Inject)

	mod, err := machine.Modules().Import("demo")
	if err != nil {
		fail(runID.String(), err)
	}
	log.Printf("loaded module %q (id %s)", mod.Path, mod.ID)

	mainSym, err := machine.Interner().Intern("main")
	if err != nil {
		fail(runID.String(), err)
	}
	mainVal, ok := mod.Get(mainSym)
	if !ok {
		fail(runID.String(), fmt.Errorf("demo module never defined main"))
	}
	mainFn, ok := mainVal.(*value.Function)
	if !ok {
		fail(runID.String(), fmt.Errorf("demo module's main is not a function"))
	}

	result, err := machine.RunFunction(mainFn, []value.Value{value.Int(19), value.Int(23)})
	if err != nil {
		fail(runID.String(), err)
	}
	fmt.Println(value.Inspect(result))
}

// fail prints a diagnostic for err — colorized if stdout is a terminal —
// and exits non-zero, the uncaught-exception/VmError reporting path a host
// needs since the VM itself never writes to stdout.
func fail(runID string, err error) {
	msg := fmt.Sprintf("haxby[%s]: %v", runID, err)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprintf(os.Stderr, "\x1b[31m%s\x1b[0m\n", msg)
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(1)
}

// demoFetcher serves the one hand-assembled module this runner ships,
// standing in for the out-of-scope compiler's compile-or-cache pipeline
// (modreg.Fetcher, spec.md §1).
type demoFetcher struct{}

func (demoFetcher) Fetch(path string) (*bytecode.CompiledModule, error) {
	if path != "demo" {
		return nil, fmt.Errorf("demoFetcher: no such module %q", path)
	}
	return buildDemoModule(), nil
}

// buildDemoModule hand-assembles a tiny program: its entry loads the crypto
// native extension (exercised for its side effect of binding Crypto into
// the module) and defines a two-argument "main" function that adds its
// arguments, using bytecode.Writer to stay byte-compatible with the
// decoder rather than hand-counting offsets.
func buildDemoModule() *bytecode.CompiledModule {
	main := bytecode.NewWriter()
	main.EmitU8(bytecode.ReadLocal, 0)
	main.EmitU8(bytecode.ReadLocal, 1)
	main.Emit(bytecode.Add)
	main.Emit(bytecode.Return)

	mainCode := &bytecode.CompiledCodeObject{
		Name:         "main",
		RequiredArgc: 2,
		DefaultArgc:  2,
		FrameSize:    2,
		Body:         main.Bytes(),
	}

	entry := bytecode.NewWriter()
	entry.EmitU16(bytecode.LoadDylib, 0) // "crypto"
	entry.Emit(bytecode.Push0)           // uplevel count
	entry.EmitU16(bytecode.Push, 1)      // the main code object
	entry.EmitU8(bytecode.BuildFunction, 0)
	entry.EmitU16(bytecode.WriteNamed, 2) // "main"
	entry.Emit(bytecode.ReturnUnit)

	entryCode := &bytecode.CompiledCodeObject{
		Name: "demo-entry",
		Body: entry.Bytes(),
	}

	return &bytecode.CompiledModule{
		Path: "demo",
		Constants: []bytecode.Constant{
			{Kind: bytecode.ConstString, String: "crypto"},
			{Kind: bytecode.ConstCodeObject, Code: mainCode},
			{Kind: bytecode.ConstString, String: "main"},
		},
		Entry: entryCode,
	}
}
