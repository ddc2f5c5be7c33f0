// Package dylib implements the native extension ABI of spec.md §6.3:
// LoadDylib resolves a host-specific library and calls its exported
// dylib_haxby_inject(vm, module) entry point. Go has no portable dlopen, and
// the teacher never reaches for the stdlib plugin package either, so a
// native "library" here is a Go package registered into the VM's Registry
// under the path the bytecode names it by — the same seam, without
// pretending Go can load a real .so across platforms.
package dylib

import (
	"fmt"

	"haxby/internal/builtins"
	"haxby/internal/shape"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

// Host is the slice of VM capability a native extension's inject function
// needs: interning symbols, transitioning shapes, raising the same
// catchable RuntimeError cases the core opcodes raise, and registering
// itself into the module passed to it. Kept as an interface (rather than
// importing the vm package directly) so dylib has no dependency on vm,
// which is what lets vm depend on dylib instead.
type Host interface {
	Interner() *symbol.Interner
	Shapes() *shape.Registry
	Builtins() *builtins.Catalogue
}

// LoadResult is the outcome of one inject call (spec.md §6.3): success, or a
// descriptive failure the VM surfaces as ImportNotAvailable.
type LoadResult struct {
	Err error
}

// Ok reports a successful injection.
func Ok() LoadResult { return LoadResult{} }

// Fail reports a failed injection with a reason.
func Fail(format string, args ...interface{}) LoadResult {
	return LoadResult{Err: fmt.Errorf(format, args...)}
}

// Inject is the shape of a native library's dylib_haxby_inject entry point.
type Inject func(host Host, mod *value.Module) LoadResult

// Registry maps a bytecode-level library path to its Inject function. Each
// VM instance owns its own Registry; the host registers extensions into it
// explicitly via Register.
type Registry struct {
	byPath map[string]Inject
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byPath: make(map[string]Inject)}
}

// Register binds path to fn, overwriting any previous registration — the
// last call wins.
func (r *Registry) Register(path string, fn Inject) {
	r.byPath[path] = fn
}

// Lookup resolves path to its Inject function.
func (r *Registry) Lookup(path string) (Inject, bool) {
	fn, ok := r.byPath[path]
	return fn, ok
}
