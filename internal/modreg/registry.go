// Package modreg implements the Module Registry of spec.md §2 item 9:
// caches loaded modules by path and detects cyclic imports.
package modreg

import (
	"fmt"

	"haxby/internal/bytecode"
	"haxby/internal/loader"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

// Fetcher resolves a module path to its compiled form. The real compiler is
// an out-of-scope external collaborator (spec.md §1); a host embeds the VM
// by supplying a Fetcher backed by its own compile-or-cache pipeline.
type Fetcher interface {
	Fetch(path string) (*bytecode.CompiledModule, error)
}

// RunEntry executes a freshly loaded module's entry code object to
// populate its named-value table (spec.md §4.4 step 3). Supplied by the VM
// package, which owns the execution loop; kept as a callback here so this
// package does not need to import vm (which itself imports modreg).
type RunEntry func(mod *value.Module) error

// ErrCircularImport is returned when a module imports itself, directly or
// transitively, while it is still loading (spec.md §4.5 Import, §7).
var ErrCircularImport = fmt.Errorf("modreg: circular import")

// Registry caches modules by path and guards against cycles.
type Registry struct {
	fetcher Fetcher
	syms    *symbol.Interner
	run     RunEntry
	cache   map[string]*value.Module
	loading map[string]bool
	nextID  int
}

// New creates a Registry. run is called once per freshly loaded module,
// before it is cached, to execute its entry code object.
func New(fetcher Fetcher, syms *symbol.Interner, run RunEntry) *Registry {
	return &Registry{
		fetcher: fetcher,
		syms:    syms,
		run:     run,
		cache:   make(map[string]*value.Module),
		loading: make(map[string]bool),
	}
}

// Import resolves path to a cached or freshly loaded+executed module
// (spec.md §4.5 Import opcode).
func (r *Registry) Import(path string) (*value.Module, error) {
	if mod, ok := r.cache[path]; ok {
		return mod, nil
	}
	if r.loading[path] {
		return nil, ErrCircularImport
	}

	r.loading[path] = true
	defer delete(r.loading, path)

	cm, err := r.fetcher.Fetch(path)
	if err != nil {
		return nil, err
	}

	r.nextID++
	moduleID := fmt.Sprintf("mod-%d", r.nextID)
	mod, err := loader.Load(cm, r.syms, moduleID)
	if err != nil {
		return nil, err
	}

	if err := r.run(mod); err != nil {
		return nil, err
	}

	r.cache[path] = mod
	return mod, nil
}

// Get returns a module already in the cache, without attempting to load it.
func (r *Registry) Get(path string) (*value.Module, bool) {
	mod, ok := r.cache[path]
	return mod, ok
}

// Register directly caches a pre-built module (used by the host to seed
// built-in modules that never go through Fetch/Load).
func (r *Registry) Register(path string, mod *value.Module) {
	r.cache[path] = mod
}

// Evict drops path's cached module, if any, reporting whether it was
// present. A subsequent Import re-fetches and re-runs the module from
// scratch. This is the liveness edge a value.WeakRef polls: once the
// module that produced a value is evicted, the weak reference it backs
// reports itself dead even though Go's GC may not have collected anything
// yet (spec.md has no eviction opcode; a host calls this directly, e.g. to
// force a reload).
func (r *Registry) Evict(path string) bool {
	if _, ok := r.cache[path]; !ok {
		return false
	}
	delete(r.cache, path)
	return true
}
