package modreg

import (
	"fmt"
	"testing"

	"haxby/internal/bytecode"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

type mapFetcher map[string]*bytecode.CompiledModule

func (f mapFetcher) Fetch(path string) (*bytecode.CompiledModule, error) {
	cm, ok := f[path]
	if !ok {
		return nil, fmt.Errorf("no such module %q", path)
	}
	return cm, nil
}

func haltModule(path string) *bytecode.CompiledModule {
	return &bytecode.CompiledModule{
		Path:  path,
		Entry: &bytecode.CompiledCodeObject{Name: path, Body: []byte{byte(bytecode.Halt)}},
	}
}

func TestImportCachesByPath(t *testing.T) {
	fetcher := mapFetcher{"a": haltModule("a")}
	syms := symbol.New()
	runs := 0
	reg := New(fetcher, syms, func(mod *value.Module) error {
		runs++
		return nil
	})

	m1, err := reg.Import("a")
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	m2, err := reg.Import("a")
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if m1 != m2 {
		t.Fatalf("expected cached module to be returned by identity")
	}
	if runs != 1 {
		t.Fatalf("expected entry to run exactly once, ran %d times", runs)
	}
}

func TestImportDetectsCircularImport(t *testing.T) {
	fetcher := mapFetcher{"a": haltModule("a")}
	syms := symbol.New()

	var reg *Registry
	reg = New(fetcher, syms, func(mod *value.Module) error {
		if mod.Path == "a" {
			// Re-entrant import of the module currently loading.
			_, err := reg.Import("a")
			if err != ErrCircularImport {
				t.Fatalf("expected ErrCircularImport, got %v", err)
			}
		}
		return nil
	})

	if _, err := reg.Import("a"); err != nil {
		t.Fatalf("outer import: %v", err)
	}
}

func TestImportPropagatesFetchError(t *testing.T) {
	fetcher := mapFetcher{}
	syms := symbol.New()
	reg := New(fetcher, syms, func(mod *value.Module) error { return nil })

	if _, err := reg.Import("missing"); err == nil {
		t.Fatalf("expected fetch error for missing module")
	}
}

func TestImportPropagatesRunError(t *testing.T) {
	fetcher := mapFetcher{"a": haltModule("a")}
	syms := symbol.New()
	boom := fmt.Errorf("boom")
	reg := New(fetcher, syms, func(mod *value.Module) error { return boom })

	if _, err := reg.Import("a"); err != boom {
		t.Fatalf("expected run error to propagate, got %v", err)
	}
	if _, ok := reg.Get("a"); ok {
		t.Fatalf("module should not be cached when its entry run fails")
	}
}

func TestRegisterSeedsCacheWithoutFetch(t *testing.T) {
	fetcher := mapFetcher{}
	syms := symbol.New()
	reg := New(fetcher, syms, func(mod *value.Module) error { return nil })

	mod := value.NewModule("builtin:io", "builtin-io")
	reg.Register("builtin:io", mod)

	got, err := reg.Import("builtin:io")
	if err != nil {
		t.Fatalf("import of registered module should not fetch: %v", err)
	}
	if got != mod {
		t.Fatalf("expected registered module to be returned")
	}
}
