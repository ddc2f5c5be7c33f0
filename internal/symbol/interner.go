// Package symbol implements the VM-wide string interner. Every name-based
// lookup in the core (attributes, operator protocol hooks, named values)
// goes through a Symbol rather than a raw string.
package symbol

import "fmt"

// Symbol is a dense 32-bit id issued by an Interner. Identical strings
// interned by the same Interner always yield identical Symbols.
type Symbol uint32

// maxSymbols bounds the interner the way spec.md §4.1 requires: the id
// space is a uint32, so exhaustion is a real (if exotic) failure mode.
const maxSymbols = 1<<32 - 1

// ErrTooManySymbols is returned by Intern once the id space is exhausted.
var ErrTooManySymbols = fmt.Errorf("symbol: too many symbols interned")

// Interner maps strings to Symbols and back. It is not safe for concurrent
// use; the owning VM is the sole mutator, per spec.md §5.
type Interner struct {
	names map[string]Symbol
	ids   []string
}

// New creates an Interner with the well-known symbols of §3.1 pre-populated
// at the fixed offsets declared in wellknown.go.
func New() *Interner {
	in := &Interner{
		names: make(map[string]Symbol, len(wellKnownNames)*2),
		ids:   make([]string, 0, len(wellKnownNames)*2),
	}
	for _, name := range wellKnownNames {
		in.mustIntern(name)
	}
	return in
}

func (in *Interner) mustIntern(name string) Symbol {
	s, err := in.Intern(name)
	if err != nil {
		// Only reachable if wellKnownNames overflows the id space, which
		// cannot happen for a fixed, small prefix.
		panic(err)
	}
	return s
}

// Intern returns the Symbol for name, allocating a new one if name has not
// been seen before by this Interner.
func (in *Interner) Intern(name string) (Symbol, error) {
	if s, ok := in.names[name]; ok {
		return s, nil
	}
	if len(in.ids) >= maxSymbols {
		return 0, ErrTooManySymbols
	}
	s := Symbol(len(in.ids))
	in.ids = append(in.ids, name)
	in.names[name] = s
	return s, nil
}

// Lookup returns the Symbol for name without interning it, if present.
func (in *Interner) Lookup(name string) (Symbol, bool) {
	s, ok := in.names[name]
	return s, ok
}

// Resolve returns the string a Symbol was interned from, if it was issued
// by this Interner.
func (in *Interner) Resolve(s Symbol) (string, bool) {
	if int(s) < 0 || int(s) >= len(in.ids) {
		return "", false
	}
	return in.ids[s], true
}

// Count returns the number of distinct symbols interned so far.
func (in *Interner) Count() int {
	return len(in.ids)
}
