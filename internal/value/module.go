package value

import "haxby/internal/symbol"

// NamedValue pairs a module-level value with its optional declared type
// witness (spec.md §3.7): a name may be typedef'd independently of being
// assigned, and a later assignment must satisfy the witness.
type NamedValue struct {
	Value   Value
	Witness *TypeCheck // nil if the name has no declared type
	Bound   bool       // false until the name has actually been assigned
}

// Module is the runtime form of a loaded compiled module (spec.md §3.7).
type Module struct {
	Path   string
	ID     string // correlation id surfaced in diagnostics, see SPEC_FULL.md
	Named  map[symbol.Symbol]*NamedValue
	Consts []Value // materialized constant pool, indexed as in the source
	Entry  *CodeObject
}

func (*Module) Kind() Kind { return KindModule }

// NewModule creates an empty runtime module ready to have its entry code
// object executed to populate Named (spec.md §4.4 step 3).
func NewModule(path, id string) *Module {
	return &Module{
		Path:  path,
		ID:    id,
		Named: make(map[symbol.Symbol]*NamedValue),
	}
}

// Get reads a named value, per the module lookup order of spec.md §4.5.
func (m *Module) Get(sym symbol.Symbol) (Value, bool) {
	nv, ok := m.Named[sym]
	if !ok || !nv.Bound {
		return nil, false
	}
	return nv.Value, true
}

// Typedef declares name with a type witness, independent of assignment
// (spec.md §3.7).
func (m *Module) Typedef(sym symbol.Symbol, witness *TypeCheck) {
	nv, ok := m.Named[sym]
	if !ok {
		m.Named[sym] = &NamedValue{Witness: witness}
		return
	}
	nv.Witness = witness
}

// ErrUnexpectedType is returned by Assign when v fails the name's declared
// witness (spec.md §3.7, §8 "Module typedef").
var ErrUnexpectedType = &typeError{}

type typeError struct{}

func (*typeError) Error() string { return "UnexpectedType" }

// Assign sets name := v, enforcing any declared witness.
func (m *Module) Assign(sym symbol.Symbol, v Value) error {
	nv, ok := m.Named[sym]
	if !ok {
		nv = &NamedValue{}
		m.Named[sym] = nv
	}
	if nv.Witness != nil && !nv.Witness.Predicate(v) {
		return ErrUnexpectedType
	}
	nv.Value = v
	nv.Bound = true
	return nil
}

// Lift copies src's named values into m, preserving existing type witnesses
// on m (spec.md §4.5 LiftModule, glossary "Lift module").
func (m *Module) Lift(src *Module) error {
	for sym, nv := range src.Named {
		if !nv.Bound {
			continue
		}
		if err := m.Assign(sym, nv.Value); err != nil {
			return err
		}
	}
	return nil
}
