package value

import "haxby/internal/symbol"

// Object is an instance of a Struct, with its own attribute Box layered on
// top of the struct's member table (spec.md §3.3, §4.5 lookup order item 2).
type Object struct {
	Attrs  Box
	Struct *Struct
}

func (*Object) Kind() Kind { return KindObject }

func (o *Object) Box() *Box { return &o.Attrs }

// Struct is a named type with an ordered member table (methods and
// associated values) and a linearized list of included mixins
// (spec.md §3.4). Types are identity-equal.
type Struct struct {
	Name    string
	Members Box
	Mixins  []*Mixin // linearized inclusion order, most-recent first
}

// Mixin mirrors Struct's member table but is never directly instantiated;
// it is included into a Struct or Enum via IncludeMixin.
type Mixin struct {
	Name    string
	Members Box
}

func (*Mixin) Kind() Kind { return KindMixin }

func (m *Mixin) Box() *Box { return &m.Members }

// EnumCase is one case of an Enum: a name and an optional payload
// type-check constraint.
type EnumCase struct {
	Name    string
	NameSym symbol.Symbol
	Payload *TypeCheck // nil if the case carries no payload
}

// Enum is a named type with an ordered case list plus a member table for
// enum-level methods (spec.md §3.4).
type Enum struct {
	Name    string
	Cases   []EnumCase
	Members Box
	Mixins  []*Mixin
}

// CaseByName finds a case by its name symbol.
func (e *Enum) CaseByName(sym symbol.Symbol) (int, *EnumCase) {
	for i := range e.Cases {
		if e.Cases[i].NameSym == sym {
			return i, &e.Cases[i]
		}
	}
	return -1, nil
}

// EnumValue is one instantiated case of an Enum, optionally carrying a
// payload value (spec.md §3.3). Attrs is a per-instance attribute store,
// distinct from the enum's shared Members method table: a thrown
// RuntimeError accumulates its own `backtrace` list here as it propagates,
// never touching other instances of the same case (spec.md §7, §8
// "Exception monotonicity").
type EnumValue struct {
	Enum      *Enum
	CaseIndex int
	Payload   Value // nil if the case has none
	Attrs     Box
}

func (*EnumValue) Kind() Kind { return KindEnumValue }

// Box exposes the instance-level attribute store (spec.md §4.5 lookup order
// item 4 covers reads that fall through to the enum's own Members; writes
// such as backtrace accumulation always land here).
func (ev *EnumValue) Box() *Box { return &ev.Attrs }

// CaseName returns the name of the instantiated case.
func (ev *EnumValue) CaseName() string {
	return ev.Enum.Cases[ev.CaseIndex].Name
}

// TypeValueKind tags which concrete sort of type a TypeValue wraps
// (spec.md §3.3: Type(Struct|Enum|Mixin|BuiltinNative|Any|Module)).
type TypeValueKind int

const (
	TVStruct TypeValueKind = iota
	TVEnum
	TVMixin
	TVBuiltinNative
	TVAny
	TVModule
)

// TypeValue is the runtime representation of a type itself — what
// PushBuiltinTy and struct/enum declarations push onto the stack, and what
// Isa checks a value's type against.
type TypeValue struct {
	TVKind  TypeValueKind
	Struct  *Struct
	Enum    *Enum
	Mixin   *Mixin
	Builtin *BuiltinType
	Name    string
}

func (*TypeValue) Kind() Kind { return KindType }

// BuiltinType is a native type registered by the built-ins catalogue
// (spec.md §2 item 8) or by a native extension (spec.md §6.3): Int, Float,
// Bool, String, List, Maybe, Result, Unit, RuntimeError, Unimplemented, or
// a host-defined native type.
type BuiltinType struct {
	Name    string
	Members Box
}

func (bt *BuiltinType) Box() *Box { return &bt.Members }
