// Package value implements the tagged-union runtime value model of
// spec.md §3.3: every value the VM manipulates — primitives, containers,
// objects, types, modules, and host-owned opaque payloads — is a Value.
//
// Go's garbage collector already handles the reference graph (including
// cycles) among heap values, so unlike the host this core was distilled
// from, nothing here carries a manual reference count; see DESIGN.md for
// the rationale.
package value

import (
	"haxby/internal/shape"
	"haxby/internal/symbol"
)

// Kind tags a Value's concrete variant.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
	KindList
	KindObject
	KindEnumValue
	KindCodeObject
	KindFunction
	KindBoundFunction
	KindMixin
	KindType
	KindModule
	KindOpaque
	KindTypeCheck
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	case KindList:
		return "List"
	case KindObject:
		return "Object"
	case KindEnumValue:
		return "EnumValue"
	case KindCodeObject:
		return "CodeObject"
	case KindFunction:
		return "Function"
	case KindBoundFunction:
		return "BoundFunction"
	case KindMixin:
		return "Mixin"
	case KindType:
		return "Type"
	case KindModule:
		return "Module"
	case KindOpaque:
		return "Opaque"
	case KindTypeCheck:
		return "TypeCheck"
	default:
		return "Unknown"
	}
}

// Value is implemented by every runtime value variant.
type Value interface {
	Kind() Kind
}

// Int is a 64-bit signed integer, by-value per spec.md §3.3.
type Int int64

func (Int) Kind() Kind { return KindInt }

// Float is an IEEE-754 double, by-value.
type Float float64

func (Float) Kind() Kind { return KindFloat }

// Bool is a boolean, by-value. The VM exposes only the two singletons
// True and False (spec.md §6.5) but the type itself is an ordinary value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }

// Str is immutable text. Go strings are already immutable and
// reference-counted internally by the runtime's string header, which is
// exactly the "immutable text" spec.md §3.3 asks for.
type Str string

func (Str) Kind() Kind { return KindString }

// List is an ordered, shared-by-reference sequence. It must be used as
// *List (never List) so aliasing matches spec.md's "shared by reference".
type List struct {
	Items []Value
}

func (*List) Kind() Kind { return KindList }

// Opaque wraps a type-erased, host-owned payload (spec.md §3.3): the value
// surface a native extension (§6.3) hands back into the VM for a handle it
// alone understands, e.g. an open database connection or socket.
type Opaque struct {
	TypeName string
	Payload  interface{}
}

func (*Opaque) Kind() Kind { return KindOpaque }

// TypeCheck is a predicate witness: the runtime form of a type annotation,
// used by Isa, module typedefs (spec.md §3.7), and struct/enum payload
// constraints.
type TypeCheck struct {
	Describe  string
	Predicate func(Value) bool
}

func (*TypeCheck) Kind() Kind { return KindTypeCheck }

// IsTruthy implements the language's notion of truthiness for JumpTrue /
// JumpFalse / LogicalAnd / LogicalOr: only Bool(false) is falsy. Every
// other value, including Int(0), is truthy — this core does not follow
// C-style numeric falsiness.
func IsTruthy(v Value) bool {
	if b, ok := v.(Bool); ok {
		return bool(b)
	}
	return true
}

// AttributeBox is implemented by every Value variant that carries a
// shape-indexed attribute store reachable via ReadAttributeSymbol /
// WriteAttributeSymbol (spec.md §4.5 item 2).
type AttributeBox interface {
	Box() *Box
}

// Box is the shared shape-indexed slot vector described in spec.md §3.4
// ("ordered table of member names ... stored as a shape-indexed box").
// Object's own attributes, and every Struct/Enum/Mixin's member table,
// are a Box.
type Box struct {
	Shape *shape.Shape
	Slots []Value
}

// NewBox creates an empty Box rooted at the registry's empty shape.
func NewBox(reg *shape.Registry) *Box {
	return &Box{Shape: reg.Empty()}
}

// Get reads sym from the box via its current shape, spec.md §4.2/§4.5. A
// zero-value Box (Shape left nil by a constructor that never touched the
// registry) behaves as the empty shape: every lookup misses.
func (b *Box) Get(sym symbol.Symbol) (Value, bool) {
	if b.Shape == nil {
		return nil, false
	}
	slot, ok := b.Shape.Slot(sym)
	if !ok {
		return nil, false
	}
	return b.Slots[slot], true
}

// Set writes sym := v, transitioning the box's shape if sym is new
// (spec.md §3.2's transition rule). A nil Shape is treated as the
// registry's empty shape, so a zero-value Box can be written to directly.
func (b *Box) Set(reg *shape.Registry, sym symbol.Symbol, v Value) {
	from := b.Shape
	if from == nil {
		from = reg.Empty()
	}
	newShape, slot := reg.Transition(from, sym)
	if int(slot) == len(b.Slots) {
		b.Slots = append(b.Slots, v)
	} else {
		b.Slots[slot] = v
	}
	b.Shape = newShape
}
