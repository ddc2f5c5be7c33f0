package value

import "math"

// StructuralEqual implements the fallback of spec.md §4.5 ("Equality"):
// reached when neither operand's `_op_impl_equals` protocol method
// declines-to-exception or applies. Primitives compare by value; lists,
// objects, functions, and modules compare by reference identity; enum
// values compare recursively by container + case + payload.
//
// The open question in spec.md §9 ("equality of float-to-int") is resolved
// here by widening: Int(1) == Float(1.0) compares the int widened to
// float64, matching the numeric-promotion rule Add/Sub/etc. already use
// (see vm/arith.go) so `==` and arithmetic agree on what "the same number"
// means.
func StructuralEqual(a, b Value) bool {
	switch av := a.(type) {
	case Int:
		switch bv := b.(type) {
		case Int:
			return av == bv
		case Float:
			return float64(av) == float64(bv)
		}
		return false
	case Float:
		switch bv := b.(type) {
		case Int:
			return float64(av) == float64(bv)
		case Float:
			return floatEqual(float64(av), float64(bv))
		}
		return false
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case *List:
		bv, ok := b.(*List)
		return ok && av == bv
	case *Object:
		bv, ok := b.(*Object)
		return ok && av == bv
	case *Function:
		bv, ok := b.(*Function)
		return ok && av == bv
	case *BoundFunction:
		bv, ok := b.(*BoundFunction)
		return ok && av.Receiver == bv.Receiver && av.Callee == bv.Callee
	case *Module:
		bv, ok := b.(*Module)
		return ok && av == bv
	case *TypeValue:
		bv, ok := b.(*TypeValue)
		return ok && av == bv
	case *Mixin:
		bv, ok := b.(*Mixin)
		return ok && av == bv
	case *EnumValue:
		bv, ok := b.(*EnumValue)
		if !ok || av.Enum != bv.Enum || av.CaseIndex != bv.CaseIndex {
			return false
		}
		if av.Payload == nil || bv.Payload == nil {
			return av.Payload == nil && bv.Payload == nil
		}
		return StructuralEqual(av.Payload, bv.Payload)
	case *Opaque:
		bv, ok := b.(*Opaque)
		return ok && av == bv
	default:
		return a == b
	}
}

// floatEqual preserves IEEE-754 semantics: NaN != NaN, per spec.md §8.
func floatEqual(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return a == b
}
