package builtins

import "haxby/internal/value"

// Isa implements the Isa opcode (spec.md §4.3/§4.7): does v belong to type
// t? Any always matches; a struct/enum/mixin type matches only exact
// instances of that type (no inheritance beyond mixin linearization, which
// is already baked into a type's own member table at IncludeMixin time);
// a built-in native type matches by Value Kind.
func (c *Catalogue) Isa(v value.Value, t *value.TypeValue) bool {
	if t == c.Any {
		return true
	}
	switch t.TVKind {
	case value.TVStruct:
		obj, ok := v.(*value.Object)
		return ok && obj.Struct == t.Struct
	case value.TVEnum:
		ev, ok := v.(*value.EnumValue)
		return ok && ev.Enum == t.Enum
	case value.TVMixin:
		return false // mixins are not directly instantiable
	case value.TVModule:
		_, ok := v.(*value.Module)
		return ok
	case value.TVBuiltinNative:
		switch t {
		case c.Int:
			_, ok := v.(value.Int)
			return ok
		case c.Float:
			_, ok := v.(value.Float)
			return ok
		case c.Bool:
			_, ok := v.(value.Bool)
			return ok
		case c.String:
			_, ok := v.(value.Str)
			return ok
		case c.List:
			_, ok := v.(*value.List)
			return ok
		case c.Type:
			_, ok := v.(*value.TypeValue)
			return ok
		}
	}
	return false
}

// TypeCheckFor wraps Isa as a value.TypeCheck predicate, for module
// typedefs (spec.md §3.7) and enum-case payload constraints (spec.md §3.4).
func (c *Catalogue) TypeCheckFor(t *value.TypeValue) *value.TypeCheck {
	return &value.TypeCheck{
		Describe: t.Name,
		Predicate: func(v value.Value) bool {
			return c.Isa(v, t)
		},
	}
}
