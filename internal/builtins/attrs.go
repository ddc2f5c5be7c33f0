package builtins

import (
	"haxby/internal/symbol"
	"haxby/internal/value"
)

// Lookup implements the full attribute lookup-order chain of spec.md §4.5
// item 2 for every built-in value kind: the receiver's own box or member
// table first, falling back to the universal Any members table so a method
// registered there (hasattr, see RegisterMethods) reaches every value
// regardless of kind. internal/vm's lookupAttribute is a thin wrapper around
// this, since the chain itself needs nothing VM-scoped beyond the catalogue.
func (c *Catalogue) Lookup(recv value.Value, sym symbol.Symbol) (value.Value, bool) {
	if v, ok := c.lookupOwn(recv, sym); ok {
		return v, true
	}
	return c.Any.Builtin.Members.Get(sym)
}

func (c *Catalogue) lookupOwn(recv value.Value, sym symbol.Symbol) (value.Value, bool) {
	switch r := recv.(type) {
	case *value.Module:
		return r.Get(sym)
	case *value.Object:
		if v, ok := r.Attrs.Get(sym); ok {
			return v, true
		}
		return lookupOnStruct(r.Struct, sym)
	case *value.EnumValue:
		if v, ok := r.Attrs.Get(sym); ok {
			return v, true
		}
		return lookupOnEnum(r.Enum, sym)
	case *value.TypeValue:
		switch r.TVKind {
		case value.TVStruct:
			return lookupOnStruct(r.Struct, sym)
		case value.TVEnum:
			return lookupOnEnum(r.Enum, sym)
		case value.TVMixin:
			return r.Mixin.Members.Get(sym)
		default:
			if r.Builtin != nil {
				return r.Builtin.Members.Get(sym)
			}
			return nil, false
		}
	case *value.Mixin:
		return r.Members.Get(sym)
	case *value.List:
		return c.List.Builtin.Members.Get(sym)
	case value.Str:
		return c.String.Builtin.Members.Get(sym)
	case value.Int:
		return c.Int.Builtin.Members.Get(sym)
	case value.Float:
		return c.Float.Builtin.Members.Get(sym)
	case value.Bool:
		return c.Bool.Builtin.Members.Get(sym)
	default:
		return nil, false
	}
}

func lookupOnStruct(s *value.Struct, sym symbol.Symbol) (value.Value, bool) {
	if v, ok := s.Members.Get(sym); ok {
		return v, true
	}
	for _, m := range s.Mixins {
		if v, ok := m.Members.Get(sym); ok {
			return v, true
		}
	}
	return nil, false
}

func lookupOnEnum(e *value.Enum, sym symbol.Symbol) (value.Value, bool) {
	if v, ok := e.Members.Get(sym); ok {
		return v, true
	}
	for _, m := range e.Mixins {
		if v, ok := m.Members.Get(sym); ok {
			return v, true
		}
	}
	return nil, false
}
