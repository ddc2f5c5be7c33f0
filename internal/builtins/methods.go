package builtins

import (
	"haxby/internal/shape"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

// RegisterMethods attaches the small fixed attribute surface spec.md §4.5
// item 6 describes for primitives, lists, and functions: enough built-in
// methods for programs to do real work without a native extension.
func (c *Catalogue) RegisterMethods(syms *symbol.Interner, reg *shape.Registry) {
	set := func(box *value.Box, name string, fn *value.NativeFunction) {
		sym := mustIntern(syms, name)
		box.Set(reg, sym, fn)
	}

	listBox := &c.List.Builtin.Members
	set(listBox, "len", &value.NativeFunction{Name: "List.len", Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
		l := recv.(*value.List)
		return value.Int(len(l.Items)), nil, nil
	}})
	set(listBox, "push", &value.NativeFunction{Name: "List.push", RequiredArgc: 1, Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
		l := recv.(*value.List)
		l.Items = append(l.Items, args[0])
		return c.UnitValue, nil, nil
	}})
	set(listBox, "pop", &value.NativeFunction{Name: "List.pop", Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
		l := recv.(*value.List)
		if len(l.Items) == 0 {
			return nil, c.NewRuntimeError("IndexOutOfBounds", value.Int(-1)), nil
		}
		last := l.Items[len(l.Items)-1]
		l.Items = l.Items[:len(l.Items)-1]
		return last, nil, nil
	}})

	strBox := &c.String.Builtin.Members
	set(strBox, "len", &value.NativeFunction{Name: "String.len", Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
		return value.Int(len(string(recv.(value.Str)))), nil, nil
	}})

	intBox := &c.Int.Builtin.Members
	set(intBox, "to_float", &value.NativeFunction{Name: "Int.to_float", Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
		return value.Float(float64(recv.(value.Int))), nil, nil
	}})

	floatBox := &c.Float.Builtin.Members
	set(floatBox, "to_int", &value.NativeFunction{Name: "Float.to_int", Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
		return value.Int(int64(recv.(value.Float))), nil, nil
	}})

	maybeBox := &c.maybeEnum.Members
	set(maybeBox, "unwrap_or", &value.NativeFunction{Name: "Maybe.unwrap_or", RequiredArgc: 1, Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
		ev := recv.(*value.EnumValue)
		if ev.CaseIndex == 0 {
			return ev.Payload, nil, nil
		}
		return args[0], nil, nil
	}})

	// hasattr lives on Any's member table, the universal fallback every
	// other receiver kind consults once its own box/members miss (see
	// Catalogue.Lookup), so it reaches every value regardless of kind.
	anyBox := &c.Any.Builtin.Members
	set(anyBox, "hasattr", &value.NativeFunction{Name: "Any.hasattr", RequiredArgc: 1, Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
		name, ok := args[0].(value.Str)
		if !ok {
			return nil, c.NewRuntimeError("UnexpectedType", nil), nil
		}
		sym, found := syms.Lookup(string(name))
		if !found {
			return value.Bool(false), nil, nil
		}
		_, has := c.Lookup(recv, sym)
		return value.Bool(has), nil, nil
	}})

	// alloc(T) builds T's zero value: the empty string/0/false/empty list
	// for a built-in, or a freshly shaped instance with no attributes set
	// for a struct type.
	typeBox := &c.Type.Builtin.Members
	set(typeBox, "alloc", &value.NativeFunction{Name: "Type.alloc", RequiredArgc: 1, Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
		tv, ok := args[0].(*value.TypeValue)
		if !ok {
			return nil, c.NewRuntimeError("UnexpectedType", nil), nil
		}
		switch tv.TVKind {
		case value.TVStruct:
			return &value.Object{Struct: tv.Struct, Attrs: value.Box{Shape: reg.Empty()}}, nil, nil
		case value.TVBuiltinNative:
			switch tv.Name {
			case "Int":
				return value.Int(0), nil, nil
			case "Float":
				return value.Float(0), nil, nil
			case "Bool":
				return value.Bool(false), nil, nil
			case "String":
				return value.Str(""), nil, nil
			case "List":
				return &value.List{}, nil, nil
			}
		}
		return nil, c.NewRuntimeError("UnexpectedType", nil), nil
	}})
}
