package vmerr

import (
	"haxby/internal/bytecode"
	"haxby/internal/shape"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

// AppendBacktrace implements spec.md §3.8 / §8's exception-monotonicity
// property: every program exception is an ordinary value carrying a
// `backtrace` attribute — a list of [source-buffer-name, line-number]
// pairs — that grows by exactly one distinct entry at each propagating
// frame. Only values with an attribute box (Object, EnumValue, ...) can
// carry one; anything else is left untouched, matching how a thrown Int or
// String simply has no backtrace to accumulate.
func AppendBacktrace(exc value.Value, syms *symbol.Interner, reg *shape.Registry, sp bytecode.SourcePointer) {
	box, ok := exc.(value.AttributeBox)
	if !ok {
		return
	}
	backtraceSym := symbol.AttrBacktrace
	b := box.Box()

	entry := &value.List{Items: []value.Value{
		value.Str(sp.Buffer),
		value.Int(sp.Line),
	}}

	existing, found := b.Get(backtraceSym)
	if !found {
		b.Set(reg, backtraceSym, &value.List{Items: []value.Value{entry}})
		return
	}
	list, ok := existing.(*value.List)
	if !ok {
		b.Set(reg, backtraceSym, &value.List{Items: []value.Value{entry}})
		return
	}
	list.Items = append(list.Items, entry)
}

// Backtrace reads the `backtrace` attribute off exc, if any.
func Backtrace(exc value.Value) []*value.List {
	box, ok := exc.(value.AttributeBox)
	if !ok {
		return nil
	}
	existing, found := box.Box().Get(symbol.AttrBacktrace)
	if !found {
		return nil
	}
	list, ok := existing.(*value.List)
	if !ok {
		return nil
	}
	out := make([]*value.List, 0, len(list.Items))
	for _, it := range list.Items {
		if l, ok := it.(*value.List); ok {
			out = append(out, l)
		}
	}
	return out
}
