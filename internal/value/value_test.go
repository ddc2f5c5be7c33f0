package value

import (
	"testing"

	"haxby/internal/shape"
	"haxby/internal/symbol"
)

func TestAttributeRoundTrip(t *testing.T) {
	syms := symbol.New()
	reg := shape.NewRegistry()
	a, _ := syms.Intern("a")

	box := NewBox(reg)
	box.Set(reg, a, Int(42))
	got, ok := box.Get(a)
	if !ok || got != Value(Int(42)) {
		t.Fatalf("Get(a) = %v, %v; want 42, true", got, ok)
	}
}

func TestSharedShapeAcrossObjects(t *testing.T) {
	syms := symbol.New()
	reg := shape.NewRegistry()
	a, _ := syms.Intern("a")
	b, _ := syms.Intern("b")
	c, _ := syms.Intern("c")

	st := &Struct{Name: "Box"}
	x := &Object{Struct: st, Attrs: Box{Shape: reg.Empty()}}
	x.Attrs.Set(reg, a, Int(1))
	x.Attrs.Set(reg, b, Int(2))
	x.Attrs.Set(reg, c, Int(3))

	y := &Object{Struct: st, Attrs: Box{Shape: reg.Empty()}}
	y.Attrs.Set(reg, a, Int(10))
	y.Attrs.Set(reg, b, Int(20))
	y.Attrs.Set(reg, c, Int(30))

	if x.Attrs.Shape != y.Attrs.Shape {
		t.Fatalf("objects that learn attributes in the same order must share a shape")
	}
	got, ok := y.Attrs.Get(b)
	if !ok || got != Value(Int(20)) {
		t.Fatalf("y.b = %v, %v; want 20, true", got, ok)
	}
}

func TestStructuralEqualitySymmetry(t *testing.T) {
	pairs := []struct{ a, b Value }{
		{Int(1), Int(1)},
		{Int(1), Float(1.0)},
		{Str("hi"), Str("hi")},
		{Bool(true), Bool(true)},
	}
	for _, p := range pairs {
		if StructuralEqual(p.a, p.b) != StructuralEqual(p.b, p.a) {
			t.Errorf("equals(%v, %v) not symmetric", p.a, p.b)
		}
		if !StructuralEqual(p.a, p.b) {
			t.Errorf("expected %v == %v", p.a, p.b)
		}
	}
}

func TestNaNNeverEqual(t *testing.T) {
	nan := Float(nanValue())
	if StructuralEqual(nan, nan) {
		t.Fatalf("NaN must not equal itself")
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestListIdentityEquality(t *testing.T) {
	l1 := &List{Items: []Value{Int(1)}}
	l2 := &List{Items: []Value{Int(1)}}
	if StructuralEqual(l1, l2) {
		t.Fatalf("distinct lists with equal contents must not be equal by identity")
	}
	if !StructuralEqual(l1, l1) {
		t.Fatalf("a list must equal itself")
	}
}

func TestModuleTypedefEnforced(t *testing.T) {
	syms := symbol.New()
	name, _ := syms.Intern("x")
	m := NewModule("main", "id-1")
	m.Typedef(name, &TypeCheck{Describe: "Int", Predicate: func(v Value) bool {
		_, ok := v.(Int)
		return ok
	}})

	if err := m.Assign(name, Str("nope")); err != ErrUnexpectedType {
		t.Fatalf("expected ErrUnexpectedType, got %v", err)
	}
	if err := m.Assign(name, Int(5)); err != nil {
		t.Fatalf("expected assignment satisfying witness to succeed: %v", err)
	}
	got, ok := m.Get(name)
	if !ok || got != Value(Int(5)) {
		t.Fatalf("Get(x) = %v, %v; want 5, true", got, ok)
	}
}
