package value

import "testing"

func TestWeakRefGetReflectsAliveFunc(t *testing.T) {
	alive := true
	target := Int(7)
	w := NewWeakRef(target, func() bool { return alive })

	got, ok := w.Get()
	if !ok || got != Value(target) {
		t.Fatalf("expected (target, true) while alive, got (%v, %v)", got, ok)
	}

	alive = false
	if _, ok := w.Get(); ok {
		t.Fatalf("expected Get to report dead once alive() turns false")
	}
}

func TestWeakRefWithNilAliveIsAlwaysDead(t *testing.T) {
	w := NewWeakRef(Int(1), nil)
	if _, ok := w.Get(); ok {
		t.Fatalf("expected a WeakRef with no alive func to report dead")
	}
}
