package shape

import "haxby/internal/symbol"

import "testing"

func TestTransitionDedup(t *testing.T) {
	in := symbol.New()
	a, _ := in.Intern("a")
	b, _ := in.Intern("b")

	r := NewRegistry()
	s1, slotA1 := r.Transition(r.Empty(), a)
	s2, slotA2 := r.Transition(r.Empty(), a)
	if s1 != s2 || slotA1 != slotA2 {
		t.Fatalf("identical transitions from the same parent must share a shape")
	}

	s3, _ := r.Transition(s1, b)
	s4, _ := r.Transition(s2, b)
	if s3 != s4 {
		t.Fatalf("two objects writing [a, b] in the same order must share a shape")
	}
}

func TestTransitionOrderMatters(t *testing.T) {
	in := symbol.New()
	a, _ := in.Intern("a")
	b, _ := in.Intern("b")
	r := NewRegistry()

	sAB, _ := r.Transition(r.Empty(), a)
	sAB, _ = r.Transition(sAB, b)

	sBA, _ := r.Transition(r.Empty(), b)
	sBA, _ = r.Transition(sBA, a)

	if sAB == sBA {
		t.Fatalf("objects writing attributes in different orders must not share a shape")
	}
}

func TestSlotIsFirstOccurrenceIndex(t *testing.T) {
	in := symbol.New()
	names := []string{"a", "b", "c"}
	syms := make([]symbol.Symbol, len(names))
	for i, n := range names {
		syms[i], _ = in.Intern(n)
	}

	r := NewRegistry()
	s := r.Empty()
	for i, sym := range syms {
		var slot SlotID
		s, slot = r.Transition(s, sym)
		if int(slot) != i {
			t.Fatalf("attribute %d expected slot %d, got %d", i, i, slot)
		}
	}

	for i, sym := range syms {
		slot, ok := r.ResolveSlot(s, sym)
		if !ok || int(slot) != i {
			t.Fatalf("resolve_slot(%s) = %d, %v; want %d, true", names[i], slot, ok, i)
		}
	}
}

func TestRewritingSameAttributeKeepsSlot(t *testing.T) {
	in := symbol.New()
	a, _ := in.Intern("a")
	r := NewRegistry()

	s1, slot1 := r.Transition(r.Empty(), a)
	s2, slot2 := r.Transition(s1, a)
	if s1 != s2 || slot1 != slot2 {
		t.Fatalf("re-transitioning an existing attribute must be a no-op")
	}
}
