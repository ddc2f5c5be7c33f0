package symbol

import "testing"

func TestInternIsStable(t *testing.T) {
	in := New()
	a, err := in.Intern("frobnicate")
	if err != nil {
		t.Fatalf("intern: %v", err)
	}
	b, err := in.Intern("frobnicate")
	if err != nil {
		t.Fatalf("intern: %v", err)
	}
	if a != b {
		t.Fatalf("expected identical symbols, got %d and %d", a, b)
	}

	c, err := in.Intern("other")
	if err != nil {
		t.Fatalf("intern: %v", err)
	}
	if c == a {
		t.Fatalf("distinct strings must not share a symbol")
	}
}

func TestResolveRoundTrip(t *testing.T) {
	in := New()
	s, err := in.Intern("roundtrip")
	if err != nil {
		t.Fatalf("intern: %v", err)
	}
	got, ok := in.Resolve(s)
	if !ok || got != "roundtrip" {
		t.Fatalf("resolve(intern(s)) = %q, %v; want roundtrip, true", got, ok)
	}
}

func TestWellKnownSymbolsPrepopulated(t *testing.T) {
	in := New()
	if s, ok := in.Lookup("_op_impl_add"); !ok || s != OpImplAdd {
		t.Fatalf("expected _op_impl_add to be pre-interned as %d, got %d, %v", OpImplAdd, s, ok)
	}
	if s, ok := in.Lookup("backtrace"); !ok || s != AttrBacktrace {
		t.Fatalf("expected backtrace to be pre-interned as %d, got %d, %v", AttrBacktrace, s, ok)
	}
}

func TestLookupMissing(t *testing.T) {
	in := New()
	if _, ok := in.Lookup("never-interned"); ok {
		t.Fatalf("expected lookup miss for never-interned string")
	}
}
