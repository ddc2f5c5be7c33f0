package system

import (
	"testing"
	"time"

	"haxby/internal/builtins"
	"haxby/internal/shape"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

type fakeHost struct {
	syms *symbol.Interner
	reg  *shape.Registry
	b    *builtins.Catalogue
}

func (h *fakeHost) Interner() *symbol.Interner    { return h.syms }
func (h *fakeHost) Shapes() *shape.Registry       { return h.reg }
func (h *fakeHost) Builtins() *builtins.Catalogue { return h.b }

func newFakeHost() *fakeHost {
	syms := symbol.New()
	reg := shape.NewRegistry()
	return &fakeHost{syms: syms, reg: reg, b: builtins.New(syms, reg)}
}

func TestInjectBindsSystem(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")

	if result := Inject(host, mod); result.Err != nil {
		t.Fatalf("inject: %v", result.Err)
	}
	sym, _ := host.Interner().Intern("System")
	if _, ok := mod.Get(sym); !ok {
		t.Fatalf("expected System to be bound")
	}
}

func TestExitRejectsNonInt(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	Inject(host, mod)

	sym, _ := host.Interner().Intern("System")
	tv, _ := mod.Get(sym)
	st := tv.(*value.TypeValue).Struct

	exitSym, _ := host.Interner().Intern("exit")
	exitFn, _ := st.Members.Get(exitSym)

	// Never exercise the Int branch here: it calls os.Exit and would kill
	// the test process. This only checks the type-guard that runs first.
	_, thrown, err := exitFn.(*value.NativeFunction).Invoke(tv, []value.Value{value.Str("not an int")})
	if err != nil {
		t.Fatalf("unexpected hard error: %v", err)
	}
	ev, ok := thrown.(*value.EnumValue)
	if !ok || ev.CaseName() != "UnexpectedType" {
		t.Fatalf("expected a catchable UnexpectedType, got %v", thrown)
	}
}

func TestSleepMsSleepsAndReturnsUnit(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	Inject(host, mod)

	sym, _ := host.Interner().Intern("System")
	tv, _ := mod.Get(sym)
	st := tv.(*value.TypeValue).Struct

	sleepSym, _ := host.Interner().Intern("sleep_ms")
	sleepFn, _ := st.Members.Get(sleepSym)

	start := time.Now()
	result, thrown, err := sleepFn.(*value.NativeFunction).Invoke(tv, []value.Value{value.Int(5)})
	if err != nil || thrown != nil {
		t.Fatalf("sleep_ms: thrown=%v err=%v", thrown, err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Fatalf("expected sleep_ms to actually block, elapsed %v", elapsed)
	}
	if result != host.b.UnitValue {
		t.Fatalf("expected Unit, got %v", result)
	}
}

func TestSleepMsRejectsNegative(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	Inject(host, mod)

	sym, _ := host.Interner().Intern("System")
	tv, _ := mod.Get(sym)
	st := tv.(*value.TypeValue).Struct

	sleepSym, _ := host.Interner().Intern("sleep_ms")
	sleepFn, _ := st.Members.Get(sleepSym)

	_, thrown, err := sleepFn.(*value.NativeFunction).Invoke(tv, []value.Value{value.Int(-1)})
	if err != nil {
		t.Fatalf("unexpected hard error: %v", err)
	}
	ev, ok := thrown.(*value.EnumValue)
	if !ok || ev.CaseName() != "OperationFailed" {
		t.Fatalf("expected a catchable OperationFailed, got %v", thrown)
	}
}
