package database

import (
	"testing"

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

func (h *fakeHost) Interner() *symbol.Interner      { return h.syms }
func (h *fakeHost) Shapes() *shape.Registry         { return h.reg }
func (h *fakeHost) Builtins() *builtins.Catalogue   { return h.b }

func newFakeHost() *fakeHost {
	syms := symbol.New()
	reg := shape.NewRegistry()
	return &fakeHost{syms: syms, reg: reg, b: builtins.New(syms, reg)}
}

func TestInjectBindsDbAndConnect(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")

	result := Inject(host, mod)
	if result.Err != nil {
		t.Fatalf("inject: %v", result.Err)
	}

	dbSym, _ := host.Interner().Intern("Db")
	if _, ok := mod.Get(dbSym); !ok {
		t.Fatalf("expected Db to be bound in the module")
	}
	connectSym, _ := host.Interner().Intern("connect")
	connectVal, ok := mod.Get(connectSym)
	if !ok {
		t.Fatalf("expected connect to be bound in the module")
	}
	if _, ok := connectVal.(*value.NativeFunction); !ok {
		t.Fatalf("expected connect to be a NativeFunction, got %T", connectVal)
	}
}

func TestConnectQueryExecCloseRoundTrip(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	if result := Inject(host, mod); result.Err != nil {
		t.Fatalf("inject: %v", result.Err)
	}

	connectSym, _ := host.Interner().Intern("connect")
	connectVal, _ := mod.Get(connectSym)
	connect := connectVal.(*value.NativeFunction)

	db, thrown, err := connect.Invoke(nil, []value.Value{value.Str("sqlite3"), value.Str(":memory:")})
	if err != nil || thrown != nil {
		t.Fatalf("connect: thrown=%v err=%v", thrown, err)
	}
	obj, ok := db.(*value.Object)
	if !ok {
		t.Fatalf("expected a Db object, got %T", db)
	}

	execSym, _ := host.Interner().Intern("exec")
	execFn, _ := obj.Struct.Members.Get(execSym)
	exec := execFn.(*value.NativeFunction)
	_, thrown, err = exec.Invoke(obj, []value.Value{value.Str("CREATE TABLE t (n INTEGER)")})
	if err != nil || thrown != nil {
		t.Fatalf("exec create: thrown=%v err=%v", thrown, err)
	}
	_, thrown, err = exec.Invoke(obj, []value.Value{value.Str("INSERT INTO t VALUES (42)")})
	if err != nil || thrown != nil {
		t.Fatalf("exec insert: thrown=%v err=%v", thrown, err)
	}

	querySym, _ := host.Interner().Intern("query")
	queryFn, _ := obj.Struct.Members.Get(querySym)
	query := queryFn.(*value.NativeFunction)
	rows, thrown, err := query.Invoke(obj, []value.Value{value.Str("SELECT n FROM t")})
	if err != nil || thrown != nil {
		t.Fatalf("query: thrown=%v err=%v", thrown, err)
	}
	list, ok := rows.(*value.List)
	if !ok || len(list.Items) != 1 {
		t.Fatalf("expected one row, got %v", rows)
	}

	closeSym, _ := host.Interner().Intern("close")
	closeFn, _ := obj.Struct.Members.Get(closeSym)
	_, thrown, err = closeFn.(*value.NativeFunction).Invoke(obj, nil)
	if err != nil || thrown != nil {
		t.Fatalf("close: thrown=%v err=%v", thrown, err)
	}
}

func TestMethodOnClosedConnectionIsCatchable(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	Inject(host, mod)

	dbSym, _ := host.Interner().Intern("Db")
	dbTypeVal, _ := mod.Get(dbSym)
	dbType := dbTypeVal.(*value.TypeValue)
	obj := &value.Object{Struct: dbType.Struct, Attrs: value.Box{Shape: host.Shapes().Empty()}}

	execSym, _ := host.Interner().Intern("exec")
	execFn, _ := obj.Struct.Members.Get(execSym)
	_, thrown, err := execFn.(*value.NativeFunction).Invoke(obj, []value.Value{value.Str("SELECT 1")})
	if err != nil {
		t.Fatalf("unexpected hard error: %v", err)
	}
	ev, ok := thrown.(*value.EnumValue)
	if !ok || ev.CaseName() != "OperationFailed" {
		t.Fatalf("expected a catchable OperationFailed, got %v", thrown)
	}
}
