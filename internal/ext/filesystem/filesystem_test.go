package filesystem

import (
	"os"
	"path/filepath"
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

func (h *fakeHost) Interner() *symbol.Interner    { return h.syms }
func (h *fakeHost) Shapes() *shape.Registry       { return h.reg }
func (h *fakeHost) Builtins() *builtins.Catalogue { return h.b }

func newFakeHost() *fakeHost {
	syms := symbol.New()
	reg := shape.NewRegistry()
	return &fakeHost{syms: syms, reg: reg, b: builtins.New(syms, reg)}
}

func TestInjectBindsFs(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")

	if result := Inject(host, mod); result.Err != nil {
		t.Fatalf("inject: %v", result.Err)
	}
	fsSym, _ := host.Interner().Intern("Fs")
	if _, ok := mod.Get(fsSym); !ok {
		t.Fatalf("expected Fs to be bound")
	}
}

func TestWriteReadStatRoundTrip(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	Inject(host, mod)

	fsSym, _ := host.Interner().Intern("Fs")
	fsTypeVal, _ := mod.Get(fsSym)
	fsType := fsTypeVal.(*value.TypeValue)

	path := filepath.Join(t.TempDir(), "note.txt")

	writeSym, _ := host.Interner().Intern("write")
	writeFn, _ := fsType.Struct.Members.Get(writeSym)
	_, thrown, err := writeFn.(*value.NativeFunction).Invoke(fsType, []value.Value{value.Str(path), value.Str("hello")})
	if err != nil || thrown != nil {
		t.Fatalf("write: thrown=%v err=%v", thrown, err)
	}

	readSym, _ := host.Interner().Intern("read")
	readFn, _ := fsType.Struct.Members.Get(readSym)
	result, thrown, err := readFn.(*value.NativeFunction).Invoke(fsType, []value.Value{value.Str(path)})
	if err != nil || thrown != nil {
		t.Fatalf("read: thrown=%v err=%v", thrown, err)
	}
	if result.(value.Str) != "hello" {
		t.Fatalf("expected hello, got %v", result)
	}

	statSym, _ := host.Interner().Intern("stat")
	statFn, _ := fsType.Struct.Members.Get(statSym)
	statResult, thrown, err := statFn.(*value.NativeFunction).Invoke(fsType, []value.Value{value.Str(path)})
	if err != nil || thrown != nil {
		t.Fatalf("stat: thrown=%v err=%v", thrown, err)
	}
	obj := statResult.(*value.Object)
	sizeSym, _ := host.Interner().Intern("size")
	size, _ := obj.Attrs.Get(sizeSym)
	if size.(value.Int) != 5 {
		t.Fatalf("expected size 5, got %v", size)
	}
	humanSizeSym, _ := host.Interner().Intern("human_size")
	if _, ok := obj.Attrs.Get(humanSizeSym); !ok {
		t.Fatalf("expected a human_size attribute")
	}
}

func TestReadMissingFileIsCatchable(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	Inject(host, mod)

	fsSym, _ := host.Interner().Intern("Fs")
	fsTypeVal, _ := mod.Get(fsSym)
	fsType := fsTypeVal.(*value.TypeValue)

	readSym, _ := host.Interner().Intern("read")
	readFn, _ := fsType.Struct.Members.Get(readSym)
	_, thrown, err := readFn.(*value.NativeFunction).Invoke(fsType, []value.Value{value.Str(filepath.Join(os.TempDir(), "does-not-exist-xyz"))})
	if err != nil {
		t.Fatalf("unexpected hard error: %v", err)
	}
	ev, ok := thrown.(*value.EnumValue)
	if !ok || ev.CaseName() != "OperationFailed" {
		t.Fatalf("expected a catchable OperationFailed, got %v", thrown)
	}
}

func TestListDirectory(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	Inject(host, mod)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	fsSym, _ := host.Interner().Intern("Fs")
	fsTypeVal, _ := mod.Get(fsSym)
	fsType := fsTypeVal.(*value.TypeValue)

	listSym, _ := host.Interner().Intern("list")
	listFn, _ := fsType.Struct.Members.Get(listSym)
	result, thrown, err := listFn.(*value.NativeFunction).Invoke(fsType, []value.Value{value.Str(dir)})
	if err != nil || thrown != nil {
		t.Fatalf("list: thrown=%v err=%v", thrown, err)
	}
	list := result.(*value.List)
	if len(list.Items) != 1 || list.Items[0].(value.Str) != "a.txt" {
		t.Fatalf("expected [a.txt], got %v", list.Items)
	}
}
