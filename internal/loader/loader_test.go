package loader

import (
	"testing"

	"haxby/internal/bytecode"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

func TestLoadRewritesAttributeConstants(t *testing.T) {
	// entry body: Push(0=string "a"); ReadAttribute(0)
	entryBody := []byte{
		byte(bytecode.Push), 0, 0,
		byte(bytecode.ReadAttribute), 0, 0,
	}
	cm := &bytecode.CompiledModule{
		Path: "main",
		Constants: []bytecode.Constant{
			{Kind: bytecode.ConstString, String: "a"},
		},
		Entry: &bytecode.CompiledCodeObject{Name: "main", Body: entryBody},
	}

	syms := symbol.New()
	mod, err := Load(cm, syms, "id-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var found bool
	for _, inst := range mod.Entry.Body {
		if inst.Op == bytecode.ReadAttributeSymbol {
			found = true
			sym, ok := syms.Resolve(symbol.Symbol(inst.Operands[0]))
			if !ok || sym != "a" {
				t.Fatalf("expected rewritten symbol to resolve to \"a\", got %q, %v", sym, ok)
			}
		}
		if inst.Op == bytecode.ReadAttribute {
			t.Fatalf("ReadAttribute should have been rewritten to ReadAttributeSymbol")
		}
	}
	if !found {
		t.Fatalf("expected a ReadAttributeSymbol instruction after rewrite")
	}

	if len(mod.Consts) != 1 || mod.Consts[0] != value.Value(value.Str("a")) {
		t.Fatalf("expected materialized constant pool [\"a\"], got %v", mod.Consts)
	}
}

func TestLoadRejectsInternalAttributeSymbolOpcode(t *testing.T) {
	entryBody := []byte{
		byte(bytecode.ReadAttributeSymbol), 0, 0, 0, 0,
	}
	cm := &bytecode.CompiledModule{
		Path:      "main",
		Constants: nil,
		Entry:     &bytecode.CompiledCodeObject{Name: "main", Body: entryBody},
	}
	syms := symbol.New()
	if _, err := Load(cm, syms, "id-1"); err == nil {
		t.Fatalf("expected error rejecting VM-internal ReadAttributeSymbol in compiled input")
	}
}

func TestLoadMaterializesNestedCodeObject(t *testing.T) {
	innerBody := []byte{byte(bytecode.Push0), byte(bytecode.Return)}
	cm := &bytecode.CompiledModule{
		Path: "main",
		Constants: []bytecode.Constant{
			{Kind: bytecode.ConstCodeObject, Code: &bytecode.CompiledCodeObject{Name: "inner", Body: innerBody}},
		},
		Entry: &bytecode.CompiledCodeObject{Name: "main", Body: []byte{byte(bytecode.Halt)}},
	}
	syms := symbol.New()
	mod, err := Load(cm, syms, "id-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	co, ok := mod.Consts[0].(*value.CodeObject)
	if !ok {
		t.Fatalf("expected constant 0 to be a materialized CodeObject")
	}
	if co.Name != "inner" || len(co.Body) != 2 {
		t.Fatalf("inner code object not decoded correctly: %+v", co)
	}
}
