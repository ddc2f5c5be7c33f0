package bytecode

import "testing"

func TestWriterRoundTripsThroughReader(t *testing.T) {
	w := NewWriter()
	w.EmitU16(Push, 0)
	w.EmitU16(Push, 1)
	w.Emit(Add)
	w.Emit(Return)

	insts, err := DecodeAll(w.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	wantOps := []OpCode{Push, Push, Add, Return}
	if len(insts) != len(wantOps) {
		t.Fatalf("got %d instructions, want %d", len(insts), len(wantOps))
	}
	for i, op := range wantOps {
		if insts[i].Op != op {
			t.Errorf("instruction %d: got %s, want %s", i, insts[i].Op, op)
		}
	}
	if insts[1].Operands[0] != 1 {
		t.Errorf("second Push operand = %d, want 1", insts[1].Operands[0])
	}
}

func TestWriterPatchU16FixesUpForwardJump(t *testing.T) {
	w := NewWriter()
	jumpAt := w.EmitU16(JumpFalse, 0) // placeholder target
	w.Emit(Push1)
	dest := w.Emit(Return)
	w.PatchU16(jumpAt, uint16(dest))

	insts, err := DecodeAll(w.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if insts[0].Operands[0] != uint32(dest) {
		t.Fatalf("patched jump target = %d, want %d", insts[0].Operands[0], dest)
	}
}

func TestWriterEmitU8U16(t *testing.T) {
	w := NewWriter()
	w.EmitU8U16(NewEnumVal, 1, 7)
	insts, err := DecodeAll(w.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if insts[0].Operands[0] != 1 || insts[0].Operands[1] != 7 {
		t.Fatalf("got operands %v, want [1 7]", insts[0].Operands)
	}
}
