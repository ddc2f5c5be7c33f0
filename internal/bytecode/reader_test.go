package bytecode

import "testing"

func TestDecodeAllSimpleArithmetic(t *testing.T) {
	// Push(0); Push(1); Add; Return
	buf := []byte{
		byte(Push), 0, 0,
		byte(Push), 1, 0,
		byte(Add),
		byte(Return),
	}
	insts, err := DecodeAll(buf)
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

func TestDecodeTruncatedOperandIsInsufficientData(t *testing.T) {
	buf := []byte{byte(Push), 0} // u16 operand truncated to one byte
	_, err := DecodeAll(buf)
	rerr, ok := err.(*ReaderError)
	if !ok || rerr.Kind != ErrInsufficientData {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	buf := []byte{0xFF}
	_, err := DecodeAll(buf)
	rerr, ok := err.(*ReaderError)
	if !ok || rerr.Kind != ErrUnknownOpcode {
		t.Fatalf("expected ErrUnknownOpcode, got %v", err)
	}
}

func TestDecodeUnknownOperand(t *testing.T) {
	buf := []byte{byte(PushBuiltinTy), 0xFF}
	_, err := DecodeAll(buf)
	rerr, ok := err.(*ReaderError)
	if !ok || rerr.Kind != ErrUnknownOperand {
		t.Fatalf("expected ErrUnknownOperand, got %v", err)
	}
}

func TestSeekForJumpTargets(t *testing.T) {
	buf := []byte{byte(Nop), byte(Nop), byte(Return)}
	r, err := NewReader(buf)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	r.Seek(2)
	inst, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if inst.Op != Return {
		t.Fatalf("after seeking to offset 2, got %s, want Return", inst.Op)
	}
}

func TestStreamTooLong(t *testing.T) {
	buf := make([]byte, MaxStreamLength+1)
	if _, err := NewReader(buf); err == nil {
		t.Fatalf("expected error for stream exceeding MaxStreamLength")
	}
}
