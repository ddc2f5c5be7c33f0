package crypto

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

func (h *fakeHost) Interner() *symbol.Interner    { return h.syms }
func (h *fakeHost) Shapes() *shape.Registry       { return h.reg }
func (h *fakeHost) Builtins() *builtins.Catalogue { return h.b }

func newFakeHost() *fakeHost {
	syms := symbol.New()
	reg := shape.NewRegistry()
	return &fakeHost{syms: syms, reg: reg, b: builtins.New(syms, reg)}
}

func cryptoType(t *testing.T, host *fakeHost, mod *value.Module) *value.TypeValue {
	t.Helper()
	if result := Inject(host, mod); result.Err != nil {
		t.Fatalf("inject: %v", result.Err)
	}
	sym, _ := host.Interner().Intern("Crypto")
	tv, ok := mod.Get(sym)
	if !ok {
		t.Fatalf("expected Crypto to be bound")
	}
	return tv.(*value.TypeValue)
}

func method(t *testing.T, ct *value.TypeValue, host *fakeHost, name string) *value.NativeFunction {
	t.Helper()
	sym, _ := host.Interner().Intern(name)
	fn, ok := ct.Struct.Members.Get(sym)
	if !ok {
		t.Fatalf("expected method %q to be bound", name)
	}
	return fn.(*value.NativeFunction)
}

func TestSha256KnownVector(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	ct := cryptoType(t, host, mod)

	sha256 := method(t, ct, host, "sha256")
	result, thrown, err := sha256.Invoke(ct, []value.Value{value.Str("")})
	if err != nil || thrown != nil {
		t.Fatalf("sha256: thrown=%v err=%v", thrown, err)
	}
	want := value.Str("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")
	if result.(value.Str) != want {
		t.Fatalf("expected sha256(\"\") = %s, got %s", want, result)
	}
}

func TestAesEncryptDecryptRoundTrip(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	ct := cryptoType(t, host, mod)

	encrypt := method(t, ct, host, "aes_encrypt")
	decrypt := method(t, ct, host, "aes_decrypt")

	ciphertext, thrown, err := encrypt.Invoke(ct, []value.Value{value.Str("top secret"), value.Str("a passphrase")})
	if err != nil || thrown != nil {
		t.Fatalf("aes_encrypt: thrown=%v err=%v", thrown, err)
	}
	plaintext, thrown, err := decrypt.Invoke(ct, []value.Value{ciphertext, value.Str("a passphrase")})
	if err != nil || thrown != nil {
		t.Fatalf("aes_decrypt: thrown=%v err=%v", thrown, err)
	}
	if plaintext.(value.Str) != "top secret" {
		t.Fatalf("expected round-tripped plaintext, got %v", plaintext)
	}
}

func TestAesDecryptWithWrongKeyIsCatchable(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	ct := cryptoType(t, host, mod)

	encrypt := method(t, ct, host, "aes_encrypt")
	decrypt := method(t, ct, host, "aes_decrypt")

	ciphertext, _, _ := encrypt.Invoke(ct, []value.Value{value.Str("top secret"), value.Str("right key")})
	_, thrown, err := decrypt.Invoke(ct, []value.Value{ciphertext, value.Str("wrong key")})
	if err != nil {
		t.Fatalf("unexpected hard error: %v", err)
	}
	ev, ok := thrown.(*value.EnumValue)
	if !ok || ev.CaseName() != "OperationFailed" {
		t.Fatalf("expected a catchable OperationFailed, got %v", thrown)
	}
}

func TestRsaGenerateEncryptDecryptRoundTrip(t *testing.T) {
	host := newFakeHost()
	mod := value.NewModule("test", "test-id")
	ct := cryptoType(t, host, mod)

	generate := method(t, ct, host, "generate_rsa_key")
	encrypt := method(t, ct, host, "rsa_encrypt")
	decrypt := method(t, ct, host, "rsa_decrypt")

	key, thrown, err := generate.Invoke(ct, []value.Value{value.Int(2048)})
	if err != nil || thrown != nil {
		t.Fatalf("generate_rsa_key: thrown=%v err=%v", thrown, err)
	}
	ciphertext, thrown, err := encrypt.Invoke(ct, []value.Value{key, value.Str("hello rsa")})
	if err != nil || thrown != nil {
		t.Fatalf("rsa_encrypt: thrown=%v err=%v", thrown, err)
	}
	plaintext, thrown, err := decrypt.Invoke(ct, []value.Value{key, ciphertext})
	if err != nil || thrown != nil {
		t.Fatalf("rsa_decrypt: thrown=%v err=%v", thrown, err)
	}
	if plaintext.(value.Str) != "hello rsa" {
		t.Fatalf("expected hello rsa, got %v", plaintext)
	}
}
