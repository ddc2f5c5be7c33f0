// Package crypto is a native extension (spec.md §6.3) grounded on the
// teacher's internal/cryptoanalysis/cryptoanalysis.go: hashing, AES-GCM,
// and RSA primitives over the standard crypto/* packages. The teacher
// itself never reaches for a third-party crypto library for this kind of
// work (see DESIGN.md), so this extension stays on crypto/aes, crypto/rsa,
// crypto/sha256 and friends rather than golang.org/x/crypto.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"

	"haxby/internal/dylib"
	"haxby/internal/symbol"
	"haxby/internal/value"
)

const rsaKeyAttr = "__rsakey"

// Inject binds a stateless "Crypto" struct exposing hash, AES-GCM, and RSA
// key generation/encryption methods to mod.
func Inject(host dylib.Host, mod *value.Module) dylib.LoadResult {
	reg := host.Shapes()
	syms := host.Interner()
	b := host.Builtins()

	keySym, err := syms.Intern(rsaKeyAttr)
	if err != nil {
		return dylib.Fail("crypto: %v", err)
	}

	st := &value.Struct{Name: "Crypto", Members: value.Box{Shape: reg.Empty()}}

	digest := func(name string, newHash func() hash.Hash) {
		st.Members.Set(reg, mustSym(syms, name), &value.NativeFunction{
			Name: "Crypto." + name, RequiredArgc: 1,
			Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
				data, ok := args[0].(value.Str)
				if !ok {
					return nil, b.NewRuntimeError("UnexpectedType", nil), nil
				}
				h := newHash()
				h.Write([]byte(data))
				return value.Str(hex.EncodeToString(h.Sum(nil))), nil, nil
			},
		})
	}
	digest("md5", md5.New)
	digest("sha1", sha1.New)
	digest("sha256", sha256.New)
	digest("sha512", sha512.New)

	st.Members.Set(reg, mustSym(syms, "random_bytes"), &value.NativeFunction{
		Name: "Crypto.random_bytes", RequiredArgc: 1,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			n, ok := args[0].(value.Int)
			if !ok || n < 0 {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			buf := make([]byte, n)
			if _, rerr := rand.Read(buf); rerr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(rerr.Error())), nil
			}
			return value.Str(hex.EncodeToString(buf)), nil, nil
		},
	})

	st.Members.Set(reg, mustSym(syms, "aes_encrypt"), &value.NativeFunction{
		Name: "Crypto.aes_encrypt", RequiredArgc: 2,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			plaintext, ok1 := args[0].(value.Str)
			key, ok2 := args[1].(value.Str)
			if !ok1 || !ok2 {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			gcm, gerr := newGCM([]byte(key))
			if gerr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(gerr.Error())), nil
			}
			nonce := make([]byte, gcm.NonceSize())
			if _, rerr := rand.Read(nonce); rerr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(rerr.Error())), nil
			}
			sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
			return value.Str(hex.EncodeToString(sealed)), nil, nil
		},
	})

	st.Members.Set(reg, mustSym(syms, "aes_decrypt"), &value.NativeFunction{
		Name: "Crypto.aes_decrypt", RequiredArgc: 2,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			ciphertext, ok1 := args[0].(value.Str)
			key, ok2 := args[1].(value.Str)
			if !ok1 || !ok2 {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			raw, herr := hex.DecodeString(string(ciphertext))
			if herr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(herr.Error())), nil
			}
			gcm, gerr := newGCM([]byte(key))
			if gerr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(gerr.Error())), nil
			}
			if len(raw) < gcm.NonceSize() {
				return nil, b.NewRuntimeError("OperationFailed", value.Str("ciphertext too short")), nil
			}
			nonce, body := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
			plain, derr := gcm.Open(nil, nonce, body, nil)
			if derr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(derr.Error())), nil
			}
			return value.Str(string(plain)), nil, nil
		},
	})

	rsaKeyStruct := &value.Struct{Name: "RsaKey"}
	st.Members.Set(reg, mustSym(syms, "generate_rsa_key"), &value.NativeFunction{
		Name: "Crypto.generate_rsa_key", RequiredArgc: 1,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			bits, ok := args[0].(value.Int)
			if !ok {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			key, kerr := rsa.GenerateKey(rand.Reader, int(bits))
			if kerr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(kerr.Error())), nil
			}
			obj := &value.Object{Struct: rsaKeyStruct, Attrs: value.Box{Shape: reg.Empty()}}
			obj.Attrs.Set(reg, keySym, &value.Opaque{TypeName: "rsa.PrivateKey", Payload: key})
			return obj, nil, nil
		},
	})

	keyOf := func(obj *value.Object) (*rsa.PrivateKey, value.Value) {
		raw, ok := obj.Attrs.Get(keySym)
		if !ok {
			return nil, b.NewRuntimeError("OperationFailed", value.Str("not an RSA key"))
		}
		op, ok := raw.(*value.Opaque)
		if !ok {
			return nil, b.NewRuntimeError("OperationFailed", value.Str("corrupt key handle"))
		}
		return op.Payload.(*rsa.PrivateKey), nil
	}

	st.Members.Set(reg, mustSym(syms, "rsa_encrypt"), &value.NativeFunction{
		Name: "Crypto.rsa_encrypt", RequiredArgc: 2,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			keyObj, ok1 := args[0].(*value.Object)
			plaintext, ok2 := args[1].(value.Str)
			if !ok1 || !ok2 {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			key, thrown := keyOf(keyObj)
			if thrown != nil {
				return nil, thrown, nil
			}
			sealed, eerr := rsa.EncryptOAEP(sha256.New(), rand.Reader, &key.PublicKey, []byte(plaintext), nil)
			if eerr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(eerr.Error())), nil
			}
			return value.Str(hex.EncodeToString(sealed)), nil, nil
		},
	})

	st.Members.Set(reg, mustSym(syms, "rsa_decrypt"), &value.NativeFunction{
		Name: "Crypto.rsa_decrypt", RequiredArgc: 2,
		Invoke: func(recv value.Value, args []value.Value) (value.Value, value.Value, error) {
			keyObj, ok1 := args[0].(*value.Object)
			ciphertext, ok2 := args[1].(value.Str)
			if !ok1 || !ok2 {
				return nil, b.NewRuntimeError("UnexpectedType", nil), nil
			}
			key, thrown := keyOf(keyObj)
			if thrown != nil {
				return nil, thrown, nil
			}
			raw, herr := hex.DecodeString(string(ciphertext))
			if herr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(herr.Error())), nil
			}
			plain, derr := rsa.DecryptOAEP(sha256.New(), rand.Reader, key, raw, nil)
			if derr != nil {
				return nil, b.NewRuntimeError("OperationFailed", value.Str(derr.Error())), nil
			}
			return value.Str(string(plain)), nil, nil
		},
	})

	cryptoType := &value.TypeValue{TVKind: value.TVStruct, Struct: st, Name: "Crypto"}
	cryptoSym, err := syms.Intern("Crypto")
	if err != nil {
		return dylib.Fail("crypto: %v", err)
	}
	if err := mod.Assign(cryptoSym, cryptoType); err != nil {
		return dylib.Fail("crypto: %v", err)
	}
	return dylib.Ok()
}

// newGCM derives an AES-GCM cipher from an arbitrary-length key by hashing
// it down to 32 bytes first, so callers can pass a passphrase of any length
// the way the teacher's EncryptAES helper accepts a raw key string.
func newGCM(key []byte) (cipher.AEAD, error) {
	sum := sha256.Sum256(key)
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func mustSym(syms *symbol.Interner, name string) symbol.Symbol {
	s, err := syms.Intern(name)
	if err != nil {
		panic(err)
	}
	return s
}
