package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	key, err := DeriveKey("server secret")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}

	plaintext := []byte("hello, sealed token")
	ct, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := Decrypt(key, ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round-trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	key1, _ := DeriveKey("one")
	key2, _ := DeriveKey("two")

	ct, err := Encrypt(key1, []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(key2, ct); err == nil {
		t.Fatal("expected error decrypting with wrong key")
	}
}

func TestEncryptBadKey(t *testing.T) {
	if _, err := Encrypt([]byte("short"), []byte("x")); err == nil {
		t.Fatal("expected error for short key")
	}
	key, _ := DeriveKey("k")
	if _, err := Decrypt(key, []byte("tiny")); err == nil {
		t.Fatal("expected error for short ciphertext")
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	a, _ := DeriveKey("same")
	b, _ := DeriveKey("same")
	c, _ := DeriveKey("different")
	if len(a) != keyLen {
		t.Fatalf("key length = %d, want %d", len(a), keyLen)
	}
	if !bytes.Equal(a, b) {
		t.Error("same secret derived different keys")
	}
	if bytes.Equal(a, c) {
		t.Error("different secrets derived the same key")
	}
}

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer("server secret")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}

	sealed, err := s.Seal("hf_access_token")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.HasPrefix(sealed, sealedPrefix) || strings.Contains(sealed, "hf_access_token") {
		t.Fatalf("sealed = %q", sealed)
	}
	got, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "hf_access_token" {
		t.Errorf("Open = %q", got)
	}

	again, _ := s.Seal("hf_access_token")
	if again == sealed {
		t.Error("sealing twice produced identical output")
	}
}

func TestSealerEmptyAndLegacy(t *testing.T) {
	s, _ := NewSealer("k")
	if got, _ := s.Seal(""); got != "" {
		t.Errorf("Seal(\"\") = %q", got)
	}
	if got, _ := s.Open(""); got != "" {
		t.Errorf("Open(\"\") = %q", got)
	}
	if got, err := s.Open("plain-token"); err != nil || got != "plain-token" {
		t.Errorf("Open(plain) = %q, %v", got, err)
	}
}

func TestSealerErrors(t *testing.T) {
	if _, err := NewSealer(""); !errors.Is(err, ErrNoSecret) {
		t.Errorf("NewSealer(\"\") err = %v, want ErrNoSecret", err)
	}

	a, _ := NewSealer("a")
	b, _ := NewSealer("b")
	sealed, _ := a.Seal("token")
	if _, err := b.Open(sealed); err == nil {
		t.Error("expected error opening with another secret")
	}
	if _, err := a.Open(sealedPrefix + "!!!not base64"); err == nil {
		t.Error("expected error for bad encoding")
	}
}
