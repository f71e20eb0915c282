// Copyright 2025 Certen Protocol

package cryptoutil

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, chacha20poly1305.KeySize)
	ks, err := NewKeyStore(secret)
	if err != nil {
		t.Fatalf("new keystore: %v", err)
	}

	id := uuid.New()
	plaintext := []byte("ed25519-private-key-seed-bytes!")

	ciphertext, err := ks.Encrypt(id, plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Error("ciphertext should not equal plaintext")
	}

	got, err := ks.Decrypt(id, ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("decrypt mismatch: got %x, want %x", got, plaintext)
	}
}

func TestDecryptFailsWithWrongAddressID(t *testing.T) {
	secret := bytes.Repeat([]byte{0x7}, chacha20poly1305.KeySize)
	ks, err := NewKeyStore(secret)
	if err != nil {
		t.Fatalf("new keystore: %v", err)
	}

	id := uuid.New()
	ciphertext, err := ks.Encrypt(id, []byte("secret bytes"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	otherID := uuid.New()
	if _, err := ks.Decrypt(otherID, ciphertext); err == nil {
		t.Error("expected decrypt under a different address id to fail")
	}
}

func TestNewKeyStoreRejectsWrongSecretLength(t *testing.T) {
	if _, err := NewKeyStore([]byte("too-short")); err == nil {
		t.Error("expected error for non-32-byte secret")
	}
}

func TestGenerateEd25519SeedLength(t *testing.T) {
	seed, err := GenerateEd25519Seed()
	if err != nil {
		t.Fatalf("generate seed: %v", err)
	}
	if len(seed) != 32 {
		t.Errorf("seed length mismatch: got %d, want 32", len(seed))
	}
}
