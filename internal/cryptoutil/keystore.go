// Copyright 2025 Certen Protocol
//
// Private-key-at-rest encryption for custodial addresses. A single
// process-wide 32-byte secret (config.Config.KeyEncryptionSecret) encrypts
// every address's private key under ChaCha20-Poly1305, with the nonce
// derived from the address's own UUID so no nonce ever needs to be stored
// alongside the ciphertext.

package cryptoutil

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeyStore encrypts and decrypts custodial private keys under a single
// process-wide secret.
type KeyStore struct {
	aead chacha20poly1305.AEAD
}

// NewKeyStore constructs a KeyStore from a 32-byte secret.
func NewKeyStore(secret []byte) (*KeyStore, error) {
	if len(secret) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("key encryption secret must be %d bytes, got %d", chacha20poly1305.KeySize, len(secret))
	}
	aead, err := chacha20poly1305.New(secret)
	if err != nil {
		return nil, fmt.Errorf("init chacha20poly1305: %w", err)
	}
	return &KeyStore{aead: aead}, nil
}

// nonceFor derives the 12-byte AEAD nonce from an address id. Using the id
// (rather than a random nonce stored alongside the ciphertext) is safe here
// because each address id is generated once and never reused across
// encryptions under the same secret.
func nonceFor(addressID uuid.UUID) []byte {
	raw := addressID[:]
	nonce := make([]byte, chacha20poly1305.NonceSize)
	copy(nonce, raw[:chacha20poly1305.NonceSize])
	return nonce
}

// Encrypt seals plaintext (the raw private key bytes) under the nonce
// derived from addressID.
func (k *KeyStore) Encrypt(addressID uuid.UUID, plaintext []byte) ([]byte, error) {
	nonce := nonceFor(addressID)
	return k.aead.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext previously produced by Encrypt for the same
// addressID.
func (k *KeyStore) Decrypt(addressID uuid.UUID, ciphertext []byte) ([]byte, error) {
	nonce := nonceFor(addressID)
	plaintext, err := k.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt private key: %w", err)
	}
	return plaintext, nil
}

// GenerateEd25519Seed returns 32 bytes of cryptographically secure random
// data suitable as an ed25519 private key seed.
func GenerateEd25519Seed() ([]byte, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}
	return seed, nil
}
