package utils

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// BundleCipher seals and opens credential token blobs for at-rest storage.
// A random nonce is prepended to every sealed blob.
type BundleCipher struct {
	aead cipher.AEAD
}

// NewBundleCipher creates a cipher from a 32-byte key.
func NewBundleCipher(key []byte) (*BundleCipher, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle cipher: %w", err)
	}
	return &BundleCipher{aead: aead}, nil
}

// Seal encrypts a token blob.
func (c *BundleCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a sealed token blob.
func (c *BundleCipher) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < c.aead.NonceSize() {
		return nil, fmt.Errorf("sealed blob too short")
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed blob: %w", err)
	}
	return plaintext, nil
}
