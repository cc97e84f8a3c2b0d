package common

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// SecretBox seals and opens account credentials with AES-256-GCM.
// Key management lives outside the core; the key arrives via configuration.
type SecretBox struct {
	aead cipher.AEAD
}

// NewSecretBox derives a box from the configured key. A 64-character hex
// string is used as the raw 32-byte key; anything else is hashed with
// SHA-256 into one.
func NewSecretBox(key string) (*SecretBox, error) {
	if key == "" {
		return nil, fmt.Errorf("secrets key is not configured")
	}

	var raw []byte
	if decoded, err := hex.DecodeString(key); err == nil && len(decoded) == 32 {
		raw = decoded
	} else {
		sum := sha256.Sum256([]byte(key))
		raw = sum[:]
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &SecretBox{aead: aead}, nil
}

// Seal encrypts a plaintext secret into a base64 nonce||ciphertext blob.
func (b *SecretBox) Seal(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a blob produced by Seal.
func (b *SecretBox) Open(sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("sealed secret is not valid base64: %w", err)
	}

	nonceSize := b.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("sealed secret is too short")
	}

	plaintext, err := b.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret: %w", err)
	}

	return string(plaintext), nil
}
