package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

var hkdfInfo = []byte("bank-cards field encryption v1")

// FieldCipher encrypts sensitive card fields before they reach storage.
//
// Encryption is AES-256-GCM with a synthetic nonce: the nonce is an HMAC of the
// plaintext, so equal plaintexts produce equal ciphertexts. Stored ciphertexts
// can therefore back a uniqueness constraint, at the cost of revealing equality.
type FieldCipher struct {
	aead   cipher.AEAD
	macKey []byte
}

// NewFieldCipher derives the encryption and nonce keys from secret
func NewFieldCipher(secret string) (*FieldCipher, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}

	kdf := hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo)
	encKey := make([]byte, keySize)
	macKey := make([]byte, keySize)
	if _, err := io.ReadFull(kdf, encKey); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	if _, err := io.ReadFull(kdf, macKey); err != nil {
		return nil, fmt.Errorf("failed to derive nonce key: %w", err)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return &FieldCipher{aead: aead, macKey: macKey}, nil
}

// Encrypt returns the base64 ciphertext of plaintext
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write([]byte(plaintext))
	nonce := mac.Sum(nil)[:c.aead.NonceSize()]

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered or foreign ciphertexts are rejected
func (c *FieldCipher) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize+c.aead.Overhead() {
		return "", fmt.Errorf("ciphertext too short: %d bytes", len(data))
	}

	plaintext, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt field: %w", err)
	}
	return string(plaintext), nil
}
