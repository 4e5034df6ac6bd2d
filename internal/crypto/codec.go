// Package crypto implements the sealed-bundle codec protecting sensitive loan
// fields at rest. It knows nothing about loan semantics beyond the bundle
// shape it serializes.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Mahmadabid/expense-tracker-sub000/internal/apperrors"
	"github.com/Mahmadabid/expense-tracker-sub000/internal/core/domain"
)

// ErrNotSealed signals that a stored value is not in the sealed wire format.
// Callers treat such values as legacy plaintext records, not corruption.
var ErrNotSealed = errors.New("value is not a sealed bundle")

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// Codec seals and opens opaque encrypted strings using AES-256-GCM with a
// fresh random nonce per seal. The wire format is
// "nonceHex:tagHex:ciphertextHex".
type Codec struct {
	aead cipher.AEAD
}

// NewCodec builds a codec from a raw 32-byte key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// NewCodecFromHex builds a codec from a 64-character hex-encoded key.
func NewCodecFromHex(keyHex string) (*Codec, error) {
	key, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	return NewCodec(key)
}

// IsSealed reports whether s is in the sealed wire format (exactly two
// colons). Anything else is legacy/unencrypted plaintext.
func IsSealed(s string) bool {
	return strings.Count(s, ":") == 2
}

// SealBytes encrypts plaintext into the opaque wire format. Every call uses a
// fresh random nonce; nonce reuse is never possible across calls.
func (c *Codec) SealBytes(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	// GCM appends the auth tag to the ciphertext; split it out so the stored
	// value carries the nonce:tag:ciphertext triple.
	tagStart := len(sealed) - c.aead.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext), nil
}

// OpenBytes decrypts a value produced by SealBytes. An empty input yields
// (nil, nil) to tolerate unseeded records. A value not in the sealed format
// yields ErrNotSealed. Any authentication failure yields
// apperrors.ErrDecryption; corrupted data is never returned.
func (c *Codec) OpenBytes(opaque string) ([]byte, error) {
	if opaque == "" {
		return nil, nil
	}
	if !IsSealed(opaque) {
		return nil, ErrNotSealed
	}
	parts := strings.Split(opaque, ":")

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return nil, fmt.Errorf("%w: malformed nonce", apperrors.ErrDecryption)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != c.aead.Overhead() {
		return nil, fmt.Errorf("%w: malformed auth tag", apperrors.ErrDecryption)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: malformed ciphertext", apperrors.ErrDecryption)
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bundle failed authentication", apperrors.ErrDecryption)
	}
	return plaintext, nil
}

// Seal serializes and encrypts a sensitive bundle.
func (c *Codec) Seal(bundle domain.SensitiveBundle) (string, error) {
	plaintext, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("failed to serialize sensitive bundle: %w", err)
	}
	return c.SealBytes(plaintext)
}

// Open decrypts and deserializes a sensitive bundle. Empty input yields
// (nil, nil); ErrNotSealed propagates so callers can fall back to legacy
// plaintext parsing.
func (c *Codec) Open(opaque string) (*domain.SensitiveBundle, error) {
	plaintext, err := c.OpenBytes(opaque)
	if err != nil || plaintext == nil {
		return nil, err
	}
	var bundle domain.SensitiveBundle
	if err := json.Unmarshal(plaintext, &bundle); err != nil {
		return nil, fmt.Errorf("%w: sealed bundle holds malformed content", apperrors.ErrDecryption)
	}
	return &bundle, nil
}
