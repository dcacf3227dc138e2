// Package cryptox implements the authenticated encryption used for event
// payloads: AES-256-GCM with a fresh random nonce per call, plus an argon2id
// key derivation for passphrase-based keys.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes. Seal appends
	// the tag to the ciphertext; the wire codec splits it back off.
	TagSize = 16
)

var (
	ErrInvalidKeySize   = errors.New("invalid key size")
	ErrInvalidNonceSize = errors.New("invalid nonce size")
)

// Cryptor encrypts and decrypts single plaintext blobs with a fixed key.
// Safe for concurrent use.
type Cryptor struct {
	aead cipher.AEAD
}

// New returns a Cryptor for the given 32-byte key.
func New(key []byte) (*Cryptor, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeySize, len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cryptor{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce. The returned ciphertext
// carries the authentication tag in its last TagSize bytes.
func (c *Cryptor) Encrypt(plaintext []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	ciphertext = c.aead.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt opens ciphertext produced by Encrypt. It fails when the
// authentication tag does not verify or the input is malformed.
func (c *Cryptor) Decrypt(ciphertext, nonce []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidNonceSize, len(nonce), NonceSize)
	}
	return c.aead.Open(nil, nonce, ciphertext, nil)
}

// DeriveKey stretches a passphrase into a KeySize key using argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// MakeVerifier returns a fingerprint of key material that can be persisted to
// detect a mistyped passphrase later without storing the key itself.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}
