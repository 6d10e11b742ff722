// Package cryptox is the FileGuard crypto engine: password-based key
// derivation, AES-256-GCM payload encryption, key fingerprints and the
// advisory key-expiry policy.
//
// An encrypted payload is a single opaque byte sequence laid out as
//
//	nonce (16 bytes) || tag (16 bytes) || ciphertext
//
// Callers must treat it as opaque and never reorder its parts.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize  = 16
	KeySize   = 32
	NonceSize = 16
	TagSize   = 16

	DefaultIterations = 100_000
	DefaultValidity   = 90 * 24 * time.Hour

	// MaxArgon2TimeCost caps argon2id passes; each pass walks 64 MiB.
	MaxArgon2TimeCost = 16
)

// Algorithm names a supported KDF.
type Algorithm string

const (
	PBKDF2   Algorithm = "pbkdf2-sha256"
	Argon2ID Algorithm = "argon2id"
)

var (
	ErrKeyDerivation      = errors.New("key derivation failed")
	ErrIntegrityViolation = errors.New("integrity violation")
	ErrInvalidKeySize     = errors.New("invalid key size")
)

// KDFParams configures DeriveKey. Iterations is the PBKDF2 round count, or
// the argon2id time cost (at most MaxArgon2TimeCost).
type KDFParams struct {
	Algorithm  Algorithm
	Iterations int
}

// DefaultKDF is PBKDF2-HMAC-SHA256 with 100k rounds.
func DefaultKDF() KDFParams {
	return KDFParams{Algorithm: PBKDF2, Iterations: DefaultIterations}
}

// String renders the params the way they are recorded next to the salt,
// e.g. "pbkdf2-sha256:100000".
func (p KDFParams) String() string {
	return fmt.Sprintf("%s:%d", p.Algorithm, p.Iterations)
}

// ParseKDFParams reverses KDFParams.String.
func ParseKDFParams(s string) (KDFParams, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return KDFParams{}, fmt.Errorf("%w: malformed kdf %q", ErrKeyDerivation, s)
	}
	it, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return KDFParams{}, fmt.Errorf("%w: bad kdf iterations in %q", ErrKeyDerivation, s)
	}
	p := KDFParams{Algorithm: Algorithm(s[:i]), Iterations: it}
	if err := p.validate(); err != nil {
		return KDFParams{}, err
	}
	return p, nil
}

func (p KDFParams) validate() error {
	switch p.Algorithm {
	case PBKDF2, Argon2ID:
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrKeyDerivation, p.Algorithm)
	}
	if p.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be positive", ErrKeyDerivation)
	}
	if p.Algorithm == Argon2ID && p.Iterations > MaxArgon2TimeCost {
		return fmt.Errorf("%w: argon2id time cost %d exceeds %d", ErrKeyDerivation, p.Iterations, MaxArgon2TimeCost)
	}
	return nil
}

// Key is derived key material together with the salt that produced it.
// Material must never be logged or persisted; use Fingerprint instead.
type Key struct {
	Material  []byte
	Salt      []byte
	CreatedAt time.Time
}

// Fingerprint is HashKey(k.Material).
func (k *Key) Fingerprint() string {
	return HashKey(k.Material)
}

// Wipe zeroes the key material.
func (k *Key) Wipe() {
	for i := range k.Material {
		k.Material[i] = 0
	}
}

// DeriveKey turns password into a 32-byte key. A nil or empty salt is
// replaced by SaltSize fresh random bytes. The same password, salt and
// params always yield the same key.
func DeriveKey(password, salt []byte, params KDFParams) (*Key, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	if len(salt) == 0 {
		salt = make([]byte, SaltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
		}
	}

	var material []byte
	switch params.Algorithm {
	case PBKDF2:
		material = pbkdf2.Key(password, salt, params.Iterations, KeySize, sha256.New)
	case Argon2ID:
		material = argon2.IDKey(password, salt, uint32(params.Iterations), 64*1024, 4, KeySize)
	}

	return &Key{Material: material, Salt: salt, CreatedAt: time.Now().UTC()}, nil
}

// IsExpired reports whether now is past createdAt+validity. Expiry is
// advisory; Encrypt and Decrypt do not check it.
func IsExpired(createdAt, now time.Time, validity time.Duration) bool {
	return now.After(createdAt.Add(validity))
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}

// Encrypt seals plaintext under key with a fresh random nonce and returns
// nonce||tag||ciphertext.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	// Seal yields ciphertext||tag; move the tag in front of the ciphertext.
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ctLen := len(sealed) - TagSize

	out := make([]byte, 0, NonceSize+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed[ctLen:]...)
	out = append(out, sealed[:ctLen]...)
	return out, nil
}

// Decrypt authenticates and opens a payload produced by Encrypt. Any
// failure to authenticate, including a truncated payload or a wrong key,
// returns ErrIntegrityViolation and no plaintext.
func Decrypt(payload, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(payload) < NonceSize+TagSize {
		return nil, ErrIntegrityViolation
	}

	nonce := payload[:NonceSize]
	tag := payload[NonceSize : NonceSize+TagSize]
	ct := payload[NonceSize+TagSize:]

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrIntegrityViolation
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// EncodePayload base64-encodes a payload for text-only transports.
func EncodePayload(payload []byte) string {
	return base64.StdEncoding.EncodeToString(payload)
}

// DecodePayload reverses EncodePayload.
func DecodePayload(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64: %v", ErrIntegrityViolation, err)
	}
	return b, nil
}

// HashKey returns the hex sha256 of key. It identifies a key in metadata
// and audit records and cannot be turned back into the key.
func HashKey(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:])
}

// ContentHash returns the hex sha256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// EncryptMetadata JSON-encodes v and encrypts it under key.
func EncryptMetadata(v any, key []byte) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Encrypt(plaintext, key)
}

// DecryptMetadata opens a payload from EncryptMetadata into v.
func DecryptMetadata(payload, key []byte, v any) error {
	plaintext, err := Decrypt(payload, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}
