// Package envelope implements the authenticated-encryption primitive used to
// store credentials at rest. An envelope is a single-line self-describing
// string safe to embed in configuration files; it is meaningless without the
// locally-held key file. The package knows nothing about what it encrypts.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/rendis/credgate/pkg/schema"
)

// Envelope text format: ENC[<nonce-b64>:<tag-b64>:<ciphertext-b64>].
// Nonce and tag sizes are part of the format; changing them is a breaking
// format change.
const (
	Prefix = "ENC["
	Suffix = "]"

	nonceSize = 12 // standard GCM nonce
	tagSize   = 16 // GCM tag
)

// IsEnvelope reports whether s has the envelope markers. It does not verify
// the contents; Decrypt does.
func IsEnvelope(s string) bool {
	return strings.HasPrefix(s, Prefix) && strings.HasSuffix(s, Suffix)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, schema.NewErrorf(schema.ErrCodeEnvelope, "key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeEnvelope, "aes cipher: %v", err).WithCause(err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeEnvelope, "gcm: %v", err).WithCause(err)
	}
	return aead, nil
}

// Encrypt seals value under key with AES-256-GCM and serializes the result
// as an envelope string. A fresh random nonce is generated on every call;
// nonce reuse under one key silently breaks confidentiality, so the nonce is
// never derived from the value or any counter held by the caller.
func Encrypt(value string, key []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", schema.NewErrorf(schema.ErrCodeEnvelope, "generate nonce: %v", err).WithCause(err)
	}

	sealed := aead.Seal(nil, nonce, []byte(value), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	b64 := base64.StdEncoding
	return Prefix +
		b64.EncodeToString(nonce) + ":" +
		b64.EncodeToString(tag) + ":" +
		b64.EncodeToString(ct) +
		Suffix, nil
}

// Decrypt parses an envelope string and recovers the plaintext. Any shape
// problem (missing marker, wrong field count, bad base64, wrong sizes) and
// any authentication failure (tampered data, wrong key, truncation) is a
// hard error; no partial or best-effort plaintext is ever returned.
func Decrypt(envelope string, key []byte) (string, error) {
	if !strings.HasPrefix(envelope, Prefix) || !strings.HasSuffix(envelope, Suffix) {
		return "", schema.NewError(schema.ErrCodeEnvelope, "envelope is missing ENC[...] markers")
	}
	body := envelope[len(Prefix) : len(envelope)-len(Suffix)]

	parts := strings.Split(body, ":")
	if len(parts) != 3 {
		return "", schema.NewErrorf(schema.ErrCodeEnvelope, "envelope has %d fields, want 3", len(parts))
	}

	b64 := base64.StdEncoding
	nonce, err := b64.DecodeString(parts[0])
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeEnvelope, "envelope nonce is not valid base64: %v", err).WithCause(err)
	}
	tag, err := b64.DecodeString(parts[1])
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeEnvelope, "envelope tag is not valid base64: %v", err).WithCause(err)
	}
	ct, err := b64.DecodeString(parts[2])
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeEnvelope, "envelope ciphertext is not valid base64: %v", err).WithCause(err)
	}
	if len(nonce) != nonceSize {
		return "", schema.NewErrorf(schema.ErrCodeEnvelope, "envelope nonce is %d bytes, want %d", len(nonce), nonceSize)
	}
	if len(tag) != tagSize {
		return "", schema.NewErrorf(schema.ErrCodeEnvelope, "envelope tag is %d bytes, want %d", len(tag), tagSize)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", schema.NewError(schema.ErrCodeEnvelope,
			"envelope authentication failed: tampered data, truncation, or wrong key").WithCause(err)
	}
	return string(plaintext), nil
}

// Keychain binds the cipher to a key file path, loading (or creating) the
// key on first use.
type Keychain struct {
	path string
	key  []byte
}

// NewKeychain returns a Keychain for the given key file path. The file is
// not touched until Seal or Open is called.
func NewKeychain(path string) *Keychain {
	return &Keychain{path: path}
}

func (k *Keychain) loadSeal() ([]byte, error) {
	if k.key == nil {
		key, err := LoadOrCreateKey(k.path)
		if err != nil {
			return nil, err
		}
		k.key = key
	}
	return k.key, nil
}

func (k *Keychain) loadOpen() ([]byte, error) {
	if k.key == nil {
		// Open never generates a key: a fresh key cannot decrypt anything,
		// and generating one would mask a missing-key misconfiguration.
		key, err := LoadKey(k.path)
		if err != nil {
			return nil, err
		}
		k.key = key
	}
	return k.key, nil
}

// Seal encrypts value under the keychain's key, creating the key file on
// first use.
func (k *Keychain) Seal(value string) (string, error) {
	key, err := k.loadSeal()
	if err != nil {
		return "", err
	}
	return Encrypt(value, key)
}

// Open decrypts an envelope under the keychain's key. The key file must
// already exist.
func (k *Keychain) Open(envelope string) (string, error) {
	key, err := k.loadOpen()
	if err != nil {
		return "", err
	}
	return Decrypt(envelope, key)
}
