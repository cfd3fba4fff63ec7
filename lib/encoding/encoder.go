// Package encoding carries image attributes inside lazy-load URLs.
//
// Attributes are packed with msgpack and then either signed (visible but
// tamper-proof) or sealed with AES-256-GCM (opaque). Signing is the default;
// sealing hides origin URLs from the page source.
package encoding

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrInvalidFormat    = errors.New("encoding: invalid payload format")
	ErrSignatureInvalid = errors.New("encoding: signature verification failed")
	ErrDecryptFailed    = errors.New("encoding: payload decryption failed")
	ErrEmptyKey         = errors.New("encoding: empty key")
)

// Mode selects how a payload is protected.
type Mode int

const (
	Signed Mode = iota
	Sealed
)

// sigLen is the truncated HMAC length in bytes.
const sigLen = 16

// Encodable is implemented by types that flatten into attribute pairs.
type Encodable interface {
	AttributeMap() map[string]string
}

// Decodable is implemented by types rebuilt from attribute pairs.
type Decodable interface {
	SetAttributeMap(map[string]string) error
}

// Encoder protects and restores attribute payloads.
type Encoder struct {
	key []byte
	gcm cipher.AEAD
}

// NewEncoder creates an encoder. Keys shorter than 32 bytes are stretched
// with SHA-256.
func NewEncoder(key []byte) (*Encoder, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}
	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Encoder{key: key, gcm: gcm}, nil
}

// Encode packs v and protects it according to mode.
func (e *Encoder) Encode(v Encodable, mode Mode) (string, error) {
	packed, err := msgpack.Marshal(v.AttributeMap())
	if err != nil {
		return "", fmt.Errorf("encoding: pack: %w", err)
	}
	if mode == Sealed {
		return e.seal(packed)
	}
	return e.sign(packed), nil
}

// Decode verifies or opens encoded and unpacks it into v.
func (e *Encoder) Decode(encoded string, mode Mode, v Decodable) error {
	var (
		packed []byte
		err    error
	)
	if mode == Sealed {
		packed, err = e.open(encoded)
	} else {
		packed, err = e.verify(encoded)
	}
	if err != nil {
		return err
	}

	var m map[string]string
	if err := msgpack.Unmarshal(packed, &m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return v.SetAttributeMap(m)
}

// sign returns base64(payload).base64(hmac[:16]).
func (e *Encoder) sign(data []byte) string {
	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	return base64.RawURLEncoding.EncodeToString(data) + "." +
		base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:sigLen])
}

func (e *Encoder) verify(encoded string) ([]byte, error) {
	payload, sig, ok := strings.Cut(encoded, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidFormat)
	}
	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	if !hmac.Equal(got, mac.Sum(nil)[:sigLen]) {
		return nil, ErrSignatureInvalid
	}
	return data, nil
}

// seal returns base64(nonce || ciphertext).
func (e *Encoder) seal(data []byte) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(e.gcm.Seal(nonce, nonce, data, nil)), nil
}

func (e *Encoder) open(encoded string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	n := e.gcm.NonceSize()
	if len(raw) < n {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrInvalidFormat)
	}
	data, err := e.gcm.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return data, nil
}
