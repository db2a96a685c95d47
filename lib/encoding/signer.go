// Package encoding provides the wire codecs and snapshot signing used by
// meld transports.
package encoding

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors returned by this package.
var (
	ErrInvalidFormat    = errors.New("invalid format")
	ErrSignatureInvalid = errors.New("signature verification failed")
	ErrEmptyKey         = errors.New("empty signing key")
)

// Signer produces and checks HMAC-SHA256 checksums of component snapshots.
//
// Snapshots travel through the client between messages. Signing them makes
// the client-held state tamper-evident without hiding it.
type Signer struct {
	key []byte
}

// NewSigner creates a signer. Keys shorter than 32 bytes are stretched with
// SHA-256.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}
	return &Signer{key: key}, nil
}

// Sign returns the checksum of v's canonical JSON form.
func (s *Signer) Sign(v any) (string, error) {
	data, err := Canonical(v)
	if err != nil {
		return "", err
	}
	return s.sum(data), nil
}

// Verify checks sig against v.
func (s *Signer) Verify(v any, sig string) error {
	if sig == "" {
		return fmt.Errorf("%w: missing checksum", ErrSignatureInvalid)
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	data, err := Canonical(v)
	if err != nil {
		return err
	}
	want, _ := base64.RawURLEncoding.DecodeString(s.sum(data))
	if !hmac.Equal(got, want) {
		return ErrSignatureInvalid
	}
	return nil
}

func (s *Signer) sum(data []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(data)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16]) // 128 bits
}

// Canonical returns the JSON encoding of v with object keys sorted, so the
// server's ordered snapshot and the client's echo of it hash identically.
func Canonical(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
