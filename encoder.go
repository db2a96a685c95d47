package meld

import (
	"errors"
	"fmt"

	"github.com/pthm/meld/lib/encoding"
)

// Signer is an alias for encoding.Signer for convenience.
type Signer = encoding.Signer

// Codec is an alias for encoding.Codec for convenience.
type Codec = encoding.Codec

// NewSigner creates a snapshot signer with the given key.
func NewSigner(key []byte) (*Signer, error) {
	return encoding.NewSigner(key)
}

// DecodeMessage decodes a client message with codec.
func DecodeMessage(codec Codec, data []byte) (*Message, error) {
	var msg Message
	if err := codec.Unmarshal(data, &msg); err != nil {
		return nil, wrapEncodingError(err)
	}
	return &msg, nil
}

// wrapEncodingError wraps encoding package errors with meld sentinel errors.
func wrapEncodingError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, encoding.ErrInvalidFormat) {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if errors.Is(err, encoding.ErrSignatureInvalid) {
		return ErrSignatureInvalid
	}
	return err
}
