package meld

import "errors"

// Sentinel errors for component operations.
var (
	ErrComponentNotFound = errors.New("meld: component not found")
	ErrTemplateNotFound  = errors.New("meld: template not found")
	ErrNoRootElement     = errors.New("meld: no root element found")
	ErrRenderFailed      = errors.New("meld: render failed")
	ErrInvalidMessage    = errors.New("meld: invalid message")
	ErrActionFailed      = errors.New("meld: action failed")
	ErrSignatureInvalid  = errors.New("meld: snapshot signature verification failed")
	ErrInvalidFormat     = errors.New("meld: invalid message format")
	ErrReservedName      = errors.New("meld: reserved name")
	ErrInvalidComponent  = errors.New("meld: invalid component type")
)

// IsNotFound checks if err is a missing component or template error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrComponentNotFound) || errors.Is(err, ErrTemplateNotFound)
}

// IsRenderError checks if err was produced by the render pipeline.
func IsRenderError(err error) bool {
	return errors.Is(err, ErrNoRootElement) ||
		errors.Is(err, ErrRenderFailed) ||
		errors.Is(err, ErrTemplateNotFound)
}

// IsClientError checks if err was caused by a malformed or tampered message.
// Transports report these as bad requests rather than server failures.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrSignatureInvalid)
}
