// Package mediaerr defines the typed error kinds produced by the media
// cryptography and transport packages, following the sentinel-error plus
// classifier convention used throughout this module.
package mediaerr

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the error kinds from the protocol design.
// Wrap these with fmt.Errorf("...: %w", ErrXxx) to preserve errors.Is.
var (
	// ErrInvalidKey indicates an empty or malformed mediaKey was supplied to
	// the KDF.
	ErrInvalidKey = errors.New("mediaerr: invalid media key")

	// ErrStreamError indicates a source stream aborted or refused.
	ErrStreamError = errors.New("mediaerr: stream error")

	// ErrSizeExceeded indicates plaintext exceeded the configured
	// maxContentLength during encryption.
	ErrSizeExceeded = errors.New("mediaerr: size exceeded")

	// ErrDecryptError indicates cipher finalisation failed: bad padding
	// when not ranged, or a truncated ciphertext.
	ErrDecryptError = errors.New("mediaerr: decrypt error")

	// ErrMACMismatch indicates the trailing MAC did not match the computed
	// HMAC over iv||ciphertext during an opt-in full-object verification.
	ErrMACMismatch = errors.New("mediaerr: mac mismatch")

	// ErrUploadFailed indicates every upload host rejected the object.
	ErrUploadFailed = errors.New("mediaerr: upload failed")

	// ErrBodyTooLarge indicates the body exceeded a host's declared max
	// content length (413); causes skip to the next host.
	ErrBodyTooLarge = errors.New("mediaerr: body too large")

	// ErrRetryError indicates a missing rmr node, missing encrypt payload,
	// or a server-returned error code in a retry response.
	ErrRetryError = errors.New("mediaerr: retry protocol error")

	// ErrInvalidMediaURL indicates neither a usable url nor directPath was
	// available to resolve a download location.
	ErrInvalidMediaURL = errors.New("mediaerr: invalid media url")
)

// StatusError pairs a sentinel error kind with an HTTP-like status code and
// a short reason string, matching the "status code + reason + optional
// payload" shape required of user-visible errors.
type StatusError struct {
	Kind    error
	Status  int
	Reason  string
	Payload any
}

func (e *StatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%v: %s (status %d)", e.Kind, e.Reason, e.Status)
}

func (e *StatusError) Unwrap() error { return e.Kind }

// NewStatusError builds a StatusError wrapping one of the sentinel kinds
// above.
func NewStatusError(kind error, status int, reason string, payload any) *StatusError {
	return &StatusError{Kind: kind, Status: status, Reason: reason, Payload: payload}
}

// IsInvalidKeyError reports whether err is or wraps ErrInvalidKey.
func IsInvalidKeyError(err error) bool { return errors.Is(err, ErrInvalidKey) }

// IsStreamError reports whether err is or wraps ErrStreamError.
func IsStreamError(err error) bool { return errors.Is(err, ErrStreamError) }

// IsSizeExceededError reports whether err is or wraps ErrSizeExceeded.
func IsSizeExceededError(err error) bool { return errors.Is(err, ErrSizeExceeded) }

// IsDecryptError reports whether err is or wraps ErrDecryptError.
func IsDecryptError(err error) bool { return errors.Is(err, ErrDecryptError) }

// IsMACMismatchError reports whether err is or wraps ErrMACMismatch.
func IsMACMismatchError(err error) bool { return errors.Is(err, ErrMACMismatch) }

// IsUploadFailedError reports whether err is or wraps ErrUploadFailed.
func IsUploadFailedError(err error) bool { return errors.Is(err, ErrUploadFailed) }

// IsBodyTooLargeError reports whether err is or wraps ErrBodyTooLarge.
func IsBodyTooLargeError(err error) bool { return errors.Is(err, ErrBodyTooLarge) }

// IsRetryError reports whether err is or wraps ErrRetryError.
func IsRetryError(err error) bool { return errors.Is(err, ErrRetryError) }

// IsInvalidMediaURLError reports whether err is or wraps ErrInvalidMediaURL.
func IsInvalidMediaURLError(err error) bool { return errors.Is(err, ErrInvalidMediaURL) }

// StatusOf extracts the HTTP-like status code from err if it is a
// *StatusError, otherwise returns 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
