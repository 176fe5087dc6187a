// Package constants centralizes the magic numbers used across the media
// cryptography and transport packages.
package constants

import "time"

// Key derivation and wire-format sizes.
const (
	// MediaKeySize is the length in bytes of the random master media key.
	MediaKeySize = 32

	// DerivedKeyMaterialSize is the total HKDF expansion length: iv(16) +
	// cipherKey(32) + macKey(32) + refKey(32).
	DerivedKeyMaterialSize = 112

	// IVSize is the AES-CBC initialization vector size.
	IVSize = 16

	// CipherKeySize is the AES-256 key size.
	CipherKeySize = 32

	// MacKeySize is the HMAC-SHA256 key size.
	MacKeySize = 32

	// RefKeySize is the size of the key segment HKDF expansion reserves for
	// the protocol's reference/validation use, currently unused here.
	RefKeySize = 32

	// MacTagSize is the truncated HMAC-SHA256 tag length appended to the
	// ciphertext on the wire.
	MacTagSize = 10

	// BlockSize is the AES block size used for CBC padding and ranged-read
	// boundary arithmetic.
	BlockSize = 16
)

// Streaming buffer sizes.
const (
	// StreamChunkSize is the read/encrypt/write chunk size used while
	// streaming through the encrypt and decrypt pipelines.
	StreamChunkSize = 16 * 1024
)

// Retry protocol.
const (
	// RetryNonceSize is the AES-256-GCM nonce size for media-retry payloads.
	RetryNonceSize = 12

	// RetryTagSize is the AES-256-GCM authentication tag size.
	RetryTagSize = 16
)

// Retry/backoff configuration for the upload dispatcher's per-host POST.
const (
	// DefaultMaxRetries is the maximum number of attempts ExecuteWithRetry
	// will make before giving up.
	DefaultMaxRetries = 10

	// DefaultRetryInitialDelay is the base delay for exponential backoff.
	DefaultRetryInitialDelay = 200 * time.Millisecond

	// DefaultRetryMaxDelay caps the backoff delay.
	DefaultRetryMaxDelay = 15 * time.Second
)

// HTTP client tuning, mirrored from the transport layer's performance testing.
const (
	HTTPMaxIdleConns          = 512
	HTTPMaxIdleConnsPerHost   = 100
	HTTPMaxConnsPerHost       = 100
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPTLSHandshakeTimeout   = 60 * time.Second
	HTTPExpectContinueTimeout = 1 * time.Second
	HTTPDialTimeout           = 30 * time.Second
	HTTPDialKeepAlive         = 30 * time.Second
)

// Upload dispatch defaults.
const (
	// DefaultMaxContentLengthBytes is a 100 MB reference cap, matching
	// typical WhatsApp media caps. It is not applied automatically: a host
	// whose config entry omits max_content_length_bytes has no cap.
	DefaultMaxContentLengthBytes = 100 * 1024 * 1024

	// DefaultUploadTimeout bounds a single host attempt.
	DefaultUploadTimeout = 2 * time.Minute
)
