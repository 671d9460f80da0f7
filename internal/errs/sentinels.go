// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates optimistic concurrency failure (base version mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidTransition indicates an SCA status change the transition table forbids.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrBadCredential indicates a failed PSU password or authentication-data check.
	ErrBadCredential = errors.New("bad credential")

	// ErrBlocked indicates the requesting TPP is on the stop list.
	ErrBlocked = errors.New("tpp blocked")

	// ErrExpired indicates the authorisation outlived its confirmation period.
	ErrExpired = errors.New("authorisation expired")

	// ErrFormat indicates a missing or malformed field in an update payload.
	ErrFormat = errors.New("malformed payload")

	// ErrDecryptionFailed indicates a wrong password or corrupted ciphertext.
	// Expected under normal operation (stale client cache), never fatal.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrEncryptionFailed indicates the provider could not produce ciphertext.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrUnknownProvider indicates a blob references an unregistered crypto
	// provider. This is an operational misconfiguration, not a data problem.
	ErrUnknownProvider = errors.New("unknown crypto provider")

	// ErrChecksumMismatch indicates the consent's account-access set no longer
	// matches its stored checksum (possible tampering between TPP and ASPSP data).
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Stable machine-readable codes surfaced to the calling API layer.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeInvalidTransit   = "INVALID_TRANSITION"
	CodeBadCredential    = "BAD_CREDENTIAL"
	CodeBlocked          = "BLOCKED"
	CodeExpired          = "EXPIRED"
	CodeFormatError      = "FORMAT_ERROR"
	CodeDecryptionFailed = "DECRYPTION_FAILED"
	CodeChecksum         = "CHECKSUM_MISMATCH"
	CodeInternal         = "INTERNAL"
)

// CodeOf maps an error chain to its stable code. Unrecognized errors map to
// INTERNAL so callers never leak internal detail by accident.
func CodeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrVersionConflict):
		return CodeConflict
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransit
	case errors.Is(err, ErrBadCredential):
		return CodeBadCredential
	case errors.Is(err, ErrBlocked):
		return CodeBlocked
	case errors.Is(err, ErrExpired):
		return CodeExpired
	case errors.Is(err, ErrFormat):
		return CodeFormatError
	case errors.Is(err, ErrDecryptionFailed):
		return CodeDecryptionFailed
	case errors.Is(err, ErrChecksumMismatch):
		return CodeChecksum
	default:
		return CodeInternal
	}
}
