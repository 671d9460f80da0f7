// Package provider contains the symmetric-encryption strategies protecting
// consent data at rest. Every provider carries a stable, never-reused id
// that is stamped into each blob it writes, so historical data keeps
// decrypting after the default provider changes.
package provider

// CryptoKind classifies what a default provider is used for.
type CryptoKind int

const (
	// KindData encrypts consent/payment working data blobs.
	KindData CryptoKind = iota
	// KindIdentifier encrypts external consent/payment identifiers.
	KindIdentifier
)

// CryptoProvider is a single encryption strategy. Implementations hold only
// immutable configuration and are safe for concurrent use.
type CryptoProvider interface {
	// ID returns the stable provider identifier embedded in ciphertext records.
	ID() string

	// Encrypt seals plaintext under a key derived from password.
	Encrypt(plaintext []byte, password string) ([]byte, error)

	// Decrypt opens ciphertext. A wrong password or corrupted input returns
	// errs.ErrDecryptionFailed; anything else indicates misconfiguration.
	Decrypt(ciphertext []byte, password string) ([]byte, error)
}
