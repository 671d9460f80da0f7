package provider

import (
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/adorsys/xs2a-consent-engine/internal/errs"
)

// XChaCha20-Poly1305 provider parameters.
const (
	chachaProviderID = "JcHZwvJMuc"

	chachaSaltLen = 16

	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
)

// ChaChaProvider encrypts with XChaCha20-Poly1305 under an Argon2id key.
// Ciphertext layout: salt || nonce || sealed.
type ChaChaProvider struct {
	id string
}

// NewChaCha constructs the XChaCha20-Poly1305 provider.
func NewChaCha() *ChaChaProvider {
	return &ChaChaProvider{id: chachaProviderID}
}

// ID returns the stable provider identifier.
func (p *ChaChaProvider) ID() string { return p.id }

// Encrypt seals plaintext with a fresh salt and nonce.
func (p *ChaChaProvider) Encrypt(plaintext []byte, password string) ([]byte, error) {
	salt, err := randBytes(chachaSaltLen)
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", errs.ErrEncryptionFailed, err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrEncryptionFailed, err)
	}
	nonce, err := randBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", errs.ErrEncryptionFailed, err)
	}
	out := make([]byte, 0, chachaSaltLen+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, nil)...)
	return out, nil
}

// Decrypt opens ciphertext produced by Encrypt.
func (p *ChaChaProvider) Decrypt(ciphertext []byte, password string) ([]byte, error) {
	if len(ciphertext) < chachaSaltLen+chacha20poly1305.NonceSizeX {
		return nil, errs.ErrDecryptionFailed
	}
	salt := ciphertext[:chachaSaltLen]
	aead, err := chacha20poly1305.NewX(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("xchacha init: %w", err)
	}
	nonce := ciphertext[chachaSaltLen : chachaSaltLen+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, ciphertext[chachaSaltLen+chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return nil, errs.ErrDecryptionFailed
	}
	return plaintext, nil
}

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}
