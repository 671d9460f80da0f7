package provider

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/adorsys/xs2a-consent-engine/internal/errs"
)

// AES-GCM provider parameters. The id string predates this implementation
// and must never change: blobs written under it resolve by this id.
const (
	aesGcmProviderID = "bS6p6XvTWI"

	aesSaltLen = 16
	aesKeyLen  = 32
)

// AesGcmProvider encrypts with AES-256-GCM under a PBKDF2-HMAC-SHA256 key.
// Ciphertext layout: salt || nonce || sealed.
type AesGcmProvider struct {
	id         string
	iterations int
}

// NewAesGcm constructs the default AES-GCM data provider.
func NewAesGcm(iterations int) *AesGcmProvider {
	if iterations <= 0 {
		iterations = 65536
	}
	return &AesGcmProvider{id: aesGcmProviderID, iterations: iterations}
}

// ID returns the stable provider identifier.
func (p *AesGcmProvider) ID() string { return p.id }

// Encrypt seals plaintext with a fresh salt and nonce.
func (p *AesGcmProvider) Encrypt(plaintext []byte, password string) ([]byte, error) {
	salt, err := randBytes(aesSaltLen)
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", errs.ErrEncryptionFailed, err)
	}
	aead, err := p.aead(password, salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrEncryptionFailed, err)
	}
	nonce, err := randBytes(aead.NonceSize())
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", errs.ErrEncryptionFailed, err)
	}
	out := make([]byte, 0, aesSaltLen+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, nil)...)
	return out, nil
}

// Decrypt opens ciphertext produced by Encrypt.
func (p *AesGcmProvider) Decrypt(ciphertext []byte, password string) ([]byte, error) {
	if len(ciphertext) < aesSaltLen {
		return nil, errs.ErrDecryptionFailed
	}
	salt := ciphertext[:aesSaltLen]
	aead, err := p.aead(password, salt)
	if err != nil {
		return nil, fmt.Errorf("aes-gcm init: %w", err)
	}
	rest := ciphertext[aesSaltLen:]
	if len(rest) < aead.NonceSize() {
		return nil, errs.ErrDecryptionFailed
	}
	nonce := rest[:aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, rest[aead.NonceSize():], nil)
	if err != nil {
		// Authentication failure: wrong password or corrupted data.
		return nil, errs.ErrDecryptionFailed
	}
	return plaintext, nil
}

func (p *AesGcmProvider) aead(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, p.iterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}
