package consentdata

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/adorsys/xs2a-consent-engine/internal/crypto/provider"
	"github.com/adorsys/xs2a-consent-engine/internal/errs"
)

// idSeparator splits the embedded consent key from the internal id inside
// the encrypted payload, and the provider id from the opaque external id.
// The literal is part of the persisted wire format.
const idSeparator = "_=_"

// consentKeyLen is the length of the per-consent data-encryption password.
const consentKeyLen = 16

// Identifiers encrypts internal consent/payment ids into the opaque
// external ids handed to TPPs. The external id carries the id of the
// provider that sealed it, so rotation of the identifier default never
// invalidates ids already in circulation.
type Identifiers struct {
	holder    *provider.Holder
	serverKey string
}

// NewIdentifiers constructs the identifier codec. serverKey is the
// installation-wide identifier-encryption password.
func NewIdentifiers(holder *provider.Holder, serverKey string) *Identifiers {
	return &Identifiers{holder: holder, serverKey: serverKey}
}

// EncryptID seals internalID together with a fresh consent key. The consent
// key doubles as the password for the consent's data blob, so it travels
// only inside the external id, never in storage.
func (i *Identifiers) EncryptID(internalID string) (externalID, consentKey string, err error) {
	consentKey, err = newConsentKey()
	if err != nil {
		return "", "", err
	}
	p := i.holder.Default(provider.KindIdentifier)
	ct, err := p.Encrypt([]byte(internalID+idSeparator+consentKey), i.serverKey)
	if err != nil {
		return "", "", fmt.Errorf("encrypt id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(ct) + idSeparator + p.ID(), consentKey, nil
}

// DecryptID recovers the internal id and consent key from an external id.
// Malformed input is a format error; a failed decrypt means a stale or
// forged id and is reported as a decryption failure.
func (i *Identifiers) DecryptID(externalID string) (internalID, consentKey string, err error) {
	sep := strings.LastIndex(externalID, idSeparator)
	if sep < 0 {
		return "", "", fmt.Errorf("%w: external id has no provider suffix", errs.ErrFormat)
	}
	providerID := externalID[sep+len(idSeparator):]
	p, ok := i.holder.ByID(providerID)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", errs.ErrUnknownProvider, providerID)
	}
	ct, err := base64.RawURLEncoding.DecodeString(externalID[:sep])
	if err != nil {
		return "", "", fmt.Errorf("%w: external id is not base64", errs.ErrFormat)
	}
	plain, err := p.Decrypt(ct, i.serverKey)
	if err != nil {
		return "", "", fmt.Errorf("decrypt id: %w", err)
	}
	parts := strings.SplitN(string(plain), idSeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: decrypted id has no consent key", errs.ErrFormat)
	}
	return parts[0], parts[1], nil
}

func newConsentKey() (string, error) {
	b := make([]byte, consentKeyLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:consentKeyLen], nil
}
