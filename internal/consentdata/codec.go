// Package consentdata encodes and decodes the opaque encrypted payload
// attached to a consent or payment, and encrypts external identifiers
// handed out to TPPs.
package consentdata

import (
	"fmt"

	"github.com/adorsys/xs2a-consent-engine/internal/crypto/provider"
	"github.com/adorsys/xs2a-consent-engine/internal/errs"
	"github.com/adorsys/xs2a-consent-engine/internal/model"
	"github.com/adorsys/xs2a-consent-engine/internal/obs"
)

// Codec translates between plaintext working data and provider-stamped
// encrypted blobs. Blobs written under an older provider keep decrypting
// until the next write, at which point they silently upgrade to the current
// default (lazy re-encryption under key rotation).
type Codec struct {
	holder *provider.Holder
}

// NewCodec constructs a codec over the given provider registry.
func NewCodec(holder *provider.Holder) *Codec {
	return &Codec{holder: holder}
}

// Store encrypts plaintext under the current default data provider and stamps
// the blob with that provider's id. Empty plaintext yields the tombstone blob
// without invoking any provider: empty is a valid "no data yet" state, not an
// encryption target.
func (c *Codec) Store(plaintext []byte, password string) (model.EncryptedBlob, error) {
	if len(plaintext) == 0 {
		return model.EncryptedBlob{}, nil
	}
	p := c.holder.Default(provider.KindData)
	ct, err := p.Encrypt(plaintext, password)
	obs.ObserveCryptoOp(p.ID(), "encrypt", err)
	if err != nil {
		return model.EncryptedBlob{}, fmt.Errorf("store consent data: %w", err)
	}
	return model.EncryptedBlob{ProviderID: p.ID(), Ciphertext: ct}, nil
}

// Load decrypts a blob with the provider that wrote it. An empty blob returns
// empty bytes without touching any provider. A provider id that no longer
// resolves is an operational misconfiguration and is surfaced as such, never
// as empty data.
func (c *Codec) Load(blob model.EncryptedBlob, password string) ([]byte, error) {
	if blob.IsEmpty() {
		return nil, nil
	}
	p, ok := c.holder.ByID(blob.ProviderID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownProvider, blob.ProviderID)
	}
	plaintext, err := p.Decrypt(blob.Ciphertext, password)
	obs.ObserveCryptoOp(p.ID(), "decrypt", err)
	if err != nil {
		return nil, fmt.Errorf("load consent data: %w", err)
	}
	return plaintext, nil
}
