package repository

import (
	"context"

	"github.com/adorsys/xs2a-consent-engine/internal/model"
)

// BlobRepository stores the encrypted working data of a consent/payment.
// Updates are full blob replacement, not patches.
type BlobRepository interface {
	// Load returns the blob for a parent, or the empty tombstone if none
	// has been written yet.
	Load(ctx context.Context, parentID string) (model.EncryptedBlob, error)

	// Save replaces the blob for a parent (upsert).
	Save(ctx context.Context, parentID string, blob model.EncryptedBlob) error
}
