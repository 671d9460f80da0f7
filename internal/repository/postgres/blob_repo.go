package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/adorsys/xs2a-consent-engine/internal/model"
)

// BlobRepo implements BlobRepository using PostgreSQL.
type BlobRepo struct{ db *DB }

// NewBlobRepo constructs a consent-blob repository.
func NewBlobRepo(db *DB) *BlobRepo { return &BlobRepo{db: db} }

// Load returns the blob for a parent. No row means "no data yet" and yields
// the empty tombstone, not an error.
func (r *BlobRepo) Load(ctx context.Context, parentID string) (model.EncryptedBlob, error) {
	const q = `SELECT provider_id, ciphertext FROM consent_blobs WHERE parent_id=$1`
	var b model.EncryptedBlob
	if err := r.db.Pool.QueryRow(ctx, q, parentID).Scan(&b.ProviderID, &b.Ciphertext); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.EncryptedBlob{}, nil
		}
		return model.EncryptedBlob{}, err
	}
	return b, nil
}

// Save replaces the blob for a parent (full replace, not patch).
func (r *BlobRepo) Save(ctx context.Context, parentID string, blob model.EncryptedBlob) error {
	const q = `
INSERT INTO consent_blobs (parent_id, provider_id, ciphertext, updated_at)
VALUES ($1,$2,$3,now())
ON CONFLICT (parent_id)
DO UPDATE SET provider_id=EXCLUDED.provider_id, ciphertext=EXCLUDED.ciphertext, updated_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, parentID, blob.ProviderID, blob.Ciphertext)
	return err
}
