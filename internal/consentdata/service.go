package consentdata

import (
	"context"
	"fmt"

	"github.com/adorsys/xs2a-consent-engine/internal/model"
	"github.com/adorsys/xs2a-consent-engine/internal/repository"
)

// Service is the consent-data boundary used by the workflow: it resolves
// opaque external ids and moves working data in and out of encrypted storage.
type Service struct {
	ids   *Identifiers
	codec *Codec
	blobs repository.BlobRepository
}

// NewService wires the identifier codec, the blob codec and the blob store.
func NewService(ids *Identifiers, codec *Codec, blobs repository.BlobRepository) *Service {
	return &Service{ids: ids, codec: codec, blobs: blobs}
}

// IssueExternalID creates the opaque external id for a newly created
// consent/payment and returns it to hand to the TPP.
func (s *Service) IssueExternalID(internalID string) (string, error) {
	externalID, _, err := s.ids.EncryptID(internalID)
	return externalID, err
}

// Load resolves the external id and returns the decrypted working data.
// A consent with no data yet yields empty bytes.
func (s *Service) Load(ctx context.Context, externalID string) ([]byte, error) {
	internalID, consentKey, err := s.ids.DecryptID(externalID)
	if err != nil {
		return nil, err
	}
	blob, err := s.blobs.Load(ctx, internalID)
	if err != nil {
		return nil, fmt.Errorf("load blob: %w", err)
	}
	return s.codec.Load(blob, consentKey)
}

// Store resolves the external id, encrypts plaintext under the current
// default data provider and replaces the stored blob. Storing empty data
// writes the tombstone.
func (s *Service) Store(ctx context.Context, externalID string, plaintext []byte) error {
	internalID, consentKey, err := s.ids.DecryptID(externalID)
	if err != nil {
		return err
	}
	blob, err := s.codec.Store(plaintext, consentKey)
	if err != nil {
		return err
	}
	if err := s.blobs.Save(ctx, internalID, blob); err != nil {
		return fmt.Errorf("save blob: %w", err)
	}
	return nil
}

// Clear writes the tombstone for a finalized or expired parent.
func (s *Service) Clear(ctx context.Context, externalID string) error {
	internalID, _, err := s.ids.DecryptID(externalID)
	if err != nil {
		return err
	}
	if err := s.blobs.Save(ctx, internalID, model.EncryptedBlob{}); err != nil {
		return fmt.Errorf("clear blob: %w", err)
	}
	return nil
}
