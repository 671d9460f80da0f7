// Package repository defines persistence contracts for the authorisation engine.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/adorsys/xs2a-consent-engine/internal/model"
)

// AuthorisationRepository provides versioned access to SCA authorisations.
type AuthorisationRepository interface {
	// Create inserts a new authorisation at version 1.
	Create(ctx context.Context, a *model.Authorisation) error

	// Get returns an authorisation by id, or errs.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*model.Authorisation, error)

	// Save persists the authorisation if its stored version still equals
	// expectedVer (ver++ on success); errs.ErrVersionConflict otherwise.
	// A losing writer must retry from a fresh read, never apply on top of
	// stale state.
	Save(ctx context.Context, a *model.Authorisation, expectedVer int64) error

	// ListByParent returns all authorisations attached to a consent/payment.
	ListByParent(ctx context.Context, parentID string) ([]model.Authorisation, error)
}
