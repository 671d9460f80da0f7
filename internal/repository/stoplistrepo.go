package repository

import (
	"context"
	"time"

	"github.com/adorsys/xs2a-consent-engine/internal/model"
)

// StopListRepository is the shared system of record for TPP blocks. It must
// not be replaced by a per-instance cache: blocking is security relevant and
// has to survive process restarts.
type StopListRepository interface {
	// Get returns the record for (tpp, instance), or errs.ErrNotFound.
	// Absence of a record means "not blocked".
	Get(ctx context.Context, tppAuthorisationNumber, instanceID string) (*model.TppStopListRecord, error)

	// Block creates the record if absent and sets blocked=true. A nil
	// blockedUntil is an indefinite block.
	Block(ctx context.Context, tppAuthorisationNumber, instanceID string, blockedUntil *time.Time) error

	// Unblock sets blocked=false on an existing record. Returns false if no
	// record existed (no-op signaled, the record is not created).
	Unblock(ctx context.Context, tppAuthorisationNumber, instanceID string) (bool, error)
}
