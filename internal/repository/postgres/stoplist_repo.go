package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/adorsys/xs2a-consent-engine/internal/errs"
	"github.com/adorsys/xs2a-consent-engine/internal/model"
)

// StopListRepo implements StopListRepository using PostgreSQL.
type StopListRepo struct{ db *DB }

// NewStopListRepo constructs a stop-list repository.
func NewStopListRepo(db *DB) *StopListRepo { return &StopListRepo{db: db} }

// Get returns the record for (tpp, instance).
func (r *StopListRepo) Get(ctx context.Context, tpp, instance string) (*model.TppStopListRecord, error) {
	const q = `
SELECT tpp_authorisation_number, instance_id, blocked, blocked_until, updated_at
FROM tpp_stop_list WHERE tpp_authorisation_number=$1 AND instance_id=$2`
	var rec model.TppStopListRecord
	err := r.db.Pool.QueryRow(ctx, q, tpp, instance).Scan(
		&rec.TppAuthorisationNumber, &rec.InstanceID, &rec.Blocked, &rec.BlockedUntil, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Block creates the record lazily on first use and marks it blocked.
func (r *StopListRepo) Block(ctx context.Context, tpp, instance string, blockedUntil *time.Time) error {
	const q = `
INSERT INTO tpp_stop_list (tpp_authorisation_number, instance_id, blocked, blocked_until, updated_at)
VALUES ($1,$2,true,$3,now())
ON CONFLICT (tpp_authorisation_number, instance_id)
DO UPDATE SET blocked=true, blocked_until=EXCLUDED.blocked_until, updated_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, tpp, instance, blockedUntil)
	return err
}

// Unblock lifts a block on an existing record. The record is retained, not
// deleted, and never created by this call.
func (r *StopListRepo) Unblock(ctx context.Context, tpp, instance string) (bool, error) {
	const q = `
UPDATE tpp_stop_list SET blocked=false, blocked_until=NULL, updated_at=now()
WHERE tpp_authorisation_number=$1 AND instance_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, tpp, instance)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
