package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/adorsys/xs2a-consent-engine/internal/errs"
	"github.com/adorsys/xs2a-consent-engine/internal/model"
)

// AuthorisationRepo implements AuthorisationRepository using PostgreSQL.
type AuthorisationRepo struct{ db *DB }

// NewAuthorisationRepo constructs an authorisation repository.
func NewAuthorisationRepo(db *DB) *AuthorisationRepo { return &AuthorisationRepo{db: db} }

const authorisationColumns = `id, parent_id, auth_type, sca_status, psu_id, psu_id_type, psu_corporate_id,
approach, method_id, challenge_issued, failed_attempts, ver, received_at, updated_at`

// Create inserts a new authorisation at version 1.
func (r *AuthorisationRepo) Create(ctx context.Context, a *model.Authorisation) error {
	const q = `
INSERT INTO authorisations
(id, parent_id, auth_type, sca_status, psu_id, psu_id_type, psu_corporate_id,
 approach, method_id, challenge_issued, failed_attempts, ver, received_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,1,$12,$13)`
	_, err := r.db.Pool.Exec(ctx, q,
		a.ID, a.ParentID, string(a.Type), string(a.Status),
		a.PsuData.PsuID, a.PsuData.PsuIDType, a.PsuData.PsuCorporateID,
		string(a.ChosenApproach), a.MethodID, a.ChallengeIssued, a.FailedAttempts,
		a.ReceivedAt, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	a.Ver = 1
	return nil
}

// Get returns an authorisation by id.
func (r *AuthorisationRepo) Get(ctx context.Context, id uuid.UUID) (*model.Authorisation, error) {
	const q = `SELECT ` + authorisationColumns + ` FROM authorisations WHERE id=$1`
	a, err := scanAuthorisation(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// Save persists the record if its stored version still equals expectedVer.
// The read and the write share one transaction so a losing writer can never
// overwrite a newer state.
func (r *AuthorisationRepo) Save(ctx context.Context, a *model.Authorisation, expectedVer int64) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const sel = `SELECT ver FROM authorisations WHERE id=$1 FOR UPDATE`
	var curVer int64
	if err = tx.QueryRow(ctx, sel, a.ID).Scan(&curVer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	if curVer != expectedVer {
		return errs.ErrVersionConflict
	}

	const upd = `
UPDATE authorisations
SET sca_status=$2, psu_id=$3, psu_id_type=$4, psu_corporate_id=$5,
    approach=$6, method_id=$7, challenge_issued=$8, failed_attempts=$9,
    ver=$10, updated_at=$11
WHERE id=$1`
	newVer := curVer + 1
	if _, err = tx.Exec(ctx, upd,
		a.ID, string(a.Status),
		a.PsuData.PsuID, a.PsuData.PsuIDType, a.PsuData.PsuCorporateID,
		string(a.ChosenApproach), a.MethodID, a.ChallengeIssued, a.FailedAttempts,
		newVer, a.UpdatedAt,
	); err != nil {
		return err
	}
	a.Ver = newVer
	return nil
}

// ListByParent returns all authorisations attached to a consent/payment.
func (r *AuthorisationRepo) ListByParent(ctx context.Context, parentID string) ([]model.Authorisation, error) {
	const q = `SELECT ` + authorisationColumns + ` FROM authorisations WHERE parent_id=$1 ORDER BY received_at`
	rows, err := r.db.Pool.Query(ctx, q, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Authorisation
	for rows.Next() {
		a, err := scanAuthorisation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAuthorisation(row pgx.Row) (*model.Authorisation, error) {
	var (
		a                          model.Authorisation
		authType, status, approach string
	)
	if err := row.Scan(
		&a.ID, &a.ParentID, &authType, &status,
		&a.PsuData.PsuID, &a.PsuData.PsuIDType, &a.PsuData.PsuCorporateID,
		&approach, &a.MethodID, &a.ChallengeIssued, &a.FailedAttempts,
		&a.Ver, &a.ReceivedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Type = model.AuthorisationType(authType)
	a.Status = model.ScaStatus(status)
	a.ChosenApproach = model.ScaApproach(approach)
	return &a, nil
}
