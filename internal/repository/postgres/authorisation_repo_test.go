package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/adorsys/xs2a-consent-engine/internal/errs"
	"github.com/adorsys/xs2a-consent-engine/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func sampleAuthorisation() *model.Authorisation {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Authorisation{
		ID:         uuid.Must(uuid.NewV4()),
		ParentID:   "pay-123",
		Type:       model.AuthorisationPisCreation,
		Status:     model.StatusReceived,
		PsuData:    model.PsuIDData{PsuID: "alice"},
		ReceivedAt: now,
		UpdatedAt:  now,
	}
}

func TestAuthorisationRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAuthorisationRepo(db)

	a := sampleAuthorisation()
	mock.ExpectExec(`INSERT INTO authorisations`).
		WithArgs(a.ID, a.ParentID, "PIS_CREATION", "RECEIVED",
			"alice", "", "", "", "", false, 0, a.ReceivedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.Create(context.Background(), a))
	require.Equal(t, int64(1), a.Ver)
}

func TestAuthorisationRepo_Get_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAuthorisationRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`SELECT .+ FROM authorisations WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(context.Background(), id)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAuthorisationRepo_Save_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAuthorisationRepo(db)

	a := sampleAuthorisation()
	a.Status = model.StatusPsuIdentified
	base := int64(3)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT ver FROM authorisations WHERE id=\$1 FOR UPDATE`).
		WithArgs(a.ID).
		WillReturnRows(pgxmock.NewRows([]string{"ver"}).AddRow(base))
	mock.ExpectExec(`UPDATE authorisations`).
		WithArgs(a.ID, "PSU_IDENTIFIED", "alice", "", "", "", "", false, 0, base+1, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, r.Save(context.Background(), a, base))
	require.Equal(t, base+1, a.Ver)
}

// Two writers with the same expected version: the second one loses.
func TestAuthorisationRepo_Save_VersionConflict(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAuthorisationRepo(db)

	a := sampleAuthorisation()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT ver FROM authorisations WHERE id=\$1 FOR UPDATE`).
		WithArgs(a.ID).
		WillReturnRows(pgxmock.NewRows([]string{"ver"}).AddRow(int64(5)))
	mock.ExpectRollback()

	err := r.Save(context.Background(), a, 4)
	require.ErrorIs(t, err, errs.ErrVersionConflict)
}

func TestAuthorisationRepo_Save_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAuthorisationRepo(db)

	a := sampleAuthorisation()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT ver FROM authorisations WHERE id=\$1 FOR UPDATE`).
		WithArgs(a.ID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := r.Save(context.Background(), a, 1)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAuthorisationRepo_ListByParent(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAuthorisationRepo(db)

	a := sampleAuthorisation()
	rows := pgxmock.NewRows([]string{
		"id", "parent_id", "auth_type", "sca_status", "psu_id", "psu_id_type",
		"psu_corporate_id", "approach", "method_id", "challenge_issued",
		"failed_attempts", "ver", "received_at", "updated_at",
	}).AddRow(a.ID, a.ParentID, "PIS_CREATION", "RECEIVED",
		"alice", "", "", "", "", false, 0, int64(1), a.ReceivedAt, a.UpdatedAt)

	mock.ExpectQuery(`SELECT .+ FROM authorisations WHERE parent_id=\$1 ORDER BY received_at`).
		WithArgs("pay-123").
		WillReturnRows(rows)

	out, err := r.ListByParent(context.Background(), "pay-123")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, a.ID, out[0].ID)
	require.Equal(t, model.AuthorisationPisCreation, out[0].Type)
}
