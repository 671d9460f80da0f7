package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/adorsys/xs2a-consent-engine/internal/errs"
	"github.com/adorsys/xs2a-consent-engine/internal/model"
)

func modelBlob(providerID, ct string) model.EncryptedBlob {
	return model.EncryptedBlob{ProviderID: providerID, Ciphertext: []byte(ct)}
}

func TestStopListRepo_Get_Absent(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStopListRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM tpp_stop_list`).
		WithArgs("TPP-1", "inst-A").
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(context.Background(), "TPP-1", "inst-A")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStopListRepo_Get_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStopListRepo(db)

	until := time.Now().Add(time.Hour)
	rows := pgxmock.NewRows([]string{
		"tpp_authorisation_number", "instance_id", "blocked", "blocked_until", "updated_at",
	}).AddRow("TPP-1", "inst-A", true, &until, time.Now())

	mock.ExpectQuery(`SELECT .+ FROM tpp_stop_list`).
		WithArgs("TPP-1", "inst-A").
		WillReturnRows(rows)

	rec, err := r.Get(context.Background(), "TPP-1", "inst-A")
	require.NoError(t, err)
	require.True(t, rec.Blocked)
	require.NotNil(t, rec.BlockedUntil)
}

// An indefinite block persists a NULL blocked_until; survival across process
// restarts comes from the row itself, not any in-memory flag.
func TestStopListRepo_Block_Indefinite(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStopListRepo(db)

	mock.ExpectExec(`INSERT INTO tpp_stop_list`).
		WithArgs("TPP-1", "inst-A", (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.Block(context.Background(), "TPP-1", "inst-A", nil))
}

func TestStopListRepo_Unblock_ReportsExistence(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStopListRepo(db)

	mock.ExpectExec(`UPDATE tpp_stop_list SET blocked=false`).
		WithArgs("TPP-1", "inst-A").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	existed, err := r.Unblock(context.Background(), "TPP-1", "inst-A")
	require.NoError(t, err)
	require.True(t, existed)

	mock.ExpectExec(`UPDATE tpp_stop_list SET blocked=false`).
		WithArgs("TPP-9", "inst-A").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	existed, err = r.Unblock(context.Background(), "TPP-9", "inst-A")
	require.NoError(t, err)
	require.False(t, existed)
}

func TestBlobRepo_LoadAbsentIsTombstone(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)

	mock.ExpectQuery(`SELECT provider_id, ciphertext FROM consent_blobs`).
		WithArgs("pay-123").
		WillReturnError(pgx.ErrNoRows)

	blob, err := r.Load(context.Background(), "pay-123")
	require.NoError(t, err)
	require.True(t, blob.IsEmpty())
}

func TestBlobRepo_SaveLoad(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)

	mock.ExpectExec(`INSERT INTO consent_blobs`).
		WithArgs("pay-123", "bS6p6XvTWI", []byte("ct")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Save(context.Background(), "pay-123", modelBlob("bS6p6XvTWI", "ct")))

	rows := pgxmock.NewRows([]string{"provider_id", "ciphertext"}).
		AddRow("bS6p6XvTWI", []byte("ct"))
	mock.ExpectQuery(`SELECT provider_id, ciphertext FROM consent_blobs`).
		WithArgs("pay-123").
		WillReturnRows(rows)

	blob, err := r.Load(context.Background(), "pay-123")
	require.NoError(t, err)
	require.Equal(t, "bS6p6XvTWI", blob.ProviderID)
	require.Equal(t, []byte("ct"), blob.Ciphertext)
}
