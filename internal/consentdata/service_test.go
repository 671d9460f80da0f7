package consentdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adorsys/xs2a-consent-engine/internal/model"
	"github.com/adorsys/xs2a-consent-engine/internal/repository"
)

type fakeBlobRepo struct {
	blobs map[string]model.EncryptedBlob
}

var _ repository.BlobRepository = (*fakeBlobRepo)(nil)

func newFakeBlobRepo() *fakeBlobRepo {
	return &fakeBlobRepo{blobs: map[string]model.EncryptedBlob{}}
}

func (f *fakeBlobRepo) Load(_ context.Context, parentID string) (model.EncryptedBlob, error) {
	return f.blobs[parentID], nil
}

func (f *fakeBlobRepo) Save(_ context.Context, parentID string, blob model.EncryptedBlob) error {
	f.blobs[parentID] = blob
	return nil
}

func newService(t *testing.T) (*Service, *fakeBlobRepo) {
	t.Helper()
	h := newHolder(t, "bS6p6XvTWI", "bS6p6XvTWI")
	repo := newFakeBlobRepo()
	return NewService(NewIdentifiers(h, "server key"), NewCodec(h), repo), repo
}

func TestService_StoreLoad(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	external, err := svc.IssueExternalID("pay-123")
	require.NoError(t, err)
	require.NotContains(t, external, "pay-123")

	require.NoError(t, svc.Store(ctx, external, []byte("session state")))
	require.Equal(t, "bS6p6XvTWI", repo.blobs["pay-123"].ProviderID)

	got, err := svc.Load(ctx, external)
	require.NoError(t, err)
	require.Equal(t, []byte("session state"), got)
}

func TestService_LoadBeforeFirstWrite(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	external, err := svc.IssueExternalID("pay-9")
	require.NoError(t, err)

	got, err := svc.Load(ctx, external)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestService_ClearWritesTombstone(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	external, err := svc.IssueExternalID("pay-5")
	require.NoError(t, err)
	require.NoError(t, svc.Store(ctx, external, []byte("data")))

	require.NoError(t, svc.Clear(ctx, external))
	require.True(t, repo.blobs["pay-5"].IsEmpty())

	got, err := svc.Load(ctx, external)
	require.NoError(t, err)
	require.Empty(t, got)
}
