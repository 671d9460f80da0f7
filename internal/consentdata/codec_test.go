package consentdata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adorsys/xs2a-consent-engine/internal/crypto/provider"
	"github.com/adorsys/xs2a-consent-engine/internal/errs"
	"github.com/adorsys/xs2a-consent-engine/internal/model"
)

func newHolder(t *testing.T, dataID, idID string) *provider.Holder {
	t.Helper()
	h, err := provider.NewHolder(
		[]provider.CryptoProvider{provider.NewAesGcm(128), provider.NewChaCha()},
		dataID, idID,
	)
	require.NoError(t, err)
	return h
}

func TestCodec_RoundTrip(t *testing.T) {
	c := NewCodec(newHolder(t, "bS6p6XvTWI", "bS6p6XvTWI"))

	blob, err := c.Store([]byte("working data"), "key")
	require.NoError(t, err)
	require.Equal(t, "bS6p6XvTWI", blob.ProviderID)
	require.False(t, blob.IsEmpty())

	got, err := c.Load(blob, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("working data"), got)
}

func TestCodec_EmptyIsSpecial(t *testing.T) {
	c := NewCodec(newHolder(t, "bS6p6XvTWI", "bS6p6XvTWI"))

	blob, err := c.Store(nil, "key")
	require.NoError(t, err)
	require.True(t, blob.IsEmpty())
	require.Empty(t, blob.ProviderID)

	got, err := c.Load(blob, "key")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestCodec_KeyRotationLazilyUpgrades(t *testing.T) {
	// Blob written while AES-GCM was the default.
	oldCodec := NewCodec(newHolder(t, "bS6p6XvTWI", "bS6p6XvTWI"))
	oldBlob, err := oldCodec.Store([]byte("pre-rotation"), "key")
	require.NoError(t, err)
	require.Equal(t, "bS6p6XvTWI", oldBlob.ProviderID)

	// Default rotated to the ChaCha provider.
	newCodec := NewCodec(newHolder(t, "JcHZwvJMuc", "JcHZwvJMuc"))

	// Pre-rotation blob still loads under its original provider.
	got, err := newCodec.Load(oldBlob, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("pre-rotation"), got)

	// The next write silently upgrades to the new default.
	newBlob, err := newCodec.Store([]byte("pre-rotation"), "key")
	require.NoError(t, err)
	require.Equal(t, "JcHZwvJMuc", newBlob.ProviderID)
}

func TestCodec_UnknownProviderIsFatal(t *testing.T) {
	c := NewCodec(newHolder(t, "bS6p6XvTWI", "bS6p6XvTWI"))

	_, err := c.Load(model.EncryptedBlob{ProviderID: "retired", Ciphertext: []byte("x")}, "key")
	require.ErrorIs(t, err, errs.ErrUnknownProvider)
}

func TestCodec_WrongKey(t *testing.T) {
	c := NewCodec(newHolder(t, "bS6p6XvTWI", "bS6p6XvTWI"))

	blob, err := c.Store([]byte("data"), "right")
	require.NoError(t, err)

	_, err = c.Load(blob, "wrong")
	require.ErrorIs(t, err, errs.ErrDecryptionFailed)
}
