package checksum

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleConsent() ConsentView {
	return ConsentView{
		RecurringIndicator: true,
		ValidUntil:         "2026-12-31",
		FrequencyPerDay:    4,
		TppAccesses: []AccountReference{
			{Identifier: "DE52500105173911841934", Currency: "EUR", AccessType: "ACCOUNT", ReferenceType: RefIBAN},
			{Identifier: "DE89370400440532013000", Currency: "EUR", AccessType: "BALANCE", ReferenceType: RefIBAN},
		},
		AspspAccesses: []AccountReference{
			{Identifier: "DE52500105173911841934", Currency: "EUR", AccessType: "ACCOUNT", ReferenceType: RefIBAN, ResourceID: "res-1"},
			{Identifier: "DE89370400440532013000", Currency: "EUR", AccessType: "BALANCE", ReferenceType: RefIBAN, ResourceID: "res-2"},
			{Identifier: "5409050000000000", Currency: "EUR", AccessType: "ACCOUNT", ReferenceType: RefPAN, AspspAccountID: "acc-9"},
		},
	}
}

func TestCompute_Format(t *testing.T) {
	s := NewService()
	sum, err := s.Compute(sampleConsent())
	require.NoError(t, err)

	elements := strings.Split(string(sum), delimiter)
	require.Len(t, elements, 3)
	require.Equal(t, "003", elements[0])
	require.NotEmpty(t, elements[1])
	require.NotEmpty(t, elements[2])
}

func TestCompute_NoAspspAccessOmitsThirdElement(t *testing.T) {
	s := NewService()
	c := sampleConsent()
	c.AspspAccesses = nil

	sum, err := s.Compute(c)
	require.NoError(t, err)
	require.Len(t, strings.Split(string(sum), delimiter), 2)
	require.True(t, s.Verify(c, sum))
}

func TestVerify_RoundTrip(t *testing.T) {
	s := NewService()
	c := sampleConsent()

	sum, err := s.Compute(c)
	require.NoError(t, err)
	require.True(t, s.Verify(c, sum))
}

func TestVerify_OrderIndependence(t *testing.T) {
	s := NewService()
	c := sampleConsent()
	sum, err := s.Compute(c)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		permuted := sampleConsent()
		r.Shuffle(len(permuted.TppAccesses), func(a, b int) {
			permuted.TppAccesses[a], permuted.TppAccesses[b] = permuted.TppAccesses[b], permuted.TppAccesses[a]
		})
		r.Shuffle(len(permuted.AspspAccesses), func(a, b int) {
			permuted.AspspAccesses[a], permuted.AspspAccesses[b] = permuted.AspspAccesses[b], permuted.AspspAccesses[a]
		})

		permutedSum, err := s.Compute(permuted)
		require.NoError(t, err)
		require.Equal(t, string(sum), string(permutedSum))
		require.True(t, s.Verify(permuted, sum))
	}
}

func TestVerify_DetectsTampering(t *testing.T) {
	s := NewService()
	c := sampleConsent()
	sum, err := s.Compute(c)
	require.NoError(t, err)

	tampered := sampleConsent()
	tampered.FrequencyPerDay = 400
	require.False(t, s.Verify(tampered, sum))

	tampered = sampleConsent()
	tampered.AspspAccesses[0].Identifier = "DE00000000000000000000"
	require.False(t, s.Verify(tampered, sum))
}

func TestVerify_UsesStoredVersion(t *testing.T) {
	s := NewService()
	c := sampleConsent()

	// A checksum written under version 002 must verify under 002, not 003.
	v2, err := s.byVersion["002"].compute(c)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(v2), "002"+delimiter))
	require.True(t, s.Verify(c, v2))

	v3, err := s.Compute(c)
	require.NoError(t, err)
	require.NotEqual(t, string(v2), string(v3))
}

func TestVerify_MalformedOrUnknown(t *testing.T) {
	s := NewService()
	c := sampleConsent()

	require.False(t, s.Verify(c, []byte("no delimiter")))
	require.False(t, s.Verify(c, []byte("999"+delimiter+"digest")))
	require.False(t, s.Verify(c, []byte("")))
}
