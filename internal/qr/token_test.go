package qr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	s := NewSigner("test-secret")

	payload, err := s.Sign("HB-2026-000042", "HB-B-1A2B3C4D")
	require.NoError(t, err)
	require.NotEmpty(t, payload)

	claims, err := s.Verify(payload)
	require.NoError(t, err)
	assert.Equal(t, "HB-2026-000042", claims.TicketNumber)
	assert.Equal(t, "HB-B-1A2B3C4D", claims.BookingReference)
	assert.NotEmpty(t, claims.ID, "each payload carries a unique id")
}

func TestVerify_WrongSecret(t *testing.T) {
	payload, err := NewSigner("secret-a").Sign("HB-2026-000042", "HB-B-1A2B3C4D")
	require.NoError(t, err)

	_, err = NewSigner("secret-b").Verify(payload)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestVerify_Garbage(t *testing.T) {
	s := NewSigner("test-secret")

	for _, payload := range []string{"", "garbage", "a.b.c"} {
		_, err := s.Verify(payload)
		assert.ErrorIs(t, err, ErrInvalidPayload, "payload %q", payload)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	s := NewSigner("test-secret")
	payload, err := s.Sign("HB-2026-000042", "HB-B-1A2B3C4D")
	require.NoError(t, err)

	tampered := payload[:len(payload)-4] + "AAAA"
	_, err = s.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestSign_UniquePayloads(t *testing.T) {
	s := NewSigner("test-secret")

	p1, err := s.Sign("HB-2026-000042", "HB-B-1A2B3C4D")
	require.NoError(t, err)
	p2, err := s.Sign("HB-2026-000042", "HB-B-1A2B3C4D")
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2, "jti must differ between signings")
}
