package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/blog-api/internal/apperr"
)

func TestGate_Authenticate(t *testing.T) {
	issuer := NewTokenIssuer([]byte("gate-secret"))
	gate := NewGate(issuer)

	tok, err := issuer.Issue(Subject{ID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)

	t.Run("valid bearer", func(t *testing.T) {
		ac, err := gate.Authenticate("Bearer " + tok)
		require.NoError(t, err)
		assert.Equal(t, AuthContext{UserID: "u1", Email: "u1@example.com"}, ac)
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		_, err := gate.Authenticate("bearer " + tok)
		assert.NoError(t, err)
	})

	for _, header := range []string{"", "Bearer", "Bearer ", tok, "Basic " + tok, "Bearer a b"} {
		_, err := gate.Authenticate(header)
		assert.ErrorIs(t, err, ErrMissingToken, "header %q", header)
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	}

	t.Run("invalid token keeps cause", func(t *testing.T) {
		_, err := gate.Authenticate("Bearer not.a.jwt")
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.ErrorIs(t, err, ErrMalformedToken)
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	})

	t.Run("expired token", func(t *testing.T) {
		past := newIssuerAt("gate-secret", time.Now().Add(-25*time.Hour))
		old, err := past.Issue(Subject{ID: "u1"})
		require.NoError(t, err)

		_, err = gate.Authenticate("Bearer " + old)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestAuthContext_RoundTrip(t *testing.T) {
	ctx := WithAuthContext(context.Background(), AuthContext{UserID: "u9", Email: "u9@example.com"})
	ac, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u9", ac.UserID)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestCanMutate(t *testing.T) {
	assert.True(t, CanMutate(AuthContext{UserID: "u1"}, "u1"))
	assert.False(t, CanMutate(AuthContext{UserID: "u1"}, "u2"))
}
