package service

import (
	"context"
	"testing"
	"time"

	"github.com/oriento/auth/internal/auth/domain"
	"github.com/oriento/auth/internal/auth/store"
	"github.com/oriento/auth/pkg/cryptox"
	"github.com/oriento/auth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestRefreshSessionKeepsRefreshToken(t *testing.T) {
	auth, tokens, users, _ := newTestServices(t)
	ctx := context.Background()

	_, err := users.CreatePrincipal(ctx, CreatePrincipalInput{
		Email:    "grace@example.com",
		Name:     "Grace",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	pair, _, err := auth.Login(ctx, "grace@example.com", "correct horse battery", "198.51.100.1")
	require.NoError(t, err)

	refreshed, principal, err := tokens.RefreshSession(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.Equal(t, "Grace", principal.Name)

	// The opaque refresh token is reused, not rotated.
	require.Equal(t, pair.RefreshToken, refreshed.RefreshToken)

	// And it still works a second time.
	_, _, err = tokens.RefreshSession(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshSessionRejectsGarbage(t *testing.T) {
	_, tokens, _, _ := newTestServices(t)
	ctx := context.Background()

	_, _, err := tokens.RefreshSession(ctx, "")
	require.ErrorIs(t, err, ErrSessionInvalid)

	_, _, err = tokens.RefreshSession(ctx, "not-a-real-token")
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestRefreshSessionRejectsExpiredAndClearsRow(t *testing.T) {
	_, tokens, users, st := newTestServices(t)
	ctx := context.Background()

	p, err := users.CreatePrincipal(ctx, CreatePrincipalInput{
		Email:    "heidi@example.com",
		Name:     "Heidi",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	// Plant an already-expired session directly.
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:          idx.New().String(),
		PrincipalID: p.ID,
		TokenHash:   cryptox.FingerprintToken(opaque),
		ExpiresAt:   now.Add(-time.Minute),
		CreatedAt:   now.Add(-time.Hour),
	}))

	_, _, err = tokens.RefreshSession(ctx, opaque)
	require.ErrorIs(t, err, ErrSessionInvalid)

	// The expired row is gone, not just ignored.
	_, err = st.RefreshTokens().GetRefreshTokenByPrincipal(ctx, p.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevokeSession(t *testing.T) {
	auth, tokens, users, st := newTestServices(t)
	ctx := context.Background()

	p, err := users.CreatePrincipal(ctx, CreatePrincipalInput{
		Email:    "ivan@example.com",
		Name:     "Ivan",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	pair, _, err := auth.Login(ctx, "ivan@example.com", "correct horse battery", "198.51.100.1")
	require.NoError(t, err)

	require.NoError(t, tokens.RevokeSession(ctx, pair.RefreshToken))

	_, err = st.RefreshTokens().GetRefreshTokenByPrincipal(ctx, p.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Revoking twice is a harmless no-op.
	require.NoError(t, tokens.RevokeSession(ctx, pair.RefreshToken))

	// So does refreshing afterwards.
	_, _, err = tokens.RefreshSession(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestAttemptRegistrySweep(t *testing.T) {
	reg := NewAttemptRegistry()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	reg.now = func() time.Time { return current }

	reg.Record("stale@example.com", "mismatch", "198.51.100.1")

	current = base.Add(2 * time.Hour)
	reg.Record("fresh@example.com", "mismatch", "198.51.100.1")

	dropped := reg.SweepStale(time.Hour)
	require.Equal(t, 1, dropped)
	require.Equal(t, 0, reg.Count("stale@example.com"))
	require.Equal(t, 1, reg.Count("fresh@example.com"))
}
