package service

import (
	"context"
	"errors"
	"time"

	"github.com/oriento/auth/internal/auth/domain"
	"github.com/oriento/auth/internal/auth/store"
	"github.com/oriento/auth/pkg/cryptox"
	"github.com/oriento/auth/pkg/slogx"
)

// RefreshSession exchanges a valid refresh token for a new access token
// and returns the owning principal. The refresh token itself is NOT
// rotated; the same opaque value stays valid until it expires or the
// session is revoked.
func (s *TokenService) RefreshSession(ctx context.Context, refreshOpaque string) (*domain.TokenPair, domain.Principal, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	if refreshOpaque == "" {
		return nil, domain.Principal{}, ErrSessionInvalid
	}

	// Lookup the persisted session by token fingerprint
	fp := cryptox.FingerprintToken(refreshOpaque)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.Principal{}, ErrSessionInvalid
		}
		return nil, domain.Principal{}, mapStoreErr(err)
	}

	if rt.Expired(now) {
		// Housekeeping will also get here eventually; clearing now keeps
		// the table honest without waiting for it.
		if err := s.Store.RefreshTokens().DeleteRefreshTokensByPrincipal(ctx, rt.PrincipalID); err != nil {
			l.Warn("failed to clear expired session", "err", err)
		}
		return nil, domain.Principal{}, ErrSessionInvalid
	}

	p, err := s.Store.Principals().GetPrincipalByID(ctx, rt.PrincipalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.Principal{}, ErrSessionInvalid
		}
		return nil, domain.Principal{}, mapStoreErr(err)
	}

	accessToken, err := s.signAccess(p, now)
	if err != nil {
		return nil, domain.Principal{}, err
	}

	pair := &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque, // unchanged
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}
	return pair, p, nil
}

// RevokeSession tears down the session behind the given refresh token.
// Revocation is idempotent: an unknown or already-revoked token is a no-op.
func (s *TokenService) RevokeSession(ctx context.Context, refreshOpaque string) error {
	if refreshOpaque == "" {
		return ErrSessionInvalid
	}

	fp := cryptox.FingerprintToken(refreshOpaque)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return mapStoreErr(err)
	}

	return mapStoreErr(s.Store.RefreshTokens().DeleteRefreshTokensByPrincipal(ctx, rt.PrincipalID))
}
