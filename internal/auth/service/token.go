package service

import (
	"context"
	"errors"
	"time"

	"github.com/oriento/auth/internal/auth/domain"
	"github.com/oriento/auth/internal/auth/store"
	"github.com/oriento/auth/pkg/cryptox"
	"github.com/oriento/auth/pkg/idx"
	"github.com/oriento/auth/pkg/jwtx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrSessionInvalid     = errors.New("session_invalid")

	// ErrPersistence covers store failures that are not a simple miss. The
	// HTTP layer maps it to 503 so callers can distinguish "your token is
	// bad" from "we are having a bad day".
	ErrPersistence = errors.New("persistence_unavailable")
)

// TokenService issues access/refresh token pairs and manages the persisted
// session behind the refresh token. A principal holds at most one session;
// issuing a new pair replaces the old one.
type TokenService struct {
	Signer     jwtx.Signer
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssueSession signs a fresh access token and replaces the principal's
// refresh token. The delete and insert run in one transaction so concurrent
// logins still end with exactly one stored token.
func (s *TokenService) IssueSession(ctx context.Context, p domain.Principal) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	accessToken, err := s.signAccess(p, now)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rt := domain.RefreshToken{
		ID:          idx.New().String(),
		PrincipalID: p.ID,
		TokenHash:   cryptox.FingerprintToken(refreshOpaque),
		ExpiresAt:   now.Add(s.RefreshTTL),
		CreatedAt:   now,
	}

	// Atomically: drop any previous session and persist the new one
	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().DeleteRefreshTokensByPrincipal(ctx, p.ID); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, rt)
	}); err != nil {
		return nil, mapStoreErr(err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

func (s *TokenService) signAccess(p domain.Principal, now time.Time) (string, error) {
	claims := jwtx.NewAccessClaims(
		p.ID,        // subject
		p.Name,      // display name
		s.AccessTTL, // token lifetime
		s.Issuer,    // issuer
		now,         // current time
	)
	return s.Signer.Sign(claims)
}

// mapStoreErr folds unexpected store failures into ErrPersistence while
// letting sentinel misses pass through untouched.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrAlreadyExists) {
		return err
	}
	return errors.Join(ErrPersistence, err)
}
