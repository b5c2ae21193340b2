package service

import (
	"context"
	"errors"
	"strings"

	"github.com/oriento/auth/internal/auth/domain"
	"github.com/oriento/auth/internal/auth/store"
	"github.com/oriento/auth/pkg/cryptox"
	"github.com/oriento/auth/pkg/slogx"
)

// AuthService validates credentials and opens sessions. Every failure path
// reports the same ErrInvalidCredentials so callers can't probe which
// identifiers exist.
type AuthService struct {
	Store    store.Store
	Tokens   *TokenService
	Attempts *AttemptRegistry
}

// Failure reasons recorded on the attempt registry and in audit lines.
const (
	reasonMissingIdentifier = "missing_identifier"
	reasonNotFound          = "not_found"
	reasonMismatch          = "mismatch"
)

// Login checks identifier+password and returns a fresh token pair along
// with the authenticated principal. The identifier is an email when it
// contains "@", a tax id otherwise. clientIP only feeds the audit trail.
func (s *AuthService) Login(ctx context.Context, identifier, password, clientIP string) (*domain.TokenPair, domain.Principal, error) {
	l := slogx.FromContext(ctx)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		s.recordFailure(ctx, identifier, reasonMissingIdentifier, clientIP)
		return nil, domain.Principal{}, ErrInvalidCredentials
	}

	p, err := s.lookupPrincipal(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recordFailure(ctx, identifier, reasonNotFound, clientIP)
			return nil, domain.Principal{}, ErrInvalidCredentials
		}
		return nil, domain.Principal{}, mapStoreErr(err)
	}

	if err := cryptox.VerifyPassword(password, p.PasswordHash); err != nil {
		s.recordFailure(ctx, identifier, reasonMismatch, clientIP)
		return nil, domain.Principal{}, ErrInvalidCredentials
	}

	s.Attempts.Clear(identifier)
	l.Info("login succeeded", "principal_id", p.ID)

	pair, err := s.Tokens.IssueSession(ctx, p)
	if err != nil {
		return nil, domain.Principal{}, err
	}
	return pair, p, nil
}

func (s *AuthService) lookupPrincipal(ctx context.Context, identifier string) (domain.Principal, error) {
	if strings.Contains(identifier, "@") {
		return s.Store.Principals().GetPrincipalByEmail(ctx, identifier)
	}
	return s.Store.Principals().GetPrincipalByTaxID(ctx, identifier)
}

// recordFailure bumps the in-memory counter and writes a masked audit line.
// The reason never reaches the client, only the log and the registry.
func (s *AuthService) recordFailure(ctx context.Context, identifier, reason, clientIP string) {
	count := s.Attempts.Record(identifier, reason, clientIP)
	slogx.FromContext(ctx).Warn("login failed",
		"identifier", maskIdentifier(identifier),
		"reason", reason,
		"origin_ip", clientIP,
		"consecutive_failures", count,
	)
}
