package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/oriento/auth/internal/auth/domain"
	"github.com/oriento/auth/internal/auth/store"
	"github.com/oriento/auth/pkg/cryptox"
	"github.com/oriento/auth/pkg/idx"
)

const minPasswordLength = 8

var (
	ErrInvalidInput  = errors.New("invalid_input")
	ErrAlreadyExists = errors.New("already_exists")
)

type UserService struct {
	Store store.Store
}

// CreatePrincipalInput carries the signup fields. At least one of Email or
// TaxID must be set.
type CreatePrincipalInput struct {
	Email    string
	TaxID    string
	Name     string
	Password string
}

// CreatePrincipal validates input, hashes the password, and inserts the row.
func (s *UserService) CreatePrincipal(ctx context.Context, in CreatePrincipalInput) (domain.Principal, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.TaxID = strings.TrimSpace(in.TaxID)
	in.Name = strings.TrimSpace(in.Name)

	if in.Email == "" && in.TaxID == "" {
		return domain.Principal{}, ErrInvalidInput
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return domain.Principal{}, ErrInvalidInput
		}
	}
	if in.Name == "" || len(in.Password) < minPasswordLength {
		return domain.Principal{}, ErrInvalidInput
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.Principal{}, err
	}

	now := time.Now().UTC()
	p := domain.Principal{
		ID:           idx.New().String(),
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Email != "" {
		p.Email = &in.Email
	}
	if in.TaxID != "" {
		p.TaxID = &in.TaxID
	}

	if err := s.Store.Principals().CreatePrincipal(ctx, p); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Principal{}, ErrAlreadyExists
		}
		return domain.Principal{}, mapStoreErr(err)
	}

	return p, nil
}

// GetPrincipalByID fetches a principal by id.
func (s *UserService) GetPrincipalByID(ctx context.Context, principalID string) (domain.Principal, error) {
	p, err := s.Store.Principals().GetPrincipalByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Principal{}, store.ErrNotFound
		}
		return domain.Principal{}, mapStoreErr(err)
	}
	return p, nil
}
