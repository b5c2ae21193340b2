package domain

import "time"

// Principal is an account that can sign in. Either Email or TaxID (or both)
// identifies it; the identifier used at login is whichever the client sent.
type Principal struct {
	ID           string
	Email        *string // nullable, unique when set
	TaxID        *string // nullable, unique when set
	Name         string
	PasswordHash string // argon2 encoded
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identifier returns the first populated login identifier, used for audit
// logging after masking.
func (p Principal) Identifier() string {
	if p.Email != nil && *p.Email != "" {
		return *p.Email
	}
	if p.TaxID != nil && *p.TaxID != "" {
		return *p.TaxID
	}
	return p.ID
}
