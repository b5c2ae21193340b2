package domain

import "time"

// TokenPair is what a successful login or refresh returns: the short-lived
// access token (JWT) and the opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType,omitempty"` // typically "Bearer"
	ExpiresIn    int64  `json:"expiresIn"`           // seconds until access token expiry
}

// RefreshToken models the stored refresh token record in the DB. Only the
// fingerprint of the opaque token is stored, never the token itself.
type RefreshToken struct {
	ID          string
	PrincipalID string
	TokenHash   string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the token is expired at the given time. The
// expiry instant itself counts as expired.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
