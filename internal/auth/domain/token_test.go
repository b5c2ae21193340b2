package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRefreshTokenExpired(t *testing.T) {
	expiry := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rt := RefreshToken{ExpiresAt: expiry}

	require.False(t, rt.Expired(expiry.Add(-time.Second)))
	// The expiry instant itself is already expired.
	require.True(t, rt.Expired(expiry))
	require.True(t, rt.Expired(expiry.Add(time.Second)))
}
