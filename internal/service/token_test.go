package service

import (
	"testing"
	"time"

	"societyhub/internal/config"
	"societyhub/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(config.JWTConfig{Secret: "k", ExpiryHours: 2})
	token, expiresAt, err := m.Generate(&model.Account{ID: 42, IsAdmin: true})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), expiresAt, time.Minute)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AccountID)
	assert.True(t, claims.IsAdmin)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager(config.JWTConfig{Secret: "k", ExpiryHours: 1})
	token, _, err := m.Generate(&model.Account{ID: 1})
	require.NoError(t, err)

	other := NewTokenManager(config.JWTConfig{Secret: "other", ExpiryHours: 1})
	_, err = other.Parse(token)
	require.ErrorIs(t, err, ErrUnauthorized)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Parse(token)
	require.ErrorIs(t, err, ErrUnauthorized)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		AccountID:        1,
		RegisteredClaims: jwt.RegisteredClaims{ID: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(unsigned)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = m.Parse("garbage")
	require.ErrorIs(t, err, ErrUnauthorized)
}
