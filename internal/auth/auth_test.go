package auth

import (
	"errors"
	"testing"
	"time"

	"bikeservice/internal/config"
	"bikeservice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() *TokenManager {
	return NewTokenManager(config.APIAuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		Issuer:    "bikeservice",
	})
}

func TestTokenRoundTrip(t *testing.T) {
	m := newManager()
	user := &models.User{ID: "user-1", IsAdmin: true}

	token, expires, err := m.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 2*time.Second)

	id, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.True(t, id.IsAdmin)
}

func TestTokenRejected(t *testing.T) {
	m := newManager()
	token, _, err := m.Issue(&models.User{ID: "user-1"})
	require.NoError(t, err)

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenManager(config.APIAuthConfig{JWTSecret: "other", TokenTTL: time.Hour, Issuer: "bikeservice"})
		_, err := other.Parse(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("Expired", func(t *testing.T) {
		expired := newManager()
		expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := expired.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		other := NewTokenManager(config.APIAuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, Issuer: "someone-else"})
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Secret#123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret#123", hash)
	assert.True(t, CheckPassword(hash, "Secret#123"))
	assert.False(t, CheckPassword(hash, "secret#123"))
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Strong", "Secret#123", false},
		{"TooShort", "Se#1", true},
		{"NoUpper", "secret#123", true},
		{"NoLower", "SECRET#123", true},
		{"NoDigit", "Secret#abc", true},
		{"NoSpecial", "Secret1234", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordStrength(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWeakPassword)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOTP(t *testing.T) {
	code, err := GenerateOTP(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}

	hash := HashOTP(code)
	assert.True(t, CheckOTP(hash, code))
	assert.False(t, CheckOTP(hash, "abcdef"))
	assert.False(t, CheckOTP("", code))
}
