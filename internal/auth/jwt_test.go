package auth

import (
	"testing"
	"time"

	"task-tracker-api/internal/config"

	"github.com/stretchr/testify/require"
)

func testTokens() *Tokens {
	return NewTokens(config.Default().Auth)
}

func TestGenerateAndValidateToken(t *testing.T) {
	tokens := testTokens()
	token, err := tokens.Generate("u-1", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
}

func TestValidateToken_Invalid(t *testing.T) {
	_, err := testTokens().Validate("invalid.token")
	require.Error(t, err)
}

func TestValidateToken_WrongAudienceOrIssuer(t *testing.T) {
	cfg := config.Default().Auth
	token, err := NewTokens(cfg).Generate("u-1", "alice")
	require.NoError(t, err)

	other := cfg
	other.Audience = "someone-else"
	_, err = NewTokens(other).Validate(token)
	require.ErrorIs(t, err, ErrInvalidAudience)

	other = cfg
	other.Issuer = "someone-else"
	_, err = NewTokens(other).Validate(token)
	require.ErrorIs(t, err, ErrInvalidIssuer)

	other = cfg
	other.JWTSecret = "another-secret"
	_, err = NewTokens(other).Validate(token)
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	tokens := testTokens()
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	token, err := tokens.Generate("u-1", "alice")
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(25 * time.Hour) }
	_, err = tokens.Validate(token)
	require.Error(t, err)
}
