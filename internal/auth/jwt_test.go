package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/bloodbank/internal/model"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"

	token, err := GenerateToken(secret, 1, "admin@example.com", model.RoleAdmin, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestTokensHaveUniqueIDs(t *testing.T) {
	now := time.Now()
	a, err := GenerateToken("s", 1, "a@example.com", model.RoleUser, now)
	require.NoError(t, err)
	b, err := GenerateToken("s", 1, "a@example.com", model.RoleUser, now)
	require.NoError(t, err)

	ca, err := ValidateToken("s", a)
	require.NoError(t, err)
	cb, err := ValidateToken("s", b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret1", 1, "admin@example.com", model.RoleAdmin, time.Now())
	require.NoError(t, err)

	_, err = ValidateToken("secret2", token)
	assert.Error(t, err)
}

func TestValidateTokenInvalid(t *testing.T) {
	_, err := ValidateToken("secret", "not-a-token")
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", 1, "a@example.com", model.RoleUser, time.Now().Add(-2*TokenExpiry))
	require.NoError(t, err)

	_, err = ValidateToken("secret", token)
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now()
	token, err := GenerateToken("test", 1, "a@example.com", model.RoleUser, now)
	require.NoError(t, err)
	claims, err := ValidateToken("test", token)
	require.NoError(t, err)

	diff := now.Add(TokenExpiry).Sub(claims.ExpiresAt.Time)
	assert.Less(t, diff.Abs(), 5*time.Second)
}
