package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arremate-backend/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("segredo", "arremate-backend", 1)
	token, err := m.GenerateToken(&models.User{ID: 7, Name: "Ana", Role: models.RoleSupervisor})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "Ana", claims.Name)
}

func TestTokenRejectsOtherSecretAndIssuer(t *testing.T) {
	token, err := NewJWTManager("segredo", "arremate-backend", 1).GenerateToken(&models.User{ID: 1})
	require.NoError(t, err)

	_, err = NewJWTManager("outro", "arremate-backend", 1).ValidateToken(token)
	assert.Error(t, err)

	_, err = NewJWTManager("segredo", "outro-emissor", 1).ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	m := NewJWTManager("segredo", "arremate-backend", -1)
	token, err := m.GenerateToken(&models.User{ID: 1})
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3nh4")
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3nh4"))
	assert.False(t, VerifyPassword(hash, "errada"))
}
