package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "chronicle/pkg/domain-errors"
)

var service = NewService("test-signing-key", "test-issuer", "test-audience")

func TestGenerateAndValidate(t *testing.T) {
	token, err := service.Generate(Claims{
		UserID:      7,
		Username:    "alice",
		Email:       "alice@example.com",
		Permissions: []string{"audit-logs.read"},
	}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, []string{"audit-logs.read"}, claims.Permissions)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidate_ExpiredToken(t *testing.T) {
	token, err := service.Generate(Claims{UserID: 1}, -time.Minute)
	require.NoError(t, err)

	_, err = service.Validate(token)
	var dErr dErrors.Error
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, dErrors.CodeUnauthorized, dErr.Code)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidate_WrongKey(t *testing.T) {
	other := NewService("other-key", "test-issuer", "test-audience")
	token, err := other.Generate(Claims{UserID: 1}, time.Hour)
	require.NoError(t, err)

	_, err = service.Validate(token)
	var dErr dErrors.Error
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, dErrors.CodeUnauthorized, dErr.Code)
}

func TestValidate_Garbage(t *testing.T) {
	_, err := service.Validate("not.a.token")
	assert.Error(t, err)
}

func TestValidateToken_MiddlewareAdapter(t *testing.T) {
	token, err := service.Generate(Claims{
		UserID:    9,
		Firstname: "Ada",
		Lastname:  "Lovelace",
	}, time.Hour)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(9), claims.UserID)
	assert.Equal(t, "Ada", claims.Firstname)
	assert.Equal(t, "Lovelace", claims.Lastname)
}
