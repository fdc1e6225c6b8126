package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-0123456789"

func TestGenerateAndValidate(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour, "stickyboard")

	token, issued, err := svc.GenerateToken(42, "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, issued.ID)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, "stickyboard", claims.Issuer)
}

func TestEachTokenGetsItsOwnID(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour, "stickyboard")
	_, a, err := svc.GenerateToken(1, "a@example.com")
	require.NoError(t, err)
	_, b, err := svc.GenerateToken(1, "a@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewTokenService(testSecret, time.Minute, "stickyboard")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.GenerateToken(1, "a@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidToken))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateRejectsForeignKey(t *testing.T) {
	issuer := NewTokenService("another-secret-that-is-long-enough-000000", time.Hour, "x")
	token, _, err := issuer.GenerateToken(1, "a@example.com")
	require.NoError(t, err)

	_, err = NewTokenService(testSecret, time.Hour, "x").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsMalformed(t *testing.T) {
	_, err := NewTokenService(testSecret, time.Hour, "x").ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{ID: "x"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenService(testSecret, time.Hour, "x").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
