package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-analytics-api/internal/models"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
)

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims *models.JWTClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims(role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{
		UserID: "teacher-1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "sma-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestTokenServiceValidateToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "sma-auth"})
	token := signToken(t, jwt.SigningMethodHS256, []byte("secret"), validClaims(models.RoleTeacher))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.Caller{UserID: "teacher-1", Role: models.RoleTeacher}, claims.Caller())
}

func TestTokenServiceRejectsInvalidTokens(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "sma-auth"})

	expired := validClaims(models.RoleStudent)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	wrongIssuer := validClaims(models.RoleStudent)
	wrongIssuer.Issuer = "someone-else"

	anonymous := validClaims(models.RoleStudent)
	anonymous.UserID = ""

	cases := map[string]string{
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims(models.RoleStudent)),
		"expired":      signToken(t, jwt.SigningMethodHS256, []byte("secret"), expired),
		"wrong issuer": signToken(t, jwt.SigningMethodHS256, []byte("secret"), wrongIssuer),
		"wrong method": signToken(t, jwt.SigningMethodHS512, []byte("secret"), validClaims(models.RoleStudent)),
		"no subject":   signToken(t, jwt.SigningMethodHS256, []byte("secret"), anonymous),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
		})
	}
}
