package util

import (
	"finguard_backend/internal/model"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 7}, Email: "a@example.com", Role: model.Admin}

	token, err := GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, model.Admin, claims.Role)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestParseJWT_Rejects(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 1}, Role: model.Learner}

	token, err := GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(token, "another-secret-another-secret-xx")
	assert.Error(t, err)

	expired, err := GenerateJWT(user, testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, testSecret)
	assert.Error(t, err)
}

func TestParseJWT_RequiresIssuer(t *testing.T) {
	claims := &Claims{
		UserID: 3,
		Role:   model.Learner,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseJWT(token, testSecret)
	assert.Error(t, err)
}

func TestGenerateJWT_SetsSubjectAndID(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 42}, Role: model.Learner}

	token, err := GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, TokenIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}
