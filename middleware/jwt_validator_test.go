package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

const testSecret = "test-jwt-secret-at-least-32-bytes-long"

type MockKeyProvider struct {
	mock.Mock
}

func (m *MockKeyProvider) GetKey(ctx context.Context, kid string) (jwk.Key, error) {
	args := m.Called(kid)
	key, _ := args.Get(0).(jwk.Key)
	return key, args.Error(1)
}

func signHS256(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func createTestJWKAndToken(t *testing.T, claims jwt.MapClaims, keyID string) (jwk.Key, string) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key, err := jwk.FromRaw(privateKey.PublicKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, keyID))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	signed, err := token.SignedString(privateKey)
	require.NoError(t, err)
	return key, signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "user-123",
		"email": "asha@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]interface{}{
			"full_name":  "Asha Rao",
			"avatar_url": "https://cdn.example.com/a.png",
		},
	}
}

func TestJWTValidator_HS256(t *testing.T) {
	v, err := newJWTValidator([]byte(testSecret), nil)
	require.NoError(t, err)

	t.Run("valid token maps claims", func(t *testing.T) {
		user, err := v.Validate(signHS256(t, validClaims(), testSecret))
		require.NoError(t, err)
		assert.Equal(t, "user-123", user.UID)
		assert.Equal(t, "asha@example.com", user.Email)
		assert.Equal(t, "Asha Rao", user.DisplayName)
		assert.Equal(t, "https://cdn.example.com/a.png", user.PhotoURL)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		_, err := v.Validate(signHS256(t, claims, testSecret))
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Validate(signHS256(t, validClaims(), "another-secret-entirely-different"))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("missing subject", func(t *testing.T) {
		claims := validClaims()
		delete(claims, "sub")
		_, err := v.Validate(signHS256(t, claims, testSecret))
		assert.ErrorIs(t, err, ErrTokenMissingClaim)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Validate("not.a.jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("asymmetric token without jwks", func(t *testing.T) {
		_, token := createTestJWKAndToken(t, validClaims(), "kid-1")
		_, err := v.Validate(token)
		assert.ErrorIs(t, err, ErrValidationMethodUnavailable)
	})
}

func TestJWTValidator_JWKS(t *testing.T) {
	keys := new(MockKeyProvider)
	v, err := newJWTValidator(nil, keys)
	require.NoError(t, err)

	key, token := createTestJWKAndToken(t, validClaims(), "kid-1")
	keys.On("GetKey", "kid-1").Return(key, nil)

	user, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", user.UID)

	_, unknown := createTestJWKAndToken(t, validClaims(), "kid-2")
	keys.On("GetKey", "kid-2").Return(nil, ErrJWKSKeyNotFound)
	_, err = v.Validate(unknown)
	assert.ErrorIs(t, err, ErrJWKSKeyNotFound)

	keys.AssertExpectations(t)
}

func TestNewJWTValidator_RequiresAMethod(t *testing.T) {
	_, err := newJWTValidator(nil, nil)
	assert.Error(t, err)
}
