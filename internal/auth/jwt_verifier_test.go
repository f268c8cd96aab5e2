package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"arbor/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVerifier(t *testing.T) (*JWKSVerifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyFunc := func(*jwt.Token) (any, error) { return &key.PublicKey, nil }
	return newVerifier(keyFunc, "tenant_id", slog.New(slog.NewTextHandler(io.Discard, nil))), key
}

func sign(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestVerifyToken(t *testing.T) {
	v, key := testVerifier(t)
	exp := time.Now().Add(time.Hour).Unix()

	t.Run("top-level tenant claim", func(t *testing.T) {
		claims, err := v.VerifyToken(sign(t, key, jwt.MapClaims{"sub": "user-1", "exp": exp, "tenant_id": "acme"}))
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.GetUserID())
		assert.Equal(t, "acme", claims.Tenant)
	})

	t.Run("app_metadata fallback", func(t *testing.T) {
		claims, err := v.VerifyToken(sign(t, key, jwt.MapClaims{
			"sub":          "user-1",
			"exp":          exp,
			"app_metadata": map[string]any{"tenant_id": "globex"},
		}))
		require.NoError(t, err)
		assert.Equal(t, "globex", claims.Tenant)
	})

	rejected := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"missing tenant", jwt.MapClaims{"sub": "user-1", "exp": exp}},
		{"missing subject", jwt.MapClaims{"exp": exp, "tenant_id": "acme"}},
		{"expired", jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Minute).Unix(), "tenant_id": "acme"}},
		{"no expiry", jwt.MapClaims{"sub": "user-1", "tenant_id": "acme"}},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyToken(sign(t, key, tt.claims))
			assert.True(t, errors.Is(err, domain.ErrUnauthorized))
		})
	}

	t.Run("hmac tokens are refused", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "user-1", "exp": exp, "tenant_id": "acme",
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.VerifyToken(token)
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.VerifyToken("not-a-token")
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	})
}
