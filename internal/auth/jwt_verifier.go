package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"arbor/internal/domain"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// allowedAlgorithms prevents algorithm confusion attacks.
var allowedAlgorithms = []string{"RS256", "ES256"}

// JWKSVerifier implements JWTVerifier using keys published at a JWKS endpoint.
type JWKSVerifier struct {
	keyFunc     jwt.Keyfunc
	tenantClaim string
	logger      *slog.Logger
}

// NewJWTVerifier creates a verifier that fetches public keys from jwksURL.
// The JWKS keys are cached and refreshed by keyfunc based on HTTP cache headers.
func NewJWTVerifier(jwksURL, tenantClaim string, logger *slog.Logger) (JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(context.Background(), []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL, "tenant_claim", tenantClaim)

	return newVerifier(jwks.Keyfunc, tenantClaim, logger), nil
}

func newVerifier(keyFunc jwt.Keyfunc, tenantClaim string, logger *slog.Logger) *JWKSVerifier {
	if tenantClaim == "" {
		tenantClaim = "tenant_id"
	}
	return &JWKSVerifier{
		keyFunc:     keyFunc,
		tenantClaim: tenantClaim,
		logger:      logger,
	}
}

// VerifyToken validates a JWT token and extracts its tenant claims.
func (v *JWKSVerifier) VerifyToken(tokenString string) (*TenantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TenantClaims{}, v.keyFunc,
		jwt.WithValidMethods(allowedAlgorithms),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		v.logger.Debug("token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*TenantClaims)
	if !ok || !token.Valid {
		v.logger.Error("failed to extract claims from token")
		return nil, domain.ErrUnauthorized
	}

	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return nil, domain.ErrUnauthorized
	}

	claims.Tenant = claims.TenantID(v.tenantClaim)
	if claims.Tenant == "" {
		v.logger.Warn("token missing tenant claim", "claim", v.tenantClaim, "user_id", claims.Subject)
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// Close releases resources held by the JWT verifier. keyfunc manages its own
// refresh goroutine, so this only logs for shutdown symmetry.
func (v *JWKSVerifier) Close() error {
	v.logger.Info("JWT verifier closed")
	return nil
}
