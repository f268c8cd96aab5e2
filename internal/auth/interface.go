package auth

// JWTVerifier verifies bearer tokens and resolves the tenant they belong to.
// The middleware depends on this interface so tests can substitute a fake.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns domain.ErrUnauthorized if the token is invalid, expired, signed
	// with an unexpected algorithm or carries no tenant.
	VerifyToken(tokenString string) (*TenantClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
