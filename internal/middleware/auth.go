package middleware

import (
	"net/http"
	"strings"

	"arbor/internal/auth"
	"arbor/internal/domain"
	"arbor/internal/httputil"
)

const (
	// TenantHeader carries the tenant in header auth mode (dev and test only).
	TenantHeader = "X-Tenant-ID"
	// UserHeader optionally names the caller in header auth mode.
	UserHeader = "X-User-ID"
)

// publicPaths are served without a tenant.
var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// AuthMiddleware resolves the caller's tenant and stores it on the request
// context. A bearer token is verified when a verifier is configured; when
// allowHeaderTenant is set the X-Tenant-ID header is accepted instead.
func AuthMiddleware(verifier auth.JWTVerifier, allowHeaderTenant bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if token, ok := bearerToken(r); ok && verifier != nil {
				claims, err := verifier.VerifyToken(token)
				if err != nil {
					unauthorized(w, "invalid or expired token")
					return
				}
				r = httputil.WithUserID(r, claims.GetUserID())
				r = httputil.WithTenantID(r, claims.Tenant)
				next.ServeHTTP(w, r)
				return
			}

			if allowHeaderTenant {
				if tenantID := strings.TrimSpace(r.Header.Get(TenantHeader)); tenantID != "" {
					r = httputil.WithUserID(r, r.Header.Get(UserHeader))
					r = httputil.WithTenantID(r, tenantID)
					next.ServeHTTP(w, r)
					return
				}
			}

			unauthorized(w, "missing credentials")
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func unauthorized(w http.ResponseWriter, detail string) {
	httputil.RespondError(w, http.StatusUnauthorized, string(domain.CodeUnauthorized), detail)
}
