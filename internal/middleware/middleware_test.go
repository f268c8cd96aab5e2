package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"arbor/internal/auth"
	"arbor/internal/domain"
	"arbor/internal/httputil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	tokens map[string]*auth.TenantClaims
}

func (f *fakeVerifier) VerifyToken(token string) (*auth.TenantClaims, error) {
	claims, ok := f.tokens[token]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

func (f *fakeVerifier) Close() error { return nil }

func echoTenant() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{
			"tenant": httputil.GetTenantID(r),
			"user":   httputil.GetUserID(r),
		})
	})
}

func TestAuthMiddleware(t *testing.T) {
	verifier := &fakeVerifier{tokens: map[string]*auth.TenantClaims{
		"good": {RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}, Tenant: "acme"},
	}}

	tests := []struct {
		name       string
		allowHdr   bool
		path       string
		headers    map[string]string
		wantStatus int
		wantTenant string
		wantUser   string
	}{
		{"valid bearer", false, "/api/projects", map[string]string{"Authorization": "Bearer good"}, http.StatusOK, "acme", "user-1"},
		{"lowercase scheme", false, "/api/projects", map[string]string{"Authorization": "bearer good"}, http.StatusOK, "acme", "user-1"},
		{"invalid bearer", true, "/api/projects", map[string]string{"Authorization": "Bearer bad", TenantHeader: "acme"}, http.StatusUnauthorized, "", ""},
		{"no credentials", false, "/api/projects", nil, http.StatusUnauthorized, "", ""},
		{"header refused when disabled", false, "/api/projects", map[string]string{TenantHeader: "acme"}, http.StatusUnauthorized, "", ""},
		{"header mode", true, "/api/projects", map[string]string{TenantHeader: "acme", UserHeader: "dev"}, http.StatusOK, "acme", "dev"},
		{"blank header", true, "/api/projects", map[string]string{TenantHeader: "  "}, http.StatusUnauthorized, "", ""},
		{"public path", false, "/health", nil, http.StatusOK, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(verifier, tt.allowHdr)(echoTenant())
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				var problem map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
				assert.Equal(t, string(domain.CodeUnauthorized), problem["code"])
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantTenant, body["tenant"])
			assert.Equal(t, tt.wantUser, body["user"])
		})
	}
}

func TestAuthMiddleware_NilVerifierUsesHeader(t *testing.T) {
	handler := AuthMiddleware(nil, true)(echoTenant())
	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	req.Header.Set(TenantHeader, "acme")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	handler := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nodes/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), string(domain.CodeInternal))
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestRequestLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, "ok")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fine", nil))
	assert.Empty(t, logs.String(), "successful requests log at debug")

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	var line map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, float64(http.StatusNotFound), line["status"])
	assert.Equal(t, "/missing", line["path"])
}
