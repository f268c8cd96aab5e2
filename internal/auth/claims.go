package auth

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// TenantClaims is the subset of token claims the API cares about: the
// subject (user) and the tenant whose tree the caller operates on.
type TenantClaims struct {
	jwt.RegisteredClaims
	Email       string         `json:"email,omitempty"`
	AppMetadata map[string]any `json:"app_metadata,omitempty"`

	// Tenant is the resolved tenant, set by the verifier.
	Tenant string `json:"-"`

	// Extra holds every top-level claim so the tenant claim name can be configured.
	Extra map[string]any `json:"-"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *TenantClaims) GetUserID() string {
	return c.Subject
}

// TenantID looks up the tenant under name, first as a top-level claim and
// then inside app_metadata. Returns "" when neither holds a non-empty string.
func (c *TenantClaims) TenantID(name string) string {
	if v, ok := c.Extra[name].(string); ok && v != "" {
		return v
	}
	if v, ok := c.AppMetadata[name].(string); ok && v != "" {
		return v
	}
	return ""
}

// UnmarshalJSON decodes the registered claims and keeps the raw claim set in Extra.
func (c *TenantClaims) UnmarshalJSON(data []byte) error {
	type plain TenantClaims
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var extra map[string]any
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	*c = TenantClaims(p)
	c.Extra = extra
	return nil
}
