package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxBodyBytes bounds request bodies; tree payloads are small.
const maxBodyBytes = 1 << 20

// ParseJSON decodes the request body into dest, rejecting unknown fields so
// typos in PATCH payloads are reported instead of silently ignored.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}
