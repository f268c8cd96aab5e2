package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalString(t *testing.T) {
	var payload struct {
		Slug     OptionalString `json:"slug"`
		Synopsis OptionalString `json:"synopsis"`
		Media    OptionalString `json:"media"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"slug":"show","synopsis":null}`), &payload))

	require.True(t, payload.Slug.Present)
	assert.Equal(t, "show", *payload.Slug.Value)
	assert.True(t, payload.Synopsis.IsNull())
	assert.False(t, payload.Media.Present)
	assert.False(t, payload.Media.IsNull())

	assert.Error(t, json.Unmarshal([]byte(`{"slug":42}`), &payload))
}

func TestParseJSON(t *testing.T) {
	type body struct {
		Title string `json:"title"`
	}

	var ok body
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}`))
	require.NoError(t, ParseJSON(httptest.NewRecorder(), req, &ok))
	assert.Equal(t, "x", ok.Title)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x","extra":1}`))
	assert.Error(t, ParseJSON(httptest.NewRecorder(), req, &ok))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"`+strings.Repeat("a", maxBodyBytes)+`"}`))
	assert.Error(t, ParseJSON(httptest.NewRecorder(), req, &ok))
}

func TestRespondErrorWithExtras(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorWithExtras(rec, http.StatusConflict, "CONFLICT", "slug taken", map[string]any{"resource_id": "abc"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "CONFLICT", problem["code"])
	assert.Equal(t, "slug taken", problem["detail"])
	assert.Equal(t, "abc", problem["resource_id"])
	assert.Equal(t, float64(http.StatusConflict), problem["status"])
}

func TestRespondJSON_EncodingFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestContextValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetTenantID(req))

	req = WithUserID(WithTenantID(req, "acme"), "user-1")
	assert.Equal(t, "acme", GetTenantID(req))
	assert.Equal(t, "user-1", GetUserID(req))
}
