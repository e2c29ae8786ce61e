// Package testutil holds helpers for handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	dErrors "attendance/pkg/domain-errors"
)

// JSONRequest builds a request whose body is v encoded as JSON. A nil v sends
// no body.
func JSONRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	var body io.Reader
	if v != nil {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// RawRequest sends body as-is, for malformed input.
func RawRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// Serve runs req through h.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// Get is Serve for a bodyless GET.
func Get(h http.Handler, target string) *httptest.ResponseRecorder {
	return Serve(h, httptest.NewRequest(http.MethodGet, target, nil))
}

// RequireStatus stops the test when the status is not want. The body is
// included in the failure message.
func RequireStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rr.Code, "body: %s", rr.Body.String())
}

// DecodeJSON decodes the recorded body into a T.
func DecodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return out
}

// Field reads one value from the JSON body with a gjson path.
func Field(t *testing.T, rr *httptest.ResponseRecorder, path string) gjson.Result {
	t.Helper()
	require.True(t, gjson.ValidBytes(rr.Body.Bytes()), "body is not JSON: %s", rr.Body.String())
	return gjson.GetBytes(rr.Body.Bytes(), path)
}

// AssertError checks the status and the code of an error body written by
// httputil.WriteError.
func AssertError(t *testing.T, rr *httptest.ResponseRecorder, status int, code dErrors.Code) {
	t.Helper()
	assert.Equal(t, status, rr.Code, "body: %s", rr.Body.String())
	assert.Equal(t, string(code), Field(t, rr, "error").String())
}
