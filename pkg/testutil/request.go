package testutil

import (
	"net/http"
)

// WithSessionCookie attaches the backend session cookie that identifies the
// signed-in student.
func WithSessionCookie(req *http.Request, value string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: value})
	return req
}

// WithCSRFToken sets the CSRF header and cookie the backend expects on
// state-changing requests.
func WithCSRFToken(req *http.Request, token string) *http.Request {
	req.Header.Set("X-CSRFToken", token)
	req.AddCookie(&http.Cookie{Name: "csrftoken", Value: token})
	return req
}
