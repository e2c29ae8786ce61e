// Package biometricapi is the client for the backend's biometric
// registration endpoints.
package biometricapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"

	"attendance/internal/enrollment/models"
	"attendance/internal/platform/tracing"
	"attendance/pkg/platform/circuit"
)

const (
	tracerName = "attendance/internal/biometricapi"

	pathEnroll        = "enroll/"
	pathCheckExisting = "check-existing/"

	BiometricTypeFingerprint = "fingerprint"

	csrfHeader   = "X-CSRFToken"
	maxErrorBody = 4 << 10
)

// ErrCheckSkipped is returned by CheckExisting while the pre-check breaker is
// open. Callers treat it like any other pre-check failure and proceed.
var ErrCheckSkipped = errors.New("existing registration check skipped")

type EnrollRequest struct {
	CourseIDs     []models.CourseID `json:"course_ids"`
	BiometricData string            `json:"biometric_data"`
	BiometricType string            `json:"biometric_type"`
	Confirmations int               `json:"confirmations"`
}

type EnrollResponse struct {
	Success       bool   `json:"success"`
	FingerprintID int    `json:"fingerprint_id"`
	IsReplacement bool   `json:"is_replacement"`
	Message       string `json:"message,omitempty"`
}

type CheckExistingRequest struct {
	StudentID models.StudentID  `json:"student_id"`
	CourseIDs []models.CourseID `json:"course_ids"`
}

type CheckExistingResponse struct {
	HasExistingRegistration bool   `json:"has_existing_registration"`
	InstructorName          string `json:"instructor_name,omitempty"`
}

// StatusError is a non-2xx reply.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// RejectedError is a 2xx reply with success=false. Message is the server's
// explanation and is shown to the user as is.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

type Client struct {
	baseURL   *url.URL
	http      *http.Client
	csrfToken string
	cookie    string
	breaker   *circuit.Breaker
	tracer    trace.Tracer
	logger    *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithCSRF sets the token sent in X-CSRFToken and, when cookie is set, the
// session cookie the token belongs to.
func WithCSRF(token, cookie string) Option {
	return func(cl *Client) {
		cl.csrfToken = token
		cl.cookie = cookie
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(cl *Client) {
		cl.tracer = t
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse persistence url: %w", err)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		breaker: circuit.New("check-existing", circuit.WithFailureThreshold(3)),
		tracer:  tracing.Tracer(tracerName),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Enroll records one fingerprint for every course in a single request. The
// server applies it atomically; a rejection leaves nothing behind.
func (c *Client) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResponse, error) {
	if req.BiometricType == "" {
		req.BiometricType = BiometricTypeFingerprint
	}
	ctx, span := tracing.StartSpan(ctx, c.tracer, "biometricapi.enroll",
		trace.WithAttributes(
			tracing.AttrTemplateID.String(req.BiometricData),
			tracing.AttrCourseCount.Int(len(req.CourseIDs)),
		))
	defer span.End()

	var resp EnrollResponse
	if err := c.post(ctx, span, pathEnroll, req, &resp); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Failed to register fingerprint"
		}
		err := &RejectedError{Message: msg}
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(tracing.AttrFingerprintID.Int(resp.FingerprintID))
	return &resp, nil
}

// CheckExisting asks whether the student already has a fingerprint with this
// instructor. Repeated failures open a breaker so an unreachable backend does
// not delay every start by the full call bound.
func (c *Client) CheckExisting(ctx context.Context, req CheckExistingRequest) (*CheckExistingResponse, error) {
	if !c.breaker.Allow() {
		return nil, ErrCheckSkipped
	}
	ctx, span := tracing.StartSpan(ctx, c.tracer, "biometricapi.check_existing",
		trace.WithAttributes(tracing.AttrCourseCount.Int(len(req.CourseIDs))))
	defer span.End()

	var resp CheckExistingResponse
	if err := c.post(ctx, span, pathCheckExisting, req, &resp); err != nil {
		tracing.RecordError(span, err)
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "existing registration check disabled after repeated failures",
				"breaker", c.breaker.Name(), "error", err)
		}
		return nil, err
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "existing registration check restored", "breaker", c.breaker.Name())
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, span trace.Span, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	target := c.baseURL.ResolveReference(&url.URL{Path: path})
	span.SetAttributes(tracing.AttrPeer.String(target.Host))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.csrfToken != "" {
		req.Header.Set(csrfHeader, c.csrfToken)
		req.AddCookie(&http.Cookie{Name: "csrftoken", Value: c.csrfToken})
	}
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: c.cookie})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(tracing.AttrHTTPStatus.Int(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Message: errorText(raw, http.StatusText(resp.StatusCode))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func errorText(raw []byte, def string) string {
	if gjson.ValidBytes(raw) {
		doc := gjson.ParseBytes(raw)
		for _, field := range []string{"message", "error", "detail"} {
			if v := doc.Get(field).String(); v != "" {
				return v
			}
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return def
}
