// Package sensor talks to the fingerprint sensor device over the LAN.
package sensor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"

	"attendance/internal/platform/tracing"
)

const (
	tracerName = "attendance/internal/sensor"

	pathEnroll  = "/enroll"
	pathConfirm = "/enroll/confirm"
	pathCancel  = "/enroll/cancel"

	maxErrorBody = 4 << 10
)

type EnrollRequest struct {
	Slot       int    `json:"slot"`
	TemplateID string `json:"template_id"`
}

type EnrollResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	QualityScore int    `json:"quality_score,omitempty"`
}

type ConfirmRequest struct {
	FingerprintID int    `json:"fingerprint_id"`
	TemplateID    string `json:"template_id"`
}

// StatusError is a non-2xx reply from the device. Message is the device's
// own text, which is what the user is shown.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sensor %s returned %d: %s", e.Op, e.StatusCode, e.Message)
}

// Client calls the device endpoints. Call bounds come from the caller's
// context.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
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

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tracer:  tracing.Tracer(tracerName),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Enroll asks the device to start a capture loop for TemplateID. The device
// only accepts one loop at a time and answers busy otherwise.
func (c *Client) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResponse, error) {
	ctx, span := tracing.StartSpan(ctx, c.tracer, "sensor.enroll",
		trace.WithAttributes(tracing.AttrTemplateID.String(req.TemplateID)))
	defer span.End()

	var resp EnrollResponse
	if err := c.post(ctx, span, "enroll", pathEnroll, req, &resp); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if !resp.Success {
		err := &StatusError{Op: "enroll", StatusCode: http.StatusOK, Message: fallback(resp.Message, "enrollment not accepted")}
		tracing.RecordError(span, err)
		return nil, err
	}
	c.logger.DebugContext(ctx, "sensor accepted enrollment", "template_id", req.TemplateID)
	return &resp, nil
}

// Confirm commits the captured template into the device's storage under
// FingerprintID.
func (c *Client) Confirm(ctx context.Context, req ConfirmRequest) error {
	ctx, span := tracing.StartSpan(ctx, c.tracer, "sensor.confirm",
		trace.WithAttributes(
			tracing.AttrFingerprintID.Int(req.FingerprintID),
			tracing.AttrTemplateID.String(req.TemplateID),
		))
	defer span.End()

	if err := c.post(ctx, span, "confirm", pathConfirm, req, nil); err != nil {
		tracing.RecordError(span, err)
		return err
	}
	return nil
}

// Cancel asks the device to abandon its capture loop. The reply is ignored.
func (c *Client) Cancel(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, c.tracer, "sensor.cancel")
	defer span.End()

	if err := c.post(ctx, span, "cancel", pathCancel, struct{}{}, nil); err != nil {
		tracing.RecordError(span, err)
		return err
	}
	return nil
}

func (c *Client) post(ctx context.Context, span trace.Span, op, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sensor %s: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(tracing.AttrHTTPStatus.Int(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: errorText(raw, resp.Status)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// errorText pulls the device message out of a JSON error body, falling back
// to the raw text.
func errorText(raw []byte, status string) string {
	if gjson.ValidBytes(raw) {
		doc := gjson.ParseBytes(raw)
		for _, field := range []string{"message", "error"} {
			if v := doc.Get(field).String(); v != "" {
				return v
			}
		}
	}
	return fallback(strings.TrimSpace(string(raw)), status)
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
