// Package events translates raw broadcast channel messages into tagged
// enrollment events.
//
// The sensor firmware's message set is not formally specified. Classification
// below relies on the message text the firmware and backend are known to send
// and should be treated as provisional: when the firmware wording changes,
// this is the only package that needs to follow.
package events

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind is the enumerated meaning of one broadcast message.
type Kind string

const (
	KindConnectionEstablished Kind = "connection_established"
	KindFingerDetected        Kind = "finger_detected"
	KindQualityLow            Kind = "quality_low"
	KindSecondPlacement       Kind = "second_placement"
	KindCaptureSuccess        Kind = "capture_success"
	KindCaptureFailure        Kind = "capture_failure"
	KindGenericStatus         Kind = "generic_status"
	KindCompletion            Kind = "completion"
	KindUnknown               Kind = "unknown"
)

// Wire message types.
const (
	TypeScanUpdate            = "scan_update"
	TypeEnrollmentComplete    = "enrollment_complete"
	TypeConnectionEstablished = "connection_established"
)

var ErrMalformed = errors.New("malformed broadcast message")

// criticalKeywords mark a failure-shaped message as a genuine capture failure.
var criticalKeywords = []string{"failed", "bad", "timeout", "error"}

// Event is a decoded broadcast message.
type Event struct {
	Type       string
	Kind       Kind
	Success    bool
	HasSuccess bool
	Slot       int
	Quality    int
	Progress   int
	Message    string
	Error      string
	ErrorCode  string
}

// FailureShaped reports whether the message looks like a failure on the wire:
// an explicit success=false or a populated error field.
func (e Event) FailureShaped() bool {
	return (e.HasSuccess && !e.Success) || e.Error != ""
}

// Critical reports whether a failure-shaped message is a real failure rather
// than an informational hint. A message with no text at all counts as critical.
func (e Event) Critical() bool {
	if !e.FailureShaped() {
		return false
	}
	if e.ErrorCode != "" {
		return true
	}
	text := strings.ToLower(e.Message + " " + e.Error)
	if strings.TrimSpace(e.Message) == "" {
		return true
	}
	for _, kw := range criticalKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Hint reports whether the event only carries transient UI text.
func (e Event) Hint() bool {
	switch e.Kind {
	case KindFingerDetected, KindQualityLow, KindSecondPlacement, KindGenericStatus:
		return true
	}
	return false
}

// Text returns the best user-facing text for the event.
func (e Event) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// Decode parses one raw message. Field aliases used by older firmware builds
// (scan_step, quality_score) are accepted.
func Decode(raw []byte) (Event, error) {
	if !gjson.ValidBytes(raw) {
		return Event{}, ErrMalformed
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Event{}, ErrMalformed
	}

	ev := Event{
		Type:      doc.Get("type").String(),
		Slot:      int(firstOf(doc, "slot", "scan_step").Int()),
		Quality:   int(firstOf(doc, "quality", "quality_score").Int()),
		Progress:  int(doc.Get("progress").Int()),
		Message:   doc.Get("message").String(),
		Error:     doc.Get("error").String(),
		ErrorCode: doc.Get("error_code").String(),
	}
	if s := doc.Get("success"); s.Exists() {
		ev.HasSuccess = true
		ev.Success = s.Bool()
	}
	ev.Kind = classify(ev)
	return ev, nil
}

func firstOf(doc gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := doc.Get(p); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

func classify(ev Event) Kind {
	switch ev.Type {
	case TypeConnectionEstablished:
		return KindConnectionEstablished
	case TypeEnrollmentComplete:
		if ev.Success {
			return KindCompletion
		}
		return KindCaptureFailure
	case TypeScanUpdate, "":
		if ev.Type == "" && !ev.HasSuccess && ev.Message == "" && ev.Error == "" {
			return KindUnknown
		}
	default:
		return KindUnknown
	}

	if ev.Success {
		return KindCaptureSuccess
	}
	if ev.FailureShaped() && ev.Critical() {
		return KindCaptureFailure
	}
	return hintKind(ev.Text())
}

func hintKind(text string) Kind {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "quality"):
		return KindQualityLow
	case strings.Contains(lower, "again"), strings.Contains(lower, "remove finger"):
		return KindSecondPlacement
	case strings.Contains(lower, "detected"):
		return KindFingerDetected
	default:
		return KindGenericStatus
	}
}
