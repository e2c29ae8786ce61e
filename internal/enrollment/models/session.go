package models

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "attendance/pkg/domain-errors"
)

// SessionID identifies one enrollment attempt. It doubles as the broadcast
// channel key and as the template id sent with the sensor enroll command, which
// is how the backend routes sensor progress to the right subscriber.
type SessionID string

type InstructorID string

type StudentID string

type CourseID int

// Session is the value object for one attempt. It is created on start and
// discarded on close, success, or when a retry supersedes it.
type Session struct {
	ID           SessionID
	TemplateID   string
	InstructorID InstructorID
	StudentID    StudentID
	CourseIDs    []CourseID
	StartedAt    time.Time
}

// StartRequest is what a user start action resolves to before a session exists.
type StartRequest struct {
	InstructorID   InstructorID
	InstructorName string
	StudentID      StudentID
	CourseIDs      []CourseID
}

// Validate enforces the preconditions for contacting the sensor.
func (r StartRequest) Validate() error {
	if strings.TrimSpace(string(r.InstructorID)) == "" {
		return dErrors.New(dErrors.CodeValidation, "instructor id is required")
	}
	if strings.TrimSpace(string(r.StudentID)) == "" {
		return dErrors.New(dErrors.CodeValidation, "student id is required")
	}
	if len(r.CourseIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "No courses found for enrollment")
	}
	return nil
}

// NewSession builds a session with fresh identifiers. Course ids are
// de-duplicated preserving order.
func NewSession(req StartRequest, now time.Time) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		ID:           SessionID("enrollment_" + uuid.NewString()),
		TemplateID:   "template_" + uuid.NewString(),
		InstructorID: req.InstructorID,
		StudentID:    req.StudentID,
		CourseIDs:    dedupeCourses(req.CourseIDs),
		StartedAt:    now,
	}, nil
}

func dedupeCourses(ids []CourseID) []CourseID {
	out := make([]CourseID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// FingerprintRecord is the persistence API's handle for a stored enrollment.
type FingerprintRecord struct {
	FingerprintID int  `json:"fingerprint_id"`
	IsReplacement bool `json:"is_replacement"`
}
