package service

import (
	"context"
	"log/slog"

	"attendance/pkg/attrs"
)

// Audit events.
const (
	EventAttemptStarted   = "enrollment_attempt_started"
	EventAttemptFinished  = "enrollment_attempt_finished"
	EventReplacementAsked = "enrollment_replacement_confirmed"
	EventConfirmHazard    = "enrollment_confirm_hazard"
)

// logAudit writes an audit line. The subject is the student when present,
// otherwise the instructor.
func logAudit(ctx context.Context, logger *slog.Logger, level slog.Level, event string, attrList ...any) {
	if logger == nil {
		return
	}
	args := append(attrList, "event", event, "log_type", "audit")
	if subject := attrs.FirstString(attrList, "student_id", "instructor_id"); subject != "" {
		args = append(args, "subject", subject)
	}
	logger.Log(ctx, level, event, args...)
}
