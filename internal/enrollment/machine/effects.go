package machine

import (
	"time"

	"attendance/internal/enrollment/models"
)

// Effect is work the coordinator must perform after a transition. Effects
// that complete asynchronously report back with the matching Input.
type Effect interface {
	effect()
}

type AcquireLock struct {
	Session    models.SessionID
	Instructor models.InstructorID
	Student    models.StudentID
}

type ReleaseLock struct {
	Instructor models.InstructorID
	Student    models.StudentID
}

// SensorEnroll asks the device to begin capturing. TemplateID is the session
// id so the backend can route progress to the session's channel.
type SensorEnroll struct {
	Session    models.SessionID
	Slot       int
	TemplateID string
}

type SensorConfirm struct {
	Session       models.SessionID
	FingerprintID int
	TemplateID    string
}

type SensorCancel struct{}

type OpenChannel struct {
	Session models.SessionID
	Channel uint64
}

type CloseChannel struct {
	Channel uint64
}

type ScheduleRestart struct {
	After time.Duration
	Gen   uint64
}

type ScheduleCountdown struct {
	After time.Duration
	Gen   uint64
}

type ScheduleChannelReady struct {
	After   time.Duration
	Channel uint64
	Gen     uint64
}

// PlayCue plays an audible cue. A blocking cue reports CueFinished with Gen
// once it ends or Fallback elapses, whichever comes first.
type PlayCue struct {
	Cue      Cue
	Blocking bool
	Fallback time.Duration
	Gen      uint64
}

type Submit struct {
	Session       models.SessionID
	CourseIDs     []models.CourseID
	TemplateID    string
	Confirmations int
}

type Notify struct {
	Level Level
	Text  string
}

// Discard records a broadcast message that was dropped by the filter.
type Discard struct {
	Channel uint64
	Reason  DiscardReason
}

// Hazard records a persisted fingerprint the sensor did not acknowledge.
type Hazard struct {
	Session       models.SessionID
	FingerprintID int
	Err           error
}

type Reload struct{}

// Finished publishes the outcome of an attempt.
type Finished struct {
	Outcome models.Outcome
}

type Cue string

const (
	CueCapture Cue = "capture"
	CueConfirm Cue = "confirm"
	CueSuccess Cue = "success"
	CueError   Cue = "error"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

type DiscardReason string

const (
	DiscardSuperseded DiscardReason = "superseded_channel"
	DiscardNotReady   DiscardReason = "channel_not_ready"
	DiscardOutOfPhase DiscardReason = "out_of_phase"
	DiscardEarlyError DiscardReason = "early_error"
	DiscardTransient  DiscardReason = "transient"
)

func (AcquireLock) effect()          {}
func (ReleaseLock) effect()          {}
func (SensorEnroll) effect()         {}
func (SensorConfirm) effect()        {}
func (SensorCancel) effect()         {}
func (OpenChannel) effect()          {}
func (CloseChannel) effect()         {}
func (ScheduleRestart) effect()      {}
func (ScheduleCountdown) effect()    {}
func (ScheduleChannelReady) effect() {}
func (PlayCue) effect()              {}
func (Submit) effect()               {}
func (Notify) effect()               {}
func (Discard) effect()              {}
func (Hazard) effect()               {}
func (Reload) effect()               {}
func (Finished) effect()             {}
