package machine

import (
	"attendance/internal/enrollment/events"
	"attendance/internal/enrollment/models"
)

// Input is anything that can drive a transition: user actions, timer
// expiries, and completions of work started by an Effect.
type Input interface {
	input()
}

// User actions.

type StartRequested struct {
	Request models.StartRequest
}

type ConfirmRequested struct{}

type RetryRequested struct{}

type CloseRequested struct{}

// Timers. Gen must match State.Generation or the timer is stale.

type RestartDue struct {
	Gen uint64
}

type CountdownTick struct {
	Gen uint64
}

type ChannelReady struct {
	Channel uint64
	Gen     uint64
}

type CueFinished struct {
	Gen uint64
}

// Completions. Session must match the current session or the completion is
// stale.

// LockResult carries the lock key so an acquisition that outlived its
// attempt can still be released.
type LockResult struct {
	Session    models.SessionID
	Instructor models.InstructorID
	Student    models.StudentID
	Acquired   bool
	Err        error
}

type SensorAcceptResult struct {
	Session models.SessionID
	Err     error
}

type ChannelOpened struct {
	Channel uint64
}

type ChannelFailed struct {
	Channel uint64
	Err     error
}

type ChannelClosed struct {
	Channel uint64
	Err     error
}

type EventReceived struct {
	Channel uint64
	Event   events.Event
}

type PersistenceResult struct {
	Session models.SessionID
	Record  *models.FingerprintRecord
	Err     error
}

type SensorConfirmResult struct {
	Session models.SessionID
	Err     error
}

func (StartRequested) input()      {}
func (ConfirmRequested) input()    {}
func (RetryRequested) input()      {}
func (CloseRequested) input()      {}
func (RestartDue) input()          {}
func (CountdownTick) input()       {}
func (ChannelReady) input()        {}
func (CueFinished) input()         {}
func (LockResult) input()          {}
func (SensorAcceptResult) input()  {}
func (ChannelOpened) input()       {}
func (ChannelFailed) input()       {}
func (ChannelClosed) input()       {}
func (EventReceived) input()       {}
func (PersistenceResult) input()   {}
func (SensorConfirmResult) input() {}
