// Package machine holds the enrollment state machine as a pure function.
//
// Step never performs I/O. It returns the next State and the Effects the
// caller must execute; completions of those effects come back as Inputs.
// Every input that can arrive late (timers, HTTP completions, push messages)
// carries the identity it was issued for, and Step drops it when that
// identity is no longer current.
package machine

import (
	"time"

	"attendance/internal/enrollment/models"
)

// State is owned by exactly one goroutine.
type State struct {
	Phase    models.Phase
	Request  models.StartRequest
	Session  *models.Session
	Progress models.Progress

	// Sealed is set once when captures complete and never cleared within a
	// session. Submitted guards the single persistence submission.
	Sealed    bool
	Submitted bool
	LockHeld  bool

	// Channel is the id of the current broadcast subscription, zero when none.
	Channel       uint64
	ChannelSeq    uint64
	ChannelActive bool
	ChannelReady  bool

	StartedAt      time.Time
	LastAttemptEnd time.Time
	DeferredUntil  time.Time
	Deferred       bool
	RetryPending   bool

	// Generation invalidates timers and cues issued before the last
	// start, failure, retry or close.
	Generation uint64

	FingerDetectedShown bool
	Record              *models.FingerprintRecord
	Outcome             *models.Outcome
	Notice              Notify
	Reload              bool
}

// Initial returns the idle state.
func Initial() State {
	return State{Phase: models.PhaseIdle}
}

func (s State) sessionID() models.SessionID {
	if s.Session == nil {
		return ""
	}
	return s.Session.ID
}

func (s State) current(id models.SessionID) bool {
	return s.Session != nil && id == s.Session.ID
}
