package models

// Phase is the coordinator's single source of truth for where an attempt is.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseLocking              Phase = "locking"
	PhaseAwaitingSensorAccept Phase = "awaiting_sensor_accept"
	PhaseListening            Phase = "listening"
	PhaseCapturing            Phase = "capturing"
	PhaseCapturesComplete     Phase = "captures_complete"
	PhaseConfirming           Phase = "confirming"
	PhaseSubmitting           Phase = "submitting"
	PhaseSucceeded            Phase = "succeeded"
	PhaseFailed               Phase = "failed"
	PhaseCancelled            Phase = "cancelled"
)

// Settled reports whether no attempt is in flight, so a new start is allowed.
func (p Phase) Settled() bool {
	switch p {
	case PhaseIdle, PhaseSucceeded, PhaseFailed, PhaseCancelled:
		return true
	}
	return false
}

// AcceptsCaptureEvents reports whether push events may still mutate progress.
// Every later phase is sticky: late messages never downgrade it.
func (p Phase) AcceptsCaptureEvents() bool {
	return p == PhaseCapturing
}

// Committing reports whether the irreversible part of the flow is running and
// cancellation must be refused.
func (p Phase) Committing() bool {
	return p == PhaseConfirming || p == PhaseSubmitting
}

// Outcome is the final result surfaced to the UI for one attempt.
type Outcome struct {
	Phase     Phase              `json:"phase"`
	Kind      FailureKind        `json:"kind,omitempty"`
	Message   string             `json:"message"`
	Retryable bool               `json:"retryable"`
	Record    *FingerprintRecord `json:"record,omitempty"`
	// Hazard is set when the durable record exists but the sensor did not
	// acknowledge storing the template.
	Hazard bool `json:"hazard,omitempty"`
}
