package models

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind normalizes everything that can go wrong in an attempt.
type FailureKind string

const (
	FailureNone                  FailureKind = ""
	FailureLockContention        FailureKind = "lock_contention"
	FailureSensorRejected        FailureKind = "sensor_rejected"
	FailureTransientEvent        FailureKind = "transient_event"
	FailureCapture               FailureKind = "capture_failure"
	FailurePersistenceRejected   FailureKind = "persistence_rejected"
	FailureHardwareConfirmHazard FailureKind = "hardware_confirm_hazard"
	FailureNetworkTimeout        FailureKind = "network_timeout"
)

// Retryable reports whether the user may run the cancel, wait, retry cycle.
// Lock contention needs the other student to finish first; transient events
// and confirm hazards never end an attempt.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureSensorRejected, FailureCapture, FailurePersistenceRejected, FailureNetworkTimeout:
		return true
	}
	return false
}

// Failure pairs a kind with the user-facing message.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure builds a Failure, defaulting the message to the cause's text.
func NewFailure(kind FailureKind, message string, err error) *Failure {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &Failure{Kind: kind, Message: message, Err: err}
}

// IsTimeout reports whether err came from a bounded call running out of time.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// ClassifySensorError maps a sensor accept failure. The raw error text is
// kept as the message because it is what the user needs to see.
func ClassifySensorError(err error) *Failure {
	if IsTimeout(err) {
		return NewFailure(FailureNetworkTimeout, "Sensor timeout - sensor not responding", err)
	}
	return NewFailure(FailureSensorRejected, "Sensor enrollment failed: "+err.Error(), err)
}

// ClassifyPersistenceError maps a failed or rejected enroll submission.
func ClassifyPersistenceError(err error) *Failure {
	if IsTimeout(err) {
		return NewFailure(FailureNetworkTimeout, "Registration took too long. Server not responding.", err)
	}
	return NewFailure(FailurePersistenceRejected, "", err)
}
