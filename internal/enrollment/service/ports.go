package service

import (
	"context"

	"attendance/internal/biometricapi"
	"attendance/internal/broadcast"
	"attendance/internal/enrollment/machine"
	"attendance/internal/enrollment/models"
	"attendance/internal/sensor"
)

// Sensor is the fingerprint device.
type Sensor interface {
	Enroll(ctx context.Context, req sensor.EnrollRequest) (*sensor.EnrollResponse, error)
	Confirm(ctx context.Context, req sensor.ConfirmRequest) error
	Cancel(ctx context.Context) error
}

// Registrar is the persistence API.
type Registrar interface {
	Enroll(ctx context.Context, req biometricapi.EnrollRequest) (*biometricapi.EnrollResponse, error)
	CheckExisting(ctx context.Context, req biometricapi.CheckExistingRequest) (*biometricapi.CheckExistingResponse, error)
}

// Broadcast opens the per-session progress channel.
type Broadcast interface {
	Open(ctx context.Context, session models.SessionID) (broadcast.Stream, error)
}

// Locks is the per-instructor lock registry.
type Locks interface {
	TryAcquire(ctx context.Context, instructor models.InstructorID, student models.StudentID) (bool, error)
	Release(ctx context.Context, instructor models.InstructorID, student models.StudentID) error
	SweepStale(ctx context.Context) (int, error)
}

// Cues plays audible cues. Play blocks until the cue has finished.
type Cues interface {
	Play(ctx context.Context, cue machine.Cue) error
}

// Observer receives every new view. Update runs on the coordinator loop and
// must not block.
type Observer interface {
	Update(v machine.View)
}

// Interlock asks the user whether to replace an existing registration.
type Interlock interface {
	ConfirmReplacement(ctx context.Context, instructorName string) bool
}
