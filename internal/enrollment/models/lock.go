package models

import "time"

// InstructorLock records which student is enrolling under an instructor.
type InstructorLock struct {
	InstructorID    InstructorID `json:"instructor_id"`
	HolderStudentID StudentID    `json:"holder"`
	AcquiredAt      time.Time    `json:"acquired_at"`
}

// Stale reports whether the lock is old enough to be presumed abandoned.
func (l InstructorLock) Stale(now time.Time) bool {
	return now.Sub(l.AcquiredAt) > StaleLockAge
}
