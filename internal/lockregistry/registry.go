// Package lockregistry provides advisory per-instructor enrollment locks.
//
// A lock says which student is currently enrolling under an instructor. It is
// cooperative: it produces a clear message for the second student, it does
// not prevent two sensors from capturing at once. Locks older than
// models.StaleLockAge are presumed abandoned by a crashed client.
package lockregistry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"k8s.io/utils/clock"

	"attendance/internal/enrollment/models"
	dErrors "attendance/pkg/domain-errors"
	"attendance/pkg/platform/sentinel"
)

const keyPrefix = "enrollment_in_progress_instructor_"

// Store persists locks under opaque keys. Implementations must make Acquire
// and Release atomic per key.
type Store interface {
	// Acquire installs want when the key is free, when the current lock was
	// acquired before staleBefore, or when want.HolderStudentID already holds
	// it. It returns the lock in force afterwards and whether want's holder
	// owns it.
	Acquire(ctx context.Context, key string, want models.InstructorLock, staleBefore time.Time) (models.InstructorLock, bool, error)
	// Release deletes the key only if holder owns it.
	Release(ctx context.Context, key string, holder models.StudentID) (bool, error)
	// Get returns sentinel.ErrNotFound when no lock exists.
	Get(ctx context.Context, key string) (models.InstructorLock, error)
	// Sweep deletes every lock under prefix acquired before cutoff.
	Sweep(ctx context.Context, prefix string, cutoff time.Time) (int, error)
}

// Registry scopes locks to a namespace, the equivalent of one browsing
// context sharing session storage.
type Registry struct {
	store     Store
	namespace string
	clock     clock.PassiveClock
	logger    *slog.Logger
}

type Option func(*Registry)

func WithNamespace(ns string) Option {
	return func(r *Registry) {
		r.namespace = ns
	}
}

func WithClock(c clock.PassiveClock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func New(store Store, opts ...Option) *Registry {
	r := &Registry{
		store:     store,
		namespace: "default",
		clock:     clock.RealClock{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// TryAcquire returns true when instructor's lock is free or already held by
// student. It returns false, changing nothing, when another student holds a
// lock that is not stale. Re-entry by the holder keeps the original
// acquisition time.
func (r *Registry) TryAcquire(ctx context.Context, instructor models.InstructorID, student models.StudentID) (bool, error) {
	if err := validate(instructor, student); err != nil {
		return false, err
	}
	now := r.clock.Now()
	want := models.InstructorLock{InstructorID: instructor, HolderStudentID: student, AcquiredAt: now}
	current, ok, err := r.store.Acquire(ctx, r.key(instructor), want, now.Add(-models.StaleLockAge))
	if err != nil {
		return false, fmt.Errorf("acquire lock for instructor %s: %w", instructor, err)
	}
	if !ok {
		r.logger.InfoContext(ctx, "instructor lock held by another student",
			"instructor_id", instructor,
			"student_id", student,
			"holder", current.HolderStudentID,
			"held_for", now.Sub(current.AcquiredAt).Round(time.Second),
		)
		return false, nil
	}
	return true, nil
}

// Release clears the lock only when student holds it, so a slow straggler
// never frees a newer holder's lock.
func (r *Registry) Release(ctx context.Context, instructor models.InstructorID, student models.StudentID) error {
	if err := validate(instructor, student); err != nil {
		return err
	}
	released, err := r.store.Release(ctx, r.key(instructor), student)
	if err != nil {
		return fmt.Errorf("release lock for instructor %s: %w", instructor, err)
	}
	if !released {
		r.logger.DebugContext(ctx, "lock release skipped, not the holder",
			"instructor_id", instructor,
			"student_id", student,
		)
	}
	return nil
}

// Holder returns the current lock for instructor, or sentinel.ErrNotFound.
// A stale lock is reported as not found.
func (r *Registry) Holder(ctx context.Context, instructor models.InstructorID) (models.InstructorLock, error) {
	lock, err := r.store.Get(ctx, r.key(instructor))
	if err != nil {
		return models.InstructorLock{}, err
	}
	if lock.Stale(r.clock.Now()) {
		return models.InstructorLock{}, sentinel.ErrNotFound
	}
	return lock, nil
}

// SweepStale removes abandoned locks in this namespace. Clients call it once
// when they come up.
func (r *Registry) SweepStale(ctx context.Context) (int, error) {
	cutoff := r.clock.Now().Add(-models.StaleLockAge)
	n, err := r.store.Sweep(ctx, r.prefix(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep stale locks: %w", err)
	}
	if n > 0 {
		r.logger.InfoContext(ctx, "cleared stale instructor locks", "count", n, "namespace", r.namespace)
	}
	return n, nil
}

func (r *Registry) prefix() string {
	return r.namespace + ":" + keyPrefix
}

func (r *Registry) key(instructor models.InstructorID) string {
	return r.prefix() + string(instructor)
}

func validate(instructor models.InstructorID, student models.StudentID) error {
	if strings.TrimSpace(string(instructor)) == "" {
		return dErrors.New(dErrors.CodeValidation, "instructor id is required")
	}
	if strings.TrimSpace(string(student)) == "" {
		return dErrors.New(dErrors.CodeValidation, "student id is required")
	}
	return nil
}

// IsNotFound reports whether err means no lock is held.
func IsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
