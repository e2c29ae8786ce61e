package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"attendance/internal/enrollment/models"
	"attendance/pkg/platform/sentinel"
)

// InMemoryStore keeps locks for the lifetime of the process.
type InMemoryStore struct {
	mu    sync.Mutex
	locks map[string]models.InstructorLock
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		locks: make(map[string]models.InstructorLock),
	}
}

func (s *InMemoryStore) Acquire(_ context.Context, key string, want models.InstructorLock, staleBefore time.Time) (models.InstructorLock, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.locks[key]
	switch {
	case !ok, current.AcquiredAt.Before(staleBefore):
		s.locks[key] = want
		return want, true, nil
	case current.HolderStudentID == want.HolderStudentID:
		return current, true, nil
	default:
		return current, false, nil
	}
}

func (s *InMemoryStore) Release(_ context.Context, key string, holder models.StudentID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.locks[key]
	if !ok || current.HolderStudentID != holder {
		return false, nil
	}
	delete(s.locks, key)
	return true, nil
}

func (s *InMemoryStore) Get(_ context.Context, key string) (models.InstructorLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.locks[key]
	if !ok {
		return models.InstructorLock{}, sentinel.ErrNotFound
	}
	return current, nil
}

func (s *InMemoryStore) Sweep(_ context.Context, prefix string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, lock := range s.locks {
		if strings.HasPrefix(key, prefix) && lock.AcquiredAt.Before(cutoff) {
			delete(s.locks, key)
			n++
		}
	}
	return n, nil
}
