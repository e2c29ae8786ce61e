package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attendance/internal/enrollment/models"
	"attendance/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) lock(student models.StudentID, at time.Time) models.InstructorLock {
	return models.InstructorLock{InstructorID: "i-1", HolderStudentID: student, AcquiredAt: at}
}

func (s *InMemoryStoreSuite) TestAcquire() {
	ctx := context.Background()
	staleBefore := s.now.Add(-models.StaleLockAge)

	got, ok, err := s.store.Acquire(ctx, "k", s.lock("alice", s.now), staleBefore)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(models.StudentID("alice"), got.HolderStudentID)

	got, ok, err = s.store.Acquire(ctx, "k", s.lock("bob", s.now), staleBefore)
	s.Require().NoError(err)
	s.False(ok)
	s.Equal(models.StudentID("alice"), got.HolderStudentID)

	later := s.now.Add(models.StaleLockAge + time.Minute)
	got, ok, err = s.store.Acquire(ctx, "k", s.lock("bob", later), later.Add(-models.StaleLockAge))
	s.Require().NoError(err)
	s.True(ok, "stale lock is replaced")
	s.Equal(later, got.AcquiredAt)
}

func (s *InMemoryStoreSuite) TestRelease() {
	ctx := context.Background()
	_, _, err := s.store.Acquire(ctx, "k", s.lock("alice", s.now), time.Time{})
	s.Require().NoError(err)

	released, err := s.store.Release(ctx, "k", "bob")
	s.Require().NoError(err)
	s.False(released)

	released, err = s.store.Release(ctx, "k", "alice")
	s.Require().NoError(err)
	s.True(released)

	_, err = s.store.Get(ctx, "k")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
