//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attendance/internal/enrollment/models"
	"attendance/internal/lockregistry/store"
	"attendance/pkg/platform/sentinel"
	"attendance/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.Redis
	store *store.RedisStore
	now   time.Time
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.StartRedis(s.T())
	s.store = store.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.redis.Reset(s.T())
	s.now = time.Now().Truncate(time.Millisecond)
}

func (s *RedisStoreSuite) lock(student models.StudentID, at time.Time) models.InstructorLock {
	return models.InstructorLock{InstructorID: "i-1", HolderStudentID: student, AcquiredAt: at}
}

func (s *RedisStoreSuite) TestAcquireRelease() {
	ctx := context.Background()
	staleBefore := s.now.Add(-models.StaleLockAge)

	_, ok, err := s.store.Acquire(ctx, "ns:k", s.lock("alice", s.now), staleBefore)
	s.Require().NoError(err)
	s.True(ok)

	_, ok, err = s.store.Acquire(ctx, "ns:k", s.lock("alice", s.now.Add(time.Minute)), staleBefore)
	s.Require().NoError(err)
	s.True(ok)

	current, ok, err := s.store.Acquire(ctx, "ns:k", s.lock("bob", s.now), staleBefore)
	s.Require().NoError(err)
	s.False(ok)
	s.Equal(models.StudentID("alice"), current.HolderStudentID)
	s.True(s.now.Equal(current.AcquiredAt), "re-entry keeps the first timestamp")

	ttl, err := s.redis.Client.PTTL(ctx, "ns:k").Result()
	s.Require().NoError(err)
	s.Greater(ttl, models.StaleLockAge-time.Minute)

	released, err := s.store.Release(ctx, "ns:k", "bob")
	s.Require().NoError(err)
	s.False(released)
	released, err = s.store.Release(ctx, "ns:k", "alice")
	s.Require().NoError(err)
	s.True(released)

	_, err = s.store.Get(ctx, "ns:k")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentAcquire verifies exactly one of many racing students wins.
func (s *RedisStoreSuite) TestConcurrentAcquire() {
	ctx := context.Background()
	const students = 20
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := range students {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			student := models.StudentID(string(rune('a' + i)))
			_, ok, err := s.store.Acquire(ctx, "ns:race", s.lock(student, s.now), s.now.Add(-models.StaleLockAge))
			if err == nil && ok {
				winners.Add(1)
			}
		}(i)
	}
	wg.Wait()
	s.Equal(int32(1), winners.Load())
}

func (s *RedisStoreSuite) TestSweep() {
	ctx := context.Background()
	old := s.now.Add(-models.StaleLockAge - time.Minute)
	_, _, err := s.store.Acquire(ctx, "ns:old", s.lock("alice", old), time.Time{})
	s.Require().NoError(err)
	_, _, err = s.store.Acquire(ctx, "ns:fresh", s.lock("bob", s.now), time.Time{})
	s.Require().NoError(err)
	_, _, err = s.store.Acquire(ctx, "other:old", s.lock("carol", old), time.Time{})
	s.Require().NoError(err)

	n, err := s.store.Sweep(ctx, "ns:", s.now.Add(-models.StaleLockAge))
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.store.Get(ctx, "ns:fresh")
	s.NoError(err)
	_, err = s.store.Get(ctx, "other:old")
	s.NoError(err)
}
