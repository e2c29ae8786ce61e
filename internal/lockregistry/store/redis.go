package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"attendance/internal/enrollment/models"
	"attendance/pkg/platform/sentinel"
)

const (
	fieldHolder     = "holder"
	fieldInstructor = "instructor"
	fieldAcquiredAt = "acquired_at"

	// maxTxRetries bounds optimistic retries when a watched key changes
	// between read and write.
	maxTxRetries = 5
	sweepBatch   = 100
)

// RedisStore keeps each lock in a hash. Writes run inside WATCH/MULTI so the
// compare and the set are atomic per key. Every key carries a TTL of
// models.StaleLockAge as a backstop for abandoned locks.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithTTL overrides the expiry backstop.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, ttl: models.StaleLockAge}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Acquire(ctx context.Context, key string, want models.InstructorLock, staleBefore time.Time) (models.InstructorLock, bool, error) {
	var (
		result models.InstructorLock
		owned  bool
	)
	txf := func(tx *redis.Tx) error {
		current, err := readLock(ctx, tx, key)
		switch {
		case errors.Is(err, sentinel.ErrNotFound), err == nil && current.AcquiredAt.Before(staleBefore):
			// free or abandoned, take it
		case err != nil:
			return err
		case current.HolderStudentID == want.HolderStudentID:
			result, owned = current, true
			return nil
		default:
			result, owned = current, false
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldHolder, string(want.HolderStudentID),
				fieldInstructor, string(want.InstructorID),
				fieldAcquiredAt, strconv.FormatInt(want.AcquiredAt.UnixMilli(), 10),
			)
			pipe.PExpire(ctx, key, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result, owned = want, true
		return nil
	}

	if err := s.watch(ctx, txf, key); err != nil {
		return models.InstructorLock{}, false, err
	}
	return result, owned, nil
}

func (s *RedisStore) Release(ctx context.Context, key string, holder models.StudentID) (bool, error) {
	var released bool
	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldHolder).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if current != string(holder) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		released = true
		return nil
	}

	if err := s.watch(ctx, txf, key); err != nil {
		return false, err
	}
	return released, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (models.InstructorLock, error) {
	return readLock(ctx, s.client, key)
}

// Sweep scans prefix and deletes locks older than cutoff. Each delete is
// guarded so a lock re-acquired mid-scan survives.
func (s *RedisStore) Sweep(ctx context.Context, prefix string, cutoff time.Time) (int, error) {
	var (
		cursor uint64
		n      int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", sweepBatch).Result()
		if err != nil {
			return n, fmt.Errorf("scan %s: %w", prefix, err)
		}
		for _, key := range keys {
			deleted, err := s.deleteIfOlder(ctx, key, cutoff)
			if err != nil {
				return n, err
			}
			if deleted {
				n++
			}
		}
		cursor = next
		if cursor == 0 {
			return n, nil
		}
	}
}

func (s *RedisStore) deleteIfOlder(ctx context.Context, key string, cutoff time.Time) (bool, error) {
	var deleted bool
	txf := func(tx *redis.Tx) error {
		current, err := readLock(ctx, tx, key)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !current.AcquiredAt.Before(cutoff) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = true
		return nil
	}
	if err := s.watch(ctx, txf, key); err != nil {
		return false, err
	}
	return deleted, nil
}

// watch runs txf under WATCH, retrying when another client wins the race.
func (s *RedisStore) watch(ctx context.Context, txf func(*redis.Tx) error, key string) error {
	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("lock %s: %w", key, sentinel.ErrConflict)
}

// hashReader is satisfied by both *redis.Client and *redis.Tx.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func readLock(ctx context.Context, c hashReader, key string) (models.InstructorLock, error) {
	fields, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return models.InstructorLock{}, err
	}
	holder, ok := fields[fieldHolder]
	if !ok {
		return models.InstructorLock{}, sentinel.ErrNotFound
	}
	ms, err := strconv.ParseInt(fields[fieldAcquiredAt], 10, 64)
	if err != nil {
		return models.InstructorLock{}, fmt.Errorf("lock %s: bad %s: %w", key, fieldAcquiredAt, err)
	}
	return models.InstructorLock{
		InstructorID:    models.InstructorID(fields[fieldInstructor]),
		HolderStudentID: models.StudentID(holder),
		AcquiredAt:      time.UnixMilli(ms),
	}, nil
}
