package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Tracker remembers which orders reached a generated artifact so a row is
// completed at most once, across runs when backed by redis.
type Tracker interface {
	IsCompleted(ctx context.Context, orderNumber string) (bool, error)
	MarkCompleted(ctx context.Context, orderNumber string) error
}

type redisTracker struct {
	redisClient *redis.Client
	key         string
}

func NewRedisTracker(redisClient *redis.Client, keyPrefix string) Tracker {
	return &redisTracker{
		redisClient: redisClient,
		key:         keyPrefix + "orders:completed",
	}
}

func (s *redisTracker) IsCompleted(ctx context.Context, orderNumber string) (bool, error) {
	done, err := s.redisClient.SIsMember(ctx, s.key, orderNumber).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check completion of order %s: %w", orderNumber, err)
	}
	return done, nil
}

func (s *redisTracker) MarkCompleted(ctx context.Context, orderNumber string) error {
	if err := s.redisClient.SAdd(ctx, s.key, orderNumber).Err(); err != nil {
		return fmt.Errorf("failed to mark order %s completed: %w", orderNumber, err)
	}
	return nil
}

type memoryTracker struct {
	mu        sync.Mutex
	completed map[string]struct{}
}

// NewMemoryTracker tracks completion for the lifetime of the process only
func NewMemoryTracker() Tracker {
	return &memoryTracker{completed: make(map[string]struct{})}
}

func (s *memoryTracker) IsCompleted(_ context.Context, orderNumber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.completed[orderNumber]
	return ok, nil
}

func (s *memoryTracker) MarkCompleted(_ context.Context, orderNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[orderNumber] = struct{}{}
	return nil
}
