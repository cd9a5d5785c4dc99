package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store marks order ids as claimed so a redelivered insert
// notification cannot trigger a second physical printout.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) key(orderID string) string {
	return fmt.Sprintf("printed:%s", orderID)
}

// Claim returns true if this process is the first to claim the order.
func (s *Store) Claim(ctx context.Context, orderID string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.key(orderID), "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Release gives the claim back so a redelivered notification is not
// dropped for an order that never got marked printed.
func (s *Store) Release(ctx context.Context, orderID string) error {
	return s.rdb.Del(ctx, s.key(orderID)).Err()
}
