package redisstore

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/meterline/gatekit/paramstore"
)

// Store reads parameters from Redis. Each parameter path maps to one key
// under the configured namespace.
type Store struct {
	rdb   *redis.Client
	keyNS string
}

func NewStore(rdb *redis.Client, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = "gatekit:param:"
	}
	return &Store{rdb: rdb, keyNS: keyPrefix}
}

func (s *Store) key(path string) string { return s.keyNS + path }

func (s *Store) GetParameter(ctx context.Context, path string) (string, error) {
	val, err := s.rdb.Get(ctx, s.key(path)).Result()
	if err == redis.Nil {
		return "", paramstore.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}
