package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	Client *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		Client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Ping fails fast at startup when redis is unreachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", s.Client.Options().Addr, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.Client.Close()
}
