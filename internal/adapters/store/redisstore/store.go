// Package redisstore persists the room registry as a Redis list.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Chorus/internal/core"
	"github.com/dkeye/Chorus/internal/domain"
	"github.com/redis/go-redis/v9"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Store rewrites the list under Key atomically on every Save.
type Store struct {
	rdb *redis.Client
	key string
}

var _ core.RoomStore = (*Store)(nil)

func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return &Store{rdb: rdb, key: opts.Key}, nil
}

func (s *Store) Load(ctx context.Context) ([]domain.RoomName, error) {
	vals, err := s.rdb.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read rooms list: %w", err)
	}
	rooms := make([]domain.RoomName, 0, len(vals))
	for _, v := range vals {
		rooms = append(rooms, domain.RoomName(v))
	}
	return rooms, nil
}

func (s *Store) Save(ctx context.Context, rooms []domain.RoomName) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(rooms) == 0 {
			return nil
		}
		vals := make([]any, 0, len(rooms))
		for _, r := range rooms {
			vals = append(vals, string(r))
		}
		pipe.RPush(ctx, s.key, vals...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write rooms list: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
