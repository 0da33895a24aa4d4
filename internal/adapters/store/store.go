// Package store picks the registry backend named in the configuration.
package store

import (
	"context"
	"fmt"

	"github.com/dkeye/Chorus/internal/adapters/store/redisstore"
	"github.com/dkeye/Chorus/internal/adapters/store/sqlitestore"
	"github.com/dkeye/Chorus/internal/adapters/store/tomlstore"
	"github.com/dkeye/Chorus/internal/config"
	"github.com/dkeye/Chorus/internal/core"
	"github.com/rs/zerolog/log"
)

func Open(ctx context.Context, cfg config.StoreConfig) (core.RoomStore, error) {
	var (
		s   core.RoomStore
		err error
	)
	switch cfg.Driver {
	case config.StoreTOML:
		s, err = tomlstore.New(cfg.Path)
	case config.StoreSQLite:
		s, err = sqlitestore.Open(cfg.Path)
	case config.StoreRedis:
		s, err = redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	log.Info().Str("module", "store").Str("driver", cfg.Driver).Msg("room store ready")
	return s, nil
}
