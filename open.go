// open.go
package ludopad

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ludopad/ludopad/config"
	"github.com/ludopad/ludopad/storage"
	"github.com/ludopad/ludopad/storage/memory"
	"github.com/ludopad/ludopad/storage/postgres"
	redisstore "github.com/ludopad/ludopad/storage/redis"
)

// OpenDurable creates the durable store selected by configuration. The
// returned cleanup releases backend resources and is safe to defer.
func OpenDurable(ctx context.Context, cfg config.Config, log *logrus.Logger) (storage.WatchableStore, func(), error) {
	switch cfg.StorageBackend {
	case "memory", "":
		return memory.New(), func() {}, nil

	case "redis":
		rcfg := redisstore.DefaultConfig()
		rcfg.URL = cfg.RedisURL
		store, err := redisstore.New(rcfg, log)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case "postgres":
		store, err := postgres.New(ctx, cfg.PostgresDSN, log)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
