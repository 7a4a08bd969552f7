package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Host string
	Pass string
	Port int

	LocalSize int
	LocalTTL  time.Duration
}

type Redis struct {
	Client *redis.Ring
	Store  *cache.Cache
}

func NewConnection(cfg Config) (*Redis, error) {
	log.Info("connecting to redis")

	r := redis.NewRing(&redis.RingOptions{
		Addrs: map[string]string{
			"server1": fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		},
		HeartbeatFrequency: 10 * time.Second,
		Password:           cfg.Pass,
		MaxRetries:         3,
		MaxRetryBackoff:    3 * time.Second,
		ReadTimeout:        1 * time.Second,
		WriteTimeout:       1 * time.Second,
		PoolSize:           10,
		MinIdleConns:       1,
	})

	log.Info("verifying redis connection")

	if err := r.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}

	log.Info("verified redis connection")

	return &Redis{
		Client: r,
		Store:  New(r, cfg.LocalSize, cfg.LocalTTL),
	}, nil
}

// New builds a two-level cache, a local TinyLFU in front of redis. With a nil
// ring only the local level is used.
func New(r *redis.Ring, localSize int, localTTL time.Duration) *cache.Cache {
	if localSize <= 0 {
		localSize = 1000
	}
	if localTTL <= 0 {
		localTTL = time.Minute
	}

	opts := &cache.Options{
		LocalCache: cache.NewTinyLFU(localSize, localTTL),
	}
	if r != nil {
		opts.Redis = r
	}

	return cache.New(opts)
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
