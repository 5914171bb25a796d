package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options carries the Redis connection settings the config layer exposes.
// Zero values fall back to defaults suited for the advisory slot lock's
// short, bursty commands.
type Options struct {
	Addr     string
	Username string
	Password string

	PoolSize int           // default 10
	Timeout  time.Duration // per-command read/write timeout, default 2s
}

// NewClient connects and verifies the server is reachable before handing the
// client out. The caller's ctx bounds the initial ping.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolSize:     poolSize,
		MinIdleConns: 1,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}
