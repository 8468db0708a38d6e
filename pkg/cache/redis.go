package cache

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/lms-grading-api/pkg/config"
)

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = time.Second
	pingTimeout = 5 * time.Second
)

var errNoClient = errors.New("redis client not configured")

// NewRedis connects to Redis and pings it before returning. Read and write
// timeouts are short: a slow cache must not hold up grade reads.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Probe adapts a Redis client to a readiness check.
type Probe struct {
	Client *redis.Client
}

func (p Probe) PingContext(ctx context.Context) error {
	if p.Client == nil {
		return errNoClient
	}
	return p.Client.Ping(ctx).Err()
}
