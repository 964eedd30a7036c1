package helpers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the shared client used by the rate limiter and the
// stream publisher. Both treat Redis as optional, so timeouts stay short.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxRetries:   1,
	})
}

// PingRedis pings up to attempts times with a linear backoff and returns the
// last error.
func PingRedis(ctx context.Context, rdb *redis.Client, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * 200 * time.Millisecond):
			}
		}
		c, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = rdb.Ping(c).Err()
		cancel()
		if err == nil {
			return nil
		}
	}
	return err
}
