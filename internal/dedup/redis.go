package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seolens/linkscope/internal/logging"
)

// Redis is a cross-run seen-set; useful when several audit workers
// share one queue and should not re-crawl each other's pages.
type Redis struct {
	cli        *redis.Client
	log        *logging.Logger
	ttl        time.Duration
	errorCount int
}

func NewRedis(addr string, log *logging.Logger, ttl time.Duration) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{Addr: addr})
	if err := cli.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Redis{cli: cli, log: log, ttl: ttl}, nil
}

func (r *Redis) Seen(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := r.cli.SetNX(ctx, "visited:"+key, 1, r.ttl).Result()
	if err != nil {
		r.errorCount++
		if r.errorCount%100 == 1 { // log every 100th error to avoid spam
			r.log.Warnw("redis dedup error", "count", r.errorCount, "err", err)
		}
		return false // be permissive on failure
	}
	return !ok
}

// Ping checks connectivity for health reporting.
func (r *Redis) Ping(ctx context.Context) error {
	return r.cli.Ping(ctx).Err()
}
