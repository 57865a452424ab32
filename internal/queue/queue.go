// Package queue feeds audit targets to collection workers through a
// Redis list with a processing sidecar for at-least-once delivery.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisQueue struct {
	cli      *redis.Client
	queueKey string
	procKey  string
	leaseTTL time.Duration
}

type item struct {
	Domain  string `json:"domain"`
	TS      int64  `json:"ts"`
	Attempt int    `json:"attempt"`
}

func NewRedis(addr, key string, lease time.Duration) (*RedisQueue, error) {
	cli := redis.NewClient(&redis.Options{Addr: addr})
	if err := cli.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	if lease <= 0 {
		lease = 30 * time.Minute
	}
	return &RedisQueue{cli: cli, queueKey: key, procKey: key + ":processing", leaseTTL: lease}, nil
}

// Lease pops the next audit target, parking it on the processing list
// until the returned ack removes it. An empty domain means the queue
// was idle for the poll window.
func (q *RedisQueue) Lease(ctx context.Context) (string, func() error, error) {
	res, err := q.cli.BRPopLPush(ctx, q.queueKey, q.procKey, 5*time.Second).Result()
	if err == redis.Nil {
		return "", func() error { return nil }, nil
	}
	if err != nil {
		return "", func() error { return err }, err
	}
	var it item
	if err := json.Unmarshal([]byte(res), &it); err != nil {
		return "", func() error { return err }, err
	}
	// Abandoned leases age out of the sidecar instead of pinning it.
	q.cli.Expire(ctx, q.procKey, q.leaseTTL)
	ack := func() error {
		return q.cli.LRem(ctx, q.procKey, 1, res).Err()
	}
	return it.Domain, ack, nil
}

// Seed enqueues a target domain for auditing.
func (q *RedisQueue) Seed(ctx context.Context, domain string) error {
	b, _ := json.Marshal(item{Domain: domain, TS: time.Now().UTC().Unix(), Attempt: 0})
	return q.cli.LPush(ctx, q.queueKey, string(b)).Err()
}

// Ping checks connectivity for health reporting.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.cli.Ping(ctx).Err()
}
