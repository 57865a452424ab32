package metricscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seolens/linkscope/internal/types"
)

const redisKeyPrefix = "metrics:"

// Redis shares domain metrics across collector instances. Each domain
// is a JSON value under metrics:<domain> with a TTL, so expiry is
// handled server-side.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(addr string, cacheDays int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Redis{
		client: client,
		ttl:    time.Duration(cacheDays) * 24 * time.Hour,
	}, nil
}

func (r *Redis) Get(ctx context.Context, domains []string) (map[string]types.DomainMetric, error) {
	if len(domains) == 0 {
		return map[string]types.DomainMetric{}, nil
	}
	keys := make([]string, len(domains))
	for i, d := range domains {
		keys[i] = redisKeyPrefix + d
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading metrics: %w", err)
	}
	out := make(map[string]types.DomainMetric, len(domains))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var metric types.DomainMetric
		if err := json.Unmarshal([]byte(raw), &metric); err != nil {
			continue
		}
		out[domains[i]] = metric
	}
	return out, nil
}

func (r *Redis) Save(ctx context.Context, metrics []types.DomainMetric) error {
	if len(metrics) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, metric := range metrics {
		if metric.LastUpdated.IsZero() {
			metric.LastUpdated = time.Now().UTC()
		}
		raw, err := json.Marshal(metric)
		if err != nil {
			return fmt.Errorf("encoding metric for %s: %w", metric.Domain, err)
		}
		pipe.Set(ctx, redisKeyPrefix+metric.Domain, raw, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving metrics: %w", err)
	}
	return nil
}

// Ping checks connectivity for health reporting.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error { return r.client.Close() }
