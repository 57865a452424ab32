// Package metricscache stores domain authority snapshots keyed by
// registrable domain. Entries expire after a configurable number of
// days; expired entries read as misses so enrichment re-fetches them.
package metricscache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/seolens/linkscope/internal/types"
)

// Store is the KV-by-domain cache capability used by enrichment.
// Implementations must be safe for concurrent use; per-domain upserts
// are last-writer-wins since values are idempotent snapshots.
type Store interface {
	Get(ctx context.Context, domains []string) (map[string]types.DomainMetric, error)
	Save(ctx context.Context, metrics []types.DomainMetric) error
}

// Memory is the in-process implementation backed by an expirable LRU.
type Memory struct {
	lru    *expirable.LRU[string, types.DomainMetric]
	maxAge time.Duration
}

// NewMemory builds an in-memory store whose entries are valid for
// cacheDays days.
func NewMemory(cacheDays int) *Memory {
	maxAge := time.Duration(cacheDays) * 24 * time.Hour
	return &Memory{
		lru:    expirable.NewLRU[string, types.DomainMetric](16384, nil, maxAge),
		maxAge: maxAge,
	}
}

func (m *Memory) Get(_ context.Context, domains []string) (map[string]types.DomainMetric, error) {
	out := make(map[string]types.DomainMetric, len(domains))
	cutoff := time.Now().Add(-m.maxAge)
	for _, d := range domains {
		metric, ok := m.lru.Get(d)
		if !ok || metric.LastUpdated.Before(cutoff) {
			continue
		}
		out[d] = metric
	}
	return out, nil
}

func (m *Memory) Save(_ context.Context, metrics []types.DomainMetric) error {
	for _, metric := range metrics {
		if metric.LastUpdated.IsZero() {
			metric.LastUpdated = time.Now().UTC()
		}
		m.lru.Add(metric.Domain, metric)
	}
	return nil
}
