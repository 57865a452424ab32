// Package collector orchestrates a full discovery run: it fans the
// audited domain out to the acquisition providers, deduplicates and
// merges the raw candidates, enriches source domains with authority
// metrics and grades each surviving link.
package collector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/seolens/linkscope/internal/extract"
	"github.com/seolens/linkscope/internal/httpclient"
	"github.com/seolens/linkscope/internal/logging"
	"github.com/seolens/linkscope/internal/metrics"
	"github.com/seolens/linkscope/internal/metricscache"
	"github.com/seolens/linkscope/internal/provider"
	"github.com/seolens/linkscope/internal/types"
)

// archiveShare is the fraction of the backlink budget offered to the
// archive provider before search fills the remainder.
const archiveShare = 0.6

// Progress reports phase transitions to a caller-supplied hook.
type Progress func(phase string, percent int)

// Enricher resolves authority metrics for source domains, reading the
// cache first and hitting the metrics API only for misses.
type Enricher struct {
	cache    metricscache.Store
	pagerank *provider.PageRank
	log      *logging.Logger
}

func NewEnricher(cache metricscache.Store, pagerank *provider.PageRank, log *logging.Logger) *Enricher {
	return &Enricher{cache: cache, pagerank: pagerank, log: log}
}

// Resolve returns metrics for as many of the domains as possible.
// Lookup failures degrade to the cached subset.
func (e *Enricher) Resolve(ctx context.Context, domains []string) map[string]types.DomainMetric {
	found, err := e.cache.Get(ctx, domains)
	if err != nil {
		e.log.Warnw("metrics cache read failed", "error", err)
		found = map[string]types.DomainMetric{}
	}
	metrics.EnrichmentLookups.WithLabelValues("hit").Add(float64(len(found)))

	var missing []string
	for _, d := range domains {
		if _, ok := found[d]; !ok {
			missing = append(missing, d)
		}
	}
	if len(missing) == 0 || e.pagerank == nil {
		return found
	}
	metrics.EnrichmentLookups.WithLabelValues("miss").Add(float64(len(missing)))

	fetched, err := e.pagerank.Fetch(ctx, missing)
	if err != nil {
		e.log.Warnw("metrics fetch failed", "missing", len(missing),
			"status", httpclient.StatusCode(err), "error", err)
	}
	if len(fetched) > 0 {
		toSave := make([]types.DomainMetric, 0, len(fetched))
		for _, m := range fetched {
			found[m.Domain] = m
			toSave = append(toSave, m)
		}
		if err := e.cache.Save(ctx, toSave); err != nil {
			e.log.Warnw("metrics cache write failed", "error", err)
		}
	}
	return found
}

// Collector runs the discovery pipeline.
type Collector struct {
	providers []provider.Provider
	enricher  *Enricher
	log       *logging.Logger

	maxBacklinks int
	enrich       bool
	onProgress   Progress
}

type Option func(*Collector)

// WithProgress installs a phase-progress hook.
func WithProgress(p Progress) Option {
	return func(c *Collector) { c.onProgress = p }
}

// WithEnrichment toggles the authority-metrics phase.
func WithEnrichment(enabled bool) Option {
	return func(c *Collector) { c.enrich = enabled }
}

func New(providers []provider.Provider, enricher *Enricher, log *logging.Logger, maxBacklinks int, opts ...Option) *Collector {
	c := &Collector{
		providers:    providers,
		enricher:     enricher,
		log:          log,
		maxBacklinks: maxBacklinks,
		enrich:       true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the outcome of one discovery run.
type Result struct {
	Backlinks []types.Backlink      `json:"backlinks"`
	Stats     types.CollectionStats `json:"stats"`
}

// Collect runs the full pipeline for one audited target. The target
// may be a bare domain or a full URL; either form is reduced to the
// registrable domain before discovery starts.
func (c *Collector) Collect(ctx context.Context, target string) (*Result, error) {
	domain := extract.NormalizeTarget(target)
	if domain == "" {
		return nil, fmt.Errorf("target %q has no registrable domain", target)
	}
	target = domain

	tr := otel.Tracer("linkscope/collector")
	ctx, span := tr.Start(ctx, "Collect")
	span.SetAttributes(attribute.String("target", target))
	defer span.End()

	start := time.Now()
	c.progress("starting", 10)

	raw := make([]types.Backlink, 0, c.maxBacklinks)
	sources := make(map[string]int, len(c.providers))
	budget := c.maxBacklinks

	for i, p := range c.providers {
		if budget <= 0 {
			break
		}
		limit := budget
		if p.Name() == "archive" {
			limit = int(math.Ceil(float64(c.maxBacklinks) * archiveShare))
			if limit > budget {
				limit = budget
			}
		}
		links, err := p.Collect(ctx, target, limit)
		if err != nil {
			metrics.ProviderErrors.WithLabelValues(p.Name()).Inc()
			c.log.Warnw("provider failed", "provider", p.Name(), "error", err)
		}
		metrics.BacklinksTotal.WithLabelValues(p.Name()).Add(float64(len(links)))
		sources[p.Name()] = len(links)
		raw = append(raw, links...)
		budget = c.maxBacklinks - len(raw)

		// Two providers split the 10..50 band evenly.
		c.progress(p.Name(), 10+(40*(i+1))/len(c.providers))
	}

	merged := Merge(raw)
	if len(merged) > c.maxBacklinks {
		merged = merged[:c.maxBacklinks]
	}
	c.progress("dedupe", 70)

	if c.enrich && c.enricher != nil {
		c.applyMetrics(ctx, merged)
	}
	c.progress("enrich", 80)

	for i := range merged {
		merged[i].Strength = Grade(&merged[i])
	}
	c.progress("grade", 90)

	stats := types.CollectionStats{
		TotalFound:          len(raw),
		UniqueBacklinks:     len(merged),
		UniqueDomains:       len(types.UniqueDomains(merged)),
		AverageDomainRating: types.AverageDomainRating(merged),
		Sources:             sources,
		Duration:            time.Since(start),
	}
	c.progress("stats", 95)

	metrics.CollectionSeconds.Observe(stats.Duration.Seconds())
	c.log.Infow("collection complete", "target", target, "stats", stats.String())
	c.progress("done", 100)

	return &Result{Backlinks: merged, Stats: stats}, nil
}

// Merge deduplicates raw candidates on (source domain, target URL).
// When two records collide the one carrying more information wins;
// the survivor keeps the earliest FirstSeen of the pair. Order of
// first appearance is preserved.
func Merge(raw []types.Backlink) []types.Backlink {
	index := make(map[string]int, len(raw))
	out := make([]types.Backlink, 0, len(raw))
	for i := range raw {
		key := raw[i].Key()
		at, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, raw[i])
			continue
		}
		kept := &out[at]
		challenger := raw[i]
		if challenger.FirstSeen.Before(kept.FirstSeen) {
			kept.FirstSeen = challenger.FirstSeen
		}
		if challenger.Richness() > kept.Richness() {
			challenger.FirstSeen = kept.FirstSeen
			out[at] = challenger
		}
	}
	return out
}

// Grade scores one link's strength from authority, follow status,
// placement and annotation quality.
func Grade(b *types.Backlink) types.LinkStrength {
	points := math.Min(float64(b.DomainRating)*0.4, 40)
	if b.LinkType == types.LinkFollow {
		points += 20
	}
	switch b.Position {
	case types.PositionContent:
		points += 20
	case types.PositionNav:
		points += 10
	}
	if len(b.AnchorText) > 3 {
		points += 10
	}
	if len(b.Context) > 50 {
		points += 10
	}

	switch {
	case points >= 80:
		return types.StrengthVeryStrong
	case points >= 60:
		return types.StrengthStrong
	case points >= 40:
		return types.StrengthNormal
	default:
		return types.StrengthWeak
	}
}

// applyMetrics resolves authority for every distinct source domain and
// writes it onto the links.
func (c *Collector) applyMetrics(ctx context.Context, links []types.Backlink) {
	domains := types.UniqueDomains(links)
	sort.Strings(domains)
	resolved := c.enricher.Resolve(ctx, domains)
	for i := range links {
		if m, ok := resolved[links[i].SourceDomain]; ok {
			links[i].DomainRating = m.DomainRating
		}
	}
}

func (c *Collector) progress(phase string, percent int) {
	if c.onProgress != nil {
		c.onProgress(phase, percent)
	}
}
