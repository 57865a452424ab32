package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/seolens/linkscope/internal/analysis/anchor"
	"github.com/seolens/linkscope/internal/analysis/competitor"
	"github.com/seolens/linkscope/internal/analysis/toxicity"
	"github.com/seolens/linkscope/internal/analysis/velocity"
	"github.com/seolens/linkscope/internal/collector"
	"github.com/seolens/linkscope/internal/config"
	"github.com/seolens/linkscope/internal/dedup"
	"github.com/seolens/linkscope/internal/extract"
	"github.com/seolens/linkscope/internal/health"
	"github.com/seolens/linkscope/internal/httpclient"
	"github.com/seolens/linkscope/internal/logging"
	"github.com/seolens/linkscope/internal/metrics"
	"github.com/seolens/linkscope/internal/metricscache"
	"github.com/seolens/linkscope/internal/output"
	"github.com/seolens/linkscope/internal/provider"
	"github.com/seolens/linkscope/internal/queue"
	"github.com/seolens/linkscope/internal/rate"
	"github.com/seolens/linkscope/internal/report"
	"github.com/seolens/linkscope/internal/robots"
	"github.com/seolens/linkscope/internal/telemetry"
	"github.com/seolens/linkscope/internal/types"
	"github.com/seolens/linkscope/internal/verify"
)

const version = "1.0.0"

func main() {
	var configFile string
	var target string
	var keywords string
	var competitors string
	var maxBacklinks int
	var useArchive bool
	var useSearch bool
	var useSearchAPI bool
	var enrich bool
	var verifyLinks bool
	var ua string
	var outputFormat string
	var ingest string
	var spoolDir string
	var metricsAddr string
	var otelEndpoint string
	var otelInsecure bool
	var otelService string
	var cacheDays int
	var showVersion bool

	flag.StringVar(&configFile, "config", "", "path to config file (YAML or JSON)")
	flag.StringVar(&target, "target", "", "domain to audit")
	flag.StringVar(&keywords, "keywords", "", "comma-separated target keywords for anchor classification")
	flag.StringVar(&competitors, "competitors", "", "comma-separated competitor domains to compare against")
	flag.IntVar(&maxBacklinks, "max", 0, "max backlinks to collect")
	flag.BoolVar(&useArchive, "archive", true, "discover via web-archive index")
	flag.BoolVar(&useSearch, "search", true, "discover via web search")
	flag.BoolVar(&useSearchAPI, "search_api", false, "use the search API instead of scraping")
	flag.BoolVar(&enrich, "enrich", true, "enrich source domains with authority metrics")
	flag.BoolVar(&verifyLinks, "verify", false, "re-verify discovered links before reporting")
	flag.StringVar(&ua, "ua", "", "user-agent")
	flag.StringVar(&outputFormat, "output_format", "", "output format (json, jsonl, csv)")
	flag.StringVar(&ingest, "ingest", "", "ingest endpoint (optional); empty prints the report to stdout")
	flag.StringVar(&spoolDir, "spool_dir", "", "spool dir for failed report uploads")
	flag.StringVar(&metricsAddr, "metrics_addr", "", "metrics listen addr (empty to disable)")
	flag.StringVar(&otelEndpoint, "otel_endpoint", "", "OTLP HTTP endpoint (host:port)")
	flag.BoolVar(&otelInsecure, "otel_insecure", true, "OTLP insecure (no TLS)")
	flag.StringVar(&otelService, "otel_service", "", "OTEL service.name")
	flag.IntVar(&cacheDays, "cache_days", 0, "days to cache domain authority metrics")
	flag.BoolVar(&showVersion, "version", false, "show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "LINKSCOPE - backlink intelligence engine\n")
		fmt.Fprintf(os.Stderr, "Discovers, verifies and analyzes the backlink profile of a domain\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -target=example.com -max=200\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -target=example.com -keywords=\"seo tools,audit\" -competitors=rival.com\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config=config.yaml -output_format=csv > backlinks.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  OPEN_PAGERANK_API_KEY  API key for domain authority enrichment\n")
		fmt.Fprintf(os.Stderr, "  SEARCH_API_KEY         Custom search API key\n")
		fmt.Fprintf(os.Stderr, "  SEARCH_ENGINE_ID       Custom search engine id\n")
		fmt.Fprintf(os.Stderr, "  REDIS_ADDR             Redis server for the shared metrics cache\n")
		fmt.Fprintf(os.Stderr, "  REDIS_QUEUE_ADDR       Redis server for the audit work queue\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Println("linkscope v" + version)
		fmt.Println("Built with Go", strings.TrimPrefix(runtime.Version(), "go"))
		os.Exit(0)
	}

	_ = godotenv.Load()

	log := logging.New()
	defer log.Sync()

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			log.Fatalw("failed to load config file", "file", configFile, "err", err)
		}
		log.Infow("loaded config from file", "file", configFile)
	} else {
		cfg = &config.Config{}
		cfg.SetDefaults()
	}
	cfg.LoadFromEnv()

	flags := map[string]interface{}{
		"use_archive":    useArchive,
		"use_search":     useSearch,
		"use_search_api": useSearchAPI,
		"enrich":         enrich,
		"otel_insecure":  otelInsecure,
	}
	if target != "" {
		flags["target"] = target
	}
	if ua != "" {
		flags["ua"] = ua
	}
	if maxBacklinks > 0 {
		flags["max_backlinks"] = maxBacklinks
	}
	if outputFormat != "" {
		flags["output_format"] = outputFormat
	}
	if ingest != "" {
		flags["ingest"] = ingest
	}
	if spoolDir != "" {
		flags["spool_dir"] = spoolDir
	}
	if metricsAddr != "" {
		flags["metrics_addr"] = metricsAddr
	}
	if otelEndpoint != "" {
		flags["otel_endpoint"] = otelEndpoint
	}
	if otelService != "" {
		flags["otel_service"] = otelService
	}
	if cacheDays > 0 {
		flags["cache_days"] = cacheDays
	}
	if keywords != "" {
		flags["keywords"] = splitList(keywords)
	}
	cfg.MergeWithFlags(flags)

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "err", err)
	}

	// Accept a bare domain or a full URL; everything downstream works
	// on the registrable domain.
	if cfg.Target != "" {
		domain := extract.NormalizeTarget(cfg.Target)
		if domain == "" {
			log.Fatalw("target has no registrable domain", "target", cfg.Target)
		}
		cfg.Target = domain
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.OTELService, cfg.OTELInsecure)
	if err != nil {
		log.Warnw("otel init failed", "err", err)
	} else {
		defer shutdown(context.Background())
	}

	healthHandler := health.NewHandler(log)
	healthHandler.SetMetadata("version", version)
	if cfg.MetricsAddr != "" {
		go metrics.ServeWithHealth(cfg.MetricsAddr, healthHandler, log)
		log.Infow("metrics and health server started", "addr", cfg.MetricsAddr)
	}

	// Shared plumbing for all providers.
	client := httpclient.NewResilientClient(nil, cfg.UA)
	limiter := rate.New(1.0, 2)
	robotsCache := robots.NewCache(httpclient.Default(), cfg.UA)

	var store metricscache.Store
	if cfg.RedisAddr != "" {
		redisStore, err := metricscache.NewRedis(cfg.RedisAddr, cfg.CacheDays)
		if err != nil {
			log.Fatalw("redis metrics cache init", "err", err)
		}
		defer redisStore.Close()
		store = redisStore
		healthHandler.RegisterChecker("metrics_cache", health.NewRedisChecker(cfg.RedisAddr, func() error {
			return redisStore.Ping(context.Background())
		}))
		log.Infow("redis metrics cache enabled", "addr", cfg.RedisAddr)
	} else {
		store = metricscache.NewMemory(cfg.CacheDays)
	}

	var pagerank *provider.PageRank
	if cfg.PageRankAPIKey != "" {
		pagerank = provider.NewPageRank(client, log, cfg.PageRankAPIKey, cfg.DailyQuota)
		healthHandler.RegisterChecker("metrics_quota", health.NewQuotaChecker(pagerank.Remaining, cfg.DailyQuota))

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		go func() {
			for range hup {
				pagerank.ResetQuota()
				log.Infow("metrics quota counter reset")
			}
		}()
	} else if cfg.Enrich {
		log.Infow("no metrics API key; enrichment limited to cached authority")
	}
	enricher := collector.NewEnricher(store, pagerank, log)

	// The visited set is shared through Redis when available, so
	// parallel audit workers do not re-crawl each other's pages.
	var visited dedup.Interface = dedup.NewMemory()
	if dedupAddr := firstNonEmpty(cfg.RedisAddr, cfg.RedisQueueAddr); dedupAddr != "" {
		redisDedup, err := dedup.NewRedis(dedupAddr, log, 24*time.Hour)
		if err != nil {
			log.Fatalw("redis dedup init", "addr", dedupAddr, "err", err)
		}
		visited = redisDedup
		healthHandler.RegisterChecker("dedup", health.NewRedisChecker(dedupAddr, func() error {
			return redisDedup.Ping(context.Background())
		}))
	}

	var providers []provider.Provider
	if cfg.UseArchive {
		providers = append(providers, provider.NewArchive(client, limiter, log,
			cfg.ArchiveBaseURL, cfg.ArchiveDataURL, cfg.ArchiveIndexes))
	}
	if cfg.UseSearch {
		providers = append(providers, provider.NewSearch(client, limiter, robotsCache,
			visited, log, cfg.UA, cfg.SearchAPIKey, cfg.SearchEngineID, cfg.UseSearchAPI))
	}
	if len(providers) == 0 {
		log.Fatalw("no acquisition providers enabled")
	}

	coll := collector.New(providers, enricher, log, cfg.MaxBacklinks,
		collector.WithEnrichment(cfg.Enrich),
		collector.WithProgress(func(phase string, pct int) {
			log.Infow("progress", "phase", phase, "pct", pct)
		}))

	writer, err := output.NewStdoutWriter(cfg.OutputFormat)
	if err != nil {
		log.Fatalw("output init", "err", err)
	}

	var uploader *report.Uploader
	if cfg.Ingest != "" {
		uploader = report.NewUploader(cfg.Ingest, cfg.SpoolDir, log)
	}

	var verifier *verify.Verifier
	if verifyLinks {
		verifier = verify.New(limiter, log, cfg.UA)
	}

	app := &auditor{
		cfg:         cfg,
		log:         log,
		collector:   coll,
		verifier:    verifier,
		writer:      writer,
		uploader:    uploader,
		competitors: normalizeList(splitList(competitors), log),
	}

	var q *queue.RedisQueue
	if cfg.RedisQueueAddr != "" {
		q, err = queue.NewRedis(cfg.RedisQueueAddr, cfg.RedisQueueKey, 0)
		if err != nil {
			log.Fatalw("redis queue init", "err", err)
		}
		healthHandler.RegisterChecker("queue", health.NewRedisChecker(cfg.RedisQueueAddr, func() error {
			return q.Ping(context.Background())
		}))
	}

	healthHandler.SetReady(true)

	if q != nil {
		runQueue(ctx, app, q, cfg, log)
	} else if err := app.run(ctx, cfg.Target); err != nil {
		log.Fatalw("audit failed", "target", cfg.Target, "err", err)
	}

	if uploader != nil {
		uploader.Drain()
	}
	writer.Flush()
	log.Infow("shutdown complete")
}

// auditor bundles the pipeline pieces for one or more audit runs.
type auditor struct {
	cfg         *config.Config
	log         *logging.Logger
	collector   *collector.Collector
	verifier    *verify.Verifier
	writer      *output.Writer
	uploader    *report.Uploader
	competitors []string
}

// run executes the full audit for one target and emits the report.
func (a *auditor) run(ctx context.Context, target string) error {
	res, err := a.collector.Collect(ctx, target)
	if err != nil {
		return err
	}
	links := res.Backlinks

	if a.verifier != nil {
		links = a.verifier.Run(ctx, links, 4)
	}

	rep := report.New(target)
	rep.Stats = res.Stats
	rep.Backlinks = links

	scores := toxicity.ScoreBatch(links, nil)
	metrics.AnalysesTotal.WithLabelValues("toxicity").Inc()
	rep.ToxicityScores = scores
	rep.ToxicityHealth = toxicity.HealthScore(scores)
	rep.ToxicLinks = toxicity.FilterToxic(links, scores, 0)

	rep.Anchors = anchor.Analyze(links, target, a.cfg.Keywords)
	rep.OverOptimization = anchor.CheckOverOptimization(links, target, a.cfg.Keywords)
	metrics.AnalysesTotal.WithLabelValues("anchor").Inc()

	rep.Velocity = velocity.Analyze(links)
	metrics.AnalysesTotal.WithLabelValues("velocity").Inc()

	if len(a.competitors) > 0 {
		rep.Comparisons = a.compare(ctx, target, links)
	}

	if a.uploader != nil {
		a.uploader.Publish(rep)
	}
	return a.writer.WriteReport(rep, links)
}

// compare collects each competitor's profile and diffs it against the
// audited one.
func (a *auditor) compare(ctx context.Context, target string, yours []types.Backlink) map[string]types.CompetitorComparison {
	out := make(map[string]types.CompetitorComparison, len(a.competitors))
	for _, rival := range a.competitors {
		res, err := a.collector.Collect(ctx, rival)
		if err != nil {
			a.log.Warnw("competitor collection failed", "competitor", rival, "err", err)
			continue
		}
		cmp := competitor.Compare(yours, res.Backlinks)
		cmp.Gaps = competitor.AnalyzeGaps(yours, res.Backlinks, a.cfg.Keywords)
		cmp.Anchors = anchor.CompareProfiles(yours, res.Backlinks, target, rival, a.cfg.Keywords)
		metrics.AnalysesTotal.WithLabelValues("competitor").Inc()
		out[rival] = cmp
	}
	return out
}

// runQueue consumes audit targets from the shared Redis queue.
func runQueue(ctx context.Context, app *auditor, q *queue.RedisQueue, cfg *config.Config, log *logging.Logger) {
	log.Infow("consuming audit queue", "addr", cfg.RedisQueueAddr, "key", cfg.RedisQueueKey)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		domain, ack, err := q.Lease(ctx)
		if err != nil {
			continue
		}
		if domain == "" {
			continue
		}
		if err := app.run(ctx, domain); err != nil {
			log.Warnw("audit failed", "target", domain, "err", err)
		}
		_ = ack()
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeList reduces each entry to its registrable domain, dropping
// anything that does not parse.
func normalizeList(entries []string, log *logging.Logger) []string {
	var out []string
	for _, e := range entries {
		if d := extract.NormalizeTarget(e); d != "" {
			out = append(out, d)
		} else {
			log.Warnw("skipping unparseable domain", "value", e)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
