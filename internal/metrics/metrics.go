package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/seolens/linkscope/internal/health"
)

var (
	BacklinksTotal    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "linkscope_backlinks_total", Help: "raw backlinks discovered"}, []string{"provider"})
	ProviderErrors    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "linkscope_provider_errors_total", Help: "provider collection errors"}, []string{"provider"})
	EnrichmentLookups = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "linkscope_enrichment_lookups_total", Help: "domain metric lookups"}, []string{"result"})
	AnalysesTotal     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "linkscope_analyses_total", Help: "analyses run"}, []string{"analyzer"})
	CollectionSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "linkscope_collection_seconds", Help: "collection run duration", Buckets: prometheus.ExponentialBuckets(0.5, 2, 10)})
)

func init() {
	prometheus.MustRegister(BacklinksTotal, ProviderErrors, EnrichmentLookups, AnalysesTotal, CollectionSeconds)
}

func ServeWithHealth(addr string, healthHandler *health.Handler, log *zap.SugaredLogger) {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthHandler.HealthHandler)
	http.HandleFunc("/ready", healthHandler.ReadinessHandler)
	http.HandleFunc("/live", healthHandler.LivenessHandler)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Warnw("metrics server stopped", "err", err)
	}
}
