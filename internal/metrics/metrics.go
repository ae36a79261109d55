package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CatalogLoads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "biaslens_catalog_loads_total",
		Help: "Total bias catalog builds",
	})
	CatalogLoadErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "biaslens_catalog_load_errors_total",
		Help: "Bias catalog builds that fell back to an empty catalog",
	})
	CatalogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "biaslens_catalog_sources",
		Help: "Number of sources in the published bias catalog",
	})
	MatchTiers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "biaslens_source_matches_total",
		Help: "Source name resolutions by winning tier",
	}, []string{"tier"})
	ItemsScored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "biaslens_feed_items_scored_total",
		Help: "Feed items scored or labeled, by mode",
	}, []string{"mode"})
	RefreshRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "biaslens_article_refresh_runs_total",
		Help: "Total article refresh runs",
	})
	RefreshErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "biaslens_article_refresh_errors_total",
		Help: "Total article refresh errors",
	})
	RefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "biaslens_article_refresh_duration_seconds",
		Help:    "Article refresh duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "biaslens_api_retries_total",
		Help: "Total news API retry attempts",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "biaslens_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "biaslens_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(
		CatalogLoads, CatalogLoadErrors, CatalogSize, MatchTiers, ItemsScored,
		RefreshRuns, RefreshErrors, RefreshDuration, APIRetries, CommandRuns, CommandErrors,
	)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
// With an empty addr it falls back to METRICS_ADDR and does nothing if that is unset.
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// ObserveRefreshDuration records a run duration.
func ObserveRefreshDuration(start time.Time) {
	RefreshDuration.Observe(time.Since(start).Seconds())
}

// IncMatch counts a resolution won by tier ("exact", "substring", "fuzzy" or "none").
func IncMatch(tier string) { MatchTiers.WithLabelValues(tier).Inc() }

// AddScored counts n items handled in mode.
func AddScored(mode string, n int) { ItemsScored.WithLabelValues(mode).Add(float64(n)) }

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
