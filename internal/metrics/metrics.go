package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blockbot_runs_total",
		Help: "Pipeline runs by outcome",
	}, []string{"outcome"})
	PagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blockbot_pages_fetched_total",
		Help: "Candidate pages fetched and committed",
	})
	BlocksIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blockbot_blocks_issued_total",
		Help: "Accounts blocked",
	})
	AccountsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blockbot_accounts_skipped_total",
		Help: "Accounts kept by the whitelist",
	})
	RateLimitWaits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blockbot_rate_limit_waits_total",
		Help: "Suspensions caused by API rate limiting",
	})
	TransientRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blockbot_transient_retries_total",
		Help: "Retries after transient API failures",
	})
	PublishErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blockbot_publish_errors_total",
		Help: "Block events that failed to publish",
	})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "blockbot_run_duration_seconds",
		Help:    "Pipeline run duration seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		RunsTotal,
		PagesFetched,
		BlocksIssued,
		AccountsSkipped,
		RateLimitWaits,
		TransientRetries,
		PublishErrors,
		RunDuration,
	)
}

// StartServer exposes /metrics and /health on addr. Empty addr disables
// the server.
func StartServer(addr string) {
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}
