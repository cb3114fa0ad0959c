package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cycle metrics
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ddnsd_cycles_total",
			Help: "Total number of update cycles started",
		},
	)

	DetectFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ddnsd_detect_failures_total",
			Help: "Total number of cycles where every detect strategy failed",
		},
	)

	DetectDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ddnsd_detect_duration_seconds",
			Help:    "Time spent detecting the public IP per cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Provider metrics
	ProviderUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddnsd_provider_updates_total",
			Help: "Provider update outcomes by provider and result (ok or given_up)",
		},
		[]string{"provider", "result"},
	)

	ProviderRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddnsd_provider_retries_total",
			Help: "Total number of provider update retries",
		},
		[]string{"provider"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddnsd_api_requests_total",
			Help: "Dashboard API requests by path and status code",
		},
		[]string{"path", "code"},
	)
)

// Register registers all metrics with the default Prometheus registry
func Register() {
	prometheus.MustRegister(
		CyclesTotal,
		DetectFailuresTotal,
		DetectDuration,
		ProviderUpdatesTotal,
		ProviderRetriesTotal,
		APIRequestsTotal,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
