package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
)

var (
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentmachine_provider_requests_total",
			Help: "Total number of hosted API calls by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentmachine_provider_duration_seconds",
			Help:    "Duration of hosted API calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service"},
	)

	ShapingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentmachine_topic_shaping_total",
			Help: "Topic lists produced, by shaping path (llm or fallback)",
		},
		[]string{"path"},
	)
)

// ObserveCall records one hosted API call. Use as:
//
//	defer metrics.ObserveCall("tavily", time.Now(), &err)
func ObserveCall(service string, start time.Time, errp *error) {
	outcome := "ok"
	if errp != nil && *errp != nil {
		switch {
		case errors.Is(*errp, apierr.ErrCredentialMissing):
			outcome = "unconfigured"
		case apierr.IsUpstream(*errp):
			outcome = "upstream_error"
		default:
			outcome = "error"
		}
	}
	ProviderRequestsTotal.WithLabelValues(service, outcome).Inc()
	ProviderDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

// RecordShaping counts a produced topic list by path.
func RecordShaping(path string) {
	ShapingTotal.WithLabelValues(path).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
