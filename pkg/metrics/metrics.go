// Package metrics holds the Prometheus collectors exported by the fleet
// registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// mutationsTotal counts registry writes by entity kind, operation and result.
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_registry_mutations_total",
		Help: "Registry mutations by entity kind, operation and result",
	}, []string{"kind", "operation", "result"})

	// invariantRejections counts writes refused by the consistency checks.
	invariantRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_registry_invariant_rejections_total",
		Help: "Writes rejected by a consistency rule",
	}, []string{"rule"})

	// blockedDeletions counts deletions refused because of dependents.
	blockedDeletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_registry_blocked_deletions_total",
		Help: "Deletions blocked by dependent rows",
	}, []string{"kind"})

	// statusEvaluations counts sensor configuration evaluations by outcome.
	statusEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_registry_status_evaluations_total",
		Help: "Sensor configuration evaluations by outcome",
	}, []string{"outcome"})

	importJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_registry_import_jobs_total",
		Help: "Finished import job attempts by outcome",
	}, []string{"outcome"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleet_registry_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern, method and status code",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"route", "method", "code"})
)

// Mutation records one registry write. result is "ok" or an error class.
func Mutation(kind, operation, result string) {
	mutationsTotal.WithLabelValues(kind, operation, result).Inc()
}

// Rejection records a write refused by rule.
func Rejection(rule string) {
	invariantRejections.WithLabelValues(rule).Inc()
}

// BlockedDeletion records a deletion refused because of dependents.
func BlockedDeletion(kind string) {
	blockedDeletions.WithLabelValues(kind).Inc()
}

// StatusEvaluation records whether an evaluated vessel met all requirements.
func StatusEvaluation(met bool) {
	outcome := "unmet"
	if met {
		outcome = "met"
	}
	statusEvaluations.WithLabelValues(outcome).Inc()
}

// ImportJob records the outcome of one import attempt: succeeded, retried or
// failed.
func ImportJob(outcome string) {
	importJobs.WithLabelValues(outcome).Inc()
}

// Middleware observes request latency labelled by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
