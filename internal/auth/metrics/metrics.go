// Package metrics defines the Prometheus metrics of the auth service. Every
// metric registers with the default registry on import and is served from
// /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "siteauth"

// LoginAttemptsTotal counts password logins.
// Label:
//   - result: "success", "two_factor_required" or "invalid_credentials"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of password login attempts, by result.",
	},
	[]string{"result"},
)

// TwoFactorVerificationsTotal counts second-factor checks.
// Labels:
//   - method: "totp" or "backup_code"
//   - result: "success", "invalid", "locked_out" or "error"
var TwoFactorVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "two_factor_verifications_total",
		Help:      "Total number of two-factor verifications, by method and result.",
	},
	[]string{"method", "result"},
)

// TokensIssuedTotal counts signed tokens.
// Label:
//   - type: "access", "refresh" or "pending"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of tokens issued, by type.",
	},
	[]string{"type"},
)

// RefreshTotal counts refresh exchanges.
// Label:
//   - result: "success", "invalid" or "reused"
var RefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Total number of refresh token exchanges, by result.",
	},
	[]string{"result"},
)

// BackupCodeConflictsTotal counts compare-and-swap retries while consuming
// backup codes.
var BackupCodeConflictsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backup_code_conflicts_total",
		Help:      "Total number of concurrent backup-code updates that had to be retried.",
	},
)

// HTTPRequestDuration measures handler latency.
// Labels:
//   - route: the matched ServeMux pattern, e.g. "POST /auth/login"
//   - status: response status code
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, by route and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route", "status"},
)

// Middleware records HTTPRequestDuration for every request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
