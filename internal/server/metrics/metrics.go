// Package metrics exposes Prometheus counters for authentication events and
// the HTTP handler that serves them.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultSuccess            = "success"
	ResultValidation         = "validation"
	ResultInvalidCredentials = "invalid_credentials"
	ResultAccountDisabled    = "account_disabled"
	ResultDuplicate          = "duplicate"
	ResultWeakCredential     = "weak_credential"
	ResultInvalidToken       = "invalid_token"
	ResultError              = "error"
)

// Metrics owns its registry so several instances can live in one process
// (tests). All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	registrations *prometheus.CounterVec
	logins        *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	logouts       prometheus.Counter
	reuseDetected prometheus.Counter
	rpcDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_registrations_total",
			Help: "Registration attempts by result.",
		}, []string{"result"}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gophauth_refreshes_total",
			Help: "Refresh attempts by result.",
		}, []string{"result"}),
		logouts: f.NewCounter(prometheus.CounterOpts{
			Name: "gophauth_logouts_total",
			Help: "Completed logouts.",
		}),
		reuseDetected: f.NewCounter(prometheus.CounterOpts{
			Name: "gophauth_refresh_reuse_detected_total",
			Help: "Rotated refresh tokens presented again.",
		}),
		rpcDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gophauth_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
}

// Result maps a service error to a bounded label value.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, common.ErrValidation):
		return ResultValidation
	case errors.Is(err, common.ErrInvalidCredentials):
		return ResultInvalidCredentials
	case errors.Is(err, common.ErrAccountDisabled):
		return ResultAccountDisabled
	case errors.Is(err, common.ErrDuplicateEmail), errors.Is(err, common.ErrDuplicateUsername):
		return ResultDuplicate
	case errors.Is(err, common.ErrWeakCredential):
		return ResultWeakCredential
	case common.IsTokenError(err):
		return ResultInvalidToken
	default:
		return ResultError
	}
}

func (m *Metrics) Registration(err error) {
	if m != nil {
		m.registrations.WithLabelValues(Result(err)).Inc()
	}
}

func (m *Metrics) Login(err error) {
	if m != nil {
		m.logins.WithLabelValues(Result(err)).Inc()
	}
}

func (m *Metrics) Refresh(err error) {
	if m != nil {
		m.refreshes.WithLabelValues(Result(err)).Inc()
	}
}

func (m *Metrics) Logout() {
	if m != nil {
		m.logouts.Inc()
	}
}

func (m *Metrics) ReuseDetected() {
	if m != nil {
		m.reuseDetected.Inc()
	}
}

func (m *Metrics) ObserveRPC(method, code string, d time.Duration) {
	if m != nil {
		m.rpcDuration.WithLabelValues(method, code).Observe(d.Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
