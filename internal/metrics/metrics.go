// Package metrics holds the portal's Prometheus collectors.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Results used as label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics owns a registry and the collectors registered on it. All methods
// are safe on a nil *Metrics.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	otpRequests     *prometheus.CounterVec
	onboarding      *prometheus.CounterVec
	resumeUploads   *prometheus.CounterVec
	adminLogins     *prometheus.CounterVec
	gatewaySwitches prometheus.Counter
}

// New creates the collectors under namespace on a fresh registry, together
// with the process and Go runtime collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "portal"
	}
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "path"}),

		otpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_requests_total",
			Help:      "OTP send and verify calls by outcome.",
		}, []string{"action", "result"}),
		onboarding: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "onboarding_submissions_total",
			Help:      "Onboarding submissions by outcome.",
		}, []string{"result"}),
		resumeUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resume_uploads_total",
			Help:      "Resume uploads by outcome.",
		}, []string{"result"}),
		adminLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_logins_total",
			Help:      "Admin login attempts by outcome.",
		}, []string{"result"}),
		gatewaySwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_switches_total",
			Help:      "Changes of the active payment gateway.",
		}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.otpRequests,
		m.onboarding,
		m.resumeUploads,
		m.adminLogins,
		m.gatewaySwitches,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncrementInFlight() {
	if m != nil {
		m.httpInFlight.Inc()
	}
}

func (m *Metrics) DecrementInFlight() {
	if m != nil {
		m.httpInFlight.Dec()
	}
}

// RecordHTTPRequest records one handled request. path should be a route
// template, not the raw URL.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	method = strings.ToUpper(method)
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOTP counts an OTP action ("send" or "verify").
func (m *Metrics) RecordOTP(action string, err error) {
	if m != nil {
		m.otpRequests.WithLabelValues(action, Result(err)).Inc()
	}
}

func (m *Metrics) RecordOnboarding(err error) {
	if m != nil {
		m.onboarding.WithLabelValues(Result(err)).Inc()
	}
}

func (m *Metrics) RecordResumeUpload(err error) {
	if m != nil {
		m.resumeUploads.WithLabelValues(Result(err)).Inc()
	}
}

func (m *Metrics) RecordAdminLogin(err error) {
	if m != nil {
		m.adminLogins.WithLabelValues(Result(err)).Inc()
	}
}

func (m *Metrics) RecordGatewaySwitch() {
	if m != nil {
		m.gatewaySwitches.Inc()
	}
}

// Result maps err to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
