// Package observability collects Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the Prometheus registry and application metrics.
// All record methods are safe on a nil receiver so call sites never need
// to guard instrumentation.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	eventsPublished      *prometheus.CounterVec
	eventsDropped        prometheus.Counter
	handlerFailures      *prometheus.CounterVec
	notificationsCreated *prometheus.CounterVec
	notificationsSkipped *prometheus.CounterVec
	cacheHits            *prometheus.CounterVec
	cacheMisses          *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lumen_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	eventsPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_events_published_total",
		Help: "Domain events published by type.",
	}, []string{"type"})
	eventsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lumen_events_dropped_total",
		Help: "Domain events dropped because the bus queue was full.",
	})
	handlerFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_event_handler_failures_total",
		Help: "Event handler failures by event type.",
	}, []string{"type"})
	notificationsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_notifications_created_total",
		Help: "Notification rows created by kind.",
	}, []string{"kind"})
	notificationsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_notifications_skipped_total",
		Help: "Notification deliveries skipped by reason.",
	}, []string{"reason"})
	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_cache_hits_total",
		Help: "Cache hits by key prefix.",
	}, []string{"prefix"})
	cacheMisses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_cache_misses_total",
		Help: "Cache misses by key prefix.",
	}, []string{"prefix"})
	registry.MustRegister(requests, duration, eventsPublished, eventsDropped,
		handlerFailures, notificationsCreated, notificationsSkipped, cacheHits, cacheMisses)
	return &Metrics{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:        requests,
		requestDuration:      duration,
		eventsPublished:      eventsPublished,
		eventsDropped:        eventsDropped,
		handlerFailures:      handlerFailures,
		notificationsCreated: notificationsCreated,
		notificationsSkipped: notificationsSkipped,
		cacheHits:            cacheHits,
		cacheMisses:          cacheMisses,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// EventPublished counts a published domain event.
func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

// EventDropped counts an event dropped due to a full queue.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

// HandlerFailed counts a subscriber failure for an event type.
func (m *Metrics) HandlerFailed(eventType string) {
	if m == nil {
		return
	}
	m.handlerFailures.WithLabelValues(eventType).Inc()
}

// NotificationCreated counts a persisted notification.
func (m *Metrics) NotificationCreated(kind string) {
	if m == nil {
		return
	}
	m.notificationsCreated.WithLabelValues(kind).Inc()
}

// NotificationSkipped counts a skipped delivery (self-notification, missing recipient).
func (m *Metrics) NotificationSkipped(reason string) {
	if m == nil {
		return
	}
	m.notificationsSkipped.WithLabelValues(reason).Inc()
}

// CacheHit counts a cache hit for a key prefix.
func (m *Metrics) CacheHit(prefix string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(prefix).Inc()
}

// CacheMiss counts a cache miss for a key prefix.
func (m *Metrics) CacheMiss(prefix string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(prefix).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
