package service

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enrollment outcomes recorded by RecordEnrollmentOutcome.
const (
	OutcomeSuccess          = "success"
	OutcomeIllegalAdd       = "illegal_add"
	OutcomeCapacityExceeded = "capacity_exceeded"
	OutcomeNotFound         = "not_found"
	OutcomeError            = "error"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	enrollments     *prometheus.CounterVec
	seatsAvailable  *prometheus.GaugeVec
	eventsPublished *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	enrollments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "course_enrollment_operations_total",
		Help: "Enrollment and waiting list operations by outcome",
	}, []string{"operation", "outcome"})

	seatsAvailable := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "course_seats_available",
		Help: "Open seats per course in the default semester",
	}, []string{"course_id", "semester"})

	eventsPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "course_events_published_total",
		Help: "Domain events handed to the broker by result",
	}, []string{"type", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses, enrollments, seatsAvailable, eventsPublished, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		enrollments:     enrollments,
		seatsAvailable:  seatsAvailable,
		eventsPublished: eventsPublished,
	}
}

// Registry exposes the underlying registry for tests and collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordEnrollmentOutcome counts an enroll, withdraw or waiting list attempt.
func (m *MetricsService) RecordEnrollmentOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(operation, outcome).Inc()
}

// SetSeatsAvailable publishes the open seat count of one course.
func (m *MetricsService) SetSeatsAvailable(courseID int64, semester string, seats int) {
	if m == nil {
		return
	}
	m.seatsAvailable.WithLabelValues(strconv.FormatInt(courseID, 10), semester).Set(float64(seats))
}

// ResetSeats clears seat gauges so deleted courses disappear from the next snapshot.
func (m *MetricsService) ResetSeats() {
	if m == nil {
		return
	}
	m.seatsAvailable.Reset()
}

// RecordEventPublish counts a broker publish attempt.
func (m *MetricsService) RecordEventPublish(eventType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.eventsPublished.WithLabelValues(eventType, result).Inc()
}
