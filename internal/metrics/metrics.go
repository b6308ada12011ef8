// metrics содержит прикладные метрики Prometheus blog-service.
// Экспонируются на отдельном ops-листенере через promhttp.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "blog"

// Metrics — набор коллекторов сервиса.
type Metrics struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	cleanupFailures *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg.
// nil reg — коллекторы не регистрируются (удобно в тестах сервиса).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cleanupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_cleanup_failures_total",
			Help:      "Best-effort blob deletions that failed and left an orphan object.",
		}, []string{"op"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.cleanupFailures)
	}

	return m
}

// ObserveRequest учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}

	if route == "" {
		route = "unmatched"
	}

	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// BlobCleanupFailed учитывает неудачное удаление объекта; op — операция-источник.
func (m *Metrics) BlobCleanupFailed(op string) {
	if m == nil {
		return
	}

	m.cleanupFailures.WithLabelValues(op).Inc()
}

// BlobCleanupFailuresCounter возвращает счётчик для op (для проверок в тестах).
func (m *Metrics) BlobCleanupFailuresCounter(op string) prometheus.Counter {
	return m.cleanupFailures.WithLabelValues(op)
}
