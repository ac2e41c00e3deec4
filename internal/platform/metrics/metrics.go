package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "purapata"

// Metrics agrupa los collectors de la API.
// Todos los métodos aceptan receiver nil (tests sin métricas).
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	dogsCreatedTotal       prometheus.Counter
	dogsDeletedTotal       prometheus.Counter
	statusTransitionsTotal *prometheus.CounterVec

	uploadsTotal      *prometheus.CounterVec
	filesCleanupTotal *prometheus.CounterVec
}

// New crea un registry propio y registra todos los collectors.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}
	m.initMetrics()

	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dogsCreatedTotal,
		m.dogsDeletedTotal,
		m.statusTransitionsTotal,
		m.uploadsTotal,
		m.filesCleanupTotal,
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.dogsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dogs_created_total",
		Help:      "Total number of dog listings created",
	})

	m.dogsDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dogs_deleted_total",
		Help:      "Total number of dog listings deleted",
	})

	m.statusTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dog_status_transitions_total",
			Help:      "Total number of dog status changes",
		},
		[]string{"from", "to"},
	)

	m.uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of uploaded files",
		},
		[]string{"kind", "result"}, // kind: photo, certificate
	)

	m.filesCleanupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_cleanup_total",
			Help:      "Total number of stored files removed",
		},
		[]string{"result"},
	)
}

// Handler expone /metrics sobre el registry propio.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) DogCreated() {
	if m == nil {
		return
	}
	m.dogsCreatedTotal.Inc()
}

func (m *Metrics) DogDeleted() {
	if m == nil {
		return
	}
	m.dogsDeletedTotal.Inc()
}

func (m *Metrics) StatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *Metrics) Upload(kind string, ok bool) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(kind, result(ok)).Inc()
}

func (m *Metrics) FilesCleaned(ok bool, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.filesCleanupTotal.WithLabelValues(result(ok)).Add(float64(n))
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
