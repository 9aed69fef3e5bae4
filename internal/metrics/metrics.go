// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every collector so tests can use a private registry.
type Registry struct {
	gatherer   prometheus.Gatherer
	registerer prometheus.Registerer

	PartitionsTotal   *prometheus.CounterVec
	PartitionDuration prometheus.Histogram
	ChartSlices       *prometheus.GaugeVec
	CacheLookups      *prometheus.CounterVec
	LedgerMutations   *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Registry {
	r := &Registry{
		gatherer:   reg,
		registerer: reg,
		PartitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensepie_partitions_total",
				Help: "Pie chart partitions computed, by grouping and result",
			},
			[]string{"grouping", "result"},
		),
		PartitionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "expensepie_partition_duration_seconds",
				Help:    "Time spent building a chart breakdown",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
		),
		ChartSlices: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "expensepie_chart_slices",
				Help: "Number of slices in the most recent chart, by grouping",
			},
			[]string{"grouping"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensepie_chart_cache_lookups_total",
				Help: "Chart cache lookups by result (hit or miss)",
			},
			[]string{"result"},
		),
		LedgerMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensepie_ledger_mutations_total",
				Help: "Successful ledger mutations by entity and operation",
			},
			[]string{"entity", "operation"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensepie_events_published_total",
				Help: "Ledger events handed to the message broker, by result",
			},
			[]string{"result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensepie_http_requests_total",
				Help: "HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "expensepie_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		r.PartitionsTotal,
		r.PartitionDuration,
		r.ChartSlices,
		r.CacheLookups,
		r.LedgerMutations,
		r.EventsPublished,
		r.HTTPRequests,
		r.HTTPDuration,
	)
	return r
}

// NewDefault registers on a fresh registry that also carries the Go and
// process collectors.
func NewDefault() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(reg)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// EdgeStats reads the counters kept by the HTTP middleware.
type EdgeStats struct {
	Suspicious    func() int64
	RateLimited   func() int64
	ActiveClients func() int
}

// RegisterEdge exports the middleware counters, read at scrape time.
func (r *Registry) RegisterEdge(stats EdgeStats) error {
	if r == nil {
		return nil
	}
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "expensepie_http_suspicious_requests_total",
			Help: "Requests matching scanner or probe patterns",
		}, func() float64 { return float64(stats.Suspicious()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "expensepie_http_rate_limited_total",
			Help: "Mutating requests rejected by the per-client rate limiter",
		}, func() float64 { return float64(stats.RateLimited()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "expensepie_http_rate_limit_clients",
			Help: "Clients currently tracked by the rate limiter",
		}, func() float64 { return float64(stats.ActiveClients()) }),
	}
	for _, c := range collectors {
		if err := r.registerer.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveHTTP records one served request.
func (r *Registry) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObservePartition records one chart computation.
func (r *Registry) ObservePartition(grouping string, slices int, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.PartitionsTotal.WithLabelValues(grouping, result).Inc()
	r.PartitionDuration.Observe(elapsed.Seconds())
	if err == nil {
		r.ChartSlices.WithLabelValues(grouping).Set(float64(slices))
	}
}

// ObserveCache records a chart cache lookup.
func (r *Registry) ObserveCache(hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	r.CacheLookups.WithLabelValues("miss").Inc()
}

// ObserveMutation records a successful ledger change.
func (r *Registry) ObserveMutation(entity, operation string) {
	if r == nil {
		return
	}
	r.LedgerMutations.WithLabelValues(entity, operation).Inc()
}

// ObservePublish records the outcome of publishing a ledger event.
func (r *Registry) ObservePublish(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.EventsPublished.WithLabelValues("error").Inc()
		return
	}
	r.EventsPublished.WithLabelValues("ok").Inc()
}
