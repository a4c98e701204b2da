package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lp_report"

// Metrics agrupa los collectors del servicio. Todos los métodos aceptan
// receptor nil para que los componentes funcionen sin telemetría.
type Metrics struct {
	Registry *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	sheetFetch   *prometheus.HistogramVec
	cacheOps     *prometheus.CounterVec
	allocation   *prometheus.GaugeVec
	refreshes    *prometheus.CounterVec
	lastRefresh  prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		sheetFetch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sheet_fetch_duration_seconds",
			Help:      "Spreadsheet fetch latency by sheet and outcome.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"sheet", "outcome"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache operations by op and result.",
		}, []string{"op", "result"}),
		allocation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cost_allocation_records",
			Help:      "Records per allocation outcome in the last reconciliation.",
		}, []string{"kind"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Dataset refreshes by outcome.",
		}, []string{"outcome"}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration, m.sheetFetch, m.cacheOps, m.allocation, m.refreshes, m.lastRefresh,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) ObserveFetch(sheet string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.sheetFetch.WithLabelValues(sheet, outcome(err)).Observe(d.Seconds())
}

func (m *Metrics) CacheResult(op, result string) {
	if m == nil {
		return
	}
	m.cacheOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ObserveAllocation(direct, fallback, unallocated, excluded int) {
	if m == nil {
		return
	}
	m.allocation.WithLabelValues("direct").Set(float64(direct))
	m.allocation.WithLabelValues("fallback").Set(float64(fallback))
	m.allocation.WithLabelValues("unallocated").Set(float64(unallocated))
	m.allocation.WithLabelValues("excluded_cost_rows").Set(float64(excluded))
}

func (m *Metrics) ObserveRefresh(err error) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.lastRefresh.SetToCurrentTime()
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
