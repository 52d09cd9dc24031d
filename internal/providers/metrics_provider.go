package providers

import (
	"summard/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	ObserveRPC(method string, duration time.Duration, err error)
	ObserveAliasRefresh(duration time.Duration, missingFraction float64, fastPoll bool)
	AddAvailabilitySamples(n int)
	SetTrackedPeers(n int)
	ObserveLedgerFetch(class string, events int, err error)
	IncCursorResets(class string)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	rpcDuration         *prometheus.HistogramVec
	rpcErrors           *prometheus.CounterVec
	aliasRefresh        prometheus.Histogram
	aliasMissing        prometheus.Gauge
	aliasFastPoll       prometheus.Gauge
	availSamples        prometheus.Counter
	trackedPeers        prometheus.Gauge
	ledgerEvents        *prometheus.CounterVec
	ledgerErrors        *prometheus.CounterVec
	cursorResets        *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) ObserveRPC(method string, duration time.Duration, err error) {
	m.rpcDuration.WithLabelValues(method).Observe(duration.Seconds())
	if err != nil {
		m.rpcErrors.WithLabelValues(method).Inc()
	}
}

func (m *MetricsProvider) ObserveAliasRefresh(duration time.Duration, missingFraction float64, fastPoll bool) {
	m.aliasRefresh.Observe(duration.Seconds())
	m.aliasMissing.Set(missingFraction)
	if fastPoll {
		m.aliasFastPoll.Set(1)
	} else {
		m.aliasFastPoll.Set(0)
	}
}

func (m *MetricsProvider) AddAvailabilitySamples(n int) {
	m.availSamples.Add(float64(n))
}

func (m *MetricsProvider) SetTrackedPeers(n int) {
	m.trackedPeers.Set(float64(n))
}

func (m *MetricsProvider) ObserveLedgerFetch(class string, events int, err error) {
	if err != nil {
		m.ledgerErrors.WithLabelValues(class).Inc()
		return
	}
	m.ledgerEvents.WithLabelValues(class).Add(float64(events))
}

func (m *MetricsProvider) IncCursorResets(class string) {
	m.cursorResets.WithLabelValues(class).Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "summard_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "summard_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "summard_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "summard_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "summard_persistence_duration_seconds",
			Help:    "Duration of availability store writes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		rpcDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "summard_rpc_duration_seconds",
			Help:    "Duration of node RPC calls in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),

		rpcErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "summard_rpc_errors_total",
			Help: "Total number of failed node RPC calls",
		}, []string{"method"}),

		aliasRefresh: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "summard_alias_refresh_duration_seconds",
			Help:    "Duration of alias refresh passes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		aliasMissing: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "summard_alias_missing_ratio",
			Help: "Fraction of known peers without a resolved alias",
		}),

		aliasFastPoll: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "summard_alias_fast_poll",
			Help: "1 when alias refresh runs on the fast cadence",
		}),

		availSamples: promauto.NewCounter(prometheus.CounterOpts{
			Name: "summard_availability_samples_total",
			Help: "Total number of peer availability samples recorded",
		}),

		trackedPeers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "summard_availability_peers",
			Help: "Number of peers with an availability record",
		}),

		ledgerEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "summard_ledger_events_fetched_total",
			Help: "Total number of ledger events fetched per class",
		}, []string{"class"}),

		ledgerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "summard_ledger_fetch_errors_total",
			Help: "Total number of failed ledger fetches per class",
		}, []string{"class"}),

		cursorResets: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "summard_ledger_cursor_resets_total",
			Help: "Total number of forced full re-fetches per class",
		}, []string{"class"}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                       {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration)       {}
func (n *noopMetrics) IncCacheHits()                                          {}
func (n *noopMetrics) IncCacheMisses()                                        {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)             {}
func (n *noopMetrics) ObserveRPC(_ string, _ time.Duration, _ error)          {}
func (n *noopMetrics) ObserveAliasRefresh(_ time.Duration, _ float64, _ bool) {}
func (n *noopMetrics) AddAvailabilitySamples(_ int)                           {}
func (n *noopMetrics) SetTrackedPeers(_ int)                                  {}
func (n *noopMetrics) ObserveLedgerFetch(_ string, _ int, _ error)            {}
func (n *noopMetrics) IncCursorResets(_ string)                               {}
