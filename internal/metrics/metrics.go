// Package metrics holds the Prometheus collectors of the service. They live in
// a standalone package so the oauth, credential and http packages can record
// without importing each other.
package metrics

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_provider_requests_total",
		Help: "Calls to provider token and profile endpoints by outcome",
	}, []string{"platform", "op", "outcome"}) // outcome: ok|rejected|unavailable|invalid|degraded

	ProviderLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oauth_provider_request_duration_seconds",
		Help:    "Latency of provider token and profile endpoints",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"platform", "op"})

	RefreshShared = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_refresh_shared_total",
		Help: "Refresh callers that waited on an in-flight refresh instead of issuing their own",
	}, []string{"platform"})

	CredentialTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_credential_transitions_total",
		Help: "Credential status transitions driven by the manager",
	}, []string{"platform", "to"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests processed",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	HTTPInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests currently being served",
	})
)

// ObserveProvider records one provider call.
func ObserveProvider(platform, op, outcome string, elapsed time.Duration) {
	ProviderRequests.WithLabelValues(platform, op, outcome).Inc()
	ProviderLatency.WithLabelValues(platform, op).Observe(elapsed.Seconds())
}

// Register registers every collector on reg (default registry when nil).
// A non-nil pool also exposes its connection gauges.
func Register(reg prometheus.Registerer, pool *pgxpool.Pool) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		ProviderRequests, ProviderLatency, RefreshShared, CredentialTransitions,
		HTTPRequests, HTTPDuration, HTTPInflight,
	}
	if pool != nil {
		collectors = append(collectors, newPoolCollector(pool))
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// poolCollector exposes pgxpool connection counts of the credential store.
type poolCollector struct {
	pool         *pgxpool.Pool
	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

func newPoolCollector(pool *pgxpool.Pool) *poolCollector {
	return &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("credential_store_pg_acquired", "Acquired connections", nil, nil),
		idleDesc:     prometheus.NewDesc("credential_store_pg_idle", "Idle connections", nil, nil),
		totalDesc:    prometheus.NewDesc("credential_store_pg_total", "Total connections", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(stat.TotalConns()))
}
