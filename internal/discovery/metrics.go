package discovery

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dbsmedya/godelegate/internal/types"
)

const metricsNamespace = "godelegate"

// Metrics records discovery counters. It implements source.Observer so the
// per-chain sources can report remote queries and cache hits directly.
type Metrics struct {
	remoteQueries     *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	chainFailures     *prometheus.CounterVec
	closureIterations *prometheus.CounterVec
	relations         *prometheus.GaugeVec
	changes           *prometheus.CounterVec
	runDuration       prometheus.Histogram
}

// NewMetrics registers the discovery metrics with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		remoteQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "remote_queries_total",
			Help:      "Remote queries issued by chain query sources.",
		}, []string{"chain", "source"}),
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_hits_total",
			Help:      "Controllers answered from a source cache.",
		}, []string{"chain", "source"}),
		chainFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "chain_failures_total",
			Help:      "Discovery runs in which a chain could not be checked.",
		}, []string{"chain"}),
		closureIterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "closure_iterations_total",
			Help:      "Closure search iterations per chain.",
		}, []string{"chain"}),
		relations: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "relations",
			Help:      "Relations found by the last successful search on a chain.",
		}, []string{"chain"}),
		changes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "changes_total",
			Help:      "Change set entries produced by reconciliation.",
		}, []string{"kind"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of complete discovery runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// RemoteQuery implements source.Observer.
func (m *Metrics) RemoteQuery(chain types.ChainID, source string) {
	m.remoteQueries.WithLabelValues(string(chain), source).Inc()
}

// CacheHits implements source.Observer.
func (m *Metrics) CacheHits(chain types.ChainID, source string, n int) {
	m.cacheHits.WithLabelValues(string(chain), source).Add(float64(n))
}

func (m *Metrics) chainFailed(chain types.ChainID) {
	m.chainFailures.WithLabelValues(string(chain)).Inc()
}

func (m *Metrics) chainSearched(chain types.ChainID, stats types.DiscoveryStats) {
	m.closureIterations.WithLabelValues(string(chain)).Add(float64(stats.Iterations))
	m.relations.WithLabelValues(string(chain)).Set(float64(stats.RelationsFound))
}

func (m *Metrics) runFinished(cs types.ChangeSet, d time.Duration) {
	m.changes.WithLabelValues("upsert").Add(float64(len(cs.Upserts)))
	m.changes.WithLabelValues("delete").Add(float64(len(cs.Deletions)))
	m.runDuration.Observe(d.Seconds())
}
