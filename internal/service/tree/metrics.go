package tree

import (
	"time"

	"arbor/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records tree engine activity
type Metrics struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	subtreeSize  prometheus.Histogram
	cacheLookups *prometheus.CounterVec
}

// NewMetrics registers the engine collectors on reg. Tests pass a fresh
// prometheus.NewRegistry(); the server passes prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_tree_operations_total",
			Help: "Tree engine operations by outcome code",
		}, []string{"operation", "result"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arbor_tree_operation_duration_seconds",
			Help:    "Time to execute a tree engine operation",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),

		subtreeSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbor_tree_subtree_size",
			Help:    "Nodes returned or removed per subtree operation",
			Buckets: []float64{1, 10, 100, 1000, 10000},
		}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_tree_cache_lookups_total",
			Help: "Subtree cache lookups by result",
		}, []string{"result"}),
	}
}

// observe records one finished operation. It is deferred with a pointer to
// the named error result. Nil-safe so services may run without metrics.
func (m *Metrics) observe(operation string, start time.Time, errp *error) {
	if m == nil {
		return
	}
	result := "ok"
	if errp != nil && *errp != nil {
		result = string(domain.CodeOf(*errp))
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeSubtree(size int) {
	if m == nil {
		return
	}
	m.subtreeSize.Observe(float64(size))
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
