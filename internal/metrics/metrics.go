package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "feedstore"

// Metrics holds every collector registered by New.
type Metrics struct {
	storageWrites  prometheus.Histogram
	storageReads   prometheus.Histogram
	batchCommits   prometheus.Histogram
	batchOps       prometheus.Counter
	storageBytes   *prometheus.CounterVec
	openFeeds      prometheus.Gauge
	feedsCreated   *prometheus.CounterVec
	aliasLookups   *prometheus.CounterVec
	feedsDeleted   prometheus.Counter
	pendingHandles prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests usually want.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		storageWrites: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "write_seconds",
			Help:      "Latency of single key writes.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		storageReads: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "read_seconds",
			Help:      "Latency of point reads.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		batchCommits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_commit_seconds",
			Help:      "Latency of batch commits.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		batchOps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_ops_total",
			Help:      "Operations committed through batches.",
		}),
		storageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "bytes_total",
			Help:      "Bytes moved by the storage layer.",
		}, []string{"direction"}),
		openFeeds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "open_feeds",
			Help:      "Feed handles currently held open by the registry.",
		}),
		feedsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "feeds_created_total",
			Help:      "Feeds created, by origin.",
		}, []string{"origin"}),
		aliasLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "alias_lookups_total",
			Help:      "Alias index lookups, by relation and result.",
		}, []string{"relation", "result"}),
		feedsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "feeds_deleted_total",
			Help:      "Feeds whose storage and aliases were erased.",
		}),
		pendingHandles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "pending_handles",
			Help:      "Handles waiting on local name resolution.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.storageWrites, m.storageReads, m.batchCommits, m.batchOps, m.storageBytes,
		m.openFeeds, m.feedsCreated, m.aliasLookups, m.feedsDeleted, m.pendingHandles,
	}
}

func (m *Metrics) ObserveWrite(elapsed time.Duration, bytes int) {
	if m == nil {
		return
	}
	m.storageWrites.Observe(elapsed.Seconds())
	m.storageBytes.WithLabelValues("write").Add(float64(bytes))
}

func (m *Metrics) ObserveRead(elapsed time.Duration, bytes int) {
	if m == nil {
		return
	}
	m.storageReads.Observe(elapsed.Seconds())
	m.storageBytes.WithLabelValues("read").Add(float64(bytes))
}

func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	if m == nil {
		return
	}
	m.batchCommits.Observe(elapsed.Seconds())
	m.batchOps.Add(float64(numOps))
	m.storageBytes.WithLabelValues("batch").Add(float64(bytes))
}

// FeedOpened and FeedClosed track the open handle gauge.
func (m *Metrics) FeedOpened() {
	if m != nil {
		m.openFeeds.Inc()
	}
}

func (m *Metrics) FeedClosed() {
	if m != nil {
		m.openFeeds.Dec()
	}
}

// FeedCreated counts a creation; origin is "local" or "remote".
func (m *Metrics) FeedCreated(origin string) {
	if m != nil {
		m.feedsCreated.WithLabelValues(origin).Inc()
	}
}

func (m *Metrics) FeedDeleted() {
	if m != nil {
		m.feedsDeleted.Inc()
	}
}

// AliasLookup counts a lookup against relation ("discovery", "name", "exists").
func (m *Metrics) AliasLookup(relation string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.aliasLookups.WithLabelValues(relation, result).Inc()
}

func (m *Metrics) PendingAdded() {
	if m != nil {
		m.pendingHandles.Inc()
	}
}

func (m *Metrics) PendingSettled() {
	if m != nil {
		m.pendingHandles.Dec()
	}
}
