package metrics

import (
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource yields Pebble metrics on demand.
type StatsSource interface {
	Stats() *pebble.Metrics
}

// PebbleCollector reads Pebble's counters at scrape time.
type PebbleCollector struct {
	src StatsSource

	compactionCount *prometheus.Desc
	compactionDebt  *prometheus.Desc
	memtableSize    *prometheus.Desc
	memtableCount   *prometheus.Desc
	walSize         *prometheus.Desc
	walBytesWritten *prometheus.Desc
	diskSpaceUsage  *prometheus.Desc
}

func NewPebbleCollector(src StatsSource) *PebbleCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(namespace+"_pebble_"+name, help, nil, nil)
	}
	return &PebbleCollector{
		src:             src,
		compactionCount: desc("compaction_count_total", "Total number of compactions performed"),
		compactionDebt:  desc("compaction_estimated_debt_bytes", "Estimated bytes that need compacting to reach a stable state"),
		memtableSize:    desc("memtable_size_bytes", "Bytes allocated by memtables"),
		memtableCount:   desc("memtable_count", "Number of memtables"),
		walSize:         desc("wal_size_bytes", "Size of live WAL data"),
		walBytesWritten: desc("wal_bytes_written_total", "Physical bytes written to the WAL"),
		diskSpaceUsage:  desc("disk_space_usage_bytes", "Total disk space used by the store"),
	}
}

func (c *PebbleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.compactionCount
	ch <- c.compactionDebt
	ch <- c.memtableSize
	ch <- c.memtableCount
	ch <- c.walSize
	ch <- c.walBytesWritten
	ch <- c.diskSpaceUsage
}

func (c *PebbleCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.src.Stats()
	if m == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.compactionCount, prometheus.CounterValue, float64(m.Compact.Count))
	ch <- prometheus.MustNewConstMetric(c.compactionDebt, prometheus.GaugeValue, float64(m.Compact.EstimatedDebt))
	ch <- prometheus.MustNewConstMetric(c.memtableSize, prometheus.GaugeValue, float64(m.MemTable.Size))
	ch <- prometheus.MustNewConstMetric(c.memtableCount, prometheus.GaugeValue, float64(m.MemTable.Count))
	ch <- prometheus.MustNewConstMetric(c.walSize, prometheus.GaugeValue, float64(m.WAL.Size))
	ch <- prometheus.MustNewConstMetric(c.walBytesWritten, prometheus.CounterValue, float64(m.WAL.BytesWritten))
	ch <- prometheus.MustNewConstMetric(c.diskSpaceUsage, prometheus.GaugeValue, float64(m.DiskSpaceUsage()))
}
