package nvp

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports a Directory's cache and heap statistics as Prometheus
// metrics. Register it with a prometheus.Registerer.
type Collector struct {
	d *Directory

	cacheEntries   *prometheus.Desc
	chunksTotal    *prometheus.Desc
	chunksUsed     *prometheus.Desc
	largestFreeRun *prometheus.Desc
	allocs         *prometheus.Desc
	frees          *prometheus.Desc
	allocFailures  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for d.
func NewCollector(d *Directory) *Collector {
	heapLabels := []string{"heap"}
	return &Collector{
		d: d,
		cacheEntries: prometheus.NewDesc(
			"nvp_cache_entries",
			"Number of regions currently mapped and cached.",
			nil, nil,
		),
		chunksTotal: prometheus.NewDesc(
			"nvp_heap_chunks_total",
			"Number of chunks in the heap.",
			heapLabels, nil,
		),
		chunksUsed: prometheus.NewDesc(
			"nvp_heap_chunks_used",
			"Number of allocated chunks in the heap.",
			heapLabels, nil,
		),
		largestFreeRun: prometheus.NewDesc(
			"nvp_heap_largest_free_run_chunks",
			"Length of the longest run of free chunks.",
			heapLabels, nil,
		),
		allocs: prometheus.NewDesc(
			"nvp_heap_allocs_total",
			"Successful allocations since the heap was opened.",
			heapLabels, nil,
		),
		frees: prometheus.NewDesc(
			"nvp_heap_frees_total",
			"Successful frees since the heap was opened.",
			heapLabels, nil,
		),
		allocFailures: prometheus.NewDesc(
			"nvp_heap_alloc_failures_total",
			"Allocations that found no fitting run of free chunks.",
			heapLabels, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheEntries
	ch <- c.chunksTotal
	ch <- c.chunksUsed
	ch <- c.largestFreeRun
	ch <- c.allocs
	ch <- c.frees
	ch <- c.allocFailures
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.cacheEntries, prometheus.GaugeValue, float64(c.d.CachedRegions()))

	for _, s := range c.d.Stats() {
		id := strconv.FormatUint(uint64(s.ID), 10)
		ch <- prometheus.MustNewConstMetric(c.chunksTotal, prometheus.GaugeValue, float64(s.TotalChunks), id)
		ch <- prometheus.MustNewConstMetric(c.chunksUsed, prometheus.GaugeValue, float64(s.UsedChunks), id)
		ch <- prometheus.MustNewConstMetric(c.largestFreeRun, prometheus.GaugeValue, float64(s.LargestFreeRun), id)
		ch <- prometheus.MustNewConstMetric(c.allocs, prometheus.CounterValue, float64(s.Allocs), id)
		ch <- prometheus.MustNewConstMetric(c.frees, prometheus.CounterValue, float64(s.Frees), id)
		ch <- prometheus.MustNewConstMetric(c.allocFailures, prometheus.CounterValue, float64(s.Failures), id)
	}
}
