package prometheus

import (
	"time"

	"github.com/marmos91/cachecore/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// coreMetrics is the Prometheus implementation of metrics.CoreMetrics.
type coreMetrics struct {
	readOperations  *prometheus.CounterVec
	readDuration    *prometheus.HistogramVec
	readBytes       *prometheus.HistogramVec
	writeOperations prometheus.Counter
	writeDuration   prometheus.Histogram
	writeBytes      prometheus.Histogram
	activeODEs      prometheus.Gauge
	waiters         prometheus.Gauge
	hullBytes       prometheus.Counter
	rangeRequests   *prometheus.CounterVec
	evictions       *prometheus.CounterVec
}

func init() {
	metrics.RegisterCoreMetricsConstructor(NewCoreMetrics)
}

// NewCoreMetrics creates a new Prometheus-backed CoreMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewCoreMetrics() metrics.CoreMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &coreMetrics{
		readOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachecore_read_operations_total",
				Help: "Total number of fragment read operations by outcome",
			},
			[]string{"status"}, // status: "hit", "miss"
		),
		readDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "cachecore_read_duration_milliseconds",
				Help: "Duration of fragment read operations in milliseconds",
				Buckets: []float64{
					0.1,  // 100us - cache hits
					0.5,  // 500us
					1,    // 1ms
					5,    // 5ms
					10,   // 10ms
					50,   // 50ms
					100,  // 100ms
					500,  // 500ms
					1000, // 1s
				},
			},
			[]string{"status"},
		),
		readBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "cachecore_read_bytes",
				Help: "Distribution of bytes shipped per fragment read",
				Buckets: []float64{
					4096,     // 4KB
					32768,    // 32KB
					131072,   // 128KB
					524288,   // 512KB
					1048576,  // 1MB
					4194304,  // 4MB
					10485760, // 10MB
				},
			},
			[]string{"status"},
		),
		writeOperations: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cachecore_write_operations_total",
				Help: "Total number of fragment write operations",
			},
		),
		writeDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "cachecore_write_duration_milliseconds",
				Help: "Duration of fragment write operations in milliseconds",
				Buckets: []float64{
					0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000,
				},
			},
		),
		writeBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "cachecore_write_bytes",
				Help: "Distribution of bytes landed per fragment write",
				Buckets: []float64{
					4096, 32768, 131072, 524288, 1048576, 4194304, 10485760,
				},
			},
		),
		activeODEs: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "cachecore_active_odes",
				Help: "Current number of open Open-Directory Entries across all registry shards",
			},
		),
		waiters: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "cachecore_waiting_continuations",
				Help: "Current number of VCs parked on an in-flight alternate-vector update",
			},
		),
		hullBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cachecore_hull_bytes_total",
				Help: "Total bytes fetched upstream to fill an uncached hull",
			},
		),
		rangeRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachecore_range_requests_total",
				Help: "Total number of resolved Range requests by shape",
			},
			[]string{"kind"}, // "empty", "single", "multi"
		),
		evictions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachecore_evictions_total",
				Help: "Total number of alternate slice or side-buffer evictions by reason",
			},
			[]string{"reason"},
		),
	}
}

func (m *coreMetrics) ObserveRead(bytes int64, duration time.Duration, hit bool) {
	if m == nil {
		return
	}

	status := "hit"
	if !hit {
		status = "miss"
	}

	m.readOperations.WithLabelValues(status).Inc()
	m.readDuration.WithLabelValues(status).Observe(duration.Seconds() * 1000)

	if bytes > 0 {
		m.readBytes.WithLabelValues(status).Observe(float64(bytes))
	}
}

func (m *coreMetrics) ObserveWrite(bytes int64, duration time.Duration) {
	if m == nil {
		return
	}

	m.writeOperations.Inc()
	m.writeDuration.Observe(duration.Seconds() * 1000)

	if bytes > 0 {
		m.writeBytes.Observe(float64(bytes))
	}
}

func (m *coreMetrics) RecordActiveODEs(count int) {
	if m == nil {
		return
	}
	m.activeODEs.Set(float64(count))
}

func (m *coreMetrics) RecordWaiters(count int) {
	if m == nil {
		return
	}
	m.waiters.Set(float64(count))
}

func (m *coreMetrics) RecordHullBytes(bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.hullBytes.Add(float64(bytes))
}

func (m *coreMetrics) RecordRangeRequest(kind string) {
	if m == nil {
		return
	}
	m.rangeRequests.WithLabelValues(kind).Inc()
}

func (m *coreMetrics) RecordEviction(reason string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(reason).Inc()
}
