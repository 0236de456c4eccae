package metrics

import "time"

// CoreMetrics is the metrics surface for the object cache core: ODE
// lifecycle, VC read/write activity, and the range engine. A nil
// CoreMetrics is always safe to call -- every method no-ops -- so callers
// can wire metrics.NewCoreMetrics() straight into a Registry/Driver without
// a nil check at the call site.
type CoreMetrics interface {
	ObserveRead(bytes int64, duration time.Duration, hit bool)
	ObserveWrite(bytes int64, duration time.Duration)
	RecordActiveODEs(count int)
	RecordWaiters(count int)
	RecordHullBytes(bytes int64)
	RecordRangeRequest(kind string)
	RecordEviction(reason string)
}

// NewCoreMetrics creates a new Prometheus-backed CoreMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). A nil
// result can be assigned as is to the Metrics field of ode.Registry,
// vc.ReadVC and vc.WriteVC, where every call on it is a no-op.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	coreMetrics := metrics.NewCoreMetrics()
//	reg := ode.NewRegistry(shardCount, maxWriters)
//	reg.Metrics = coreMetrics
func NewCoreMetrics() CoreMetrics {
	if !IsEnabled() {
		return nil
	}

	return newPrometheusCoreMetrics()
}

// newPrometheusCoreMetrics is set by pkg/metrics/prometheus/cache.go's
// init(). The indirection avoids an import cycle between this package and
// the Prometheus implementation while keeping the public API here.
var newPrometheusCoreMetrics func() CoreMetrics

// RegisterCoreMetricsConstructor registers the Prometheus core metrics
// constructor. Called by pkg/metrics/prometheus/cache.go during package
// initialization.
func RegisterCoreMetricsConstructor(constructor func() CoreMetrics) {
	newPrometheusCoreMetrics = constructor
}

// ObserveRead records a fragment read served off an alternate slice.
//
//	start := time.Now()
//	n, err := vol.Read(ctx, key, buf)
//	metrics.ObserveRead(m, int64(n), time.Since(start), err == nil)
func ObserveRead(m CoreMetrics, bytes int64, duration time.Duration, hit bool) {
	if m != nil {
		m.ObserveRead(bytes, duration, hit)
	}
}

// ObserveWrite records a fragment write completed by a WriteVC.
func ObserveWrite(m CoreMetrics, bytes int64, duration time.Duration) {
	if m != nil {
		m.ObserveWrite(bytes, duration)
	}
}

// RecordActiveODEs records the number of currently-open Open-Directory
// Entries across all registry shards.
func RecordActiveODEs(m CoreMetrics, count int) {
	if m != nil {
		m.RecordActiveODEs(count)
	}
}

// RecordWaiters records the number of continuations currently parked on
// Entry.OpenWaiting across all shards.
func RecordWaiters(m CoreMetrics, count int) {
	if m != nil {
		m.RecordWaiters(count)
	}
}

// RecordHullBytes records bytes fetched upstream to fill an uncached hull
// rather than served from an already-cached fragment.
func RecordHullBytes(m CoreMetrics, bytes int64) {
	if m != nil {
		m.RecordHullBytes(bytes)
	}
}

// RecordRangeRequest records one resolved Range request by its resulting
// shape: "empty", "single", or "multi".
func RecordRangeRequest(m CoreMetrics, kind string) {
	if m != nil {
		m.RecordRangeRequest(kind)
	}
}

// RecordEviction records an alternate slice or side-buffer entry being
// evicted. reason is one of "generation_stale", "side_buffer_full",
// "explicit".
func RecordEviction(m CoreMetrics, reason string) {
	if m != nil {
		m.RecordEviction(reason)
	}
}
