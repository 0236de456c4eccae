package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys attached to cache-core spans. These follow OpenTelemetry
// semantic conventions where applicable; the rest are specific to the
// object/fragment/alternate model the core operates on.
const (
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	AttrObjectKey    = "cache.object_key"
	AttrFragmentKey  = "cache.fragment_key"
	AttrFragmentIdx  = "cache.fragment_index"
	AttrAltGroup     = "cache.alt_group"
	AttrGeneration   = "cache.generation"
	AttrVCState      = "cache.vc_state"
	AttrRangeKind    = "cache.range_kind" // empty, single, multi
	AttrBytesShipped = "cache.bytes_shipped"
	AttrCacheHit     = "cache.hit"
	AttrHullBytes    = "cache.hull_bytes"
)

// ClientIP returns a span attribute for the originating client's IP address.
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns a span attribute for the originating client's full address.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// ObjectKey returns a span attribute for a cache object's hex-prefixed key.
func ObjectKey(key string) attribute.KeyValue {
	return attribute.String(AttrObjectKey, key)
}

// FragmentKey returns a span attribute for a fragment's hex-prefixed key.
func FragmentKey(key string) attribute.KeyValue {
	return attribute.String(AttrFragmentKey, key)
}

// FragmentIndex returns a span attribute for a fragment's position within its slice.
func FragmentIndex(idx int) attribute.KeyValue {
	return attribute.Int(AttrFragmentIdx, idx)
}

// AltGroup returns a span attribute for the selected alternate group index.
func AltGroup(idx int) attribute.KeyValue {
	return attribute.Int(AttrAltGroup, idx)
}

// Generation returns a span attribute for a slice's generation counter.
func Generation(gen int) attribute.KeyValue {
	return attribute.Int(AttrGeneration, gen)
}

// VCState returns a span attribute naming the read or write VC's current state.
func VCState(state string) attribute.KeyValue {
	return attribute.String(AttrVCState, state)
}

// RangeKind returns a span attribute for a resolved Range request's shape.
func RangeKind(kind string) attribute.KeyValue {
	return attribute.String(AttrRangeKind, kind)
}

// BytesShipped returns a span attribute for the number of bytes written to
// the response sink.
func BytesShipped(n int64) attribute.KeyValue {
	return attribute.Int64(AttrBytesShipped, n)
}

// CacheHit returns a span attribute for whether a fragment read was served
// from an already-cached slot.
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// HullBytes returns a span attribute for bytes fetched upstream to fill an
// uncached hull.
func HullBytes(n int64) attribute.KeyValue {
	return attribute.Int64(AttrHullBytes, n)
}

// StartReadSpan starts a span for one ReadVC's lifetime, named for the
// object key it serves.
func StartReadSpan(ctx context.Context, objectKey string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{ObjectKey(objectKey)}, attrs...)
	return StartSpan(ctx, "cache.read", trace.WithAttributes(allAttrs...))
}

// StartWriteSpan starts a span for one WriteVC's lifetime, named for the
// object key it writes.
func StartWriteSpan(ctx context.Context, objectKey string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{ObjectKey(objectKey)}, attrs...)
	return StartSpan(ctx, "cache.write", trace.WithAttributes(allAttrs...))
}

// StartFragmentSpan starts a span for a single fragment fetch or store.
func StartFragmentSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "cache.fragment."+operation, trace.WithAttributes(attrs...))
}
