package server

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marmos91/cachecore/internal/demo"
	"github.com/marmos91/cachecore/internal/logger"
	"github.com/marmos91/cachecore/internal/telemetry"
	"github.com/marmos91/cachecore/pkg/cacheerr"
	"github.com/marmos91/cachecore/pkg/cachekey"
	"github.com/marmos91/cachecore/pkg/collab"
	"github.com/marmos91/cachecore/pkg/metrics"
	"github.com/marmos91/cachecore/pkg/rangeengine"
	"github.com/marmos91/cachecore/pkg/vc"
)

// defaultContentType is used for a PUT request that doesn't set one.
const defaultContentType = "application/octet-stream"

// Handler implements the PUT/GET object endpoints against Deps's
// collaborators.
type Handler struct {
	deps *Deps
}

// NewHandler constructs a Handler over deps.
func NewHandler(deps *Deps) *Handler {
	return &Handler{deps: deps}
}

// objectKeyFromPath derives a content-addressed object key from a request
// path the same way cachekey derives every other key in this package: a
// truncated SHA-256, here of the path bytes rather than a prior key, since
// the path is the only stable identifier an HTTP client gives us for an
// object it hasn't written yet.
func objectKeyFromPath(path string) cachekey.Object {
	sum := sha256.Sum256([]byte(path))
	var key cachekey.Object
	copy(key[:], sum[:16])
	return key
}

// errorResponse mirrors the {status, error} JSON body used across the rest
// of this domain's HTTP surface.
type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Status: "error", Error: msg})
}

// mapCacheErr translates a cacheerr.Kind into the HTTP status a client
// should see for it.
func mapCacheErr(err error) (int, string) {
	var ce *cacheerr.Error
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError, err.Error()
	}
	switch ce.Kind {
	case cacheerr.NoDoc, cacheerr.AltMiss:
		return http.StatusNotFound, "object not found"
	case cacheerr.UnsatisfiableRange:
		return http.StatusRequestedRangeNotSatisfiable, "range not satisfiable"
	case cacheerr.DocBusy:
		return http.StatusServiceUnavailable, "object busy, retry"
	case cacheerr.NotReady:
		return http.StatusServiceUnavailable, "cache not ready"
	case cacheerr.WriterGone:
		return http.StatusBadGateway, "writer disappeared before completion"
	default:
		return http.StatusInternalServerError, ce.Message
	}
}

// Put handles PUT /objects/{path}: it chunks the request body into fixed
// fragments, writes each through the demo Volume, and reports completion to
// a WriteVC until the object's alternate is published.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request, path string) {
	key := objectKeyFromPath(path)
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	ctx, span := telemetry.StartWriteSpan(r.Context(), key.String())
	defer span.End()

	start := time.Now()
	dir := h.deps.Dirs.For(key)
	wvc := vc.NewWriteVC(key, h.deps.FixedFragSize, nil, []byte(contentType))
	wvc.Registry = h.deps.Registry
	wvc.Directory = dir
	wvc.Volume = h.deps.Volume
	wvc.Scheduler = h.deps.Scheduler
	wvc.Metrics = h.deps.Metrics

	done := make(chan error, 1)
	go func() {
		done <- demo.Drive(ctx, wvc.ID(), h.deps.Scheduler, wvc.Step)
	}()

	for off := int64(0); off < int64(len(body)) || len(body) == 0; off += h.deps.FixedFragSize {
		end := off + h.deps.FixedFragSize
		if end > int64(len(body)) {
			end = int64(len(body))
		}
		chunk := body[off:end]
		final := end >= int64(len(body))

		volOff := h.deps.Volume.Put(chunk)
		wvc.Enqueue(chunk, collab.DirEntry{Offset: volOff}, true, final)
		h.deps.Scheduler.ScheduleImm(wvc)

		if final {
			break
		}
	}

	if err := <-done; err != nil {
		logger.ErrorCtx(ctx, "object write failed", "key", key.String(), "error", err)
		status, msg := mapCacheErr(err)
		writeError(w, status, msg)
		return
	}

	h.deps.Objects.Put(key, demo.ObjectInfo{Size: int64(len(body)), ContentType: contentType})
	metrics.ObserveWrite(h.deps.Metrics, int64(len(body)), time.Since(start))

	logger.InfoCtx(ctx, "object written", "key", key.String(), "bytes", len(body))
	w.WriteHeader(http.StatusCreated)
}

// Get handles GET /objects/{path}: it resolves any Range header against the
// object's known size, writes the matching status/headers, then drives a
// ReadVC that streams bytes straight to the response writer.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, path string) {
	key := objectKeyFromPath(path)

	info, ok := h.deps.Objects.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}

	var spec *rangeengine.Spec
	if rh := r.Header.Get("Range"); rh != "" {
		parsed, err := rangeengine.Parse(rh)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid Range header")
			return
		}
		spec = parsed
	}

	ctx, span := telemetry.StartReadSpan(r.Context(), key.String())
	defer span.End()

	start := time.Now()
	dir := h.deps.Dirs.For(key)
	rvc := vc.NewReadVC(key, spec, w)
	rvc.Registry = h.deps.Registry
	rvc.Directory = dir
	rvc.Volume = h.deps.Volume
	rvc.Scheduler = h.deps.Scheduler
	rvc.Metrics = h.deps.Metrics
	rvc.AltSelect = demo.SelectHead
	rvc.RequestHeader = r.Header
	rvc.ResolveRange(info.Size, info.ContentType)

	resolved := rvc.Resolved()
	switch resolved.State {
	case rangeengine.Unsatisfiable:
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", info.Size))
		writeError(w, http.StatusRequestedRangeNotSatisfiable, "range not satisfiable")
		return
	case rangeengine.Single:
		rr := resolved.Ranges[0]
		w.Header().Set("Content-Type", info.ContentType)
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rr.Min, rr.Max, info.Size))
		w.Header().Set("Content-Length", fmt.Sprintf("%d", rvc.ContentLength()))
		w.WriteHeader(http.StatusPartialContent)
	case rangeengine.Multi:
		w.Header().Set("Content-Type", fmt.Sprintf("multipart/byteranges; boundary=%s", rvc.Boundary()))
		w.Header().Set("Content-Length", fmt.Sprintf("%d", rvc.ContentLength()))
		w.WriteHeader(http.StatusPartialContent)
	default:
		w.Header().Set("Content-Type", info.ContentType)
		w.Header().Set("Content-Length", fmt.Sprintf("%d", rvc.ContentLength()))
		w.WriteHeader(http.StatusOK)
	}

	if err := demo.Drive(ctx, rvc.ID(), h.deps.Scheduler, rvc.Step); err != nil {
		logger.ErrorCtx(ctx, "object read failed", "key", key.String(), "error", err)
		return
	}

	metrics.ObserveRead(h.deps.Metrics, rvc.ContentLength(), time.Since(start), true)
	metrics.RecordRangeRequest(h.deps.Metrics, strings.ToLower(resolved.State.String()))
}
