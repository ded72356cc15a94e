// Package ingest implements the HTTP ingestion boundary that appends
// published records to daily log files.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/recsync/internal/payload"
	"github.com/roach88/recsync/internal/record"
)

const (
	// MaxLineBytes bounds one encoded log line.
	MaxLineBytes = 1024

	// maxBodyBytes bounds how much of a request body is read.
	maxBodyBytes = 64 << 10

	attributionPrefix = "x-limit-"
)

var errEmptyBody = errors.New("empty body")

// Handler serves the ingestion endpoints:
//
//	POST /pub      append one record
//	GET  /healthz  liveness
//	GET  /metrics  Prometheus exposition
type Handler struct {
	log     *DailyLog
	logger  *slog.Logger
	metrics *Metrics
	mux     *http.ServeMux
}

// NewHandler wires the endpoints. Metrics are registered with reg and served
// from it. A nil logger discards.
func NewHandler(log *DailyLog, logger *slog.Logger, reg *prometheus.Registry) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Handler{
		log:     log,
		logger:  logger,
		metrics: NewMetrics(reg),
		mux:     http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /pub", h.publish)
	h.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	h.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "read body", err)
		return
	}
	if len(body) > maxBodyBytes {
		h.fail(w, http.StatusRequestEntityTooLarge, "body too large", nil)
		return
	}

	obj, err := decodeBody(body)
	if err != nil {
		h.fail(w, http.StatusBadRequest, errEmptyBody.Error(), err)
		return
	}

	obj.Delete(record.FieldMeta)
	obj.Set(record.FieldMeta, payload.NewObject(
		payload.F("headers", attribution(r.Header)),
	))

	line, err := obj.MarshalJSON()
	if err != nil {
		h.fail(w, http.StatusBadRequest, "encode record", err)
		return
	}
	if len(line) > MaxLineBytes {
		h.logger.Warn("record too large", "bytes", len(line), "line", string(line))
		h.fail(w, http.StatusRequestEntityTooLarge, "record too large", nil)
		return
	}

	n, err := h.log.Append(line)
	if err != nil {
		h.metrics.WriteErrors.Inc()
		h.logger.Error("append failed", "error", err)
		h.fail(w, http.StatusInternalServerError, "write failed", nil)
		return
	}
	h.metrics.RecordsStored.Inc()
	h.metrics.BytesStored.Add(float64(n))
	h.logger.Debug("record stored", "file", h.log.CurrentFile(), "bytes", n)

	h.metrics.Requests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("[]"))
}

func (h *Handler) fail(w http.ResponseWriter, code int, msg string, cause error) {
	h.metrics.Requests.WithLabelValues(strconv.Itoa(code)).Inc()
	if cause != nil {
		h.logger.Debug("publish rejected", "status", code, "reason", msg, "error", cause)
	}
	http.Error(w, msg, code)
}

// decodeBody accepts only a non-empty JSON object.
func decodeBody(body []byte) (*payload.Object, error) {
	v, err := payload.Decode(body)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*payload.Object)
	if !ok {
		return nil, fmt.Errorf("body is %s, not an object", payload.KindOf(v))
	}
	if obj.Len() == 0 {
		return nil, errEmptyBody
	}
	return obj, nil
}

// attribution collects the x-limit-* request headers. Keys keep their
// canonical form; repeated headers keep the first value.
func attribution(header http.Header) *payload.Object {
	headers := payload.NewObject()
	for _, key := range slices.Sorted(maps.Keys(header)) {
		if !strings.HasPrefix(strings.ToLower(key), attributionPrefix) {
			continue
		}
		if vals := header[key]; len(vals) > 0 {
			headers.Set(key, payload.String(vals[0]))
		}
	}
	return headers
}
