// Copyright 2025 Certen Protocol
//
// HTTP instrumentation (spec.md §4.7 get_metrics "in-flight HTTP requests,
// per-method histograms"): wraps every route with the shared metrics
// registry's in-flight gauge and latency histogram.

package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tonvault/gateway/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func withMetricsMiddleware(reg *metrics.Registry, h http.Handler) http.Handler {
	if reg == nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.InFlightInc()
		defer reg.InFlightDec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)

		reg.ObserveRequest(r.Method, statusClass(rec.status), time.Since(start))
	})
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
