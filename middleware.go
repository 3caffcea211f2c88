package main

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"
)

// This file contains the HTTP middleware used by the server and the
// instrumented transport used by every outbound client.

// responseWriter captures the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	// Default to 200 OK if WriteHeader is not called.
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps the Server-Sent Events stream working through the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not implement http.Hijacker")
	}
	return h.Hijack()
}

// metricsMiddleware records every response in httpRequestsTotal. The path
// label is the matched route, never the raw URL.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		statusCodeStr := strconv.Itoa(rw.statusCode)
		httpRequestsTotal.WithLabelValues(routeLabel(r), r.Method, statusCodeStr).Inc()
	})
}

// routeLabel returns the ServeMux pattern that served r. ServeMux records it
// on the request it was handed; requests it did not match count as "other".
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "other"
	}
	return r.Pattern
}

// corsMiddleware allows the JSON API to be called from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

// metricsTransport times outbound requests per host.
type metricsTransport struct {
	wrapped http.RoundTripper
}

func (t *metricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.wrapped.RoundTrip(req)
	externalRequestDuration.WithLabelValues(req.URL.Host).Observe(time.Since(start).Seconds())
	return resp, err
}

// newInstrumentedClient returns an http.Client whose transport is measured.
// A zero timeout means the client waits as long as the remote side does.
func newInstrumentedClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &metricsTransport{wrapped: http.DefaultTransport},
	}
}
