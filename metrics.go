package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// This file defines the Prometheus metrics that are exposed by the application.

// httpRequestsTotal tracks inbound requests by URL path, method and status code.
var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "roadahead_http_requests_total",
	Help: "Total number of HTTP requests by path, method and code.",
}, []string{"path", "method", "code"})

// externalRequestDuration observes outbound calls (Gemini, geocoding, IP lookup) per host.
var externalRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "roadahead_external_request_duration_seconds",
	Help:    "Duration of outbound HTTP requests by host.",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
}, []string{"host"})

var groundingQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "roadahead_grounding_queries_total",
	Help: "Total number of grounding queries by kind and outcome.",
}, []string{"kind", "outcome"})

var answerCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "roadahead_answer_cache_lookups_total",
	Help: "Answer cache lookups by result (hit or miss).",
}, []string{"result"})
