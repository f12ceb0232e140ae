package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequests counts handled requests.
	// Labels: method, route (the registered path), status
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lockin",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	// httpLatency measures handler latency.
	// Labels: method, route
	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lockin",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// recordsWritten counts successful writes.
	// Labels: kind (commitment, session), op (insert, complete)
	recordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lockin",
		Subsystem: "records",
		Name:      "written_total",
		Help:      "Records written by kind and operation",
	}, []string{"kind", "op"})

	// feedClients tracks connected change feed subscribers
	feedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lockin",
		Subsystem: "feed",
		Name:      "clients",
		Help:      "Connected change feed clients",
	})

	// feedDropped counts subscribers dropped for falling behind
	feedDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lockin",
		Subsystem: "feed",
		Name:      "dropped_total",
		Help:      "Change feed clients dropped because their buffer was full",
	})
)
