// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package metrics holds the Prometheus collectors of the application.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VerificationsStarted counts StartVerification calls by result
	// (issued|rate_limited|invalid|error).
	VerificationsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courses_verifications_started_total",
			Help: "Total number of verification requests",
		},
		[]string{"result"},
	)

	// VerificationsRedeemed counts token redemptions by outcome message.
	VerificationsRedeemed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courses_verifications_redeemed_total",
			Help: "Total number of verification token redemptions",
		},
		[]string{"result"},
	)

	// VerificationMailFailures counts verification mails that could not be sent.
	VerificationMailFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courses_verification_mail_failures_total",
			Help: "Total number of failed verification mail deliveries",
		},
	)

	// CatalogueCacheLookups counts catalogue cache lookups (hit|miss).
	CatalogueCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courses_catalogue_cache_lookups_total",
			Help: "Total number of catalogue cache lookups",
		},
		[]string{"result"},
	)

	// RequestDuration measures HTTP request latencies by route.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courses_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
