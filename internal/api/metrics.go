// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RequestsTotal counts completed API requests by route and status.
// Use RegisterMetrics to register this with a Prometheus registry.
var RequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "viper_api_requests_total",
		Help: "Total number of API requests by route and status",
	},
	[]string{"route", "status"},
)

// RejectionsTotal counts pipeline rejections by taxonomy kind.
// Use RegisterMetrics to register this with a Prometheus registry.
var RejectionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "viper_api_rejections_total",
		Help: "Total number of rejected requests by error kind",
	},
	[]string{"kind"},
)

// TokensIssuedTotal counts issued bearer tokens.
// Use RegisterMetrics to register this with a Prometheus registry.
var TokensIssuedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "viper_tokens_issued_total",
		Help: "Total number of issued bearer tokens",
	},
)

// RegisterMetrics registers the API metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(RequestsTotal)
	reg.MustRegister(RejectionsTotal)
	reg.MustRegister(TokensIssuedTotal)
}

// RecordRejection increments the rejection counter for a kind.
func RecordRejection(kind Kind) {
	RejectionsTotal.WithLabelValues(kind.String()).Inc()
}
