// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes Prometheus collectors for the decision and
// quota paths.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/realmgate/realmgate/internal/domain"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "realmgate",
		Name:      "decisions_total",
		Help:      "Authorization decisions by outcome.",
	}, []string{"outcome"})

	decisionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "realmgate",
		Name:      "decision_duration_seconds",
		Help:      "Latency of authorization decisions.",
		Buckets:   prometheus.DefBuckets,
	})

	quotaRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "realmgate",
		Name:      "quota_rejections_total",
		Help:      "Resource instance creations refused by quota.",
	}, []string{"resource", "scope"})
)

// ObserveDecision records the outcome and latency of one Check call.
func ObserveDecision(effect domain.Effect, err error, elapsed time.Duration) {
	outcome := "error"
	switch {
	case err == nil && effect == domain.EffectAllow:
		outcome = "allow"
	case err == nil && effect == domain.EffectDeny:
		outcome = "deny"
	}
	decisionsTotal.WithLabelValues(outcome).Inc()
	decisionDuration.Observe(elapsed.Seconds())
}

// QuotaRejected counts a quota refusal for a (resource, scope) pair.
func QuotaRejected(resource, scope string) {
	quotaRejectionsTotal.WithLabelValues(resource, scope).Inc()
}
