// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts authentication outcomes.
type Metrics struct {
	logins          *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	sessionsRevoked *prometheus.CounterVec
	sessionsCleaned prometheus.Counter
}

// NewMetrics registers the auth collectors on registerer. A nil registerer
// yields working but unregistered collectors.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hydroline",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hydroline",
			Subsystem: "auth",
			Name:      "refresh_total",
			Help:      "Refresh attempts by result.",
		}, []string{"result"}),
		sessionsRevoked: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hydroline",
			Subsystem: "auth",
			Name:      "sessions_revoked_total",
			Help:      "Sessions deactivated, by revocation scope.",
		}, []string{"scope"}),
		sessionsCleaned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hydroline",
			Subsystem: "auth",
			Name:      "sessions_cleaned_total",
			Help:      "Sessions physically removed by cleanup.",
		}),
	}
}

const (
	resultSuccess = "success"
	resultFailure = "failure"

	scopeSingle   = "single"
	scopeAll      = "all"
	scopeOthers   = "others"
	scopePassword = "password_change"
)

func (metrics *Metrics) login(err error) {
	metrics.logins.WithLabelValues(result(err)).Inc()
}

func (metrics *Metrics) refresh(err error) {
	metrics.refreshes.WithLabelValues(result(err)).Inc()
}

func (metrics *Metrics) revoked(scope string, count int64) {
	if count > 0 {
		metrics.sessionsRevoked.WithLabelValues(scope).Add(float64(count))
	}
}

func (metrics *Metrics) cleaned(count int64) {
	if count > 0 {
		metrics.sessionsCleaned.Add(float64(count))
	}
}

func result(err error) string {
	if err != nil {
		return resultFailure
	}
	return resultSuccess
}
