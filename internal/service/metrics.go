package service

import "github.com/prometheus/client_golang/prometheus"

// AuthMetrics counts session lifecycle events. A nil *AuthMetrics is a no-op.
type AuthMetrics struct {
	events *prometheus.CounterVec
}

func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_events_total",
				Help: "Authentication lifecycle events by outcome",
			},
			[]string{"event", "outcome"}, // event: register, login, logout, change_password, resolve
		),
	}
	reg.MustRegister(m.events)
	return m
}

func (m *AuthMetrics) observe(event string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.events.WithLabelValues(event, outcome).Inc()
}
