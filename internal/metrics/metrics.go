package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts committed lifecycle mutations. A nil *Metrics is a no-op.
type Metrics struct {
	Mutations *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "policy_portal",
			Name:      "mutations_total",
			Help:      "Committed policy and rule mutations by entity and audit action.",
		}, []string{"entity", "action"}),
	}
	if reg != nil {
		reg.MustRegister(m.Mutations)
	}
	return m
}

func (m *Metrics) ObserveMutation(entity, action string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(entity, action).Inc()
}
