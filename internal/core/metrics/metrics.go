package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "momo"

type Metrics struct {
	PaymentRequests *prometheus.CounterVec
	StatusRefreshes *prometheus.CounterVec
	TokenRequests   *prometheus.CounterVec
}

// New registers the service counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PaymentRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_requests_total",
			Help:      "Payment initiations by final transaction status.",
		}, []string{"outcome"}),
		StatusRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_refresh_total",
			Help:      "Provider status lookups for pending transactions.",
		}, []string{"result"}),
		TokenRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_requests_total",
			Help:      "Access token requests to the provider.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.PaymentRequests, m.StatusRefreshes, m.TokenRequests)
	return m
}

// NewNop returns counters that are not exported anywhere.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
