package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.PaymentRequests.WithLabelValues("PENDING").Inc()
	m.PaymentRequests.WithLabelValues("PENDING").Inc()
	m.TokenRequests.WithLabelValues("error").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PaymentRequests.WithLabelValues("PENDING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenRequests.WithLabelValues("error")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := []string{}
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "momo_payment_requests_total")
	assert.Contains(t, names, "momo_token_requests_total")
}
