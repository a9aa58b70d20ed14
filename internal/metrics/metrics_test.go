package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncInventory("decrease")
		IncTransition("confirm", "ok")
		IncRefund("completed")
		IncQuote("multi_room")
	})
}

func TestHoldCounters(t *testing.T) {
	before := testutil.ToFloat64(holds.WithLabelValues("created"))
	IncHold("created")
	assert.Equal(t, before+1, testutil.ToFloat64(holds.WithLabelValues("created")))

	sweeps := testutil.ToFloat64(holdSweeps)
	AddHoldSweeps(3)
	AddHoldSweeps(0)
	assert.Equal(t, sweeps+3, testutil.ToFloat64(holdSweeps))
}

func TestBreakerState(t *testing.T) {
	SetBreakerState("refund-gateway", 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(breakerState.WithLabelValues("refund-gateway")))
}
