package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hotelbooking"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	holds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holds_total",
			Help:      "Hold operations by result.",
		},
		[]string{"result"},
	)

	holdSweeps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hold_sweeps_total",
			Help:      "Expired hold rows removed by lazy sweeps.",
		},
	)

	inventoryMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_mutations_total",
			Help:      "Inventory ledger writes by operation.",
		},
		[]string{"op"},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking state machine actions by result.",
		},
		[]string{"action", "result"},
	)

	refunds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_total",
			Help:      "Refund executions by result.",
		},
		[]string{"result"},
	)

	pricingQuotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Price computations by kind.",
		},
		[]string{"kind"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refund_gateway_breaker_state",
			Help:      "Refund gateway circuit breaker state (0=closed, 1=open, 2=half-open).",
		},
		[]string{"name"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			holds,
			holdSweeps,
			inventoryMutations,
			bookingTransitions,
			refunds,
			pricingQuotes,
			breakerState,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncHold(result string) {
	holds.WithLabelValues(result).Inc()
}

func AddHoldSweeps(n int64) {
	if n > 0 {
		holdSweeps.Add(float64(n))
	}
}

func IncInventory(op string) {
	inventoryMutations.WithLabelValues(op).Inc()
}

func IncTransition(action, result string) {
	bookingTransitions.WithLabelValues(action, result).Inc()
}

func IncRefund(result string) {
	refunds.WithLabelValues(result).Inc()
}

func IncQuote(kind string) {
	pricingQuotes.WithLabelValues(kind).Inc()
}

func SetBreakerState(name string, state float64) {
	breakerState.WithLabelValues(name).Set(state)
}
