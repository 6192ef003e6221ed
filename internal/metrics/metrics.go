package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "eodsync"

var requestWeightCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "eodhd",
		Name:      "request_weight_total",
		Help:      "Approximate provider quota spent, summed over every request attempt",
	},
)

var responsesCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "eodhd",
		Name:      "responses_total",
		Help:      "Provider responses by status class",
	},
	[]string{"status"},
)

var symbolsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "symbols_total",
		Help:      "Symbols processed by outcome",
	},
	[]string{"exchange", "outcome"},
)

var inFlightGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "in_flight",
		Help:      "Symbols currently being fetched or stored",
	},
)

var breakerTripsCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "breaker_trips_total",
		Help:      "Runs halted by the failure circuit breaker",
	},
)

func AddRequestWeight(w int64) {
	requestWeightCounter.Add(float64(w))
}

func ObserveResponse(status string) {
	responsesCounter.WithLabelValues(status).Inc()
}

// Symbol outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
)

func RecordSymbol(exchange, outcome string) {
	symbolsCounter.WithLabelValues(exchange, outcome).Inc()
}

func InFlightInc() { inFlightGauge.Inc() }
func InFlightDec() { inFlightGauge.Dec() }

func RecordBreakerTrip() {
	breakerTripsCounter.Inc()
}
