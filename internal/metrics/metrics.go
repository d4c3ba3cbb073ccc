package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "irrigation_"

var (
	// PumpStarts counts confirmed pump starts by source (manual|scheduled).
	PumpStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "pump_starts_total",
		Help: "Confirmed pump starts",
	}, []string{"source"})

	// PumpStops counts confirmed pump stops by reason.
	PumpStops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "pump_stops_total",
		Help: "Confirmed pump stops",
	}, []string{"reason"})

	// SafetyStops counts forced stops after a max-run-duration breach.
	SafetyStops = promauto.NewCounter(prometheus.CounterOpts{
		Name: prefix + "safety_stops_total",
		Help: "Forced stops after exceeding the max run duration",
	})

	// PumpRunning is 1 while the pump is on.
	PumpRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: prefix + "pump_running",
		Help: "Whether the pump is currently running",
	})

	// EventsDropped counts notifier events discarded because a subscriber
	// queue was full.
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "events_dropped_total",
		Help: "Events dropped on full subscriber queues",
	}, []string{"subscriber"})

	// ActuatorFaults counts driver start/stop failures.
	ActuatorFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: prefix + "actuator_faults_total",
		Help: "Pump driver failures",
	})
)
