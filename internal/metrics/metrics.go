// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SweepsTotal counts sweeper ticks by outcome: ok, failed or skipped.
var SweepsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rentals",
		Subsystem: "sweeper",
		Name:      "sweeps_total",
		Help:      "Total number of expiry sweeps",
	},
	[]string{"result"},
)

// SweepDuration observes how long one sweep takes.
var SweepDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "rentals",
		Subsystem: "sweeper",
		Name:      "sweep_duration_seconds",
		Help:      "Time spent in one expiry sweep",
		Buckets:   prometheus.DefBuckets,
	},
)

// ItemsExpired counts items returned by the sweeper.
var ItemsExpired = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "rentals",
		Subsystem: "sweeper",
		Name:      "items_expired_total",
		Help:      "Total number of rentals returned on expiry",
	},
)

// CommandsTotal counts handled chat commands by name and result.
var CommandsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rentals",
		Subsystem: "bot",
		Name:      "commands_total",
		Help:      "Total number of handled commands",
	},
	[]string{"command", "result"}, // result: ok, rejected, user_error, failed
)

// NotifyFailures counts notifications a sink failed to deliver.
var NotifyFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rentals",
		Subsystem: "notify",
		Name:      "failures_total",
		Help:      "Total number of failed notification deliveries",
	},
	[]string{"sink"},
)

// PanelClients is the number of connected live panel clients.
var PanelClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "rentals",
		Subsystem: "web",
		Name:      "panel_clients",
		Help:      "Current number of connected live panel clients",
	},
)
