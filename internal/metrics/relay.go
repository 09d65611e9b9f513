package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConnectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "littleburg_relay_connected_clients",
			Help: "Current number of connected clients",
		})

	RegisteredTowns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "littleburg_relay_registered_towns",
			Help: "Current number of registered towns",
		})

	MessagesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "littleburg_relay_messages_received_total",
			Help: "Total number of messages received by the relay",
		})

	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "littleburg_relay_messages_sent_total",
			Help: "Total number of messages sent by the relay",
		})

	TravelEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "littleburg_relay_travel_events_total",
			Help: "Total number of completed character travels",
		})

	ConsumeEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "littleburg_relay_consume_events_total",
			Help: "Total number of completed cross-town consumptions",
		})

	RejectedStateUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "littleburg_relay_rejected_state_updates_total",
			Help: "Total number of state updates dropped because the caller does not own the town",
		})

	RelayErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "littleburg_relay_errors_total",
			Help: "Total number of relay errors by type",
		},
		[]string{"type"},
	)

	FailedMessageSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "littleburg_relay_failed_message_sends_total",
			Help: "Total number of failed message sends by reason",
		},
		[]string{"reason"},
	)

	TownLifetime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "littleburg_relay_town_lifetime_seconds",
			Help:    "Lifetime of registered towns in seconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 8),
		},
	)
)

func InitRelay() {
	prometheus.MustRegister(
		ConnectedClients,
		RegisteredTowns,
		MessagesReceived,
		MessagesSent,
		TravelEvents,
		ConsumeEvents,
		RejectedStateUpdates,
		RelayErrors,
		FailedMessageSends,
		TownLifetime,
	)
}
