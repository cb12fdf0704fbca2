package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesReceived counts inbound lines framed off the wire.
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_received_total",
		Help: "Total number of protocol lines received",
	})

	// MessagesSent counts lines actually transmitted.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Total number of protocol lines sent",
	})

	// SuppressedMessages counts inbound messages withheld from the
	// application during a handshake.
	SuppressedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_suppressed_messages_total",
		Help: "Total number of messages suppressed while a handshake was in flight",
	})

	// UnknownCommands counts lines whose command token was not recognized.
	UnknownCommands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_unknown_commands_total",
		Help: "Total number of lines with an unrecognized command token",
	})

	// Reconnects counts link losses.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_reconnects_total",
		Help: "Total number of link losses followed by a reconnect attempt",
	})

	// JoinedChannels is the current number of server-confirmed memberships.
	JoinedChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_joined_channels",
		Help: "Number of channels currently joined",
	})

	// OutboxDepth is the number of lines waiting in the outbound queues.
	OutboxDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_outbox_depth",
		Help: "Number of lines queued for transmission",
	})
)
