package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fanoutEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studynest_fanout_events_total",
			Help: "Fan-out broadcasts by event type and result",
		},
		[]string{"type", "result"},
	)

	notificationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studynest_notifications_created_total",
			Help: "Notifications written by fan-out",
		},
	)

	fanoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "studynest_fanout_duration_seconds",
			Help:    "Duration of one fan-out broadcast in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
	)

	outboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studynest_outbox_pending",
			Help: "Fan-out events waiting in the outbox",
		},
	)
)
