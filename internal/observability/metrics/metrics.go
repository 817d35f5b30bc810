// Package metrics registers the platform's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingsCreated counts successfully persisted bookings.
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "careops_bookings_created_total",
		Help: "Number of bookings created.",
	})

	// BookingConflicts counts booking attempts rejected for contention,
	// labeled by reason (no_resource, no_staff, slot_taken).
	BookingConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careops_booking_conflicts_total",
		Help: "Number of booking attempts rejected due to contention.",
	}, []string{"reason"})

	// SlotQueries counts slot-availability computations, labeled by cache
	// outcome (hit, miss, bypass).
	SlotQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careops_slot_queries_total",
		Help: "Number of slot availability queries.",
	}, []string{"cache"})

	// SlotResolveDuration observes how long uncached slot resolution takes.
	SlotResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "careops_slot_resolve_duration_seconds",
		Help:    "Latency of slot availability resolution.",
		Buckets: prometheus.DefBuckets,
	})

	// OutboxDelivered counts events handed to the queue.
	OutboxDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "careops_outbox_delivered_total",
		Help: "Number of outbox events delivered to the queue.",
	})

	// AutomationHandled counts handled automation events by status.
	AutomationHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careops_automation_handled_total",
		Help: "Number of automation events handled, by outcome.",
	}, []string{"event", "status"})

	// EmailsSent counts outbound notification emails.
	EmailsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "careops_emails_sent_total",
		Help: "Number of notification emails sent.",
	})
)
