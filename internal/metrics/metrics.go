package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_messages_sent_total",
			Help: "Total messages sent",
		},
	)

	MessagesEdited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_messages_edited_total",
			Help: "Total message edits",
		},
	)

	ConversationsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_conversations_deleted_total",
			Help: "Total conversation deletions",
		},
	)

	CallInvitations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_call_invitations_total",
			Help: "Total call invitations by type",
		},
		[]string{"call_type"}, // "instant" or "scheduled"
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_notification_failures_total",
			Help: "Total best-effort notification writes that failed",
		},
	)

	FeedEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_feed_events_published_total",
			Help: "Total change feed events published",
		},
	)

	FeedEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_feed_events_dropped_total",
			Help: "Total change feed events dropped for slow subscribers",
		},
	)
)
