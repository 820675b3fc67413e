package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparlink_request_transitions_total",
		Help: "Session request lifecycle transitions by resulting status.",
	}, []string{"status"})

	NotificationEmits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparlink_notifications_emitted_total",
		Help: "In-app notification rows written, by type and outcome.",
	}, []string{"type", "outcome"})

	ReminderEmails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparlink_reminder_emails_total",
		Help: "Reminder batch email attempts, by job and outcome.",
	}, []string{"job", "outcome"})
)
