package notify

import "github.com/prometheus/client_golang/prometheus"

var (
	sentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ngshift_notifications_sent_total",
		Help: "Total number of chat messages delivered.",
	})

	// failedTotal is labelled by reason: fatal, exhausted, canceled or invalid.
	failedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ngshift_notifications_failed_total",
		Help: "Total number of send calls that did not deliver, by reason.",
	}, []string{"reason"})

	enqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ngshift_notifications_enqueued_total",
		Help: "Total number of messages parked in the notification queue.",
	})

	retriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ngshift_notification_retries_total",
		Help: "Total number of delivery retries after a transient failure.",
	})
)

func init() {
	prometheus.MustRegister(sentTotal, failedTotal, enqueuedTotal, retriesTotal)
}
