package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// requestsCreated counts accepted NG-day submissions.
	requestsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ngshift_requests_created_total",
		Help: "Total number of NG-day requests accepted.",
	})

	// requestTransitions counts admin decisions by resulting status.
	requestTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ngshift_request_transitions_total",
		Help: "Total number of NG-day requests processed, by resulting status.",
	}, []string{"status"})

	// remindersSent counts successfully delivered deadline reminders.
	remindersSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ngshift_reminders_sent_total",
		Help: "Total number of deadline reminders delivered, by days before deadline.",
	}, []string{"days_before"})

	// shiftWarnings counts NG-day conflicts reported on shift updates.
	shiftWarnings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ngshift_shift_conflict_warnings_total",
		Help: "Total number of shift assignments that conflict with an approved NG day.",
	})
)

func init() {
	prometheus.MustRegister(requestsCreated, requestTransitions, remindersSent, shiftWarnings)
}
