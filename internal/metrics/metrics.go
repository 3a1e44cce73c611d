package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chopwallet_ledger_transactions_total",
			Help: "Ledger postings applied, by entry type and status",
		},
		[]string{"type", "status"},
	)

	DuplicatesAbsorbedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chopwallet_duplicate_events_absorbed_total",
			Help: "External events short-circuited by the idempotency guard",
		},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chopwallet_webhook_events_total",
			Help: "Inbound processor webhook deliveries, by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	WebhookRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chopwallet_webhook_rejected_total",
			Help: "Webhook deliveries rejected for an invalid signature",
		},
	)

	ProcessorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chopwallet_processor_requests_total",
			Help: "Outbound processor API calls, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
)

func RecordTransaction(entryType, status string) {
	TransactionsTotal.WithLabelValues(entryType, status).Inc()
}

func RecordDuplicateAbsorbed() {
	DuplicatesAbsorbedTotal.Inc()
}

func RecordWebhookEvent(event, outcome string) {
	WebhookEventsTotal.WithLabelValues(event, outcome).Inc()
}

func RecordProcessorRequest(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ProcessorRequestsTotal.WithLabelValues(operation, outcome).Inc()
}
