// Package metrics exposes prometheus instrumentation for the credit ledger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LedgerOperations counts ledger mutations by kind and outcome.
	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credits_ledger_operations_total",
		Help: "Credit ledger mutations by operation and outcome",
	}, []string{"operation", "outcome"})

	// InsufficientCredits counts debits rejected for lack of balance.
	InsufficientCredits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credits_insufficient_total",
		Help: "Debit attempts rejected due to insufficient balance",
	})

	// DuplicatePayments counts payment references rejected as already processed.
	DuplicatePayments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credits_duplicate_payments_total",
		Help: "Payment crediting attempts skipped as already processed",
	})

	// DeductionFailures counts charges that failed after the gated operation
	// already succeeded. Each one is an accounting inconsistency that needs
	// out-of-band reconciliation; alert on any increase.
	DeductionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credits_deduction_failures_total",
		Help: "Debits that failed after the gated operation succeeded",
	}, []string{"feature"})
)

// Handler returns the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
