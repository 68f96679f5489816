// Package metrics declares the Prometheus collectors shared by the HTTP layer
// and the ledger services.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supaspend",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "supaspend",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
	ledgerRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supaspend",
			Name:      "ledger_rows_total",
			Help:      "Ledger rows appended, by transaction type",
		},
		[]string{"type"},
	)
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "supaspend",
			Name:      "operations_total",
			Help:      "Core operations by name and outcome code",
		},
		[]string{"op", "outcome"},
	)
)

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveHTTP records one completed request.
func ObserveHTTP(method string, status int, seconds float64) {
	s := strconv.Itoa(status)
	HTTPRequestsTotal.WithLabelValues(method, s).Inc()
	HTTPRequestDuration.WithLabelValues(method, s).Observe(seconds)
}

// LedgerRow counts one appended ledger row.
func LedgerRow(t ledger.TransactionType) { ledgerRowsTotal.WithLabelValues(string(t)).Inc() }

// Operation counts a core operation outcome: "ok" or the error kind code.
func Operation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = errs.Code(err)
	}
	operationsTotal.WithLabelValues(op, outcome).Inc()
}
