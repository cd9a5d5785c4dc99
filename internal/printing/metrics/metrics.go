// Package metrics exposes the worker's prometheus counters. Print and
// pdf outcomes carry a status label so an offline printer is
// distinguishable from a successful print even though the order row is
// marked printed either way.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "print_worker_orders_processed_total",
		Help: "Orders that completed the full pipeline and were marked printed",
	})

	OrderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "print_worker_order_failures_total",
		Help: "Orders whose pipeline aborted before mark-printed",
	})

	PrintOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "print_worker_print_outcomes_total",
		Help: "Thermal print outcomes by status (succeeded, failed, skipped)",
	}, []string{"status"})

	PDFOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "print_worker_pdf_outcomes_total",
		Help: "PDF capture outcomes by status (succeeded, failed, skipped)",
	}, []string{"status"})
)
