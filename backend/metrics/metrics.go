// Package metrics exposes the server's prometheus counters.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "selfpaced"

var (
	// SyncReads counts GET /sync-progress by result (ok, error).
	SyncReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_reads_total",
		Help:      "Completion map reads served.",
	}, []string{"result"})

	// SyncWrites counts POST /sync-progress by result (ok, invalid, error).
	SyncWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_writes_total",
		Help:      "Completion map pushes received.",
	}, []string{"result"})

	// SyncedKeys observes how many keys each accepted push carried.
	SyncedKeys = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_push_keys",
		Help:      "Number of progress keys per accepted push.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	// OverrideWrites counts admin module overrides by action (unlock, lock).
	OverrideWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "module_override_writes_total",
		Help:      "Administrator module overrides written.",
	}, []string{"action"})
)

// Handler serves the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
