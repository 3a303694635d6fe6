package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Allocations counts successful allocation batches per consuming stage.
	Allocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_allocations_total",
		Help: "Successful allocation batches by consuming stage.",
	}, []string{"stage"})

	// AllocationConflicts counts optimistic-lock conflicts that forced an
	// allocation transaction to retry.
	AllocationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_allocation_conflicts_total",
		Help: "Allocation transactions retried after a version conflict.",
	})

	// Releases counts successful quick-remove credits.
	Releases = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_releases_total",
		Help: "Successful allocation releases.",
	})
)

// Handler exposes the default prometheus registry on a Fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
