package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain counters exposed alongside the default HTTP metrics.
var (
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plaza_registrations_total",
		Help: "Number of successfully registered accounts.",
	})
	ArticlesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plaza_articles_created_total",
		Help: "Number of created articles by category.",
	}, []string{"category"})
)

var (
	promOnce sync.Once
	promMw   *fiberprometheus.FiberPrometheus
)

// InitMetrics sets up the Prometheus HTTP middleware for the given service
// name. The registry is process-global, so repeated calls return the same
// instance.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMw = fiberprometheus.New(serviceName)
	})
	return promMw
}
