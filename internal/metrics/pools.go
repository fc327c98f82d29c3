package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Pool and routing metrics live in a standalone package to avoid import
// cycles between the registry, the directory and the HTTP layer.

var (
	PoolOpens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "staffdeck_tenant_pool_opens_total",
		Help: "Tenant pool open attempts by result (ok|error)",
	}, []string{"result"})

	PoolOpenDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "staffdeck_tenant_pool_open_duration_ms",
		Help:    "Latency of opening a tenant pool in milliseconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	ActivePools = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "staffdeck_tenant_pools_active",
		Help: "Live tenant pools currently registered",
	})

	RecordCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "staffdeck_tenant_record_cache_hits_total",
		Help: "Tenant record resolutions served from cache",
	})

	RecordCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "staffdeck_tenant_record_cache_misses_total",
		Help: "Tenant record resolutions that queried the control store",
	})

	RouteClassified = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "staffdeck_route_classified_total",
		Help: "Requests by route classification (control|tenant|unknown)",
	}, []string{"class"})
)

// Register registers every metric on reg (default registerer when nil),
// tolerating duplicate registration so tests can call it repeatedly.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		PoolOpens,
		PoolOpenDuration,
		ActivePools,
		RecordCacheHits,
		RecordCacheMisses,
		RouteClassified,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
