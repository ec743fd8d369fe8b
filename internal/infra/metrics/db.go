package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolConnections, dbPoolMaxConnections) }

var (
	dbPoolConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_connections",
			Help: "Connections in the voucher store pool by state (total/idle/in_use).",
		},
		[]string{"state"},
	)

	dbPoolMaxConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_max_connections",
			Help: "Configured ceiling of the voucher store pool.",
		},
	)
)

// SetDBPoolStats is fed by the stats poller from pgxpool.Stat.
func SetDBPoolStats(total, idle, inUse, maxConns int32) {
	dbPoolConnections.WithLabelValues("total").Set(float64(total))
	dbPoolConnections.WithLabelValues("idle").Set(float64(idle))
	dbPoolConnections.WithLabelValues("in_use").Set(float64(inUse))
	dbPoolMaxConnections.Set(float64(maxConns))
}
