package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(securityAlertsTotal, auditWriteFailuresTotal, auditEventsPrunedTotal)
}

var (
	securityAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_alerts_total",
			Help: "Security alerts raised by the anomaly rules.",
		},
		[]string{"alert_type"},
	)

	auditWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit events that could not be persisted and went to the log fallback.",
		},
	)

	auditEventsPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_pruned_total",
			Help: "Audit events removed by retention cleanup.",
		},
	)
)

func IncSecurityAlert(alertType string) {
	securityAlertsTotal.WithLabelValues(norm(alertType)).Inc()
}

func IncAuditWriteFailure() { auditWriteFailuresTotal.Inc() }

func AddAuditPruned(n int64) {
	if n > 0 {
		auditEventsPrunedTotal.Add(float64(n))
	}
}
