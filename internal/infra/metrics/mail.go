package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(customerMailsTotal) }

var customerMailsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "customer_mails_total",
		Help: "Customer mail by kind (voucher/welcome) and result (sent/failed/dropped).",
	},
	[]string{"kind", "result"},
)

func IncMail(kind, result string) {
	customerMailsTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}
