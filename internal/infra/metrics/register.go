package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every portal metric name.
const Namespace = "portal"

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register is called from init() in each metrics file.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// Register adds every portal collector to reg under the portal_ prefix,
// with a constant site label so several portals can share one Prometheus.
func Register(reg prometheus.Registerer, siteID string) error {
	if siteID == "" {
		siteID = "default"
	}
	wrapped := prometheus.WrapRegistererWithPrefix(Namespace+"_",
		prometheus.WrapRegistererWith(prometheus.Labels{"site": siteID}, reg))
	for _, c := range collectors {
		if err := wrapped.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister registers the collectors with the default registry once per process.
func MustRegister(siteID string) {
	once.Do(func() {
		if err := Register(prometheus.DefaultRegisterer, siteID); err != nil {
			panic(err)
		}
	})
}
