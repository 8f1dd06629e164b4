package credstore

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LookupsTotal  *prometheus.CounterVec   // Количество поисков ключа по результату
	LookupLatency *prometheus.HistogramVec // Латентность обращения к хранилищу
}

// NewMetrics создает метрики в указанном registry (nil - default registry)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hmacgate_credstore_lookups_total",
				Help: "Total number of credential lookups",
			},
			[]string{"provider", "result"}, // found/not_found/error
		),
		LookupLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hmacgate_credstore_lookup_latency_seconds",
				Help:    "Latency of credential lookups in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
	}
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// DefaultMetrics возвращает метрики в default registry
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(nil)
	})
	return defaultMetrics
}

func (m *Metrics) observe(provider, result string, seconds float64) {
	m.LookupsTotal.WithLabelValues(provider, result).Inc()
	m.LookupLatency.WithLabelValues(provider).Observe(seconds)
}
