package auth

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Общие метрики запросов
	AuthRequestsTotal *prometheus.CounterVec   // Количество проверок по результату
	AuthLatency       *prometheus.HistogramVec // Латентность проверки подписи
}

// NewMetrics создает метрики и регистрирует их в указанном registry.
// nil означает default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AuthRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hmacgate_auth_requests_total",
				Help: "Total number of signature checks by result",
			},
			[]string{"result"}, // not_signed/success/fail/error
		),
		AuthLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hmacgate_auth_latency_seconds",
				Help:    "Latency of signature validation in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0}, // Мелкие бакеты: проверка обычно быстрая
			},
			[]string{"result"},
		),
	}
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// DefaultMetrics возвращает метрики в default registry (создаются один раз на процесс)
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(nil)
	})
	return defaultMetrics
}

func (m *Metrics) observe(result string, seconds float64) {
	if m == nil {
		return
	}
	m.AuthRequestsTotal.WithLabelValues(result).Inc()
	m.AuthLatency.WithLabelValues(result).Observe(seconds)
}
