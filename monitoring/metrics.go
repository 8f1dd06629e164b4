package monitoring

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - метрики процесса и готовности. Метрики проверки подписи
// и хранилищ ключей живут в своих пакетах (auth, credstore, apigw).
type Metrics struct {
	// Системные метрики
	Goroutines     prometheus.Gauge // Количество горутин
	HeapAllocBytes prometheus.Gauge // Занятая куча
	GCCyclesTotal  prometheus.Gauge // Количество завершенных циклов GC

	// Готовность
	Ready           prometheus.Gauge       // 1 - сервис готов принимать запросы
	ReadinessChecks *prometheus.CounterVec // Результаты проверок /health/ready
}

// NewMetrics создает и регистрирует метрики в указанном registry (nil - default registry)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Goroutines: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hmacgate_goroutines",
				Help: "Number of goroutines",
			},
		),
		HeapAllocBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hmacgate_heap_alloc_bytes",
				Help: "Bytes of allocated heap objects",
			},
		),
		GCCyclesTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hmacgate_gc_cycles",
				Help: "Number of completed GC cycles",
			},
		),
		Ready: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hmacgate_ready",
				Help: "Whether the gateway reports ready (1) or not (0)",
			},
		),
		ReadinessChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hmacgate_readiness_checks_total",
				Help: "Total number of readiness checks by result",
			},
			[]string{"result"}, // ok/store_unavailable/shutting_down
		),
	}
}

// collectSystem снимает показания runtime
func (m *Metrics) collectSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m.Goroutines.Set(float64(runtime.NumGoroutine()))
	m.HeapAllocBytes.Set(float64(ms.HeapAlloc))
	m.GCCyclesTotal.Set(float64(ms.NumGC))
}
