package monitoring

import (
	"context"
	"fmt"

	"hmacgate/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// Monitor представляет основной интерфейс модуля мониторинга
type Monitor struct {
	config  *Config
	server  *Server
	metrics *Metrics
}

// Option настраивает Monitor
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// WithRegistry использует отдельный registry вместо default (тесты, встраивание)
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registerer = reg
		o.gatherer = reg
	}
}

// New создает новый экземпляр Monitor. pinger проверяется в /health/ready.
func New(config *Config, pinger Pinger, opts ...Option) (*Monitor, error) {
	if config == nil {
		config = DefaultConfig()
	}

	// Валидируем конфигурацию
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitoring config: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	metrics := NewMetrics(o.registerer)
	server := NewServer(config, pinger, metrics, o.gatherer)

	monitor := &Monitor{
		config:  config,
		server:  server,
		metrics: metrics,
	}

	logger.Info("Monitoring module initialized")
	logger.Debug("Monitoring config: enabled=%v, listen=%s, path=%s",
		config.Enabled, config.ListenAddress, config.MetricsPath)

	return monitor, nil
}

// Start запускает модуль мониторинга
func (m *Monitor) Start() error {
	if !m.config.Enabled {
		logger.Info("Monitoring is disabled")
		return nil
	}

	logger.Info("Starting monitoring module...")

	// Запускаем HTTP сервер метрик
	if err := m.server.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	logger.Info("Monitoring module started successfully")
	return nil
}

// MarkShuttingDown сообщает балансировщику, что новые запросы слать не нужно
func (m *Monitor) MarkShuttingDown() {
	m.server.MarkShuttingDown()
}

// Stop останавливает модуль мониторинга
func (m *Monitor) Stop(ctx context.Context) error {
	if !m.config.Enabled {
		return nil
	}

	logger.Info("Stopping monitoring module...")

	// Останавливаем HTTP сервер
	if err := m.server.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}

	logger.Info("Monitoring module stopped")
	return nil
}

// GetConfig возвращает конфигурацию мониторинга
func (m *Monitor) GetConfig() *Config {
	return m.config
}

// GetMetrics возвращает метрики мониторинга
func (m *Monitor) GetMetrics() *Metrics {
	return m.metrics
}

// Server возвращает HTTP сервер мониторинга
func (m *Monitor) Server() *Server {
	return m.server
}

// IsEnabled возвращает true, если мониторинг включен
func (m *Monitor) IsEnabled() bool {
	return m.config.Enabled
}
