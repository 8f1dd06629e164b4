package monitoring

import (
	"fmt"
	"time"
)

// Config - настройки служебного HTTP сервера: метрики Prometheus,
// /health/live и /health/ready
type Config struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"` // отдельный от шлюза порт, например ":9091"
	MetricsPath   string `yaml:"metrics_path"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Горутины, heap и циклы GC обновляются раз в SystemMetricsInterval
	EnableSystemMetrics   bool          `yaml:"enable_system_metrics"`
	SystemMetricsInterval time.Duration `yaml:"system_metrics_interval"`

	// ReadinessTimeout ограничивает Ping хранилища ключей в /health/ready.
	// Если хранилище не ответило, сервис не готов принимать подписанные запросы.
	ReadinessTimeout time.Duration `yaml:"readiness_timeout"`
}

// DefaultConfig возвращает настройки мониторинга по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Enabled:               true,
		ListenAddress:         ":9091",
		MetricsPath:           "/metrics",
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          10 * time.Second,
		EnableSystemMetrics:   true,
		SystemMetricsInterval: 15 * time.Second,
		ReadinessTimeout:      2 * time.Second,
	}
}

// Validate проверяет настройки; выключенный мониторинг не проверяется
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch {
	case c.ListenAddress == "":
		return fmt.Errorf("monitoring: listen_address is required")
	case c.MetricsPath == "" || c.MetricsPath[0] != '/':
		return fmt.Errorf("monitoring: metrics_path must start with '/', got %q", c.MetricsPath)
	case c.MetricsPath == "/health/live" || c.MetricsPath == "/health/ready":
		return fmt.Errorf("monitoring: metrics_path %q collides with health endpoint", c.MetricsPath)
	case c.ReadTimeout <= 0 || c.WriteTimeout <= 0:
		return fmt.Errorf("monitoring: read_timeout and write_timeout must be positive")
	case c.ReadinessTimeout <= 0:
		return fmt.Errorf("monitoring: readiness_timeout must be positive")
	case c.EnableSystemMetrics && c.SystemMetricsInterval <= 0:
		return fmt.Errorf("monitoring: system_metrics_interval must be positive")
	}

	return nil
}
