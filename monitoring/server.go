package monitoring

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"hmacgate/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger - зависимость, без которой сервис не готов (хранилище ключей)
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server представляет HTTP сервер для экспорта метрик Prometheus и health check
type Server struct {
	config       *Config
	server       *http.Server
	listener     net.Listener
	pinger       Pinger
	metrics      *Metrics
	gatherer     prometheus.Gatherer
	shuttingDown atomic.Bool

	// Канал для остановки сбора системных метрик
	stopSystemMetrics chan struct{}
	stopOnce          sync.Once
	wg                sync.WaitGroup
}

// NewServer создает новый сервер метрик. pinger может быть nil.
func NewServer(config *Config, pinger Pinger, metrics *Metrics, gatherer prometheus.Gatherer) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		config:            config,
		pinger:            pinger,
		metrics:           metrics,
		gatherer:          gatherer,
		stopSystemMetrics: make(chan struct{}),
	}
}

// Handler возвращает мультиплексор с метриками и health check эндпоинтами
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Регистрируем обработчик метрик
	mux.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Добавляем health check эндпоинты
	mux.HandleFunc("/health/live", s.liveHealthHandler)
	mux.HandleFunc("/health/ready", s.readyHealthHandler)

	return mux
}

// Start запускает HTTP сервер для метрик
func (s *Server) Start() error {
	if !s.config.Enabled {
		logger.Info("Monitoring is disabled, skipping metrics server start")
		return nil
	}

	logger.Info("Starting metrics server on %s", s.config.ListenAddress)

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln

	// Создаем HTTP сервер
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	if s.config.EnableSystemMetrics && s.metrics != nil {
		s.wg.Add(1)
		go s.collectSystemMetrics()
	}

	// Запускаем сервер в отдельной горутине
	go func() {
		logger.Info("Metrics server listening on %s%s", ln.Addr(), s.config.MetricsPath)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed: %v", err)
		}
	}()

	return nil
}

// Addr возвращает фактический адрес сервера (полезно при ":0")
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// MarkShuttingDown переводит /health/ready в 503 до остановки серверов
func (s *Server) MarkShuttingDown() {
	s.shuttingDown.Store(true)
	if s.metrics != nil {
		s.metrics.Ready.Set(0)
	}
}

// Stop останавливает HTTP сервер метрик
func (s *Server) Stop(ctx context.Context) error {
	s.MarkShuttingDown()

	// Останавливаем сбор системных метрик
	s.stopOnce.Do(func() { close(s.stopSystemMetrics) })
	s.wg.Wait()

	if !s.config.Enabled || s.server == nil {
		return nil
	}

	logger.Info("Stopping metrics server...")
	return s.server.Shutdown(ctx)
}

// collectSystemMetrics периодически обновляет системные метрики
func (s *Server) collectSystemMetrics() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SystemMetricsInterval)
	defer ticker.Stop()

	s.metrics.collectSystem()
	for {
		select {
		case <-ticker.C:
			s.metrics.collectSystem()
		case <-s.stopSystemMetrics:
			return
		}
	}
}

// liveHealthHandler обрабатывает запросы /health/live
func (s *Server) liveHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}

// readyHealthHandler обрабатывает запросы /health/ready
func (s *Server) readyHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Проверяем, не находимся ли мы в состоянии graceful shutdown
	if s.shuttingDown.Load() {
		s.observeReadiness("shutting_down", false)
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"shutting down"}`)
		return
	}

	// Без хранилища ключей подписанные запросы получат 500, поэтому сервис не готов
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.ReadinessTimeout)
		defer cancel()

		if err := s.pinger.Ping(ctx); err != nil {
			logger.Warn("Readiness check failed: credential store unavailable: %v", err)
			s.observeReadiness("store_unavailable", false)
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"credential store unavailable"}`)
			return
		}
	}

	s.observeReadiness("ok", true)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}

func (s *Server) observeReadiness(result string, ready bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.ReadinessChecks.WithLabelValues(result).Inc()
	if ready {
		s.metrics.Ready.Set(1)
	} else {
		s.metrics.Ready.Set(0)
	}
}
