package apigw

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hmacgate/auth"
	"hmacgate/logger"
)

// RouteRegistrar регистрирует маршруты приложения за gate
type RouteRegistrar interface {
	Register(r chi.Router)
}

// Gateway представляет модуль API Gateway
type Gateway struct {
	config  Config
	router  chi.Router
	metrics *Metrics

	mu     sync.Mutex
	server *http.Server
}

// Option настраивает Gateway
type Option func(*Gateway)

// WithMetrics задает метрики шлюза
func WithMetrics(m *Metrics) Option {
	return func(gw *Gateway) { gw.metrics = m }
}

// New создает новый экземпляр API Gateway. Все маршруты app проходят через gate.
func New(config Config, gate *auth.Gate, app RouteRegistrar, opts ...Option) *Gateway {
	gw := &Gateway{config: config}
	for _, opt := range opts {
		opt(gw)
	}
	if gw.metrics == nil {
		gw.metrics = NewMetrics(nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(gw.observe)
	if gate != nil {
		r.Use(gate.Middleware)
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed)
	})
	app.Register(r)

	gw.router = r
	return gw
}

// ServeHTTP реализует интерфейс http.Handler
func (gw *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gw.router.ServeHTTP(w, r)
}

// observe логирует запрос и обновляет метрики
func (gw *Gateway) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Логируем входящий запрос
		logger.Debug("Incoming request: %s %s (id=%s)", r.Method, r.URL.RequestURI(), middleware.GetReqID(r.Context()))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		latency := time.Since(start)
		gw.metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		gw.metrics.RequestLatency.WithLabelValues(r.Method, route).Observe(latency.Seconds())

		// Логируем ответ
		logger.Info("%s %s -> %d, %d bytes, %.3f ms",
			r.Method, r.URL.Path, status, ww.BytesWritten(), float64(latency.Microseconds())/1000.0)
	})
}

// Start запускает сервер и блокируется до его остановки
func (gw *Gateway) Start() error {
	ln, err := net.Listen("tcp", gw.config.ListenAddress)
	if err != nil {
		return err
	}
	return gw.Serve(ln)
}

// Serve обслуживает запросы на готовом listener
func (gw *Gateway) Serve(ln net.Listener) error {
	// HTTP server
	server := &http.Server{
		Handler:      gw,
		ReadTimeout:  gw.config.ReadTimeout,
		WriteTimeout: gw.config.WriteTimeout,
		IdleTimeout:  gw.config.IdleTimeout,
	}
	gw.mu.Lock()
	gw.server = server
	gw.mu.Unlock()

	logger.Info("Starting API Gateway on %s", ln.Addr())

	// Проверяем, нужно ли использовать TLS
	if gw.config.TLSCertFile != "" && gw.config.TLSKeyFile != "" {
		logger.Info("Starting HTTPS server with TLS")
		return server.ServeTLS(ln, gw.config.TLSCertFile, gw.config.TLSKeyFile)
	}

	logger.Info("Starting HTTP server")
	return server.Serve(ln)
}

// Stop останавливает сервер
func (gw *Gateway) Stop(ctx context.Context) error {
	gw.mu.Lock()
	server := gw.server
	gw.mu.Unlock()

	if server == nil {
		return nil
	}

	logger.Info("Stopping API Gateway...")
	return server.Shutdown(ctx)
}
