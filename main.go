package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hmacgate/apigw"
	"hmacgate/auth"
	"hmacgate/credstore"
	"hmacgate/handlers"
	"hmacgate/logger"
	"hmacgate/monitoring"
)

func main() {
	// Парсим аргументы командной строки
	var (
		configFile     = flag.String("config", "", "Configuration file path (YAML)")
		envFile        = flag.String("env-file", ".env", "Optional .env file with variables referenced by the config")
		listenAddr     = flag.String("listen", "", "Listen address (overrides config)")
		tlsCert        = flag.String("tls-cert", "", "TLS certificate file (overrides config)")
		tlsKey         = flag.String("tls-key", "", "TLS key file (overrides config)")
		readTimeout    = flag.Duration("read-timeout", 0, "Read timeout (overrides config)")
		writeTimeout   = flag.Duration("write-timeout", 0, "Write timeout (overrides config)")
		logLevel       = flag.String("log-level", "", "Log level (debug, info, warn, error) (overrides config)")
		maxClockSkew   = flag.Duration("max-clock-skew", -1, "Allowed clock skew for signed requests, 0 disables (overrides config)")
		metricsAddr    = flag.String("metrics-listen", "", "Metrics server listen address (overrides config)")
		disableMetrics = flag.Bool("disable-metrics", false, "Disable metrics server (overrides config)")
	)
	flag.Parse()

	if err := LoadEnvFiles(*envFile); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	// Загружаем конфигурацию
	if *configFile == "" {
		logger.Error("Config file not provided or incorrect. Exiting.")
		os.Exit(1)
	}

	logger.Info("Loading configuration from file: %s", *configFile)
	config, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Info("Configuration loaded successfully")

	// Применяем переопределения из командной строки
	applyCommandLineOverrides(config,
		*listenAddr, *tlsCert, *tlsKey, *readTimeout, *writeTimeout,
		*logLevel, *maxClockSkew, *metricsAddr, *disableMetrics)

	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration after overrides: %v", err)
	}

	// Устанавливаем логгер
	appLogger := config.NewLogger()
	logger.SetGlobal(appLogger)
	defer func() { _ = appLogger.Sync() }()

	logger.Info("hmacgate starting...")
	logger.Info("Log level: %s", appLogger.GetLevel().String())

	// Хранилище ключей
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := credstore.NewFromConfig(ctx, &config.CredStore)
	cancel()
	if err != nil {
		log.Fatalf("Failed to create credential store: %v", err)
	}
	defer store.Close()

	// Проверка подписи
	service, err := auth.NewServiceFromConfig(config.Auth, store, auth.WithDiagnostics(appLogger))
	if err != nil {
		log.Fatalf("Failed to create authentication service: %v", err)
	}
	gate := auth.NewGate(service,
		auth.WithMaxBodyBytes(config.Auth.MaxBodyBytes),
		auth.WithErrorHandler(apigw.AuthErrorHandler),
	)

	logger.Info("Authentication: algorithm=%s, signature header=%s, timestamp header=%s, max clock skew=%v, max body=%d bytes",
		service.Codec().Algorithm(), service.SignatureHeader(), service.TimestampHeader(),
		config.Auth.MaxClockSkew, config.Auth.MaxBodyBytes)
	if config.Auth.MaxClockSkew == 0 {
		logger.Warn("Timestamp freshness check is disabled: captured requests can be replayed")
	}

	// Создаем и запускаем модуль мониторинга
	var monitor *monitoring.Monitor
	if config.Monitoring.Enabled {
		monitor, err = monitoring.New(&config.Monitoring, store)
		if err != nil {
			log.Fatalf("Failed to create monitoring module: %v", err)
		}
		if err := monitor.Start(); err != nil {
			log.Fatalf("Failed to start monitoring module: %v", err)
		}
		logger.Info("Monitoring enabled on %s", config.Monitoring.ListenAddress)
	} else {
		logger.Info("Monitoring disabled")
	}

	// Создаем API Gateway
	gateway := apigw.New(config.Server, gate, handlers.NewApp(config.Auth.MaxBodyBytes))

	logger.Info("Configuration:")
	logger.Info("  Listen Address: %s", config.Server.ListenAddress)
	logger.Info("  Read Timeout: %v", config.Server.ReadTimeout)
	logger.Info("  Write Timeout: %v", config.Server.WriteTimeout)
	if config.Server.TLSCertFile != "" {
		logger.Info("  TLS Enabled: Yes")
		logger.Info("  TLS Cert: %s", config.Server.TLSCertFile)
		logger.Info("  TLS Key: %s", config.Server.TLSKeyFile)
	} else {
		logger.Info("  TLS Enabled: No")
	}

	// Настраиваем graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Запускаем API Gateway в отдельной горутине
	serverErr := make(chan error, 1)
	go func() {
		if err := gateway.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info("hmacgate started successfully")

	// Ждем сигнал для остановки
	select {
	case sig := <-sigChan:
		logger.Info("Received signal %v, shutting down...", sig)
	case err := <-serverErr:
		logger.Error("API Gateway failed: %v", err)
	}

	// Снимаем готовность до остановки, чтобы балансировщик перестал слать запросы
	if monitor != nil {
		monitor.MarkShuttingDown()
	}

	// Создаем контекст с таймаутом для graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Останавливаем API Gateway
	if err := gateway.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping API Gateway: %v", err)
	}

	// Останавливаем мониторинг
	if monitor != nil {
		if err := monitor.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping monitoring: %v", err)
		}
	}

	logger.Info("hmacgate stopped")
}

// applyCommandLineOverrides применяет переопределения из командной строки
func applyCommandLineOverrides(config *AppConfig,
	listenAddr, tlsCert, tlsKey string,
	readTimeout, writeTimeout time.Duration,
	logLevel string, maxClockSkew time.Duration,
	metricsAddr string, disableMetrics bool) {

	// Переопределения сервера
	if listenAddr != "" {
		config.Server.ListenAddress = listenAddr
		logger.Debug("Override: server.listen_address = %s", listenAddr)
	}

	if tlsCert != "" {
		config.Server.TLSCertFile = tlsCert
		logger.Debug("Override: server.tls_cert_file = %s", tlsCert)
	}

	if tlsKey != "" {
		config.Server.TLSKeyFile = tlsKey
		logger.Debug("Override: server.tls_key_file = %s", tlsKey)
	}

	if readTimeout > 0 {
		config.Server.ReadTimeout = readTimeout
		logger.Debug("Override: server.read_timeout = %v", readTimeout)
	}

	if writeTimeout > 0 {
		config.Server.WriteTimeout = writeTimeout
		logger.Debug("Override: server.write_timeout = %v", writeTimeout)
	}

	// Переопределения логирования
	if logLevel != "" {
		config.Logging.Level = logLevel
		logger.Debug("Override: logging.level = %s", logLevel)
	}

	// Переопределения проверки подписи (отрицательное значение - флаг не задан)
	if maxClockSkew >= 0 {
		config.Auth.MaxClockSkew = maxClockSkew
		logger.Debug("Override: auth.max_clock_skew = %v", maxClockSkew)
	}

	// Переопределения мониторинга
	if metricsAddr != "" {
		config.Monitoring.ListenAddress = metricsAddr
		logger.Debug("Override: monitoring.listen_address = %s", metricsAddr)
	}

	if disableMetrics {
		config.Monitoring.Enabled = false
		logger.Debug("Override: monitoring.enabled = false")
	}
}
