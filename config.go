package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hmacgate/apigw"
	"hmacgate/auth"
	"hmacgate/credstore"
	"hmacgate/logger"
	"hmacgate/monitoring"
)

// AppConfig содержит полную конфигурацию приложения
type AppConfig struct {
	// Конфигурация API Gateway
	Server apigw.Config `yaml:"server"`

	// Конфигурация логирования
	Logging LoggingConfig `yaml:"logging"`

	// Конфигурация проверки подписи
	Auth auth.Config `yaml:"auth"`

	// Конфигурация хранилища секретных ключей
	CredStore credstore.Config `yaml:"credstore"`

	// Конфигурация мониторинга
	Monitoring monitoring.Config `yaml:"monitoring"`
}

// LoggingConfig содержит конфигурацию логирования
type LoggingConfig struct {
	Level string `yaml:"level"`

	// File - ротируемый файл логов; пустой path означает stdout
	File logger.FileConfig `yaml:"file"`
}

// DefaultAppConfig возвращает конфигурацию по умолчанию
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: apigw.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
		Auth:       auth.DefaultConfig(),
		CredStore:  credstore.DefaultConfig(),
		Monitoring: *monitoring.DefaultConfig(),
	}
}

// LoadEnvFiles подгружает переменные окружения из .env файлов, если они есть.
// Уже заданные переменные окружения не перезаписываются.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
		logger.Debug("Loaded environment from %s", f)
	}
	return nil
}

// LoadConfig загружает конфигурацию из файла. Ссылки ${VAR} раскрываются
// из окружения, чтобы секреты не хранились в YAML.
func LoadConfig(filename string) (*AppConfig, error) {
	// Читаем файл
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	return ParseConfig(data)
}

// ParseConfig разбирает YAML поверх конфигурации по умолчанию
func ParseConfig(data []byte) (*AppConfig, error) {
	// Начинаем с конфигурации по умолчанию
	config := DefaultAppConfig()

	expanded := os.ExpandEnv(string(data))

	// Парсим YAML
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Валидируем конфигурацию
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate проверяет корректность конфигурации
func (c *AppConfig) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	// Валидируем уровень логирования
	if !isValidLogLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	if c.Logging.File.MaxSizeMB < 0 || c.Logging.File.MaxBackups < 0 || c.Logging.File.MaxAgeDays < 0 {
		return fmt.Errorf("logging.file limits must not be negative")
	}

	// Валидируем конфигурации модулей
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.CredStore.Validate(); err != nil {
		return fmt.Errorf("credstore config: %w", err)
	}

	if err := c.Monitoring.Validate(); err != nil {
		return fmt.Errorf("monitoring config: %w", err)
	}

	return nil
}

// NewLogger создает логгер по секции logging
func (c *AppConfig) NewLogger() *logger.Logger {
	level := logger.ParseLogLevel(c.Logging.Level)
	if c.Logging.File.Path != "" {
		return logger.NewFile(level, c.Logging.File)
	}
	return logger.New(level)
}

// isValidLogLevel проверяет корректность уровня логирования
func isValidLogLevel(level string) bool {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if strings.ToLower(level) == valid {
			return true
		}
	}
	return false
}

// SaveConfig сохраняет конфигурацию в файл (для генерации примера)
func (c *AppConfig) SaveConfig(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}
