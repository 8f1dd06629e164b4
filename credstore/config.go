package credstore

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Провайдеры хранилища ключей
const (
	ProviderStatic = "static"
	ProviderRedis  = "redis"
	ProviderS3     = "s3"
)

// Config содержит конфигурацию хранилища секретных ключей
type Config struct {
	// Provider определяет тип хранилища ("static", "redis", "s3")
	Provider string `yaml:"provider"`

	// Static содержит пользователей прямо в конфигурации
	Static *StaticConfig `yaml:"static,omitempty"`

	// Redis содержит параметры подключения к Redis
	Redis *RedisConfig `yaml:"redis,omitempty"`

	// S3 содержит параметры бакета с ключами
	S3 *S3Config `yaml:"s3,omitempty"`
}

// StaticConfig содержит конфигурацию для статического хранилища
type StaticConfig struct {
	// Users содержит список пользователей и их ключей
	Users []UserConfig `yaml:"users"`
}

// UserConfig содержит конфигурацию одного пользователя
type UserConfig struct {
	// Username - имя пользователя, которое клиент ставит перед подписью
	Username string `yaml:"username"`

	// Secret - секретный ключ в открытом виде
	Secret string `yaml:"secret"`

	// SecretBase64 - секретный ключ в base64 (для бинарных ключей)
	SecretBase64 string `yaml:"secret_base64"`
}

// secret возвращает байты ключа пользователя
func (u UserConfig) secret() ([]byte, error) {
	if u.SecretBase64 != "" {
		b, err := base64.StdEncoding.DecodeString(u.SecretBase64)
		if err != nil {
			return nil, fmt.Errorf("user %q: invalid secret_base64: %w", u.Username, err)
		}
		return b, nil
	}
	return []byte(u.Secret), nil
}

// RedisConfig содержит параметры подключения к Redis
type RedisConfig struct {
	Address   string        `yaml:"address"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"pool_size"`
	KeyPrefix string        `yaml:"key_prefix"`
	Timeout   time.Duration `yaml:"timeout"`
}

// S3Config содержит параметры бакета, где объект <prefix><username> хранит ключ
type S3Config struct {
	Endpoint  string        `yaml:"endpoint"`
	Region    string        `yaml:"region"`
	Bucket    string        `yaml:"bucket"`
	Prefix    string        `yaml:"prefix"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{Provider: ProviderStatic, Static: &StaticConfig{}}
}

// Validate проверяет корректность конфигурации хранилища
func (c *Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case ProviderStatic:
		if c.Static == nil || len(c.Static.Users) == 0 {
			return fmt.Errorf("static provider requires at least one user")
		}

		// Проверяем каждого пользователя
		seen := make(map[string]bool)
		for i, user := range c.Static.Users {
			if user.Username == "" {
				return fmt.Errorf("user #%d: username is empty", i)
			}
			if strings.Contains(user.Username, ":") {
				return fmt.Errorf("user %q: username must not contain ':'", user.Username)
			}
			if user.Secret == "" && user.SecretBase64 == "" {
				return fmt.Errorf("user %q: secret is empty", user.Username)
			}
			if user.Secret != "" && user.SecretBase64 != "" {
				return fmt.Errorf("user %q: set either secret or secret_base64, not both", user.Username)
			}
			if _, err := user.secret(); err != nil {
				return err
			}

			// Проверяем уникальность имени
			if seen[user.Username] {
				return fmt.Errorf("duplicate user %q", user.Username)
			}
			seen[user.Username] = true
		}

	case ProviderRedis:
		if c.Redis == nil {
			return fmt.Errorf("redis provider requires redis section")
		}
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required")
		}
		if c.Redis.PoolSize < 0 || c.Redis.Timeout < 0 {
			return fmt.Errorf("redis pool_size and timeout must not be negative")
		}

	case ProviderS3:
		if c.S3 == nil {
			return fmt.Errorf("s3 provider requires s3 section")
		}
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("s3 region is required")
		}
		if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
			return fmt.Errorf("s3 access_key and secret_key must be set together")
		}
		if c.S3.Timeout < 0 {
			return fmt.Errorf("s3 timeout must not be negative")
		}

	case "":
		return fmt.Errorf("credential store provider is required")
	default:
		return fmt.Errorf("unknown credential store provider %q", c.Provider)
	}

	return nil
}
