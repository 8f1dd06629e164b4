package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"hmacgate/auth"
	"hmacgate/logger"
)

// DefaultRedisKeyPrefix - префикс ключей с секретами по умолчанию
const DefaultRedisKeyPrefix = "hmacgate:secret:"

// RedisStore читает секрет из Redis на каждый запрос: ротация ключа
// вступает в силу сразу, кэша нет.
type RedisStore struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore подключается к Redis и проверяет соединение
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		cfg.Address = "localhost:6379"
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	store := NewRedisStoreFromClient(rdb, cfg.KeyPrefix, cfg.Timeout)
	if err := store.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis credential store connected: %s (db %d, prefix %q)", cfg.Address, cfg.DB, cfg.KeyPrefix)
	return store, nil
}

// NewRedisStoreFromClient оборачивает готовый клиент
func NewRedisStoreFromClient(rdb *redis.Client, prefix string, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisStore{rdb: rdb, prefix: prefix, timeout: timeout}
}

// Key возвращает ключ Redis для пользователя
func (s *RedisStore) Key(username string) string {
	return s.prefix + username
}

// Lookup читает секрет пользователя
func (s *RedisStore) Lookup(ctx context.Context, username string) (auth.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	val, err := s.rdb.Get(ctx, s.Key(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.Credential{}, notFound(ProviderRedis, username)
		}
		return auth.Credential{}, fmt.Errorf("redis lookup %q: %w", username, err)
	}
	if len(val) == 0 {
		return auth.Credential{}, notFound(ProviderRedis, username)
	}

	return auth.Credential{Username: username, Secret: auth.Secret(val)}, nil
}

// Put сохраняет секрет пользователя (используется утилитами и тестами)
func (s *RedisStore) Put(ctx context.Context, username string, secret []byte) error {
	return s.rdb.Set(ctx, s.Key(username), secret, 0).Err()
}

// Provider возвращает тип хранилища
func (s *RedisStore) Provider() string { return ProviderRedis }

// Ping проверяет соединение с Redis
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

// Close закрывает пул соединений
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
