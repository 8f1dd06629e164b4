package credstore

import (
	"context"
	"fmt"

	"hmacgate/auth"
)

// StaticStore хранит ключи в памяти. Карта не меняется после создания,
// поэтому конкурентное чтение безопасно без блокировок.
type StaticStore struct {
	credentials map[string]auth.Secret
}

// NewStaticStore создает хранилище из списка пользователей конфигурации
func NewStaticStore(users []UserConfig) (*StaticStore, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("static store requires at least one user")
	}

	credentials := make(map[string]auth.Secret, len(users))
	for _, user := range users {
		if user.Username == "" {
			return nil, fmt.Errorf("static store: empty username")
		}
		if _, dup := credentials[user.Username]; dup {
			return nil, fmt.Errorf("static store: duplicate user %q", user.Username)
		}
		secret, err := user.secret()
		if err != nil {
			return nil, err
		}
		if len(secret) == 0 {
			return nil, fmt.Errorf("static store: user %q has empty secret", user.Username)
		}
		credentials[user.Username] = auth.Secret(secret)
	}

	return &StaticStore{credentials: credentials}, nil
}

// Lookup возвращает ключ пользователя
func (s *StaticStore) Lookup(_ context.Context, username string) (auth.Credential, error) {
	secret, ok := s.credentials[username]
	if !ok {
		return auth.Credential{}, notFound(ProviderStatic, username)
	}

	// Копия, чтобы вызывающий не мог испортить карту
	out := make(auth.Secret, len(secret))
	copy(out, secret)
	return auth.Credential{Username: username, Secret: out}, nil
}

// Provider возвращает тип хранилища
func (s *StaticStore) Provider() string { return ProviderStatic }

// Ping всегда успешен
func (s *StaticStore) Ping(context.Context) error { return nil }

// Close ничего не делает
func (s *StaticStore) Close() error { return nil }

// Len возвращает количество пользователей
func (s *StaticStore) Len() int { return len(s.credentials) }
