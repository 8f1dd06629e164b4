package auth

import (
	"context"
	"errors"
	"fmt"
)

// Status - итог проверки подписи одного запроса
type Status int

const (
	// NotSigned - запрос без подписи, проверка не выполнялась
	NotSigned Status = iota
	// Success - подпись совпала, личность пользователя подтверждена
	Success
	// Fail - подпись отсутствует, некорректна или устарела
	Fail
)

// String возвращает строковое представление статуса
func (s Status) String() string {
	switch s {
	case NotSigned:
		return "NOT_SIGNED"
	case Success:
		return "SUCCESS"
	case Fail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// Result - неизменяемый результат проверки. Создается один раз на запрос.
type Result struct {
	status   Status
	username string
	reason   error
}

// NotSignedResult возвращает результат для запроса без подписи
func NotSignedResult() Result {
	return Result{status: NotSigned}
}

// SuccessResult возвращает результат с подтвержденным именем пользователя
func SuccessResult(username string) Result {
	return Result{status: Success, username: username}
}

// FailResult возвращает отрицательный результат. Причина нужна только для логов и метрик,
// клиенту она не сообщается.
func FailResult(reason error) Result {
	return Result{status: Fail, reason: reason}
}

// Status возвращает статус проверки
func (r Result) Status() Status { return r.status }

// Username возвращает имя пользователя; заполнено только при Success
func (r Result) Username() string { return r.username }

// Reason возвращает внутреннюю причину отказа (nil для Success и NotSigned)
func (r Result) Reason() error { return r.reason }

// Secret - секретный ключ пользователя. Никогда не печатается в логи.
type Secret []byte

// String реализует fmt.Stringer
func (Secret) String() string { return "[REDACTED]" }

// GoString реализует fmt.GoStringer, чтобы %#v тоже не раскрывал ключ
func (Secret) GoString() string { return "[REDACTED]" }

// Format перекрывает все глаголы fmt, включая %x и %s
func (Secret) Format(f fmt.State, _ rune) { _, _ = f.Write([]byte("[REDACTED]")) }

// Credential - пара имя пользователя / секретный ключ.
// Живет в пределах одного вызова Validate и не кэшируется.
type Credential struct {
	Username string
	Secret   Secret
}

// CredentialStore - внешний источник секретных ключей.
// Реализации обязаны быть безопасными для конкурентного чтения.
type CredentialStore interface {
	// Lookup возвращает ключ пользователя или ErrCredentialNotFound.
	// Любая другая ошибка считается неисправностью сервера, а не отказом клиенту.
	Lookup(ctx context.Context, username string) (Credential, error)
}

// Diagnostics - приемник диагностических сообщений. *logger.Logger подходит без адаптеров.
type Diagnostics interface {
	Debug(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// nopDiagnostics ничего не пишет
type nopDiagnostics struct{}

func (nopDiagnostics) Debug(string, ...interface{}) {}
func (nopDiagnostics) Error(string, ...interface{}) {}

// Пользовательские ошибки для точной диагностики
var (
	// ErrMissingSignature - заголовок подписи отсутствует.
	ErrMissingSignature = errors.New("missing signature header")
	// ErrMalformedSignature - заголовок подписи не разбирается или подпись не той длины.
	ErrMalformedSignature = errors.New("malformed signature header")
	// ErrMissingTimestamp - отсутствует заголовок с временной меткой.
	ErrMissingTimestamp = errors.New("missing timestamp header")
	// ErrUnknownUser - пользователь из подписи не найден в хранилище ключей.
	ErrUnknownUser = errors.New("unknown user")
	// ErrCredentialNotFound - хранилище не знает такого пользователя.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrSignatureMismatch - вычисленная подпись не совпадает с предоставленной.
	ErrSignatureMismatch = errors.New("signature does not match")
	// ErrRequestExpired - временная метка запроса находится за пределами допустимого окна.
	ErrRequestExpired = errors.New("request has expired")
	// ErrBodyTooLarge - тело запроса превышает лимит буферизации.
	ErrBodyTooLarge = errors.New("request body too large")
	// ErrBodyNotUTF8 - тело запроса не является корректным UTF-8.
	ErrBodyNotUTF8 = errors.New("request body is not valid UTF-8")
	// ErrBodyRead - ошибка чтения тела из транспорта.
	ErrBodyRead = errors.New("failed to read request body")
	// ErrConfiguration - неисправность сервера (алгоритм, хранилище ключей и т.п.).
	// Никогда не превращается в 401.
	ErrConfiguration = errors.New("authentication misconfigured")
)
