// Package handlers содержит демонстрационные обработчики приложения,
// которые стоят за gate и читают подтвержденную личность из контекста.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hmacgate/apigw"
	"hmacgate/auth"
	"hmacgate/logger"
)

// App регистрирует маршруты приложения
type App struct {
	// maxEchoBytes ограничивает тело, которое /echo читает из неподписанных запросов
	maxEchoBytes int64
}

// NewApp создает набор обработчиков
func NewApp(maxEchoBytes int64) *App {
	if maxEchoBytes <= 0 {
		maxEchoBytes = auth.DefaultMaxBodyBytes
	}
	return &App{maxEchoBytes: maxEchoBytes}
}

// Register реализует apigw.RouteRegistrar
func (a *App) Register(r chi.Router) {
	r.Get("/whoami", a.WhoAmI)
	r.Post("/echo", a.Echo)
	r.Get("/public/ping", a.Ping)
}

// WhoAmIResponse - ответ /whoami
type WhoAmIResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

// WhoAmI возвращает имя пользователя, если запрос был подписан
func (a *App) WhoAmI(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.Username(r.Context())
	if err := apigw.WriteJSON(w, http.StatusOK, WhoAmIResponse{Authenticated: ok, Username: username}); err != nil {
		logger.Debug("whoami: write failed: %v", err)
	}
}

// EchoResponse - ответ /echo
type EchoResponse struct {
	Username string `json:"username,omitempty"`
	Bytes    int    `json:"bytes"`
	Body     string `json:"body"`
}

// Echo возвращает тело запроса. Для подписанных запросов тело уже было
// прочитано при проверке подписи и здесь читается повторно.
func (a *App) Echo(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxEchoBytes))
	if err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		logger.Debug("echo: read failed: %v", err)
		apigw.WriteError(w, status)
		return
	}

	username, _ := auth.Username(r.Context())
	resp := EchoResponse{Username: username, Bytes: len(body), Body: string(body)}
	if err := apigw.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Debug("echo: write failed: %v", err)
	}
}

// Ping - публичная проверка доступности без подписи
func (a *App) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}
