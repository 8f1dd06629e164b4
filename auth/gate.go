package auth

import (
	"context"
	"errors"
	"net/http"
)

// ErrorHandler отвечает на запрос, который не удалось проверить:
// тело не буферизовано, проверка прервана или сервер неисправен
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Gate - перехватчик, который пропускает к обработчикам только
// неподписанные запросы и запросы с верной подписью
type Gate struct {
	service      *Service
	maxBody      int64
	diag         Diagnostics
	errorHandler ErrorHandler
}

// GateOption настраивает Gate
type GateOption func(*Gate)

// WithMaxBodyBytes задает лимит буферизации тела
func WithMaxBodyBytes(n int64) GateOption {
	return func(g *Gate) {
		if n > 0 {
			g.maxBody = n
		}
	}
}

// WithGateDiagnostics задает приемник диагностики для gate
func WithGateDiagnostics(d Diagnostics) GateOption {
	return func(g *Gate) {
		if d != nil {
			g.diag = d
		}
	}
}

// WithErrorHandler задает обработчик неисправностей сервера
func WithErrorHandler(h ErrorHandler) GateOption {
	return func(g *Gate) {
		if h != nil {
			g.errorHandler = h
		}
	}
}

// NewGate создает gate поверх сервиса проверки
func NewGate(service *Service, opts ...GateOption) *Gate {
	g := &Gate{
		service:      service,
		maxBody:      DefaultMaxBodyBytes,
		diag:         service.diag,
		errorHandler: DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// DefaultErrorHandler отвечает статусом по классу ошибки, без подробностей
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := StatusForError(err)
	http.Error(w, http.StatusText(status), status)
}

// StatusForError сопоставляет ошибку gate с HTTP статусом
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrBodyRead):
		return http.StatusBadRequest
	case IsAborted(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Middleware оборачивает обработчик проверкой подписи
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.Intercept(w, r, next)
	})
}

// Intercept проверяет один запрос и решает, передавать ли его дальше
func (g *Gate) Intercept(w http.ResponseWriter, r *http.Request, next http.Handler) {
	// Без подписи - прозрачно дальше, хранилище ключей не трогаем
	if !g.service.HasSignature(r.Header) {
		next.ServeHTTP(w, r)
		return
	}

	buffered, err := Wrap(r, g.maxBody)
	if err != nil {
		g.diag.Error("Rejecting %s %s: %v", r.Method, r.URL.Path, err)
		g.errorHandler(w, r, err)
		return
	}

	if d, ok := g.diag.(interface{ IsDebugEnabled() bool }); !ok || d.IsDebugEnabled() {
		g.debugRequest(buffered)
	}

	result, err := g.service.Validate(r.Context(), buffered)
	if IsAborted(err) {
		g.diag.Debug("Signature validation aborted for %s %s: %v", r.Method, r.URL.Path, err)
		// Клиент уже отключился, отвечать некому
		if errors.Is(r.Context().Err(), context.Canceled) {
			return
		}
		g.errorHandler(w, buffered.Request(), err)
		return
	}
	if err != nil {
		g.diag.Error("Signature validation failed for %s %s: %v", r.Method, r.URL.Path, err)
		g.errorHandler(w, buffered.Request(), err)
		return
	}

	switch result.Status() {
	case Success:
		ctx := WithRequestContext(r.Context(), RequestContext{Username: result.Username()})
		authed := buffered.WithRequest(r.WithContext(ctx))
		next.ServeHTTP(w, authed.Request())
	case NotSigned:
		next.ServeHTTP(w, buffered.Request())
	default:
		g.diag.Error("Signature validation FAIL for %s %s: %v", r.Method, buffered.URI(), result.Reason())
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
}

// debugRequest выводит поля, по которым строится подпись
func (g *Gate) debugRequest(req *BufferedRequest) {
	sc, err := NewSigningContext(req, g.service.TimestampHeader())
	if err != nil {
		g.diag.Debug("validating request: method=%s uri=%s body: %v", req.Method(), req.URI(), err)
		return
	}
	g.diag.Debug("%s", sc.LogLine(req.Header().Get(g.service.SignatureHeader())))
}
