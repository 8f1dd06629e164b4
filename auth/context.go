package auth

import "context"

type contextKey string

// ContextKeyAPIUsername хранит RequestContext в контексте запроса.
// Имя ключа "api-username" - часть внешнего контракта для обработчиков.
const ContextKeyAPIUsername contextKey = "api-username"

// RequestContext - подтвержденная личность, которую gate передает дальше
type RequestContext struct {
	// Username - имя пользователя, чья подпись прошла проверку
	Username string
}

// WithRequestContext кладет RequestContext в контекст
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, ContextKeyAPIUsername, rc)
}

// FromContext извлекает RequestContext. false - запрос не был подписан.
func FromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(ContextKeyAPIUsername).(RequestContext)
	return rc, ok
}

// Username возвращает подтвержденное имя пользователя из контекста
func Username(ctx context.Context) (string, bool) {
	rc, ok := FromContext(ctx)
	if !ok || rc.Username == "" {
		return "", false
	}
	return rc.Username, true
}
